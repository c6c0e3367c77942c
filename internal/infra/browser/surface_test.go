package browser

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"procurement_digest_bot/internal/domain/notice"
	"procurement_digest_bot/internal/domain/snapshot"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateScript(t *testing.T) {
	script, err := updateScript("updateNotices", []notice.Record{
		{Title: `Road "works"`, PublicationDate: "2024-05-01", Buyer: "Oslo kommune", Link: "https://x/1"},
	})
	require.NoError(t, err)

	assert.Contains(t, script, `window["updateNotices"]`)
	assert.Contains(t, script, `"title":"Road \"works\""`)
	assert.Contains(t, script, `"link":"https://x/1"`)
}

func TestUpdateScript_NilListIsEmptyArray(t *testing.T) {
	script, err := updateScript("updateNotices", nil)
	require.NoError(t, err)
	assert.Contains(t, script, "update([]);")
}

func TestExistsScript_QuotesID(t *testing.T) {
	assert.Equal(t, `document.getElementById("map\"x") !== null`, existsScript(`map"x`))
}

func TestElementByID_NotACSSSelector(t *testing.T) {
	for id, want := range map[string]string{
		"map":  `document.getElementById("map")`,
		"1map": `document.getElementById("1map")`,
		"a.b":  `document.getElementById("a.b")`,
	} {
		assert.Equal(t, want, elementByID(id))
		assert.Equal(t, want+" !== null", existsScript(id), "existence check and capture select the same node")
	}
}

func TestEncodePNG(t *testing.T) {
	encoded := encodePNG([]byte{0x89, 'P', 'N', 'G'})
	require.True(t, strings.HasPrefix(encoded, "data:image/png;base64,"))

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(encoded, "data:image/png;base64,"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, raw)
}

func TestClosedSurface(t *testing.T) {
	surface := NewMapSurface(Options{PageURL: "http://localhost/map"}, logrus.NewEntry(logrus.New()))

	_, err := surface.Capture(context.Background(), "map")
	assert.ErrorIs(t, err, snapshot.ErrCapture)

	err = surface.NoticesUpdated(context.Background(), nil)
	assert.Error(t, err)

	surface.Close() // no-op before Open
}
