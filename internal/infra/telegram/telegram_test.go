package telegram

import (
	"context"
	"errors"
	"testing"
	"time"

	"procurement_digest_bot/internal/domain/pipeline"
	"procurement_digest_bot/internal/domain/status"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentText struct {
	chatID int64
	text   string
	silent bool
}

type fakeClient struct {
	sent []sentText
	err  error
}

func (f *fakeClient) SendText(chatID int64, text string, silent bool) error {
	f.sent = append(f.sent, sentText{chatID: chatID, text: text, silent: silent})
	return f.err
}

func TestStatusNotifier_ForwardsByKind(t *testing.T) {
	client := &fakeClient{}
	notifier := NewStatusNotifier(client, 42, logrus.NewEntry(logrus.New()))
	ctx := context.Background()

	notifier.HandleStatus(ctx, status.Info("Digest: capturing the map"))
	notifier.HandleStatus(ctx, status.Warning("Map redraw not confirmed"))
	notifier.HandleStatus(ctx, status.Error("Digest failed at UPLOADING"))
	notifier.HandleStatus(ctx, status.Success("Digest sent"))

	require.Len(t, client.sent, 3)
	assert.Equal(t, sentText{42, "⚠️ Map redraw not confirmed", false}, client.sent[0])
	assert.Equal(t, sentText{42, "❌ Digest failed at UPLOADING", false}, client.sent[1])
	assert.Equal(t, sentText{42, "✅ Digest sent", true}, client.sent[2])
}

func TestStatusNotifier_LogsSendFailure(t *testing.T) {
	logger, hook := test.NewNullLogger()
	notifier := NewStatusNotifier(&fakeClient{err: errors.New("chat not found")}, 42, logrus.NewEntry(logger))

	notifier.HandleStatus(context.Background(), status.Error("boom"))

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Equal(t, int64(42), hook.LastEntry().Data["admin_id"])
}

type fakeSchedule struct {
	running bool
	last    *pipeline.Result
}

func (f fakeSchedule) Running() bool                   { return f.running }
func (f fakeSchedule) RefreshAt() pipeline.TriggerTime { return pipeline.TriggerTime{Hour: 8, Minute: 59} }
func (f fakeSchedule) SendAt() pipeline.TriggerTime    { return pipeline.TriggerTime{Hour: 9, Minute: 0} }
func (f fakeSchedule) Location() *time.Location        { return time.UTC }
func (f fakeSchedule) LastResult() *pipeline.Result    { return f.last }

func TestFormatStatus(t *testing.T) {
	t.Run("nothing ran yet", func(t *testing.T) {
		text := formatStatus(fakeSchedule{running: true}, nil)
		assert.Contains(t, text, "Scheduler: running")
		assert.Contains(t, text, "Refresh at 08:59, send at 09:00 (UTC)")
		assert.Contains(t, text, "No digest has run yet.")
	})

	t.Run("in-memory result", func(t *testing.T) {
		failed := pipeline.Failed("image host rejected the upload")
		text := formatStatus(fakeSchedule{last: &failed}, nil)
		assert.Contains(t, text, "Scheduler: stopped")
		assert.Contains(t, text, "Last run: failed")
		assert.Contains(t, text, "Detail: image host rejected the upload")
	})

	t.Run("stored run wins", func(t *testing.T) {
		sent := pipeline.Sent()
		run := &pipeline.Run{
			Outcome:     pipeline.OutcomeSkippedEmpty,
			Day:         time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
			NoticeCount: 0,
		}
		text := formatStatus(fakeSchedule{last: &sent}, run)
		assert.Contains(t, text, "Last run: skipped-empty on 2024-05-01, 0 notice(s)")
		assert.NotContains(t, text, "Detail:")
	})
}
