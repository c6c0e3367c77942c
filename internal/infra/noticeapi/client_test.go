package noticeapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"procurement_digest_bot/internal/domain/notice"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testWindow() notice.Window {
	return notice.Window{
		From:    time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC),
		To:      time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Filters: map[string]string{"region": "oslo"},
	}
}

func TestFetch_Success(t *testing.T) {
	var got map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[
			{"title":"Road works","publicationDate":"2024-05-01","buyer":"Oslo kommune","link":"https://x/1"},
			{"title":"School cleaning","publicationDate":"2024-05-01","buyer":"Bergen kommune"}
		]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret")
	notices, err := client.Fetch(context.Background(), testWindow())
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"from": "2024-04-30", "to": "2024-05-01", "region": "oslo"}, got)
	require.Len(t, notices, 2)
	assert.Equal(t, notice.Record{Title: "Road works", PublicationDate: "2024-05-01", Buyer: "Oslo kommune", Link: "https://x/1"}, notices[0])
	assert.Empty(t, notices[1].Link)
	assert.Equal(t, "School cleaning", notices[1].Key())
}

func TestFetch_NoTokenOmitsAuthorization(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"results":null}`))
	}))
	defer server.Close()

	notices, err := NewClient(server.URL, "").Fetch(context.Background(), testWindow())
	require.NoError(t, err)
	assert.NotNil(t, notices)
	assert.Empty(t, notices)
}

func TestFetch_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, "").Fetch(context.Background(), testWindow())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "upstream down")
}

func TestFetch_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, "").Fetch(context.Background(), testWindow())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}
