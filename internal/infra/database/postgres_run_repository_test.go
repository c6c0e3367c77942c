package database

import (
	"context"
	"os"
	"testing"
	"time"

	"procurement_digest_bot/internal/domain/pipeline"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a real database when TEST_DATABASE_URL is set.
func TestPostgresRunRepository(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	db, err := NewPostgresConnection(ctx, dsn)
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresRunRepository(db)
	require.NoError(t, repo.EnsureSchema(ctx))
	require.NoError(t, repo.EnsureSchema(ctx), "schema creation must be repeatable")

	started := time.Now().UTC().Add(time.Hour).Truncate(time.Microsecond)
	run := &pipeline.Run{
		ID:          uuid.New(),
		Day:         time.Date(started.Year(), started.Month(), started.Day(), 0, 0, 0, 0, time.UTC),
		Outcome:     pipeline.OutcomeSent,
		NoticeCount: 3,
		ImageURL:    "https://img.example/1.png",
		Recipients:  []string{"a@example.com", "b@example.com"},
		StartedAt:   started,
		FinishedAt:  started.Add(20 * time.Second),
	}
	require.NoError(t, repo.SaveRun(ctx, run))
	t.Cleanup(func() { _, _ = db.Exec(`DELETE FROM digest_runs WHERE id = $1`, run.ID.String()) })

	latest, err := repo.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, run.ID, latest.ID)
	assert.Equal(t, pipeline.OutcomeSent, latest.Outcome)
	assert.Equal(t, 3, latest.NoticeCount)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, latest.Recipients)
	assert.True(t, run.StartedAt.Equal(latest.StartedAt))

	run.Outcome = pipeline.OutcomeFailed
	run.Detail = "image host rejected the upload"
	require.NoError(t, repo.SaveRun(ctx, run))
	latest, err = repo.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, pipeline.OutcomeFailed, latest.Outcome)
	assert.Equal(t, "image host rejected the upload", latest.Detail)
}
