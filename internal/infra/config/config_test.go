package config

import (
	"testing"
	"time"

	"procurement_digest_bot/internal/domain/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setRequired sets the minimum environment for a valid configuration.
// t.Setenv restores the previous values, and godotenv never overrides them.
func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("NOTICE_API_URL", "https://notices.example/api/search")
	t.Setenv("MAP_PAGE_URL", "http://localhost:8080/map")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("MAIL_FROM", "digest@example.com")
	t.Setenv("DIGEST_RECIPIENTS", "a@example.com, b@example.com,")
	for _, key := range []string{
		"NOTICE_API_TOKEN", "NOTICE_LOOKBACK_DAYS", "NOTICE_FILTERS", "MAP_SURFACE_ID",
		"RENDER_SYNC_TIMEOUT", "CHROME_HEADLESS", "SMTP_PORT", "DIGEST_TIMEZONE",
		"DIGEST_REFRESH_TIME", "DIGEST_SEND_TIME", "DIGEST_MAX_ROWS", "DATABASE_URL",
		"TELEGRAM_TOKEN", "ADMIN_TELEGRAM_ID", "LOG_LEVEL", "ENVIRONMENT", "LOG_FILE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.DigestRecipients)
	assert.Equal(t, 1, cfg.NoticeLookbackDays)
	assert.Empty(t, cfg.NoticeFilters)
	assert.Equal(t, "map", cfg.MapSurfaceID)
	assert.Equal(t, 15*time.Second, cfg.RenderSyncTimeout)
	assert.True(t, cfg.ChromeHeadless)
	assert.Equal(t, 587, cfg.SMTPPort)
	assert.Equal(t, "Europe/Oslo", cfg.Timezone.String())
	assert.Equal(t, pipeline.TriggerTime{Hour: 8, Minute: 59}, cfg.RefreshAt)
	assert.Equal(t, pipeline.TriggerTime{Hour: 9, Minute: 0}, cfg.SendAt)
	assert.Equal(t, 0, cfg.MaxRowsPerMessage)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "development", cfg.Environment)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("NOTICE_FILTERS", "cpv=45000000, region = oslo")
	t.Setenv("DIGEST_TIMEZONE", "America/New_York")
	t.Setenv("DIGEST_REFRESH_TIME", "23:59")
	t.Setenv("RENDER_SYNC_TIMEOUT", "30s")
	t.Setenv("DIGEST_MAX_ROWS", "50")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"cpv": "45000000", "region": "oslo"}, cfg.NoticeFilters)
	assert.Equal(t, "America/New_York", cfg.Timezone.String())
	assert.Equal(t, pipeline.TriggerTime{Hour: 0, Minute: 0}, cfg.SendAt, "send defaults to the minute after refresh")
	assert.Equal(t, 30*time.Second, cfg.RenderSyncTimeout)
	assert.Equal(t, 50, cfg.MaxRowsPerMessage)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name   string
		env    map[string]string
		substr string
	}{
		{"missing notice api", map[string]string{"NOTICE_API_URL": ""}, "NoticeAPIURL"},
		{"no recipients", map[string]string{"DIGEST_RECIPIENTS": " , "}, "DigestRecipients"},
		{"bad recipient", map[string]string{"DIGEST_RECIPIENTS": "not-an-address"}, "DigestRecipients"},
		{"bad timezone", map[string]string{"DIGEST_TIMEZONE": "Mars/Olympus"}, "DIGEST_TIMEZONE"},
		{"bad refresh time", map[string]string{"DIGEST_REFRESH_TIME": "25:00"}, "DIGEST_REFRESH_TIME"},
		{"send equals refresh", map[string]string{"DIGEST_REFRESH_TIME": "07:00", "DIGEST_SEND_TIME": "07:00"}, "must differ"},
		{"bad timeout", map[string]string{"RENDER_SYNC_TIMEOUT": "soon"}, "RENDER_SYNC_TIMEOUT"},
		{"bad filter", map[string]string{"NOTICE_FILTERS": "justakey"}, "NOTICE_FILTERS"},
		{"telegram without admin", map[string]string{"TELEGRAM_TOKEN": "123:abc"}, "ADMIN_TELEGRAM_ID"},
		{"bad admin id", map[string]string{"ADMIN_TELEGRAM_ID": "me"}, "ADMIN_TELEGRAM_ID"},
		{"negative max rows", map[string]string{"DIGEST_MAX_ROWS": "-1"}, "MaxRowsPerMessage"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.substr)
		})
	}
}

func TestParseList(t *testing.T) {
	assert.Nil(t, parseList(""))
	assert.Equal(t, []string{"a", "b"}, parseList(" a ,, b "))
}
