package config

import (
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization and list parsing
	"time"
	_ "time/tzdata" // Fixed-zone scheduling must not depend on the host zoneinfo

	"procurement_digest_bot/internal/domain/pipeline"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	NoticeAPIURL       string `validate:"required,url"`
	NoticeAPIToken     string
	NoticeLookbackDays int `validate:"gte=0,lte=31"`
	NoticeFilters      map[string]string

	MapPageURL        string        `validate:"required,url"`
	MapSurfaceID      string        `validate:"required"`
	MapUpdateFunction string        `validate:"required"`
	MapRenderBinding  string        `validate:"required"`
	RenderSyncTimeout time.Duration `validate:"gt=0"`
	ChromeHeadless    bool

	ImageHostURL      string `validate:"required,url"`
	ImageHostClientID string

	SMTPHost         string `validate:"required"`
	SMTPPort         int    `validate:"gt=0,lte=65535"`
	SMTPUsername     string
	SMTPPassword     string
	MailFrom         string   `validate:"required,email"`
	DigestRecipients []string `validate:"required,min=1,dive,email"`

	Timezone          *time.Location `validate:"required"`
	RefreshAt         pipeline.TriggerTime
	SendAt            pipeline.TriggerTime
	MaxRowsPerMessage int `validate:"gte=0"`

	DatabaseURL     string // Optional, enables run history
	TelegramToken   string // Optional, enables operator alerts
	AdminTelegramID int64

	LogLevel    string
	Environment string
	LogFile     string
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.NoticeAPIURL = os.Getenv("NOTICE_API_URL")
	cfg.NoticeAPIToken = os.Getenv("NOTICE_API_TOKEN")
	if cfg.NoticeLookbackDays, err = intFromEnv("NOTICE_LOOKBACK_DAYS", 1); err != nil {
		return nil, err
	}
	if cfg.NoticeFilters, err = parseFilters(os.Getenv("NOTICE_FILTERS")); err != nil {
		return nil, err
	}

	cfg.MapPageURL = os.Getenv("MAP_PAGE_URL")
	cfg.MapSurfaceID = stringFromEnv("MAP_SURFACE_ID", "map")
	cfg.MapUpdateFunction = stringFromEnv("MAP_UPDATE_FUNCTION", "updateNotices")
	cfg.MapRenderBinding = stringFromEnv("MAP_RENDER_BINDING", "digestRendered")
	if cfg.RenderSyncTimeout, err = durationFromEnv("RENDER_SYNC_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.ChromeHeadless, err = boolFromEnv("CHROME_HEADLESS", true); err != nil {
		return nil, err
	}

	cfg.ImageHostURL = stringFromEnv("IMAGE_HOST_URL", "https://api.imgur.com/3/image")
	cfg.ImageHostClientID = os.Getenv("IMAGE_HOST_CLIENT_ID")

	cfg.SMTPHost = os.Getenv("SMTP_HOST")
	if cfg.SMTPPort, err = intFromEnv("SMTP_PORT", 587); err != nil {
		return nil, err
	}
	cfg.SMTPUsername = os.Getenv("SMTP_USERNAME")
	cfg.SMTPPassword = os.Getenv("SMTP_PASSWORD")
	cfg.MailFrom = os.Getenv("MAIL_FROM")
	cfg.DigestRecipients = parseList(os.Getenv("DIGEST_RECIPIENTS"))

	cfg.Timezone, err = time.LoadLocation(stringFromEnv("DIGEST_TIMEZONE", "Europe/Oslo"))
	if err != nil {
		return nil, fmt.Errorf("invalid DIGEST_TIMEZONE: %w", err)
	}
	cfg.RefreshAt, err = pipeline.ParseTriggerTime(stringFromEnv("DIGEST_REFRESH_TIME", "08:59"))
	if err != nil {
		return nil, fmt.Errorf("invalid DIGEST_REFRESH_TIME: %w", err)
	}
	cfg.SendAt = cfg.RefreshAt.Next() // Default: one minute after refresh
	if sendAt := os.Getenv("DIGEST_SEND_TIME"); sendAt != "" {
		cfg.SendAt, err = pipeline.ParseTriggerTime(sendAt)
		if err != nil {
			return nil, fmt.Errorf("invalid DIGEST_SEND_TIME: %w", err)
		}
	}
	if cfg.SendAt == cfg.RefreshAt {
		return nil, fmt.Errorf("DIGEST_SEND_TIME must differ from DIGEST_REFRESH_TIME (%s)", cfg.RefreshAt)
	}
	if cfg.MaxRowsPerMessage, err = intFromEnv("DIGEST_MAX_ROWS", 0); err != nil {
		return nil, err
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if adminIDStr := os.Getenv("ADMIN_TELEGRAM_ID"); adminIDStr != "" {
		cfg.AdminTelegramID, err = strconv.ParseInt(adminIDStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
		}
	}
	if cfg.TelegramToken != "" && cfg.AdminTelegramID == 0 {
		return nil, fmt.Errorf("ADMIN_TELEGRAM_ID is required when TELEGRAM_TOKEN is set")
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}
	cfg.LogFile = os.Getenv("LOG_FILE")

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func stringFromEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func intFromEnv(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

// parseList splits a comma separated value, dropping blanks.
func parseList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// parseFilters reads "key=value,key=value".
func parseFilters(value string) (map[string]string, error) {
	filters := make(map[string]string)
	for _, pair := range parseList(value) {
		key, val, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid NOTICE_FILTERS entry %q, expected key=value", pair)
		}
		filters[key] = strings.TrimSpace(val)
	}
	return filters, nil
}
