package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"procurement_digest_bot/internal/app"
	"procurement_digest_bot/internal/domain/notice"
	"procurement_digest_bot/internal/domain/pipeline"
	"procurement_digest_bot/internal/infra/browser"
	"procurement_digest_bot/internal/infra/config"
	idb "procurement_digest_bot/internal/infra/database"
	"procurement_digest_bot/internal/infra/imagehost"
	"procurement_digest_bot/internal/infra/logger"
	"procurement_digest_bot/internal/infra/noticeapi"
	"procurement_digest_bot/internal/infra/scheduler"
	"procurement_digest_bot/internal/infra/smtpmail"
	"procurement_digest_bot/internal/infra/telegram"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/telebot.v3"
)

var (
	previewDate string
	previewOut  string
)

var rootCmd = &cobra.Command{
	Use:   "digest",
	Short: "Daily procurement notice digest",
	Long:  `Fetches procurement notices, snapshots the notice map and emails a daily digest at fixed times.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runDaemon()
	},
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the daily scheduler until interrupted",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runDaemon()
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Fetch notices and write the digest HTML without sending it",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runPreview(cmd.Context())
	},
}

func init() {
	previewCmd.Flags().StringVar(&previewDate, "date", "", "Day to preview (YYYY-MM-DD), defaults to today in DIGEST_TIMEZONE")
	previewCmd.Flags().StringVarP(&previewOut, "out", "o", "", "Write the HTML to this file instead of stdout")
	rootCmd.AddCommand(runCmd, previewCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.AppConfig, *logrus.Entry, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("could not load application configuration: %w", err)
	}
	logger.Init(cfg)
	return cfg, logrus.NewEntry(logger.Get()), nil
}

func digestOptions(cfg *config.AppConfig) app.DigestOptions {
	return app.DigestOptions{
		SurfaceID:         cfg.MapSurfaceID,
		Recipients:        cfg.DigestRecipients,
		RenderSyncTimeout: cfg.RenderSyncTimeout,
		LookbackDays:      cfg.NoticeLookbackDays,
		Filters:           cfg.NoticeFilters,
		MaxRowsPerMessage: cfg.MaxRowsPerMessage,
	}
}

func runDaemon() error {
	cfg, baseLogger, err := loadConfig()
	if err != nil {
		return err
	}
	mainLogger := baseLogger.WithField("component", "main")
	mainLogger.WithFields(logrus.Fields{
		"environment": cfg.Environment,
		"timezone":    cfg.Timezone.String(),
		"recipients":  len(cfg.DigestRecipients),
	}).Info("Procurement digest starting...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bus := app.NewStatusBus(0)
	sinks := []app.StatusSink{logger.NewStatusLogSink(baseLogger)}

	// Map surface
	barrier := app.NewRenderSyncBarrier()
	surface := browser.NewMapSurface(browser.Options{
		PageURL:        cfg.MapPageURL,
		UpdateFunction: cfg.MapUpdateFunction,
		RenderBinding:  cfg.MapRenderBinding,
		Headless:       cfg.ChromeHeadless,
	}, baseLogger.WithField("component", "map"))
	surface.OnRendered(func(payload string) {
		if !barrier.Signal(payload) {
			mainLogger.Debug("Map redraw reported with nobody waiting")
		}
	})
	if err := surface.Open(ctx); err != nil {
		return fmt.Errorf("could not open map page: %w", err)
	}
	defer surface.Close()

	// Digest pipeline
	uploader := app.NewSnapshotUploader(surface, imagehost.NewClient(cfg.ImageHostURL, cfg.ImageHostClientID))
	dispatcher := app.NewDispatcher(smtpmail.NewTransport(smtpmail.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
	}))
	digestService := app.NewDigestServiceImpl(
		noticeapi.NewClient(cfg.NoticeAPIURL, cfg.NoticeAPIToken),
		barrier,
		uploader,
		app.NewReportComposer(),
		dispatcher,
		bus,
		baseLogger.WithField("component", "digest"),
		digestOptions(cfg),
	)
	digestService.AddObserver(surface)

	// Optional run history
	var runRepo pipeline.RunRepository
	if cfg.DatabaseURL != "" {
		db, err := idb.NewPostgresConnection(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("could not connect to database: %w", err)
		}
		defer db.Close()
		repo := idb.NewPostgresRunRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			return err
		}
		runRepo = repo
		digestService.WithRunRepository(repo)
		mainLogger.Info("Run history enabled")
	}

	dailyScheduler := scheduler.NewDailyScheduler(
		digestService,
		bus,
		baseLogger.WithField("component", "scheduler"),
		cfg.Timezone,
		cfg.RefreshAt,
		cfg.SendAt,
	)

	// Optional operator bot
	if cfg.TelegramToken != "" {
		botLogger := baseLogger.WithField("component", "telegram")
		bot, err := telebot.NewBot(telebot.Settings{
			Token:  cfg.TelegramToken,
			Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
			OnError: func(err error, c telebot.Context) { // Global error handler
				entry := botLogger.WithError(err)
				if c != nil && c.Sender() != nil {
					entry = entry.WithField("sender_id", c.Sender().ID)
				}
				entry.Error("Telegram handler error")
			},
		})
		if err != nil {
			return fmt.Errorf("could not create Telegram bot: %w", err)
		}
		telegram.RegisterBotCommands(ctx, bot, cfg.AdminTelegramID, dailyScheduler, runRepo, botLogger)
		sinks = append(sinks, telegram.NewStatusNotifier(telegram.NewTelebotAdapter(bot), cfg.AdminTelegramID, botLogger))

		go bot.Start()
		defer bot.Stop()
		mainLogger.Info("Operator bot started")
	}

	consumed := make(chan struct{})
	go func() {
		defer close(consumed)
		bus.Consume(context.Background(), sinks...) // drains until bus.Close
	}()

	if err := dailyScheduler.Start(); err != nil {
		bus.Close()
		<-consumed
		return err
	}
	bus.Info(fmt.Sprintf("Digest scheduled: refresh at %s, send at %s (%s)", cfg.RefreshAt, cfg.SendAt, cfg.Timezone))

	<-ctx.Done()
	mainLogger.Info("Shutting down application...")
	dailyScheduler.Stop() // lets an in-flight run finish

	bus.Close()
	<-consumed
	if dropped := bus.Dropped(); dropped > 0 {
		mainLogger.WithField("dropped", dropped).Warn("Status events were dropped")
	}
	mainLogger.Info("Application shut down gracefully.")
	return nil
}

func runPreview(ctx context.Context) error {
	cfg, baseLogger, err := loadConfig()
	if err != nil {
		return err
	}

	day := time.Now().In(cfg.Timezone)
	if previewDate != "" {
		day, err = time.ParseInLocation(notice.DateLayout, previewDate, cfg.Timezone)
		if err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}
	}

	bus := app.NewStatusBus(0)
	defer bus.Close()
	// Preview never captures or dispatches.
	digestService := app.NewDigestServiceImpl(
		noticeapi.NewClient(cfg.NoticeAPIURL, cfg.NoticeAPIToken),
		app.NewRenderSyncBarrier(),
		nil,
		app.NewReportComposer(),
		nil,
		bus,
		baseLogger.WithField("component", "preview"),
		digestOptions(cfg),
	)

	report, err := digestService.Preview(ctx, day)
	if err != nil {
		return err
	}

	if previewOut == "" {
		fmt.Println(report.HTML)
		return nil
	}
	if err := os.WriteFile(previewOut, []byte(report.HTML), 0o644); err != nil {
		return fmt.Errorf("could not write preview: %w", err)
	}
	baseLogger.WithFields(logrus.Fields{
		"file":    previewOut,
		"subject": report.Subject,
	}).Info("Digest preview written")
	return nil
}
