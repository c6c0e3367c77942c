// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"procurement_digest_bot/internal/domain/pipeline"
	idb "procurement_digest_bot/internal/infra/database" // For ErrRunNotFound

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// ScheduleReporter is the read side of the daily scheduler.
type ScheduleReporter interface {
	Running() bool
	RefreshAt() pipeline.TriggerTime
	SendAt() pipeline.TriggerTime
	Location() *time.Location
	LastResult() *pipeline.Result
}

// RegisterBotCommands wires /start, /help and /status. Only the admin gets answers.
// runRepo may be nil when run history is disabled.
func RegisterBotCommands(
	ctx context.Context,
	b *telebot.Bot,
	adminTelegramID int64,
	schedule ScheduleReporter,
	runRepo pipeline.RunRepository,
	baseLogger *logrus.Entry, // For contextual logging
) {
	cmdLogger := baseLogger.WithField("handler_group", "operator")

	adminOnly := func(command string, handle func(c telebot.Context, logCtx *logrus.Entry) error) telebot.HandlerFunc {
		return func(c telebot.Context) error {
			logCtx := cmdLogger.WithFields(logrus.Fields{
				"command":   command,
				"sender_id": c.Sender().ID,
			})
			if c.Sender().ID != adminTelegramID {
				logCtx.Warn("Unauthorized access attempt")
				return c.Send("This bot only talks to its operator.")
			}
			logCtx.Info("Command received")
			return handle(c, logCtx)
		}
	}

	b.Handle("/start", adminOnly("/start", func(c telebot.Context, _ *logrus.Entry) error {
		return c.Send(fmt.Sprintf("Hello, %s! Digest alerts will arrive here. Use /help for the command list.", c.Sender().FirstName))
	}))

	b.Handle("/help", adminOnly("/help", func(c telebot.Context, _ *logrus.Entry) error {
		var helpText strings.Builder
		helpText.WriteString("Available commands:\n\n")
		helpText.WriteString("/status - Show the schedule and the last digest run.\n")
		helpText.WriteString("/help - Show this message.")
		return c.Send(helpText.String())
	}))

	b.Handle("/status", adminOnly("/status", func(c telebot.Context, logCtx *logrus.Entry) error {
		var latest *pipeline.Run
		if runRepo != nil {
			run, err := runRepo.LatestRun(ctx)
			switch {
			case err == nil:
				latest = run
			case errors.Is(err, idb.ErrRunNotFound):
			default:
				logCtx.WithError(err).Error("Error loading latest digest run")
			}
		}
		return c.Send(formatStatus(schedule, latest))
	}))
}

// formatStatus prefers the stored run, falling back to the in-memory result of this process.
func formatStatus(schedule ScheduleReporter, latest *pipeline.Run) string {
	var sb strings.Builder
	state := "stopped"
	if schedule.Running() {
		state = "running"
	}
	fmt.Fprintf(&sb, "Scheduler: %s\n", state)
	fmt.Fprintf(&sb, "Refresh at %s, send at %s (%s)\n", schedule.RefreshAt(), schedule.SendAt(), schedule.Location())

	switch {
	case latest != nil:
		fmt.Fprintf(&sb, "Last run: %s on %s, %d notice(s)", latest.Outcome, latest.Day.Format("2006-01-02"), latest.NoticeCount)
		if latest.Detail != "" {
			fmt.Fprintf(&sb, "\nDetail: %s", latest.Detail)
		}
	case schedule.LastResult() != nil:
		result := schedule.LastResult()
		fmt.Fprintf(&sb, "Last run: %s", result.Outcome)
		if result.Detail != "" {
			fmt.Fprintf(&sb, "\nDetail: %s", result.Detail)
		}
	default:
		sb.WriteString("No digest has run yet.")
	}
	return sb.String()
}
