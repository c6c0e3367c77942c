package telegram

import (
	"context"
	"fmt"

	"procurement_digest_bot/internal/domain/status"
	domaintelegram "procurement_digest_bot/internal/domain/telegram"

	"github.com/sirupsen/logrus"
)

// StatusNotifier forwards warning, error and success events to the operator chat.
// Info events only go to the log.
type StatusNotifier struct {
	client  domaintelegram.Client
	adminID int64
	logger  *logrus.Entry
}

func NewStatusNotifier(client domaintelegram.Client, adminID int64, logger *logrus.Entry) *StatusNotifier {
	return &StatusNotifier{client: client, adminID: adminID, logger: logger}
}

func (n *StatusNotifier) HandleStatus(_ context.Context, ev status.Event) {
	var text string
	silent := false
	switch ev.Kind {
	case status.KindError:
		text = fmt.Sprintf("❌ %s", ev.Message)
	case status.KindWarning:
		text = fmt.Sprintf("⚠️ %s", ev.Message)
	case status.KindSuccess:
		text = fmt.Sprintf("✅ %s", ev.Message)
		silent = true
	default:
		return
	}

	if err := n.client.SendText(n.adminID, text, silent); err != nil {
		n.logger.WithError(err).WithFields(logrus.Fields{
			"admin_id": n.adminID,
			"kind":     ev.Kind,
		}).Error("Failed to forward status event to Telegram")
	}
}
