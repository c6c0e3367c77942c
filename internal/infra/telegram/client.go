// internal/infra/telegram/client.go
package telegram

import (
	domaintelegram "procurement_digest_bot/internal/domain/telegram"

	"gopkg.in/telebot.v3"
)

// TelebotAdapter implements the Client interface using the gopkg.in/telebot.v3 library.
type TelebotAdapter struct {
	bot *telebot.Bot
}

var _ domaintelegram.Client = (*TelebotAdapter)(nil)

func NewTelebotAdapter(b *telebot.Bot) *TelebotAdapter {
	return &TelebotAdapter{bot: b}
}

// SendText sends a plain text message to the given chat.
func (tba *TelebotAdapter) SendText(chatID int64, text string, silent bool) error {
	options := &telebot.SendOptions{
		DisableNotification:   silent,
		DisableWebPagePreview: true,
	}
	recipient := &telebot.User{ID: chatID} // The operator talks to the bot in a private chat
	_, err := tba.bot.Send(recipient, text, options)
	return err
}
