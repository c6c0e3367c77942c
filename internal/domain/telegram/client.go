// internal/domain/telegram/client.go
package telegram

// Client posts plain operator messages to a Telegram chat.
// Silent messages are delivered without a notification sound.
type Client interface {
	SendText(chatID int64, text string, silent bool) error
}
