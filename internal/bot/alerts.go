package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// AlertSender posts plain text notifications through the Bot API.
type AlertSender struct {
	api API
}

func NewAlertSender(api API) *AlertSender {
	return &AlertSender{api: api}
}

// SendText implements service.AlertSender.
func (s *AlertSender) SendText(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	_, err := s.api.Send(msg)
	return err
}
