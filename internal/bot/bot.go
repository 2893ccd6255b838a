// Package bot connects the intake engine to Telegram.
package bot

import (
	"context"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/intake"
)

const defaultWorkers = 8

// API is the part of the Telegram client the bot uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	GetFileDirectURL(fileID string) (string, error)
}

// Handler processes one intake turn.
type Handler interface {
	Handle(ctx context.Context, in intake.Input) ([]intake.Reply, error)
}

// Bot polls Telegram and routes updates to the intake engine. Updates for
// one chat are always handled by the same worker, so their order is kept.
type Bot struct {
	api     API
	handler Handler
	logger  *zap.Logger
	workers int
}

func New(api API, handler Handler, logger *zap.Logger) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bot{api: api, handler: handler, logger: logger.Named("telegram"), workers: defaultWorkers}
}

// Run long-polls until ctx is cancelled, then waits for in-flight turns.
func (b *Bot) Run(ctx context.Context, pollTimeoutSeconds int) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = pollTimeoutSeconds
	updates := b.api.GetUpdatesChan(cfg)

	shards := make([]chan tgbotapi.Update, b.workers)
	var wg sync.WaitGroup
	for i := range shards {
		shards[i] = make(chan tgbotapi.Update, 16)
		wg.Add(1)
		go func(in <-chan tgbotapi.Update) {
			defer wg.Done()
			for update := range in {
				b.process(ctx, update)
			}
		}(shards[i])
	}

	b.logger.Info("polling for updates", zap.Int("workers", b.workers))
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case update, ok := <-updates:
			if !ok {
				break loop
			}
			chatID := chatOf(update)
			shard := int(uint64(chatID) % uint64(len(shards)))
			shards[shard] <- update
		}
	}

	b.api.StopReceivingUpdates()
	for _, shard := range shards {
		close(shard)
	}
	wg.Wait()
	b.logger.Info("polling stopped")
}

func (b *Bot) process(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		if _, err := b.api.Request(tgbotapi.NewCallback(update.CallbackQuery.ID, "")); err != nil {
			b.logger.Debug("answer callback failed", zap.Error(err))
		}
	}
	in, ok := ToInput(update)
	if !ok {
		return
	}
	replies, err := b.handler.Handle(context.WithoutCancel(ctx), in)
	if err != nil {
		b.logger.Error("intake turn failed", zap.Int64("chat_id", in.ChatID), zap.Error(err))
		replies = []intake.Reply{{Text: "Something went wrong on our side. Please try again in a moment."}}
	}
	for _, reply := range replies {
		if _, err := b.api.Send(Render(in.ChatID, reply)); err != nil {
			b.logger.Warn("send reply failed", zap.Int64("chat_id", in.ChatID), zap.Error(err))
		}
	}
}

// ToInput converts a Telegram update into an intake turn. Updates without a
// chat, such as edits and channel posts, are ignored.
func ToInput(update tgbotapi.Update) (intake.Input, bool) {
	if cb := update.CallbackQuery; cb != nil {
		if cb.Message == nil || cb.Message.Chat == nil || cb.From == nil {
			return intake.Input{}, false
		}
		return intake.Input{
			ChatID:   cb.Message.Chat.ID,
			UserID:   strconv.FormatInt(cb.From.ID, 10),
			Callback: cb.Data,
		}, true
	}

	msg := update.Message
	if msg == nil || msg.Chat == nil || msg.From == nil {
		return intake.Input{}, false
	}
	in := intake.Input{
		ChatID: msg.Chat.ID,
		UserID: strconv.FormatInt(msg.From.ID, 10),
		Text:   msg.Text,
	}
	switch {
	case len(msg.Photo) > 0:
		largest := msg.Photo[0]
		for _, size := range msg.Photo[1:] {
			if size.Width*size.Height > largest.Width*largest.Height {
				largest = size
			}
		}
		in.Photo = &intake.Media{FileID: largest.FileID}
	case msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "image/"):
		in.Photo = &intake.Media{FileID: msg.Document.FileID, FileName: msg.Document.FileName}
	}
	return in, true
}

// Render builds the outgoing message with an inline keyboard when the
// reply offers choices.
func Render(chatID int64, reply intake.Reply) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, reply.Text)
	if len(reply.Buttons) == 0 {
		return msg
	}
	keyboard := make([][]tgbotapi.InlineKeyboardButton, 0, len(reply.Buttons))
	for _, row := range reply.Buttons {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, button := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(button.Label, button.Data))
		}
		keyboard = append(keyboard, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(keyboard...)
	return msg
}

func chatOf(update tgbotapi.Update) int64 {
	if chat := update.FromChat(); chat != nil {
		return chat.ID
	}
	return 0
}
