// Package telegram is the operator transport: long-polled updates in, chat
// messages and inline keyboards out.
package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/fd1az/depositwatch/business/operator/app"
	"github.com/fd1az/depositwatch/internal/apperror"
)

// Notifier sends messages through the bot API.
type Notifier struct {
	api *tgbotapi.BotAPI
}

// NewNotifier creates a notifier over an authorized bot.
func NewNotifier(api *tgbotapi.BotAPI) *Notifier {
	return &Notifier{api: api}
}

// Send implements app.Notifier.
func (n *Notifier) Send(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := n.api.Send(msg); err != nil {
		return apperror.New(apperror.CodeTelegramSendFailed, apperror.WithCause(err))
	}
	return nil
}

// SendPhoto implements app.Notifier for a local image file.
func (n *Notifier) SendPhoto(ctx context.Context, chatID int64, path string) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FilePath(path))
	if _, err := n.api.Send(photo); err != nil {
		return apperror.New(apperror.CodeTelegramSendFailed, apperror.WithCause(err))
	}
	return nil
}

// SendMenu implements app.Notifier with an inline keyboard.
func (n *Notifier) SendMenu(ctx context.Context, chatID int64, text string, menu app.Menu) error {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, row := range menu {
		if len(row) == 0 {
			continue
		}
		var buttons []tgbotapi.InlineKeyboardButton
		for _, item := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(item.Label, item.Action))
		}
		rows = append(rows, buttons)
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)

	if _, err := n.api.Send(msg); err != nil {
		return apperror.New(apperror.CodeTelegramSendFailed, apperror.WithCause(err))
	}
	return nil
}
