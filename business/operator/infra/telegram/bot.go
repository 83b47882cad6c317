package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/fd1az/depositwatch/business/operator/app"
	"github.com/fd1az/depositwatch/internal/logger"
)

const updateTimeoutSeconds = 30

// Bot pumps Telegram updates into the orchestrator.
type Bot struct {
	api    *tgbotapi.BotAPI
	orch   *app.Orchestrator
	logger logger.LoggerInterface
}

// NewBot creates the update pump.
func NewBot(api *tgbotapi.BotAPI, orch *app.Orchestrator, log logger.LoggerInterface) *Bot {
	return &Bot{
		api:    api,
		orch:   orch,
		logger: log,
	}
}

// Run long-polls updates until ctx is cancelled. Blocks; run in a goroutine.
func (b *Bot) Run(ctx context.Context) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = updateTimeoutSeconds

	updates := b.api.GetUpdatesChan(cfg)

	b.logger.Info(ctx, "telegram update loop started", "bot", b.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.logger.Info(ctx, "telegram update loop stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handle(ctx, update)
		}
	}
}

func (b *Bot) handle(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	// Acknowledge so the client stops showing the spinner.
	if _, err := b.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		b.logger.Debug(ctx, "callback ack failed", "error", err)
	}

	if cq.Message == nil {
		return
	}

	b.orch.HandleCallback(ctx, cq.Message.Chat.ID, cq.Data)
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			b.orch.HandleStart(ctx, chatID, b.api.Self.FirstName)
		case "menu":
			b.orch.SendMenu(ctx, chatID)
		case "set":
			b.orch.HandleSetCommand(ctx, chatID, msg.CommandArguments())
		case "get_balance":
			b.orch.HandleBalanceBreakdown(ctx, chatID)
		case "clear_balances":
			b.orch.HandleClearBalances(ctx, chatID)
		case "funding":
			b.orch.HandleFunding(ctx, chatID)
		default:
			b.logger.Debug(ctx, "unknown command", "command", msg.Command())
		}
		return
	}

	if msg.Text != "" {
		b.orch.HandleText(ctx, chatID, msg.Text)
	}
}
