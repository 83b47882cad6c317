// Package operator implements the operator bounded context: the Telegram
// conversation, watch session lifecycle and the daily balance sheet.
package operator

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	exchangeDI "github.com/fd1az/depositwatch/business/exchange/di"
	"github.com/fd1az/depositwatch/business/operator/app"
	operatorDI "github.com/fd1az/depositwatch/business/operator/di"
	"github.com/fd1az/depositwatch/business/operator/domain"
	"github.com/fd1az/depositwatch/business/operator/infra/sessionfile"
	"github.com/fd1az/depositwatch/business/operator/infra/telegram"
	watchDI "github.com/fd1az/depositwatch/business/watch/di"
	"github.com/fd1az/depositwatch/internal/config"
	"github.com/fd1az/depositwatch/internal/di"
	"github.com/fd1az/depositwatch/internal/i18n"
	"github.com/fd1az/depositwatch/internal/logger"
	"github.com/fd1az/depositwatch/internal/monolith"
)

// Module implements the operator bounded context.
type Module struct{}

// RegisterServices registers all operator services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Notifier - private dependency
	di.RegisterToken(c, operatorDI.Notifier, func(sr di.ServiceRegistry) app.Notifier {
		bot := sr.Get("bot").(*tgbotapi.BotAPI)
		return telegram.NewNotifier(bot)
	})

	// SessionStore - private dependency
	di.RegisterToken(c, operatorDI.SessionStore, func(sr di.ServiceRegistry) app.SessionStore {
		cfg := sr.Get("config").(*config.Config)
		return sessionfile.NewStore(cfg.Telegram.SessionFile)
	})

	// Orchestrator (public - the conversation brain)
	di.RegisterToken(c, operatorDI.Orchestrator, func(sr di.ServiceRegistry) *app.Orchestrator {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		translator := sr.Get("translator").(*i18n.Translator)

		location, err := time.LoadLocation(cfg.Watch.Timezone)
		if err != nil {
			location = time.UTC
		}

		return app.NewOrchestrator(
			domain.NewSession(cfg.Watch.RateDecimal()),
			domain.NewLedger(),
			exchangeDI.GetGatewayRegistry(sr),
			watchDI.GetReconcilerFactory(sr),
			operatorDI.GetNotifier(sr),
			operatorDI.GetSessionStore(sr),
			translator,
			cfg.Telegram.AssetsDir,
			location,
			log,
		)
	})

	// Bot update pump (public - started by main)
	di.RegisterToken(c, operatorDI.Bot, func(sr di.ServiceRegistry) *telegram.Bot {
		bot := sr.Get("bot").(*tgbotapi.BotAPI)
		log := sr.Get("logger").(logger.LoggerInterface)
		return telegram.NewBot(bot, operatorDI.GetOrchestrator(sr), log)
	})

	return nil
}

// Startup launches the Telegram update loop.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	bot := operatorDI.GetBot(mono.Services())
	go bot.Run(ctx)

	log.Info(ctx, "operator module started")
	return nil
}
