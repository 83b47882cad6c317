// Package watch implements the watch bounded context: matching deposits
// against an expectation and polling until one arrives.
package watch

import (
	"context"

	"github.com/fd1az/depositwatch/business/watch/app"
	watchDI "github.com/fd1az/depositwatch/business/watch/di"
	"github.com/fd1az/depositwatch/business/watch/domain"
	"github.com/fd1az/depositwatch/internal/config"
	"github.com/fd1az/depositwatch/internal/di"
	"github.com/fd1az/depositwatch/internal/logger"
	"github.com/fd1az/depositwatch/internal/monolith"
)

// Module implements the watch bounded context.
type Module struct{}

// RegisterServices registers all watch services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, watchDI.ReconcilerFactory, func(sr di.ServiceRegistry) *app.ReconcilerFactory {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		matcher := domain.NewMatcher(cfg.Watch.TolerancePctDecimal())

		return app.NewReconcilerFactory(matcher, app.NewRealClock(), app.ReconcilerConfig{
			Asset:        cfg.Watch.Asset,
			MaxDuration:  cfg.Watch.MaxDuration,
			PollInterval: cfg.Watch.PollInterval,
			Lookback:     cfg.Watch.Lookback,
		}, log)
	})

	return nil
}

// Startup initializes the watch module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	cfg := mono.Config()

	log.Info(ctx, "watch module started",
		"asset", cfg.Watch.Asset,
		"max_duration", cfg.Watch.MaxDuration.String(),
		"poll_interval", cfg.Watch.PollInterval.String(),
	)
	return nil
}
