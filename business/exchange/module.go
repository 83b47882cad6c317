// Package exchange implements the exchange bounded context for deposit history access.
package exchange

import (
	"context"

	"github.com/fd1az/depositwatch/business/exchange/app"
	exchangeDI "github.com/fd1az/depositwatch/business/exchange/di"
	"github.com/fd1az/depositwatch/business/exchange/infra/binance"
	"github.com/fd1az/depositwatch/business/exchange/infra/bybit"
	"github.com/fd1az/depositwatch/business/exchange/infra/gate"
	"github.com/fd1az/depositwatch/internal/config"
	"github.com/fd1az/depositwatch/internal/di"
	"github.com/fd1az/depositwatch/internal/logger"
	"github.com/fd1az/depositwatch/internal/monolith"
)

// Module implements the exchange bounded context.
type Module struct{}

// RegisterServices registers all exchange services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register the gateway registry (public - exposed to other modules).
	// Only exchanges with credentials get a gateway.
	di.RegisterToken(c, exchangeDI.GatewayRegistry, func(sr di.ServiceRegistry) *app.Registry {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		var gateways []app.Gateway

		if cfg.Binance.Enabled() {
			gw, err := binance.NewClient(binance.Config{
				APIKey:    cfg.Binance.APIKey,
				APISecret: cfg.Binance.APISecret,
				BaseURL:   cfg.Binance.BaseURL,
				Timeout:   cfg.Binance.Timeout,
			}, log)
			if err != nil {
				panic("failed to create binance gateway: " + err.Error())
			}
			gateways = append(gateways, gw)
		}

		if cfg.Bybit.Enabled() {
			gw, err := bybit.NewClient(bybit.Config{
				APIKey:    cfg.Bybit.APIKey,
				APISecret: cfg.Bybit.APISecret,
				BaseURL:   cfg.Bybit.BaseURL,
				Timeout:   cfg.Bybit.Timeout,
				Testnet:   cfg.Bybit.Testnet,
			}, log)
			if err != nil {
				panic("failed to create bybit gateway: " + err.Error())
			}
			gateways = append(gateways, gw)
		}

		if cfg.Gate.Enabled() {
			gw, err := gate.NewClient(gate.Config{
				APIKey:    cfg.Gate.APIKey,
				APISecret: cfg.Gate.APISecret,
				BaseURL:   cfg.Gate.BaseURL,
				Timeout:   cfg.Gate.Timeout,
			}, log)
			if err != nil {
				panic("failed to create gate gateway: " + err.Error())
			}
			gateways = append(gateways, gw)
		}

		return app.NewRegistry(gateways...)
	})

	return nil
}

// Startup initializes the exchange module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	registry := exchangeDI.GetGatewayRegistry(mono.Services())
	for _, id := range registry.IDs() {
		log.Info(ctx, "exchange gateway configured", "exchange", id.String())
	}

	log.Info(ctx, "exchange module started", "gateways", registry.Len())
	return nil
}
