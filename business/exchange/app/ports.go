// Package app contains application services and port definitions for the exchange context.
package app

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/depositwatch/business/exchange/domain"
)

// Gateway is the deposit-history port a single exchange implements.
type Gateway interface {
	// ID returns the exchange this gateway talks to.
	ID() domain.ExchangeID

	// ListDeposits returns deposit records for asset created at or after
	// since, newest data the exchange will give us. Records of any status
	// are returned; callers filter.
	ListDeposits(ctx context.Context, asset string, since time.Time) ([]domain.Deposit, error)
}

// BalanceProvider is an optional gateway capability for reading the funding
// wallet balance. Gateways that cannot serve it return CodeBalanceUnsupported.
type BalanceProvider interface {
	FundingBalance(ctx context.Context, asset string) (decimal.Decimal, error)
}
