// Package app contains the polling reconciler for the watch context.
package app

import (
	"context"
	"time"

	exchange "github.com/fd1az/depositwatch/business/exchange/domain"
)

// DepositSource lists deposit records for an asset. The exchange context's
// gateways satisfy this.
type DepositSource interface {
	ListDeposits(ctx context.Context, asset string, since time.Time) ([]exchange.Deposit, error)
}

// Clock abstracts time so the polling loop is testable without sleeping.
type Clock interface {
	Now() time.Time
	// After behaves like time.After.
	After(d time.Duration) <-chan time.Time
}

// realClock is the production clock.
type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// NewRealClock returns a Clock backed by the time package.
func NewRealClock() Clock {
	return realClock{}
}
