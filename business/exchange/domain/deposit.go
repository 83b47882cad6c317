// Package domain contains exchange context domain types.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ExchangeID identifies a supported exchange. The set is closed: adding an
// exchange means adding a gateway implementation, not just a new string.
type ExchangeID string

const (
	Binance ExchangeID = "binance"
	Bybit   ExchangeID = "bybit"
	Gate    ExchangeID = "gate"
)

// All returns every supported exchange in display order.
func All() []ExchangeID {
	return []ExchangeID{Binance, Bybit, Gate}
}

// ParseExchangeID validates a raw exchange name.
func ParseExchangeID(raw string) (ExchangeID, error) {
	id := ExchangeID(strings.ToLower(strings.TrimSpace(raw)))
	switch id {
	case Binance, Bybit, Gate:
		return id, nil
	}
	return "", fmt.Errorf("unknown exchange %q", raw)
}

// String returns the lowercase exchange name.
func (e ExchangeID) String() string {
	return string(e)
}

// DisplayName returns the capitalized exchange name for chat messages.
func (e ExchangeID) DisplayName() string {
	s := string(e)
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// DepositStatus is the normalized settlement state of a deposit record.
// Each gateway maps its vendor-specific states onto this set.
type DepositStatus string

const (
	StatusOK      DepositStatus = "ok"
	StatusPending DepositStatus = "pending"
	StatusFailed  DepositStatus = "failed"
)

// Deposit is a single normalized deposit record.
type Deposit struct {
	Exchange  ExchangeID
	ID        string
	Currency  string
	Amount    decimal.Decimal
	Status    DepositStatus
	Timestamp time.Time
}

// Settled reports whether the deposit has fully credited.
func (d Deposit) Settled() bool {
	return d.Status == StatusOK
}
