// Package domain contains watch context domain types.
package domain

import (
	"github.com/shopspring/decimal"

	exchange "github.com/fd1az/depositwatch/business/exchange/domain"
)

var (
	hundred = decimal.NewFromInt(100)
	two     = decimal.NewFromInt(2)
)

// Matcher decides whether a deposit record satisfies an expected amount.
// The tolerance percentage defines an asymmetric band around the expected
// value: with 98 the band is [expected*0.98, expected*1.02].
type Matcher struct {
	tolerancePct decimal.Decimal
}

// NewMatcher creates a matcher. tolerancePct must be in (0, 100].
func NewMatcher(tolerancePct decimal.Decimal) Matcher {
	return Matcher{tolerancePct: tolerancePct}
}

// Band returns the inclusive [lower, upper] bounds for an expected amount.
func (m Matcher) Band(expected decimal.Decimal) (lower, upper decimal.Decimal) {
	ratio := m.tolerancePct.Div(hundred)
	lower = expected.Mul(ratio)
	upper = expected.Mul(two.Sub(ratio))
	return lower, upper
}

// Matches reports whether a single deposit qualifies: it must be settled and
// its amount must fall inside the band.
func (m Matcher) Matches(d exchange.Deposit, expected decimal.Decimal) bool {
	if !d.Settled() {
		return false
	}
	lower, upper := m.Band(expected)
	return d.Amount.GreaterThanOrEqual(lower) && d.Amount.LessThanOrEqual(upper)
}

// FindMatch returns the first qualifying deposit in list order. It is
// deliberately not a closest-match search: the upstream APIs return records
// in their own order and the first hit wins.
func (m Matcher) FindMatch(deposits []exchange.Deposit, expected decimal.Decimal) (exchange.Deposit, bool) {
	for _, d := range deposits {
		if m.Matches(d, expected) {
			return d, true
		}
	}
	return exchange.Deposit{}, false
}
