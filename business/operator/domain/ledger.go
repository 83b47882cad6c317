package domain

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	exchange "github.com/fd1az/depositwatch/business/exchange/domain"
)

// Entry is one recorded deposit on the daily balance sheet.
type Entry struct {
	Exchange   exchange.ExchangeID
	Amount     decimal.Decimal
	RecordedAt time.Time
}

// balance accumulates entries for one exchange.
type balance struct {
	total   decimal.Decimal
	entries []Entry
}

// Ledger is the operator's daily balance sheet, grouped by exchange. An
// empty ledger is distinct from one whose entries sum to zero: Aggregate and
// TotalFor report whether anything was recorded at all.
type Ledger struct {
	mu       sync.Mutex
	balances map[exchange.ExchangeID]*balance
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		balances: make(map[exchange.ExchangeID]*balance),
	}
}

// Record adds a matched deposit amount for an exchange.
func (l *Ledger) Record(ex exchange.ExchangeID, amount decimal.Decimal, at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.balances[ex]
	if !ok {
		b = &balance{total: decimal.Zero}
		l.balances[ex] = b
	}

	b.total = b.total.Add(amount)
	b.entries = append(b.entries, Entry{
		Exchange:   ex,
		Amount:     amount,
		RecordedAt: at,
	})
}

// TotalFor returns the total and entries for one exchange. ok is false when
// nothing was ever recorded for it.
func (l *Ledger) TotalFor(ex exchange.ExchangeID) (decimal.Decimal, []Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.balances[ex]
	if !ok || len(b.entries) == 0 {
		return decimal.Zero, nil, false
	}

	entries := make([]Entry, len(b.entries))
	copy(entries, b.entries)
	return b.total, entries, true
}

// Aggregate returns the grand total and all entries across exchanges,
// ordered by exchange then recording order. ok is false for an empty ledger.
func (l *Ledger) Aggregate() (decimal.Decimal, []Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	total := decimal.Zero
	var entries []Entry

	for _, ex := range exchange.All() {
		b, ok := l.balances[ex]
		if !ok {
			continue
		}
		total = total.Add(b.total)
		entries = append(entries, b.entries...)
	}

	if len(entries) == 0 {
		return decimal.Zero, nil, false
	}
	return total, entries, true
}

// Reset clears the ledger.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances = make(map[exchange.ExchangeID]*balance)
}
