package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	exchange "github.com/fd1az/depositwatch/business/exchange/domain"
)

func TestLedger_EmptyIsDistinctFromZero(t *testing.T) {
	l := NewLedger()

	if _, _, ok := l.Aggregate(); ok {
		t.Error("empty ledger should report ok=false")
	}

	// A recorded zero amount is still a recorded entry.
	l.Record(exchange.Binance, decimal.Zero, time.Now())

	total, entries, ok := l.Aggregate()
	if !ok {
		t.Fatal("ledger with a zero entry should report ok=true")
	}
	if !total.IsZero() {
		t.Errorf("total = %s, want 0", total)
	}
	if len(entries) != 1 {
		t.Errorf("entries = %d, want 1", len(entries))
	}
}

func TestLedger_RecordAndTotals(t *testing.T) {
	l := NewLedger()
	now := time.Now()

	l.Record(exchange.Binance, decimal.RequireFromString("100.5"), now)
	l.Record(exchange.Binance, decimal.RequireFromString("49.5"), now)
	l.Record(exchange.Gate, decimal.RequireFromString("200"), now)

	total, entries, ok := l.TotalFor(exchange.Binance)
	if !ok {
		t.Fatal("binance total missing")
	}
	if !total.Equal(decimal.RequireFromString("150")) {
		t.Errorf("binance total = %s, want 150", total)
	}
	if len(entries) != 2 {
		t.Errorf("binance entries = %d, want 2", len(entries))
	}

	if _, _, ok := l.TotalFor(exchange.Bybit); ok {
		t.Error("bybit should have no recorded balance")
	}

	grand, all, ok := l.Aggregate()
	if !ok {
		t.Fatal("aggregate missing")
	}
	if !grand.Equal(decimal.RequireFromString("350")) {
		t.Errorf("grand total = %s, want 350", grand)
	}
	if len(all) != 3 {
		t.Errorf("aggregate entries = %d, want 3", len(all))
	}
}

func TestLedger_AggregateOrdersByExchange(t *testing.T) {
	l := NewLedger()
	now := time.Now()

	l.Record(exchange.Gate, decimal.RequireFromString("3"), now)
	l.Record(exchange.Binance, decimal.RequireFromString("1"), now)
	l.Record(exchange.Bybit, decimal.RequireFromString("2"), now)

	_, entries, ok := l.Aggregate()
	if !ok {
		t.Fatal("aggregate missing")
	}

	want := []exchange.ExchangeID{exchange.Binance, exchange.Bybit, exchange.Gate}
	for i, ex := range want {
		if entries[i].Exchange != ex {
			t.Errorf("entries[%d].Exchange = %s, want %s", i, entries[i].Exchange, ex)
		}
	}
}

func TestLedger_Reset(t *testing.T) {
	l := NewLedger()
	l.Record(exchange.Binance, decimal.RequireFromString("10"), time.Now())

	l.Reset()

	if _, _, ok := l.Aggregate(); ok {
		t.Error("ledger should be empty after Reset")
	}
	if _, _, ok := l.TotalFor(exchange.Binance); ok {
		t.Error("per-exchange balance should be gone after Reset")
	}
}

func TestLedger_TotalForCopiesEntries(t *testing.T) {
	l := NewLedger()
	l.Record(exchange.Binance, decimal.RequireFromString("10"), time.Now())

	_, entries, _ := l.TotalFor(exchange.Binance)
	entries[0].Amount = decimal.RequireFromString("999")

	total, _, _ := l.TotalFor(exchange.Binance)
	if !total.Equal(decimal.RequireFromString("10")) {
		t.Errorf("ledger mutated through returned slice: total = %s", total)
	}
}
