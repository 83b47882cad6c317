package domain

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	exchange "github.com/fd1az/depositwatch/business/exchange/domain"
	"github.com/fd1az/depositwatch/internal/apperror"
)

func newTestSession() *Session {
	return NewSession(decimal.RequireFromString("25700"))
}

func TestSession_StateMachine(t *testing.T) {
	s := newTestSession()

	if s.State() != StateIdle {
		t.Fatalf("initial state = %s, want idle", s.State())
	}

	if err := s.SelectExchange(exchange.Binance); err != nil {
		t.Fatalf("SelectExchange: %v", err)
	}
	if s.State() != StateExchangeSelected {
		t.Errorf("state = %s, want exchange_selected", s.State())
	}

	ex, token, err := s.BeginWatch()
	if err != nil {
		t.Fatalf("BeginWatch: %v", err)
	}
	if ex != exchange.Binance {
		t.Errorf("watch exchange = %s, want binance", ex)
	}
	if !s.WatchActive(token) {
		t.Error("WatchActive(token) = false for the running watch")
	}
	if s.State() != StateFrozen {
		t.Errorf("state = %s, want frozen", s.State())
	}
	if !s.Active() {
		t.Error("Active() = false while frozen")
	}

	s.Clear()
	if s.State() != StateIdle {
		t.Errorf("state after Clear = %s, want idle", s.State())
	}
	if _, ok := s.Exchange(); ok {
		t.Error("exchange should be dropped after Clear")
	}
}

func TestSession_BeginWatchRequiresExchange(t *testing.T) {
	s := newTestSession()

	_, _, err := s.BeginWatch()
	if apperror.GetCode(err) != apperror.CodeNoExchangeSelected {
		t.Errorf("error code = %s, want %s", apperror.GetCode(err), apperror.CodeNoExchangeSelected)
	}
}

func TestSession_ReentrancyGuard(t *testing.T) {
	s := newTestSession()
	if err := s.SelectExchange(exchange.Gate); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.BeginWatch(); err != nil {
		t.Fatal(err)
	}

	// Second watch while frozen must be rejected.
	if _, _, err := s.BeginWatch(); apperror.GetCode(err) != apperror.CodeSessionFrozen {
		t.Errorf("second BeginWatch code = %s, want %s", apperror.GetCode(err), apperror.CodeSessionFrozen)
	}

	// Exchange switches while frozen too.
	if err := s.SelectExchange(exchange.Bybit); apperror.GetCode(err) != apperror.CodeSessionFrozen {
		t.Errorf("SelectExchange while frozen code = %s, want %s", apperror.GetCode(err), apperror.CodeSessionFrozen)
	}
}

func TestSession_ConcurrentBeginWatchAdmitsOne(t *testing.T) {
	s := newTestSession()
	if err := s.SelectExchange(exchange.Binance); err != nil {
		t.Fatal(err)
	}

	const goroutines = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := s.BeginWatch(); err == nil {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if admitted != 1 {
		t.Errorf("admitted = %d watches, want exactly 1", admitted)
	}
}

func TestSession_StaleWatchTokenIsInert(t *testing.T) {
	s := newTestSession()
	if err := s.SelectExchange(exchange.Binance); err != nil {
		t.Fatal(err)
	}
	_, stale, err := s.BeginWatch()
	if err != nil {
		t.Fatal(err)
	}

	// Operator cancels and picks a new exchange before the old watch
	// goroutine observes the cancellation.
	s.Clear()
	if err := s.SelectExchange(exchange.Bybit); err != nil {
		t.Fatal(err)
	}

	if s.WatchActive(stale) {
		t.Error("stale token still reports active")
	}
	if s.EndWatch(stale) {
		t.Error("stale EndWatch cleared state it does not own")
	}
	if s.State() != StateExchangeSelected {
		t.Errorf("state = %s, want exchange_selected", s.State())
	}
	if ex, _ := s.Exchange(); ex != exchange.Bybit {
		t.Errorf("exchange = %s, want bybit", ex)
	}

	// A fresh watch gets its own token; the stale one cannot unfreeze it.
	_, current, err := s.BeginWatch()
	if err != nil {
		t.Fatal(err)
	}
	if s.EndWatch(stale) {
		t.Error("stale EndWatch unfroze the new watch")
	}
	if s.State() != StateFrozen {
		t.Errorf("state = %s, want frozen", s.State())
	}
	if !s.WatchActive(current) {
		t.Error("current token should be active")
	}
	if !s.EndWatch(current) {
		t.Error("current EndWatch should clear the session")
	}
	if s.State() != StateIdle {
		t.Errorf("state = %s, want idle", s.State())
	}
}

func TestSession_SetRate(t *testing.T) {
	s := newTestSession()

	if err := s.SetRate(decimal.RequireFromString("26000")); err != nil {
		t.Fatalf("SetRate: %v", err)
	}
	if !s.Rate().Equal(decimal.RequireFromString("26000")) {
		t.Errorf("rate = %s, want 26000", s.Rate())
	}

	if err := s.SetRate(decimal.Zero); apperror.GetCode(err) != apperror.CodeInvalidRate {
		t.Errorf("zero rate code = %s, want %s", apperror.GetCode(err), apperror.CodeInvalidRate)
	}
	if err := s.SetRate(decimal.RequireFromString("-5")); apperror.GetCode(err) != apperror.CodeInvalidRate {
		t.Errorf("negative rate not rejected")
	}
}

func TestSession_SetRateRejectedWhileFrozen(t *testing.T) {
	s := newTestSession()
	if err := s.SelectExchange(exchange.Binance); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.BeginWatch(); err != nil {
		t.Fatal(err)
	}

	err := s.SetRate(decimal.RequireFromString("26000"))
	if apperror.GetCode(err) != apperror.CodeSessionFrozen {
		t.Errorf("code = %s, want %s", apperror.GetCode(err), apperror.CodeSessionFrozen)
	}
	if !s.Rate().Equal(decimal.RequireFromString("25700")) {
		t.Errorf("rate changed while frozen: %s", s.Rate())
	}
}

func TestSession_Convert(t *testing.T) {
	tests := []struct {
		name string
		rate string
		fiat string
		want string
	}{
		{"exact_division", "25700", "2570000", "100"},
		{"rounds_up", "3", "100", "33.34"},
		{"small_amount", "25700", "25700", "1"},
		{"rounds_up_tiny_remainder", "25700", "2570001", "100.01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession(decimal.RequireFromString(tt.rate))
			got, err := s.Convert(decimal.RequireFromString(tt.fiat))
			if err != nil {
				t.Fatalf("Convert: %v", err)
			}
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("Convert(%s / %s) = %s, want %s", tt.fiat, tt.rate, got, tt.want)
			}
		})
	}
}

func TestSession_ConvertRejectsNonPositive(t *testing.T) {
	s := newTestSession()

	if _, err := s.Convert(decimal.Zero); apperror.GetCode(err) != apperror.CodeInvalidAmount {
		t.Error("zero fiat not rejected")
	}
	if _, err := s.Convert(decimal.RequireFromString("-100")); apperror.GetCode(err) != apperror.CodeInvalidAmount {
		t.Error("negative fiat not rejected")
	}
}

func TestCeilToCents(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"33.333333333333", "33.34"},
		{"33.34", "33.34"},
		{"100", "100"},
		{"0.001", "0.01"},
		{"99.999", "100"},
	}

	for _, tt := range tests {
		got := CeilToCents(decimal.RequireFromString(tt.in))
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("CeilToCents(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
