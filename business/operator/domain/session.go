// Package domain contains the operator's session state machine and ledger.
package domain

import (
	"sync"

	"github.com/shopspring/decimal"

	exchange "github.com/fd1az/depositwatch/business/exchange/domain"
	"github.com/fd1az/depositwatch/internal/apperror"
)

// State is the operator session state. The machine is
// Idle -> ExchangeSelected -> Frozen -> Idle.
type State string

const (
	StateIdle             State = "idle"
	StateExchangeSelected State = "exchange_selected"
	StateFrozen           State = "frozen"
)

// WatchToken identifies one watch run. Terminal transitions present their
// token back, so a goroutine from a watch that was cancelled and superseded
// cannot touch state it no longer owns.
type WatchToken uint64

// Session is the single operator's conversational state. All transitions
// happen under one mutex so the freeze check and the freeze itself are
// atomic: two concurrent amount messages cannot both start a watch.
type Session struct {
	mu       sync.Mutex
	state    State
	exchange exchange.ExchangeID
	rate     decimal.Decimal
	lang     string
	watchGen WatchToken
}

// NewSession creates an idle session with the given conversion rate.
func NewSession(rate decimal.Decimal) *Session {
	return &Session{
		state: StateIdle,
		rate:  rate,
		lang:  "en",
	}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Exchange returns the selected exchange, if any.
func (s *Session) Exchange() (exchange.ExchangeID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exchange, s.exchange != ""
}

// Rate returns the current fiat-per-asset conversion rate.
func (s *Session) Rate() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rate
}

// Language returns the operator's chat language.
func (s *Session) Language() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lang
}

// SetLanguage switches the chat language. Allowed in any state.
func (s *Session) SetLanguage(lang string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lang = lang
}

// SelectExchange moves the session to ExchangeSelected. Rejected while a
// watch is running.
func (s *Session) SelectExchange(id exchange.ExchangeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateFrozen {
		return apperror.New(apperror.CodeSessionFrozen)
	}

	s.exchange = id
	s.state = StateExchangeSelected
	return nil
}

// BeginWatch freezes the session for a polling run. This is the re-entrancy
// guard: it fails unless an exchange is selected and no watch is running.
// The returned token names this run for WatchActive and EndWatch.
func (s *Session) BeginWatch() (exchange.ExchangeID, WatchToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateFrozen {
		return "", 0, apperror.New(apperror.CodeSessionFrozen)
	}
	if s.exchange == "" {
		return "", 0, apperror.New(apperror.CodeNoExchangeSelected)
	}

	s.state = StateFrozen
	s.watchGen++
	return s.exchange, s.watchGen, nil
}

// Active reports whether a watch is running. The polling loop uses this as
// its cooperative cancellation flag.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateFrozen
}

// WatchActive reports whether the watch named by token is still the running
// one. False once the session was cleared or a newer watch started.
func (s *Session) WatchActive(token WatchToken) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateFrozen && s.watchGen == token
}

// EndWatch returns the session to Idle, but only when token still names the
// running watch. A stale goroutine's terminal transition is a no-op.
func (s *Session) EndWatch(token WatchToken) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateFrozen || s.watchGen != token {
		return false
	}

	s.exchange = ""
	s.state = StateIdle
	return true
}

// Clear returns the session to Idle and drops the selected exchange. The
// language and rate survive.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exchange = ""
	s.state = StateIdle
}

// SetRate updates the conversion rate. Rejected while frozen so a running
// watch keeps the expectation it started with.
func (s *Session) SetRate(rate decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateFrozen {
		return apperror.New(apperror.CodeSessionFrozen)
	}
	if rate.Sign() <= 0 {
		return apperror.New(apperror.CodeInvalidRate,
			apperror.WithContext("rate: "+rate.String()))
	}

	s.rate = rate
	return nil
}

// Convert turns a fiat amount into the expected asset amount at the current
// rate, rounded up to cents.
func (s *Session) Convert(fiat decimal.Decimal) (decimal.Decimal, error) {
	if fiat.Sign() <= 0 {
		return decimal.Zero, apperror.New(apperror.CodeInvalidAmount,
			apperror.WithContext("amount: "+fiat.String()))
	}

	s.mu.Lock()
	rate := s.rate
	s.mu.Unlock()

	return CeilToCents(fiat.Div(rate)), nil
}

// CeilToCents rounds up to two decimal places. Rounding is always up so the
// quoted expectation never understates what the counterparty owes.
func CeilToCents(d decimal.Decimal) decimal.Decimal {
	return d.RoundUp(2)
}
