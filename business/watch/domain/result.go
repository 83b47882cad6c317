package domain

import (
	exchange "github.com/fd1az/depositwatch/business/exchange/domain"
)

// Outcome is the terminal state of a polling run.
type Outcome string

const (
	// OutcomeMatched means a qualifying deposit was found.
	OutcomeMatched Outcome = "matched"
	// OutcomeTimedOut means the watch window elapsed with no match.
	OutcomeTimedOut Outcome = "timed_out"
	// OutcomeCancelled means the operator ended the session early.
	OutcomeCancelled Outcome = "cancelled"
)

// Result is what a polling run produced. Deposit is only meaningful when
// Outcome is OutcomeMatched.
type Result struct {
	Outcome Outcome
	Deposit exchange.Deposit
	Ticks   int
}
