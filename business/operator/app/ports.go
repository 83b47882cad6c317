// Package app contains the operator orchestrator and its ports.
package app

import (
	"context"
)

// MenuItem is one inline keyboard button. Action is the callback payload.
type MenuItem struct {
	Label  string
	Action string
}

// Menu is rows of buttons.
type Menu [][]MenuItem

// Notifier delivers messages to the operator's chat.
type Notifier interface {
	Send(ctx context.Context, chatID int64, text string) error
	SendMenu(ctx context.Context, chatID int64, text string, menu Menu) error
	// SendPhoto uploads a local image file to the chat.
	SendPhoto(ctx context.Context, chatID int64, path string) error
}

// TransactionSnapshot is one persisted ledger entry.
type TransactionSnapshot struct {
	Amount string `json:"amount"`
	Time   string `json:"time"`
}

// BalanceSnapshot is the persisted state of one exchange's balance.
type BalanceSnapshot struct {
	Total        string                `json:"total"`
	Transactions []TransactionSnapshot `json:"transactions"`
}

// Snapshot is the durable operator state: chat language and the daily
// balance sheet.
type Snapshot struct {
	Lang     string                     `json:"lang"`
	Balances map[string]BalanceSnapshot `json:"balances"`
}

// SessionStore persists snapshots across restarts.
type SessionStore interface {
	// Load returns the stored snapshot. found is false on first run.
	Load() (Snapshot, bool, error)
	Save(Snapshot) error
}
