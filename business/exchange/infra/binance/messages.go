package binance

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/depositwatch/business/exchange/domain"
)

// payTransactionsResponse is the envelope for /sapi/v1/pay/transactions.
type payTransactionsResponse struct {
	Code    string           `json:"code"`
	Message string           `json:"message"`
	Data    []payTransaction `json:"data"`
	Success bool             `json:"success"`
}

// payTransaction is a single Binance Pay transfer. Amount is negative when
// this account is the payer.
type payTransaction struct {
	OrderType       string `json:"orderType"`
	TransactionID   string `json:"transactionId"`
	TransactionTime int64  `json:"transactionTime"`
	Amount          string `json:"amount"`
	Currency        string `json:"currency"`
}

// toDeposit converts an incoming pay transfer to a deposit record. Outgoing
// transfers and other currencies are skipped. Pay only reports settled
// transfers, so every kept record is StatusOK.
func (t payTransaction) toDeposit(asset string) (domain.Deposit, bool) {
	if t.Currency != asset {
		return domain.Deposit{}, false
	}

	amount, err := decimal.NewFromString(t.Amount)
	if err != nil || amount.Sign() <= 0 {
		return domain.Deposit{}, false
	}

	return domain.Deposit{
		Exchange:  domain.Binance,
		ID:        t.TransactionID,
		Currency:  t.Currency,
		Amount:    amount,
		Status:    domain.StatusOK,
		Timestamp: time.UnixMilli(t.TransactionTime),
	}, true
}

// fundingAsset is a row of /sapi/v1/asset/get-funding-asset.
type fundingAsset struct {
	Asset  string `json:"asset"`
	Free   string `json:"free"`
	Locked string `json:"locked"`
	Freeze string `json:"freeze"`
}
