package bybit

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/depositwatch/business/exchange/domain"
)

// internalDepositsResponse is the v5 envelope for internal deposit records.
type internalDepositsResponse struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		Rows           []internalDepositRow `json:"rows"`
		NextPageCursor string               `json:"nextPageCursor"`
	} `json:"result"`
}

// internalDepositRow is a single internal deposit. Status values:
// 1 processing, 2 success, 3 failed.
type internalDepositRow struct {
	ID          string `json:"id"`
	Coin        string `json:"coin"`
	Amount      string `json:"amount"`
	Status      int    `json:"status"`
	TxID        string `json:"txID"`
	CreatedTime string `json:"createdTime"`
}

func (r internalDepositRow) toDeposit(asset string) (domain.Deposit, bool) {
	if r.Coin != asset {
		return domain.Deposit{}, false
	}

	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return domain.Deposit{}, false
	}

	status := domain.StatusPending
	switch r.Status {
	case 2:
		status = domain.StatusOK
	case 3:
		status = domain.StatusFailed
	}

	var ts time.Time
	if ms, err := strconv.ParseInt(r.CreatedTime, 10, 64); err == nil {
		ts = time.UnixMilli(ms)
	}

	return domain.Deposit{
		Exchange:  domain.Bybit,
		ID:        r.ID,
		Currency:  r.Coin,
		Amount:    amount,
		Status:    status,
		Timestamp: ts,
	}, true
}

// coinBalanceResponse is the v5 envelope for account coin balances.
type coinBalanceResponse struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		AccountType string `json:"accountType"`
		Balance     []struct {
			Coin            string `json:"coin"`
			WalletBalance   string `json:"walletBalance"`
			TransferBalance string `json:"transferBalance"`
		} `json:"balance"`
	} `json:"result"`
}
