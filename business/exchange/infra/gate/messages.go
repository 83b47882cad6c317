package gate

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/depositwatch/business/exchange/domain"
)

// pushOrder is a single row of /api/v4/wallet/push_orders.
type pushOrder struct {
	ID         int64  `json:"id"`
	PushUID    int64  `json:"push_uid"`
	ReceiveUID int64  `json:"receive_uid"`
	Currency   string `json:"currency"`
	Amount     string `json:"amount"`
	CreateTime int64  `json:"create_time"`
	Status     string `json:"status"`
}

func (o pushOrder) toDeposit(asset string) (domain.Deposit, bool) {
	if o.Currency != asset {
		return domain.Deposit{}, false
	}

	amount, err := decimal.NewFromString(o.Amount)
	if err != nil {
		return domain.Deposit{}, false
	}

	var status domain.DepositStatus
	switch o.Status {
	case "done":
		status = domain.StatusOK
	case "creating", "pending":
		status = domain.StatusPending
	default:
		status = domain.StatusFailed
	}

	return domain.Deposit{
		Exchange:  domain.Gate,
		ID:        strconv.FormatInt(o.ID, 10),
		Currency:  o.Currency,
		Amount:    amount,
		Status:    status,
		Timestamp: time.Unix(o.CreateTime, 0),
	}, true
}
