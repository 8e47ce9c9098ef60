package payment

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusAccepted Status = "ACCEPTED"
	StatusRejected Status = "REJECTED"
)

func (s Status) String() string {
	return string(s)
}

// Transaction is a payment accepted by the external payment flow. OrderID is
// set exactly once, when an order claims it.
type Transaction struct {
	ID               int64           `json:"id"`
	UserID           uuid.UUID       `json:"-"`
	Amount           decimal.Decimal `json:"amount"`
	Status           Status          `json:"status"`
	OrderID          *uuid.UUID      `json:"order_id,omitempty"`
	TransactionCode  string          `json:"transaction_code"`
	AccountReference string          `json:"account_reference"`
	Timestamp        time.Time       `json:"transaction_timestamp"`
}

type BoundTransaction struct {
	TransactionID int64
	OrderID       uuid.UUID
	Amount        decimal.Decimal
}
