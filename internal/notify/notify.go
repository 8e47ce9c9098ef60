// Package notify carries finalized order summaries to whoever sends the
// customer confirmation and the admin new-order alert. Delivery is best
// effort: it happens after commit and its failures never reach the buyer.
package notify

import (
	"context"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type Line struct {
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"total_price"`
}

type Recipient struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type Summary struct {
	OrderID     uuid.UUID       `json:"order_id"`
	UserID      uuid.UUID       `json:"user_id"`
	Total       decimal.Decimal `json:"total"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Lines       []Line          `json:"products"`
	Recipient   Recipient       `json:"recipient"`
}

// AdminAlert is the short form sent to the shop staff.
type AdminAlert struct {
	OrderID      uuid.UUID       `json:"order_id"`
	Total        decimal.Decimal `json:"total"`
	CustomerName string          `json:"customer_name"`
}

func (s Summary) AdminAlert() AdminAlert {
	return AdminAlert{OrderID: s.OrderID, Total: s.Total, CustomerName: s.Recipient.Name}
}

type Dispatcher interface {
	Dispatch(ctx context.Context, summary Summary) error
}
