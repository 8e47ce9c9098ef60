package order

import (
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// ParseStatus is case-insensitive. An empty string is not a status.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", ErrInvalidStatus
	}
	return s, nil
}

// Line is an order_details row. Its price is fixed when the order is placed.
type Line struct {
	ID          int64           `json:"id"`
	OrderID     uuid.UUID       `json:"order_id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

// UnitPrice is implied by the stored line total.
func (l Line) UnitPrice() decimal.Decimal {
	if l.Quantity.IsZero() {
		return decimal.Zero
	}
	return l.TotalPrice.DivRound(l.Quantity, 2)
}

type Address struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	City      string `json:"city"`
	Street    string `json:"street"`
}

type Order struct {
	ID          uuid.UUID       `json:"order_id"`
	UserID      uuid.UUID       `json:"user_id"`
	AddressID   *int64          `json:"address_id"`
	Address     *Address        `json:"address,omitempty"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	Total       decimal.Decimal `json:"total"`
	Status      Status          `json:"status"`
	CompletedAt *time.Time      `json:"completed_at"`
	CreatedAt   time.Time       `json:"datetime"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Lines       []Line          `json:"order_details"`
}

// CartLine keeps the quantity as submitted; it is parsed before any stock is touched.
type CartLine struct {
	ProductID int64
	Quantity  string
}

type CheckoutRequest struct {
	UserID        uuid.UUID
	Cart          []CartLine
	AddressID     *int64
	DeliveryFee   decimal.Decimal
	TransactionID *int64
}

// Requester is the authenticated caller of a read.
type Requester struct {
	UserID uuid.UUID
	Admin  bool
}

type ListFilter struct {
	Status Status // empty means any status
	Skip   int
	Limit  int
}

type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

// NewPage derives the page number and page count from an offset window.
func NewPage[T any](items []T, total, skip, limit int) Page[T] {
	p := Page[T]{Items: items, Total: total, Limit: limit}
	if limit > 0 {
		p.Page = skip/limit + 1
		p.Pages = (total + limit - 1) / limit
	}
	return p
}
