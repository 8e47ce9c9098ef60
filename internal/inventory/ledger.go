package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/storefront/internal/db"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Reservation is the outcome of a successful stock decrement. UnitPrice is
// the catalog price at the moment of reservation and is what the order line
// must snapshot.
type Reservation struct {
	ProductID      int64
	Name           string
	UnitPrice      decimal.Decimal
	Quantity       decimal.Decimal
	RemainingStock decimal.Decimal
}

// Ledger decrements product stock inside a caller-owned transaction.
type Ledger interface {
	Reserve(ctx context.Context, q db.Querier, productID int64, quantity decimal.Decimal) (*Reservation, error)
}

type postgresLedger struct{}

func NewLedger() Ledger {
	return &postgresLedger{}
}

// Reserve locks the product row, checks stock and decrements it. q must be
// a transaction: the row lock and the decrement are released or rolled back
// with it.
func (l *postgresLedger) Reserve(ctx context.Context, q db.Querier, productID int64, quantity decimal.Decimal) (*Reservation, error) {
	res := Reservation{ProductID: productID, Quantity: quantity}

	var stock decimal.Decimal
	err := q.QueryRow(ctx,
		`SELECT name, price, stock_quantity FROM products WHERE id = $1 FOR UPDATE`,
		productID,
	).Scan(&res.Name, &res.UnitPrice, &stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("inventory: product ID %d: %w", productID, ErrProductNotFound)
		}
		return nil, fmt.Errorf("inventory: failed to lock product %d: %w", productID, err)
	}

	if stock.LessThan(quantity) {
		log.Debug().Int64("product_id", productID).Str("stock", stock.String()).Str("requested", quantity.String()).Msg("inventory: stock check failed")
		return nil, fmt.Errorf("inventory: %w for product %s", ErrInsufficientStock, res.Name)
	}

	err = q.QueryRow(ctx,
		`UPDATE products SET stock_quantity = stock_quantity - $2
		 WHERE id = $1 AND stock_quantity >= $2
		 RETURNING stock_quantity`,
		productID, quantity,
	).Scan(&res.RemainingStock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("inventory: %w for product %s", ErrInsufficientStock, res.Name)
		}
		return nil, fmt.Errorf("inventory: failed to decrement stock for product %d: %w", productID, err)
	}

	return &res, nil
}
