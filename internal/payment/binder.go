package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/storefront/internal/db"
)

var (
	ErrInvalidOrUsedTransaction      = errors.New("invalid or already used transaction")
	ErrInsufficientTransactionAmount = errors.New("insufficient transaction amount")
)

// Binder claims an accepted, unlinked payment transaction for an order.
type Binder interface {
	Bind(ctx context.Context, q db.Querier, transactionID int64, userID, orderID uuid.UUID, required decimal.Decimal) (*BoundTransaction, error)
}

type postgresBinder struct{}

func NewBinder() Binder {
	return &postgresBinder{}
}

// Bind is a one-shot claim. The candidate row is locked first, so a second
// checkout holding the same transaction id waits for the first to finish and
// then finds the row already linked. The final UPDATE repeats the claim
// conditions and is the authoritative compare-and-swap.
func (b *postgresBinder) Bind(ctx context.Context, q db.Querier, transactionID int64, userID, orderID uuid.UUID, required decimal.Decimal) (*BoundTransaction, error) {
	var amount decimal.Decimal
	err := q.QueryRow(ctx,
		`SELECT amount FROM payment_transactions
		 WHERE id = $1 AND user_id = $2 AND status = $3 AND order_id IS NULL
		 FOR UPDATE`,
		transactionID, userID, string(StatusAccepted),
	).Scan(&amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("payment: transaction %d: %w", transactionID, ErrInvalidOrUsedTransaction)
		}
		return nil, fmt.Errorf("payment: failed to lock transaction %d: %w", transactionID, err)
	}

	if amount.LessThan(required) {
		log.Debug().Int64("transaction_id", transactionID).Str("amount", amount.String()).Str("required", required.String()).Msg("payment: transaction amount too low")
		return nil, fmt.Errorf("payment: transaction %d covers %s of %s: %w", transactionID, amount.StringFixed(2), required.StringFixed(2), ErrInsufficientTransactionAmount)
	}

	cmdTag, err := q.Exec(ctx,
		`UPDATE payment_transactions SET order_id = $1
		 WHERE id = $2 AND user_id = $3 AND status = $4 AND order_id IS NULL`,
		orderID, transactionID, userID, string(StatusAccepted),
	)
	if err != nil {
		return nil, fmt.Errorf("payment: failed to link transaction %d: %w", transactionID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return nil, fmt.Errorf("payment: transaction %d: %w", transactionID, ErrInvalidOrUsedTransaction)
	}

	return &BoundTransaction{TransactionID: transactionID, OrderID: orderID, Amount: amount}, nil
}
