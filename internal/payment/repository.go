package payment

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/storefront/internal/db"
)

type Repository interface {
	ListAvailable(ctx context.Context, userID uuid.UUID) ([]Transaction, error)
}

type postgresRepository struct {
	db db.Querier
}

func NewRepository(db db.Querier) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) ListAvailable(ctx context.Context, userID uuid.UUID) ([]Transaction, error) {
	query := `
		SELECT id, user_id, amount, status, transaction_code, account_reference, transaction_timestamp
		FROM payment_transactions
		WHERE user_id = $1 AND status = $2 AND order_id IS NULL
		ORDER BY transaction_timestamp DESC
	`

	rows, err := r.db.Query(ctx, query, userID, string(StatusAccepted))
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query transactions for user id %s: %w", userID, err)
	}
	defer rows.Close()

	transactions := make([]Transaction, 0)
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &t.Status, &t.TransactionCode, &t.AccountReference, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("repository: failed to scan transaction for user id %s: %w", userID, err)
		}
		transactions = append(transactions, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating transactions for user id %s: %w", userID, err)
	}

	return transactions, nil
}
