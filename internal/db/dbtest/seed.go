package dbtest

import (
	"context"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func SeedUser(t *testing.T, p *pgxpool.Pool, email, username string) uuid.UUID {
	t.Helper()
	id := uuid.Must(uuid.NewV4())
	_, err := p.Exec(context.Background(),
		"INSERT INTO users (id, email, username) VALUES ($1, $2, $3)", id, email, username)
	require.NoError(t, err, "failed to seed user")
	return id
}

func SeedProduct(t *testing.T, p *pgxpool.Pool, name, price, stock string) int64 {
	t.Helper()
	var id int64
	err := p.QueryRow(context.Background(),
		"INSERT INTO products (name, price, stock_quantity) VALUES ($1, $2, $3) RETURNING id",
		name, decimal.RequireFromString(price), decimal.RequireFromString(stock)).Scan(&id)
	require.NoError(t, err, "failed to seed product")
	return id
}

func SeedAddress(t *testing.T, p *pgxpool.Pool, userID uuid.UUID) int64 {
	t.Helper()
	var id int64
	err := p.QueryRow(context.Background(),
		"INSERT INTO addresses (user_id, first_name, last_name, city, is_default) VALUES ($1, 'Jane', 'Doe', 'Nairobi', TRUE) RETURNING id",
		userID).Scan(&id)
	require.NoError(t, err, "failed to seed address")
	return id
}

func SeedTransaction(t *testing.T, p *pgxpool.Pool, userID uuid.UUID, amount, status string) int64 {
	t.Helper()
	var id int64
	err := p.QueryRow(context.Background(),
		"INSERT INTO payment_transactions (user_id, amount, status, transaction_code) VALUES ($1, $2, $3, 'QX12') RETURNING id",
		userID, decimal.RequireFromString(amount), status).Scan(&id)
	require.NoError(t, err, "failed to seed payment transaction")
	return id
}

func ProductStock(t *testing.T, p *pgxpool.Pool, productID int64) decimal.Decimal {
	t.Helper()
	var stock decimal.Decimal
	err := p.QueryRow(context.Background(),
		"SELECT stock_quantity FROM products WHERE id = $1", productID).Scan(&stock)
	require.NoError(t, err, "failed to read product stock")
	return stock
}

func TransactionOrderID(t *testing.T, p *pgxpool.Pool, transactionID int64) *uuid.UUID {
	t.Helper()
	var orderID *uuid.UUID
	err := p.QueryRow(context.Background(),
		"SELECT order_id FROM payment_transactions WHERE id = $1", transactionID).Scan(&orderID)
	require.NoError(t, err, "failed to read payment transaction")
	return orderID
}

func CountOrders(t *testing.T, p *pgxpool.Pool) (orders, lines int) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, p.QueryRow(ctx, "SELECT count(*) FROM orders").Scan(&orders))
	require.NoError(t, p.QueryRow(ctx, "SELECT count(*) FROM order_details").Scan(&lines))
	return orders, lines
}
