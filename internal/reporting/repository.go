// Package reporting is the read-only admin view over all orders.
package reporting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/storefront/internal/order"
)

// OrderRow is one order joined with its customer and delivery address.
// Address columns are NULL for orders placed without an address.
type OrderRow struct {
	ID          uuid.UUID       `db:"id" json:"order_id"`
	UserID      uuid.UUID       `db:"user_id" json:"user_id"`
	Username    string          `db:"username" json:"username"`
	Email       string          `db:"email" json:"email"`
	AddressID   *int64          `db:"address_id" json:"address_id"`
	FirstName   *string         `db:"first_name" json:"first_name"`
	LastName    *string         `db:"last_name" json:"last_name"`
	City        *string         `db:"city" json:"city"`
	DeliveryFee decimal.Decimal `db:"delivery_fee" json:"delivery_fee"`
	Total       decimal.Decimal `db:"total" json:"total"`
	Status      order.Status    `db:"status" json:"status"`
	CompletedAt *time.Time      `db:"completed_at" json:"completed_at"`
	CreatedAt   time.Time       `db:"created_at" json:"datetime"`
}

type Filter struct {
	Status order.Status
	Search string
	Skip   int
	Limit  int
}

type Repository interface {
	ListOrders(ctx context.Context, filter Filter) ([]OrderRow, int, error)
}

type sqlxRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &sqlxRepository{db: db}
}

const fromWhere = `
	FROM orders o
	JOIN users u ON u.id = o.user_id
	LEFT JOIN addresses a ON a.id = o.address_id
	WHERE (CAST(:status AS text) = '' OR o.status = :status)
	  AND (CAST(:pattern AS text) = ''
	       OR u.username ILIKE :pattern
	       OR a.first_name ILIKE :pattern
	       OR a.last_name ILIKE :pattern)
`

type listParams struct {
	Status  string `db:"status"`
	Pattern string `db:"pattern"`
	Skip    int    `db:"skip"`
	Limit   int    `db:"limit"`
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *sqlxRepository) ListOrders(ctx context.Context, filter Filter) ([]OrderRow, int, error) {
	params := listParams{Status: string(filter.Status), Skip: filter.Skip, Limit: filter.Limit}
	if s := strings.TrimSpace(filter.Search); s != "" {
		params.Pattern = "%" + likeEscaper.Replace(s) + "%"
	}

	countQuery, countArgs, err := r.bind(`SELECT count(*)`+fromWhere, params)
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("repository: failed to count orders: %w", err)
	}

	listQuery, listArgs, err := r.bind(`
		SELECT o.id, o.user_id, u.username, u.email, o.address_id,
		       a.first_name, a.last_name, a.city,
		       o.delivery_fee, o.total, o.status, o.completed_at, o.created_at`+
		fromWhere+`
		ORDER BY o.created_at DESC, o.id
		OFFSET :skip LIMIT :limit`, params)
	if err != nil {
		return nil, 0, err
	}

	rows := make([]OrderRow, 0)
	if err := r.db.SelectContext(ctx, &rows, listQuery, listArgs...); err != nil {
		return nil, 0, fmt.Errorf("repository: failed to select orders: %w", err)
	}

	return rows, total, nil
}

func (r *sqlxRepository) bind(query string, params listParams) (string, []any, error) {
	q, args, err := sqlx.Named(query, params)
	if err != nil {
		return "", nil, fmt.Errorf("repository: failed to bind order listing query: %w", err)
	}
	return r.db.Rebind(q), args, nil
}
