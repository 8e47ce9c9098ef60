package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/storefront/internal/db"
	"github.com/vasiliy-maslov/storefront/internal/notify"
)

// Repository methods that take a db.Querier run inside the caller's
// transaction; the rest use the repository's own connection.
type Repository interface {
	AddressBelongsTo(ctx context.Context, q db.Querier, addressID int64, userID uuid.UUID) (bool, error)
	CreateOrder(ctx context.Context, q db.Querier, order *Order) error
	InsertLine(ctx context.Context, q db.Querier, line *Line) error
	FinalizeOrder(ctx context.Context, q db.Querier, orderID uuid.UUID, total decimal.Decimal, status Status) error

	GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error)
	ListOrdersByUser(ctx context.Context, userID uuid.UUID, filter ListFilter) ([]Order, int, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, newStatus Status) error
	Recipient(ctx context.Context, userID uuid.UUID) (notify.Recipient, error)
}

type postgresRepository struct {
	db db.Querier
}

func NewRepository(db db.Querier) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) AddressBelongsTo(ctx context.Context, q db.Querier, addressID int64, userID uuid.UUID) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM addresses WHERE id = $1 AND user_id = $2)`,
		addressID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("repository: failed to check address %d: %w", addressID, err)
	}
	return exists, nil
}

// CreateOrder inserts the provisional order row and fills in its timestamps.
func (r *postgresRepository) CreateOrder(ctx context.Context, q db.Querier, order *Order) error {
	query := `
		INSERT INTO orders (id, user_id, address_id, delivery_fee, total, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		order.ID,
		order.UserID,
		order.AddressID,
		order.DeliveryFee,
		order.Total,
		string(order.Status),
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("repository: failed to insert order: %w", err)
	}

	return nil
}

func (r *postgresRepository) InsertLine(ctx context.Context, q db.Querier, line *Line) error {
	query := `
		INSERT INTO order_details (order_id, product_id, quantity, total_price)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := q.QueryRow(ctx, query, line.OrderID, line.ProductID, line.Quantity, line.TotalPrice).Scan(&line.ID)
	if err != nil {
		return fmt.Errorf("repository: failed to insert order line for order %s: %w", line.OrderID, err)
	}

	return nil
}

// FinalizeOrder writes the computed total and the post-checkout status. It
// only touches an order that is still PENDING.
func (r *postgresRepository) FinalizeOrder(ctx context.Context, q db.Querier, orderID uuid.UUID, total decimal.Decimal, status Status) error {
	query := `
		UPDATE orders
		SET total = $2, status = $3, updated_at = now()
		WHERE id = $1 AND status = $4
	`

	cmdTag, err := q.Exec(ctx, query, orderID, total, string(status), string(StatusPending))
	if err != nil {
		return fmt.Errorf("repository: failed to finalize order %s: %w", orderID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("repository: order %s is no longer pending", orderID)
	}

	return nil
}

func (r *postgresRepository) GetOrderByID(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	queryOrder := `
		SELECT o.id, o.user_id, o.address_id, o.delivery_fee, o.total, o.status,
		       o.completed_at, o.created_at, o.updated_at,
		       a.first_name, a.last_name, a.city, a.street
		FROM orders o
		LEFT JOIN addresses a ON a.id = o.address_id
		WHERE o.id = $1
	`

	var order Order
	var firstName, lastName, city, street *string
	err := r.db.QueryRow(ctx, queryOrder, orderID).Scan(
		&order.ID,
		&order.UserID,
		&order.AddressID,
		&order.DeliveryFee,
		&order.Total,
		&order.Status,
		&order.CompletedAt,
		&order.CreatedAt,
		&order.UpdatedAt,
		&firstName,
		&lastName,
		&city,
		&street,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order by id %s: %w", orderID, err)
	}

	if order.AddressID != nil && firstName != nil {
		order.Address = &Address{
			ID:        *order.AddressID,
			FirstName: *firstName,
			LastName:  deref(lastName),
			City:      deref(city),
			Street:    deref(street),
		}
	}

	lines, err := r.linesFor(ctx, []uuid.UUID{orderID})
	if err != nil {
		return nil, err
	}
	order.Lines = lines[orderID]
	if order.Lines == nil {
		order.Lines = make([]Line, 0)
	}

	return &order, nil
}

// ListOrdersByUser returns one page of the user's orders, newest first, and
// the number of orders matching the filter.
func (r *postgresRepository) ListOrdersByUser(ctx context.Context, userID uuid.UUID, filter ListFilter) ([]Order, int, error) {
	var total int
	err := r.db.QueryRow(ctx,
		`SELECT count(*) FROM orders WHERE user_id = $1 AND ($2::text = '' OR status = $2::text)`,
		userID, string(filter.Status),
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("repository: failed to count orders for user id %s: %w", userID, err)
	}

	userOrdersQuery := `
		SELECT id, user_id, address_id, delivery_fee, total, status, completed_at, created_at, updated_at
		FROM orders
		WHERE user_id = $1 AND ($2::text = '' OR status = $2::text)
		ORDER BY created_at DESC, id
		OFFSET $3 LIMIT $4
	`

	orderRows, err := r.db.Query(ctx, userOrdersQuery, userID, string(filter.Status), filter.Skip, filter.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("repository: failed to query orders for user id %s: %w", userID, err)
	}
	defer orderRows.Close()

	orders := make([]Order, 0)
	var orderIDs []uuid.UUID
	for orderRows.Next() {
		var order Order
		err := orderRows.Scan(
			&order.ID,
			&order.UserID,
			&order.AddressID,
			&order.DeliveryFee,
			&order.Total,
			&order.Status,
			&order.CompletedAt,
			&order.CreatedAt,
			&order.UpdatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("repository: failed scan order for user id %s: %w", userID, err)
		}
		orders = append(orders, order)
		orderIDs = append(orderIDs, order.ID)
	}
	if err = orderRows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repository: failed iterating orders for user id %s: %w", userID, err)
	}

	if len(orderIDs) == 0 {
		return orders, total, nil
	}

	lines, err := r.linesFor(ctx, orderIDs)
	if err != nil {
		return nil, 0, err
	}
	for i := range orders {
		orders[i].Lines = lines[orders[i].ID]
		if orders[i].Lines == nil {
			orders[i].Lines = make([]Line, 0)
		}
	}

	return orders, total, nil
}

func (r *postgresRepository) linesFor(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]Line, error) {
	query := `
		SELECT d.id, d.order_id, d.product_id, p.name, d.quantity, d.total_price
		FROM order_details d
		JOIN products p ON p.id = d.product_id
		WHERE d.order_id = ANY($1)
		ORDER BY d.id
	`

	rows, err := r.db.Query(ctx, query, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query order lines: %w", err)
	}
	defer rows.Close()

	lines := make(map[uuid.UUID][]Line, len(orderIDs))
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.ProductName, &l.Quantity, &l.TotalPrice); err != nil {
			return nil, fmt.Errorf("repository: failed to scan order line: %w", err)
		}
		lines[l.OrderID] = append(lines[l.OrderID], l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating order lines: %w", err)
	}

	return lines, nil
}

// UpdateOrderStatus sets the status and re-derives completed_at on every
// call: each DELIVERED update stamps it with now(), any other status clears it.
func (r *postgresRepository) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, newStatus Status) error {
	query := `
		UPDATE orders
		SET status = $2::text,
		    completed_at = CASE WHEN $2::text = 'DELIVERED' THEN now() ELSE NULL END,
		    updated_at = now()
		WHERE id = $1
	`

	cmdTag, err := r.db.Exec(ctx, query, orderID, string(newStatus))
	if err != nil {
		log.Error().Err(err).Stringer("order_id", orderID).Stringer("new_status", newStatus).Msg("repository: failed to update order status")
		return fmt.Errorf("repository: failed to update order status %s: %w", orderID, err)
	}

	if cmdTag.RowsAffected() == 0 {
		log.Warn().Stringer("order_id", orderID).Stringer("new_status", newStatus).Msg("repository: order not found for status update")
		return ErrOrderNotFound
	}

	return nil
}

func (r *postgresRepository) Recipient(ctx context.Context, userID uuid.UUID) (notify.Recipient, error) {
	var rcpt notify.Recipient
	err := r.db.QueryRow(ctx, `SELECT email, username FROM users WHERE id = $1`, userID).Scan(&rcpt.Email, &rcpt.Name)
	if err != nil {
		return notify.Recipient{}, fmt.Errorf("repository: failed to load recipient %s: %w", userID, err)
	}
	return rcpt, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
