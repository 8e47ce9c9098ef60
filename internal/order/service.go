package order

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/storefront/internal/db"
	"github.com/vasiliy-maslov/storefront/internal/inventory"
	"github.com/vasiliy-maslov/storefront/internal/money"
	"github.com/vasiliy-maslov/storefront/internal/notify"
	"github.com/vasiliy-maslov/storefront/internal/payment"
)

// Manual status updates may move an order to any of these. PENDING and
// PROCESSING are only ever assigned by checkout.
var updatableStatuses = map[Status]bool{
	StatusShipped:   true,
	StatusDelivered: true,
	StatusCancelled: true,
}

type Service interface {
	Checkout(ctx context.Context, req CheckoutRequest) (*Order, error)
	GetOrderByID(ctx context.Context, id uuid.UUID, requester Requester) (*Order, error)
	ListOrders(ctx context.Context, userID uuid.UUID, filter ListFilter) (Page[Order], error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, newStatus Status) error
}

type service struct {
	tx         db.Transactor
	orderRepo  Repository
	ledger     inventory.Ledger
	binder     payment.Binder
	dispatcher notify.Dispatcher
}

func NewService(tx db.Transactor, orderRepo Repository, ledger inventory.Ledger, binder payment.Binder, dispatcher notify.Dispatcher) Service {
	return &service{
		tx:         tx,
		orderRepo:  orderRepo,
		ledger:     ledger,
		binder:     binder,
		dispatcher: dispatcher,
	}
}

// Checkout places an order for the cart. Address check, order row, stock
// reservations, lines, total and the optional payment claim all happen in
// one transaction; any failure leaves no trace. The notification is sent
// only after commit and cannot fail the call.
func (s *service) Checkout(ctx context.Context, req CheckoutRequest) (*Order, error) {
	if len(req.Cart) == 0 {
		log.Warn().Stringer("user_id", req.UserID).Msg("service: attempt to create order with no items")
		return nil, ErrEmptyCart
	}
	if req.DeliveryFee.IsNegative() || !req.DeliveryFee.Round(money.AmountScale).Equal(req.DeliveryFee) {
		return nil, fmt.Errorf("service: delivery fee %s: %w", req.DeliveryFee, money.ErrInvalidAmount)
	}

	quantities := make([]decimal.Decimal, len(req.Cart))
	for i, item := range req.Cart {
		q, err := money.ParseQuantity(item.Quantity)
		if err != nil {
			log.Warn().Err(err).Int64("product_id", item.ProductID).Msg("service: invalid cart quantity")
			return nil, fmt.Errorf("service: cart line %d: %w", i+1, err)
		}
		quantities[i] = q
	}

	orderID, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("service: failed to generate order ID: %w", err)
	}

	var (
		placed   *Order
		subtotal decimal.Decimal
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context, q db.Querier) error {
		if req.AddressID != nil {
			ok, err := s.orderRepo.AddressBelongsTo(ctx, q, *req.AddressID, req.UserID)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("service: address %d: %w", *req.AddressID, ErrInvalidAddress)
			}
		}

		o := &Order{
			ID:          orderID,
			UserID:      req.UserID,
			AddressID:   req.AddressID,
			DeliveryFee: req.DeliveryFee,
			Total:       decimal.Zero,
			Status:      StatusPending,
		}
		if err := s.orderRepo.CreateOrder(ctx, q, o); err != nil {
			return err
		}

		lineTotals := make([]decimal.Decimal, 0, len(req.Cart))
		lines := make([]Line, 0, len(req.Cart))
		for i, item := range req.Cart {
			res, err := s.ledger.Reserve(ctx, q, item.ProductID, quantities[i])
			if err != nil {
				return err
			}

			line := Line{
				OrderID:     o.ID,
				ProductID:   res.ProductID,
				ProductName: res.Name,
				Quantity:    res.Quantity,
				TotalPrice:  money.LineTotal(res.UnitPrice, res.Quantity),
			}
			if err := s.orderRepo.InsertLine(ctx, q, &line); err != nil {
				return err
			}
			lineTotals = append(lineTotals, line.TotalPrice)
			lines = append(lines, line)
		}

		o.Total = money.OrderTotal(lineTotals, o.DeliveryFee)

		if req.TransactionID != nil {
			if _, err := s.binder.Bind(ctx, q, *req.TransactionID, req.UserID, o.ID, o.Total); err != nil {
				return err
			}
			o.Status = StatusProcessing
		}

		if err := s.orderRepo.FinalizeOrder(ctx, q, o.ID, o.Total, o.Status); err != nil {
			return err
		}

		o.Lines = lines
		placed = o
		subtotal = money.Subtotal(lineTotals)
		return nil
	})
	if err != nil {
		if IsBusiness(err) {
			log.Warn().Err(err).Stringer("user_id", req.UserID).Str("kind", string(KindOf(err))).Msg("service: checkout rejected")
			return nil, err
		}
		log.Error().Err(err).Stringer("user_id", req.UserID).Msg("service: failed to create order in repository")
		return nil, fmt.Errorf("service: %w: %w", ErrPersistence, err)
	}

	log.Info().Stringer("order_id", placed.ID).Stringer("user_id", placed.UserID).Str("total", placed.Total.String()).Msg("service: order created successfully")

	s.notifyPlaced(ctx, placed, subtotal)

	return placed, nil
}

// notifyPlaced hands the summary to the dispatcher without touching the
// database; the recipient is resolved on the dispatcher side.
func (s *service) notifyPlaced(ctx context.Context, o *Order, subtotal decimal.Decimal) {
	summary := notify.Summary{
		OrderID:     o.ID,
		UserID:      o.UserID,
		Total:       o.Total,
		DeliveryFee: o.DeliveryFee,
		Subtotal:    subtotal,
		Lines:       make([]notify.Line, 0, len(o.Lines)),
	}
	for _, l := range o.Lines {
		summary.Lines = append(summary.Lines, notify.Line{
			Name:      l.ProductName,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice(),
			LineTotal: l.TotalPrice,
		})
	}

	if err := s.dispatcher.Dispatch(ctx, summary); err != nil {
		log.Error().Err(err).Stringer("order_id", o.ID).Msg("service: failed to dispatch order notification")
	}
}

func (s *service) GetOrderByID(ctx context.Context, id uuid.UUID, requester Requester) (*Order, error) {
	order, err := s.orderRepo.GetOrderByID(ctx, id)
	if err != nil {
		if KindOf(err) == KindOrderNotFound {
			log.Warn().Err(err).Stringer("order_id", id).Msg("service: order not found by id")
			return nil, ErrOrderNotFound
		}

		log.Error().Err(err).Msg("service: failed to fetch order by id in repository")
		return nil, fmt.Errorf("service: failed to fetch order by id: %w: %w", ErrPersistence, err)
	}

	if !requester.Admin && order.UserID != requester.UserID {
		log.Warn().Stringer("order_id", id).Stringer("user_id", requester.UserID).Msg("service: order requested by non-owner")
		return nil, ErrForbidden
	}

	return order, nil
}

func (s *service) ListOrders(ctx context.Context, userID uuid.UUID, filter ListFilter) (Page[Order], error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return Page[Order]{}, ErrInvalidStatus
	}

	orders, total, err := s.orderRepo.ListOrdersByUser(ctx, userID, filter)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("service: failed to fetch user orders in repository")
		return Page[Order]{}, fmt.Errorf("service: failed to fetch user orders: %w: %w", ErrPersistence, err)
	}

	return NewPage(orders, total, filter.Skip, filter.Limit), nil
}

func (s *service) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, newStatus Status) error {
	if !newStatus.Valid() {
		return ErrInvalidStatus
	}
	if !updatableStatuses[newStatus] {
		log.Warn().Stringer("order_id", orderID).Stringer("new_status", newStatus).Msg("service: invalid status transition attempt")
		return fmt.Errorf("service: cannot set status %s manually: %w", newStatus, ErrInvalidStatusTransition)
	}

	err := s.orderRepo.UpdateOrderStatus(ctx, orderID, newStatus)
	if err != nil {
		if KindOf(err) == KindOrderNotFound {
			log.Warn().Err(err).Stringer("order_id", orderID).Stringer("new_status", newStatus).Msg("service: order not found, cannot update status")
			return ErrOrderNotFound
		}
		log.Error().Err(err).Stringer("order_id", orderID).Stringer("new_status", newStatus).Msg("service: failed to update order status in repository")
		return fmt.Errorf("service: failed to update order status: %w: %w", ErrPersistence, err)
	}

	log.Info().Stringer("order_id", orderID).Stringer("new_status", newStatus).Msg("service: order status updated successfully")
	return nil
}
