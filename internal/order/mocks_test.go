package order_test

import (
	"context"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/vasiliy-maslov/storefront/internal/db"
	"github.com/vasiliy-maslov/storefront/internal/inventory"
	"github.com/vasiliy-maslov/storefront/internal/notify"
	"github.com/vasiliy-maslov/storefront/internal/order"
	"github.com/vasiliy-maslov/storefront/internal/payment"
)

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) AddressBelongsTo(ctx context.Context, q db.Querier, addressID int64, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, q, addressID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRepository) CreateOrder(ctx context.Context, q db.Querier, o *order.Order) error {
	args := m.Called(ctx, q, o)
	return args.Error(0)
}

func (m *MockOrderRepository) InsertLine(ctx context.Context, q db.Querier, line *order.Line) error {
	args := m.Called(ctx, q, line)
	return args.Error(0)
}

func (m *MockOrderRepository) FinalizeOrder(ctx context.Context, q db.Querier, orderID uuid.UUID, total decimal.Decimal, status order.Status) error {
	args := m.Called(ctx, q, orderID, total, status)
	return args.Error(0)
}

func (m *MockOrderRepository) GetOrderByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) ListOrdersByUser(ctx context.Context, userID uuid.UUID, filter order.ListFilter) ([]order.Order, int, error) {
	args := m.Called(ctx, userID, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]order.Order), args.Int(1), args.Error(2)
}

func (m *MockOrderRepository) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, newStatus order.Status) error {
	args := m.Called(ctx, orderID, newStatus)
	return args.Error(0)
}

func (m *MockOrderRepository) Recipient(ctx context.Context, userID uuid.UUID) (notify.Recipient, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(notify.Recipient), args.Error(1)
}

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) Reserve(ctx context.Context, q db.Querier, productID int64, quantity decimal.Decimal) (*inventory.Reservation, error) {
	args := m.Called(ctx, q, productID, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.Reservation), args.Error(1)
}

type MockBinder struct {
	mock.Mock
}

func (m *MockBinder) Bind(ctx context.Context, q db.Querier, transactionID int64, userID, orderID uuid.UUID, required decimal.Decimal) (*payment.BoundTransaction, error) {
	args := m.Called(ctx, q, transactionID, userID, orderID, required)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.BoundTransaction), args.Error(1)
}

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(ctx context.Context, summary notify.Summary) error {
	args := m.Called(ctx, summary)
	return args.Error(0)
}

// fakeTransactor runs the unit of work once against a nil querier; the
// mocks above never touch it.
type fakeTransactor struct {
	calls int
	err   error
}

func (f *fakeTransactor) WithinTx(ctx context.Context, fn db.TxFunc) error {
	f.calls++
	if err := fn(ctx, nil); err != nil {
		return err
	}
	return f.err
}

func decimalEq(want string) any {
	w := decimal.RequireFromString(want)
	return mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(w) })
}
