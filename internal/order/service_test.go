package order_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/storefront/internal/inventory"
	"github.com/vasiliy-maslov/storefront/internal/notify"
	"github.com/vasiliy-maslov/storefront/internal/order"
	"github.com/vasiliy-maslov/storefront/internal/payment"
)

type checkoutFixture struct {
	tx         *fakeTransactor
	repo       *MockOrderRepository
	ledger     *MockLedger
	binder     *MockBinder
	dispatcher *MockDispatcher
	svc        order.Service
}

func newCheckoutFixture() *checkoutFixture {
	f := &checkoutFixture{
		tx:         &fakeTransactor{},
		repo:       new(MockOrderRepository),
		ledger:     new(MockLedger),
		binder:     new(MockBinder),
		dispatcher: new(MockDispatcher),
	}
	f.svc = order.NewService(f.tx, f.repo, f.ledger, f.binder, f.dispatcher)
	return f
}

func (f *checkoutFixture) assertExpectations(t *testing.T) {
	f.repo.AssertExpectations(t)
	f.ledger.AssertExpectations(t)
	f.binder.AssertExpectations(t)
	f.dispatcher.AssertExpectations(t)
}

func reservation(productID int64, name, price, qty string) *inventory.Reservation {
	return &inventory.Reservation{
		ProductID: productID,
		Name:      name,
		UnitPrice: decimal.RequireFromString(price),
		Quantity:  decimal.RequireFromString(qty),
	}
}

func TestOrderService_Checkout_Success(t *testing.T) {
	f := newCheckoutFixture()
	userID := uuid.Must(uuid.NewV4())
	addressID := int64(4)

	f.repo.On("AddressBelongsTo", mock.Anything, mock.Anything, addressID, userID).Return(true, nil).Once()
	f.repo.On("CreateOrder", mock.Anything, mock.Anything, mock.MatchedBy(func(o *order.Order) bool {
		return o.Status == order.StatusPending && o.Total.IsZero() && o.UserID == userID
	})).Return(nil).Once()
	f.ledger.On("Reserve", mock.Anything, mock.Anything, int64(1), decimalEq("3")).Return(reservation(1, "Tea", "10.00", "3"), nil).Once()
	f.repo.On("InsertLine", mock.Anything, mock.Anything, mock.MatchedBy(func(l *order.Line) bool {
		return l.ProductID == 1 && l.TotalPrice.Equal(decimal.RequireFromString("30.00"))
	})).Return(nil).Once()
	f.repo.On("FinalizeOrder", mock.Anything, mock.Anything, mock.Anything, decimalEq("32.50"), order.StatusPending).Return(nil).Once()

	var sent notify.Summary
	f.dispatcher.On("Dispatch", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		sent = args.Get(1).(notify.Summary)
	}).Return(nil).Once()

	got, err := f.svc.Checkout(context.Background(), order.CheckoutRequest{
		UserID:      userID,
		Cart:        []order.CartLine{{ProductID: 1, Quantity: "3"}},
		AddressID:   &addressID,
		DeliveryFee: decimal.RequireFromString("2.50"),
	})

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.NotEqual(t, uuid.Nil, got.ID)
	assert.Equal(t, order.StatusPending, got.Status)
	assert.True(t, got.Total.Equal(decimal.RequireFromString("32.50")), "total %s", got.Total)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, 1, f.tx.calls)

	assert.Equal(t, got.ID, sent.OrderID)
	assert.True(t, sent.Subtotal.Equal(decimal.RequireFromString("30.00")))
	assert.True(t, sent.DeliveryFee.Equal(decimal.RequireFromString("2.50")))
	assert.Equal(t, userID, sent.UserID)
	assert.Empty(t, sent.Recipient.Email)
	f.repo.AssertNotCalled(t, "Recipient", mock.Anything, mock.Anything)
	wantLine := notify.Line{
		Name:      "Tea",
		Quantity:  decimal.RequireFromString("3"),
		UnitPrice: decimal.RequireFromString("10.00"),
		LineTotal: decimal.RequireFromString("30.00"),
	}
	decimalCmp := cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })
	if diff := cmp.Diff([]notify.Line{wantLine}, sent.Lines, decimalCmp); diff != "" {
		t.Errorf("summary lines mismatch (-want +got):\n%s", diff)
	}

	f.assertExpectations(t)
}

func TestOrderService_Checkout_BindsTransaction(t *testing.T) {
	f := newCheckoutFixture()
	userID := uuid.Must(uuid.NewV4())
	txID := int64(7)

	f.repo.On("CreateOrder", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	f.ledger.On("Reserve", mock.Anything, mock.Anything, int64(1), decimalEq("2")).Return(reservation(1, "Tea", "10.00", "2"), nil).Once()
	f.repo.On("InsertLine", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	f.binder.On("Bind", mock.Anything, mock.Anything, txID, userID, mock.Anything, decimalEq("25.00")).
		Return(&payment.BoundTransaction{TransactionID: txID, Amount: decimal.RequireFromString("50.00")}, nil).Once()
	f.repo.On("FinalizeOrder", mock.Anything, mock.Anything, mock.Anything, decimalEq("25.00"), order.StatusProcessing).Return(nil).Once()
	f.dispatcher.On("Dispatch", mock.Anything, mock.Anything).Return(nil).Once()

	got, err := f.svc.Checkout(context.Background(), order.CheckoutRequest{
		UserID:        userID,
		Cart:          []order.CartLine{{ProductID: 1, Quantity: "2"}},
		DeliveryFee:   decimal.RequireFromString("5.00"),
		TransactionID: &txID,
	})

	require.NoError(t, err)
	assert.Equal(t, order.StatusProcessing, got.Status)
	f.assertExpectations(t)
}

func TestOrderService_Checkout_TotalIsExactSumOfLines(t *testing.T) {
	f := newCheckoutFixture()
	userID := uuid.Must(uuid.NewV4())

	var inserted []decimal.Decimal
	f.repo.On("CreateOrder", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	f.ledger.On("Reserve", mock.Anything, mock.Anything, int64(1), decimalEq("0.5")).Return(reservation(1, "Clove", "0.01", "0.5"), nil).Once()
	f.ledger.On("Reserve", mock.Anything, mock.Anything, int64(2), decimalEq("0.5")).Return(reservation(2, "Mace", "0.01", "0.5"), nil).Once()
	f.repo.On("InsertLine", mock.Anything, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		inserted = append(inserted, args.Get(2).(*order.Line).TotalPrice)
	}).Return(nil).Twice()
	f.repo.On("FinalizeOrder", mock.Anything, mock.Anything, mock.Anything, decimalEq("0.01"), order.StatusPending).Return(nil).Once()
	f.dispatcher.On("Dispatch", mock.Anything, mock.Anything).Return(nil).Once()

	got, err := f.svc.Checkout(context.Background(), order.CheckoutRequest{
		UserID: userID,
		Cart:   []order.CartLine{{ProductID: 1, Quantity: "0.5"}, {ProductID: 2, Quantity: "0.5"}},
	})

	require.NoError(t, err)
	require.Len(t, inserted, 2)
	sum := decimal.Zero
	for _, lt := range inserted {
		assert.True(t, decimal.RequireFromString("0.005").Equal(lt), "line total %s", lt)
		sum = sum.Add(lt)
	}
	assert.True(t, sum.Add(got.DeliveryFee).Equal(got.Total), "lines %s, total %s", sum, got.Total)
	f.assertExpectations(t)
}

func TestOrderService_Checkout_Rejections(t *testing.T) {
	userID := uuid.Must(uuid.NewV4())
	addressID := int64(9)
	txID := int64(3)

	tests := []struct {
		name     string
		req      order.CheckoutRequest
		setup    func(f *checkoutFixture)
		wantErr  error
		wantKind order.Kind
		wantTx   int
	}{
		{
			name: "invalid_address",
			req: order.CheckoutRequest{
				UserID:    userID,
				Cart:      []order.CartLine{{ProductID: 1, Quantity: "1"}},
				AddressID: &addressID,
			},
			setup: func(f *checkoutFixture) {
				f.repo.On("AddressBelongsTo", mock.Anything, mock.Anything, addressID, userID).Return(false, nil).Once()
			},
			wantErr:  order.ErrInvalidAddress,
			wantKind: order.KindInvalidAddress,
			wantTx:   1,
		},
		{
			name: "insufficient_stock",
			req: order.CheckoutRequest{
				UserID: userID,
				Cart:   []order.CartLine{{ProductID: 1, Quantity: "3"}},
			},
			setup: func(f *checkoutFixture) {
				f.repo.On("CreateOrder", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
				f.ledger.On("Reserve", mock.Anything, mock.Anything, int64(1), decimalEq("3")).
					Return(nil, fmt.Errorf("inventory: %w for product Tea", inventory.ErrInsufficientStock)).Once()
			},
			wantErr:  inventory.ErrInsufficientStock,
			wantKind: order.KindInsufficientStock,
			wantTx:   1,
		},
		{
			name: "second_line_product_missing",
			req: order.CheckoutRequest{
				UserID: userID,
				Cart:   []order.CartLine{{ProductID: 1, Quantity: "1"}, {ProductID: 404, Quantity: "1"}},
			},
			setup: func(f *checkoutFixture) {
				f.repo.On("CreateOrder", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
				f.ledger.On("Reserve", mock.Anything, mock.Anything, int64(1), mock.Anything).Return(reservation(1, "Tea", "10.00", "1"), nil).Once()
				f.repo.On("InsertLine", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
				f.ledger.On("Reserve", mock.Anything, mock.Anything, int64(404), mock.Anything).
					Return(nil, fmt.Errorf("inventory: product ID 404: %w", inventory.ErrProductNotFound)).Once()
			},
			wantErr:  inventory.ErrProductNotFound,
			wantKind: order.KindProductNotFound,
			wantTx:   1,
		},
		{
			name: "insufficient_transaction_amount",
			req: order.CheckoutRequest{
				UserID:        userID,
				Cart:          []order.CartLine{{ProductID: 1, Quantity: "2"}},
				DeliveryFee:   decimal.RequireFromString("5.00"),
				TransactionID: &txID,
			},
			setup: func(f *checkoutFixture) {
				f.repo.On("CreateOrder", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
				f.ledger.On("Reserve", mock.Anything, mock.Anything, int64(1), mock.Anything).Return(reservation(1, "Tea", "10.00", "2"), nil).Once()
				f.repo.On("InsertLine", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
				f.binder.On("Bind", mock.Anything, mock.Anything, txID, userID, mock.Anything, decimalEq("25.00")).
					Return(nil, fmt.Errorf("payment: %w", payment.ErrInsufficientTransactionAmount)).Once()
			},
			wantErr:  payment.ErrInsufficientTransactionAmount,
			wantKind: order.KindInsufficientTransactionAmount,
			wantTx:   1,
		},
		{
			name: "used_transaction",
			req: order.CheckoutRequest{
				UserID:        userID,
				Cart:          []order.CartLine{{ProductID: 1, Quantity: "1"}},
				TransactionID: &txID,
			},
			setup: func(f *checkoutFixture) {
				f.repo.On("CreateOrder", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
				f.ledger.On("Reserve", mock.Anything, mock.Anything, int64(1), mock.Anything).Return(reservation(1, "Tea", "10.00", "1"), nil).Once()
				f.repo.On("InsertLine", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
				f.binder.On("Bind", mock.Anything, mock.Anything, txID, userID, mock.Anything, mock.Anything).
					Return(nil, fmt.Errorf("payment: %w", payment.ErrInvalidOrUsedTransaction)).Once()
			},
			wantErr:  payment.ErrInvalidOrUsedTransaction,
			wantKind: order.KindInvalidOrUsedTransaction,
			wantTx:   1,
		},
		{
			name: "invalid_quantity",
			req: order.CheckoutRequest{
				UserID: userID,
				Cart:   []order.CartLine{{ProductID: 1, Quantity: "three"}},
			},
			setup:    func(f *checkoutFixture) {},
			wantKind: order.KindInvalidQuantity,
			wantTx:   0,
		},
		{
			name: "negative_quantity",
			req: order.CheckoutRequest{
				UserID: userID,
				Cart:   []order.CartLine{{ProductID: 1, Quantity: "-1"}},
			},
			setup:    func(f *checkoutFixture) {},
			wantKind: order.KindInvalidQuantity,
			wantTx:   0,
		},
		{
			name:     "empty_cart",
			req:      order.CheckoutRequest{UserID: userID},
			setup:    func(f *checkoutFixture) {},
			wantErr:  order.ErrEmptyCart,
			wantKind: order.KindEmptyCart,
			wantTx:   0,
		},
		{
			name: "quantity_finer_than_stock_scale",
			req: order.CheckoutRequest{
				UserID: userID,
				Cart:   []order.CartLine{{ProductID: 1, Quantity: "0.0005"}},
			},
			setup:    func(f *checkoutFixture) {},
			wantKind: order.KindInvalidQuantity,
			wantTx:   0,
		},
		{
			name: "sub_cent_delivery_fee",
			req: order.CheckoutRequest{
				UserID:      userID,
				Cart:        []order.CartLine{{ProductID: 1, Quantity: "1"}},
				DeliveryFee: decimal.RequireFromString("2.555"),
			},
			setup:    func(f *checkoutFixture) {},
			wantKind: order.KindInvalidAmount,
			wantTx:   0,
		},
		{
			name: "negative_delivery_fee",
			req: order.CheckoutRequest{
				UserID:      userID,
				Cart:        []order.CartLine{{ProductID: 1, Quantity: "1"}},
				DeliveryFee: decimal.RequireFromString("-1.00"),
			},
			setup:    func(f *checkoutFixture) {},
			wantKind: order.KindInvalidAmount,
			wantTx:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCheckoutFixture()
			tt.setup(f)

			got, err := f.svc.Checkout(context.Background(), tt.req)

			require.Error(t, err)
			assert.Nil(t, got)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Equal(t, tt.wantKind, order.KindOf(err))
			assert.False(t, errors.Is(err, order.ErrPersistence))
			assert.Equal(t, tt.wantTx, f.tx.calls)

			f.repo.AssertNotCalled(t, "FinalizeOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			f.dispatcher.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
			f.assertExpectations(t)
		})
	}
}

func TestOrderService_Checkout_PersistenceFailure(t *testing.T) {
	f := newCheckoutFixture()
	userID := uuid.Must(uuid.NewV4())
	dbErr := errors.New("connection reset by peer")

	f.repo.On("CreateOrder", mock.Anything, mock.Anything, mock.Anything).Return(dbErr).Once()

	got, err := f.svc.Checkout(context.Background(), order.CheckoutRequest{
		UserID: userID,
		Cart:   []order.CartLine{{ProductID: 1, Quantity: "1"}},
	})

	require.Error(t, err)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, order.ErrPersistence)
	assert.ErrorIs(t, err, dbErr)
	assert.Equal(t, order.KindPersistenceFailure, order.KindOf(err))
	f.ledger.AssertNotCalled(t, "Reserve", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestOrderService_Checkout_CommitFailure(t *testing.T) {
	f := newCheckoutFixture()
	f.tx.err = errors.New("db: failed to commit transaction: conn closed")
	userID := uuid.Must(uuid.NewV4())

	f.repo.On("CreateOrder", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	f.ledger.On("Reserve", mock.Anything, mock.Anything, int64(1), mock.Anything).Return(reservation(1, "Tea", "10.00", "1"), nil).Once()
	f.repo.On("InsertLine", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	f.repo.On("FinalizeOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything, order.StatusPending).Return(nil).Once()

	got, err := f.svc.Checkout(context.Background(), order.CheckoutRequest{
		UserID: userID,
		Cart:   []order.CartLine{{ProductID: 1, Quantity: "1"}},
	})

	require.ErrorIs(t, err, order.ErrPersistence)
	assert.Nil(t, got)
	f.dispatcher.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestOrderService_Checkout_NotificationFailuresAreSwallowed(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *checkoutFixture, userID uuid.UUID)
	}{
		{
			name: "dispatcher_error",
			setup: func(f *checkoutFixture, userID uuid.UUID) {
				f.dispatcher.On("Dispatch", mock.Anything, mock.Anything).Return(errors.New("smtp unavailable")).Once()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCheckoutFixture()
			userID := uuid.Must(uuid.NewV4())

			f.repo.On("CreateOrder", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
			f.ledger.On("Reserve", mock.Anything, mock.Anything, int64(1), mock.Anything).Return(reservation(1, "Tea", "10.00", "1"), nil).Once()
			f.repo.On("InsertLine", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
			f.repo.On("FinalizeOrder", mock.Anything, mock.Anything, mock.Anything, decimalEq("10.00"), order.StatusPending).Return(nil).Once()
			tt.setup(f, userID)

			got, err := f.svc.Checkout(context.Background(), order.CheckoutRequest{
				UserID: userID,
				Cart:   []order.CartLine{{ProductID: 1, Quantity: "1"}},
			})

			require.NoError(t, err)
			require.NotNil(t, got)
			f.assertExpectations(t)
		})
	}
}

func TestOrderService_GetOrderByID(t *testing.T) {
	owner := uuid.Must(uuid.NewV4())
	stranger := uuid.Must(uuid.NewV4())
	orderID := uuid.Must(uuid.NewV4())
	stored := &order.Order{ID: orderID, UserID: owner, Status: order.StatusPending}

	tests := []struct {
		name      string
		requester order.Requester
		repoOrder *order.Order
		repoErr   error
		wantErr   error
	}{
		{name: "owner", requester: order.Requester{UserID: owner}, repoOrder: stored},
		{name: "admin", requester: order.Requester{UserID: stranger, Admin: true}, repoOrder: stored},
		{name: "stranger", requester: order.Requester{UserID: stranger}, repoOrder: stored, wantErr: order.ErrForbidden},
		{name: "not_found", requester: order.Requester{UserID: owner}, repoErr: order.ErrOrderNotFound, wantErr: order.ErrOrderNotFound},
		{name: "db_error", requester: order.Requester{UserID: owner}, repoErr: errors.New("timeout"), wantErr: order.ErrPersistence},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockOrderRepository)
			svc := order.NewService(&fakeTransactor{}, repo, new(MockLedger), new(MockBinder), new(MockDispatcher))

			if tt.repoOrder != nil {
				repo.On("GetOrderByID", mock.Anything, orderID).Return(tt.repoOrder, nil).Once()
			} else {
				repo.On("GetOrderByID", mock.Anything, orderID).Return(nil, tt.repoErr).Once()
			}

			got, err := svc.GetOrderByID(context.Background(), orderID, tt.requester)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
			} else {
				require.NoError(t, err)
				assert.Equal(t, stored, got)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestOrderService_ListOrders(t *testing.T) {
	repo := new(MockOrderRepository)
	svc := order.NewService(&fakeTransactor{}, repo, new(MockLedger), new(MockBinder), new(MockDispatcher))
	userID := uuid.Must(uuid.NewV4())
	filter := order.ListFilter{Status: order.StatusDelivered, Skip: 10, Limit: 10}
	orders := []order.Order{{ID: uuid.Must(uuid.NewV4()), UserID: userID, Status: order.StatusDelivered}}

	repo.On("ListOrdersByUser", mock.Anything, userID, filter).Return(orders, 21, nil).Once()

	page, err := svc.ListOrders(context.Background(), userID, filter)

	require.NoError(t, err)
	assert.Equal(t, orders, page.Items)
	assert.Equal(t, 21, page.Total)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 10, page.Limit)
	assert.Equal(t, 3, page.Pages)
	repo.AssertExpectations(t)
}

func TestOrderService_ListOrders_InvalidStatus(t *testing.T) {
	repo := new(MockOrderRepository)
	svc := order.NewService(&fakeTransactor{}, repo, new(MockLedger), new(MockBinder), new(MockDispatcher))

	_, err := svc.ListOrders(context.Background(), uuid.Must(uuid.NewV4()), order.ListFilter{Status: "LOST", Limit: 10})

	require.ErrorIs(t, err, order.ErrInvalidStatus)
	repo.AssertNotCalled(t, "ListOrdersByUser", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderService_UpdateOrderStatus(t *testing.T) {
	orderID := uuid.Must(uuid.NewV4())

	tests := []struct {
		name     string
		status   order.Status
		repoErr  error
		callRepo bool
		wantErr  error
	}{
		{name: "delivered", status: order.StatusDelivered, callRepo: true},
		{name: "shipped", status: order.StatusShipped, callRepo: true},
		{name: "cancelled", status: order.StatusCancelled, callRepo: true},
		{name: "back_to_pending", status: order.StatusPending, wantErr: order.ErrInvalidStatusTransition},
		{name: "processing", status: order.StatusProcessing, wantErr: order.ErrInvalidStatusTransition},
		{name: "unknown", status: "LOST", wantErr: order.ErrInvalidStatus},
		{name: "not_found", status: order.StatusShipped, callRepo: true, repoErr: order.ErrOrderNotFound, wantErr: order.ErrOrderNotFound},
		{name: "db_error", status: order.StatusShipped, callRepo: true, repoErr: errors.New("timeout"), wantErr: order.ErrPersistence},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockOrderRepository)
			svc := order.NewService(&fakeTransactor{}, repo, new(MockLedger), new(MockBinder), new(MockDispatcher))
			if tt.callRepo {
				repo.On("UpdateOrderStatus", mock.Anything, orderID, tt.status).Return(tt.repoErr).Once()
			}

			err := svc.UpdateOrderStatus(context.Background(), orderID, tt.status)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			if !tt.callRepo {
				repo.AssertNotCalled(t, "UpdateOrderStatus", mock.Anything, mock.Anything, mock.Anything)
			}
			repo.AssertExpectations(t)
		})
	}
}
