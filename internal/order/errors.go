package order

import (
	"errors"

	"github.com/vasiliy-maslov/storefront/internal/inventory"
	"github.com/vasiliy-maslov/storefront/internal/money"
	"github.com/vasiliy-maslov/storefront/internal/payment"
)

var (
	ErrInvalidAddress          = errors.New("invalid address ID")
	ErrEmptyCart               = errors.New("cart must contain at least one item")
	ErrOrderNotFound           = errors.New("order not found")
	ErrInvalidStatus           = errors.New("invalid order status")
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
	ErrForbidden               = errors.New("not allowed to access this order")
	ErrPersistence             = errors.New("persistence failure")
)

// Kind is the failure category reported to API callers.
type Kind string

const (
	KindInvalidAddress                Kind = "InvalidAddress"
	KindProductNotFound               Kind = "ProductNotFound"
	KindInsufficientStock             Kind = "InsufficientStock"
	KindInvalidQuantity               Kind = "InvalidQuantity"
	KindInvalidAmount                 Kind = "InvalidAmount"
	KindEmptyCart                     Kind = "EmptyCart"
	KindInvalidOrUsedTransaction      Kind = "InvalidOrUsedTransaction"
	KindInsufficientTransactionAmount Kind = "InsufficientTransactionAmount"
	KindOrderNotFound                 Kind = "OrderNotFound"
	KindInvalidStatus                 Kind = "InvalidStatus"
	KindForbidden                     Kind = "Forbidden"
	KindPersistenceFailure            Kind = "PersistenceFailure"
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrInvalidAddress, KindInvalidAddress},
	{inventory.ErrProductNotFound, KindProductNotFound},
	{inventory.ErrInsufficientStock, KindInsufficientStock},
	{money.ErrInvalidQuantity, KindInvalidQuantity},
	{money.ErrInvalidAmount, KindInvalidAmount},
	{ErrEmptyCart, KindEmptyCart},
	{payment.ErrInvalidOrUsedTransaction, KindInvalidOrUsedTransaction},
	{payment.ErrInsufficientTransactionAmount, KindInsufficientTransactionAmount},
	{ErrOrderNotFound, KindOrderNotFound},
	{ErrInvalidStatus, KindInvalidStatus},
	{ErrInvalidStatusTransition, KindInvalidStatus},
	{ErrForbidden, KindForbidden},
}

// KindOf classifies an error chain. Anything that is not a known business
// failure is a PersistenceFailure. KindOf(nil) is "".
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindPersistenceFailure
}

// IsBusiness reports whether err is a rejection the caller can act on, as
// opposed to an infrastructure failure.
func IsBusiness(err error) bool {
	return err != nil && KindOf(err) != KindPersistenceFailure
}
