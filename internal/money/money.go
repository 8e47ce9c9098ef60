// Package money holds the exact decimal arithmetic used for prices,
// quantities and order totals. Values never pass through float64.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Scales of the numeric columns holding quantities and prices. A line total
// (price × quantity) therefore needs at most LineScale digits and is stored
// without rounding.
const (
	QuantityScale int32 = 3
	AmountScale   int32 = 2
	LineScale           = QuantityScale + AmountScale
)

var (
	ErrInvalidQuantity = errors.New("invalid quantity value")
	ErrInvalidAmount   = errors.New("invalid amount value")
)

// LineTotal is the exact product unitPrice × quantity.
func LineTotal(unitPrice, quantity decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(quantity)
}

// Subtotal sums line totals.
func Subtotal(lineTotals []decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, lt := range lineTotals {
		sum = sum.Add(lt)
	}
	return sum
}

// OrderTotal is the sum of the line totals plus the delivery fee.
func OrderTotal(lineTotals []decimal.Decimal, deliveryFee decimal.Decimal) decimal.Decimal {
	return Subtotal(lineTotals).Add(deliveryFee)
}

// ParseQuantity accepts a non-negative decimal literal such as "3" or "1.5"
// with at most QuantityScale significant fractional digits.
func ParseQuantity(raw string) (decimal.Decimal, error) {
	q, err := parse(raw, QuantityScale)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w %q: %v", ErrInvalidQuantity, raw, err)
	}
	if q.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w %q: must not be negative", ErrInvalidQuantity, raw)
	}
	return q, nil
}

// ParseAmount accepts a non-negative monetary literal such as "2.50" with at
// most AmountScale significant fractional digits.
func ParseAmount(raw string) (decimal.Decimal, error) {
	a, err := parse(raw, AmountScale)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w %q: %v", ErrInvalidAmount, raw, err)
	}
	if a.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w %q: must not be negative", ErrInvalidAmount, raw)
	}
	return a, nil
}

func parse(raw string, scale int32) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, errors.New("empty value")
	}
	// decimal.NewFromString also takes exponents ("1e3"); quantities and
	// amounts are plain literals.
	if strings.ContainsAny(s, "eE") {
		return decimal.Zero, errors.New("exponent notation is not allowed")
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	// Trailing zeros are fine ("1.500"); digits the column would drop are not.
	if !v.Round(scale).Equal(v) {
		return decimal.Zero, fmt.Errorf("more than %d fractional digits", scale)
	}
	return v, nil
}
