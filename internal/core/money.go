// Package core provides money parsing and handling utilities.
//
// Amounts are kept as decimals so that summing hundreds of class values or
// invoices never drifts the way binary floating point does.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a non-negative euro amount.
type Money struct {
	Amount decimal.Decimal
}

// Zero is the empty amount.
var Zero = Money{Amount: decimal.Zero}

// NewMoney wraps a decimal.
func NewMoney(d decimal.Decimal) Money {
	return Money{Amount: d}
}

// MoneyFromCents builds an amount from integer cents.
func MoneyFromCents(cents int64) Money {
	return Money{Amount: decimal.New(cents, -2)}
}

// ParseMoney converts a decimal string to Money with half-up rounding to cents.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators.
// Negative values and malformed numbers return ErrInvalidAmount.
//
// Examples:
//
//	ParseMoney("12.34")  -> 12.34
//	ParseMoney("12,345") -> 12.35
//	ParseMoney("50")     -> 50.00
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return Money{Amount: d.Round(2)}, nil
}

// MustParseMoney is ParseMoney for literals in tests and tables; it panics on error.
func MustParseMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic("core: bad money literal " + s)
	}
	return m
}

func (m Money) Validate() error {
	if m.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return Money{Amount: m.Amount.Add(o.Amount)}
}

// Sub returns m - o.
func (m Money) Sub(o Money) Money {
	return Money{Amount: m.Amount.Sub(o.Amount)}
}

// Cmp compares m and o like decimal.Cmp.
func (m Money) Cmp(o Money) int {
	return m.Amount.Cmp(o.Amount)
}

// Equal reports whether both amounts are numerically equal.
func (m Money) Equal(o Money) bool {
	return m.Amount.Equal(o.Amount)
}

// IsZero reports a zero amount.
func (m Money) IsZero() bool {
	return m.Amount.IsZero()
}

// Cents returns the amount rounded to integer cents.
func (m Money) Cents() int64 {
	return m.Amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// Euros returns the euro value as a float64 for display purposes.
// Use Add and Cmp for calculations.
func (m Money) Euros() float64 {
	f, _ := m.Amount.Float64()
	return f
}

// String formats the amount with two decimals and a dot separator.
func (m Money) String() string {
	return m.Amount.StringFixed(2)
}

// Sum adds up a list of amounts.
func Sum(values ...Money) Money {
	total := Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
