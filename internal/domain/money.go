package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrCurrencyMismatch is returned when two amounts in different currencies
// are combined. Totals are accumulated per currency, never converted.
var ErrCurrencyMismatch = errors.New("currency mismatch")

// Money represents a monetary value in a specific currency.
// Amount is kept as a shopspring/decimal to avoid floating point errors;
// the discrepancy check downstream relies on decimal-exact comparison.
type Money struct {
	Amount       decimal.Decimal `json:"amount"`
	CurrencyCode string          `json:"currency_code"` // ISO 4217
}

// NewMoney creates a new Money instance.
func NewMoney(amount decimal.Decimal, currencyCode string) Money {
	return Money{
		Amount:       amount,
		CurrencyCode: currencyCode,
	}
}

// MoneyFromString parses a decimal string amount into Money.
func MoneyFromString(amount, currencyCode string) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	return NewMoney(d, currencyCode), nil
}

// Add returns the sum of two amounts in the same currency.
func (m Money) Add(other Money) (Money, error) {
	if m.CurrencyCode != other.CurrencyCode {
		return Money{}, fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.CurrencyCode, other.CurrencyCode)
	}
	return Money{
		Amount:       m.Amount.Add(other.Amount),
		CurrencyCode: m.CurrencyCode,
	}, nil
}

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool {
	return m.Amount.IsZero()
}

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool {
	return m.Amount.IsNegative()
}

// Abs returns the unsigned value of the amount.
func (m Money) Abs() Money {
	return Money{
		Amount:       m.Amount.Abs(),
		CurrencyCode: m.CurrencyCode,
	}
}

// String returns the string representation of the money.
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Amount.String(), m.CurrencyCode)
}
