package currency

import (
	"fmt"

	"github.com/ayo6706/prepaid-recharge/internal/domain"
)

// symbols maps ISO 4217 codes to display symbols. Currencies without an
// entry are rendered with their code as a prefix.
var symbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
}

// Formatter renders monetary amounts for human-readable report text.
// It is display-only: numeric comparisons elsewhere always operate on the
// raw decimal, never on a formatted string.
type Formatter struct {
	showSymbol     bool
	fractionDigits int32
}

// NewFormatter creates a formatter with symbol display and two fraction digits.
func NewFormatter() *Formatter {
	return &Formatter{
		showSymbol:     true,
		fractionDigits: 2,
	}
}

// WithSymbol toggles currency symbol display.
func (f *Formatter) WithSymbol(show bool) *Formatter {
	f.showSymbol = show
	return f
}

// WithFractionDigits sets the number of fraction digits for non-zero amounts.
func (f *Formatter) WithFractionDigits(n int32) *Formatter {
	if n >= 0 {
		f.fractionDigits = n
	}
	return f
}

// Format renders the amount, e.g. "$19.99". A zero amount renders without
// fraction digits ("$0").
func (f *Formatter) Format(m domain.Money) string {
	value := m.Amount.StringFixed(f.fractionDigits)
	if m.Amount.IsZero() {
		value = "0"
	}

	if !f.showSymbol {
		return fmt.Sprintf("%s %s", value, m.CurrencyCode)
	}
	symbol, ok := symbols[m.CurrencyCode]
	if !ok {
		return fmt.Sprintf("%s %s", m.CurrencyCode, value)
	}
	return symbol + value
}
