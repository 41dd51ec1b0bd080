package domain

// AdjustmentType tags the direction of a balance delta.
type AdjustmentType string

const (
	AdjustmentTypeCredit AdjustmentType = "credit"
	AdjustmentTypeDebit  AdjustmentType = "debit"
)

// AdjustmentLabel is the fixed human label carried by order-driven adjustments.
const AdjustmentLabel = "balance adjustment"

// Adjustment is an immutable signed monetary delta to apply to a balance.
// A positive amount increases the balance, a negative amount decreases it.
type Adjustment struct {
	Type   AdjustmentType `json:"type"`
	Label  string         `json:"label"`
	Amount Money          `json:"amount"`
}

// NewAdjustment builds an adjustment for the given signed amount. The type
// tag is derived from the sign.
func NewAdjustment(amount Money) Adjustment {
	typ := AdjustmentTypeCredit
	if amount.IsNegative() {
		typ = AdjustmentTypeDebit
	}
	return Adjustment{
		Type:   typ,
		Label:  AdjustmentLabel,
		Amount: amount,
	}
}
