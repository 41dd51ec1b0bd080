package domain

// OrderStateCompleted is the terminal commerce workflow state that triggers
// balance aggregation. Transitions into any other state are ignored.
const OrderStateCompleted = "completed"

// Order is the completed commerce order as delivered by the storefront
// webhook. Read-only input to the aggregation pipeline.
type Order struct {
	ID    string     `json:"id"`
	State string     `json:"state"`
	Items []LineItem `json:"items"`
}

// LineItem is one purchased product variant within an order.
type LineItem struct {
	ID string `json:"id"`
	// ProductName is the display name of the purchased variant's parent product.
	ProductName string `json:"product_name"`
	// AddCreditEnabled mirrors the parent product's add-credit flag. Items
	// without it never contribute to a balance adjustment.
	AddCreditEnabled bool `json:"add_credit_enabled"`
	// Recipient is the account identifier the credit is destined for
	// (a developer email or a team id). Empty means the item is skipped.
	Recipient string `json:"recipient"`
	Total     Money  `json:"total"`
}
