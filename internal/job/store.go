package job

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Record is the durable projection of a job for the status store. Amount is
// the signed decimal string of the adjustment.
type Record struct {
	ID           uuid.UUID `json:"id"`
	TargetKind   string    `json:"target_kind"`
	TargetID     string    `json:"target_id"`
	Amount       string    `json:"amount"`
	CurrencyCode string    `json:"currency_code"`
	Status       string    `json:"status"`
	Tag          string    `json:"tag"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewRecord projects a job into its durable form.
func NewRecord(j *BalanceAdjustmentJob) Record {
	return Record{
		ID:           j.ID(),
		TargetKind:   string(j.Target().Kind),
		TargetID:     j.Target().ID,
		Amount:       j.Adjustment().Amount.Amount.String(),
		CurrencyCode: j.Adjustment().Amount.CurrencyCode,
		Status:       j.Status(),
		Tag:          j.Tag(),
	}
}

// Store persists job lifecycle transitions so terminal statuses stay
// queryable after the job object is gone.
type Store interface {
	Create(ctx context.Context, rec Record) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status, errMessage string) error
}
