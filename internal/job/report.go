package job

import (
	"fmt"
	"strings"
	"time"

	"github.com/ayo6706/prepaid-recharge/internal/currency"
	"github.com/ayo6706/prepaid-recharge/internal/domain"
)

// NewBalanceUnavailable is the placeholder used when the post-adjustment
// balance could not be read back. Downstream consumers match on the exact
// text, so it must not change.
const NewBalanceUnavailable = "Error retrieving the new balance."

// Report is the balance snapshot around one adjustment: what was there
// before, what was applied, what came back, and what was expected. It exists
// for logging and administrator notifications and is discarded with the job.
type Report struct {
	Target   domain.Target
	Previous domain.Money
	Applied  domain.Money
	Expected domain.Money
	// New is the re-read post-adjustment balance; nil when the re-read failed
	// or the apply call produced no usable result.
	New *domain.Money
}

// SuccessMessage is the log line emitted when the re-read balance matches the
// expected value.
func (r *Report) SuccessMessage() string {
	return fmt.Sprintf("Adjustment applied to %s.", r.Target.Describe())
}

// DiscrepancyMessage is the log line emitted when it does not.
func (r *Report) DiscrepancyMessage() string {
	return fmt.Sprintf("Calculation discrepancy applying adjustment to %s.", r.Target.Describe())
}

// NewBalanceDisplay renders the re-read balance, or the unavailable
// placeholder when there is none.
func (r *Report) NewBalanceDisplay(f *currency.Formatter) string {
	if r.New == nil {
		return NewBalanceUnavailable
	}
	return f.Format(*r.New)
}

// Body renders the notification body. Field labels, padding and the fallback
// placeholder are a compatibility contract with existing consumers.
func (r *Report) Body(f *currency.Formatter, at time.Time) string {
	lines := []string{
		r.DiscrepancyMessage(),
		"",
		fmt.Sprintf("Existing credit added (%s):  `%s`", at.Format("January"), f.Format(r.Previous)),
		fmt.Sprintf("Amount Applied:                   `%s`.", f.Format(r.Applied)),
		fmt.Sprintf("New Balance:                      `%s`.", r.NewBalanceDisplay(f)),
		fmt.Sprintf("Expected New Balance:             `%s`.", f.Format(r.Expected)),
	}
	return strings.Join(lines, "\n")
}
