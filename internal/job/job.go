package job

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ayo6706/prepaid-recharge/internal/apigee"
	"github.com/ayo6706/prepaid-recharge/internal/currency"
	"github.com/ayo6706/prepaid-recharge/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrCalculationDiscrepancy is returned when the top-up call reported
// success but the re-read balance does not match the locally expected value.
// A discrepancy fails the job so the administrator notification path fires.
var ErrCalculationDiscrepancy = errors.New("calculation discrepancy")

// BillingInvalidator busts cached billing views keyed by account identifier
// after a balance changes remotely.
type BillingInvalidator interface {
	Invalidate(ctx context.Context, accountID string) error
}

// Deps are the collaborators a balance adjustment job needs. Controller is
// required; the rest fall back to sane defaults.
type Deps struct {
	Controller apigee.BalanceController
	Logger     *zap.Logger
	Formatter  *currency.Formatter
	Cache      BillingInvalidator
}

// BalanceAdjustmentJob applies one signed adjustment to one account's
// prepaid balance and verifies the result against the expected value.
//
// Lifecycle: IDLE on construction, RUNNING once the executor invokes it,
// then terminal FINISHED or FAILED. Terminal states never transition again
// and a failed job is not resubmitted.
type BalanceAdjustmentJob struct {
	id         uuid.UUID
	target     domain.Target
	adjustment domain.Adjustment
	tag        string

	controller apigee.BalanceController
	logger     *zap.Logger
	formatter  *currency.Formatter
	cache      BillingInvalidator

	mu     sync.Mutex
	status string
	report *Report
}

// NewBalanceAdjustment constructs an idle job for the given target and
// adjustment.
func NewBalanceAdjustment(target domain.Target, adjustment domain.Adjustment, deps Deps) *BalanceAdjustmentJob {
	logger := deps.Logger
	if logger == nil {
		logger = zap.L()
	}
	formatter := deps.Formatter
	if formatter == nil {
		formatter = currency.NewFormatter()
	}
	return &BalanceAdjustmentJob{
		id:         uuid.New(),
		target:     target,
		adjustment: adjustment,
		tag:        domain.BalanceUpdateTag,
		controller: deps.Controller,
		logger:     logger,
		formatter:  formatter,
		cache:      deps.Cache,
	}
}

// ID returns the job identifier.
func (j *BalanceAdjustmentJob) ID() uuid.UUID { return j.id }

// Target returns the account the adjustment applies to.
func (j *BalanceAdjustmentJob) Target() domain.Target { return j.target }

// Adjustment returns the signed delta the job applies.
func (j *BalanceAdjustmentJob) Adjustment() domain.Adjustment { return j.adjustment }

// Tag returns the advisory serialization key consumed by the executor.
func (j *BalanceAdjustmentJob) Tag() string { return j.tag }

// Status returns the current lifecycle status.
func (j *BalanceAdjustmentJob) Status() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status == "" {
		return domain.JobStatusIdle
	}
	return j.status
}

// ShouldRetry reports whether a failed execution may be resubmitted.
// Retries are not implemented yet; a failed job stays failed.
func (j *BalanceAdjustmentJob) ShouldRetry() bool { return false }

// Report returns the balance snapshot from the last execution, or nil if the
// job has not run far enough to produce one.
func (j *BalanceAdjustmentJob) Report() *Report {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.report
}

func (j *BalanceAdjustmentJob) setStatus(status string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = status
}

func (j *BalanceAdjustmentJob) setReport(r *Report) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.report = r
}

// executeRequest runs the read / top-up / re-read sequence against the
// remote balance API. The three remote calls are strictly sequential; an
// apply-call error is captured so the report still goes out, then re-raised
// so the executor records the failure.
func (j *BalanceAdjustmentJob) executeRequest(ctx context.Context) error {
	if j.controller == nil {
		return errors.New("balance adjustment job has no balance controller")
	}
	currencyCode := j.adjustment.Amount.CurrencyCode
	account := j.target.Describe()

	previous := domain.NewMoney(decimal.Zero, currencyCode)
	existing, err := j.controller.GetByCurrency(ctx, currencyCode)
	switch {
	case err == nil:
		previous = existing
	case errors.Is(err, apigee.ErrBalanceNotFound):
		j.logger.Info("no existing balance for currency, treating as zero",
			zap.String("account", account),
			zap.String("currency", currencyCode),
		)
	default:
		return fmt.Errorf("read existing balance for %s: %w", account, err)
	}

	expected, err := previous.Add(j.adjustment.Amount)
	if err != nil {
		return fmt.Errorf("compute expected balance for %s: %w", account, err)
	}

	report := &Report{
		Target:   j.target,
		Previous: previous,
		Applied:  j.adjustment.Amount,
		Expected: expected,
	}
	j.setReport(report)

	_, applyErr := j.controller.TopUp(ctx, j.adjustment.Amount.Abs().Amount, currencyCode)
	if applyErr != nil {
		j.logger.Error("balance top-up call failed",
			zap.String("account", account),
			zap.String("currency", currencyCode),
			zap.Error(applyErr),
		)
	}

	match := false
	if applyErr == nil {
		if j.cache != nil {
			if cacheErr := j.cache.Invalidate(ctx, j.target.ID); cacheErr != nil {
				j.logger.Warn("billing cache invalidation failed",
					zap.String("account", account),
					zap.Error(cacheErr),
				)
			}
		}

		// The top-up response only tells us the call produced a usable
		// amount; the value we verify is a fresh read.
		fresh, readErr := j.controller.GetByCurrency(ctx, currencyCode)
		if readErr != nil {
			j.logger.Error("re-read of new balance failed",
				zap.String("account", account),
				zap.String("currency", currencyCode),
				zap.Error(readErr),
			)
		} else {
			report.New = &fresh
			match = fresh.Amount.String() == expected.Amount.String()
		}
	}

	fields := []zap.Field{
		zap.String("account", account),
		zap.String("previous_balance", j.formatter.Format(report.Previous)),
		zap.String("amount_applied", j.formatter.Format(report.Applied)),
		zap.String("new_balance", report.NewBalanceDisplay(j.formatter)),
		zap.String("expected_new_balance", j.formatter.Format(report.Expected)),
	}

	if applyErr == nil && match {
		j.logger.Info(report.SuccessMessage(), fields...)
		return nil
	}

	j.logger.Error(report.DiscrepancyMessage(), fields...)
	if applyErr != nil {
		return applyErr
	}
	return fmt.Errorf("%w: expected %s for %s", ErrCalculationDiscrepancy, expected.String(), account)
}

// Execute runs the job once. Exposed for direct synchronous invocation; the
// executor is the normal entry point and adds status tracking around it.
func (j *BalanceAdjustmentJob) Execute(ctx context.Context) error {
	return j.executeRequest(ctx)
}
