package service

import (
	"context"

	"github.com/ayo6706/prepaid-recharge/internal/apigee"
	"github.com/ayo6706/prepaid-recharge/internal/currency"
	"github.com/ayo6706/prepaid-recharge/internal/domain"
	"github.com/ayo6706/prepaid-recharge/internal/job"
	"github.com/ayo6706/prepaid-recharge/internal/observability"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AccountResolver maps a raw recipient identifier (a developer email or a
// team id) to a concrete balance target.
type AccountResolver interface {
	ResolveAccount(ctx context.Context, recipient string) (domain.Target, error)
}

// Scheduler is the slice of the job executor the aggregator needs.
type Scheduler interface {
	Schedule(ctx context.Context, j *job.BalanceAdjustmentJob) error
}

// AggregatorService collapses a completed order's line items into
// per-recipient credit totals and dispatches one balance adjustment job per
// surviving recipient.
type AggregatorService struct {
	resolver    AccountResolver
	scheduler   Scheduler
	controllers apigee.ControllerFactory
	cache       job.BillingInvalidator
	formatter   *currency.Formatter
	logger      *zap.Logger
}

// NewAggregatorService creates the aggregator. cache may be nil.
func NewAggregatorService(
	resolver AccountResolver,
	scheduler Scheduler,
	controllers apigee.ControllerFactory,
	cache job.BillingInvalidator,
	formatter *currency.Formatter,
	logger *zap.Logger,
) *AggregatorService {
	if formatter == nil {
		formatter = currency.NewFormatter()
	}
	if logger == nil {
		logger = zap.L()
	}
	return &AggregatorService{
		resolver:    resolver,
		scheduler:   scheduler,
		controllers: controllers,
		cache:       cache,
		formatter:   formatter,
		logger:      logger,
	}
}

// HandleOrderCompleted processes one order whose workflow state just
// transitioned. Orders in any state other than "completed" are ignored.
// Returns the ids of the jobs that were scheduled.
func (s *AggregatorService) HandleOrderCompleted(ctx context.Context, order domain.Order) ([]uuid.UUID, error) {
	if order.State != domain.OrderStateCompleted {
		s.logger.Debug("ignoring order in non-completed state",
			zap.String("order_id", order.ID),
			zap.String("state", order.State),
		)
		return nil, nil
	}

	totals := s.collectTotals(order)

	var scheduled []uuid.UUID
	for recipient, total := range totals {
		// Net-zero orders never dispatch an adjustment.
		if total.IsZero() {
			continue
		}

		target, err := s.resolver.ResolveAccount(ctx, recipient)
		if err != nil {
			observability.IncrementRecipientResolutionFailure()
			s.logger.Warn("recipient did not resolve to an account, skipping",
				zap.String("order_id", order.ID),
				zap.String("recipient", recipient),
				zap.Error(err),
			)
			continue
		}

		adjustment := domain.NewAdjustment(total)
		j := job.NewBalanceAdjustment(target, adjustment, job.Deps{
			Controller: s.controllers.ForTarget(target),
			Logger:     s.logger,
			Formatter:  s.formatter,
			Cache:      s.cache,
		})
		if err := s.scheduler.Schedule(ctx, j); err != nil {
			return scheduled, err
		}
		scheduled = append(scheduled, j.ID())
		s.logger.Info("balance adjustment scheduled",
			zap.String("order_id", order.ID),
			zap.String("job_id", j.ID().String()),
			zap.String("account", target.Describe()),
			zap.String("amount", total.String()),
		)
	}
	return scheduled, nil
}

// collectTotals accumulates add-credit line items per recipient. The first
// item for a recipient initializes the total with its own price rather than
// an implicit zero, so the currency always comes from real order data.
func (s *AggregatorService) collectTotals(order domain.Order) map[string]domain.Money {
	totals := make(map[string]domain.Money)
	for _, item := range order.Items {
		if !item.AddCreditEnabled {
			continue
		}
		if item.Recipient == "" {
			continue
		}

		existing, ok := totals[item.Recipient]
		if !ok {
			totals[item.Recipient] = item.Total
			continue
		}
		sum, err := existing.Add(item.Total)
		if err != nil {
			s.logger.Warn("line item currency differs from recipient total, skipping item",
				zap.String("order_id", order.ID),
				zap.String("item_id", item.ID),
				zap.String("recipient", item.Recipient),
				zap.Error(err),
			)
			continue
		}
		totals[item.Recipient] = sum
	}
	return totals
}
