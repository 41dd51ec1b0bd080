package job

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ayo6706/prepaid-recharge/internal/domain"
	"github.com/ayo6706/prepaid-recharge/internal/observability"
	"go.uber.org/zap"
)

// ErrExecutorStopped is returned when scheduling against a stopped executor.
var ErrExecutorStopped = errors.New("job executor stopped")

// Notifier is invoked once per failed job with the report produced so far.
type Notifier interface {
	NotifyFailure(ctx context.Context, target domain.Target, rep *Report, jobErr error) error
}

const defaultQueueDepth = 256

// Executor runs balance adjustment jobs. It tracks each job's lifecycle in a
// durable store, serializes jobs that share a tag so concurrent top-ups never
// race on the same balance, and notifies an administrator on failure.
//
// The executor provides no retry: ShouldRetry is consulted but jobs always
// decline, so a failure is terminal.
type Executor struct {
	store    Store
	notifier Notifier
	logger   *zap.Logger

	queue   chan *BalanceAdjustmentJob
	workers int

	tagMu    sync.Mutex
	tagLocks map[string]*sync.Mutex

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewExecutor creates an executor. store and notifier may be nil; lifecycle
// tracking then stays in memory and failures are only logged.
func NewExecutor(store Store, notifier Notifier, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.L()
	}
	return &Executor{
		store:    store,
		notifier: notifier,
		logger:   logger,
		queue:    make(chan *BalanceAdjustmentJob, defaultQueueDepth),
		workers:  2,
		tagLocks: make(map[string]*sync.Mutex),
		stopCh:   make(chan struct{}),
	}
}

// WithWorkers sets the number of concurrent workers.
func (e *Executor) WithWorkers(n int) *Executor {
	if n > 0 {
		e.workers = n
	}
	return e
}

// WithQueueDepth resizes the pending-job queue. Only valid before Start.
func (e *Executor) WithQueueDepth(n int) *Executor {
	if n > 0 {
		e.queue = make(chan *BalanceAdjustmentJob, n)
	}
	return e
}

// Schedule persists the job in IDLE state and queues it for execution.
func (e *Executor) Schedule(ctx context.Context, j *BalanceAdjustmentJob) error {
	if e.store != nil {
		if err := e.store.Create(ctx, NewRecord(j)); err != nil {
			return fmt.Errorf("persist job %s: %w", j.ID(), err)
		}
	}

	select {
	case <-e.stopCh:
		return ErrExecutorStopped
	case <-ctx.Done():
		return ctx.Err()
	case e.queue <- j:
		return nil
	}
}

// Start runs the worker loops until the context is canceled or Stop is called.
func (e *Executor) Start(ctx context.Context) {
	e.logger.Info("job executor starting", zap.Int("workers", e.workers))
	for i := 0; i < e.workers; i++ {
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-e.stopCh:
					return
				case j := <-e.queue:
					e.Call(ctx, j)
				}
			}
		}()
	}
	e.wg.Wait()
}

// Stop signals the workers to stop.
func (e *Executor) Stop() {
	e.stopOnce.Do(func() {
		close(e.stopCh)
	})
}

// Run starts the executor in a goroutine and returns a stop function.
func (e *Executor) Run(ctx context.Context) func() {
	go e.Start(ctx)
	return e.Stop
}

// Call executes a single job synchronously, updating its status around the
// execution. Jobs sharing a tag are serialized; the tag is advisory and only
// applies within this executor.
func (e *Executor) Call(ctx context.Context, j *BalanceAdjustmentJob) {
	lock := e.tagLock(j.Tag())
	lock.Lock()
	defer lock.Unlock()

	j.setStatus(domain.JobStatusRunning)
	e.persistStatus(ctx, j, "")

	err := j.executeRequest(ctx)
	if err == nil {
		j.setStatus(domain.JobStatusFinished)
		e.persistStatus(ctx, j, "")
		observability.IncrementAdjustmentJob("finished")
		return
	}

	j.setStatus(domain.JobStatusFailed)
	e.persistStatus(ctx, j, err.Error())
	observability.IncrementAdjustmentJob("failed")
	if errors.Is(err, ErrCalculationDiscrepancy) {
		observability.IncrementDiscrepancy()
	}

	e.logger.Error("balance adjustment job failed",
		zap.String("job_id", j.ID().String()),
		zap.String("account", j.Target().Describe()),
		zap.Error(err),
	)

	if e.notifier != nil {
		if mailErr := e.notifier.NotifyFailure(ctx, j.Target(), j.Report(), err); mailErr != nil {
			e.logger.Error("failure notification could not be delivered",
				zap.String("job_id", j.ID().String()),
				zap.Error(mailErr),
			)
		}
	}

	if j.ShouldRetry() {
		// Retries are not implemented yet; jobs always decline.
		e.logger.Warn("job requested retry, which is not supported",
			zap.String("job_id", j.ID().String()))
	}
}

func (e *Executor) persistStatus(ctx context.Context, j *BalanceAdjustmentJob, errMessage string) {
	if e.store == nil {
		return
	}
	if err := e.store.UpdateStatus(ctx, j.ID(), j.Status(), errMessage); err != nil {
		e.logger.Warn("job status persistence failed",
			zap.String("job_id", j.ID().String()),
			zap.String("status", j.Status()),
			zap.Error(err),
		)
	}
}

func (e *Executor) tagLock(tag string) *sync.Mutex {
	e.tagMu.Lock()
	defer e.tagMu.Unlock()
	lock, ok := e.tagLocks[tag]
	if !ok {
		lock = &sync.Mutex{}
		e.tagLocks[tag] = lock
	}
	return lock
}
