package job

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ayo6706/prepaid-recharge/internal/apigee"
	"github.com/ayo6706/prepaid-recharge/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memoryStore struct {
	mu       sync.Mutex
	created  []Record
	statuses map[uuid.UUID][]string
	errs     map[uuid.UUID]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		statuses: make(map[uuid.UUID][]string),
		errs:     make(map[uuid.UUID]string),
	}
}

func (s *memoryStore) Create(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, rec)
	return nil
}

func (s *memoryStore) UpdateStatus(ctx context.Context, id uuid.UUID, status, errMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[id] = append(s.statuses[id], status)
	if errMessage != "" {
		s.errs[id] = errMessage
	}
	return nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	calls   int
	lastRep *Report
	lastErr error
}

func (n *recordingNotifier) NotifyFailure(ctx context.Context, target domain.Target, rep *Report, jobErr error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	n.lastRep = rep
	n.lastErr = jobErr
	return nil
}

// blockingController serializes nothing itself; it records how many
// executions overlap so tests can assert the executor's tag lock.
type blockingController struct {
	inFlight int32
	overlap  int32
	hold     time.Duration
	balance  domain.Money
}

func (c *blockingController) GetByCurrency(ctx context.Context, currencyCode string) (domain.Money, error) {
	if n := atomic.AddInt32(&c.inFlight, 1); n > 1 {
		atomic.StoreInt32(&c.overlap, 1)
	}
	time.Sleep(c.hold)
	atomic.AddInt32(&c.inFlight, -1)
	return c.balance, apigee.ErrBalanceNotFound
}

func (c *blockingController) TopUp(ctx context.Context, amount decimal.Decimal, currencyCode string) (domain.Money, error) {
	return domain.NewMoney(amount, currencyCode), errors.New("apply refused")
}

func TestCallTracksLifecycleToFinished(t *testing.T) {
	store := newMemoryStore()
	notifier := &recordingNotifier{}
	exec := NewExecutor(store, notifier, zap.NewNop())

	ctrl := &stubController{
		reads: []readResult{
			{money: usd(t, "19.99")},
			{money: usd(t, "39.98")},
		},
	}
	j := newTestJob(domain.DeveloperTarget("dev@example.com"), usd(t, "19.99"), ctrl, nil)

	exec.Call(context.Background(), j)

	require.Equal(t, domain.JobStatusFinished, j.Status())
	require.Equal(t, []string{domain.JobStatusRunning, domain.JobStatusFinished}, store.statuses[j.ID()])
	require.Zero(t, notifier.calls)
}

func TestCallNotifiesOnceOnFailure(t *testing.T) {
	store := newMemoryStore()
	notifier := &recordingNotifier{}
	exec := NewExecutor(store, notifier, zap.NewNop())

	applyErr := errors.New("boom")
	ctrl := &stubController{
		reads:    []readResult{{money: usd(t, "19.99")}},
		topUpErr: applyErr,
	}
	j := newTestJob(domain.DeveloperTarget("dev@example.com"), usd(t, "19.99"), ctrl, nil)

	exec.Call(context.Background(), j)

	require.Equal(t, domain.JobStatusFailed, j.Status())
	require.Equal(t, 1, notifier.calls)
	require.NotNil(t, notifier.lastRep)
	require.ErrorIs(t, notifier.lastErr, applyErr)
	require.Contains(t, store.errs[j.ID()], "boom")
}

func TestCallDiscrepancyFailsTheJob(t *testing.T) {
	store := newMemoryStore()
	notifier := &recordingNotifier{}
	exec := NewExecutor(store, notifier, zap.NewNop())

	ctrl := &stubController{
		reads: []readResult{
			{money: usd(t, "19.99")},
			{money: usd(t, "39.99")},
		},
	}
	j := newTestJob(domain.DeveloperTarget("dev@example.com"), usd(t, "19.99"), ctrl, nil)

	exec.Call(context.Background(), j)

	require.Equal(t, domain.JobStatusFailed, j.Status())
	require.Equal(t, 1, notifier.calls)
	require.ErrorIs(t, notifier.lastErr, ErrCalculationDiscrepancy)
}

func TestSchedulePersistsIdleRecord(t *testing.T) {
	store := newMemoryStore()
	exec := NewExecutor(store, nil, zap.NewNop())

	ctrl := &stubController{}
	j := newTestJob(domain.TeamTarget("team-a"), usd(t, "5.00"), ctrl, nil)

	require.NoError(t, exec.Schedule(context.Background(), j))

	require.Len(t, store.created, 1)
	rec := store.created[0]
	require.Equal(t, j.ID(), rec.ID)
	require.Equal(t, domain.JobStatusIdle, rec.Status)
	require.Equal(t, "team", rec.TargetKind)
	require.Equal(t, domain.BalanceUpdateTag, rec.Tag)
}

func TestScheduleAfterStopIsRejected(t *testing.T) {
	exec := NewExecutor(nil, nil, zap.NewNop())
	exec.Stop()

	ctrl := &stubController{}
	j := newTestJob(domain.TeamTarget("team-a"), usd(t, "5.00"), ctrl, nil)

	err := exec.Schedule(context.Background(), j)
	require.ErrorIs(t, err, ErrExecutorStopped)
}

func TestJobsSharingATagNeverOverlap(t *testing.T) {
	exec := NewExecutor(nil, nil, zap.NewNop())
	ctrl := &blockingController{hold: 20 * time.Millisecond}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		j := newTestJob(domain.DeveloperTarget("dev@example.com"), usd(t, "1.00"), ctrl, nil)
		wg.Add(1)
		go func() {
			defer wg.Done()
			exec.Call(context.Background(), j)
		}()
	}
	wg.Wait()

	require.Zero(t, atomic.LoadInt32(&ctrl.overlap), "jobs sharing a tag must run one at a time")
}

func TestRunProcessesQueuedJobs(t *testing.T) {
	store := newMemoryStore()
	exec := NewExecutor(store, nil, zap.NewNop()).WithWorkers(2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stop := exec.Run(ctx)
	defer stop()

	ctrl := &stubController{
		reads: []readResult{
			{money: usd(t, "19.99")},
			{money: usd(t, "39.98")},
		},
	}
	j := newTestJob(domain.DeveloperTarget("dev@example.com"), usd(t, "19.99"), ctrl, nil)
	require.NoError(t, exec.Schedule(ctx, j))

	require.Eventually(t, func() bool {
		return j.Status() == domain.JobStatusFinished
	}, 2*time.Second, 10*time.Millisecond)
}

func TestShouldRetryAlwaysDeclines(t *testing.T) {
	ctrl := &stubController{}
	j := newTestJob(domain.DeveloperTarget("dev@example.com"), usd(t, "1.00"), ctrl, nil)
	require.False(t, j.ShouldRetry())
}
