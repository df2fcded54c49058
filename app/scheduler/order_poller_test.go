package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amirphl/smm-panel/app/metrics"
	businessflow "github.com/amirphl/smm-panel/business_flow"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLocker struct {
	mu       sync.Mutex
	held     map[string]bool
	err      error
	released int
}

func (l *fakeLocker) TryLock(_ context.Context, name string, _ time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return func() {}, false, l.err
	}
	if l.held == nil {
		l.held = map[string]bool{}
	}
	if l.held[name] {
		return func() {}, false, nil
	}
	l.held[name] = true
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, name)
		l.released++
	}, true, nil
}

func runs(name, outcome string) float64 {
	return testutil.ToFloat64(metrics.PollerRuns.WithLabelValues(name, outcome))
}

func TestOrderPoller_RunOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("RunsCycleUnderLease", func(t *testing.T) {
		locker := &fakeLocker{}
		calls := 0
		p := NewOrderPoller("t-ok", func(ctx context.Context) (businessflow.ReconcileStats, error) {
			calls++
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline)
			return businessflow.ReconcileStats{Checked: 2, Updated: 1}, nil
		}, time.Minute, time.Second, locker, nil)

		before := runs("t-ok", metrics.OutcomeOK)
		p.RunOnce(ctx)
		assert.Equal(t, 1, calls)
		assert.Equal(t, 1, locker.released)
		assert.Equal(t, before+1, runs("t-ok", metrics.OutcomeOK))
	})

	t.Run("SkipsWhenLeaseHeldElsewhere", func(t *testing.T) {
		locker := &fakeLocker{held: map[string]bool{"poller:t-held": true}}
		p := NewOrderPoller("t-held", func(context.Context) (businessflow.ReconcileStats, error) {
			t.Fatal("cycle must not run")
			return businessflow.ReconcileStats{}, nil
		}, time.Minute, time.Second, locker, nil)

		before := runs("t-held", metrics.OutcomeNoop)
		p.RunOnce(ctx)
		assert.Equal(t, before+1, runs("t-held", metrics.OutcomeNoop))
	})

	t.Run("LockErrorCountsAsError", func(t *testing.T) {
		locker := &fakeLocker{err: errors.New("redis: connection refused")}
		p := NewOrderPoller("t-lockerr", func(context.Context) (businessflow.ReconcileStats, error) {
			t.Fatal("cycle must not run")
			return businessflow.ReconcileStats{}, nil
		}, time.Minute, time.Second, locker, nil)

		before := runs("t-lockerr", metrics.OutcomeError)
		p.RunOnce(ctx)
		assert.Equal(t, before+1, runs("t-lockerr", metrics.OutcomeError))
	})

	t.Run("CycleErrorReleasesLease", func(t *testing.T) {
		locker := &fakeLocker{}
		p := NewOrderPoller("t-cycleerr", func(context.Context) (businessflow.ReconcileStats, error) {
			return businessflow.ReconcileStats{}, errors.New("provider down")
		}, time.Minute, time.Second, locker, nil)

		before := runs("t-cycleerr", metrics.OutcomeError)
		p.RunOnce(ctx)
		assert.Equal(t, before+1, runs("t-cycleerr", metrics.OutcomeError))
		assert.Equal(t, 1, locker.released)
	})

	t.Run("OverlappingRunIsSkipped", func(t *testing.T) {
		entered := make(chan struct{})
		unblock := make(chan struct{})
		var calls atomic.Int32
		p := NewOrderPoller("t-overlap", func(context.Context) (businessflow.ReconcileStats, error) {
			if calls.Add(1) == 1 {
				close(entered)
				<-unblock
			}
			return businessflow.ReconcileStats{}, nil
		}, time.Minute, time.Minute, nil, nil)

		done := make(chan struct{})
		go func() {
			p.RunOnce(ctx)
			close(done)
		}()
		<-entered
		p.RunOnce(ctx)
		close(unblock)
		<-done

		assert.Equal(t, int32(1), calls.Load())
	})
}

func TestOrderPoller_StartRunsImmediatelyAndStops(t *testing.T) {
	ran := make(chan struct{}, 1)
	p := NewOrderPoller("t-start", func(context.Context) (businessflow.ReconcileStats, error) {
		select {
		case ran <- struct{}{}:
		default:
		}
		return businessflow.ReconcileStats{}, nil
	}, time.Hour, time.Second, nil, nil)

	stop := p.Start(context.Background())
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		require.Fail(t, "first cycle did not run on start")
	}
	stop()
}
