// Package scheduler runs the background loops that reconcile provider orders
package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/amirphl/smm-panel/app/metrics"
	"github.com/amirphl/smm-panel/app/services"
	businessflow "github.com/amirphl/smm-panel/business_flow"
	"github.com/amirphl/smm-panel/config"
	"go.uber.org/zap"
)

const lockKeyPrefix = "poller:"

// Cycle is one reconciliation pass
type Cycle func(ctx context.Context) (businessflow.ReconcileStats, error)

// OrderPoller runs a Cycle on a fixed interval. A cycle is skipped while the
// previous one is still running here, or while another instance holds the lease.
type OrderPoller struct {
	name     string
	interval time.Duration
	lockTTL  time.Duration
	locker   services.Locker
	cycle    Cycle
	logger   *zap.Logger

	running atomic.Bool
}

func NewOrderPoller(name string, cycle Cycle, interval, lockTTL time.Duration, locker services.Locker, logger *zap.Logger) *OrderPoller {
	if interval <= 0 {
		interval = time.Minute
	}
	if lockTTL <= 0 {
		lockTTL = interval
	}
	if locker == nil {
		locker = services.LocalLocker{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderPoller{
		name:     name,
		interval: interval,
		lockTTL:  lockTTL,
		locker:   locker,
		cycle:    cycle,
		logger:   logger.With(zap.String("poller", name)),
	}
}

// NewSMSPoller polls the number-rental provider for every user with open orders
func NewSMSPoller(r businessflow.OrderReconciler, cfg config.SchedulerConfig, locker services.Locker, logger *zap.Logger) *OrderPoller {
	return NewOrderPoller(businessflow.PollerSMS, r.ReconcileSMS, cfg.SMSInterval, cfg.LockTTL, locker, logger)
}

// NewSMMPoller polls the SMM panel in batches of open orders
func NewSMMPoller(r businessflow.OrderReconciler, cfg config.SchedulerConfig, locker services.Locker, logger *zap.Logger) *OrderPoller {
	return NewOrderPoller(businessflow.PollerSMM, r.ReconcileSMM, cfg.SMMInterval, cfg.LockTTL, locker, logger)
}

// Start launches the loop in a background goroutine and returns a stop function
func (p *OrderPoller) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		p.RunOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.RunOnce(ctx)
			}
		}
	}()

	p.logger.Info("poller started", zap.Duration("interval", p.interval))
	return func() {
		cancel()
		<-done
		p.logger.Info("poller stopped")
	}
}

// RunOnce performs a single guarded cycle
func (p *OrderPoller) RunOnce(ctx context.Context) {
	if !p.running.CompareAndSwap(false, true) {
		p.logger.Debug("previous cycle still running, skipping")
		metrics.PollerRuns.WithLabelValues(p.name, metrics.OutcomeNoop).Inc()
		return
	}
	defer p.running.Store(false)

	release, ok, err := p.locker.TryLock(ctx, lockKeyPrefix+p.name, p.lockTTL)
	if err != nil {
		p.logger.Warn("poller lease unavailable", zap.Error(err))
		metrics.PollerRuns.WithLabelValues(p.name, metrics.OutcomeError).Inc()
		return
	}
	if !ok {
		p.logger.Debug("lease held by another instance")
		metrics.PollerRuns.WithLabelValues(p.name, metrics.OutcomeNoop).Inc()
		return
	}
	defer release()

	// the cycle must not outlive its lease
	cycleCtx, cancel := context.WithTimeout(ctx, p.lockTTL)
	defer cancel()

	started := time.Now()
	stats, err := p.cycle(cycleCtx)
	fields := []zap.Field{
		zap.Int("checked", stats.Checked),
		zap.Int("updated", stats.Updated),
		zap.Int("refunded", stats.Refunded),
		zap.Int("failed", stats.Failed),
		zap.Duration("took", time.Since(started)),
	}
	switch {
	case err != nil:
		p.logger.Error("poll cycle failed", append(fields, zap.Error(err))...)
		metrics.PollerRuns.WithLabelValues(p.name, metrics.OutcomeError).Inc()
	case stats.Updated == 0 && stats.Failed == 0:
		p.logger.Debug("poll cycle found nothing to do", fields...)
		metrics.PollerRuns.WithLabelValues(p.name, metrics.OutcomeNoop).Inc()
	default:
		p.logger.Info("poll cycle finished", fields...)
		metrics.PollerRuns.WithLabelValues(p.name, metrics.OutcomeOK).Inc()
	}
}
