package engine

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ratewise/ratewise/pkg/config"
	"github.com/ratewise/ratewise/pkg/logging"
	"github.com/ratewise/ratewise/pkg/telemetry"
)

// Scheduler runs the three periodic jobs. Each job gets its own ticker
// loop in a single goroutine, so invocations of the same job are
// serialized by construction: a tick that fires while the previous run
// is still in flight waits for it.
type Scheduler struct {
	reconcile *WeightReconciliationJob
	speed     *SpeedRecalculationJob
	trust     *TrustRecalculationJob
	jobs      *config.JobsConfig
	logger    *zap.Logger
}

// NewScheduler wires the jobs from the store and engine configuration.
// counters may be nil when telemetry is disabled.
func NewScheduler(store Store, engineCfg *config.EngineConfig, jobsCfg *config.JobsConfig,
	counters *telemetry.JobCounters) *Scheduler {
	outliers := NewOutlierDetector(engineCfg.OutlierMinSample)
	speedTracker := NewRatingSpeedTracker(engineCfg.SpeedUnitSeconds)
	trustEngine := NewTrustWeightEngine()

	return &Scheduler{
		reconcile: NewWeightReconciliationJob(store, outliers, speedTracker, jobsCfg.ReconcileLookback, counters),
		speed:     NewSpeedRecalculationJob(store, speedTracker, jobsCfg.SpeedLookback),
		trust:     NewTrustRecalculationJob(store, trustEngine, jobsCfg.TrustLookback),
		jobs:      jobsCfg,
		logger:    logging.WithComponent("scheduler"),
	}
}

// Run starts all job loops and blocks until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("Starting scheduler",
		zap.Duration("reconcile_interval", s.jobs.ReconcileInterval),
		zap.Duration("speed_interval", s.jobs.SpeedInterval),
		zap.Duration("trust_interval", s.jobs.TrustInterval))

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		s.runLoop(ctx, "weight_reconciliation", s.jobs.ReconcileInterval, func(ctx context.Context) error {
			_, err := s.reconcile.Run(ctx)
			return err
		})
	}()
	go func() {
		defer wg.Done()
		s.runLoop(ctx, "speed_recalculation", s.jobs.SpeedInterval, func(ctx context.Context) error {
			_, err := s.speed.Run(ctx)
			return err
		})
	}()
	go func() {
		defer wg.Done()
		s.runLoop(ctx, "trust_recalculation", s.jobs.TrustInterval, func(ctx context.Context) error {
			_, err := s.trust.Run(ctx)
			return err
		})
	}()

	wg.Wait()
	s.logger.Info("Scheduler stopped")
}

// runLoop runs one job on its interval until the context is cancelled.
// A failed run is only logged; the next tick retries, and retried work
// is safe because reconciliation only picks up still-unweighted rows.
func (s *Scheduler) runLoop(ctx context.Context, name string, interval time.Duration, run func(context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Job loop stopped", zap.String("job", name))
			return
		case <-ticker.C:
			if err := run(ctx); err != nil {
				s.logger.Error("Job run failed", zap.String("job", name), zap.Error(err))
			}
		}
	}
}
