package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ratewise/ratewise/pkg/logging"
	"github.com/ratewise/ratewise/pkg/telemetry"
)

// SpeedRecalculationJob refreshes average_rating_speed for every post
// with recent rating activity. It is a pure refresh pass and never
// touches rating weights.
type SpeedRecalculationJob struct {
	store    Store
	speed    *RatingSpeedTracker
	lookback time.Duration
	logger   *zap.Logger
}

// NewSpeedRecalculationJob creates the speed refresh job
func NewSpeedRecalculationJob(store Store, speed *RatingSpeedTracker, lookback time.Duration) *SpeedRecalculationJob {
	return &SpeedRecalculationJob{
		store:    store,
		speed:    speed,
		lookback: lookback,
		logger:   logging.WithJob("speed_recalculation"),
	}
}

// Run executes one refresh pass.
func (j *SpeedRecalculationJob) Run(ctx context.Context) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "job.speed_recalculation")
	defer span.End()

	now := time.Now().UTC()

	posts, err := j.store.PostsRatedSince(ctx, now.Add(-j.lookback))
	if err != nil {
		return 0, fmt.Errorf("failed to select recently rated posts: %w", err)
	}

	for _, post := range posts {
		speed := j.speed.RecalculateSpeed(post, now)
		if err := j.store.SaveAverageRatingSpeed(ctx, post.ID, speed); err != nil {
			return 0, fmt.Errorf("failed to save rating speed for post %d: %w", post.ID, err)
		}
	}

	j.logger.Info("Speed recalculation run complete", zap.Int("posts_touched", len(posts)))
	return len(posts), nil
}

// TrustRecalculationJob refreshes trust_weight for every account with
// recent rating activity, from its committed submission count and trust
// contribution. It never touches rating weights.
type TrustRecalculationJob struct {
	store    Store
	trust    *TrustWeightEngine
	lookback time.Duration
	logger   *zap.Logger
}

// NewTrustRecalculationJob creates the trust refresh job
func NewTrustRecalculationJob(store Store, trust *TrustWeightEngine, lookback time.Duration) *TrustRecalculationJob {
	return &TrustRecalculationJob{
		store:    store,
		trust:    trust,
		lookback: lookback,
		logger:   logging.WithJob("trust_recalculation"),
	}
}

// Run executes one refresh pass.
func (j *TrustRecalculationJob) Run(ctx context.Context) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "job.trust_recalculation")
	defer span.End()

	now := time.Now().UTC()

	accounts, err := j.store.AccountsRatedSince(ctx, now.Add(-j.lookback))
	if err != nil {
		return 0, fmt.Errorf("failed to select recently active accounts: %w", err)
	}

	for _, account := range accounts {
		weight := j.trust.Recompute(account, now)
		if err := j.store.SaveTrustWeight(ctx, account.ID, weight); err != nil {
			return 0, fmt.Errorf("failed to save trust weight for account %d: %w", account.ID, err)
		}
	}

	j.logger.Info("Trust recalculation run complete", zap.Int("users_touched", len(accounts)))
	return len(accounts), nil
}
