package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ratewise/ratewise/internal/models"
	"github.com/ratewise/ratewise/pkg/logging"
	"github.com/ratewise/ratewise/pkg/telemetry"
)

// Weight combination policy: trust counts twice as heavily as speed.
const (
	speedWeightRatio = 1
	trustWeightRatio = 2
)

// ReconcileResult reports what one reconciliation run touched.
type ReconcileResult struct {
	RatingsReconciled int
	PostsTouched      int
	UsersTouched      int
}

// WeightReconciliationJob is the periodic batch pass that assigns weight
// and outlier status to ratings that have none yet, and folds the
// results into post and user aggregates.
//
// A rating is reconciled exactly once under normal operation: the
// selection filter excludes rows that already carry a weight, so re-runs
// (including retries after a failed commit) are no-ops for already
// weighted rows.
type WeightReconciliationJob struct {
	store    Store
	outliers *OutlierDetector
	speed    *RatingSpeedTracker
	lookback time.Duration
	counters *telemetry.JobCounters
	logger   *zap.Logger
}

// NewWeightReconciliationJob creates the reconciliation job. counters may
// be nil when telemetry is disabled.
func NewWeightReconciliationJob(store Store, outliers *OutlierDetector, speed *RatingSpeedTracker,
	lookback time.Duration, counters *telemetry.JobCounters) *WeightReconciliationJob {
	return &WeightReconciliationJob{
		store:    store,
		outliers: outliers,
		speed:    speed,
		lookback: lookback,
		counters: counters,
		logger:   logging.WithJob("weight_reconciliation"),
	}
}

// Run executes one reconciliation pass.
func (j *WeightReconciliationJob) Run(ctx context.Context) (*ReconcileResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "job.weight_reconciliation")
	defer span.End()

	now := time.Now().UTC()
	since := now.Add(-j.lookback)

	ratings, err := j.store.UnweightedRatings(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to select unweighted ratings: %w", err)
	}
	if len(ratings) == 0 {
		j.logger.Debug("No unweighted ratings in window")
		return &ReconcileResult{}, nil
	}

	// Phase 1: group ratings by post.
	groups := make(map[int64][]*models.Rating)
	for _, rating := range ratings {
		groups[rating.PostID] = append(groups[rating.PostID], rating)
	}

	// Phase 2: process each group. Deltas are summed locally and applied
	// as one increment per post/user, never as per-rating writes.
	postDeltas := make(map[int64]PostDelta)
	trustDeltas := make(map[int64]float64)
	accounts := make(map[int64]*models.Account)
	reconciled := make([]*models.Rating, 0, len(ratings))

	for postID, group := range groups {
		post, err := j.store.PostByID(ctx, postID)
		if err != nil {
			return nil, fmt.Errorf("failed to load post %d: %w", postID, err)
		}
		if post == nil {
			j.logger.Warn("Skipping ratings for missing post", zap.Int64("post_id", postID))
			continue
		}

		// One speed weight per post, reused for every rating in the group.
		speedWeight := j.speed.SpeedWeight(post, len(group))

		// Snapshot of the post's statistics taken before any of this
		// run's aggregate writes; every rating in the group is judged
		// against the same history.
		mean, meanOK := post.Mean()
		stddev, _ := post.StdDev()

		delta := PostDelta{}
		processed := 0
		for _, rating := range group {
			account := accounts[rating.UserID]
			if account == nil {
				account, err = j.store.AccountByID(ctx, rating.UserID)
				if err != nil {
					return nil, fmt.Errorf("failed to load account %d: %w", rating.UserID, err)
				}
				if account == nil {
					j.logger.Warn("Skipping rating for missing account",
						zap.Int64("rating_id", rating.ID),
						zap.Int64("user_id", rating.UserID))
					continue
				}
				accounts[rating.UserID] = account
			}

			isOutlier := false
			if meanOK {
				isOutlier = j.outliers.ClassifyWithStats(rating.Score, mean, stddev, post.RatingsCount)
			}

			weight := combineWeight(speedWeight, account.TrustWeight, isOutlier)

			rating.IsOutlier = isOutlier
			rating.Weight.Float64 = weight
			rating.Weight.Valid = true
			reconciled = append(reconciled, rating)
			processed++

			delta.WeightedScoreSum += float64(rating.Score) * weight
			delta.WeightedCount += weight
			trustDeltas[rating.UserID] += weight
		}
		if processed > 0 {
			postDeltas[postID] = delta
		}
	}

	if len(reconciled) == 0 {
		return &ReconcileResult{}, nil
	}

	if err := j.store.CommitReconciliation(ctx, reconciled, postDeltas, trustDeltas); err != nil {
		return nil, fmt.Errorf("failed to commit reconciliation: %w", err)
	}

	result := &ReconcileResult{
		RatingsReconciled: len(reconciled),
		PostsTouched:      len(postDeltas),
		UsersTouched:      len(trustDeltas),
	}

	if j.counters != nil {
		j.counters.RatingsReconciled.Add(ctx, int64(result.RatingsReconciled))
		j.counters.PostsTouched.Add(ctx, int64(result.PostsTouched))
		j.counters.UsersTouched.Add(ctx, int64(result.UsersTouched))
	}

	j.logger.Info("Reconciliation run complete",
		zap.Int("ratings_reconciled", result.RatingsReconciled),
		zap.Int("posts_touched", result.PostsTouched),
		zap.Int("users_touched", result.UsersTouched))

	return result, nil
}

// combineWeight computes a rating's final weight: zero for outliers,
// otherwise the ratio-weighted average of speed and trust weights.
func combineWeight(speedWeight, trustWeight float64, isOutlier bool) float64 {
	if isOutlier {
		return 0
	}
	weight := (speedWeightRatio*speedWeight + trustWeightRatio*trustWeight) /
		(speedWeightRatio + trustWeightRatio)
	return models.Round3(weight)
}
