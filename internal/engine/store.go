package engine

import (
	"context"
	"time"

	"github.com/ratewise/ratewise/internal/models"
)

// PostDelta is the locally summed weighted contribution of one
// reconciliation pass to a single post.
type PostDelta struct {
	WeightedScoreSum float64
	WeightedCount    float64
}

// Store is the durable storage contract the periodic jobs depend on.
// Jobs receive it as an explicit dependency; there are no process-wide
// singletons. internal/db implements it against Postgres.
type Store interface {
	// UnweightedRatings returns ratings with no weight assigned yet,
	// created at or after the given time.
	UnweightedRatings(ctx context.Context, since time.Time) ([]*models.Rating, error)

	// PostByID returns (nil, nil) when the post does not exist.
	PostByID(ctx context.Context, id int64) (*models.Post, error)

	// AccountByID returns (nil, nil) when the account does not exist.
	AccountByID(ctx context.Context, id int64) (*models.Account, error)

	// CommitReconciliation applies the outcome of one reconciliation pass
	// as a single commit unit: the ratings' weight and outlier flags, one
	// increment per touched post and one increment per touched user.
	// Either all of it becomes visible or none of it does.
	CommitReconciliation(ctx context.Context, ratings []*models.Rating,
		postDeltas map[int64]PostDelta, trustDeltas map[int64]float64) error

	// PostsRatedSince returns posts that received ratings at or after the
	// given time.
	PostsRatedSince(ctx context.Context, since time.Time) ([]*models.Post, error)

	// AccountsRatedSince returns accounts that submitted ratings at or
	// after the given time.
	AccountsRatedSince(ctx context.Context, since time.Time) ([]*models.Account, error)

	// SaveAverageRatingSpeed persists a recomputed rating speed.
	SaveAverageRatingSpeed(ctx context.Context, postID int64, speed float64) error

	// SaveTrustWeight persists a recomputed trust weight.
	SaveTrustWeight(ctx context.Context, accountID int64, weight float64) error
}
