package engine

import (
	"context"
	"fmt"

	"github.com/ratewise/ratewise/internal/models"
)

const (
	// defaultOutlierMinSample is the minimum historical sample before the
	// distribution is trusted enough to flag anything.
	defaultOutlierMinSample = 1000

	// stdDevRatio of 1 keeps the 68% band: flagging is deliberately
	// aggressive compared to the usual 2-3 sigma.
	stdDevRatio = 1.0
)

// OutlierDetector classifies a single rating as statistically anomalous
// relative to a post's historical score distribution.
type OutlierDetector struct {
	minSample int64
}

// NewOutlierDetector creates a detector with the given minimum sample
// size; zero or negative falls back to the default of 1000.
func NewOutlierDetector(minSample int) *OutlierDetector {
	if minSample <= 0 {
		minSample = defaultOutlierMinSample
	}
	return &OutlierDetector{minSample: int64(minSample)}
}

// ClassifyWithStats is the batch path: the caller supplies the post's
// precomputed mean, standard deviation and ratings count, typically a
// snapshot taken once per post before processing its batch group.
//
// Never flags while the sample is below the minimum. Above it, a score
// outside [mean-sigma, mean+sigma] is an outlier. With zero deviation the
// band degenerates to the mean itself: any differing score is flagged.
func (d *OutlierDetector) ClassifyWithStats(score int, mean, stddev float64, ratingsCount int64) bool {
	if ratingsCount < d.minSample {
		return false
	}
	min := mean - stdDevRatio*stddev
	max := mean + stdDevRatio*stddev
	s := float64(score)
	return s < min || s > max
}

// Classify is the single-rating path: it fetches the post's statistics
// from the store itself. The batch job uses ClassifyWithStats instead to
// avoid refetching the post per rating.
func (d *OutlierDetector) Classify(ctx context.Context, store Store, rating *models.Rating) (bool, error) {
	post, err := store.PostByID(ctx, rating.PostID)
	if err != nil {
		return false, fmt.Errorf("failed to load post %d: %w", rating.PostID, err)
	}
	if post == nil {
		return false, fmt.Errorf("post %d not found", rating.PostID)
	}

	mean, ok := post.Mean()
	if !ok {
		return false, nil
	}
	stddev, _ := post.StdDev()
	return d.ClassifyWithStats(rating.Score, mean, stddev, post.RatingsCount), nil
}
