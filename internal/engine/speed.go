package engine

import (
	"time"

	"github.com/ratewise/ratewise/internal/models"
)

// defaultSpeedUnitSeconds normalizes rating speed to a per-5-hour rate.
const defaultSpeedUnitSeconds = 18000

// RatingSpeedTracker computes a post's normalized rating speed and turns
// a burst's local rate into a damping weight.
type RatingSpeedTracker struct {
	unitSeconds float64
}

// NewRatingSpeedTracker creates a tracker with the given normalization
// unit in seconds; zero or negative falls back to 5 hours.
func NewRatingSpeedTracker(unitSeconds int) *RatingSpeedTracker {
	if unitSeconds <= 0 {
		unitSeconds = defaultSpeedUnitSeconds
	}
	return &RatingSpeedTracker{unitSeconds: float64(unitSeconds)}
}

// RecalculateSpeed derives the post's lifetime ratings-per-unit rate and
// stores it on the post. Returns the new speed. A post with no elapsed
// lifetime uses the bare count.
func (t *RatingSpeedTracker) RecalculateSpeed(post *models.Post, now time.Time) float64 {
	elapsed := now.Sub(post.CreatedAt).Seconds()

	var speed float64
	if elapsed > 0 {
		speed = models.Round3(float64(post.RatingsCount) / (elapsed / t.unitSeconds))
	} else {
		speed = float64(post.RatingsCount)
	}
	post.AverageRatingSpeed = speed
	return speed
}

// SpeedWeight converts a burst's size into a weight in [0,1]: the bigger
// the recent window count relative to the post's historical speed, the
// smaller the weight. recentWindowCount must be >= 1 (the caller only
// invokes this for a non-empty batch group).
func (t *RatingSpeedTracker) SpeedWeight(post *models.Post, recentWindowCount int) float64 {
	w := models.Round3(post.AverageRatingSpeed / float64(recentWindowCount))
	if w > 1 {
		return 1
	}
	return w
}
