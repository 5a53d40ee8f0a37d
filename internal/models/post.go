package models

import (
	"math"
	"time"
)

// Post represents a rateable post with its running rating statistics.
//
// RatingsCount, TotalScoreSum and TotalScoreSumSquared are raw statistics
// incremented atomically on the submission path. WeightedTotalScoreSum and
// WeightedRatingsCount accumulate only weighted contributions and are
// incremented by the reconciliation job. The two field sets are disjoint,
// so the writers never contend on the same columns.
type Post struct {
	ID      int64  `gorm:"primaryKey;autoIncrement;column:id"`
	Title   string `gorm:"type:varchar(100);not null;column:title"`
	Content string `gorm:"type:text;column:content"`

	RatingsCount         int64 `gorm:"not null;default:0;column:ratings_count"`
	TotalScoreSum        int64 `gorm:"not null;default:0;column:total_score_sum"`
	TotalScoreSumSquared int64 `gorm:"not null;default:0;column:total_score_sum_squared"`

	WeightedTotalScoreSum float64 `gorm:"not null;default:0;column:weighted_total_score_sum"`
	WeightedRatingsCount  float64 `gorm:"not null;default:0;column:weighted_ratings_count"`

	// Ratings per speed unit (5 hours by default), refreshed periodically
	AverageRatingSpeed float64 `gorm:"not null;default:0;column:average_rating_speed"`

	CreatedAt time.Time `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for Post
func (Post) TableName() string {
	return "rw_posts"
}

// Mean returns the unweighted average score. The second return value is
// false when the post has no ratings yet.
func (p *Post) Mean() (float64, bool) {
	if p.RatingsCount == 0 {
		return 0, false
	}
	return Round3(float64(p.TotalScoreSum) / float64(p.RatingsCount)), true
}

// StdDev returns the standard deviation of scores, derived from the
// running sum and sum of squares. False when the post has no ratings.
func (p *Post) StdDev() (float64, bool) {
	mean, ok := p.Mean()
	if !ok {
		return 0, false
	}
	variance := float64(p.TotalScoreSumSquared)/float64(p.RatingsCount) - mean*mean
	if variance < 0 {
		// Floating point noise around zero variance
		variance = 0
	}
	return Round3(math.Sqrt(variance)), true
}

// WeightedMean returns the weighted average score, the value the read
// path displays. False when no weighted contributions exist yet.
func (p *Post) WeightedMean() (float64, bool) {
	if p.WeightedRatingsCount == 0 {
		return 0, false
	}
	return Round3(p.WeightedTotalScoreSum / p.WeightedRatingsCount), true
}

// Round3 rounds to 3 decimal places, the precision every stored weight
// and derived statistic uses.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
