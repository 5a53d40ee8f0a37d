package models

import (
	"database/sql"
	"time"
)

// Rating is a single user's 1-5 score for a post. A user holds at most
// one rating per post; re-submission updates the existing row.
//
// Weight is null until the reconciliation job assigns it, which is also
// what makes reconciliation idempotent: the job only selects rows where
// weight is still null.
type Rating struct {
	ID        int64           `gorm:"primaryKey;autoIncrement;column:id"`
	PostID    int64           `gorm:"not null;uniqueIndex:rw_ratings_ux1;index;column:post_id"`
	UserID    int64           `gorm:"not null;uniqueIndex:rw_ratings_ux1;index;column:user_id"`
	Score     int             `gorm:"not null;column:score"`
	Weight    sql.NullFloat64 `gorm:"column:weight"`
	IsOutlier bool            `gorm:"not null;default:false;column:is_outlier"`
	CreatedAt time.Time       `gorm:"not null;index;column:created_at"`
}

// TableName specifies the table name for Rating
func (Rating) TableName() string {
	return "rw_ratings"
}

// Weighted reports whether the reconciliation job has already assigned
// a weight to this rating.
func (r *Rating) Weighted() bool {
	return r.Weight.Valid
}

// ScoreMin and ScoreMax bound the accepted rating scale. Scores outside
// this range are rejected at the submission boundary and never reach
// the engine.
const (
	ScoreMin = 1
	ScoreMax = 5
)
