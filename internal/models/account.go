package models

import (
	"time"
)

// Account represents a rating user and their trust profile.
//
// RatingsSubmittedCount is incremented by the submission path.
// TotalTrustContribution accumulates the weights the user's ratings have
// received and is incremented only by the reconciliation job. TrustWeight
// is recomputed from the committed values by the trust recalculation job,
// never mutated directly on submission.
type Account struct {
	ID   int64  `gorm:"primaryKey;autoIncrement;column:id"`
	Name string `gorm:"type:varchar(150);not null;uniqueIndex:rw_accounts_ux1;column:name"`

	RatingsSubmittedCount  int64   `gorm:"not null;default:0;column:ratings_submitted_count"`
	TotalTrustContribution float64 `gorm:"not null;default:0;column:total_trust_contribution"`
	TrustWeight            float64 `gorm:"not null;default:0.1;column:trust_weight"`

	CreatedAt time.Time `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for Account
func (Account) TableName() string {
	return "rw_accounts"
}

// AgeDays returns the account age in whole days at the given time.
func (a *Account) AgeDays(now time.Time) int {
	return int(now.Sub(a.CreatedAt).Hours() / 24)
}

// RateQuality returns the average weight the user's ratings have earned.
// False when the user has no committed contributions yet.
func (a *Account) RateQuality() (float64, bool) {
	if a.RatingsSubmittedCount == 0 || a.TotalTrustContribution == 0 {
		return 0, false
	}
	return Round3(a.TotalTrustContribution / float64(a.RatingsSubmittedCount)), true
}
