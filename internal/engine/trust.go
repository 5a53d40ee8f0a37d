package engine

import (
	"time"

	"github.com/ratewise/ratewise/internal/models"
)

// Account tier policy: accounts younger than 30 days are capped at the
// new-account weight regardless of activity; older accounts climb the
// tiers by submitted-ratings count.
const (
	newAccountAgeDays = 30

	bronzeRatingsThreshold = 10
	silverRatingsThreshold = 40
	goldRatingsThreshold   = 70

	weightNewAccount      = 0.1
	weightBronzeAccount   = 0.2
	weightSilverAccount   = 0.5
	weightGoldAccount     = 0.7
	weightPlatinumAccount = 1.0
)

// TrustWeightEngine computes a per-user trust weight from account-age
// tier and historical rating quality.
type TrustWeightEngine struct{}

// NewTrustWeightEngine creates a trust weight engine
func NewTrustWeightEngine() *TrustWeightEngine {
	return &TrustWeightEngine{}
}

// AccountTierWeight returns the tier weight for the account at the given
// time. The age gate is checked first and short-circuits: ratings-count
// tiers only apply once the account has aged past 30 days.
func (e *TrustWeightEngine) AccountTierWeight(account *models.Account, now time.Time) float64 {
	if account.AgeDays(now) < newAccountAgeDays {
		return weightNewAccount
	}
	switch {
	case account.RatingsSubmittedCount < bronzeRatingsThreshold:
		return weightBronzeAccount
	case account.RatingsSubmittedCount < silverRatingsThreshold:
		return weightSilverAccount
	case account.RatingsSubmittedCount < goldRatingsThreshold:
		return weightGoldAccount
	default:
		return weightPlatinumAccount
	}
}

// Recompute derives the account's trust weight from its tier weight and
// rate quality (equal-weighted average when quality is defined, tier
// weight alone otherwise), sets it on the account and returns it.
// Persisting the result is the caller's concern.
func (e *TrustWeightEngine) Recompute(account *models.Account, now time.Time) float64 {
	tier := e.AccountTierWeight(account, now)

	weight := tier
	if quality, ok := account.RateQuality(); ok {
		weight = models.Round3((tier + quality) / 2)
	}
	account.TrustWeight = weight
	return weight
}
