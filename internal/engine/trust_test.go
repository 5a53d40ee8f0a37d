package engine

import (
	"testing"
	"time"

	"github.com/ratewise/ratewise/internal/models"
)

var trustNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func trustAccount(ageDays int, submitted int64, contribution float64) *models.Account {
	return &models.Account{
		CreatedAt:              trustNow.AddDate(0, 0, -ageDays),
		RatingsSubmittedCount:  submitted,
		TotalTrustContribution: contribution,
	}
}

func TestAccountTierWeight(t *testing.T) {
	engine := NewTrustWeightEngine()

	tests := []struct {
		name     string
		account  *models.Account
		expected float64
	}{
		{
			name:     "new account",
			account:  trustAccount(5, 0, 0),
			expected: 0.1,
		},
		{
			// age gate short-circuits: heavy activity does not matter
			name:     "new account with many ratings",
			account:  trustAccount(29, 500, 0),
			expected: 0.1,
		},
		{
			name:     "aged account few ratings",
			account:  trustAccount(35, 5, 0),
			expected: 0.2,
		},
		{
			name:     "bronze boundary",
			account:  trustAccount(35, 10, 0),
			expected: 0.5,
		},
		{
			name:     "silver tier",
			account:  trustAccount(100, 39, 0),
			expected: 0.5,
		},
		{
			name:     "gold tier",
			account:  trustAccount(100, 69, 0),
			expected: 0.7,
		},
		{
			name:     "platinum tier",
			account:  trustAccount(400, 70, 0),
			expected: 1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engine.AccountTierWeight(tt.account, trustNow)
			if got != tt.expected {
				t.Errorf("AccountTierWeight() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRecompute(t *testing.T) {
	engine := NewTrustWeightEngine()

	tests := []struct {
		name     string
		account  *models.Account
		expected float64
	}{
		{
			// no contribution yet: tier weight only
			name:     "aged account without contribution",
			account:  trustAccount(35, 5, 0),
			expected: 0.2,
		},
		{
			// tier 0.2, quality 2.5/5 = 0.5; (0.2 + 0.5) / 2
			name:     "tier and quality averaged",
			account:  trustAccount(100, 5, 2.5),
			expected: 0.35,
		},
		{
			// quality 1; platinum tier 1
			name:     "perfect history",
			account:  trustAccount(400, 100, 100),
			expected: 1.0,
		},
		{
			// tier 0.2, quality 1/4 = 0.25; (0.2 + 0.25) / 2
			name:     "rounded result",
			account:  trustAccount(35, 4, 1),
			expected: 0.225,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engine.Recompute(tt.account, trustNow)
			if got != tt.expected {
				t.Errorf("Recompute() = %v, want %v", got, tt.expected)
			}
			if tt.account.TrustWeight != tt.expected {
				t.Errorf("TrustWeight = %v, want %v", tt.account.TrustWeight, tt.expected)
			}
		})
	}
}
