package engine

import (
	"context"
	"testing"

	"github.com/ratewise/ratewise/internal/models"
)

func TestClassifyWithStats(t *testing.T) {
	detector := NewOutlierDetector(1000)

	tests := []struct {
		name     string
		score    int
		mean     float64
		stddev   float64
		count    int64
		expected bool
	}{
		{
			name:  "below minimum sample never flags",
			score: 1, mean: 4.5, stddev: 0.1, count: 999,
			expected: false,
		},
		{
			name:  "extreme score below minimum sample",
			score: 0, mean: 5, stddev: 0, count: 10,
			expected: false,
		},
		{
			// mean 4.5, sigma 0.5: band is [4, 5]
			name:  "score far below band",
			score: 0, mean: 4.5, stddev: 0.5, count: 1000,
			expected: true,
		},
		{
			name:  "score inside band",
			score: 4, mean: 4.5, stddev: 0.5, count: 1000,
			expected: false,
		},
		{
			name:  "score on band edge is not an outlier",
			score: 5, mean: 4.5, stddev: 0.5, count: 1000,
			expected: false,
		},
		{
			name:  "score just outside band",
			score: 3, mean: 4.5, stddev: 0.5, count: 1000,
			expected: true,
		},
		{
			// zero deviation degenerates to a zero-width band
			name:  "zero deviation differing score",
			score: 3, mean: 4, stddev: 0, count: 2000,
			expected: true,
		},
		{
			name:  "zero deviation equal score",
			score: 4, mean: 4, stddev: 0, count: 2000,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := detector.ClassifyWithStats(tt.score, tt.mean, tt.stddev, tt.count)
			if got != tt.expected {
				t.Errorf("ClassifyWithStats(%d, %v, %v, %d) = %v, want %v",
					tt.score, tt.mean, tt.stddev, tt.count, got, tt.expected)
			}
		})
	}
}

func TestClassifyFetchesStats(t *testing.T) {
	// 1000 historical ratings split between scores 4 and 5:
	// mean 4.5, sigma 0.5, band [4, 5].
	post := &models.Post{
		ID:                   1,
		RatingsCount:         1000,
		TotalScoreSum:        4500,
		TotalScoreSumSquared: 20500,
	}
	store := newMemStore()
	store.posts[post.ID] = post

	detector := NewOutlierDetector(1000)

	outlier, err := detector.Classify(context.Background(), store, &models.Rating{PostID: 1, Score: 1})
	if err != nil {
		t.Fatalf("Classify() error: %v", err)
	}
	if !outlier {
		t.Error("Expected score 1 against a 4/5 population to be an outlier")
	}

	outlier, err = detector.Classify(context.Background(), store, &models.Rating{PostID: 1, Score: 4})
	if err != nil {
		t.Fatalf("Classify() error: %v", err)
	}
	if outlier {
		t.Error("Expected score 4 against a 4/5 population not to be an outlier")
	}
}

func TestClassifyMissingPost(t *testing.T) {
	detector := NewOutlierDetector(1000)
	store := newMemStore()

	if _, err := detector.Classify(context.Background(), store, &models.Rating{PostID: 42, Score: 3}); err == nil {
		t.Error("Expected error for missing post")
	}
}
