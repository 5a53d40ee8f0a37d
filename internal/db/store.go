package db

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/ratewise/ratewise/internal/engine"
	"github.com/ratewise/ratewise/internal/models"
)

// Store implements engine.Store and engine.SubmissionStore against
// Postgres by composing the per-entity repositories.
type Store struct {
	db       *gorm.DB
	posts    *PostRepository
	ratings  *RatingRepository
	accounts *AccountRepository
}

// NewStore creates a store backed by the given database
func NewStore(database *DB) *Store {
	repo := NewRepository(database.DB)
	return &Store{
		db:       database.DB,
		posts:    NewPostRepository(repo),
		ratings:  NewRatingRepository(repo),
		accounts: NewAccountRepository(repo),
	}
}

// Posts exposes the post repository for the API layer
func (s *Store) Posts() *PostRepository { return s.posts }

// Ratings exposes the rating repository for the API layer
func (s *Store) Ratings() *RatingRepository { return s.ratings }

// Accounts exposes the account repository for the API layer
func (s *Store) Accounts() *AccountRepository { return s.accounts }

// CreatePost creates a new post
func (s *Store) CreatePost(ctx context.Context, post *models.Post) error {
	return s.posts.Create(ctx, post)
}

// RecentPosts retrieves the most recently created posts
func (s *Store) RecentPosts(ctx context.Context, limit int) ([]*models.Post, error) {
	return s.posts.ListRecent(ctx, limit)
}

// UnweightedRatings implements engine.Store
func (s *Store) UnweightedRatings(ctx context.Context, since time.Time) ([]*models.Rating, error) {
	return s.ratings.Unweighted(ctx, since)
}

// PostByID implements engine.Store
func (s *Store) PostByID(ctx context.Context, id int64) (*models.Post, error) {
	return s.posts.GetByID(ctx, id)
}

// AccountByID implements engine.Store
func (s *Store) AccountByID(ctx context.Context, id int64) (*models.Account, error) {
	return s.accounts.GetByID(ctx, id)
}

// CommitReconciliation applies one reconciliation pass in a single
// transaction: the ratings' weight and outlier flags, plus exactly one
// aggregate increment per touched post and per touched user. Increments
// use column expressions so concurrent raw-statistic writers on the same
// rows are never overwritten.
func (s *Store) CommitReconciliation(ctx context.Context, ratings []*models.Rating,
	postDeltas map[int64]engine.PostDelta, trustDeltas map[int64]float64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, rating := range ratings {
			if err := tx.Model(&models.Rating{}).
				Where("id = ?", rating.ID).
				UpdateColumns(map[string]interface{}{
					"weight":     rating.Weight,
					"is_outlier": rating.IsOutlier,
				}).Error; err != nil {
				return fmt.Errorf("failed to update rating %d: %w", rating.ID, err)
			}
		}
		for postID, delta := range postDeltas {
			if err := tx.Model(&models.Post{}).
				Where("id = ?", postID).
				UpdateColumns(map[string]interface{}{
					"weighted_total_score_sum": gorm.Expr("weighted_total_score_sum + ?", delta.WeightedScoreSum),
					"weighted_ratings_count":   gorm.Expr("weighted_ratings_count + ?", delta.WeightedCount),
				}).Error; err != nil {
				return fmt.Errorf("failed to increment post %d aggregates: %w", postID, err)
			}
		}
		for accountID, delta := range trustDeltas {
			if err := tx.Model(&models.Account{}).
				Where("id = ?", accountID).
				UpdateColumn("total_trust_contribution", gorm.Expr("total_trust_contribution + ?", delta)).
				Error; err != nil {
				return fmt.Errorf("failed to increment account %d contribution: %w", accountID, err)
			}
		}
		return nil
	})
}

// PostsRatedSince implements engine.Store
func (s *Store) PostsRatedSince(ctx context.Context, since time.Time) ([]*models.Post, error) {
	return s.posts.RatedSince(ctx, since)
}

// AccountsRatedSince implements engine.Store
func (s *Store) AccountsRatedSince(ctx context.Context, since time.Time) ([]*models.Account, error) {
	return s.accounts.RatedSince(ctx, since)
}

// SaveAverageRatingSpeed implements engine.Store
func (s *Store) SaveAverageRatingSpeed(ctx context.Context, postID int64, speed float64) error {
	return s.posts.SaveAverageRatingSpeed(ctx, postID, speed)
}

// SaveTrustWeight implements engine.Store
func (s *Store) SaveTrustWeight(ctx context.Context, accountID int64, weight float64) error {
	return s.accounts.SaveTrustWeight(ctx, accountID, weight)
}

// RatingByPostUser implements engine.SubmissionStore
func (s *Store) RatingByPostUser(ctx context.Context, postID, userID int64) (*models.Rating, error) {
	return s.ratings.GetByPostUser(ctx, postID, userID)
}

// CreateRating implements engine.SubmissionStore
func (s *Store) CreateRating(ctx context.Context, rating *models.Rating) error {
	return s.ratings.Create(ctx, rating)
}

// UpdateRatingScore implements engine.SubmissionStore
func (s *Store) UpdateRatingScore(ctx context.Context, ratingID int64, score int) error {
	return s.ratings.UpdateScore(ctx, ratingID, score)
}

// RecordRawScore implements engine.SubmissionStore
func (s *Store) RecordRawScore(ctx context.Context, postID int64, score int) error {
	return s.posts.RecordRawScore(ctx, postID, score)
}

// IncrementRatingsSubmitted implements engine.SubmissionStore
func (s *Store) IncrementRatingsSubmitted(ctx context.Context, accountID int64) error {
	return s.accounts.IncrementRatingsSubmitted(ctx, accountID)
}

// AddWeightedScoreDelta implements engine.SubmissionStore
func (s *Store) AddWeightedScoreDelta(ctx context.Context, postID int64, delta float64) error {
	return s.posts.AddWeightedScoreDelta(ctx, postID, delta)
}

// Compile-time interface checks
var (
	_ engine.Store           = (*Store)(nil)
	_ engine.SubmissionStore = (*Store)(nil)
)
