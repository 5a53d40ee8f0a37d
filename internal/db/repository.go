package db

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/ratewise/ratewise/internal/engine"
	"github.com/ratewise/ratewise/internal/models"
)

// Repository provides database access methods
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// PostRepository provides post-related database operations
type PostRepository struct {
	*Repository
}

// NewPostRepository creates a new post repository
func NewPostRepository(repo *Repository) *PostRepository {
	return &PostRepository{Repository: repo}
}

// GetByID retrieves a post by ID
func (r *PostRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &post, nil
}

// Create creates a new post
func (r *PostRepository) Create(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

// ListRecent retrieves the most recently created posts
func (r *PostRepository) ListRecent(ctx context.Context, limit int) ([]*models.Post, error) {
	var posts []*models.Post
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// RecordRawScore atomically increments the post's raw running statistics.
// Applied as column expressions so concurrent submissions for the same
// post never lose an update.
func (r *PostRepository) RecordRawScore(ctx context.Context, postID int64, score int) error {
	return r.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", postID).
		UpdateColumns(map[string]interface{}{
			"ratings_count":           gorm.Expr("ratings_count + 1"),
			"total_score_sum":         gorm.Expr("total_score_sum + ?", score),
			"total_score_sum_squared": gorm.Expr("total_score_sum_squared + ?", score*score),
		}).Error
}

// AddWeightedScoreDelta atomically adjusts the post's weighted score sum
// (the edit-after-weighting path).
func (r *PostRepository) AddWeightedScoreDelta(ctx context.Context, postID int64, delta float64) error {
	return r.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", postID).
		UpdateColumn("weighted_total_score_sum", gorm.Expr("weighted_total_score_sum + ?", delta)).
		Error
}

// SaveAverageRatingSpeed persists a recomputed rating speed
func (r *PostRepository) SaveAverageRatingSpeed(ctx context.Context, postID int64, speed float64) error {
	return r.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", postID).
		UpdateColumn("average_rating_speed", speed).
		Error
}

// RatedSince retrieves posts that received ratings at or after the given time
func (r *PostRepository) RatedSince(ctx context.Context, since time.Time) ([]*models.Post, error) {
	var posts []*models.Post
	if err := r.db.WithContext(ctx).
		Where("id IN (?)", r.db.Model(&models.Rating{}).
			Select("DISTINCT post_id").
			Where("created_at >= ?", since)).
		Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// RatingRepository provides rating-related database operations
type RatingRepository struct {
	*Repository
}

// NewRatingRepository creates a new rating repository
func NewRatingRepository(repo *Repository) *RatingRepository {
	return &RatingRepository{Repository: repo}
}

// GetByPostUser retrieves a user's rating for a post; (nil, nil) when the
// user has not rated it.
func (r *RatingRepository) GetByPostUser(ctx context.Context, postID, userID int64) (*models.Rating, error) {
	var rating models.Rating
	if err := r.db.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postID, userID).
		First(&rating).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rating, nil
}

// Create inserts a new rating, mapping the (post_id, user_id) unique
// violation to engine.ErrDuplicateRating.
func (r *RatingRepository) Create(ctx context.Context, rating *models.Rating) error {
	if err := r.db.WithContext(ctx).Create(rating).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return engine.ErrDuplicateRating
		}
		return err
	}
	return nil
}

// UpdateScore updates the score of an existing rating
func (r *RatingRepository) UpdateScore(ctx context.Context, ratingID int64, score int) error {
	return r.db.WithContext(ctx).Model(&models.Rating{}).
		Where("id = ?", ratingID).
		UpdateColumn("score", score).
		Error
}

// Unweighted retrieves ratings with no weight assigned, created at or
// after the given time.
func (r *RatingRepository) Unweighted(ctx context.Context, since time.Time) ([]*models.Rating, error) {
	var ratings []*models.Rating
	if err := r.db.WithContext(ctx).
		Where("weight IS NULL AND created_at >= ?", since).
		Find(&ratings).Error; err != nil {
		return nil, err
	}
	return ratings, nil
}

// AccountRepository provides account-related database operations
type AccountRepository struct {
	*Repository
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(repo *Repository) *AccountRepository {
	return &AccountRepository{Repository: repo}
}

// GetByID retrieves an account by ID
func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).First(&account, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// GetByName retrieves an account by name
func (r *AccountRepository) GetByName(ctx context.Context, name string) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// Create creates a new account
func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	return r.db.WithContext(ctx).Create(account).Error
}

// IncrementRatingsSubmitted atomically increments the submission counter
func (r *AccountRepository) IncrementRatingsSubmitted(ctx context.Context, accountID int64) error {
	return r.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ?", accountID).
		UpdateColumn("ratings_submitted_count", gorm.Expr("ratings_submitted_count + 1")).
		Error
}

// SaveTrustWeight persists a recomputed trust weight
func (r *AccountRepository) SaveTrustWeight(ctx context.Context, accountID int64, weight float64) error {
	return r.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ?", accountID).
		UpdateColumn("trust_weight", weight).
		Error
}

// RatedSince retrieves accounts that submitted ratings at or after the
// given time.
func (r *AccountRepository) RatedSince(ctx context.Context, since time.Time) ([]*models.Account, error) {
	var accounts []*models.Account
	if err := r.db.WithContext(ctx).
		Where("id IN (?)", r.db.Model(&models.Rating{}).
			Select("DISTINCT user_id").
			Where("created_at >= ?", since)).
		Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}
