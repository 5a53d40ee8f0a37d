package engine

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ratewise/ratewise/internal/models"
	"github.com/ratewise/ratewise/pkg/logging"
)

// ErrDuplicateRating is returned by SubmissionStore.CreateRating when the
// (post_id, user_id) uniqueness constraint rejects an insert. The
// submission path falls back to an update.
var ErrDuplicateRating = errors.New("rating already exists for post and user")

// ErrPostNotFound is returned when a rating references a missing post.
var ErrPostNotFound = errors.New("post not found")

// ErrAccountNotFound is returned when a rating references a missing account.
var ErrAccountNotFound = errors.New("account not found")

// SubmissionStore is the storage contract of the synchronous submission
// path. Raw-statistic increments must be applied as atomic deltas at the
// storage layer, not read-modify-write.
type SubmissionStore interface {
	PostByID(ctx context.Context, id int64) (*models.Post, error)
	AccountByID(ctx context.Context, id int64) (*models.Account, error)

	// RatingByPostUser returns (nil, nil) when the user has not rated the
	// post; absence is not an error.
	RatingByPostUser(ctx context.Context, postID, userID int64) (*models.Rating, error)

	// CreateRating inserts a new rating, returning ErrDuplicateRating on
	// a (post_id, user_id) conflict.
	CreateRating(ctx context.Context, rating *models.Rating) error

	// UpdateRatingScore updates the score of an existing rating.
	UpdateRatingScore(ctx context.Context, ratingID int64, score int) error

	// RecordRawScore atomically increments the post's running statistics:
	// ratings_count, total_score_sum, total_score_sum_squared.
	RecordRawScore(ctx context.Context, postID int64, score int) error

	// IncrementRatingsSubmitted atomically increments the account's
	// submission counter.
	IncrementRatingsSubmitted(ctx context.Context, accountID int64) error

	// AddWeightedScoreDelta atomically adjusts the post's
	// weighted_total_score_sum.
	AddWeightedScoreDelta(ctx context.Context, postID int64, delta float64) error
}

// SubmissionService handles rating creation and updates on the
// synchronous submission path. It owns the raw-statistics increments and
// the edit-after-weighting adjustment; weight assignment itself belongs
// to the reconciliation job.
type SubmissionService struct {
	store  SubmissionStore
	logger *zap.Logger
}

// NewSubmissionService creates a submission service
func NewSubmissionService(store SubmissionStore) *SubmissionService {
	return &SubmissionService{
		store:  store,
		logger: logging.WithComponent("submission"),
	}
}

// SubmitRating creates the user's rating for the post, or updates the
// score of the existing one. Returns the rating and whether it was newly
// created. The score is assumed validated (1-5) at the API boundary.
//
// On create, the post's raw statistics and the user's submission counter
// are incremented; the weight stays null for the next reconciliation
// pass. On a score edit of an already weighted rating, the post's
// weighted_total_score_sum is adjusted by (new-old) x existing weight so
// the aggregate stays consistent with the rating's current (score,
// weight) pair.
func (s *SubmissionService) SubmitRating(ctx context.Context, postID, userID int64, score int) (*models.Rating, bool, error) {
	post, err := s.store.PostByID(ctx, postID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load post %d: %w", postID, err)
	}
	if post == nil {
		return nil, false, ErrPostNotFound
	}
	account, err := s.store.AccountByID(ctx, userID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load account %d: %w", userID, err)
	}
	if account == nil {
		return nil, false, ErrAccountNotFound
	}

	existing, err := s.store.RatingByPostUser(ctx, postID, userID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up rating: %w", err)
	}

	if existing == nil {
		rating := &models.Rating{
			PostID: postID,
			UserID: userID,
			Score:  score,
		}
		err := s.store.CreateRating(ctx, rating)
		if err == nil {
			if err := s.store.RecordRawScore(ctx, postID, score); err != nil {
				return nil, false, fmt.Errorf("failed to record raw score: %w", err)
			}
			if err := s.store.IncrementRatingsSubmitted(ctx, userID); err != nil {
				return nil, false, fmt.Errorf("failed to increment submission count: %w", err)
			}
			return rating, true, nil
		}
		if !errors.Is(err, ErrDuplicateRating) {
			return nil, false, fmt.Errorf("failed to create rating: %w", err)
		}
		// Lost a create race for the same (post, user): the constraint
		// serialized us into the update path.
		existing, err = s.store.RatingByPostUser(ctx, postID, userID)
		if err != nil {
			return nil, false, fmt.Errorf("failed to reload rating after conflict: %w", err)
		}
		if existing == nil {
			return nil, false, fmt.Errorf("rating for post %d user %d vanished after conflict", postID, userID)
		}
	}

	return s.updateScore(ctx, existing, score)
}

func (s *SubmissionService) updateScore(ctx context.Context, rating *models.Rating, score int) (*models.Rating, bool, error) {
	if rating.Score == score {
		return rating, false, nil
	}

	if rating.Weighted() {
		delta := float64(score-rating.Score) * rating.Weight.Float64
		if err := s.store.AddWeightedScoreDelta(ctx, rating.PostID, delta); err != nil {
			return nil, false, fmt.Errorf("failed to adjust weighted aggregate: %w", err)
		}
		s.logger.Debug("Adjusted weighted aggregate for edited rating",
			zap.Int64("rating_id", rating.ID),
			zap.Float64("delta", delta))
	}

	if err := s.store.UpdateRatingScore(ctx, rating.ID, score); err != nil {
		return nil, false, fmt.Errorf("failed to update rating score: %w", err)
	}
	rating.Score = score
	return rating, false, nil
}
