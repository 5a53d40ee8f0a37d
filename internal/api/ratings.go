package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ratewise/ratewise/internal/cache"
	"github.com/ratewise/ratewise/internal/engine"
	"github.com/ratewise/ratewise/internal/models"
	"github.com/ratewise/ratewise/pkg/logging"
)

// RatingsAPI serves the rating submission path
type RatingsAPI struct {
	store     Store
	submitter Submitter
	cache     *cache.Cache
	logger    *zap.Logger
}

// NewRatingsAPI creates a new ratings API handler
func NewRatingsAPI(store Store, submitter Submitter, redisCache *cache.Cache) *RatingsAPI {
	return &RatingsAPI{
		store:     store,
		submitter: submitter,
		cache:     redisCache,
		logger:    logging.WithComponent("api-ratings"),
	}
}

type submitRatingRequest struct {
	Score int `json:"score" binding:"required"`
}

type ratingResponse struct {
	PostID int64 `json:"post_id"`
	Score  int   `json:"score"`
}

// Submit handles PUT /posts/:id/ratings: it creates the caller's rating
// for the post or updates the existing one. Scores are validated here at
// the boundary; the engine assumes well-formed input.
func (a *RatingsAPI) Submit(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}
	userID, ok := callerID(c)
	if !ok {
		abortError(c, http.StatusUnauthorized, "missing or invalid X-User-ID header")
		return
	}

	var req submitRatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "score is required")
		return
	}
	if req.Score < models.ScoreMin || req.Score > models.ScoreMax {
		abortError(c, http.StatusBadRequest, "score must be between 1 and 5")
		return
	}

	rating, created, err := a.submitter.SubmitRating(c.Request.Context(), id, userID, req.Score)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrPostNotFound):
			abortError(c, http.StatusNotFound, "post not found")
		case errors.Is(err, engine.ErrAccountNotFound):
			abortError(c, http.StatusNotFound, "account not found")
		default:
			a.logger.Error("Failed to submit rating",
				zap.Int64("post_id", id),
				zap.Int64("user_id", userID),
				zap.Error(err))
			abortError(c, http.StatusInternalServerError, "failed to submit rating")
		}
		return
	}

	// The post's cached read values are stale now.
	if err := a.cache.Delete(cache.PostAverageKey(id), cache.PostRatingsCountKey(id)); err != nil &&
		!errors.Is(err, cache.ErrCacheDisabled) {
		a.logger.Warn("Failed to invalidate post cache", zap.Int64("post_id", id), zap.Error(err))
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, ratingResponse{PostID: rating.PostID, Score: rating.Score})
}
