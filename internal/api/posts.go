package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ratewise/ratewise/internal/cache"
	"github.com/ratewise/ratewise/internal/models"
	"github.com/ratewise/ratewise/pkg/logging"
)

const defaultListLimit = 20
const maxListLimit = 100

// PostsAPI serves the post read path and post creation
type PostsAPI struct {
	store  Store
	cache  *cache.Cache
	logger *zap.Logger
}

// NewPostsAPI creates a new posts API handler
func NewPostsAPI(store Store, redisCache *cache.Cache) *PostsAPI {
	return &PostsAPI{
		store:  store,
		cache:  redisCache,
		logger: logging.WithComponent("api-posts"),
	}
}

// postResponse is the serialized post the read path returns. The
// displayed rating is the weighted average; UserScore carries the
// caller's own rating when one exists.
type postResponse struct {
	ID            int64    `json:"id"`
	Title         string   `json:"title"`
	AverageRating *float64 `json:"average_rating"`
	RatingsCount  int64    `json:"ratings_count"`
	UserScore     *int     `json:"user_score,omitempty"`
}

type createPostRequest struct {
	Title   string `json:"title" binding:"required,max=100"`
	Content string `json:"content" binding:"required"`
}

// Create handles POST /posts
func (a *PostsAPI) Create(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "title and content are required")
		return
	}

	post := &models.Post{
		Title:     req.Title,
		Content:   req.Content,
		CreatedAt: time.Now().UTC(),
	}
	if err := a.store.CreatePost(c.Request.Context(), post); err != nil {
		a.logger.Error("Failed to create post", zap.Error(err))
		abortError(c, http.StatusInternalServerError, "failed to create post")
		return
	}

	c.JSON(http.StatusCreated, a.serialize(c, post))
}

// List handles GET /posts
func (a *PostsAPI) List(c *gin.Context) {
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	posts, err := a.store.RecentPosts(c.Request.Context(), limit)
	if err != nil {
		a.logger.Error("Failed to list posts", zap.Error(err))
		abortError(c, http.StatusInternalServerError, "failed to list posts")
		return
	}

	out := make([]postResponse, 0, len(posts))
	for _, post := range posts {
		out = append(out, a.serialize(c, post))
	}
	c.JSON(http.StatusOK, gin.H{"posts": out})
}

// Get handles GET /posts/:id
func (a *PostsAPI) Get(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}

	post, err := a.store.PostByID(c.Request.Context(), id)
	if err != nil {
		a.logger.Error("Failed to load post", zap.Int64("post_id", id), zap.Error(err))
		abortError(c, http.StatusInternalServerError, "failed to load post")
		return
	}
	if post == nil {
		abortError(c, http.StatusNotFound, "post not found")
		return
	}

	c.JSON(http.StatusOK, a.serialize(c, post))
}

func (a *PostsAPI) serialize(c *gin.Context, post *models.Post) postResponse {
	resp := postResponse{
		ID:            post.ID,
		Title:         post.Title,
		AverageRating: a.cachedAverage(post),
		RatingsCount:  post.RatingsCount,
	}

	// The caller's own rating, when present. Absence is not an error.
	if userID, ok := callerID(c); ok {
		rating, err := a.store.RatingByPostUser(c.Request.Context(), post.ID, userID)
		if err != nil {
			a.logger.Warn("Failed to look up caller rating",
				zap.Int64("post_id", post.ID), zap.Error(err))
		} else if rating != nil {
			score := rating.Score
			resp.UserScore = &score
		}
	}

	return resp
}

// cachedAverage serves the weighted average from Redis when possible and
// repopulates the cache on a miss. A disabled cache degrades to direct
// computation.
func (a *PostsAPI) cachedAverage(post *models.Post) *float64 {
	key := cache.PostAverageKey(post.ID)
	if raw, err := a.cache.Get(key); err == nil {
		if avg, err := strconv.ParseFloat(raw, 64); err == nil {
			return &avg
		}
	}

	avg, ok := post.WeightedMean()
	if !ok {
		return nil
	}
	if err := a.cache.Set(key, strconv.FormatFloat(avg, 'f', -1, 64), cache.DefaultTTL); err != nil && !errors.Is(err, cache.ErrCacheDisabled) {
		a.logger.Warn("Failed to cache weighted average",
			zap.Int64("post_id", post.ID), zap.Error(err))
	}
	return &avg
}
