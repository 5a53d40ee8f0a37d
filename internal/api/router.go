package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ratewise/ratewise/internal/cache"
	"github.com/ratewise/ratewise/internal/models"
	"github.com/ratewise/ratewise/pkg/logging"
)

// Store is the read/write surface the API needs from the database layer.
// internal/db.Store implements it.
type Store interface {
	CreatePost(ctx context.Context, post *models.Post) error
	PostByID(ctx context.Context, id int64) (*models.Post, error)
	RecentPosts(ctx context.Context, limit int) ([]*models.Post, error)
	RatingByPostUser(ctx context.Context, postID, userID int64) (*models.Rating, error)
}

// Submitter is the rating submission path. engine.SubmissionService
// implements it.
type Submitter interface {
	SubmitRating(ctx context.Context, postID, userID int64, score int) (*models.Rating, bool, error)
}

// Router sets up API routes
type Router struct {
	posts   *PostsAPI
	ratings *RatingsAPI
	logger  *zap.Logger
}

// NewRouter creates a new API router
func NewRouter(store Store, submitter Submitter, redisCache *cache.Cache) *Router {
	return &Router{
		posts:   NewPostsAPI(store, redisCache),
		ratings: NewRatingsAPI(store, submitter, redisCache),
		logger:  logging.WithComponent("api-router"),
	}
}

// SetupRoutes sets up all API routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	// Health check endpoints
	engine.GET("/health", r.healthHandler)
	engine.GET("/.well-known/healthcheck.json", r.healthHandler)

	engine.POST("/posts", r.posts.Create)
	engine.GET("/posts", r.posts.List)
	engine.GET("/posts/:id", r.posts.Get)
	engine.PUT("/posts/:id/ratings", r.ratings.Submit)
}

func (r *Router) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "OK",
		"service": "ratewise-api",
	})
}

// postID parses the :id path parameter
func postID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		abortError(c, http.StatusBadRequest, "invalid post id")
		return 0, false
	}
	return id, true
}

// callerID reads the authenticated user from the X-User-ID header.
// Authentication itself happens upstream; the API only consumes the
// resolved identity.
func callerID(c *gin.Context) (int64, bool) {
	raw := c.GetHeader("X-User-ID")
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
