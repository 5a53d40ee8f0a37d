package engine

import (
	"context"
	"errors"
	"time"

	"github.com/ratewise/ratewise/internal/models"
)

// memStore is an in-memory Store and SubmissionStore used by the job and
// submission tests. Reads hand out copies; only commits mutate the stored
// rows, mirroring how the database behaves.
type memStore struct {
	posts    map[int64]*models.Post
	accounts map[int64]*models.Account
	ratings  map[int64]*models.Rating
	nextID   int64

	commits    int
	failCommit bool
	raceOnce   bool
}

func newMemStore() *memStore {
	return &memStore{
		posts:    make(map[int64]*models.Post),
		accounts: make(map[int64]*models.Account),
		ratings:  make(map[int64]*models.Rating),
	}
}

func (m *memStore) addPost(post *models.Post) *models.Post {
	if post.ID == 0 {
		m.nextID++
		post.ID = m.nextID
	}
	m.posts[post.ID] = post
	return post
}

func (m *memStore) addAccount(account *models.Account) *models.Account {
	if account.ID == 0 {
		m.nextID++
		account.ID = m.nextID
	}
	m.accounts[account.ID] = account
	return account
}

func (m *memStore) addRating(rating *models.Rating) *models.Rating {
	if rating.ID == 0 {
		m.nextID++
		rating.ID = m.nextID
	}
	m.ratings[rating.ID] = rating
	return rating
}

func (m *memStore) UnweightedRatings(ctx context.Context, since time.Time) ([]*models.Rating, error) {
	var out []*models.Rating
	for _, r := range m.ratings {
		if !r.Weight.Valid && !r.CreatedAt.Before(since) {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) PostByID(ctx context.Context, id int64) (*models.Post, error) {
	p, ok := m.posts[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) AccountByID(ctx context.Context, id int64) (*models.Account, error) {
	a, ok := m.accounts[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) CommitReconciliation(ctx context.Context, ratings []*models.Rating,
	postDeltas map[int64]PostDelta, trustDeltas map[int64]float64) error {
	if m.failCommit {
		return errors.New("storage failure")
	}
	for _, r := range ratings {
		stored := m.ratings[r.ID]
		stored.Weight = r.Weight
		stored.IsOutlier = r.IsOutlier
	}
	for id, d := range postDeltas {
		post := m.posts[id]
		post.WeightedTotalScoreSum += d.WeightedScoreSum
		post.WeightedRatingsCount += d.WeightedCount
	}
	for id, w := range trustDeltas {
		m.accounts[id].TotalTrustContribution += w
	}
	m.commits++
	return nil
}

func (m *memStore) PostsRatedSince(ctx context.Context, since time.Time) ([]*models.Post, error) {
	seen := make(map[int64]bool)
	var out []*models.Post
	for _, r := range m.ratings {
		if r.CreatedAt.Before(since) || seen[r.PostID] {
			continue
		}
		seen[r.PostID] = true
		if p, ok := m.posts[r.PostID]; ok {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) AccountsRatedSince(ctx context.Context, since time.Time) ([]*models.Account, error) {
	seen := make(map[int64]bool)
	var out []*models.Account
	for _, r := range m.ratings {
		if r.CreatedAt.Before(since) || seen[r.UserID] {
			continue
		}
		seen[r.UserID] = true
		if a, ok := m.accounts[r.UserID]; ok {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) SaveAverageRatingSpeed(ctx context.Context, postID int64, speed float64) error {
	post, ok := m.posts[postID]
	if !ok {
		return errors.New("post not found")
	}
	post.AverageRatingSpeed = speed
	return nil
}

func (m *memStore) SaveTrustWeight(ctx context.Context, accountID int64, weight float64) error {
	account, ok := m.accounts[accountID]
	if !ok {
		return errors.New("account not found")
	}
	account.TrustWeight = weight
	return nil
}

func (m *memStore) RatingByPostUser(ctx context.Context, postID, userID int64) (*models.Rating, error) {
	if m.raceOnce {
		// Simulate a concurrent insert landing between lookup and create.
		m.raceOnce = false
		return nil, nil
	}
	for _, r := range m.ratings {
		if r.PostID == postID && r.UserID == userID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) CreateRating(ctx context.Context, rating *models.Rating) error {
	for _, r := range m.ratings {
		if r.PostID == rating.PostID && r.UserID == rating.UserID {
			return ErrDuplicateRating
		}
	}
	m.nextID++
	rating.ID = m.nextID
	if rating.CreatedAt.IsZero() {
		rating.CreatedAt = time.Now().UTC()
	}
	cp := *rating
	m.ratings[rating.ID] = &cp
	return nil
}

func (m *memStore) UpdateRatingScore(ctx context.Context, ratingID int64, score int) error {
	r, ok := m.ratings[ratingID]
	if !ok {
		return errors.New("rating not found")
	}
	r.Score = score
	return nil
}

func (m *memStore) RecordRawScore(ctx context.Context, postID int64, score int) error {
	post, ok := m.posts[postID]
	if !ok {
		return errors.New("post not found")
	}
	post.RatingsCount++
	post.TotalScoreSum += int64(score)
	post.TotalScoreSumSquared += int64(score * score)
	return nil
}

func (m *memStore) IncrementRatingsSubmitted(ctx context.Context, accountID int64) error {
	account, ok := m.accounts[accountID]
	if !ok {
		return errors.New("account not found")
	}
	account.RatingsSubmittedCount++
	return nil
}

func (m *memStore) AddWeightedScoreDelta(ctx context.Context, postID int64, delta float64) error {
	post, ok := m.posts[postID]
	if !ok {
		return errors.New("post not found")
	}
	post.WeightedTotalScoreSum += delta
	return nil
}
