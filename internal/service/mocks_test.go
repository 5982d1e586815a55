package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/vadimbarashkov/shortlink/internal/models"
	"github.com/vadimbarashkov/shortlink/internal/queue"
)

type MockURLRepository struct {
	mock.Mock
}

func (r *MockURLRepository) Create(ctx context.Context, slug, longURL string, customSlug bool, expiresAt *time.Time) (*models.URL, error) {
	args := r.Called(ctx, slug, longURL, customSlug, expiresAt)
	url, _ := args.Get(0).(*models.URL)
	return url, args.Error(1)
}

func (r *MockURLRepository) GetBySlug(ctx context.Context, slug string) (*models.URL, error) {
	args := r.Called(ctx, slug)
	url, _ := args.Get(0).(*models.URL)
	return url, args.Error(1)
}

func (r *MockURLRepository) GetByLongURL(ctx context.Context, longURL string) (*models.URL, error) {
	args := r.Called(ctx, longURL)
	url, _ := args.Get(0).(*models.URL)
	return url, args.Error(1)
}

func (r *MockURLRepository) Delete(ctx context.Context, slug string) error {
	args := r.Called(ctx, slug)
	return args.Error(0)
}

func (r *MockURLRepository) List(ctx context.Context, page, limit int) ([]*models.URLInfo, int64, error) {
	args := r.Called(ctx, page, limit)
	infos, _ := args.Get(0).([]*models.URLInfo)
	total, _ := args.Get(1).(int64)
	return infos, total, args.Error(2)
}

type MockClickRepository struct {
	mock.Mock
}

func (r *MockClickRepository) CountBySlug(ctx context.Context, slug string) (int64, error) {
	args := r.Called(ctx, slug)
	count, _ := args.Get(0).(int64)
	return count, args.Error(1)
}

func (r *MockClickRepository) StatsBySlug(ctx context.Context, slug string) (*models.ClickStats, error) {
	args := r.Called(ctx, slug)
	stats, _ := args.Get(0).(*models.ClickStats)
	return stats, args.Error(1)
}

type MockURLCache struct {
	mock.Mock
}

func (c *MockURLCache) Get(ctx context.Context, slug string) (string, bool, error) {
	args := c.Called(ctx, slug)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (c *MockURLCache) Set(ctx context.Context, slug, longURL string, ttl time.Duration) error {
	args := c.Called(ctx, slug, longURL, ttl)
	return args.Error(0)
}

func (c *MockURLCache) Delete(ctx context.Context, slug string) error {
	args := c.Called(ctx, slug)
	return args.Error(0)
}

func (c *MockURLCache) IncrHits(ctx context.Context) error {
	args := c.Called(ctx)
	return args.Error(0)
}

func (c *MockURLCache) IncrMisses(ctx context.Context) error {
	args := c.Called(ctx)
	return args.Error(0)
}

func (c *MockURLCache) Stats(ctx context.Context) (int64, int64, error) {
	args := c.Called(ctx)
	hits, _ := args.Get(0).(int64)
	misses, _ := args.Get(1).(int64)
	return hits, misses, args.Error(2)
}

type MockClickQueue struct {
	mock.Mock
}

func (q *MockClickQueue) Enqueue(ctx context.Context, ev queue.ClickEvent) error {
	args := q.Called(ctx, ev)
	return args.Error(0)
}
