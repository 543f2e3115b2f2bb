package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/ilyakochetov/shortener/internal/models"
)

type MockURLRepository struct {
	mock.Mock
}

func (r *MockURLRepository) Create(ctx context.Context, shortCode, originalURL string, expiresAt *time.Time) (*models.URL, error) {
	args := r.Called(ctx, shortCode, originalURL, expiresAt)
	url, _ := args.Get(0).(*models.URL)
	return url, args.Error(1)
}

func (r *MockURLRepository) GetByShortCode(ctx context.Context, shortCode string) (*models.URL, error) {
	args := r.Called(ctx, shortCode)
	url, _ := args.Get(0).(*models.URL)
	return url, args.Error(1)
}

func (r *MockURLRepository) GetByOriginalURL(ctx context.Context, originalURL string) (*models.URL, error) {
	args := r.Called(ctx, originalURL)
	url, _ := args.Get(0).(*models.URL)
	return url, args.Error(1)
}

func (r *MockURLRepository) CodeExists(ctx context.Context, shortCode string) (bool, error) {
	args := r.Called(ctx, shortCode)
	return args.Bool(0), args.Error(1)
}

func (r *MockURLRepository) GetStats(ctx context.Context, shortCode string) (*models.URLStats, error) {
	args := r.Called(ctx, shortCode)
	stats, _ := args.Get(0).(*models.URLStats)
	return stats, args.Error(1)
}

func (r *MockURLRepository) InsertClick(ctx context.Context, shortCode string, meta models.ClickMeta) error {
	args := r.Called(ctx, shortCode, meta)
	return args.Error(0)
}

func (r *MockURLRepository) AddClicks(ctx context.Context, shortCode string, delta int64) error {
	args := r.Called(ctx, shortCode, delta)
	return args.Error(0)
}

type MockURLCache struct {
	mock.Mock
}

func (c *MockURLCache) GetURL(ctx context.Context, shortCode string) (string, bool) {
	args := c.Called(ctx, shortCode)
	return args.String(0), args.Bool(1)
}

func (c *MockURLCache) SetURL(ctx context.Context, shortCode, originalURL string, expiresAt *time.Time) {
	c.Called(ctx, shortCode, originalURL, expiresAt)
}

func (c *MockURLCache) Clicks(ctx context.Context, shortCode string) int64 {
	args := c.Called(ctx, shortCode)
	return args.Get(0).(int64)
}

func (c *MockURLCache) IncrClicks(ctx context.Context, shortCode string) (int64, error) {
	args := c.Called(ctx, shortCode)
	return args.Get(0).(int64), args.Error(1)
}

func (c *MockURLCache) ResetClicks(ctx context.Context, shortCode string) {
	c.Called(ctx, shortCode)
}

type MockClickTracker struct {
	mock.Mock
}

func (t *MockClickTracker) Track(ctx context.Context, shortCode string, meta models.ClickMeta) {
	t.Called(ctx, shortCode, meta)
}
