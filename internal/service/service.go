package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/ilyakochetov/shortener/internal/database"
	"github.com/ilyakochetov/shortener/internal/models"
)

// ErrMaxRetriesExceeded is returned when the maximum number of retries for generating a short code is exceeded.
var ErrMaxRetriesExceeded = errors.New("maximum retries exceeded for generating short code")

// ErrURLExpired is returned when a short code resolves to a record whose
// expiration timestamp has passed. It is distinct from not-found.
var ErrURLExpired = errors.New("url expired")

// URLRepository defines the durable store operations the service needs.
type URLRepository interface {
	// Create inserts a new shortened URL into the store.
	Create(ctx context.Context, shortCode, originalURL string, expiresAt *time.Time) (*models.URL, error)

	// GetByShortCode retrieves a URL record by its short code.
	GetByShortCode(ctx context.Context, shortCode string) (*models.URL, error)

	// GetByOriginalURL retrieves an existing record for the original URL,
	// if one exists. Used to keep creation idempotent.
	GetByOriginalURL(ctx context.Context, originalURL string) (*models.URL, error)

	// CodeExists reports whether a short code is already taken.
	CodeExists(ctx context.Context, shortCode string) (bool, error)

	// GetStats retrieves a URL record joined with its click event count.
	GetStats(ctx context.Context, shortCode string) (*models.URLStats, error)
}

// URLCache defines the volatile cache operations the service needs. All
// implementations degrade to misses on failure; the service never treats
// the cache as required for correctness.
type URLCache interface {
	GetURL(ctx context.Context, shortCode string) (string, bool)
	SetURL(ctx context.Context, shortCode, originalURL string, expiresAt *time.Time)
	Clicks(ctx context.Context, shortCode string) int64
}

// clickTracker dispatches click accounting for a successful redirect.
type clickTracker interface {
	Track(ctx context.Context, shortCode string, meta models.ClickMeta)
}

// URLService orchestrates creation, redirect resolution and stats across the
// durable store and the cache, enforcing cache-aside semantics.
type URLService struct {
	repo            URLRepository
	cache           URLCache
	tracker         clickTracker
	shortCodeLength int
}

func NewURLService(repo URLRepository, cache URLCache, tracker clickTracker, shortCodeLength int) *URLService {
	return &URLService{
		repo:            repo,
		cache:           cache,
		tracker:         tracker,
		shortCodeLength: shortCodeLength,
	}
}

// CreateShortURL returns a short code for the original URL, reusing the
// existing record if one exists. The cache mapping is refreshed either way,
// which revives previously evicted entries on repeat submissions.
func (s *URLService) CreateShortURL(ctx context.Context, originalURL string, expiresAt *time.Time) (*models.URL, error) {
	const op = "service.URLService.CreateShortURL"

	url, err := s.repo.GetByOriginalURL(ctx, originalURL)
	if err != nil && !errors.Is(err, database.ErrURLNotFound) {
		return nil, fmt.Errorf("%s: failed to look up original url: %w", op, err)
	}

	if url == nil {
		url, err = s.createURL(ctx, originalURL, expiresAt)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	s.cache.SetURL(ctx, url.ShortCode, url.OriginalURL, url.ExpiresAt)

	return url, nil
}

const maxRetries = 5

// createURL generates a fresh short code and inserts the record. Collisions
// are retried a bounded number of times: the existence check catches almost
// all of them, and the unique constraint on insert backstops the race between
// check and insert.
func (s *URLService) createURL(ctx context.Context, originalURL string, expiresAt *time.Time) (*models.URL, error) {
	const op = "service.URLService.createURL"

	for i := 0; i < maxRetries; i++ {
		shortCode, err := gonanoid.New(s.shortCodeLength)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to generate short code: %w", op, err)
		}

		exists, err := s.repo.CodeExists(ctx, shortCode)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to check short code: %w", op, err)
		}
		if exists {
			continue
		}

		url, err := s.repo.Create(ctx, shortCode, originalURL, expiresAt)
		if err != nil {
			if errors.Is(err, database.ErrShortCodeExists) {
				continue
			}

			return nil, fmt.Errorf("%s: failed to create url: %w", op, err)
		}

		return url, nil
	}

	return nil, fmt.Errorf("%s: %w", op, ErrMaxRetriesExceeded)
}

// ResolveShortCode resolves a short code to its original URL for a redirect.
// A cache hit is trusted without re-checking expiration: TTL eviction is the
// cache's expiry enforcement, and the staleness window is bounded by the TTL
// computed from the record. Click accounting is dispatched fire-and-forget on
// every successful resolution.
func (s *URLService) ResolveShortCode(ctx context.Context, shortCode string, meta models.ClickMeta) (string, error) {
	const op = "service.URLService.ResolveShortCode"

	if originalURL, ok := s.cache.GetURL(ctx, shortCode); ok {
		s.tracker.Track(ctx, shortCode, meta)
		return originalURL, nil
	}

	url, err := s.repo.GetByShortCode(ctx, shortCode)
	if err != nil {
		return "", fmt.Errorf("%s: failed to resolve short code: %w", op, err)
	}

	if url.Expired() {
		return "", fmt.Errorf("%s: %w", op, ErrURLExpired)
	}

	s.cache.SetURL(ctx, shortCode, url.OriginalURL, url.ExpiresAt)
	s.tracker.Track(ctx, shortCode, meta)

	return url.OriginalURL, nil
}

// GetURLStats reports the durable record with pending cache clicks applied:
// ClickCount is the flushed total plus the unflushed counter, TotalClicks is
// the click event count plus the same counter, since event rows are written
// on every redirect but the durable counter only moves on flush.
func (s *URLService) GetURLStats(ctx context.Context, shortCode string) (*models.URLStats, error) {
	const op = "service.URLService.GetURLStats"

	stats, err := s.repo.GetStats(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get url stats: %w", op, err)
	}

	pending := s.cache.Clicks(ctx, shortCode)
	stats.ClickCount += pending
	stats.TotalClicks += pending

	return stats, nil
}
