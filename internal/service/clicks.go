package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ilyakochetov/shortener/internal/models"
)

// DefaultFlushThreshold is the pending click count at which a batch is
// flushed to the durable store.
const DefaultFlushThreshold = 10

// clickRepository is the subset of store operations click accounting needs.
type clickRepository interface {
	InsertClick(ctx context.Context, shortCode string, meta models.ClickMeta) error
	AddClicks(ctx context.Context, shortCode string, delta int64) error
}

// counterCache is the subset of cache operations click accounting needs.
type counterCache interface {
	IncrClicks(ctx context.Context, shortCode string) (int64, error)
	ResetClicks(ctx context.Context, shortCode string)
}

// ClickTracker accumulates click counts in the cache and flushes them to the
// durable store in batches, bounding store write amplification. Accounting is
// best-effort: failures are logged and dropped, never surfaced to the
// request that triggered them.
type ClickTracker struct {
	repo      clickRepository
	cache     counterCache
	threshold int64
	logger    *slog.Logger
	wg        sync.WaitGroup
}

func NewClickTracker(repo clickRepository, cache counterCache, threshold int64, logger *slog.Logger) *ClickTracker {
	if threshold <= 0 {
		threshold = DefaultFlushThreshold
	}

	return &ClickTracker{
		repo:      repo,
		cache:     cache,
		threshold: threshold,
		logger:    logger,
	}
}

// Track records a click in the background. The caller's response path is
// never blocked: the work runs on a detached context that outlives the
// request, and its completion is not awaited.
func (t *ClickTracker) Track(ctx context.Context, shortCode string, meta models.ClickMeta) {
	ctx = context.WithoutCancel(ctx)

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()

		if err := t.recordClick(ctx, shortCode); err != nil {
			t.logger.Error("failed to record click", slog.String("short_code", shortCode), slog.Any("err", err))
		}

		if err := t.repo.InsertClick(ctx, shortCode, meta); err != nil {
			t.logger.Error("failed to insert click event", slog.String("short_code", shortCode), slog.Any("err", err))
		}
	}()
}

// Wait blocks until all dispatched click work has finished. Used on shutdown
// so in-flight accounting is not cut off mid-flush.
func (t *ClickTracker) Wait() {
	t.wg.Wait()
}

// recordClick increments the volatile counter and flushes the observed value
// to the durable total once it reaches the threshold. The increment itself is
// atomic, but the check-then-flush sequence is not: two concurrent clicks can
// both observe the threshold and both flush, and a reset can race with an
// increment and drop a count. The inconsistency is bounded by one batch
// window either way and is accepted in exchange for lock-free accounting.
func (t *ClickTracker) recordClick(ctx context.Context, shortCode string) error {
	count, err := t.cache.IncrClicks(ctx, shortCode)
	if err != nil {
		// Counter unavailable: the click still lands in the event log,
		// only the batched total misses it.
		return nil
	}

	if count < t.threshold {
		return nil
	}

	if err := t.repo.AddClicks(ctx, shortCode, count); err != nil {
		return err
	}

	t.cache.ResetClicks(ctx, shortCode)

	return nil
}
