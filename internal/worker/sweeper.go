package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vadimbarashkov/shortlink/internal/metrics"
	"github.com/vadimbarashkov/shortlink/internal/models"
)

const sweepLockName = "sweep_expired"

// URLStore is the store side consumed by the sweeper.
type URLStore interface {
	FindExpiredBefore(ctx context.Context, t time.Time) ([]*models.URL, error)
	Delete(ctx context.Context, slug string) error
}

// SweepCache invalidates cache entries and coordinates sweeps across
// processes. TryLock must not block: it either takes the lease or reports
// that another process holds it.
type SweepCache interface {
	Delete(ctx context.Context, slug string) error
	TryLock(ctx context.Context, name string, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}

// Sweeper periodically deletes expired mappings from the store (cascading
// their clicks) and best-effort-invalidates their cache entries. Cache
// invalidation failures never roll back store deletions; a stale entry
// survives for at most one TTL window.
type Sweeper struct {
	store    URLStore
	cache    SweepCache
	logger   *slog.Logger
	interval time.Duration
	lockTTL  time.Duration
}

func NewSweeper(store URLStore, cache SweepCache, logger *slog.Logger, interval, lockTTL time.Duration) *Sweeper {
	return &Sweeper{
		store:    store,
		cache:    cache,
		logger:   logger,
		interval: interval,
		lockTTL:  lockTTL,
	}
}

// Run sweeps on the configured interval until the context is canceled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			deleted, err := s.SweepOnce(ctx)
			if err != nil {
				s.logger.Error("sweep failed", slog.Any("err", err))
				continue
			}
			if deleted > 0 {
				s.logger.Info("swept expired urls", slog.Int("deleted", deleted))
			}
		}
	}
}

// SweepOnce performs a single sweep under a distributed lease lock and
// returns the number of mappings deleted. When another process holds the
// lock, or the lock backend is unavailable, the sweep is skipped; the next
// tick retries.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	const op = "worker.Sweeper.SweepOnce"

	release, ok, err := s.cache.TryLock(ctx, sweepLockName, s.lockTTL)
	if err != nil {
		s.logger.Warn("sweep lock unavailable, skipping sweep", slog.Any("err", err))
		return 0, nil
	}
	if !ok {
		return 0, nil
	}
	defer func() {
		if err := release(ctx); err != nil {
			s.logger.Warn("failed to release sweep lock", slog.Any("err", err))
		}
	}()

	expired, err := s.store.FindExpiredBefore(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("%s: failed to find expired urls: %w", op, err)
	}

	deleted := 0
	for _, url := range expired {
		if err := s.store.Delete(ctx, url.Slug); err != nil {
			s.logger.Error("failed to delete expired url",
				slog.String("slug", url.Slug), slog.Any("err", err))
			continue
		}
		deleted++
		metrics.URLsSwept.Inc()

		if err := s.cache.Delete(ctx, url.Slug); err != nil {
			s.logger.Warn("failed to invalidate cached url",
				slog.String("slug", url.Slug), slog.Any("err", err))
		}
	}

	return deleted, nil
}
