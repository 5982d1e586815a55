package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vadimbarashkov/shortlink/internal/database"
	"github.com/vadimbarashkov/shortlink/internal/metrics"
	"github.com/vadimbarashkov/shortlink/internal/models"
	"github.com/vadimbarashkov/shortlink/internal/queue"
)

var (
	// ErrMaxRetriesExceeded is returned when the maximum number of retries
	// for generating a unique slug is exceeded.
	ErrMaxRetriesExceeded = errors.New("maximum retries exceeded for generating slug")
	// ErrInvalidSlug is returned when a client-supplied slug doesn't match
	// the allowed format. The store is never touched in this case.
	ErrInvalidSlug = errors.New("custom slug must be 4-12 alphanumeric characters")
)

// URLRepository defines the interface for working with URL mappings at the business logic layer.
type URLRepository interface {
	// Create reserves a slug atomically via the store's unique constraint.
	// Returns database.ErrSlugExists if the slug is taken.
	Create(ctx context.Context, slug, longURL string, customSlug bool, expiresAt *time.Time) (*models.URL, error)

	// GetBySlug retrieves a mapping by its slug.
	// Returns database.ErrURLNotFound if no record exists.
	GetBySlug(ctx context.Context, slug string) (*models.URL, error)

	// GetByLongURL retrieves the most recent mapping for a long URL.
	GetByLongURL(ctx context.Context, longURL string) (*models.URL, error)

	// Delete removes a mapping by its slug, cascading its clicks.
	Delete(ctx context.Context, slug string) error

	// List returns a page of mappings with click counts and the total count.
	List(ctx context.Context, page, limit int) ([]*models.URLInfo, int64, error)
}

// ClickRepository exposes aggregated click analytics.
type ClickRepository interface {
	CountBySlug(ctx context.Context, slug string) (int64, error)
	StatsBySlug(ctx context.Context, slug string) (*models.ClickStats, error)
}

// URLCache is the best-effort cache consumed by the resolver. Get must report
// unavailability distinctly from a miss so the resolver can degrade to
// store-only operation without masking outages.
type URLCache interface {
	Get(ctx context.Context, slug string) (longURL string, found bool, err error)
	Set(ctx context.Context, slug, longURL string, ttl time.Duration) error
	Delete(ctx context.Context, slug string) error
	IncrHits(ctx context.Context) error
	IncrMisses(ctx context.Context) error
	Stats(ctx context.Context) (hits, misses int64, err error)
}

// ClickQueue hands click events off to the background worker.
type ClickQueue interface {
	Enqueue(ctx context.Context, ev queue.ClickEvent) error
}

// URLService implements slug allocation and cache-aside redirect resolution.
// Uniqueness is enforced by the store's constraint mechanism, so no in-process
// locking is needed for allocation correctness under concurrency.
type URLService struct {
	urlRepo     URLRepository
	clickRepo   ClickRepository
	cache       URLCache
	queue       ClickQueue
	logger      *slog.Logger
	slugLength  int
	maxAttempts int
	cacheTTL    time.Duration
}

func NewURLService(
	urlRepo URLRepository,
	clickRepo ClickRepository,
	cache URLCache,
	queue ClickQueue,
	logger *slog.Logger,
	slugLength int,
	maxAttempts int,
	cacheTTL time.Duration,
) *URLService {
	return &URLService{
		urlRepo:     urlRepo,
		clickRepo:   clickRepo,
		cache:       cache,
		queue:       queue,
		logger:      logger,
		slugLength:  slugLength,
		maxAttempts: maxAttempts,
		cacheTTL:    cacheTTL,
	}
}

// ShortenURL allocates a slug for the given long URL.
//
// A client-supplied slug is validated against the format rule and tried
// exactly once; a uniqueness violation surfaces as database.ErrSlugExists
// since the client asked for that exact value. Without a custom slug an
// existing live mapping for the same long URL is reused (the check is not
// atomic with allocation; a benign race producing two slugs for one URL is
// acceptable), otherwise random candidates are tried until one inserts
// cleanly or the attempt budget runs out.
func (s *URLService) ShortenURL(ctx context.Context, longURL, customSlug string, expiresInDays *int) (*models.URL, error) {
	const op = "service.URLService.ShortenURL"

	expiresAt := expiresAtFrom(expiresInDays)

	if customSlug != "" {
		if !isValidCustomSlug(customSlug) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidSlug)
		}

		url, err := s.urlRepo.Create(ctx, customSlug, longURL, true, expiresAt)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to reserve custom slug: %w", op, err)
		}

		return url, nil
	}

	if existing, err := s.urlRepo.GetByLongURL(ctx, longURL); err == nil && !existing.IsExpired() {
		return existing, nil
	}

	for i := 0; i < s.maxAttempts; i++ {
		slug, err := generateSlug(s.slugLength)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to generate slug: %w", op, err)
		}

		url, err := s.urlRepo.Create(ctx, slug, longURL, false, expiresAt)
		if err != nil {
			if errors.Is(err, database.ErrSlugExists) {
				continue
			}

			return nil, fmt.Errorf("%s: failed to shorten url: %w", op, err)
		}

		return url, nil
	}

	return nil, fmt.Errorf("%s: %w", op, ErrMaxRetriesExceeded)
}

// ResolveSlug returns the long URL for a live mapping using the cache-aside
// pattern. Cache failures are logged and never propagated; the resolver
// degrades to store-only operation. A missing or expired mapping returns
// database.ErrURLNotFound, while store failures surface as-is so callers can
// distinguish "confirmed absent" from "store unreachable".
func (s *URLService) ResolveSlug(ctx context.Context, slug string) (string, error) {
	const op = "service.URLService.ResolveSlug"

	longURL, found, err := s.cache.Get(ctx, slug)
	if err != nil {
		s.logger.Warn("cache unavailable, falling back to store", slog.Any("err", err))
	} else if found {
		metrics.CacheHits.Inc()
		if err := s.cache.IncrHits(ctx); err != nil {
			s.logger.Debug("failed to increment cache hits counter", slog.Any("err", err))
		}

		return longURL, nil
	}

	metrics.CacheMisses.Inc()
	if err := s.cache.IncrMisses(ctx); err != nil {
		s.logger.Debug("failed to increment cache misses counter", slog.Any("err", err))
	}

	url, err := s.urlRepo.GetBySlug(ctx, slug)
	if err != nil {
		return "", fmt.Errorf("%s: failed to resolve slug: %w", op, err)
	}
	if url.IsExpired() {
		return "", fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
	}

	if err := s.cache.Set(ctx, slug, url.LongURL, s.writeBackTTL(url)); err != nil {
		s.logger.Warn("failed to write url back to cache", slog.Any("err", err))
	}

	return url.LongURL, nil
}

// writeBackTTL caps the cache TTL at the time remaining until expiration,
// so a cache entry can never outlive its mapping.
func (s *URLService) writeBackTTL(url *models.URL) time.Duration {
	ttl := s.cacheTTL
	if url.ExpiresAt != nil {
		if remaining := time.Until(*url.ExpiresAt); remaining < ttl {
			ttl = remaining
		}
	}
	return ttl
}

// RecordClick hands a raw click event off to the background worker.
// Enqueue failures are logged and swallowed; they never affect the redirect
// response already being sent.
func (s *URLService) RecordClick(ctx context.Context, ev queue.ClickEvent) {
	if err := s.queue.Enqueue(ctx, ev); err != nil {
		s.logger.Error("failed to enqueue click event",
			slog.String("slug", ev.Slug), slog.Any("err", err))
	}
}

// GetURLInfo retrieves a mapping with its accumulated click count.
func (s *URLService) GetURLInfo(ctx context.Context, slug string) (*models.URLInfo, error) {
	const op = "service.URLService.GetURLInfo"

	url, err := s.urlRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get url info: %w", op, err)
	}

	count, err := s.clickRepo.CountBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get click count: %w", op, err)
	}

	return &models.URLInfo{URL: *url, ClickCount: count}, nil
}

// ListURLs returns a page of mappings with click counts and the total count.
func (s *URLService) ListURLs(ctx context.Context, page, limit int) ([]*models.URLInfo, int64, error) {
	const op = "service.URLService.ListURLs"

	infos, total, err := s.urlRepo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: failed to list urls: %w", op, err)
	}

	return infos, total, nil
}

// DeleteURL removes a mapping and best-effort-invalidates its cache entry.
// A failed invalidation is logged; the entry expires via TTL on its own.
func (s *URLService) DeleteURL(ctx context.Context, slug string) error {
	const op = "service.URLService.DeleteURL"

	if err := s.urlRepo.Delete(ctx, slug); err != nil {
		return fmt.Errorf("%s: failed to delete url: %w", op, err)
	}

	if err := s.cache.Delete(ctx, slug); err != nil {
		s.logger.Warn("failed to invalidate cached url",
			slog.String("slug", slug), slog.Any("err", err))
	}

	return nil
}

// CacheStats returns the accumulated cache hit and miss counters.
func (s *URLService) CacheStats(ctx context.Context) (hits, misses int64, err error) {
	const op = "service.URLService.CacheStats"

	hits, misses, err = s.cache.Stats(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("%s: failed to get cache stats: %w", op, err)
	}

	return hits, misses, nil
}

// GetClickStats aggregates click statistics for an existing mapping.
func (s *URLService) GetClickStats(ctx context.Context, slug string) (*models.ClickStats, error) {
	const op = "service.URLService.GetClickStats"

	if _, err := s.urlRepo.GetBySlug(ctx, slug); err != nil {
		return nil, fmt.Errorf("%s: failed to get url: %w", op, err)
	}

	stats, err := s.clickRepo.StatsBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get click stats: %w", op, err)
	}

	return stats, nil
}
