package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits counts redirect resolutions served from the cache.
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shortlink_cache_hits_total",
		Help: "Number of redirect lookups served from the cache.",
	})

	// CacheMisses counts redirect resolutions that fell back to the store.
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shortlink_cache_misses_total",
		Help: "Number of redirect lookups that fell back to the database.",
	})

	// ClicksProcessed counts click events persisted by the worker.
	ClicksProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shortlink_clicks_processed_total",
		Help: "Number of click events enriched and persisted.",
	})

	// URLsSwept counts expired mappings removed by the sweeper.
	URLsSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shortlink_urls_swept_total",
		Help: "Number of expired URL mappings deleted by the sweeper.",
	})
)
