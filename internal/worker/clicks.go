package worker

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	ua "github.com/mileusna/useragent"
	"github.com/oschwald/geoip2-golang"
	"github.com/vadimbarashkov/shortlink/internal/metrics"
	"github.com/vadimbarashkov/shortlink/internal/models"
	"github.com/vadimbarashkov/shortlink/internal/queue"
)

// errBackoff is how long the worker pauses after a queue failure before
// trying again.
const errBackoff = time.Second

// ClickConsumer is the queue side consumed by the worker. Dequeue returns
// a nil event when the blocking wait timed out.
type ClickConsumer interface {
	Dequeue(ctx context.Context) (*queue.ClickEvent, error)
}

// ClickRepository persists enriched click events.
type ClickRepository interface {
	Create(ctx context.Context, click *models.Click) (*models.Click, error)
}

// GeoResolver resolves an IP address to a country and city.
// Implementations must tolerate lookup failures.
type GeoResolver interface {
	Resolve(ip string) (country, city string)
}

// ClickWorker consumes raw click events, enriches them with user agent and
// geography details, and persists them. It runs out-of-band so redirect
// latency is unaffected. Delivery is at-least-once; the click log is
// append-only, so duplicates are tolerated.
type ClickWorker struct {
	consumer ClickConsumer
	clicks   ClickRepository
	geo      GeoResolver
	logger   *slog.Logger
}

func NewClickWorker(consumer ClickConsumer, clicks ClickRepository, geo GeoResolver, logger *slog.Logger) *ClickWorker {
	return &ClickWorker{
		consumer: consumer,
		clicks:   clicks,
		geo:      geo,
		logger:   logger,
	}
}

// Run consumes click events until the context is canceled.
func (w *ClickWorker) Run(ctx context.Context) error {
	for {
		ev, err := w.consumer.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			w.logger.Error("failed to dequeue click event", slog.Any("err", err))

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(errBackoff):
			}
			continue
		}
		if ev == nil {
			continue
		}

		if err := w.process(ctx, ev); err != nil {
			w.logger.Error("failed to process click event",
				slog.String("slug", ev.Slug), slog.Any("err", err))
		}
	}
}

func (w *ClickWorker) process(ctx context.Context, ev *queue.ClickEvent) error {
	const op = "worker.ClickWorker.process"

	click := &models.Click{
		Slug:      ev.Slug,
		ClickedAt: ev.ClickedAt,
		IPAddress: ev.IPAddress,
		UserAgent: ev.UserAgent,
		Referer:   ev.Referer,
	}

	click.Browser, click.OS, click.Device = parseUserAgent(ev.UserAgent)

	if w.geo != nil && ev.IPAddress != "" {
		click.Country, click.City = w.geo.Resolve(ev.IPAddress)
	}

	if _, err := w.clicks.Create(ctx, click); err != nil {
		return fmt.Errorf("%s: failed to persist click: %w", op, err)
	}

	metrics.ClicksProcessed.Inc()
	w.logger.Info("processed click",
		slog.String("slug", ev.Slug),
		slog.String("country", click.Country),
		slog.String("browser", click.Browser))

	return nil
}

// parseUserAgent extracts browser, OS and device type from a raw user agent
// string. A failed or empty parse leaves the fields empty.
func parseUserAgent(raw string) (browser, os, device string) {
	if raw == "" {
		return "", "", ""
	}

	parsed := ua.Parse(raw)

	if parsed.Name != "" {
		browser = strings.TrimSpace(parsed.Name + " " + parsed.Version)
	}
	if parsed.OS != "" {
		os = strings.TrimSpace(parsed.OS + " " + parsed.OSVersion)
	}

	switch {
	case parsed.Bot:
		device = "Bot"
	case parsed.Tablet:
		device = "Tablet"
	case parsed.Mobile:
		device = "Mobile"
	case parsed.Desktop:
		device = "Desktop"
	}

	return browser, os, device
}

// GeoIPResolver resolves IPs against a local MaxMind City database.
type GeoIPResolver struct {
	reader *geoip2.Reader
}

func NewGeoIPResolver(path string) (*GeoIPResolver, error) {
	const op = "worker.NewGeoIPResolver"

	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open geoip database: %w", op, err)
	}

	return &GeoIPResolver{reader: reader}, nil
}

func (r *GeoIPResolver) Close() error {
	return r.reader.Close()
}

// Resolve returns the country and city for an IP address. Unknown or
// unparsable addresses yield empty values.
func (r *GeoIPResolver) Resolve(ip string) (country, city string) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "", ""
	}

	record, err := r.reader.City(parsed)
	if err != nil {
		return "", ""
	}

	return record.Country.Names["en"], record.City.Names["en"]
}
