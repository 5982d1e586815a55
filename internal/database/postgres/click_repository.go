package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/vadimbarashkov/shortlink/internal/models"
)

type clickRecord struct {
	ID        int64          `db:"id"`
	Slug      string         `db:"slug"`
	ClickedAt time.Time      `db:"clicked_at"`
	IPAddress sql.NullString `db:"ip_address"`
	UserAgent sql.NullString `db:"user_agent"`
	Referer   sql.NullString `db:"referer"`
	Country   sql.NullString `db:"country"`
	City      sql.NullString `db:"city"`
	Browser   sql.NullString `db:"browser"`
	OS        sql.NullString `db:"os"`
	Device    sql.NullString `db:"device"`
}

func (r *clickRecord) ToClick() *models.Click {
	return &models.Click{
		ID:        r.ID,
		Slug:      r.Slug,
		ClickedAt: r.ClickedAt,
		IPAddress: r.IPAddress.String,
		UserAgent: r.UserAgent.String,
		Referer:   r.Referer.String,
		Country:   r.Country.String,
		City:      r.City.String,
		Browser:   r.Browser.String,
		OS:        r.OS.String,
		Device:    r.Device.String,
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// ClickRepository persists enriched click events. The click log is
// append-only; records are removed only by cascade when their mapping
// is deleted.
type ClickRepository struct {
	db *sqlx.DB
}

func NewClickRepository(db *sqlx.DB) *ClickRepository {
	return &ClickRepository{
		db: db,
	}
}

func (r *ClickRepository) Create(ctx context.Context, click *models.Click) (*models.Click, error) {
	const op = "database.postgres.ClickRepository.Create"

	rec := new(clickRecord)
	query := `INSERT INTO clicks(slug, clicked_at, ip_address, user_agent, referer, country, city, browser, os, device)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING *`

	err := r.db.GetContext(ctx, rec, query,
		click.Slug,
		click.ClickedAt,
		nullString(click.IPAddress),
		nullString(click.UserAgent),
		nullString(click.Referer),
		nullString(click.Country),
		nullString(click.City),
		nullString(click.Browser),
		nullString(click.OS),
		nullString(click.Device),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create click record: %w", op, err)
	}

	return rec.ToClick(), nil
}

func (r *ClickRepository) CountBySlug(ctx context.Context, slug string) (int64, error) {
	const op = "database.postgres.ClickRepository.CountBySlug"

	var count int64
	query := `SELECT COUNT(*) FROM clicks WHERE slug = $1`

	if err := r.db.GetContext(ctx, &count, query, slug); err != nil {
		return 0, fmt.Errorf("%s: failed to count click records: %w", op, err)
	}

	return count, nil
}

// StatsBySlug aggregates the click history for a single slug.
func (r *ClickRepository) StatsBySlug(ctx context.Context, slug string) (*models.ClickStats, error) {
	const op = "database.postgres.ClickRepository.StatsBySlug"

	var rec struct {
		TotalClicks int64      `db:"total_clicks"`
		LastClick   *time.Time `db:"last_click"`
		UniqueIPs   int64      `db:"unique_ips"`
	}
	query := `SELECT COUNT(*) AS total_clicks,
			MAX(clicked_at) AS last_click,
			COUNT(DISTINCT ip_address) FILTER (WHERE ip_address IS NOT NULL) AS unique_ips
		FROM clicks
		WHERE slug = $1`

	if err := r.db.GetContext(ctx, &rec, query, slug); err != nil {
		return nil, fmt.Errorf("%s: failed to get click stats: %w", op, err)
	}

	return &models.ClickStats{
		TotalClicks: rec.TotalClicks,
		LastClick:   rec.LastClick,
		UniqueIPs:   rec.UniqueIPs,
	}, nil
}
