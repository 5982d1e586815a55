package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/vadimbarashkov/shortlink/internal/database"
	"github.com/vadimbarashkov/shortlink/internal/models"
)

type urlRecord struct {
	Slug       string     `db:"slug"`
	LongURL    string     `db:"long_url"`
	CustomSlug bool       `db:"custom_slug"`
	ExpiresAt  *time.Time `db:"expires_at"`
	CreatedAt  time.Time  `db:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at"`
}

func (r *urlRecord) ToURL() *models.URL {
	return &models.URL{
		Slug:       r.Slug,
		LongURL:    r.LongURL,
		CustomSlug: r.CustomSlug,
		ExpiresAt:  r.ExpiresAt,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

type urlInfoRecord struct {
	urlRecord
	ClickCount int64 `db:"click_count"`
}

func (r *urlInfoRecord) ToURLInfo() *models.URLInfo {
	return &models.URLInfo{
		URL:        *r.ToURL(),
		ClickCount: r.ClickCount,
	}
}

// URLRepository persists URL mappings. Slug uniqueness is enforced by the
// primary key constraint, not by application logic.
type URLRepository struct {
	db *sqlx.DB
}

func NewURLRepository(db *sqlx.DB) *URLRepository {
	return &URLRepository{
		db: db,
	}
}

// Create reserves a slug by inserting it. The insert itself is the
// reservation, so two allocators racing on the same candidate cannot both
// succeed. Returns database.ErrSlugExists on a uniqueness violation.
func (r *URLRepository) Create(ctx context.Context, slug, longURL string, customSlug bool, expiresAt *time.Time) (*models.URL, error) {
	const op = "database.postgres.URLRepository.Create"

	rec := new(urlRecord)
	query := `INSERT INTO short_urls(slug, long_url, custom_slug, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING *`

	err := r.db.GetContext(ctx, rec, query, slug, longURL, customSlug, expiresAt)
	if err != nil {
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrSlugExists)
		}

		return nil, fmt.Errorf("%s: failed to create url record: %w", op, err)
	}

	return rec.ToURL(), nil
}

func (r *URLRepository) GetBySlug(ctx context.Context, slug string) (*models.URL, error) {
	const op = "database.postgres.URLRepository.GetBySlug"

	rec := new(urlRecord)
	query := `SELECT * FROM short_urls WHERE slug = $1`

	err := r.db.GetContext(ctx, rec, query, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get url record: %w", op, err)
	}

	return rec.ToURL(), nil
}

// GetByLongURL returns the most recent mapping for the given long URL.
// Used for idempotent dedup before allocating a new slug.
func (r *URLRepository) GetByLongURL(ctx context.Context, longURL string) (*models.URL, error) {
	const op = "database.postgres.URLRepository.GetByLongURL"

	rec := new(urlRecord)
	query := `SELECT * FROM short_urls
		WHERE long_url = $1
		ORDER BY created_at DESC
		LIMIT 1`

	err := r.db.GetContext(ctx, rec, query, longURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get url record: %w", op, err)
	}

	return rec.ToURL(), nil
}

// Delete removes a mapping. Associated clicks are removed by the
// ON DELETE CASCADE constraint.
func (r *URLRepository) Delete(ctx context.Context, slug string) error {
	const op = "database.postgres.URLRepository.Delete"

	query := `DELETE FROM short_urls WHERE slug = $1`

	res, err := r.db.ExecContext(ctx, query, slug)
	if err != nil {
		return fmt.Errorf("%s: failed to delete url record: %w", op, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: failed to get affected rows: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
	}

	return nil
}

// FindExpiredBefore returns all mappings whose expiration is before t.
func (r *URLRepository) FindExpiredBefore(ctx context.Context, t time.Time) ([]*models.URL, error) {
	const op = "database.postgres.URLRepository.FindExpiredBefore"

	var recs []urlRecord
	query := `SELECT * FROM short_urls WHERE expires_at IS NOT NULL AND expires_at < $1`

	if err := r.db.SelectContext(ctx, &recs, query, t); err != nil {
		return nil, fmt.Errorf("%s: failed to find expired url records: %w", op, err)
	}

	urls := make([]*models.URL, 0, len(recs))
	for i := range recs {
		urls = append(urls, recs[i].ToURL())
	}

	return urls, nil
}

// List returns a page of mappings ordered by creation time, newest first,
// along with the total number of mappings.
func (r *URLRepository) List(ctx context.Context, page, limit int) ([]*models.URLInfo, int64, error) {
	const op = "database.postgres.URLRepository.List"

	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM short_urls`); err != nil {
		return nil, 0, fmt.Errorf("%s: failed to count url records: %w", op, err)
	}

	var recs []urlInfoRecord
	query := `SELECT u.*, COUNT(c.id) AS click_count
		FROM short_urls u
		LEFT JOIN clicks c ON c.slug = u.slug
		GROUP BY u.slug
		ORDER BY u.created_at DESC
		OFFSET $1 LIMIT $2`

	if err := r.db.SelectContext(ctx, &recs, query, (page-1)*limit, limit); err != nil {
		return nil, 0, fmt.Errorf("%s: failed to list url records: %w", op, err)
	}

	infos := make([]*models.URLInfo, 0, len(recs))
	for i := range recs {
		infos = append(infos, recs[i].ToURLInfo())
	}

	return infos, total, nil
}
