package models

import "time"

// URL represents a shortened URL mapping and its associated metadata.
type URL struct {
	// Slug is the short identifier associated with the original URL.
	// It is the primary key and immutable once created.
	Slug string
	// LongURL is the original, full-length URL that the slug points to.
	LongURL string
	// CustomSlug indicates whether the slug was supplied by the client
	// rather than generated by the system.
	CustomSlug bool
	// ExpiresAt is the optional expiration timestamp. A mapping past this
	// point is treated as absent by read paths until the sweeper removes it.
	ExpiresAt *time.Time
	// CreatedAt is the timestamp indicating when the mapping was created.
	CreatedAt time.Time
	// UpdatedAt is the timestamp indicating when the mapping was last updated.
	UpdatedAt time.Time
}

// IsExpired reports whether the mapping is past its expiration timestamp.
// Mappings without an expiration never expire.
func (u *URL) IsExpired() bool {
	return u.ExpiresAt != nil && u.ExpiresAt.Before(time.Now())
}

// URLInfo combines a URL mapping with its accumulated click count.
type URLInfo struct {
	URL
	ClickCount int64
}
