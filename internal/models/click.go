package models

import "time"

// Click represents a single visit to a shortened URL. Raw request fields are
// captured at redirect time; enrichment fields are filled in by the click
// worker before the record is persisted. A click is immutable after creation
// and is deleted only by cascade when its URL mapping is deleted.
type Click struct {
	ID        int64
	Slug      string
	ClickedAt time.Time
	IPAddress string
	UserAgent string
	Referer   string

	// Enrichment fields. Empty when the corresponding lookup failed.
	Country string
	City    string
	Browser string
	OS      string
	Device  string
}

// ClickStats summarizes the click history of a single shortened URL.
type ClickStats struct {
	TotalClicks int64
	LastClick   *time.Time
	UniqueIPs   int64
}
