package models

import "time"

// User represents a registered account.
type User struct {
	ID             int64
	Email          string
	HashedPassword string
	IsSuperuser    bool
	CreatedAt      time.Time
}
