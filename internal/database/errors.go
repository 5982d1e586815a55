package database

import "errors"

var (
	// ErrSlugExists is returned when an attempt is made to reserve
	// a slug that already exists.
	ErrSlugExists = errors.New("slug exists")
	// ErrURLNotFound is returned when no live mapping exists
	// for the requested slug.
	ErrURLNotFound = errors.New("url not found")
	// ErrUserExists is returned when an attempt is made to register
	// a user with an email that is already taken.
	ErrUserExists = errors.New("user exists")
	// ErrUserNotFound is returned when no user matches the requested
	// email or id.
	ErrUserNotFound = errors.New("user not found")
)
