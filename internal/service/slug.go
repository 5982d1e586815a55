package service

import (
	"regexp"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// slugAlphabet is the character set for generated slugs. Candidates are
// drawn uniformly from it.
const slugAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// customSlugPattern constrains client-supplied slugs.
var customSlugPattern = regexp.MustCompile(`^[A-Za-z0-9]{4,12}$`)

func generateSlug(length int) (string, error) {
	return gonanoid.Generate(slugAlphabet, length)
}

func isValidCustomSlug(slug string) bool {
	return customSlugPattern.MatchString(slug)
}

func expiresAtFrom(days *int) *time.Time {
	if days == nil {
		return nil
	}
	t := time.Now().AddDate(0, 0, *days)
	return &t
}
