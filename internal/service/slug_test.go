package service

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGenerateSlug(t *testing.T) {
	t.Run("uses the expected length and alphabet", func(t *testing.T) {
		slug, err := generateSlug(6)

		assert.NoError(t, err)
		assert.Len(t, slug, 6)
		for _, r := range slug {
			assert.Contains(t, slugAlphabet, string(r))
		}
	})

	t.Run("produces distinct values", func(t *testing.T) {
		seen := make(map[string]struct{}, 1000)

		for i := 0; i < 1000; i++ {
			slug, err := generateSlug(6)
			assert.NoError(t, err)

			_, dup := seen[slug]
			assert.False(t, dup, "duplicate slug %q after %d generations", slug, i)
			seen[slug] = struct{}{}
		}
	})
}

func TestIsValidCustomSlug(t *testing.T) {
	tests := []struct {
		name string
		slug string
		want bool
	}{
		{"minimum length", "abcd", true},
		{"maximum length", strings.Repeat("a", 12), true},
		{"mixed case and digits", "MyLink42", true},
		{"too short", "abc", false},
		{"too long", strings.Repeat("a", 13), false},
		{"hyphen", "my-link", false},
		{"underscore", "my_link", false},
		{"space", "my link", false},
		{"unicode", "ссылка", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isValidCustomSlug(tt.slug))
		})
	}
}

func TestExpiresAtFrom(t *testing.T) {
	t.Run("nil means no expiration", func(t *testing.T) {
		assert.Nil(t, expiresAtFrom(nil))
	})

	t.Run("days from now", func(t *testing.T) {
		days := 30

		got := expiresAtFrom(&days)

		assert.NotNil(t, got)
		assert.WithinDuration(t, time.Now().AddDate(0, 0, 30), *got, time.Minute)
	})
}
