package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenManager(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		m := NewTokenManager("secret", time.Hour)

		token, err := m.IssueToken(42)
		assert.NoError(t, err)
		assert.NotEmpty(t, token)

		userID, err := m.ParseToken(token)
		assert.NoError(t, err)
		assert.EqualValues(t, 42, userID)
	})

	t.Run("rejects expired token", func(t *testing.T) {
		m := NewTokenManager("secret", -time.Minute)

		token, err := m.IssueToken(42)
		assert.NoError(t, err)

		_, err = m.ParseToken(token)
		assert.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects token signed with another key", func(t *testing.T) {
		issuer := NewTokenManager("secret", time.Hour)
		verifier := NewTokenManager("other", time.Hour)

		token, err := issuer.IssueToken(42)
		assert.NoError(t, err)

		_, err = verifier.ParseToken(token)
		assert.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		m := NewTokenManager("secret", time.Hour)

		_, err := m.ParseToken("not.a.token")
		assert.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
