package service

import (
	"testing"
	"time"

	"lookup/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssuer_IssueAndParse(t *testing.T) {
	issuer := NewTokenIssuer("test-secret-that-is-long-enough-123", time.Hour)
	now := time.Now().Truncate(time.Second)
	issuer.now = func() time.Time { return now }

	kakaoID := "12345"
	token, err := issuer.Issue(&models.User{ID: "u-1", Username: "kakao_12345", Nickname: "Minji", KakaoID: &kakaoID})
	require.NoError(t, err)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.Subject)
	assert.Equal(t, "kakao_12345", claims.Username)
	assert.Equal(t, "12345", claims.KakaoID)
	assert.Equal(t, "Minji", claims.Nickname)
	assert.Equal(t, tokenIssuer, claims.Issuer)
	assert.Equal(t, time.Hour, claims.ExpiresAt.Sub(claims.IssuedAt.Time))
	assert.NotEmpty(t, claims.ID)
}

func TestTokenIssuer_Rejects(t *testing.T) {
	issuer := NewTokenIssuer("test-secret-that-is-long-enough-123", time.Hour)
	user := &models.User{ID: "u-1", Username: "alice", Nickname: "Alice"}

	t.Run("expired", func(t *testing.T) {
		token, err := issuer.Issue(user)
		require.NoError(t, err)

		later := NewTokenIssuer("test-secret-that-is-long-enough-123", time.Hour)
		later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err = later.Parse(token)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := issuer.Issue(user)
		require.NoError(t, err)

		_, err = NewTokenIssuer("another-secret-that-is-long-enough", time.Hour).Parse(token)
		assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
	})

	t.Run("wrong audience", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Subject:   "u-1",
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{"someone-else"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})
		signed, err := token.SignedString([]byte("test-secret-that-is-long-enough-123"))
		require.NoError(t, err)

		_, err = issuer.Parse(signed)
		assert.ErrorIs(t, err, jwt.ErrTokenInvalidAudience)
	})

	t.Run("no secret", func(t *testing.T) {
		_, err := NewTokenIssuer("", time.Hour).Issue(user)
		assert.Error(t, err)
	})
}
