package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authhub/api/internal/config"
)

func newTestIssuer() *TokenIssuer {
	return NewTokenIssuer(config.SecurityConfig{
		JWTSigningKey: "test-signing-key",
		JWTIssuer:     "authhub-test",
		JWTAccessTTL:  5 * time.Minute,
		JWTRefreshTTL: 24 * time.Hour,
	})
}

func TestIssuePair(t *testing.T) {
	issuer := newTestIssuer()

	pair, err := issuer.IssuePair("account-1")
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, pair.AccessLifetime)
	assert.Equal(t, 24*time.Hour, pair.RefreshLifetime)
	assert.Equal(t, pair.AccessExpiresAt.Add(-5*time.Minute), pair.RefreshExpiresAt.Add(-24*time.Hour))

	access, err := issuer.Parse(pair.Access, TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, "account-1", access.UserID)

	refresh, err := issuer.Parse(pair.Refresh, TokenTypeRefresh)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeRefresh, refresh.TokenType)
	assert.NotEqual(t, access.ID, refresh.ID)
}

func TestParseRejectsWrongType(t *testing.T) {
	issuer := newTestIssuer()
	pair, err := issuer.IssuePair("account-1")
	require.NoError(t, err)

	_, err = issuer.Parse(pair.Access, TokenTypeRefresh)
	assert.ErrorIs(t, err, ErrWrongTokenType)

	_, err = issuer.Parse(pair.Refresh, "")
	assert.NoError(t, err)
}

func TestParseRejectsExpiredAndForeignTokens(t *testing.T) {
	issuer := newTestIssuer()
	pair, err := issuer.IssuePair("account-1")
	require.NoError(t, err)

	issuer.now = func() time.Time { return time.Now().Add(10 * time.Minute) }
	_, err = issuer.Parse(pair.Access, TokenTypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewTokenIssuer(config.SecurityConfig{
		JWTSigningKey: "another-key",
		JWTIssuer:     "authhub-test",
		JWTAccessTTL:  time.Minute,
		JWTRefreshTTL: time.Hour,
	})
	_, err = other.Parse(pair.Refresh, TokenTypeRefresh)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = issuer.Parse("not.a.jwt", "")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGenerateOpaqueToken(t *testing.T) {
	token, hash, err := GenerateOpaqueToken(32)
	require.NoError(t, err)

	assert.Len(t, token, 43)
	assert.Equal(t, HashOpaqueToken(token), hash)

	again, _, err := GenerateOpaqueToken(32)
	require.NoError(t, err)
	assert.NotEqual(t, token, again)
}
