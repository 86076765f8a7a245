package service

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authhub/api/internal/codec"
	"authhub/api/internal/ids"
	"authhub/api/internal/models"
	"authhub/api/internal/security"
)

func linkParts(t *testing.T, link string) (string, string) {
	t.Helper()
	const prefix = "https://app.test/account-activate/"
	require.True(t, strings.HasPrefix(link, prefix), link)
	parts := strings.Split(strings.TrimSuffix(strings.TrimPrefix(link, prefix), "/"), "/")
	require.Len(t, parts, 2)
	return parts[0], parts[1]
}

func TestActivationFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	account := f.seed(t, "a@b.com", "p1-secret", nil)

	uid, token := linkParts(t, f.activation.Link(account))
	assert.Equal(t, codec.EncodeString(account.ID), uid)
	assert.NotContains(t, uid, "=")

	activated, err := f.activation.Activate(ctx, uid, token)
	require.NoError(t, err)
	assert.True(t, activated.EmailVerified)

	stored, err := f.accounts.GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, stored.EmailVerified)

	_, err = f.activation.Activate(ctx, uid, token)
	require.ErrorIs(t, err, ErrStaleToken)
}

func TestActivationErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	account := f.seed(t, "a@b.com", "p1-secret", nil)
	uid, token := linkParts(t, f.activation.Link(account))

	_, err := f.activation.Activate(ctx, "%%%", token)
	require.ErrorIs(t, err, ErrInvalidUID)

	_, err = f.activation.Activate(ctx, codec.EncodeString("missing"), token)
	require.ErrorIs(t, err, ErrInvalidUID)

	tampered := token[:len(token)-1] + "0"
	if tampered == token {
		tampered = token[:len(token)-1] + "1"
	}
	_, err = f.activation.Activate(ctx, uid, tampered)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = f.activation.Activate(ctx, uid, "bogus")
	require.ErrorIs(t, err, ErrInvalidToken)

	other := f.seed(t, "c@d.com", "p1-secret", nil)
	_, err = f.activation.Activate(ctx, codec.EncodeString(other.ID), token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestActivationDoesNotReactivateDisabledAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	account := f.seed(t, "a@b.com", "p1-secret", func(a *models.Account) {
		a.IsActive = false
		a.EmailVerified = true
	})
	uid, token := linkParts(t, f.activation.Link(account))

	activated, err := f.activation.Activate(ctx, uid, token)
	require.NoError(t, err)
	assert.False(t, activated.IsActive)
	assert.True(t, activated.EmailVerified)
}

type countingAccounts struct {
	AccountStore
	lookups int
}

func (c *countingAccounts) GetByID(ctx context.Context, id string) (models.Account, error) {
	c.lookups++
	return c.AccountStore.GetByID(ctx, id)
}

func TestActivationRejectsMalformedUIDBeforeLookup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	account := f.seed(t, "a@b.com", "p1-secret", nil)
	_, token := linkParts(t, f.activation.Link(account))

	store := &countingAccounts{AccountStore: f.accounts}
	activation := NewActivationService(store, security.NewActivationTokens(testSecurity.JWTSigningKey, testSecurity.ActivationTTL), "https://app.test/", zerolog.Nop())

	_, err := activation.Activate(ctx, codec.EncodeString("not-a-ksuid"), token)
	require.ErrorIs(t, err, ErrInvalidUID)
	assert.Zero(t, store.lookups)

	_, err = activation.Activate(ctx, codec.EncodeString(ids.New()), token)
	require.ErrorIs(t, err, ErrInvalidUID)
	assert.Equal(t, 1, store.lookups)
}
