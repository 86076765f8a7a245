package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/fernet/fernet-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authhub/api/internal/codec"
	"authhub/api/internal/events"
	"authhub/api/internal/mailer"
	"authhub/api/internal/models"
	"authhub/api/internal/security"
)

func requestToken(t *testing.T, f *fixture, email string) string {
	t.Helper()
	before := len(*f.published)
	require.NoError(t, f.reset.Request(context.Background(), ResetRequestInput{Email: email, IPAddress: "10.0.0.1", UserAgent: "test"}))
	require.Len(t, *f.published, before+1)

	event := (*f.published)[before]
	require.Equal(t, events.PasswordResetRequested, event.Type)
	return event.Metadata[MetadataToken]
}

func TestResetRequestIsSilentForUnknownAccounts(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "off@b.com", "p1-secret", func(a *models.Account) { a.IsActive = false })

	require.NoError(t, f.reset.Request(context.Background(), ResetRequestInput{Email: "nobody@b.com"}))
	require.NoError(t, f.reset.Request(context.Background(), ResetRequestInput{Email: "off@b.com"}))
	assert.Empty(t, *f.published)
	assert.Zero(t, f.resets.Len())
}

func TestResetTokenIsSingleUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	account := f.seed(t, "a@b.com", "p1-secret", nil)

	first := requestToken(t, f, "A@b.com")
	second := requestToken(t, f, "a@b.com")
	require.NotEqual(t, first, second)

	require.NoError(t, f.reset.Validate(ctx, first))
	require.ErrorIs(t, f.reset.Validate(ctx, "unknown"), ErrResetTokenNotFound)

	require.NoError(t, f.reset.Confirm(ctx, ResetConfirmInput{Token: first, Password: "fresh-password"}))

	stored, err := f.accounts.GetByID(ctx, account.ID)
	require.NoError(t, err)
	ok, err := security.VerifyPassword("fresh-password", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)

	require.ErrorIs(t, f.reset.Confirm(ctx, ResetConfirmInput{Token: first, Password: "again-password"}), ErrResetTokenNotFound)
	require.ErrorIs(t, f.reset.Validate(ctx, second), ErrResetTokenNotFound)
}

func TestResetTokenExpires(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "a@b.com", "p1-secret", nil)

	token := requestToken(t, f, "a@b.com")

	f.reset.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
	require.ErrorIs(t, f.reset.Validate(ctx, token), ErrResetTokenNotFound)
	require.ErrorIs(t, f.reset.Confirm(ctx, ResetConfirmInput{Token: token, Password: "fresh-password"}), ErrResetTokenNotFound)

	removed, err := f.reset.Purge(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)
}

func TestResetConfirmValidatesPassword(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "a@b.com", "p1-secret", nil)
	token := requestToken(t, f, "a@b.com")

	err := f.reset.Confirm(context.Background(), ResetConfirmInput{Token: token, Password: "short"})
	var ferr FieldErrors
	require.ErrorAs(t, err, &ferr)
	assert.Contains(t, ferr, "password")
	require.NoError(t, f.reset.Validate(context.Background(), token))
}

func TestResetPurgeKeepsLiveTokens(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "a@b.com", "p1-secret", nil)
	requestToken(t, f, "a@b.com")

	removed, err := f.reset.Purge(context.Background())
	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.Equal(t, 1, f.resets.Len())
}

func TestResetSealsClientMetadata(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "a@b.com", "p1-secret", nil)

	var key fernet.Key
	require.NoError(t, key.Generate())
	cipher, err := codec.NewCipher(key.Encode())
	require.NoError(t, err)
	f.reset = NewPasswordResetService(f.accounts, f.resets, f.hasher, cipher, f.bus, time.Hour, zerolog.Nop())

	token := requestToken(t, f, "a@b.com")
	stored, err := f.resets.FindUsable(ctx, security.HashOpaqueToken(token), time.Now())
	require.NoError(t, err)
	assert.NotEqual(t, "10.0.0.1", stored.IPAddress)

	ip, err := cipher.Decrypt(stored.IPAddress)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", ip)
}

func TestNotifierSendsResetAndActivationMail(t *testing.T) {
	f := newFixture(t)
	sender := &recordingSender{}
	notifier := NewNotifier(sender, f.activation, "https://app.test", zerolog.Nop())
	notifier.Subscribe(f.bus, true)

	_, err := f.account.Register(context.Background(), registerInput("ada@example.com"))
	require.NoError(t, err)
	token := requestToken(t, f, "ada@example.com")
	require.NoError(t, notifier.Wait(context.Background()))

	sent := sender.messages()
	require.Len(t, sent, 2)

	assert.Equal(t, []string{"ada@example.com"}, sent[0].To)
	assert.Equal(t, "Visit link to activate user", sent[0].Subject)
	assert.True(t, strings.HasPrefix(sent[0].Text, "https://app.test/account-activate/"))

	assert.Equal(t, "forgot password for ada@example.com", sent[1].Subject)
	assert.Equal(t, "https://app.test/auth/create-password/"+token, sent[1].Text)
	assert.Contains(t, sent[1].HTML, ">Reset Password</a>")
}

type blockingSender struct {
	release chan struct{}
	recordingSender
}

func (b *blockingSender) Send(ctx context.Context, msg mailer.Message) error {
	<-b.release
	return b.recordingSender.Send(ctx, msg)
}

func TestResetRequestDoesNotWaitForMail(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "ada@example.com", "old-password", nil)
	sender := &blockingSender{release: make(chan struct{})}
	notifier := NewNotifier(sender, f.activation, "https://app.test", zerolog.Nop())
	notifier.Subscribe(f.bus, false)

	require.NoError(t, f.reset.Request(context.Background(), ResetRequestInput{Email: "ada@example.com"}))
	assert.Empty(t, sender.messages())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, notifier.Wait(ctx), context.DeadlineExceeded)

	close(sender.release)
	require.NoError(t, notifier.Wait(context.Background()))
	require.Len(t, sender.messages(), 1)
	assert.Equal(t, "forgot password for ada@example.com", sender.messages()[0].Subject)
}

func TestNotifierSkipsActivationWhenDisabled(t *testing.T) {
	f := newFixture(t)
	sender := &recordingSender{}
	NewNotifier(sender, f.activation, "https://app.test", zerolog.Nop()).Subscribe(f.bus, false)

	_, err := f.account.Register(context.Background(), registerInput("ada@example.com"))
	require.NoError(t, err)
	assert.Empty(t, sender.messages())
}
