package service

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"authhub/api/internal/config"
	"authhub/api/internal/events"
	"authhub/api/internal/ids"
	"authhub/api/internal/mailer"
	"authhub/api/internal/models"
	"authhub/api/internal/repository/memory"
	"authhub/api/internal/security"
	"authhub/api/internal/storage"
)

var testSecurity = config.SecurityConfig{
	JWTSigningKey:   "test-signing-key",
	JWTIssuer:       "authhub",
	JWTAccessTTL:    15 * time.Minute,
	JWTRefreshTTL:   24 * time.Hour,
	ActivationTTL:   72 * time.Hour,
	ResetTokenTTL:   24 * time.Hour,
	PasswordTime:    1,
	PasswordMemory:  8 * 1024,
	PasswordThreads: 1,
}

type fakeUploader struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	deleted []string
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeUploader) Upload(_ context.Context, r io.Reader, _ int64, key, contentType string) (storage.UploadResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return storage.UploadResult{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	f.types[key] = contentType
	return storage.UploadResult{Key: key, URL: "https://s3.test/put/" + key, PublicURL: "https://s3.test/" + key}, nil
}

func (f *fakeUploader) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeUploader) PresignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://s3.test/get/" + key, nil
}

type recordingSender struct {
	mu   sync.Mutex
	sent []mailer.Message
}

func (r *recordingSender) Send(_ context.Context, msg mailer.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return nil
}

func (r *recordingSender) messages() []mailer.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]mailer.Message(nil), r.sent...)
}

type fixture struct {
	accounts   *memory.AccountStore
	resets     *memory.ResetTokenStore
	uploads    *fakeUploader
	bus        *events.Bus
	published  *[]events.Event
	hasher     security.Hasher
	account    *AccountService
	auth       *AuthService
	activation *ActivationService
	reset      *PasswordResetService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := zerolog.Nop()

	f := &fixture{
		accounts:  memory.NewAccountStore(),
		uploads:   newFakeUploader(),
		bus:       events.NewBus(),
		published: &[]events.Event{},
		hasher:    security.NewHasher(testSecurity),
	}
	f.resets = memory.NewResetTokenStore(f.accounts)

	record := events.ListenerFunc(func(_ context.Context, e events.Event) error {
		*f.published = append(*f.published, e)
		return nil
	})
	f.bus.Subscribe(events.UserRegistered, record)
	f.bus.Subscribe(events.PasswordResetRequested, record)

	avatars := NewAvatarService(f.uploads, time.Hour, log)
	f.account = NewAccountService(f.accounts, avatars, f.hasher, f.bus, log)
	f.auth = NewAuthService(f.accounts, security.NewTokenIssuer(testSecurity), f.hasher, log)
	f.activation = NewActivationService(f.accounts, security.NewActivationTokens(testSecurity.JWTSigningKey, testSecurity.ActivationTTL), "https://app.test/", log)
	f.reset = NewPasswordResetService(f.accounts, f.resets, f.hasher, nil, f.bus, testSecurity.ResetTokenTTL, log)
	return f
}

// seed stores an account with the given password directly, bypassing registration.
func (f *fixture) seed(t *testing.T, email, password string, mutate func(*models.Account)) models.Account {
	t.Helper()
	hash, err := f.hasher.Hash(password)
	require.NoError(t, err)

	account := models.Account{
		ID:           ids.New(),
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
	}
	if mutate != nil {
		mutate(&account)
	}
	require.NoError(t, f.accounts.Create(context.Background(), account))

	stored, err := f.accounts.GetByID(context.Background(), account.ID)
	require.NoError(t, err)
	return stored
}

func admin(a *models.Account) {
	a.IsInternal = true
	a.IsStaff = true
}
