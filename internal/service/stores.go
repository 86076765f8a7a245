package service

import (
	"context"
	"io"
	"time"

	"authhub/api/internal/models"
	"authhub/api/internal/storage"
)

// AccountStore is satisfied by repository.AccountRepository and memory.AccountStore.
type AccountStore interface {
	Create(ctx context.Context, account models.Account) error
	GetByID(ctx context.Context, id string) (models.Account, error)
	FindByEmail(ctx context.Context, email string) (models.Account, error)
	List(ctx context.Context, limit, offset int) ([]models.Account, error)
	Update(ctx context.Context, account models.Account) error
	UpdatePassword(ctx context.Context, id string, passwordHash []byte) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}

type ResetTokenStore interface {
	Create(ctx context.Context, token models.PasswordResetToken) error
	FindUsable(ctx context.Context, tokenHash []byte, now time.Time) (models.PasswordResetToken, error)
	Redeem(ctx context.Context, tokenHash []byte, passwordHash []byte, now time.Time) (string, error)
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// ObjectUploader is the subset of storage.ObjectStore used for avatars.
type ObjectUploader interface {
	Upload(ctx context.Context, r io.Reader, size int64, key, contentType string) (storage.UploadResult, error)
	Delete(ctx context.Context, key string) error
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// Sealer encrypts values before they are persisted.
type Sealer interface {
	Encrypt(plain string) (string, error)
}
