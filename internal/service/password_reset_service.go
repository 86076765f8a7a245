package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/rs/zerolog"

	"authhub/api/internal/events"
	"authhub/api/internal/ids"
	"authhub/api/internal/models"
	"authhub/api/internal/repository"
	"authhub/api/internal/security"
)

const resetTokenBytes = 32

// MetadataToken carries the raw reset token on a PasswordResetRequested event.
const MetadataToken = "token"

type PasswordResetService struct {
	accounts AccountStore
	tokens   ResetTokenStore
	hasher   security.Hasher
	sealer   Sealer
	events   events.Publisher
	ttl      time.Duration
	log      zerolog.Logger
	now      func() time.Time
}

// NewPasswordResetService stores client metadata encrypted when sealer is not nil.
func NewPasswordResetService(
	accounts AccountStore,
	tokens ResetTokenStore,
	hasher security.Hasher,
	sealer Sealer,
	publisher events.Publisher,
	ttl time.Duration,
	log zerolog.Logger,
) *PasswordResetService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &PasswordResetService{
		accounts: accounts,
		tokens:   tokens,
		hasher:   hasher,
		sealer:   sealer,
		events:   events.OrNoop(publisher),
		ttl:      ttl,
		log:      log,
		now:      time.Now,
	}
}

type ResetRequestInput struct {
	Email     string `json:"email"`
	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

// Request issues a token for a known active account. Unknown or inactive emails succeed
// silently so the response never reveals whether an account exists.
func (s *PasswordResetService) Request(ctx context.Context, input ResetRequestInput) error {
	email := normalizeEmail(input.Email)
	if email == "" {
		return fieldError("email", "This field is required.")
	}

	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			s.log.Debug().Msg("password reset requested for unknown email")
			return nil
		}
		return err
	}
	if !account.IsActive {
		s.log.Debug().Str("account_id", account.ID).Msg("password reset requested for inactive account")
		return nil
	}

	raw, hash, err := security.GenerateOpaqueToken(resetTokenBytes)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	token := models.PasswordResetToken{
		ID:        ids.New(),
		AccountID: account.ID,
		TokenHash: hash,
		IPAddress: s.seal(input.IPAddress),
		UserAgent: s.seal(input.UserAgent),
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.tokens.Create(ctx, token); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	event := events.Event{
		Type:     events.PasswordResetRequested,
		Account:  account,
		Metadata: map[string]string{MetadataToken: raw},
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("account_id", account.ID).Msg("reset notification failed")
	}
	return nil
}

// Validate reports ErrResetTokenNotFound for unknown, used or expired tokens.
func (s *PasswordResetService) Validate(ctx context.Context, token string) error {
	if token == "" {
		return ErrResetTokenNotFound
	}
	_, err := s.tokens.FindUsable(ctx, security.HashOpaqueToken(token), s.now().UTC())
	if errors.Is(err, repository.ErrResetTokenNotFound) {
		return ErrResetTokenNotFound
	}
	return err
}

type ResetConfirmInput struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// Confirm sets the new password and burns every outstanding token of the account.
func (s *PasswordResetService) Confirm(ctx context.Context, input ResetConfirmInput) error {
	if input.Token == "" {
		return ErrResetTokenNotFound
	}
	if err := validation.Validate(input.Password, passwordRules...); err != nil {
		return fieldError("password", err.Error())
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return err
	}

	accountID, err := s.tokens.Redeem(ctx, security.HashOpaqueToken(input.Token), hash, s.now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrResetTokenNotFound) || errors.Is(err, repository.ErrAccountNotFound) {
			return ErrResetTokenNotFound
		}
		return fmt.Errorf("redeem reset token: %w", err)
	}

	s.log.Info().Str("account_id", accountID).Msg("password reset confirmed")
	return nil
}

// Purge deletes tokens that are expired or already used.
func (s *PasswordResetService) Purge(ctx context.Context) (int64, error) {
	return s.tokens.DeleteExpired(ctx, s.now().UTC())
}

func (s *PasswordResetService) seal(value string) string {
	if s.sealer == nil || value == "" {
		return value
	}
	sealed, err := s.sealer.Encrypt(value)
	if err != nil {
		s.log.Warn().Err(err).Msg("encrypt reset metadata failed")
		return ""
	}
	return sealed
}
