package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"authhub/api/internal/models"
	"authhub/api/internal/repository"
	"authhub/api/internal/security"
)

// dummyPassword is hashed once so failed lookups pay the same argon2 cost as real ones.
const dummyPassword = "authhub-login-dummy-password"

type AuthService struct {
	accounts AccountStore
	tokens   *security.TokenIssuer
	hasher   security.Hasher
	log      zerolog.Logger
	now      func() time.Time
	verify   func(password string, hash []byte) (bool, error)

	dummyOnce sync.Once
	dummyHash []byte
}

func NewAuthService(accounts AccountStore, tokens *security.TokenIssuer, hasher security.Hasher, log zerolog.Logger) *AuthService {
	return &AuthService{
		accounts: accounts,
		tokens:   tokens,
		hasher:   hasher,
		log:      log,
		now:      time.Now,
		verify:   security.VerifyPassword,
	}
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResult struct {
	Account models.Account
	Tokens  security.TokenPair
}

// Login returns ErrInvalidCredentials for an unknown email, a wrong password and an
// inactive account alike.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	email := normalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		s.burnVerification(input.Password)
		return AuthResult{}, ErrInvalidCredentials
	}

	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			s.burnVerification(input.Password)
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, err
	}

	ok, err := s.verify(input.Password, account.PasswordHash)
	if err != nil || !ok || !account.IsActive {
		return AuthResult{}, ErrInvalidCredentials
	}

	pair, err := s.tokens.IssuePair(account.ID)
	if err != nil {
		return AuthResult{}, err
	}

	now := s.now().UTC()
	if err := s.accounts.TouchLastLogin(ctx, account.ID, now); err != nil {
		s.log.Warn().Err(err).Str("account_id", account.ID).Msg("update last login failed")
	} else {
		account.LastLogin = &now
	}

	return AuthResult{Account: account, Tokens: pair}, nil
}

// Refresh rotates the pair for a valid refresh token whose account is still active.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (AuthResult, error) {
	claims, err := s.tokens.Parse(refreshToken, security.TokenTypeRefresh)
	if err != nil {
		return AuthResult{}, ErrTokenNotValid
	}

	account, err := s.activeAccount(ctx, claims.UserID)
	if err != nil {
		return AuthResult{}, err
	}

	pair, err := s.tokens.IssuePair(account.ID)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{Account: account, Tokens: pair}, nil
}

// Verify checks signature and expiry of either token type.
func (s *AuthService) Verify(_ context.Context, token string) error {
	if _, err := s.tokens.Parse(token, ""); err != nil {
		return ErrTokenNotValid
	}
	return nil
}

// Authenticate resolves a bearer access token to its active account.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (models.Account, error) {
	claims, err := s.tokens.Parse(accessToken, security.TokenTypeAccess)
	if err != nil {
		return models.Account{}, ErrTokenNotValid
	}
	return s.activeAccount(ctx, claims.UserID)
}

// burnVerification runs a verification against a throwaway hash built with the
// configured cost, so unknown emails take as long as wrong passwords.
func (s *AuthService) burnVerification(password string) {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash(dummyPassword)
		if err != nil {
			s.log.Error().Err(err).Msg("build dummy password hash failed")
			return
		}
		s.dummyHash = hash
	})
	if s.dummyHash == nil {
		return
	}
	_, _ = s.verify(password, s.dummyHash)
}

func (s *AuthService) activeAccount(ctx context.Context, id string) (models.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return models.Account{}, ErrTokenNotValid
		}
		return models.Account{}, err
	}
	if !account.IsActive {
		return models.Account{}, ErrTokenNotValid
	}
	return account, nil
}
