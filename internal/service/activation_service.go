package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"authhub/api/internal/codec"
	"authhub/api/internal/ids"
	"authhub/api/internal/models"
	"authhub/api/internal/repository"
	"authhub/api/internal/security"
)

type ActivationService struct {
	accounts AccountStore
	tokens   *security.ActivationTokens
	domain   string
	log      zerolog.Logger
}

func NewActivationService(accounts AccountStore, tokens *security.ActivationTokens, domain string, log zerolog.Logger) *ActivationService {
	return &ActivationService{
		accounts: accounts,
		tokens:   tokens,
		domain:   strings.TrimSuffix(domain, "/"),
		log:      log,
	}
}

// Link builds the front-end activation URL for account.
func (s *ActivationService) Link(account models.Account) string {
	return fmt.Sprintf("%s/account-activate/%s/%s/", s.domain, codec.EncodeString(account.ID), s.tokens.Make(account))
}

// Activate checks uid, then token, then staleness, and marks the email verified.
func (s *ActivationService) Activate(ctx context.Context, uid, token string) (models.Account, error) {
	id, err := codec.DecodeString(strings.TrimSpace(uid))
	if err != nil || !ids.Valid(id) {
		return models.Account{}, ErrInvalidUID
	}

	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return models.Account{}, ErrInvalidUID
		}
		return models.Account{}, err
	}

	if !s.tokens.Check(account, strings.TrimSpace(token)) {
		return models.Account{}, ErrInvalidToken
	}
	if account.EmailVerified && account.IsActive {
		return models.Account{}, ErrStaleToken
	}

	account.EmailVerified = true
	if err := s.accounts.Update(ctx, account); err != nil {
		return models.Account{}, fmt.Errorf("activate account: %w", err)
	}

	s.log.Info().Str("account_id", account.ID).Msg("account activated")
	return account, nil
}
