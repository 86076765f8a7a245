// Package memory holds map-backed stores with the same contracts as the postgres repositories.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"authhub/api/internal/models"
	"authhub/api/internal/repository"
)

type AccountStore struct {
	mu       sync.RWMutex
	accounts map[string]models.Account
}

func NewAccountStore() *AccountStore {
	return &AccountStore{accounts: make(map[string]models.Account)}
}

func (s *AccountStore) Create(_ context.Context, account models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account.Normalize()
	if s.emailTaken(account.Email, "") {
		return repository.ErrEmailTaken
	}
	now := time.Now().UTC()
	if account.DateJoined.IsZero() {
		account.DateJoined = now
	}
	account.UpdatedAt = now
	s.accounts[account.ID] = clone(account)
	return nil
}

func (s *AccountStore) GetByID(_ context.Context, id string) (models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[id]
	if !ok {
		return models.Account{}, repository.ErrAccountNotFound
	}
	return clone(account), nil
}

func (s *AccountStore) FindByEmail(_ context.Context, email string) (models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, account := range s.accounts {
		if strings.EqualFold(account.Email, email) {
			return clone(account), nil
		}
	}
	return models.Account{}, repository.ErrAccountNotFound
}

// List orders by date joined, then id, matching the postgres repository.
func (s *AccountStore) List(_ context.Context, limit, offset int) ([]models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]models.Account, 0, len(s.accounts))
	for _, account := range s.accounts {
		all = append(all, clone(account))
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].DateJoined.Equal(all[j].DateJoined) {
			return all[i].ID < all[j].ID
		}
		return all[i].DateJoined.Before(all[j].DateJoined)
	})

	if offset >= len(all) {
		return []models.Account{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (s *AccountStore) Update(_ context.Context, account models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.accounts[account.ID]
	if !ok {
		return repository.ErrAccountNotFound
	}
	account.Normalize()
	if s.emailTaken(account.Email, account.ID) {
		return repository.ErrEmailTaken
	}

	account.PasswordHash = current.PasswordHash
	account.LastLogin = current.LastLogin
	account.DateJoined = current.DateJoined
	account.UpdatedAt = time.Now().UTC()
	s.accounts[account.ID] = clone(account)
	return nil
}

func (s *AccountStore) UpdatePassword(_ context.Context, id string, passwordHash []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return repository.ErrAccountNotFound
	}
	account.PasswordHash = append([]byte(nil), passwordHash...)
	account.UpdatedAt = time.Now().UTC()
	s.accounts[id] = account
	return nil
}

func (s *AccountStore) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return repository.ErrAccountNotFound
	}
	at = at.UTC()
	account.LastLogin = &at
	s.accounts[id] = account
	return nil
}

func (s *AccountStore) emailTaken(email, exceptID string) bool {
	for id, account := range s.accounts {
		if id != exceptID && strings.EqualFold(account.Email, email) {
			return true
		}
	}
	return false
}

func clone(a models.Account) models.Account {
	a.PasswordHash = append([]byte(nil), a.PasswordHash...)
	if a.Avatar != nil {
		avatar := *a.Avatar
		a.Avatar = &avatar
	}
	if a.LastLogin != nil {
		last := *a.LastLogin
		a.LastLogin = &last
	}
	return a
}

type ResetTokenStore struct {
	mu       sync.Mutex
	accounts *AccountStore
	tokens   map[string]models.PasswordResetToken
}

// NewResetTokenStore redeems tokens against accounts, which plays the role of the shared database.
func NewResetTokenStore(accounts *AccountStore) *ResetTokenStore {
	return &ResetTokenStore{
		accounts: accounts,
		tokens:   make(map[string]models.PasswordResetToken),
	}
}

func (s *ResetTokenStore) Create(_ context.Context, token models.PasswordResetToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	s.tokens[string(token.TokenHash)] = token
	return nil
}

func (s *ResetTokenStore) FindUsable(_ context.Context, tokenHash []byte, now time.Time) (models.PasswordResetToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok := s.tokens[string(tokenHash)]
	if !ok || !token.Usable(now) {
		return models.PasswordResetToken{}, repository.ErrResetTokenNotFound
	}
	return token, nil
}

func (s *ResetTokenStore) Redeem(ctx context.Context, tokenHash []byte, passwordHash []byte, now time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok := s.tokens[string(tokenHash)]
	if !ok || !token.Usable(now) {
		return "", repository.ErrResetTokenNotFound
	}
	if err := s.accounts.UpdatePassword(ctx, token.AccountID, passwordHash); err != nil {
		return "", err
	}

	for key, other := range s.tokens {
		if other.AccountID == token.AccountID && other.UsedAt == nil {
			used := now
			other.UsedAt = &used
			s.tokens[key] = other
		}
	}
	return token.AccountID, nil
}

func (s *ResetTokenStore) DeleteExpired(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for key, token := range s.tokens {
		usedBefore := token.UsedAt != nil && !token.UsedAt.After(cutoff)
		if usedBefore || !token.ExpiresAt.After(cutoff) {
			delete(s.tokens, key)
			removed++
		}
	}
	return removed, nil
}

// Len reports how many tokens are stored, used ones included.
func (s *ResetTokenStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}
