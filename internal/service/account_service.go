package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/rs/zerolog"

	"authhub/api/internal/events"
	"authhub/api/internal/ids"
	"authhub/api/internal/models"
	"authhub/api/internal/repository"
	"authhub/api/internal/security"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 128
	maxNameLength     = 150
	maxEmailLength    = 254

	duplicateEmailMessage = "user with this email address already exists."
)

var passwordRules = []validation.Rule{
	validation.Required,
	validation.Length(minPasswordLength, maxPasswordLength),
}

type AccountService struct {
	accounts AccountStore
	avatars  *AvatarService
	hasher   security.Hasher
	events   events.Publisher
	log      zerolog.Logger
}

func NewAccountService(
	accounts AccountStore,
	avatars *AvatarService,
	hasher security.Hasher,
	publisher events.Publisher,
	log zerolog.Logger,
) *AccountService {
	return &AccountService{
		accounts: accounts,
		avatars:  avatars,
		hasher:   hasher,
		events:   events.OrNoop(publisher),
		log:      log,
	}
}

type RegisterInput struct {
	Email           string       `json:"email" form:"email"`
	FirstName       string       `json:"first_name" form:"first_name"`
	LastName        string       `json:"last_name" form:"last_name"`
	Password        string       `json:"password" form:"password"`
	ConfirmPassword string       `json:"confirm_password" form:"confirm_password"`
	Avatar          *AvatarInput `json:"-" form:"-"`
	OrgID           string       `json:"-" form:"-"`
}

func (in RegisterInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required, validation.Length(1, maxEmailLength), is.Email),
		validation.Field(&in.FirstName, validation.Length(0, maxNameLength)),
		validation.Field(&in.LastName, validation.Length(0, maxNameLength)),
		validation.Field(&in.Password, passwordRules...),
		validation.Field(&in.ConfirmPassword, validation.Required),
	)
}

// Register checks the password confirmation before anything else, so a mismatch never
// reaches field validation or the store.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (models.Account, error) {
	if input.Password != input.ConfirmPassword {
		return models.Account{}, ErrPasswordMismatch
	}

	input.Email = normalizeEmail(input.Email)
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	if err := asFieldErrors(input.Validate()); err != nil {
		return models.Account{}, err
	}

	account := models.Account{
		ID:        ids.New(),
		Email:     input.Email,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		IsActive:  true,
	}
	if err := s.create(ctx, &account, input.Password, input.Avatar); err != nil {
		return models.Account{}, err
	}

	metadata := map[string]string{"source": "register"}
	if input.OrgID != "" {
		metadata["org_id"] = input.OrgID
	}
	s.publish(ctx, events.UserRegistered, account, metadata)
	return account, nil
}

type CreateAccountInput struct {
	Email         string `json:"email"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Password      string `json:"password"`
	IsActive      *bool  `json:"is_active"`
	EmailVerified bool   `json:"email_verified"`
	IsInternal    bool   `json:"is_internal"`
	IsStaff       bool   `json:"is_staff"`
	IsSuperuser   bool   `json:"is_superuser"`
}

func (in CreateAccountInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required, validation.Length(1, maxEmailLength), is.Email),
		validation.Field(&in.FirstName, validation.Length(0, maxNameLength)),
		validation.Field(&in.LastName, validation.Length(0, maxNameLength)),
		validation.Field(&in.Password, passwordRules...),
	)
}

// Create is the internal-admin path for adding accounts with explicit flags.
func (s *AccountService) Create(ctx context.Context, actor models.Account, input CreateAccountInput) (models.Account, error) {
	if !actor.IsInternalAdmin() {
		return models.Account{}, ErrForbidden
	}

	input.Email = normalizeEmail(input.Email)
	if err := asFieldErrors(input.Validate()); err != nil {
		return models.Account{}, err
	}

	account := models.Account{
		ID:            ids.New(),
		Email:         input.Email,
		FirstName:     strings.TrimSpace(input.FirstName),
		LastName:      strings.TrimSpace(input.LastName),
		IsActive:      input.IsActive == nil || *input.IsActive,
		EmailVerified: input.EmailVerified,
		IsInternal:    input.IsInternal,
		IsStaff:       input.IsStaff,
		IsSuperuser:   input.IsSuperuser,
	}
	if err := s.create(ctx, &account, input.Password, nil); err != nil {
		return models.Account{}, err
	}

	s.log.Info().
		Str("account_id", account.ID).
		Str("created_by", actor.ID).
		Msg("account created by admin")
	s.publish(ctx, events.UserRegistered, account, map[string]string{"source": "admin", "created_by": actor.ID})
	return account, nil
}

func (s *AccountService) create(ctx context.Context, account *models.Account, password string, avatar *AvatarInput) error {
	if _, err := s.accounts.FindByEmail(ctx, account.Email); err == nil {
		return fieldError("email", duplicateEmailMessage)
	} else if !errors.Is(err, repository.ErrAccountNotFound) {
		return err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	account.PasswordHash = hash

	if avatar != nil {
		key, err := s.avatars.Store(ctx, account.ID, *avatar)
		if err != nil {
			return avatarError(err)
		}
		account.Avatar = &key
	}

	account.Normalize()
	if err := s.accounts.Create(ctx, *account); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return fieldError("email", duplicateEmailMessage)
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (s *AccountService) Get(ctx context.Context, actor models.Account, id string) (models.Account, error) {
	if !actor.CanAccess(id) {
		return models.Account{}, ErrForbidden
	}
	return s.load(ctx, id)
}

func (s *AccountService) List(ctx context.Context, actor models.Account, limit, offset int) ([]models.Account, error) {
	if !actor.IsInternalAdmin() {
		return nil, ErrForbidden
	}
	switch {
	case limit <= 0:
		limit = 100
	case limit > 500:
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}
	return s.accounts.List(ctx, limit, offset)
}

// UpdateInput is a partial profile update. Nil fields are left unchanged.
type UpdateInput struct {
	Email         *string      `json:"email" form:"email"`
	FirstName     *string      `json:"first_name" form:"first_name"`
	LastName      *string      `json:"last_name" form:"last_name"`
	IsActive      *bool        `json:"is_active" form:"is_active"`
	IsInternal    *bool        `json:"is_internal" form:"is_internal"`
	EmailVerified *bool        `json:"email_verified" form:"email_verified"`
	Avatar        *AvatarInput `json:"-" form:"-"`
}

func (in UpdateInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.NilOrNotEmpty, validation.Length(1, maxEmailLength), is.Email),
		validation.Field(&in.FirstName, validation.Length(0, maxNameLength)),
		validation.Field(&in.LastName, validation.Length(0, maxNameLength)),
	)
}

// Update applies a profile change. Privileged flags are applied only for internal admins
// and silently ignored for owners.
func (s *AccountService) Update(ctx context.Context, actor models.Account, id string, input UpdateInput) (models.Account, error) {
	if !actor.CanAccess(id) {
		return models.Account{}, ErrForbidden
	}
	if input.Email != nil {
		email := normalizeEmail(*input.Email)
		input.Email = &email
	}
	if err := asFieldErrors(input.Validate()); err != nil {
		return models.Account{}, err
	}

	account, err := s.load(ctx, id)
	if err != nil {
		return models.Account{}, err
	}

	if input.Email != nil && *input.Email != account.Email {
		if other, err := s.accounts.FindByEmail(ctx, *input.Email); err == nil && other.ID != account.ID {
			return models.Account{}, fieldError("email", duplicateEmailMessage)
		}
		account.Email = *input.Email
	}
	if input.FirstName != nil {
		account.FirstName = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		account.LastName = strings.TrimSpace(*input.LastName)
	}
	if actor.IsInternalAdmin() {
		applyBool(&account.IsActive, input.IsActive)
		applyBool(&account.IsInternal, input.IsInternal)
		applyBool(&account.EmailVerified, input.EmailVerified)
	}
	if input.Avatar != nil {
		key, err := s.avatars.Replace(ctx, account.ID, account.Avatar, *input.Avatar)
		if err != nil {
			return models.Account{}, avatarError(err)
		}
		account.Avatar = &key
	}

	return account, s.save(ctx, &account)
}

type StatusInput struct {
	IsActive      *bool `json:"is_active"`
	EmailVerified *bool `json:"email_verified"`
}

// UpdateStatus toggles is_active. Only internal admins may also change email_verified.
func (s *AccountService) UpdateStatus(ctx context.Context, actor models.Account, id string, input StatusInput) (models.Account, error) {
	if !actor.CanAccess(id) {
		return models.Account{}, ErrForbidden
	}
	if input.EmailVerified != nil && !actor.IsInternalAdmin() {
		return models.Account{}, ErrForbidden
	}
	if input.IsActive == nil {
		return models.Account{}, fieldError("is_active", "This field is required.")
	}

	account, err := s.load(ctx, id)
	if err != nil {
		return models.Account{}, err
	}
	account.IsActive = *input.IsActive
	applyBool(&account.EmailVerified, input.EmailVerified)

	if err := s.save(ctx, &account); err != nil {
		return models.Account{}, err
	}
	s.log.Info().
		Str("account_id", account.ID).
		Str("actor_id", actor.ID).
		Bool("is_active", account.IsActive).
		Bool("email_verified", account.EmailVerified).
		Msg("account status updated")
	return account, nil
}

// SetPassword lets an internal admin replace a password without knowing the old one.
func (s *AccountService) SetPassword(ctx context.Context, actor models.Account, id, newPassword string) error {
	if !actor.IsInternalAdmin() {
		return ErrForbidden
	}
	if newPassword == "" {
		return fieldError("new_password", "new_password field is required")
	}
	if err := validation.Validate(newPassword, passwordRules...); err != nil {
		return fieldError("new_password", err.Error())
	}

	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	return s.storePassword(ctx, id, newPassword)
}

type ChangePasswordInput struct {
	OldPassword     string `json:"old_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// ChangePassword verifies the old password first, then the confirmation, then the new value.
func (s *AccountService) ChangePassword(ctx context.Context, actor models.Account, input ChangePasswordInput) error {
	account, err := s.load(ctx, actor.ID)
	if err != nil {
		return err
	}

	ok, err := security.VerifyPassword(input.OldPassword, account.PasswordHash)
	if err != nil || !ok {
		return ErrOldPasswordIncorrect
	}
	if input.NewPassword != input.ConfirmPassword {
		return ErrPasswordMismatch
	}
	if err := validation.Validate(input.NewPassword, passwordRules...); err != nil {
		return fieldError("new_password", err.Error())
	}

	if err := s.storePassword(ctx, account.ID, input.NewPassword); err != nil {
		return err
	}
	s.log.Info().Str("account_id", account.ID).Msg("password changed")
	return nil
}

func (s *AccountService) storePassword(ctx context.Context, id, password string) error {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	if err := s.accounts.UpdatePassword(ctx, id, hash); err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// AvatarURL presigns the account's avatar for display.
func (s *AccountService) AvatarURL(ctx context.Context, account models.Account) string {
	return s.avatars.URL(ctx, account.Avatar)
}

func (s *AccountService) load(ctx context.Context, id string) (models.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if errors.Is(err, repository.ErrAccountNotFound) {
		return models.Account{}, ErrAccountNotFound
	}
	return account, err
}

func (s *AccountService) save(ctx context.Context, account *models.Account) error {
	account.Normalize()
	err := s.accounts.Update(ctx, *account)
	switch {
	case errors.Is(err, repository.ErrEmailTaken):
		return fieldError("email", duplicateEmailMessage)
	case errors.Is(err, repository.ErrAccountNotFound):
		return ErrAccountNotFound
	}
	return err
}

func (s *AccountService) publish(ctx context.Context, t events.Type, account models.Account, metadata map[string]string) {
	if err := s.events.Publish(ctx, events.Event{Type: t, Account: account, Metadata: metadata}); err != nil {
		s.log.Warn().Err(err).Str("account_id", account.ID).Str("event", string(t)).Msg("event listener failed")
	}
}

func avatarError(err error) error {
	if errors.Is(err, ErrUnsupportedFile) {
		return fieldError("avatar", err.Error())
	}
	return err
}

func applyBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
