package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"authhub/api/internal/models"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrEmailTaken      = errors.New("email already registered")
)

const uniqueViolation = "23505"

const accountColumns = `
	id, email, username, password_hash, first_name, last_name, avatar,
	is_active, email_verified, is_internal, is_staff, is_superuser,
	last_login, date_joined, updated_at
`

type AccountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

func (r *AccountRepository) Create(ctx context.Context, account models.Account) error {
	account.Normalize()

	const query = `
		INSERT INTO accounts (
			id, email, username, password_hash, first_name, last_name, avatar,
			is_active, email_verified, is_internal, is_staff, is_superuser,
			date_joined, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW()
		)
	`

	_, err := r.pool.Exec(ctx, query,
		account.ID,
		account.Email,
		account.Username,
		string(account.PasswordHash),
		account.FirstName,
		account.LastName,
		account.Avatar,
		account.IsActive,
		account.EmailVerified,
		account.IsInternal,
		account.IsStaff,
		account.IsSuperuser,
	)
	if isUniqueViolation(err) {
		return ErrEmailTaken
	}
	return err
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(r.pool.QueryRow(ctx, query, id))
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE LOWER(email) = LOWER($1)`
	return scanAccount(r.pool.QueryRow(ctx, query, strings.TrimSpace(email)))
}

func (r *AccountRepository) List(ctx context.Context, limit, offset int) ([]models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY date_joined, id LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := make([]models.Account, 0, limit)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// Update writes profile fields and flags. The password hash is left untouched.
func (r *AccountRepository) Update(ctx context.Context, account models.Account) error {
	account.Normalize()

	const query = `
		UPDATE accounts SET
			email = $2, username = $3, first_name = $4, last_name = $5, avatar = $6,
			is_active = $7, email_verified = $8, is_internal = $9, is_staff = $10, is_superuser = $11,
			updated_at = NOW()
		WHERE id = $1
	`

	cmd, err := r.pool.Exec(ctx, query,
		account.ID,
		account.Email,
		account.Username,
		account.FirstName,
		account.LastName,
		account.Avatar,
		account.IsActive,
		account.EmailVerified,
		account.IsInternal,
		account.IsStaff,
		account.IsSuperuser,
	)
	if isUniqueViolation(err) {
		return ErrEmailTaken
	}
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) UpdatePassword(ctx context.Context, id string, passwordHash []byte) error {
	const query = `UPDATE accounts SET password_hash = $2, updated_at = NOW() WHERE id = $1`
	return execOne(ctx, r.pool, query, id, string(passwordHash))
}

func (r *AccountRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE accounts SET last_login = $2 WHERE id = $1`
	return execOne(ctx, r.pool, query, id, at)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (models.Account, error) {
	var (
		account      models.Account
		passwordHash string
	)
	if err := row.Scan(
		&account.ID,
		&account.Email,
		&account.Username,
		&passwordHash,
		&account.FirstName,
		&account.LastName,
		&account.Avatar,
		&account.IsActive,
		&account.EmailVerified,
		&account.IsInternal,
		&account.IsStaff,
		&account.IsSuperuser,
		&account.LastLogin,
		&account.DateJoined,
		&account.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Account{}, ErrAccountNotFound
		}
		return models.Account{}, fmt.Errorf("scan account: %w", err)
	}
	account.PasswordHash = []byte(passwordHash)
	return account, nil
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func execOne(ctx context.Context, db execer, query string, args ...any) error {
	cmd, err := db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
