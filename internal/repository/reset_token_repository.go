package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"authhub/api/internal/models"
)

var ErrResetTokenNotFound = errors.New("password reset token not found")

type ResetTokenRepository struct {
	pool *pgxpool.Pool
}

func NewResetTokenRepository(pool *pgxpool.Pool) *ResetTokenRepository {
	return &ResetTokenRepository{pool: pool}
}

func (r *ResetTokenRepository) Create(ctx context.Context, token models.PasswordResetToken) error {
	const query = `
		INSERT INTO password_reset_tokens (
			id, account_id, token_hash, ip_address, user_agent, created_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, NOW(), $6)
	`
	_, err := r.pool.Exec(ctx, query,
		token.ID,
		token.AccountID,
		token.TokenHash,
		token.IPAddress,
		token.UserAgent,
		token.ExpiresAt,
	)
	return err
}

// FindUsable returns the token only when it is unused and not expired at now.
func (r *ResetTokenRepository) FindUsable(ctx context.Context, tokenHash []byte, now time.Time) (models.PasswordResetToken, error) {
	const query = `
		SELECT id, account_id, token_hash, ip_address, user_agent, created_at, expires_at, used_at
		FROM password_reset_tokens
		WHERE token_hash = $1 AND used_at IS NULL AND expires_at > $2
	`
	return scanResetToken(r.pool.QueryRow(ctx, query, tokenHash, now))
}

// Redeem sets the account password and burns every outstanding token for the account
// in one transaction. It returns the account id the token belonged to.
func (r *ResetTokenRepository) Redeem(ctx context.Context, tokenHash []byte, passwordHash []byte, now time.Time) (string, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const lookup = `
		SELECT id, account_id, token_hash, ip_address, user_agent, created_at, expires_at, used_at
		FROM password_reset_tokens
		WHERE token_hash = $1 AND used_at IS NULL AND expires_at > $2
		FOR UPDATE
	`
	token, err := scanResetToken(tx.QueryRow(ctx, lookup, tokenHash, now))
	if err != nil {
		return "", err
	}

	const setPassword = `UPDATE accounts SET password_hash = $2, updated_at = NOW() WHERE id = $1`
	if err := execOne(ctx, tx, setPassword, token.AccountID, string(passwordHash)); err != nil {
		return "", err
	}

	const burn = `UPDATE password_reset_tokens SET used_at = $2 WHERE account_id = $1 AND used_at IS NULL`
	if _, err := tx.Exec(ctx, burn, token.AccountID, now); err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return token.AccountID, nil
}

// DeleteExpired removes tokens that expired or were used before cutoff.
func (r *ResetTokenRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM password_reset_tokens WHERE expires_at <= $1 OR used_at <= $1`
	cmd, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func scanResetToken(row rowScanner) (models.PasswordResetToken, error) {
	var token models.PasswordResetToken
	if err := row.Scan(
		&token.ID,
		&token.AccountID,
		&token.TokenHash,
		&token.IPAddress,
		&token.UserAgent,
		&token.CreatedAt,
		&token.ExpiresAt,
		&token.UsedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.PasswordResetToken{}, ErrResetTokenNotFound
		}
		return models.PasswordResetToken{}, fmt.Errorf("scan reset token: %w", err)
	}
	return token, nil
}
