package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

// TokenRepo persists token hashes in `auth_tokens` (one row per account).
type TokenRepo struct{ DB *sqlx.DB }

func NewTokenRepo(db *sqlx.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Replace stores tokenHash for the account. REPLACE removes the account's
// previous row through the unique account_id key in the same statement.
func (r *TokenRepo) Replace(ctx context.Context, accountID int64, tokenHash string, now time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"REPLACE INTO auth_tokens (token_hash, account_id, created_at) VALUES (?,?,?)",
		tokenHash, accountID, now)
	return err
}

// AccountID returns the owner of tokenHash.
func (r *TokenRepo) AccountID(ctx context.Context, tokenHash string) (int64, error) {
	var id int64
	err := r.DB.GetContext(ctx, &id,
		"SELECT account_id FROM auth_tokens WHERE token_hash=? LIMIT 1", tokenHash)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return id, err
}

// Delete removes tokenHash. Deleting an unknown hash returns ErrNotFound.
func (r *TokenRepo) Delete(ctx context.Context, tokenHash string) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM auth_tokens WHERE token_hash=?", tokenHash)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
