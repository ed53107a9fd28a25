package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/notekeeper/internal/errs"
	"github.com/and161185/notekeeper/internal/model"
)

// LoginRepo implements LoginRegistry using PostgreSQL.
type LoginRepo struct{ db *DB }

// NewLoginRepo constructs a login registry.
func NewLoginRepo(db *DB) *LoginRepo { return &LoginRepo{db: db} }

// Get selects the login for (uid, token).
func (r *LoginRepo) Get(ctx context.Context, uid uuid.UUID, token string) (*model.Login, error) {
	const q = `SELECT uid, token, time_issued FROM logins WHERE uid=$1 AND token=$2`
	var l model.Login
	if err := r.db.Pool.QueryRow(ctx, q, uid, token).Scan(&l.UID, &l.Token, &l.TimeIssued); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &l, nil
}

// Insert records a new login. Re-inserting the same (uid, token) overwrites its issue time.
func (r *LoginRepo) Insert(ctx context.Context, uid uuid.UUID, token string, issued time.Time) error {
	const q = `
INSERT INTO logins (uid, token, time_issued) VALUES ($1, $2, $3)
ON CONFLICT (uid, token) DO UPDATE SET time_issued = EXCLUDED.time_issued`
	_, err := r.db.Pool.Exec(ctx, q, uid, token, issued)
	return err
}

// UpdateTime moves the issue time of an existing login.
func (r *LoginRepo) UpdateTime(ctx context.Context, uid uuid.UUID, token string, issued time.Time) error {
	const q = `UPDATE logins SET time_issued=$3 WHERE uid=$1 AND token=$2`
	tag, err := r.db.Pool.Exec(ctx, q, uid, token, issued)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Delete removes the login for token; missing rows are not an error.
func (r *LoginRepo) Delete(ctx context.Context, token string) error {
	const q = `DELETE FROM logins WHERE token=$1`
	_, err := r.db.Pool.Exec(ctx, q, token)
	return err
}

// DeleteIssuedBefore removes logins whose issue time is before cutoff.
func (r *LoginRepo) DeleteIssuedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `DELETE FROM logins WHERE time_issued < $1`
	tag, err := r.db.Pool.Exec(ctx, q, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
