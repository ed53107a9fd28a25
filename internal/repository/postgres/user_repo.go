package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/notekeeper/internal/errs"
	"github.com/and161185/notekeeper/internal/model"
)

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

// Create inserts a new user row.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	const q = `
INSERT INTO users (id, username, email, verified, pwd_hash, salt)
VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.Pool.Exec(ctx, q, u.ID, u.Username, u.Email, u.Verified, u.PwdHash, u.Salt)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// GetByID selects a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	const q = `
SELECT id, username, email, verified, pwd_hash, salt, created_at
FROM users WHERE id=$1`
	return r.scanOne(r.db.Pool.QueryRow(ctx, q, id))
}

// GetByUsername selects a user by username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	const q = `
SELECT id, username, email, verified, pwd_hash, salt, created_at
FROM users WHERE username=$1`
	return r.scanOne(r.db.Pool.QueryRow(ctx, q, username))
}

func (r *UserRepo) scanOne(row pgx.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Verified, &u.PwdHash, &u.Salt, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Count returns how many usernames start with prefix; nil counts everyone.
func (r *UserRepo) Count(ctx context.Context, prefix *string) (int, error) {
	var (
		n   int
		err error
	)
	if prefix == nil {
		err = r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&n)
	} else {
		err = r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM users WHERE username LIKE $1`, likePrefix(*prefix)).Scan(&n)
	}
	return n, err
}

// List returns directory entries ordered by username.
func (r *UserRepo) List(ctx context.Context, prefix *string, offset, limit int) ([]model.PublicUser, error) {
	const (
		all = `
SELECT id, username, verified, created_at
FROM users
ORDER BY username ASC
OFFSET $1 LIMIT $2`
		filtered = `
SELECT id, username, verified, created_at
FROM users
WHERE username LIKE $3
ORDER BY username ASC
OFFSET $1 LIMIT $2`
	)
	var (
		rows pgx.Rows
		err  error
	)
	if prefix == nil {
		rows, err = r.db.Pool.Query(ctx, all, offset, limit)
	} else {
		rows, err = r.db.Pool.Query(ctx, filtered, offset, limit, likePrefix(*prefix))
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.PublicUser, 0, limit)
	for rows.Next() {
		var u model.PublicUser
		if err := rows.Scan(&u.ID, &u.Username, &u.Verified, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
