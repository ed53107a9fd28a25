package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/notekeeper/internal/errs"
	"github.com/and161185/notekeeper/internal/model"
)

// NoteRepo implements NoteRepository using PostgreSQL.
type NoteRepo struct{ db *DB }

// NewNoteRepo constructs a note repository.
func NewNoteRepo(db *DB) *NoteRepo { return &NoteRepo{db: db} }

// Create inserts a note and fills CreatedAt from the database clock.
func (r *NoteRepo) Create(ctx context.Context, n *model.Note) error {
	const q = `
INSERT INTO notes (id, owner_id, subject, title, body)
VALUES ($1, $2, $3, $4, $5)
RETURNING created_at`
	err := r.db.Pool.QueryRow(ctx, q, n.ID, n.OwnerID, n.Subject, n.Title, n.Body).Scan(&n.CreatedAt)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// Get returns a single note owned by ownerID.
func (r *NoteRepo) Get(ctx context.Context, ownerID, id uuid.UUID) (*model.Note, error) {
	const q = `
SELECT id, owner_id, subject, title, body, created_at
FROM notes WHERE owner_id=$1 AND id=$2`
	var n model.Note
	err := r.db.Pool.QueryRow(ctx, q, ownerID, id).Scan(&n.ID, &n.OwnerID, &n.Subject, &n.Title, &n.Body, &n.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &n, nil
}

// Delete removes a note owned by ownerID.
func (r *NoteRepo) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	const q = `DELETE FROM notes WHERE owner_id=$1 AND id=$2`
	tag, err := r.db.Pool.Exec(ctx, q, ownerID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Count returns the number of the owner's notes, optionally with an exact subject.
func (r *NoteRepo) Count(ctx context.Context, ownerID uuid.UUID, subject *string) (int, error) {
	const q = `SELECT count(*) FROM notes WHERE owner_id=$1 AND ($2::text IS NULL OR subject=$2)`
	var n int
	if err := r.db.Pool.QueryRow(ctx, q, ownerID, subject).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// List returns a window of the owner's notes, newest first.
func (r *NoteRepo) List(ctx context.Context, ownerID uuid.UUID, subject *string, offset, limit int) ([]model.Note, error) {
	const q = `
SELECT id, owner_id, subject, title, body, created_at
FROM notes
WHERE owner_id=$1 AND ($2::text IS NULL OR subject=$2)
ORDER BY created_at DESC, id ASC
OFFSET $3 LIMIT $4`
	rows, err := r.db.Pool.Query(ctx, q, ownerID, subject, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Note, 0, limit)
	for rows.Next() {
		var n model.Note
		if err = rows.Scan(&n.ID, &n.OwnerID, &n.Subject, &n.Title, &n.Body, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
