// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/notekeeper/internal/model"
)

// LoginRegistry is the durable binding of issued session tokens to their issue time.
type LoginRegistry interface {
	// Get returns the login for (uid, token) or errs.ErrNotFound.
	Get(ctx context.Context, uid uuid.UUID, token string) (*model.Login, error)
	// Insert records a new login.
	Insert(ctx context.Context, uid uuid.UUID, token string, issued time.Time) error
	// UpdateTime moves the issue time of an existing login.
	UpdateTime(ctx context.Context, uid uuid.UUID, token string, issued time.Time) error
	// Delete removes the login for token. Deleting a missing login is not an error.
	Delete(ctx context.Context, token string) error
	// DeleteIssuedBefore removes logins issued before cutoff and reports how many went.
	DeleteIssuedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// UserRepository provides CRUD access for users and the user directory listing.
type UserRepository interface {
	// Create inserts a new user.
	Create(ctx context.Context, u *model.User) error
	// GetByID loads a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// GetByUsername loads a user by username.
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	// Count returns the number of users whose username starts with prefix (all when nil).
	Count(ctx context.Context, prefix *string) (int, error)
	// List returns a page of directory entries ordered by username.
	List(ctx context.Context, prefix *string, offset, limit int) ([]model.PublicUser, error)
}

// NoteRepository provides owner-scoped access to notes.
type NoteRepository interface {
	// Create inserts a new note.
	Create(ctx context.Context, n *model.Note) error
	// Get returns a single note by ID.
	Get(ctx context.Context, ownerID, id uuid.UUID) (*model.Note, error)
	// Delete removes a note; errs.ErrNotFound when it does not exist.
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
	// Count returns the number of the owner's notes, optionally filtered by subject.
	Count(ctx context.Context, ownerID uuid.UUID, subject *string) (int, error)
	// List returns a page of the owner's notes, newest first.
	List(ctx context.Context, ownerID uuid.UUID, subject *string, offset, limit int) ([]model.Note, error)
}
