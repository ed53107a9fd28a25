// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Identity is the set of user attributes embedded into a session token.
type Identity struct {
	UID      uuid.UUID
	Email    string
	Username string
	Verified bool
}

// Login binds an issued session token to the time it was issued (or last refreshed).
type Login struct {
	UID        uuid.UUID
	Token      string
	TimeIssued time.Time
}

// User represents an account stored on the server. Passwords are never stored in plaintext.
type User struct {
	ID        uuid.UUID // PK
	Username  string    // unique
	Email     string    // unique
	Verified  bool
	PwdHash   []byte // Argon2id(password, Salt)
	Salt      []byte // per-user salt
	CreatedAt time.Time
}

// Identity projects the token-visible part of the user.
func (u User) Identity() Identity {
	return Identity{UID: u.ID, Email: u.Email, Username: u.Username, Verified: u.Verified}
}

// PublicUser is a directory entry as returned by user listings.
type PublicUser struct {
	ID        uuid.UUID
	Username  string
	Verified  bool
	CreatedAt time.Time
}

// Note is a single user-owned note tagged with a subject.
type Note struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID // FK -> users.id
	Subject   string
	Title     string
	Body      string
	CreatedAt time.Time
}

// Tokens is what a successful login hands back to the client.
type Tokens struct {
	AccessToken string
	ExpiresAt   time.Time // absolute horizon at issuance (for diagnostics)
}
