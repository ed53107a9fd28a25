// Package service contains application services for accounts, sessions,
// notes and the user directory.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/notekeeper/internal/crypto"
	"github.com/and161185/notekeeper/internal/errs"
	"github.com/and161185/notekeeper/internal/limiter"
	"github.com/and161185/notekeeper/internal/model"
	"github.com/and161185/notekeeper/internal/repository"
)

const minPasswordLen = 8

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,32}$`)

// Sessions is the part of the session manager the auth service drives.
type Sessions interface {
	Issue(ctx context.Context, id model.Identity) (string, error)
	Revoke(ctx context.Context, token string) error
	Lifetime() time.Duration
}

// AuthService defines account and session operations.
type AuthService interface {
	// Register creates a new user and returns its id.
	Register(ctx context.Context, username, email, password string) (uuid.UUID, error)
	// Login checks credentials under the (username, ip) rate limit and issues a session.
	Login(ctx context.Context, username, password, ip string) (model.Tokens, model.User, error)
	// Logout revokes the session token.
	Logout(ctx context.Context, token string) error
	// Whoami loads the current state of the authenticated user.
	Whoami(ctx context.Context, id model.Identity) (*model.User, error)
}

type AuthServiceImpl struct {
	users    repository.UserRepository
	sessions Sessions
	hasher   *crypto.Hasher
	lim      limiter.Limiter
	now      func() time.Time
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(users repository.UserRepository, sessions Sessions, hasher *crypto.Hasher, lim limiter.Limiter) *AuthServiceImpl {
	return &AuthServiceImpl{users: users, sessions: sessions, hasher: hasher, lim: lim, now: time.Now}
}

// Register validates input and stores the user with a fresh salt.
func (s *AuthServiceImpl) Register(ctx context.Context, username, email, password string) (uuid.UUID, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if !usernameRe.MatchString(username) {
		return uuid.Nil, fmt.Errorf("%w: username must be 3-32 of [a-zA-Z0-9_.-]", errs.ErrInvalidArgument)
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return uuid.Nil, fmt.Errorf("%w: email", errs.ErrInvalidArgument)
	}
	if utf8.RuneCountInString(password) < minPasswordLen {
		return uuid.Nil, fmt.Errorf("%w: password must be at least %d characters", errs.ErrInvalidArgument, minPasswordLen)
	}

	uid, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, err
	}
	salt, err := crypto.NewSalt()
	if err != nil {
		return uuid.Nil, err
	}
	u := &model.User{
		ID:       uid,
		Username: username,
		Email:    email,
		PwdHash:  s.hasher.Hash(password, salt),
		Salt:     salt,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return uuid.Nil, err
	}
	return uid, nil
}

// Login authenticates with rate limiting by (username, ip).
func (s *AuthServiceImpl) Login(ctx context.Context, username, password, ip string) (model.Tokens, model.User, error) {
	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, username, ipHash)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	if !allowed {
		return model.Tokens{}, model.User{}, errs.ErrRateLimited
	}

	u, err := s.users.GetByUsername(ctx, username)
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return model.Tokens{}, model.User{}, err
	}
	if err != nil || !s.hasher.Verify(password, u.Salt, u.PwdHash) {
		if blocked, _, ferr := s.lim.Failure(ctx, username, ipHash); ferr == nil && blocked {
			return model.Tokens{}, model.User{}, errs.ErrRateLimited
		}
		// unknown user and wrong password look the same
		return model.Tokens{}, model.User{}, errs.ErrUnauthorized
	}

	// best-effort
	_ = s.lim.Success(ctx, username, ipHash)

	issuedAt := s.now()
	tok, err := s.sessions.Issue(ctx, u.Identity())
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	return model.Tokens{AccessToken: tok, ExpiresAt: issuedAt.Add(s.sessions.Lifetime())}, *u, nil
}

// Logout revokes token; revoking an already revoked token succeeds.
func (s *AuthServiceImpl) Logout(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("%w: empty token", errs.ErrInvalidArgument)
	}
	return s.sessions.Revoke(ctx, token)
}

// Whoami returns the stored user behind id.
func (s *AuthServiceImpl) Whoami(ctx context.Context, id model.Identity) (*model.User, error) {
	if id.UID == uuid.Nil {
		return nil, errs.ErrUnauthorized
	}
	return s.users.GetByID(ctx, id.UID)
}
