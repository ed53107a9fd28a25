// Package session implements the session-token lifecycle: issuance,
// stateful verification against the login registry, sliding refresh and
// revocation.
//
// A token is valid only while a login record for (uid, token) exists and
// the record's issue time is within the absolute lifetime. Refresh moves
// the issue time forward without changing the token value.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/notekeeper/internal/errs"
	"github.com/and161185/notekeeper/internal/model"
	"github.com/and161185/notekeeper/internal/repository"
	"github.com/and161185/notekeeper/internal/token"
)

const (
	// AbsoluteLifetime is how long a login record stays valid after its issue time.
	AbsoluteLifetime = 7 * 24 * time.Hour
	// RefreshWindow is the tail of the lifetime during which a verified session slides forward.
	RefreshWindow = 2 * 24 * time.Hour

	nonceSize = 32
)

// Session is a verified token together with the issue time of its login record.
type Session struct {
	Token    string
	Claims   token.SessionClaims
	Identity model.Identity
	IssuedAt time.Time
}

// Manager drives the session state machine.
type Manager struct {
	codec    *token.Codec
	logins   repository.LoginRegistry
	lifetime time.Duration
	window   time.Duration
	now      func() time.Time
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(m *Manager) { m.now = now } }

// WithLifetime overrides the absolute lifetime and refresh window.
// Non-positive values keep the defaults; a window longer than the lifetime is clamped.
func WithLifetime(lifetime, window time.Duration) Option {
	return func(m *Manager) {
		if lifetime > 0 {
			m.lifetime = lifetime
		}
		if window > 0 {
			m.window = window
		}
		if m.window > m.lifetime {
			m.window = m.lifetime
		}
	}
}

// NewManager constructs a session manager.
func NewManager(codec *token.Codec, logins repository.LoginRegistry, opts ...Option) *Manager {
	m := &Manager{
		codec:    codec,
		logins:   logins,
		lifetime: AbsoluteLifetime,
		window:   RefreshWindow,
		now:      time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Lifetime reports the configured absolute lifetime.
func (m *Manager) Lifetime() time.Duration { return m.lifetime }

// Issue signs a fresh token for the identity and records the login.
func (m *Manager) Issue(ctx context.Context, id model.Identity) (string, error) {
	if id.UID == uuid.Nil {
		return "", fmt.Errorf("%w: empty uid", errs.ErrInvalidArgument)
	}
	nonce, err := newNonce()
	if err != nil {
		return "", fmt.Errorf("session nonce: %w", err)
	}
	tok, err := m.codec.EncodeSession(token.SessionClaims{
		UID:      id.UID.String(),
		Email:    id.Email,
		Username: id.Username,
		Verified: id.Verified,
		Nonce:    nonce,
	})
	if err != nil {
		return "", fmt.Errorf("session encode: %w", err)
	}
	if err := m.logins.Insert(ctx, id.UID, tok, m.now()); err != nil {
		return "", fmt.Errorf("login insert: %w", err)
	}
	return tok, nil
}

// Verify decodes the token and checks it against the login registry.
func (m *Manager) Verify(ctx context.Context, tok string) (Session, error) {
	claims, err := m.codec.DecodeSession(tok)
	if err != nil {
		return Session{}, err
	}
	uid, err := uuid.FromString(claims.UID)
	if err != nil {
		return Session{}, fmt.Errorf("%w: bad uid claim", errs.ErrTokenMalformed)
	}

	login, err := m.logins.Get(ctx, uid, tok)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return Session{}, errs.ErrSessionNotFound
		}
		return Session{}, fmt.Errorf("login lookup: %w", err)
	}

	if m.now().Sub(login.TimeIssued) > m.lifetime {
		return Session{}, errs.ErrSessionExpired
	}
	return Session{
		Token:  tok,
		Claims: claims,
		Identity: model.Identity{
			UID:      uid,
			Email:    claims.Email,
			Username: claims.Username,
			Verified: claims.Verified,
		},
		IssuedAt: login.TimeIssued,
	}, nil
}

// Refresh computes the sliding transition for a verified session at now.
// Inside the refresh window it returns now as the new issue time and true;
// otherwise it returns the unchanged issue time and false. It does not persist.
func (m *Manager) Refresh(s Session, now time.Time) (time.Time, bool) {
	elapsed := now.Sub(s.IssuedAt)
	if elapsed >= m.lifetime-m.window && elapsed < m.lifetime {
		return now, true
	}
	return s.IssuedAt, false
}

// VerifyAndRefresh verifies the token and persists a sliding refresh when due.
// Verification failures short-circuit with their specific kind.
func (m *Manager) VerifyAndRefresh(ctx context.Context, tok string) (Session, error) {
	s, err := m.Verify(ctx, tok)
	if err != nil {
		return Session{}, err
	}
	issued, moved := m.Refresh(s, m.now())
	if !moved {
		return s, nil
	}
	if err := m.logins.UpdateTime(ctx, s.Identity.UID, tok, issued); err != nil {
		// revoked between lookup and refresh
		if errors.Is(err, errs.ErrNotFound) {
			return Session{}, errs.ErrSessionNotFound
		}
		return Session{}, fmt.Errorf("login refresh: %w", err)
	}
	s.IssuedAt = issued
	return s, nil
}

// Revoke deletes the login record for tok. Revoking an unknown token is not an error.
func (m *Manager) Revoke(ctx context.Context, tok string) error {
	if err := m.logins.Delete(ctx, tok); err != nil && !errors.Is(err, errs.ErrNotFound) {
		return fmt.Errorf("login delete: %w", err)
	}
	return nil
}

// Expires reports when s stops verifying unless refreshed.
func (m *Manager) Expires(s Session) time.Time { return s.IssuedAt.Add(m.lifetime) }

// Sweep removes login records that can no longer verify.
func (m *Manager) Sweep(ctx context.Context) (int64, error) {
	return m.logins.DeleteIssuedBefore(ctx, m.now().Add(-m.lifetime))
}

func newNonce() (string, error) {
	b := make([]byte, nonceSize)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
