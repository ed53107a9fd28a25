// Package gate wraps protected operations: it extracts the bearer token,
// verifies (and slides) the session, and injects the resolved identity or
// rejects the call.
package gate

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/and161185/notekeeper/internal/errs"
	"github.com/and161185/notekeeper/internal/model"
	"github.com/and161185/notekeeper/internal/session"
)

// Verifier is the part of the session manager the gate depends on.
type Verifier interface {
	VerifyAndRefresh(ctx context.Context, token string) (session.Session, error)
}

// Outcome classifies a gate failure for the transport adapters.
type Outcome int

const (
	// Unauthorized is a client fault (401 / Unauthenticated).
	Unauthorized Outcome = iota + 1
	// Misconfigured means the deployment's signing key does not match (500 / Internal).
	Misconfigured
	// Unavailable means a dependency failed (503 / Unavailable).
	Unavailable
)

// Classify maps an Authenticate error onto an Outcome.
func Classify(err error) Outcome {
	switch {
	case errors.Is(err, errs.ErrCredentialMissing),
		errors.Is(err, errs.ErrCredentialMalformed),
		errors.Is(err, errs.ErrTokenMalformed),
		errors.Is(err, errs.ErrSessionNotFound),
		errors.Is(err, errs.ErrSessionExpired):
		return Unauthorized
	case errors.Is(err, errs.ErrSignatureInvalid):
		return Misconfigured
	default:
		return Unavailable
	}
}

// Gate authenticates bearer credentials.
type Gate struct {
	sessions Verifier
	log      *zap.Logger
}

// New constructs a Gate. A nil logger is replaced by a no-op one.
func New(sessions Verifier, log *zap.Logger) *Gate {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gate{sessions: sessions, log: log}
}

// Authenticate resolves an Authorization header value to a verified session.
// Failures other than client faults are logged before being returned; any
// error that is not part of the token/session taxonomy comes back wrapped in
// errs.ErrDependencyUnavailable.
func (g *Gate) Authenticate(ctx context.Context, header string) (session.Session, error) {
	tok, err := BearerToken(header)
	if err != nil {
		return session.Session{}, err
	}
	s, err := g.sessions.VerifyAndRefresh(ctx, tok)
	if err == nil {
		return s, nil
	}
	switch Classify(err) {
	case Unauthorized:
		return session.Session{}, err
	case Misconfigured:
		g.log.Error("token signature rejected, check signing key configuration", zap.Error(err))
		return session.Session{}, err
	default:
		g.log.Error("session verification failed", zap.Error(err))
		return session.Session{}, errors.Join(errs.ErrDependencyUnavailable, err)
	}
}

// BearerToken extracts the token from "Bearer <token>".
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errs.ErrCredentialMissing
	}
	scheme, tok, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", errs.ErrCredentialMalformed
	}
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return "", errs.ErrCredentialMalformed
	}
	return tok, nil
}

type ctxKey string

const sessionKey ctxKey = "nk.session"

// WithSession stores the verified session in ctx.
func WithSession(ctx context.Context, s session.Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFromContext fetches the session injected by the gate.
func SessionFromContext(ctx context.Context) (session.Session, bool) {
	s, ok := ctx.Value(sessionKey).(session.Session)
	return s, ok
}

// IdentityFromContext fetches the identity injected by the gate.
func IdentityFromContext(ctx context.Context) (model.Identity, bool) {
	s, ok := SessionFromContext(ctx)
	return s.Identity, ok
}

// TokenFromContext fetches the raw bearer token injected by the gate.
func TokenFromContext(ctx context.Context) (string, bool) {
	s, ok := SessionFromContext(ctx)
	return s.Token, ok && s.Token != ""
}
