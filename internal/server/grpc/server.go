// Package grpcserver exposes the NoteKeeper gRPC API handlers.
package grpcserver

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/and161185/notekeeper/internal/convert"
	"github.com/and161185/notekeeper/internal/errs"
	"github.com/and161185/notekeeper/internal/gate"
	"github.com/and161185/notekeeper/internal/limiter"
	"github.com/and161185/notekeeper/internal/service"
	"github.com/and161185/notekeeper/internal/session"
)

// Expirer reports when a verified session stops being valid.
type Expirer interface {
	Expires(s session.Session) time.Time
}

// Server wires services into gRPC handlers.
type Server struct {
	auth     service.AuthService
	notes    service.NoteService
	users    service.UserService
	sessions Expirer
	log      *zap.Logger
}

var _ NoteKeeperServer = (*Server)(nil)

// New constructs a gRPC server with injected services.
func New(auth service.AuthService, notes service.NoteService, users service.UserService, sessions Expirer, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{auth: auth, notes: notes, users: users, sessions: sessions, log: log}
}

// --- Auth ---

// Register creates a new user account.
func (s *Server) Register(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := s.auth.Register(ctx,
		convert.String(req, "username"),
		convert.String(req, "email"),
		convert.String(req, "password"))
	if err != nil {
		return nil, s.status("register", err)
	}
	return s.reply(map[string]any{"user_id": id.String()})
}

// Login authenticates a user and issues a session token.
func (s *Server) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	tok, u, err := s.auth.Login(ctx,
		convert.String(req, "username"),
		convert.String(req, "password"),
		limiter.PeerHost(ctx))
	if err != nil {
		return nil, s.status("login", err)
	}
	return s.reply(map[string]any{
		"token":      tok.AccessToken,
		"user_id":    u.ID.String(),
		"expires_at": convert.Time(tok.ExpiresAt),
	})
}

// Logout revokes the presented token.
func (s *Server) Logout(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	tok, ok := gate.TokenFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "no session")
	}
	if err := s.auth.Logout(ctx, tok); err != nil {
		return nil, s.status("logout", err)
	}
	return s.reply(map[string]any{})
}

// Whoami describes the caller.
func (s *Server) Whoami(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	sess, ok := gate.SessionFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "no session")
	}
	u, err := s.auth.Whoami(ctx, sess.Identity)
	if err != nil {
		return nil, s.status("whoami", err)
	}
	return s.reply(map[string]any{
		"user_id":    u.ID.String(),
		"username":   u.Username,
		"email":      u.Email,
		"verified":   u.Verified,
		"expires_at": convert.Time(s.sessions.Expires(sess)),
	})
}

// --- Notes ---

// CreateNote stores a note owned by the caller.
func (s *Server) CreateNote(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, ok := gate.IdentityFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "no session")
	}
	n, err := s.notes.Create(ctx, id.UID,
		convert.String(req, "subject"),
		convert.String(req, "title"),
		convert.String(req, "body"))
	if err != nil {
		return nil, s.status("create note", err)
	}
	return s.reply(map[string]any{"id": n.ID.String(), "created_at": convert.Time(n.CreatedAt)})
}

// GetNote returns one of the caller's notes.
func (s *Server) GetNote(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, ok := gate.IdentityFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "no session")
	}
	noteID, err := convert.UUID(req, "id")
	if err != nil {
		return nil, s.status("get note", err)
	}
	n, err := s.notes.Get(ctx, id.UID, noteID)
	if err != nil {
		return nil, s.status("get note", err)
	}
	return s.reply(convert.Note(*n))
}

// DeleteNote removes one of the caller's notes.
func (s *Server) DeleteNote(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, ok := gate.IdentityFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "no session")
	}
	noteID, err := convert.UUID(req, "id")
	if err != nil {
		return nil, s.status("delete note", err)
	}
	if err := s.notes.Delete(ctx, id.UID, noteID); err != nil {
		return nil, s.status("delete note", err)
	}
	return s.reply(map[string]any{})
}

// ListNotes pages through the caller's notes.
func (s *Server) ListNotes(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, ok := gate.IdentityFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "no session")
	}
	pr, err := convert.PageRequest(req)
	if err != nil {
		return nil, s.status("list notes", err)
	}
	page, err := s.notes.List(ctx, id.UID, pr)
	if err != nil {
		return nil, s.status("list notes", err)
	}
	out, err := convert.Page(page, convert.Note)
	if err != nil {
		return nil, s.status("list notes", err)
	}
	return out, nil
}

// ListUsers pages through the user directory.
func (s *Server) ListUsers(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	pr, err := convert.PageRequest(req)
	if err != nil {
		return nil, s.status("list users", err)
	}
	page, err := s.users.List(ctx, pr)
	if err != nil {
		return nil, s.status("list users", err)
	}
	out, err := convert.Page(page, convert.PublicUser)
	if err != nil {
		return nil, s.status("list users", err)
	}
	return out, nil
}

func (s *Server) reply(m map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, s.status("encode reply", err)
	}
	return out, nil
}

// status maps service errors onto gRPC codes. Anything outside the taxonomy
// is treated as a store failure: logged, then returned as Unavailable.
func (s *Server) status(op string, err error) error {
	switch {
	case errors.Is(err, errs.ErrInvalidArgument),
		errors.Is(err, errs.ErrCursorAmbiguous),
		errors.Is(err, errs.ErrCursorOutOfRange),
		errors.Is(err, errs.ErrTokenMalformed),
		errors.Is(err, errs.ErrSignatureInvalid):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, errs.ErrAlreadyExists):
		return status.Error(codes.AlreadyExists, "already exists")
	case errors.Is(err, errs.ErrUnauthorized):
		return status.Error(codes.Unauthenticated, "bad credentials")
	case errors.Is(err, errs.ErrSessionNotFound), errors.Is(err, errs.ErrSessionExpired):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, errs.ErrRateLimited):
		return status.Error(codes.ResourceExhausted, "rate limited")
	case errors.Is(err, errs.ErrNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, op)
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, op)
	}
	s.log.Error(op+" failed", zap.Error(err))
	return status.Error(codes.Unavailable, "unavailable")
}
