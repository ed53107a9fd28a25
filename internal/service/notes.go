package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/notekeeper/internal/errs"
	"github.com/and161185/notekeeper/internal/model"
	"github.com/and161185/notekeeper/internal/pagination"
	"github.com/and161185/notekeeper/internal/repository"
)

// Field limits for notes.
const (
	MaxSubjectLen = 64
	MaxTitleLen   = 200
	MaxBodyBytes  = 64 << 10
)

// NoteService defines owner-scoped note operations.
type NoteService interface {
	// Create stores a new note and returns it with id and created_at set.
	Create(ctx context.Context, owner uuid.UUID, subject, title, body string) (*model.Note, error)
	// Get returns one of the owner's notes.
	Get(ctx context.Context, owner, id uuid.UUID) (*model.Note, error)
	// Delete removes one of the owner's notes.
	Delete(ctx context.Context, owner, id uuid.UUID) error
	// List returns one page of the owner's notes, newest first.
	List(ctx context.Context, owner uuid.UUID, req pagination.Request) (pagination.Page[model.Note], error)
}

type NoteServiceImpl struct {
	repo    repository.NoteRepository
	cursors *pagination.Cursors
}

// NewNoteService constructs NoteService; cursors must be bound to the notes listing.
func NewNoteService(repo repository.NoteRepository, cursors *pagination.Cursors) *NoteServiceImpl {
	return &NoteServiceImpl{repo: repo, cursors: cursors}
}

// Create validates fields and delegates to the repository.
func (s *NoteServiceImpl) Create(ctx context.Context, owner uuid.UUID, subject, title, body string) (*model.Note, error) {
	if owner == uuid.Nil {
		return nil, fmt.Errorf("%w: empty owner", errs.ErrInvalidArgument)
	}
	subject = strings.TrimSpace(subject)
	switch {
	case subject == "":
		return nil, fmt.Errorf("%w: subject is required", errs.ErrInvalidArgument)
	case utf8.RuneCountInString(subject) > MaxSubjectLen:
		return nil, fmt.Errorf("%w: subject longer than %d", errs.ErrInvalidArgument, MaxSubjectLen)
	case utf8.RuneCountInString(title) > MaxTitleLen:
		return nil, fmt.Errorf("%w: title longer than %d", errs.ErrInvalidArgument, MaxTitleLen)
	case len(body) > MaxBodyBytes:
		return nil, fmt.Errorf("%w: body larger than %d bytes", errs.ErrInvalidArgument, MaxBodyBytes)
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	n := &model.Note{ID: id, OwnerID: owner, Subject: subject, Title: title, Body: body}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// Get returns a single note by id.
func (s *NoteServiceImpl) Get(ctx context.Context, owner, id uuid.UUID) (*model.Note, error) {
	if owner == uuid.Nil || id == uuid.Nil {
		return nil, fmt.Errorf("%w: empty owner/id", errs.ErrInvalidArgument)
	}
	return s.repo.Get(ctx, owner, id)
}

// Delete removes a note.
func (s *NoteServiceImpl) Delete(ctx context.Context, owner, id uuid.UUID) error {
	if owner == uuid.Nil || id == uuid.Nil {
		return fmt.Errorf("%w: empty owner/id", errs.ErrInvalidArgument)
	}
	return s.repo.Delete(ctx, owner, id)
}

// List pages through the owner's notes; the subject filter is exact.
func (s *NoteServiceImpl) List(ctx context.Context, owner uuid.UUID, req pagination.Request) (pagination.Page[model.Note], error) {
	if owner == uuid.Nil {
		return pagination.Page[model.Note]{}, fmt.Errorf("%w: empty owner", errs.ErrInvalidArgument)
	}
	count := func(ctx context.Context, subject *string) (int, error) {
		return s.repo.Count(ctx, owner, subject)
	}
	list := func(ctx context.Context, subject *string, offset, limit int) ([]model.Note, error) {
		return s.repo.List(ctx, owner, subject, offset, limit)
	}
	return pagination.Paginate[model.Note](ctx, s.cursors, req, count, list)
}
