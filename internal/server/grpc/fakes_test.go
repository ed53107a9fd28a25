package grpcserver

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/notekeeper/internal/errs"
	"github.com/and161185/notekeeper/internal/model"
	"github.com/and161185/notekeeper/internal/repository"
)

type memUsers struct {
	mu   sync.Mutex
	rows []model.User
}

var _ repository.UserRepository = (*memUsers)(nil)

func (m *memUsers) Create(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.rows {
		if x.Username == u.Username || x.Email == u.Email {
			return errs.ErrAlreadyExists
		}
	}
	u.CreatedAt = time.Now().UTC()
	m.rows = append(m.rows, *u)
	return nil
}

func (m *memUsers) find(match func(model.User) bool) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.rows {
		if match(u) {
			c := u
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (m *memUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	return m.find(func(u model.User) bool { return u.ID == id })
}

func (m *memUsers) GetByUsername(_ context.Context, name string) (*model.User, error) {
	return m.find(func(u model.User) bool { return u.Username == name })
}

func (m *memUsers) directory(prefix *string) []model.PublicUser {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.PublicUser
	for _, u := range m.rows {
		if prefix == nil || strings.HasPrefix(u.Username, *prefix) {
			out = append(out, model.PublicUser{ID: u.ID, Username: u.Username, Verified: u.Verified, CreatedAt: u.CreatedAt})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

func (m *memUsers) Count(_ context.Context, prefix *string) (int, error) {
	return len(m.directory(prefix)), nil
}

func (m *memUsers) List(_ context.Context, prefix *string, offset, limit int) ([]model.PublicUser, error) {
	return window(m.directory(prefix), offset, limit), nil
}

type memNotes struct {
	mu   sync.Mutex
	rows []model.Note
}

var _ repository.NoteRepository = (*memNotes)(nil)

func (m *memNotes) Create(_ context.Context, n *model.Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n.CreatedAt = time.Date(2026, 1, 1, 0, 0, len(m.rows), 0, time.UTC)
	m.rows = append(m.rows, *n)
	return nil
}

func (m *memNotes) Get(_ context.Context, owner, id uuid.UUID) (*model.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.rows {
		if n.OwnerID == owner && n.ID == id {
			c := n
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (m *memNotes) Delete(_ context.Context, owner, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, n := range m.rows {
		if n.OwnerID == owner && n.ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return errs.ErrNotFound
}

func (m *memNotes) owned(owner uuid.UUID, subject *string) []model.Note {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Note
	for i := len(m.rows) - 1; i >= 0; i-- {
		if n := m.rows[i]; n.OwnerID == owner && (subject == nil || n.Subject == *subject) {
			out = append(out, n)
		}
	}
	return out
}

func (m *memNotes) Count(_ context.Context, owner uuid.UUID, subject *string) (int, error) {
	return len(m.owned(owner, subject)), nil
}

func (m *memNotes) List(_ context.Context, owner uuid.UUID, subject *string, offset, limit int) ([]model.Note, error) {
	return window(m.owned(owner, subject), offset, limit), nil
}

func window[T any](all []T, offset, limit int) []T {
	if offset >= len(all) {
		return nil
	}
	return all[offset:min(offset+limit, len(all))]
}

type openLimiter struct{}

func (openLimiter) Allow(context.Context, string, []byte) (bool, time.Duration, error) {
	return true, 0, nil
}
func (openLimiter) Success(context.Context, string, []byte) error { return nil }
func (openLimiter) Failure(context.Context, string, []byte) (bool, time.Duration, error) {
	return false, 0, nil
}
