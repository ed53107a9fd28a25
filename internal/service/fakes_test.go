package service

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"

	"github.com/and161185/notekeeper/internal/errs"
	"github.com/and161185/notekeeper/internal/limiter"
	"github.com/and161185/notekeeper/internal/model"
	"github.com/and161185/notekeeper/internal/pagination"
	"github.com/and161185/notekeeper/internal/repository"
	"github.com/and161185/notekeeper/internal/token"
)

type fakeUsers struct {
	byName map[string]*model.User

	createErr error
	getErr    error
}

var _ repository.UserRepository = (*fakeUsers)(nil)

func newFakeUsers() *fakeUsers { return &fakeUsers{byName: map[string]*model.User{}} }

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	for _, x := range f.byName {
		if x.Username == u.Username || x.Email == u.Email {
			return errs.ErrAlreadyExists
		}
	}
	cpy := *u
	cpy.CreatedAt = time.Now()
	f.byName[u.Username] = &cpy
	return nil
}
func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	for _, u := range f.byName {
		if u.ID == id {
			c := *u
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}
func (f *fakeUsers) GetByUsername(_ context.Context, username string) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byName[username]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *u
	return &c, nil
}
func (f *fakeUsers) sorted(prefix *string) []model.PublicUser {
	var out []model.PublicUser
	for _, u := range f.byName {
		if prefix == nil || strings.HasPrefix(u.Username, *prefix) {
			out = append(out, model.PublicUser{ID: u.ID, Username: u.Username, Verified: u.Verified, CreatedAt: u.CreatedAt})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}
func (f *fakeUsers) Count(_ context.Context, prefix *string) (int, error) {
	return len(f.sorted(prefix)), nil
}
func (f *fakeUsers) List(_ context.Context, prefix *string, offset, limit int) ([]model.PublicUser, error) {
	all := f.sorted(prefix)
	if offset >= len(all) {
		return nil, nil
	}
	return all[offset:min(offset+limit, len(all))], nil
}

type fakeNotes struct {
	rows []model.Note
	err  error
}

var _ repository.NoteRepository = (*fakeNotes)(nil)

func (f *fakeNotes) Create(_ context.Context, n *model.Note) error {
	if f.err != nil {
		return f.err
	}
	n.CreatedAt = time.Date(2026, 1, 1, 0, 0, len(f.rows), 0, time.UTC)
	f.rows = append(f.rows, *n)
	return nil
}
func (f *fakeNotes) Get(_ context.Context, owner, id uuid.UUID) (*model.Note, error) {
	for _, n := range f.rows {
		if n.OwnerID == owner && n.ID == id {
			c := n
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}
func (f *fakeNotes) Delete(_ context.Context, owner, id uuid.UUID) error {
	for i, n := range f.rows {
		if n.OwnerID == owner && n.ID == id {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return errs.ErrNotFound
}
func (f *fakeNotes) filtered(owner uuid.UUID, subject *string) []model.Note {
	var out []model.Note
	for i := len(f.rows) - 1; i >= 0; i-- {
		n := f.rows[i]
		if n.OwnerID == owner && (subject == nil || n.Subject == *subject) {
			out = append(out, n)
		}
	}
	return out
}
func (f *fakeNotes) Count(_ context.Context, owner uuid.UUID, subject *string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return len(f.filtered(owner, subject)), nil
}
func (f *fakeNotes) List(_ context.Context, owner uuid.UUID, subject *string, offset, limit int) ([]model.Note, error) {
	all := f.filtered(owner, subject)
	if offset >= len(all) {
		return nil, nil
	}
	return all[offset:min(offset+limit, len(all))], nil
}

type fakeLimiter struct {
	allowOK  bool
	allowErr error

	failBlocked bool
	failErr     error

	successErr error

	allowCalls   int
	failureCalls int
	successCalls int
}

var _ limiter.Limiter = (*fakeLimiter)(nil)

func (l *fakeLimiter) Allow(context.Context, string, []byte) (bool, time.Duration, error) {
	l.allowCalls++
	return l.allowOK, 0, l.allowErr
}
func (l *fakeLimiter) Success(context.Context, string, []byte) error {
	l.successCalls++
	return l.successErr
}
func (l *fakeLimiter) Failure(context.Context, string, []byte) (bool, time.Duration, error) {
	l.failureCalls++
	return l.failBlocked, 0, l.failErr
}

type fakeSessions struct {
	issued  map[string]model.Identity
	revoked []string
	err     error
	n       int
}

var _ Sessions = (*fakeSessions)(nil)

func newFakeSessions() *fakeSessions { return &fakeSessions{issued: map[string]model.Identity{}} }

func (f *fakeSessions) Issue(_ context.Context, id model.Identity) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.n++
	tok := "tok-" + id.Username + "-" + string(rune('0'+f.n))
	f.issued[tok] = id
	return tok, nil
}
func (f *fakeSessions) Revoke(_ context.Context, tok string) error {
	if f.err != nil {
		return f.err
	}
	f.revoked = append(f.revoked, tok)
	delete(f.issued, tok)
	return nil
}
func (f *fakeSessions) Lifetime() time.Duration { return 7 * 24 * time.Hour }

func newCursors(t *testing.T, resource string) *pagination.Cursors {
	t.Helper()
	codec, err := token.NewCodec([]byte("svc-test-key"))
	require.NoError(t, err)
	return pagination.NewCursors(codec, resource)
}
