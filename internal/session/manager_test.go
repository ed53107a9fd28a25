package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"

	"github.com/and161185/notekeeper/internal/errs"
	"github.com/and161185/notekeeper/internal/model"
	"github.com/and161185/notekeeper/internal/repository"
	"github.com/and161185/notekeeper/internal/token"
)

type fakeLogins struct {
	rows map[string]model.Login

	getErr    error
	insertErr error
	updateErr error

	updates int
}

var _ repository.LoginRegistry = (*fakeLogins)(nil)

func newFakeLogins() *fakeLogins { return &fakeLogins{rows: map[string]model.Login{}} }

func (f *fakeLogins) Get(_ context.Context, uid uuid.UUID, tok string) (*model.Login, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	l, ok := f.rows[tok]
	if !ok || l.UID != uid {
		return nil, errs.ErrNotFound
	}
	return &l, nil
}
func (f *fakeLogins) Insert(_ context.Context, uid uuid.UUID, tok string, issued time.Time) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.rows[tok] = model.Login{UID: uid, Token: tok, TimeIssued: issued}
	return nil
}
func (f *fakeLogins) UpdateTime(_ context.Context, uid uuid.UUID, tok string, issued time.Time) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates++
	l, ok := f.rows[tok]
	if !ok || l.UID != uid {
		return errs.ErrNotFound
	}
	l.TimeIssued = issued
	f.rows[tok] = l
	return nil
}
func (f *fakeLogins) Delete(_ context.Context, tok string) error {
	delete(f.rows, tok)
	return nil
}
func (f *fakeLogins) DeleteIssuedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for k, l := range f.rows {
		if l.TimeIssued.Before(cutoff) {
			delete(f.rows, k)
			n++
		}
	}
	return n, nil
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newManager(t *testing.T) (*Manager, *fakeLogins, *clock) {
	t.Helper()
	codec, err := token.NewCodec([]byte("test-key"))
	require.NoError(t, err)
	logins := newFakeLogins()
	clk := &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	return NewManager(codec, logins, WithClock(clk.now)), logins, clk
}

func alice() model.Identity {
	return model.Identity{
		UID:      uuid.Must(uuid.NewV4()),
		Email:    "alice@example.com",
		Username: "alice",
		Verified: true,
	}
}

func TestIssueThenVerify_ReturnsIdentity(t *testing.T) {
	t.Parallel()
	m, logins, clk := newManager(t)
	id := alice()

	tok, err := m.Issue(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, clk.t, logins.rows[tok].TimeIssued)

	s, err := m.Verify(context.Background(), tok)
	require.NoError(t, err)
	require.Equal(t, id, s.Identity)
	require.Equal(t, tok, s.Token)
	require.Equal(t, clk.t.Add(AbsoluteLifetime), m.Expires(s))
}

func TestIssue_SameIdentityGivesDistinctTokens(t *testing.T) {
	t.Parallel()
	m, logins, _ := newManager(t)
	id := alice()

	a, err := m.Issue(context.Background(), id)
	require.NoError(t, err)
	b, err := m.Issue(context.Background(), id)
	require.NoError(t, err)
	require.NotEqual(t, a, b)
	require.Len(t, logins.rows, 2)
}

func TestIssue_Errors(t *testing.T) {
	t.Parallel()
	m, logins, _ := newManager(t)

	_, err := m.Issue(context.Background(), model.Identity{})
	require.ErrorIs(t, err, errs.ErrInvalidArgument)

	boom := errors.New("db down")
	logins.insertErr = boom
	_, err = m.Issue(context.Background(), alice())
	require.ErrorIs(t, err, boom)
}

func TestVerify_ExpiryBoundary(t *testing.T) {
	t.Parallel()
	m, _, clk := newManager(t)
	tok, err := m.Issue(context.Background(), alice())
	require.NoError(t, err)

	clk.advance(AbsoluteLifetime - time.Second)
	_, err = m.Verify(context.Background(), tok)
	require.NoError(t, err)

	clk.advance(2 * time.Second)
	_, err = m.Verify(context.Background(), tok)
	require.ErrorIs(t, err, errs.ErrSessionExpired)
}

func TestVerify_PropagatesCodecAndStoreFailures(t *testing.T) {
	t.Parallel()
	m, logins, _ := newManager(t)

	_, err := m.Verify(context.Background(), "garbage")
	require.ErrorIs(t, err, errs.ErrTokenMalformed)

	other, err := token.NewCodec([]byte("other-key"))
	require.NoError(t, err)
	forged, err := other.EncodeSession(token.SessionClaims{UID: uuid.Must(uuid.NewV4()).String()})
	require.NoError(t, err)
	_, err = m.Verify(context.Background(), forged)
	require.ErrorIs(t, err, errs.ErrSignatureInvalid)

	tok, err := m.Issue(context.Background(), alice())
	require.NoError(t, err)
	boom := errors.New("conn reset")
	logins.getErr = boom
	_, err = m.Verify(context.Background(), tok)
	require.ErrorIs(t, err, boom)
	require.NotErrorIs(t, err, errs.ErrSessionNotFound)
}

func TestVerify_UnknownLoginIsSessionNotFound(t *testing.T) {
	t.Parallel()
	m, logins, _ := newManager(t)
	tok, err := m.Issue(context.Background(), alice())
	require.NoError(t, err)

	delete(logins.rows, tok)
	_, err = m.Verify(context.Background(), tok)
	require.ErrorIs(t, err, errs.ErrSessionNotFound)
}

func TestRefresh_InsideAndOutsideWindow(t *testing.T) {
	t.Parallel()
	m, _, _ := newManager(t)
	issued := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := Session{IssuedAt: issued}

	now := issued.Add(6*24*time.Hour + time.Hour)
	got, moved := m.Refresh(s, now)
	require.True(t, moved)
	require.Equal(t, now, got)

	got, moved = m.Refresh(s, issued.Add(24*time.Hour))
	require.False(t, moved)
	require.Equal(t, issued, got)

	got, moved = m.Refresh(s, issued.Add(AbsoluteLifetime-RefreshWindow))
	require.True(t, moved)
	require.Equal(t, issued.Add(AbsoluteLifetime-RefreshWindow), got)

	_, moved = m.Refresh(s, issued.Add(AbsoluteLifetime))
	require.False(t, moved)
}

func TestVerifyAndRefresh_SlidesHorizon(t *testing.T) {
	t.Parallel()
	m, logins, clk := newManager(t)
	tok, err := m.Issue(context.Background(), alice())
	require.NoError(t, err)
	issued := clk.t

	clk.advance(24 * time.Hour)
	s, err := m.VerifyAndRefresh(context.Background(), tok)
	require.NoError(t, err)
	require.Equal(t, issued, s.IssuedAt)
	require.Equal(t, 0, logins.updates)

	clk.advance(5*24*time.Hour + time.Hour)
	s, err = m.VerifyAndRefresh(context.Background(), tok)
	require.NoError(t, err)
	require.Equal(t, clk.t, s.IssuedAt)
	require.Equal(t, clk.t, logins.rows[tok].TimeIssued)
	require.Equal(t, 1, logins.updates)

	// past the original horizon, still valid thanks to the slide
	clk.advance(3 * 24 * time.Hour)
	_, err = m.VerifyAndRefresh(context.Background(), tok)
	require.NoError(t, err)
}

func TestVerifyAndRefresh_ShortCircuitsAndPropagatesUpdateErr(t *testing.T) {
	t.Parallel()
	m, logins, clk := newManager(t)
	tok, err := m.Issue(context.Background(), alice())
	require.NoError(t, err)

	clk.advance(AbsoluteLifetime + time.Second)
	_, err = m.VerifyAndRefresh(context.Background(), tok)
	require.ErrorIs(t, err, errs.ErrSessionExpired)
	require.Equal(t, 0, logins.updates)

	tok, err = m.Issue(context.Background(), alice())
	require.NoError(t, err)
	clk.advance(6 * 24 * time.Hour)
	boom := errors.New("write failed")
	logins.updateErr = boom
	_, err = m.VerifyAndRefresh(context.Background(), tok)
	require.ErrorIs(t, err, boom)
}

func TestVerifyAndRefresh_LoginGoneBeforeRefreshIsSessionNotFound(t *testing.T) {
	t.Parallel()
	m, logins, clk := newManager(t)
	tok, err := m.Issue(context.Background(), alice())
	require.NoError(t, err)

	clk.advance(6*24*time.Hour + time.Hour)
	logins.updateErr = errs.ErrNotFound
	_, err = m.VerifyAndRefresh(context.Background(), tok)
	require.ErrorIs(t, err, errs.ErrSessionNotFound)
}

func TestVerify_ExactlyAtLifetimeStillValid(t *testing.T) {
	t.Parallel()
	m, logins, clk := newManager(t)
	tok, err := m.Issue(context.Background(), alice())
	require.NoError(t, err)
	issued := clk.t

	clk.advance(AbsoluteLifetime)
	s, err := m.VerifyAndRefresh(context.Background(), tok)
	require.NoError(t, err)
	require.Equal(t, issued, s.IssuedAt)
	require.Equal(t, 0, logins.updates)
}

func TestRevoke_ThenVerifyIsSessionNotFound(t *testing.T) {
	t.Parallel()
	m, _, _ := newManager(t)
	tok, err := m.Issue(context.Background(), alice())
	require.NoError(t, err)

	require.NoError(t, m.Revoke(context.Background(), tok))
	require.NoError(t, m.Revoke(context.Background(), tok))

	_, err = m.VerifyAndRefresh(context.Background(), tok)
	require.ErrorIs(t, err, errs.ErrSessionNotFound)
}

func TestSweep_RemovesOnlyExpired(t *testing.T) {
	t.Parallel()
	m, logins, clk := newManager(t)
	old, err := m.Issue(context.Background(), alice())
	require.NoError(t, err)

	clk.advance(5 * 24 * time.Hour)
	fresh, err := m.Issue(context.Background(), alice())
	require.NoError(t, err)

	clk.advance(3 * 24 * time.Hour)
	n, err := m.Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
	require.NotContains(t, logins.rows, old)
	require.Contains(t, logins.rows, fresh)
}

func TestWithLifetime_ClampsWindow(t *testing.T) {
	t.Parallel()
	codec, err := token.NewCodec([]byte("k"))
	require.NoError(t, err)
	m := NewManager(codec, newFakeLogins(), WithLifetime(time.Hour, 2*time.Hour))
	require.Equal(t, time.Hour, m.Lifetime())
	require.Equal(t, time.Hour, m.window)
}
