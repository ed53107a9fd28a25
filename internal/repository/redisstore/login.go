// Package redisstore implements the login registry on Redis.
//
// Each login is a hash at <prefix>:login:<token> holding the owner uid and
// the issue time in unix nanoseconds. The key outlives the absolute lifetime
// by one more lifetime, so expiry is still decided by the session manager
// while Redis sweeps stale logins on its own.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/redis/go-redis/v9"

	"github.com/and161185/notekeeper/internal/errs"
	"github.com/and161185/notekeeper/internal/model"
)

const (
	fieldUID    = "uid"
	fieldIssued = "issued"
)

const updateTimeScript = `
if redis.call("HGET", KEYS[1], "uid") ~= ARGV[1] then
  return 0
end
redis.call("HSET", KEYS[1], "issued", ARGV[2])
redis.call("PEXPIREAT", KEYS[1], ARGV[3])
return 1
`

var updateTimeLua = redis.NewScript(updateTimeScript)

// LoginStore is a Redis-backed LoginRegistry.
type LoginStore struct {
	rdb      redis.UniversalClient
	prefix   string
	retain   time.Duration
}

// NewLoginStore constructs a login store. Keys are kept for twice the
// session lifetime after their issue time.
func NewLoginStore(rdb redis.UniversalClient, prefix string, lifetime time.Duration) *LoginStore {
	if prefix == "" {
		prefix = "nk"
	}
	return &LoginStore{rdb: rdb, prefix: prefix, retain: 2 * lifetime}
}

func (s *LoginStore) key(token string) string { return s.prefix + ":login:" + token }

// Get returns the login for (uid, token).
func (s *LoginStore) Get(ctx context.Context, uid uuid.UUID, token string) (*model.Login, error) {
	vals, err := s.rdb.HGetAll(ctx, s.key(token)).Result()
	if err != nil {
		return nil, unavailable(err)
	}
	if len(vals) == 0 || vals[fieldUID] != uid.String() {
		return nil, errs.ErrNotFound
	}
	ns, err := strconv.ParseInt(vals[fieldIssued], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: redis: bad issued field: %v", errs.ErrDependencyUnavailable, err)
	}
	return &model.Login{UID: uid, Token: token, TimeIssued: time.Unix(0, ns).UTC()}, nil
}

// Insert records a new login and arms its expiry.
func (s *LoginStore) Insert(ctx context.Context, uid uuid.UUID, token string, issued time.Time) error {
	key := s.key(token)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, fieldUID, uid.String(), fieldIssued, issued.UnixNano())
		pipe.PExpireAt(ctx, key, issued.Add(s.retain))
		return nil
	})
	if err != nil {
		return unavailable(err)
	}
	return nil
}

// UpdateTime moves the issue time and the key expiry forward.
func (s *LoginStore) UpdateTime(ctx context.Context, uid uuid.UUID, token string, issued time.Time) error {
	n, err := updateTimeLua.Run(ctx, s.rdb, []string{s.key(token)},
		uid.String(), issued.UnixNano(), issued.Add(s.retain).UnixMilli()).Int()
	if err != nil {
		return unavailable(err)
	}
	if n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Delete removes the login; missing keys are not an error.
func (s *LoginStore) Delete(ctx context.Context, token string) error {
	if err := s.rdb.Del(ctx, s.key(token)).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// DeleteIssuedBefore is a no-op: key TTLs already drop stale logins.
func (s *LoginStore) DeleteIssuedBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func unavailable(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: redis: %v", errs.ErrDependencyUnavailable, err)
}
