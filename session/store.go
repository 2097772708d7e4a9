package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	clock "github.com/filecoin-project/go-clock"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when no live session matches the token.
var ErrNotFound = errors.New("session not found")

// ErrCorrupt is returned when a stored session blob fails to decode.
var ErrCorrupt = errors.New("session blob corrupt")

// ErrRedisUnavailable is an exported constant or variable wrapping backend
// failures.
var ErrRedisUnavailable = errors.New("redis unavailable")

// replaceScript deletes every session in the user's index, then inserts the
// new one. Running as a single script makes login's delete-all-then-insert
// atomic: no interleaving can leave a user with two live sessions.
const replaceScript = `
local removed = 0
for _, token in ipairs(redis.call("SMEMBERS", KEYS[1])) do
  removed = removed + redis.call("DEL", ARGV[1] .. token)
end
redis.call("DEL", KEYS[1])
redis.call("SET", ARGV[1] .. ARGV[2], ARGV[3], "PX", ARGV[4])
redis.call("SADD", KEYS[1], ARGV[2])
redis.call("PEXPIRE", KEYS[1], ARGV[4])
return removed
`

var replaceLua = redis.NewScript(replaceScript)

const deleteSessionScript = `
local existed = redis.call("DEL", KEYS[1])
redis.call("SREM", KEYS[2], ARGV[1])
return existed
`

var deleteSessionLua = redis.NewScript(deleteSessionScript)

// Store is a Redis-backed session store keyed by opaque refresh token.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	clock  clock.Clock
}

// NewStore creates a session [Store] backed by the given Redis client.
// prefix sets the Redis key namespace; clk is the sole time source for
// expiry checks.
func NewStore(rdb redis.UniversalClient, prefix string, clk clock.Clock) *Store {
	if prefix == "" {
		prefix = "ms"
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Store{
		redis:  rdb,
		prefix: prefix,
		clock:  clk,
	}
}

func (s *Store) sessionPrefix() string {
	return s.prefix + ":s:"
}

func (s *Store) key(token string) string {
	return s.sessionPrefix() + token
}

func (s *Store) userKey(userID string) string {
	return s.prefix + ":u:" + userID
}

// Replace atomically removes every session belonging to sess.UserID and
// persists sess with the given TTL. Returns how many sessions it removed.
func (s *Store) Replace(ctx context.Context, sess *Session, ttl time.Duration) (int, error) {
	data, err := Encode(sess)
	if err != nil {
		return 0, err
	}

	removed, err := replaceLua.Run(
		ctx,
		s.redis,
		[]string{s.userKey(sess.UserID)},
		s.sessionPrefix(),
		sess.Token,
		data,
		ttl.Milliseconds(),
	).Int()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return removed, nil
}

// Get retrieves a session by refresh token. Sessions past their recorded
// expiry are deleted on read and reported as [ErrNotFound].
func (s *Store) Get(ctx context.Context, token string) (*Session, error) {
	data, err := s.redis.Get(ctx, s.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	sess.Token = token

	if s.clock.Now().UnixMilli() >= sess.ExpiresAt {
		if err := s.Delete(ctx, token); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}

	return sess, nil
}

// Delete removes a session and its index entry. Deleting an absent session
// is not an error.
func (s *Store) Delete(ctx context.Context, token string) error {
	data, err := s.redis.Get(ctx, s.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	_, err = deleteSessionLua.Run(
		ctx,
		s.redis,
		[]string{s.key(token), s.userKey(sess.UserID)},
		token,
	).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// DeleteAllForUser removes every session tracked for a user.
func (s *Store) DeleteAllForUser(ctx context.Context, userID string) error {
	userKey := s.userKey(userID)

	tokens, err := s.redis.SMembers(ctx, userKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, token := range tokens {
			pipe.Del(ctx, s.key(token))
		}
		pipe.Del(ctx, userKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// ActiveTokens returns the refresh tokens tracked for a user.
func (s *Store) ActiveTokens(ctx context.Context, userID string) ([]string, error) {
	tokens, err := s.redis.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return tokens, nil
}
