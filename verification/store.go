package verification

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strconv"
	"time"

	clock "github.com/filecoin-project/go-clock"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mvplatform/mvauth/internal"
)

// ErrNotFound is returned when no pending challenge exists for the lookup
// tuple, including challenges already consumed or revoked.
var ErrNotFound = errors.New("verification challenge not found")

// ErrCodeMismatch is returned when the submitted code differs from the
// pending challenge's code.
var ErrCodeMismatch = errors.New("verification code mismatch")

// ErrCodeExpired is returned when the submitted code matches a challenge
// whose validity window has passed.
var ErrCodeExpired = errors.New("verification code expired")

// ErrMailFailed wraps mail collaborator errors during issuance.
var ErrMailFailed = errors.New("challenge mail delivery failed")

// ErrRedisUnavailable is an exported constant or variable wrapping backend
// failures.
var ErrRedisUnavailable = errors.New("redis unavailable")

// SystemIP is the sentinel scope for challenges issued without caller
// accountability.
const SystemIP = "system"

const (
	verifyStatusNotFound int64 = 0
	verifyStatusMismatch int64 = 1
	verifyStatusExpired  int64 = 2
	verifyStatusConsumed int64 = 3
)

// Message is a single outbound mail.
type Message struct {
	To       string
	Subject  string
	Template string
	Data     map[string]any
}

// Mailer delivers challenge codes. Send must be safe for concurrent use.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Challenge is the stored record of one issued code.
type Challenge struct {
	ID         string
	UserID     string
	Channel    string
	Purpose    string
	Code       string
	Recipient  string
	IP         string
	IssuedAt   int64
	ExpiresAt  int64
	ConsumedAt int64
}

// revokeScript marks every unconsumed challenge in the (ip, user) index as
// consumed and clears the index. Records keep their retention TTL.
const revokeScript = `
local revoked = 0
for _, id in ipairs(redis.call("SMEMBERS", KEYS[1])) do
  local key = ARGV[1] .. id
  if redis.call("EXISTS", key) == 1 and redis.call("HGET", key, "consumed_at") == false then
    redis.call("HSET", key, "consumed_at", ARGV[2])
    revoked = revoked + 1
  end
  redis.call("SREM", KEYS[1], id)
end
return revoked
`

var revokeLua = redis.NewScript(revokeScript)

// insertScript writes the challenge record, repoints the (user, channel,
// purpose) pointer at it, and adds it to the (ip, user) index. All keys
// carry the retention TTL.
const insertScript = `
redis.call("HSET", KEYS[1],
  "id", ARGV[1],
  "user", ARGV[2],
  "channel", ARGV[3],
  "purpose", ARGV[4],
  "token", ARGV[5],
  "recipient", ARGV[6],
  "ip", ARGV[7],
  "issued_at", ARGV[8],
  "expires_at", ARGV[9])
redis.call("PEXPIRE", KEYS[1], ARGV[10])
redis.call("SET", KEYS[2], ARGV[1], "PX", ARGV[10])
redis.call("SADD", KEYS[3], ARGV[1])
redis.call("PEXPIRE", KEYS[3], ARGV[10])
return 1
`

var insertLua = redis.NewScript(insertScript)

// verifyScript resolves the pointer to the most recent challenge and checks
// the submitted code. Mismatch is checked before expiry so an attacker
// probing with wrong codes learns nothing about challenge age. Consumed and
// missing records both report not-found and clear the stale pointer.
const verifyScript = `
local id = redis.call("GET", KEYS[1])
if not id then
  return {0}
end
local key = ARGV[1] .. id
if redis.call("EXISTS", key) == 0 then
  redis.call("DEL", KEYS[1])
  return {0}
end
if redis.call("HGET", key, "consumed_at") then
  redis.call("DEL", KEYS[1])
  return {0}
end
local token = redis.call("HGET", key, "token")
if token ~= ARGV[2] then
  return {1}
end
local expires = tonumber(redis.call("HGET", key, "expires_at"))
if expires and tonumber(ARGV[3]) >= expires then
  return {2}
end
redis.call("HSET", key, "consumed_at", ARGV[3])
redis.call("DEL", KEYS[1])
local ip = redis.call("HGET", key, "ip")
if ip then
  redis.call("SREM", ARGV[4] .. ip .. ":" .. ARGV[5], id)
end
return {3, token}
`

var verifyLua = redis.NewScript(verifyScript)

// StoreConfig controls key layout, code shape, and mail rendering.
type StoreConfig struct {
	Prefix       string
	CodeLength   int
	TTL          time.Duration
	Retention    time.Duration
	MailSubject  string
	MailTemplate string
}

// Store is the Redis-backed challenge store.
type Store struct {
	redis  redis.UniversalClient
	cfg    StoreConfig
	clock  clock.Clock
	mailer Mailer
}

// NewStore creates a challenge [Store]. clk is the sole time source for
// issuance timestamps and expiry comparisons.
func NewStore(rdb redis.UniversalClient, cfg StoreConfig, clk clock.Clock, mailer Mailer) *Store {
	if cfg.Prefix == "" {
		cfg.Prefix = "vc"
	}
	if cfg.Retention < cfg.TTL {
		cfg.Retention = cfg.TTL
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Store{
		redis:  rdb,
		cfg:    cfg,
		clock:  clk,
		mailer: mailer,
	}
}

func (s *Store) recordPrefix() string {
	return s.cfg.Prefix + ":c:"
}

func (s *Store) indexPrefix() string {
	return s.cfg.Prefix + ":i:"
}

func (s *Store) recordKey(id string) string {
	return s.recordPrefix() + id
}

func (s *Store) pointerKey(userID, channel, purpose string) string {
	return s.cfg.Prefix + ":p:" + userID + ":" + channel + ":" + purpose
}

func (s *Store) indexKey(ip, userID string) string {
	return s.indexPrefix() + normalizeIP(ip) + ":" + userID
}

func normalizeIP(ip string) string {
	if ip == "" {
		return SystemIP
	}
	return ip
}

// Issue revokes every pending challenge for (ip, user), generates a fresh
// code, delivers it, and records the new challenge. Revocation is broader
// than Verify's lookup scope: it covers all channels and purposes for the
// pair, so a new request cancels stale codes everywhere.
//
// Delivery failures abort issuance after revocation; prior challenges stay
// revoked and no new challenge is recorded.
func (s *Store) Issue(ctx context.Context, ip, userID, channel, purpose, recipient string) (int, error) {
	code, err := internal.NewCode(s.cfg.CodeLength)
	if err != nil {
		return 0, err
	}

	now := s.clock.Now()

	revoked, err := s.RevokeAll(ctx, ip, userID)
	if err != nil {
		return 0, err
	}

	if channel == "email" && s.mailer != nil {
		msg := Message{
			To:       recipient,
			Subject:  s.cfg.MailSubject,
			Template: s.cfg.MailTemplate,
			Data: map[string]any{
				"otp":     code,
				"purpose": purpose,
			},
		}
		if err := s.mailer.Send(ctx, msg); err != nil {
			return revoked, fmt.Errorf("%w: %v", ErrMailFailed, err)
		}
	}

	id := uuid.NewString()
	expires := now.Add(s.cfg.TTL)

	err = insertLua.Run(
		ctx,
		s.redis,
		[]string{s.recordKey(id), s.pointerKey(userID, channel, purpose), s.indexKey(ip, userID)},
		id,
		userID,
		channel,
		purpose,
		code,
		recipient,
		normalizeIP(ip),
		strconv.FormatInt(now.UnixMilli(), 10),
		strconv.FormatInt(expires.UnixMilli(), 10),
		strconv.FormatInt(s.cfg.Retention.Milliseconds(), 10),
	).Err()
	if err != nil {
		return revoked, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return revoked, nil
}

// Verify consumes the pending challenge for (user, channel, purpose) when
// the submitted code matches and is not expired. A matching code is
// single-use: the record is marked consumed atomically with the check.
func (s *Store) Verify(ctx context.Context, userID, channel, purpose, code string) error {
	result, err := verifyLua.Run(
		ctx,
		s.redis,
		[]string{s.pointerKey(userID, channel, purpose)},
		s.recordPrefix(),
		code,
		strconv.FormatInt(s.clock.Now().UnixMilli(), 10),
		s.indexPrefix(),
		userID,
	).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	parts, ok := result.([]interface{})
	if !ok || len(parts) == 0 {
		return fmt.Errorf("%w: invalid verify script response", ErrRedisUnavailable)
	}

	status, ok := parts[0].(int64)
	if !ok {
		return fmt.Errorf("%w: invalid verify script status", ErrRedisUnavailable)
	}

	switch status {
	case verifyStatusNotFound:
		return ErrNotFound
	case verifyStatusMismatch:
		return ErrCodeMismatch
	case verifyStatusExpired:
		return ErrCodeExpired
	case verifyStatusConsumed:
		if len(parts) < 2 {
			return fmt.Errorf("%w: missing verify script token", ErrRedisUnavailable)
		}
		stored, ok := parts[1].(string)
		if !ok {
			return fmt.Errorf("%w: invalid verify script token", ErrRedisUnavailable)
		}
		// Re-check in Go as defense in depth against script drift.
		if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
			return ErrCodeMismatch
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown verify script status", ErrRedisUnavailable)
	}
}

// RevokeAll marks every unconsumed challenge for (ip, user) as consumed,
// across all channels and purposes, and returns how many it revoked.
func (s *Store) RevokeAll(ctx context.Context, ip, userID string) (int, error) {
	revoked, err := revokeLua.Run(
		ctx,
		s.redis,
		[]string{s.indexKey(ip, userID)},
		s.recordPrefix(),
		strconv.FormatInt(s.clock.Now().UnixMilli(), 10),
	).Int()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return revoked, nil
}

// Get fetches a challenge record by ID without mutating it. Missing records
// return [ErrNotFound].
func (s *Store) Get(ctx context.Context, id string) (*Challenge, error) {
	fields, err := s.redis.HGetAll(ctx, s.recordKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	c := &Challenge{
		ID:        fields["id"],
		UserID:    fields["user"],
		Channel:   fields["channel"],
		Purpose:   fields["purpose"],
		Code:      fields["token"],
		Recipient: fields["recipient"],
		IP:        fields["ip"],
	}
	c.IssuedAt, _ = strconv.ParseInt(fields["issued_at"], 10, 64)
	c.ExpiresAt, _ = strconv.ParseInt(fields["expires_at"], 10, 64)
	c.ConsumedAt, _ = strconv.ParseInt(fields["consumed_at"], 10, 64)

	return c, nil
}

// PendingID returns the challenge ID the (user, channel, purpose) pointer
// currently resolves to, or [ErrNotFound].
func (s *Store) PendingID(ctx context.Context, userID, channel, purpose string) (string, error) {
	id, err := s.redis.Get(ctx, s.pointerKey(userID, channel, purpose)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return id, nil
}
