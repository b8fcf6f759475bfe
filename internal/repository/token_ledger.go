package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis key layout.  Sessions live in one hash per email whose fields are
// "<token>:<jit>" so that revoking a single session is two field deletes
// and revoking every session is one key delete.  Reset codes occupy a
// single TTL'd string key per email, overwritten on reissue.
const (
	tokenListPrefix = "TOKEN_LIST:"
	resetCodePrefix = "RESET_CODE:"
)

// TokenLedger is the source of truth for "is this specific token instance
// still authorized".  Signature validity alone never grants access: the
// guard requires the presented token's field to exist here.  Ledger
// failures always propagate to the caller; an unreachable ledger must never
// read as "token valid".
type TokenLedger struct{ RDB *redis.Client }

func NewTokenLedger(rdb *redis.Client) *TokenLedger { return &TokenLedger{RDB: rdb} }

// revokeIfPresent deletes a session's two fields only when the refresh
// token's field still exists, and reports how it decided.  Running the
// check and the deletes inside one script closes the window between two
// concurrent refreshes presenting the same stale pair: exactly one of them
// sees 1 back.
var revokeIfPresent = redis.NewScript(`
	if redis.call('HEXISTS', KEYS[1], ARGV[2]) == 0 then
		return 0
	end
	redis.call('HDEL', KEYS[1], ARGV[1], ARGV[2])
	return 1
`)

func tokenListKey(email string) string { return tokenListPrefix + email }

func sessionField(token, jit string) string { return token + ":" + jit }

// Record adds the two membership entries for a session.  Re-adding an
// existing member is a no-op, so retries are safe.
func (l *TokenLedger) Record(ctx context.Context, email, accessToken, refreshToken, jit string) error {
	return l.RDB.HSet(ctx, tokenListKey(email), map[string]interface{}{
		sessionField(accessToken, jit):  0,
		sessionField(refreshToken, jit): 0,
	}).Err()
}

// Exists reports whether the given token instance is still authorized.
// This is a point lookup (HEXISTS); it sits on the request hot path.
func (l *TokenLedger) Exists(ctx context.Context, email, token, jit string) (bool, error) {
	return l.RDB.HExists(ctx, tokenListKey(email), sessionField(token, jit)).Result()
}

// RevokeSession removes exactly the two entries for one session.  Other
// sessions of the same email are untouched.  Deleting absent fields is a
// no-op, which makes logout idempotent.
func (l *TokenLedger) RevokeSession(ctx context.Context, email, accessToken, refreshToken, jit string) error {
	return l.RDB.HDel(ctx, tokenListKey(email),
		sessionField(accessToken, jit),
		sessionField(refreshToken, jit)).Err()
}

// RevokeSessionIfPresent atomically removes the session's entries if the
// refresh token is still recorded, returning false when another request
// already rotated this pair.  Used by the refresh flow so that only one of
// two concurrent rotations on the same stale pair succeeds.
func (l *TokenLedger) RevokeSessionIfPresent(ctx context.Context, email, accessToken, refreshToken, jit string) (bool, error) {
	n, err := revokeIfPresent.Run(ctx, l.RDB, []string{tokenListKey(email)},
		sessionField(accessToken, jit),
		sessionField(refreshToken, jit)).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// RevokeAll removes every session entry for the email.  Used after a
// password change or reset to force re-authentication everywhere.
func (l *TokenLedger) RevokeAll(ctx context.Context, email string) error {
	return l.RDB.Del(ctx, tokenListKey(email)).Err()
}

// PutResetCode stores the single live reset code for an email, superseding
// any prior value at the same key.
func (l *TokenLedger) PutResetCode(ctx context.Context, email, code string, ttl time.Duration) error {
	return l.RDB.Set(ctx, resetCodePrefix+email, code, ttl).Err()
}

// GetResetCode returns the stored code and whether one exists.  Expiry and
// absence are indistinguishable on purpose; the TTL is enforced by Redis.
func (l *TokenLedger) GetResetCode(ctx context.Context, email string) (string, bool, error) {
	code, err := l.RDB.Get(ctx, resetCodePrefix+email).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return code, true, nil
}

// DeleteResetCode consumes the stored code (single use).
func (l *TokenLedger) DeleteResetCode(ctx context.Context, email string) error {
	return l.RDB.Del(ctx, resetCodePrefix+email).Err()
}
