package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "session:"

	// Records are never deleted by the application; the sliding TTL only
	// reaps chats that have been silent for a month.
	sessionTTL = 30 * 24 * time.Hour

	lockTTL       = 5 * time.Second
	lockRetryWait = 25 * time.Millisecond
)

// RedisStore is a Store backed by redis, usable across processes. Per-key
// serialization uses a lease lock so webhook deliveries for the same chat
// handled by different workers cannot interleave.
type RedisStore struct {
	redis *redis.Client
}

// NewRedisStore creates a redis-backed session store.
func NewRedisStore(client *redis.Client) *RedisStore {
	if client == nil {
		return nil
	}
	return &RedisStore{redis: client}
}

func sessionKey(chatID int64) string {
	return sessionKeyPrefix + strconv.FormatInt(chatID, 10)
}

// Get returns the record for the chat, or a zero Record when absent.
func (s *RedisStore) Get(ctx context.Context, chatID int64) (Record, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	raw, err := s.redis.Get(ctx, sessionKey(chatID)).Result()
	if errors.Is(err, redis.Nil) {
		return Record{}, nil
	}
	if err != nil {
		return Record{}, fmt.Errorf("session: get %d: %w", chatID, err)
	}

	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return Record{}, fmt.Errorf("session: decode %d: %w", chatID, err)
	}
	return rec, nil
}

// Set overwrites the record for the chat and refreshes its TTL.
func (s *RedisStore) Set(ctx context.Context, chatID int64, rec Record) error {
	if ctx == nil {
		ctx = context.Background()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("session: encode %d: %w", chatID, err)
	}
	if err := s.redis.Set(ctx, sessionKey(chatID), data, sessionTTL).Err(); err != nil {
		return fmt.Errorf("session: set %d: %w", chatID, err)
	}
	return nil
}

// Update runs fn under the chat's lease lock. fn may block on slow work
// (catalog scrapes, availability lookups), so the lease is renewed in the
// background while it runs, and the final write is refused if the lease was
// lost anyway: a takeover by another worker must never be overwritten with
// the stale record this holder read before losing it.
func (s *RedisStore) Update(ctx context.Context, chatID int64, fn func(*Record) error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	token, err := s.acquireLock(ctx, chatID)
	if err != nil {
		return err
	}
	defer s.releaseLock(chatID, token)

	renewCtx, stopRenew := context.WithCancel(ctx)
	defer stopRenew()
	go s.renewLock(renewCtx, chatID, token)

	rec, err := s.Get(ctx, chatID)
	if err != nil {
		return err
	}
	if err := fn(&rec); err != nil {
		return err
	}
	return s.setLocked(ctx, chatID, token, rec)
}

// renewLock extends the lease while the critical section runs. A renewal
// that finds the token gone gives up; setLocked turns that into a failed
// Update.
func (s *RedisStore) renewLock(ctx context.Context, chatID int64, token string) {
	const script = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0`

	ticker := time.NewTicker(lockTTL / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			held, err := s.redis.Eval(ctx, script, []string{lockKey(chatID)}, token, lockTTL.Milliseconds()).Int()
			if err == nil && held == 0 {
				return
			}
		}
	}
}

// setLocked writes the record only while this holder still owns the lease.
// The token check and the write run in one script so an expired lease cannot
// slip a stale record over a newer one.
func (s *RedisStore) setLocked(ctx context.Context, chatID int64, token string, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("session: encode %d: %w", chatID, err)
	}

	const script = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	redis.call("set", KEYS[2], ARGV[2], "PX", ARGV[3])
	return 1
end
return 0`
	held, err := s.redis.Eval(ctx, script,
		[]string{lockKey(chatID), sessionKey(chatID)},
		token, string(data), sessionTTL.Milliseconds(),
	).Int()
	if err != nil {
		return fmt.Errorf("session: set %d: %w", chatID, err)
	}
	if held == 0 {
		return fmt.Errorf("session: update %d: lock lease expired during update", chatID)
	}
	return nil
}

func lockKey(chatID int64) string {
	return sessionKey(chatID) + ":lock"
}

func (s *RedisStore) acquireLock(ctx context.Context, chatID int64) (string, error) {
	token := uuid.NewString()
	key := lockKey(chatID)

	for {
		ok, err := s.redis.SetNX(ctx, key, token, lockTTL).Result()
		if err != nil {
			return "", fmt.Errorf("session: acquire lock %d: %w", chatID, err)
		}
		if ok {
			return token, nil
		}
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("session: acquire lock %d: %w", chatID, ctx.Err())
		case <-time.After(lockRetryWait):
		}
	}
}

// releaseLock deletes the lock only if this holder still owns it; an expired
// lease taken over by another worker must not be released from here.
func (s *RedisStore) releaseLock(chatID int64, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	const script = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`
	s.redis.Eval(ctx, script, []string{lockKey(chatID)}, token)
}
