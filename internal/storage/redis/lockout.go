package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const lockoutPrefix = "lockout:"

// recordFailureScript increments the counter and refreshes its TTL. When the
// counter reaches the threshold it is replaced by a lock flag. An existing
// lock is left untouched and reported as {0, 1}: nothing was counted.
//
// KEYS[1] counter, KEYS[2] lock; ARGV[1] threshold, ARGV[2] counter TTL ms, ARGV[3] lock TTL ms.
var recordFailureScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[2]) == 1 then
	return {0, 1}
end
local n = redis.call('INCR', KEYS[1])
redis.call('PEXPIRE', KEYS[1], ARGV[2])
if n >= tonumber(ARGV[1]) then
	redis.call('SET', KEYS[2], '1', 'PX', ARGV[3])
	redis.call('DEL', KEYS[1])
	return {n, 1}
end
return {n, 0}
`)

type LockoutStorage struct {
	client redis.UniversalClient
}

func NewLockoutStorage(client redis.UniversalClient) *LockoutStorage {
	return &LockoutStorage{client: client}
}

func counterKey(namespace, identifier string) string {
	return lockoutPrefix + namespace + ":fail:" + identifier
}

func lockKey(namespace, identifier string) string {
	return lockoutPrefix + namespace + ":lock:" + identifier
}

func (s *LockoutStorage) LockoutState(ctx context.Context, namespace, identifier string) (int, time.Duration, error) {
	pipe := s.client.Pipeline()
	countCmd := pipe.Get(ctx, counterKey(namespace, identifier))
	ttlCmd := pipe.PTTL(ctx, lockKey(namespace, identifier))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return 0, 0, fmt.Errorf("lockout state: %w", err)
	}

	count, err := countCmd.Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, 0, fmt.Errorf("lockout counter: %w", err)
	}

	ttl := ttlCmd.Val()
	if ttl < 0 {
		ttl = 0
	}
	return count, ttl, nil
}

func (s *LockoutStorage) RecordFailure(
	ctx context.Context,
	namespace, identifier string,
	threshold int,
	counterTTL, lockTTL time.Duration,
) (int, bool, error) {
	keys := []string{counterKey(namespace, identifier), lockKey(namespace, identifier)}
	res, err := recordFailureScript.Run(ctx, s.client, keys, threshold, counterTTL.Milliseconds(), lockTTL.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, false, fmt.Errorf("record failure: %w", err)
	}
	if len(res) != 2 {
		return 0, false, fmt.Errorf("record failure: unexpected reply %v", res)
	}
	return int(res[0]), res[1] == 1, nil
}

func (s *LockoutStorage) ClearLockout(ctx context.Context, namespace, identifier string) error {
	if err := s.client.Del(ctx, counterKey(namespace, identifier), lockKey(namespace, identifier)).Err(); err != nil {
		return fmt.Errorf("clear lockout: %w", err)
	}
	return nil
}
