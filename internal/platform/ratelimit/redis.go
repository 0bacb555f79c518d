package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore хранит счетчики в Redis, чтобы несколько инстансов движка
// делили один потолок. Lua-скрипт делает инкремент-и-сравнение атомарно
// на стороне Redis.
type RedisStore struct {
	rdb    redis.Cmdable
	prefix string
}

// Скрипт возвращает {allowed, remaining, ttl_ms}.
// KEYS[1] — счетчик окна, KEYS[2] — ключ блокировки.
// ARGV[1] — потолок, ARGV[2] — окно в мс, ARGV[3] — блокировка в мс.
var checkScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[2]) == 1 then
	return {0, 0, redis.call('PTTL', KEYS[2])}
end
local count = redis.call('INCR', KEYS[1])
if count == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
if count > tonumber(ARGV[1]) then
	redis.call('SET', KEYS[2], '1', 'PX', ARGV[3])
	redis.call('DEL', KEYS[1])
	return {0, 0, tonumber(ARGV[3])}
end
return {1, tonumber(ARGV[1]) - count, redis.call('PTTL', KEYS[1])}
`)

type RedisStoreOption func(*RedisStore)

func WithPrefix(prefix string) RedisStoreOption {
	return func(s *RedisStore) { s.prefix = prefix }
}

func NewRedisStore(rdb redis.Cmdable, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{
		rdb:    rdb,
		prefix: "ratelimit:",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) Check(ctx context.Context, identifier string, rule Rule) (*Result, error) {
	keys := []string{
		s.prefix + "count:" + identifier,
		s.prefix + "block:" + identifier,
	}
	argv := []interface{}{
		rule.MaxRequests,
		rule.Window.Milliseconds(),
		rule.BlockFor.Milliseconds(),
	}

	raw, err := checkScript.Run(ctx, s.rdb, keys, argv...).Slice()
	if err != nil {
		return nil, fmt.Errorf("ratelimit script failed: %w", err)
	}
	if len(raw) != 3 {
		return nil, fmt.Errorf("ratelimit script returned %d values, want 3", len(raw))
	}

	allowed, _ := raw[0].(int64)
	remaining, _ := raw[1].(int64)
	ttlMs, _ := raw[2].(int64)

	now := time.Now()
	resetAt := now.Add(time.Duration(ttlMs) * time.Millisecond)

	res := &Result{
		Allowed:   allowed == 1,
		Remaining: int(remaining),
		ResetAt:   resetAt,
	}
	if allowed != 1 {
		res.BlockedUntil = resetAt
	}
	return res, nil
}
