package infra

import (
	"context"
	"strconv"
	"strings"
	"time"

	"admin-gateway/middleware/ratelimit/domain"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// A janela é um hash {n, reset}; reset (ms, relógio do Redis) identifica a
// geração da janela para que um Decrement atrasado não atinja a seguinte.

// incrScript incrementa e abre uma nova janela quando a atual terminou, tudo
// atômico no servidor. Devolve {contagem, fim da janela em ms}.
var incrScript = redis.NewScript(`
local t = redis.call("TIME")
local now = tonumber(t[1]) * 1000 + math.floor(tonumber(t[2]) / 1000)
local reset = tonumber(redis.call("HGET", KEYS[1], "reset") or "0")
if reset <= now then
  reset = now + tonumber(ARGV[1])
  redis.call("DEL", KEYS[1])
  redis.call("HSET", KEYS[1], "reset", reset)
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local n = redis.call("HINCRBY", KEYS[1], "n", 1)
return {n, reset}
`)

// decrScript só desconta se a janela viva for a mesma (ARGV[1] = reset).
var decrScript = redis.NewScript(`
if tonumber(redis.call("HGET", KEYS[1], "reset") or "0") ~= tonumber(ARGV[1]) then
  return 0
end
local n = tonumber(redis.call("HGET", KEYS[1], "n") or "0")
if n > 0 then
  return redis.call("HINCRBY", KEYS[1], "n", -1)
end
return 0
`)

// RedisWindowStore compartilha as janelas entre réplicas do gateway.
type RedisWindowStore struct {
	rdb    *redis.Client
	prefix string
}

type RedisWindowOption func(*RedisWindowStore)

func WithWindowPrefix(prefix string) RedisWindowOption {
	return func(s *RedisWindowStore) { s.prefix = strings.Trim(prefix, ":") }
}

var _ domain.WindowStore = (*RedisWindowStore)(nil)

func NewRedisWindowStore(rdb *redis.Client, opts ...RedisWindowOption) *RedisWindowStore {
	s := &RedisWindowStore{rdb: rdb, prefix: "ratelimit:window"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisWindowStore) key(k string) string {
	return s.prefix + ":" + k
}

func (s *RedisWindowStore) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	ms := window.Milliseconds()
	if ms <= 0 {
		return 0, time.Time{}, errors.Errorf("invalid window %s", window)
	}

	res, err := incrScript.Run(ctx, s.rdb, []string{s.key(key)}, ms).Int64Slice()
	if err != nil {
		return 0, time.Time{}, errors.Wrapf(err, "while incrementing window %q", key)
	}
	if len(res) != 2 {
		return 0, time.Time{}, errors.Errorf("unexpected reply for window %q: %v", key, res)
	}
	return res[0], time.UnixMilli(res[1]), nil
}

func (s *RedisWindowStore) Decrement(ctx context.Context, key string, resetAt time.Time) error {
	err := decrScript.Run(ctx, s.rdb, []string{s.key(key)}, strconv.FormatInt(resetAt.UnixMilli(), 10)).Err()
	return errors.Wrapf(err, "while decrementing window %q", key)
}

func (s *RedisWindowStore) Reset(ctx context.Context, key string) error {
	return errors.Wrapf(s.rdb.Del(ctx, s.key(key)).Err(), "while resetting window %q", key)
}
