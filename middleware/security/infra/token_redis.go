package infra

import (
	"context"
	"strings"
	"time"

	"admin-gateway/middleware/security/domain"

	"github.com/mailgun/holster/v4/clock"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisTokenStore compartilha os tokens CSRF entre réplicas. A expiração fica
// com o próprio Redis (SET ... PX).
type RedisTokenStore struct {
	rdb    *redis.Client
	prefix string
}

type RedisTokenOption func(*RedisTokenStore)

func WithTokenPrefix(prefix string) RedisTokenOption {
	return func(s *RedisTokenStore) { s.prefix = strings.Trim(prefix, ":") }
}

var _ domain.TokenStore = (*RedisTokenStore)(nil)

func NewRedisTokenStore(rdb *redis.Client, opts ...RedisTokenOption) *RedisTokenStore {
	s := &RedisTokenStore{rdb: rdb, prefix: "csrf:token"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisTokenStore) key(sessionID string) string {
	return s.prefix + ":" + sessionID
}

func (s *RedisTokenStore) Put(ctx context.Context, rec domain.TokenRecord) error {
	ttl := rec.ExpiresAt.Sub(clock.Now())
	if ttl <= 0 {
		return s.Delete(ctx, rec.SessionID)
	}
	err := s.rdb.Set(ctx, s.key(rec.SessionID), rec.Token, ttl).Err()
	return errors.Wrap(err, "while storing csrf token")
}

func (s *RedisTokenStore) Get(ctx context.Context, sessionID string) (domain.TokenRecord, bool, error) {
	pipe := s.rdb.Pipeline()
	get := pipe.Get(ctx, s.key(sessionID))
	pttl := pipe.PTTL(ctx, s.key(sessionID))
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return domain.TokenRecord{}, false, errors.Wrap(err, "while reading csrf token")
	}

	token, err := get.Result()
	if err == redis.Nil {
		return domain.TokenRecord{}, false, nil
	}
	if err != nil {
		return domain.TokenRecord{}, false, errors.Wrap(err, "while reading csrf token")
	}

	ttl := pttl.Val()
	if ttl <= 0 {
		return domain.TokenRecord{}, false, nil
	}
	return domain.TokenRecord{
		SessionID: sessionID,
		Token:     token,
		ExpiresAt: clock.Now().Add(ttl.Round(time.Millisecond)),
	}, true, nil
}

func (s *RedisTokenStore) Delete(ctx context.Context, sessionID string) error {
	return errors.Wrap(s.rdb.Del(ctx, s.key(sessionID)).Err(), "while deleting csrf token")
}
