package infra

import (
	"context"
	"os"
	"testing"
	"time"

	"admin-gateway/middleware/security/domain"

	"github.com/google/uuid"
	"github.com/mailgun/holster/v4/clock"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisTokenStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()

	s := NewRedisTokenStore(rdb, WithTokenPrefix("test:"+uuid.NewString()))
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, domain.TokenRecord{SessionID: "s1", Token: "abc", ExpiresAt: clock.Now().Add(time.Minute)}))
	rec, ok, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "abc", rec.Token)
	assert.WithinDuration(t, clock.Now().Add(time.Minute), rec.ExpiresAt, 2*time.Second)

	require.NoError(t, s.Delete(ctx, "s1"))
	_, ok, err = s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, ok)
}
