package infra

import (
	"context"
	"testing"
	"time"

	"admin-gateway/middleware/security/domain"

	"github.com/mailgun/holster/v4/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryTokenStore_PutGetDelete(t *testing.T) {
	s := NewMemoryTokenStore()
	defer s.Close()
	ctx := context.Background()

	rec := domain.TokenRecord{SessionID: "s1", Token: "abc", ExpiresAt: clock.Now().Add(time.Minute)}
	require.NoError(t, s.Put(ctx, rec))

	got, ok, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rec, got)

	require.NoError(t, s.Delete(ctx, "s1"))
	_, ok, err = s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryTokenStore_ExpiresAtTTL(t *testing.T) {
	defer clock.Freeze(clock.Now()).Unfreeze()

	s := NewMemoryTokenStore()
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, domain.TokenRecord{SessionID: "s1", Token: "abc", ExpiresAt: clock.Now().Add(30 * time.Minute)}))

	clock.Advance(29 * time.Minute)
	_, ok, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, ok)

	clock.Advance(time.Minute)
	_, ok, err = s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, s.Len())
}

func TestMemoryTokenStore_ReissueOverwrites(t *testing.T) {
	defer clock.Freeze(clock.Now()).Unfreeze()

	s := NewMemoryTokenStore()
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, domain.TokenRecord{SessionID: "s1", Token: "old", ExpiresAt: clock.Now().Add(10 * time.Minute)}))
	clock.Advance(5 * time.Minute)
	require.NoError(t, s.Put(ctx, domain.TokenRecord{SessionID: "s1", Token: "new", ExpiresAt: clock.Now().Add(10 * time.Minute)}))

	// o prazo do token antigo passa, o novo continua vivo
	clock.Advance(6 * time.Minute)
	got, ok, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "new", got.Token)
}

func TestMemoryTokenStore_PastExpiryIsNotStored(t *testing.T) {
	s := NewMemoryTokenStore()
	defer s.Close()

	require.NoError(t, s.Put(context.Background(), domain.TokenRecord{SessionID: "s1", Token: "abc", ExpiresAt: clock.Now().Add(-time.Second)}))
	assert.Zero(t, s.Len())
}

func TestMemoryTokenStore_CloseDropsTokens(t *testing.T) {
	s := NewMemoryTokenStore()
	require.NoError(t, s.Put(context.Background(), domain.TokenRecord{SessionID: "s1", Token: "abc", ExpiresAt: clock.Now().Add(time.Minute)}))
	s.Close()
	assert.Zero(t, s.Len())
}
