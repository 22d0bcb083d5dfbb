package infra

import (
	"context"
	"sync"
	"time"

	"admin-gateway/middleware/ratelimit/domain"

	"github.com/mailgun/holster/v4/clock"
	"github.com/mailgun/holster/v4/setter"
)

// MemoryWindowStore guarda janelas fixas em memória, por processo.
//
// Serve para um único processo; com várias réplicas cada uma conta sozinha.
// Para orçamento compartilhado use RedisWindowStore.
type MemoryWindowStore struct {
	mu      sync.Mutex
	windows map[string]*window

	maxKeys      int
	cleanupEvery time.Duration
}

type window struct {
	count    int64
	start    time.Time
	duration time.Duration
}

func (w *window) expired(now time.Time) bool {
	return !now.Before(w.start.Add(w.duration))
}

type WindowOption func(*MemoryWindowStore)

// WithMaxKeys limita quantas janelas ficam em memória (padrão 100000).
func WithMaxKeys(n int) WindowOption {
	return func(s *MemoryWindowStore) { s.maxKeys = n }
}

func WithWindowCleanupEvery(d time.Duration) WindowOption {
	return func(s *MemoryWindowStore) { s.cleanupEvery = d }
}

var _ domain.WindowStore = (*MemoryWindowStore)(nil)

func NewMemoryWindowStore(opts ...WindowOption) *MemoryWindowStore {
	s := &MemoryWindowStore{windows: make(map[string]*window)}
	for _, opt := range opts {
		opt(s)
	}
	setter.SetDefault(&s.maxKeys, 100000)
	setter.SetDefault(&s.cleanupEvery, time.Minute)
	return s
}

func (s *MemoryWindowStore) Increment(_ context.Context, key string, d time.Duration) (int64, time.Time, error) {
	now := clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if !ok || w.expired(now) {
		if !ok && len(s.windows) >= s.maxKeys {
			s.evict(now)
		}
		w = &window{start: now, duration: d}
		s.windows[key] = w
	}
	w.count++
	return w.count, w.start.Add(w.duration), nil
}

func (s *MemoryWindowStore) Decrement(_ context.Context, key string, resetAt time.Time) error {
	now := clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if !ok || w.expired(now) || !w.start.Add(w.duration).Equal(resetAt) {
		return nil
	}
	if w.count > 0 {
		w.count--
	}
	return nil
}

func (s *MemoryWindowStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.windows, key)
	s.mu.Unlock()
	return nil
}

// Count devolve a contagem corrente da janela (0 se expirada ou ausente).
func (s *MemoryWindowStore) Count(key string) int64 {
	now := clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if w, ok := s.windows[key]; ok && !w.expired(now) {
		return w.count
	}
	return 0
}

func (s *MemoryWindowStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

// Cleanup remove janelas expiradas e devolve quantas saíram.
func (s *MemoryWindowStore) Cleanup() int {
	now := clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweep(now)
}

func (s *MemoryWindowStore) sweep(now time.Time) int {
	removed := 0
	for k, w := range s.windows {
		if w.expired(now) {
			delete(s.windows, k)
			removed++
		}
	}
	return removed
}

// evict abre espaço: primeiro as expiradas, senão a janela mais antiga.
// Deve ser chamado com o lock.
func (s *MemoryWindowStore) evict(now time.Time) {
	if s.sweep(now) > 0 {
		return
	}
	var oldestKey string
	var oldest time.Time
	for k, w := range s.windows {
		if oldestKey == "" || w.start.Before(oldest) {
			oldestKey, oldest = k, w.start
		}
	}
	if oldestKey != "" {
		delete(s.windows, oldestKey)
	}
}

// StartJanitor inicia uma goroutine que remove janelas expiradas periodicamente.
// Pare cancelando o contexto.
func (s *MemoryWindowStore) StartJanitor(ctx DoneContext) {
	startJanitor(ctx, s.cleanupEvery, func() { s.Cleanup() })
}
