package infra

import (
	"context"
	"sync"

	"admin-gateway/middleware/security/domain"

	"github.com/mailgun/holster/v4/clock"
)

type stopper interface {
	Stop() bool
}

// MemoryTokenStore guarda os tokens do processo e agenda a remoção de cada
// um em ExpiresAt. Get também confere a expiração, então um timer atrasado
// nunca deixa passar um token vencido.
type MemoryTokenStore struct {
	mu      sync.Mutex
	records map[string]domain.TokenRecord
	timers  map[string]stopper
}

var _ domain.TokenStore = (*MemoryTokenStore)(nil)

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{
		records: make(map[string]domain.TokenRecord),
		timers:  make(map[string]stopper),
	}
}

func (s *MemoryTokenStore) Put(_ context.Context, rec domain.TokenRecord) error {
	ttl := rec.ExpiresAt.Sub(clock.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopTimer(rec.SessionID)
	if ttl <= 0 {
		delete(s.records, rec.SessionID)
		return nil
	}

	s.records[rec.SessionID] = rec
	s.timers[rec.SessionID] = clock.AfterFunc(ttl, func() { s.expire(rec.SessionID, rec.Token) })
	return nil
}

func (s *MemoryTokenStore) Get(_ context.Context, sessionID string) (domain.TokenRecord, bool, error) {
	now := clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[sessionID]
	if !ok {
		return domain.TokenRecord{}, false, nil
	}
	if rec.Expired(now) {
		s.stopTimer(sessionID)
		delete(s.records, sessionID)
		return domain.TokenRecord{}, false, nil
	}
	return rec, true, nil
}

func (s *MemoryTokenStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopTimer(sessionID)
	delete(s.records, sessionID)
	return nil
}

func (s *MemoryTokenStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Close cancela todos os timers e descarta os tokens.
func (s *MemoryTokenStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range s.timers {
		s.stopTimer(id)
	}
	s.records = make(map[string]domain.TokenRecord)
}

// expire só remove se o token ainda for o mesmo; uma reemissão tem timer próprio.
func (s *MemoryTokenStore) expire(sessionID, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[sessionID]; ok && rec.Token == token {
		delete(s.records, sessionID)
		delete(s.timers, sessionID)
	}
}

// deve ser chamado com o lock
func (s *MemoryTokenStore) stopTimer(sessionID string) {
	if t, ok := s.timers[sessionID]; ok {
		t.Stop()
		delete(s.timers, sessionID)
	}
}
