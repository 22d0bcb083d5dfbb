package infra

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"

	"admin-gateway/middleware/respcache/domain"

	"github.com/mailgun/holster/v4/setter"
)

// MemoryStore é um LRU com limite de entradas e expiração por entrada.
// Seguro para uso concorrente.
type MemoryStore struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	ll         *list.List
	maxEntries int
	evictions  atomic.Uint64
}

type MemoryStoreOption func(*MemoryStore)

// WithMaxEntries define o limite do LRU. 0 mantém o padrão (1000).
func WithMaxEntries(n int) MemoryStoreOption {
	return func(s *MemoryStore) { s.maxEntries = n }
}

func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]*list.Element),
		ll:      list.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	setter.SetDefault(&s.maxEntries, 1000)
	return s
}

// Get implementa domain.Store.
func (s *MemoryStore) Get(key string, now time.Time) (domain.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ele, ok := s.entries[key]
	if !ok {
		return domain.Entry{}, false
	}
	e := ele.Value.(domain.Entry)
	if e.Expired(now) {
		s.removeElement(ele)
		return domain.Entry{}, false
	}
	s.ll.MoveToFront(ele)
	return e, true
}

func (s *MemoryStore) Put(e domain.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ele, ok := s.entries[e.Key]; ok {
		s.ll.MoveToFront(ele)
		ele.Value = e
		return
	}

	s.entries[e.Key] = s.ll.PushFront(e)
	if s.ll.Len() > s.maxEntries {
		if oldest := s.ll.Back(); oldest != nil {
			s.removeElement(oldest)
			s.evictions.Add(1)
		}
	}
}

func (s *MemoryStore) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	ele, ok := s.entries[key]
	if !ok {
		return false
	}
	s.removeElement(ele)
	return true
}

func (s *MemoryStore) DeleteMatching(match func(key string) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, ele := range s.entries {
		if match(key) {
			s.removeElement(ele)
			removed++
		}
	}
	return removed
}

// Sweep é O(n) sobre as entradas atuais; o store é limitado por maxEntries.
func (s *MemoryStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for _, ele := range s.entries {
		if ele.Value.(domain.Entry).Expired(now) {
			s.removeElement(ele)
			removed++
		}
	}
	return removed
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ll.Len()
}

func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*list.Element)
	s.ll.Init()
}

// Evictions conta as entradas despejadas por falta de espaço (não por TTL).
func (s *MemoryStore) Evictions() uint64 { return s.evictions.Load() }

func (s *MemoryStore) MaxEntries() int { return s.maxEntries }

func (s *MemoryStore) removeElement(ele *list.Element) {
	s.ll.Remove(ele)
	delete(s.entries, ele.Value.(domain.Entry).Key)
}
