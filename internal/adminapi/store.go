package adminapi

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mailgun/holster/v4/clock"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

type Supplier struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SupplierStore guarda fornecedores em memória. Serve de backend de
// demonstração para o gateway.
type SupplierStore struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]Supplier
}

func NewSupplierStore() *SupplierStore {
	return &SupplierStore{nextID: 1, items: make(map[int64]Supplier)}
}

// List filtra por status exato e por termo (nome ou email, sem caixa).
func (s *SupplierStore) List(status, query string) []Supplier {
	query = strings.ToLower(strings.TrimSpace(query))

	s.mu.RLock()
	out := make([]Supplier, 0, len(s.items))
	for _, it := range s.items {
		if status != "" && it.Status != status {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(it.Name), query) &&
			!strings.Contains(strings.ToLower(it.Email), query) {
			continue
		}
		out = append(out, it)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *SupplierStore) Get(id int64) (Supplier, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[id]
	return it, ok
}

func (s *SupplierStore) Create(in Supplier) Supplier {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := clock.Now().UTC()
	in.ID = s.nextID
	in.CreatedAt, in.UpdatedAt = now, now
	s.nextID++
	s.items[in.ID] = in
	return in
}

func (s *SupplierStore) Update(id int64, in Supplier) (Supplier, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.items[id]
	if !ok {
		return Supplier{}, false
	}
	cur.Name, cur.Email, cur.Status = in.Name, in.Email, in.Status
	cur.UpdatedAt = clock.Now().UTC()
	s.items[id] = cur
	return cur, true
}

func (s *SupplierStore) Delete(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return false
	}
	delete(s.items, id)
	return true
}
