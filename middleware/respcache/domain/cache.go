package domain

import "time"

// Value é a resposta memorizada. Header usa map simples para não depender de net/http.
type Value struct {
	Status int
	Header map[string][]string
	Body   []byte
}

// Entry é uma entrada do cache. Logicamente ausente quando now >= ExpiresAt,
// mesmo que ainda esteja fisicamente no store até a próxima varredura.
type Entry struct {
	Key       string
	Value     Value
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired trata o instante exato de ExpiresAt como expirado.
func (e Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Store guarda as entradas. É dono exclusivo delas: quem chama não deve
// alterar o Value devolvido.
type Store interface {
	// Get devolve a entrada viva. Entradas expiradas são removidas e reportadas como ausentes.
	Get(key string, now time.Time) (Entry, bool)
	// Put insere ou sobrescreve. Pode despejar a entrada menos usada se o store tiver limite.
	Put(e Entry)
	Delete(key string) bool
	// DeleteMatching remove toda chave para a qual match devolve true.
	DeleteMatching(match func(key string) bool) int
	// Sweep remove as entradas expiradas em now.
	Sweep(now time.Time) int
	Len() int
	Clear()
}

// Stats é um snapshot dos contadores do cache.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Sets      uint64
	Evictions uint64
	Size      int
	HitRate   float64
}
