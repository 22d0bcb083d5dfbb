package respcache

import (
	"regexp"
	"sync/atomic"
	"time"

	"admin-gateway/middleware/respcache/domain"

	"github.com/mailgun/holster/v4/clock"
	"github.com/mailgun/holster/v4/setter"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const DefaultTTL = 5 * time.Minute

// Cache memoriza respostas idempotentes com TTL e invalidação por padrão.
// A expiração usa o relógio do holster para que os testes possam congelar o tempo.
type Cache struct {
	store      domain.Store
	defaultTTL time.Duration
	log        logrus.FieldLogger

	hits   atomic.Uint64
	misses atomic.Uint64
	sets   atomic.Uint64
}

type Option func(*Cache)

func WithDefaultTTL(d time.Duration) Option {
	return func(c *Cache) { c.defaultTTL = d }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Cache) { c.log = log }
}

func New(store domain.Store, opts ...Option) *Cache {
	c := &Cache{store: store}
	for _, opt := range opts {
		opt(c)
	}
	setter.SetDefault(&c.defaultTTL, DefaultTTL)
	setter.SetDefault(&c.log, logrus.WithField("category", "respcache"))
	return c
}

func (c *Cache) DefaultTTL() time.Duration { return c.defaultTTL }

// Get registra hit ou miss. Entradas expiradas contam como miss e são removidas.
func (c *Cache) Get(key string) (domain.Value, bool) {
	e, ok := c.store.Get(key, clock.Now())
	if !ok {
		c.misses.Add(1)
		return domain.Value{}, false
	}
	c.hits.Add(1)
	return e.Value, true
}

// Set sobrescreve a entrada e aproveita para varrer as expiradas.
func (c *Cache) Set(key string, v domain.Value, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	now := clock.Now()
	c.store.Put(domain.Entry{
		Key:       key,
		Value:     v,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	})
	c.sets.Add(1)

	if n := c.store.Sweep(now); n > 0 {
		c.log.WithField("removed", n).Debug("swept expired cache entries")
	}
}

func (c *Cache) Delete(key string) bool {
	return c.store.Delete(key)
}

// Invalidate remove toda entrada cuja chave casa com a expressão regular.
func (c *Cache) Invalidate(pattern string) (int, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid cache invalidation pattern %q", pattern)
	}
	removed := c.store.DeleteMatching(re.MatchString)
	c.log.WithFields(logrus.Fields{
		"pattern": pattern,
		"removed": removed,
	}).Debug("cache invalidated")
	return removed, nil
}

// Clear esvazia o store e zera os contadores.
func (c *Cache) Clear() {
	c.store.Clear()
	c.hits.Store(0)
	c.misses.Store(0)
	c.sets.Store(0)
}

type evictionCounter interface {
	Evictions() uint64
}

// Stats não altera estado.
func (c *Cache) Stats() domain.Stats {
	st := domain.Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Sets:   c.sets.Load(),
		Size:   c.store.Len(),
	}
	if ec, ok := c.store.(evictionCounter); ok {
		st.Evictions = ec.Evictions()
	}
	if total := st.Hits + st.Misses; total > 0 {
		st.HitRate = float64(st.Hits) / float64(total)
	}
	return st
}
