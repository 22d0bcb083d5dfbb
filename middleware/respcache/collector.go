package respcache

import "github.com/prometheus/client_golang/prometheus"

var (
	accessDesc = prometheus.NewDesc(
		"respcache_access_count",
		"Cache access counts. Label \"type\" = hit|miss.",
		[]string{"type"}, nil,
	)
	setsDesc = prometheus.NewDesc(
		"respcache_sets_count",
		"Responses written to the cache.",
		nil, nil,
	)
	evictionsDesc = prometheus.NewDesc(
		"respcache_evictions_count",
		"Entries evicted because the cache was full.",
		nil, nil,
	)
	sizeDesc = prometheus.NewDesc(
		"respcache_size",
		"Number of entries currently held by the response cache.",
		nil, nil,
	)
)

// Collector expõe as Stats do Cache para o prometheus.
type Collector struct {
	cache *Cache
}

var _ prometheus.Collector = &Collector{}

func NewCollector(c *Cache) *Collector {
	return &Collector{cache: c}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- accessDesc
	ch <- setsDesc
	ch <- evictionsDesc
	ch <- sizeDesc
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	st := c.cache.Stats()
	ch <- prometheus.MustNewConstMetric(accessDesc, prometheus.CounterValue, float64(st.Hits), "hit")
	ch <- prometheus.MustNewConstMetric(accessDesc, prometheus.CounterValue, float64(st.Misses), "miss")
	ch <- prometheus.MustNewConstMetric(setsDesc, prometheus.CounterValue, float64(st.Sets))
	ch <- prometheus.MustNewConstMetric(evictionsDesc, prometheus.CounterValue, float64(st.Evictions))
	ch <- prometheus.MustNewConstMetric(sizeDesc, prometheus.GaugeValue, float64(st.Size))
}
