package app

import (
	"context"
	"net/http"

	"admin-gateway/internal/config"
	"admin-gateway/middleware/identity"
	"admin-gateway/middleware/pipeline"
	"admin-gateway/middleware/ratelimit"
	"admin-gateway/middleware/ratelimit/application"
	rldomain "admin-gateway/middleware/ratelimit/domain"
	rlinfra "admin-gateway/middleware/ratelimit/infra"
	"admin-gateway/middleware/respcache"
	cacheinfra "admin-gateway/middleware/respcache/infra"
	"admin-gateway/middleware/security"
	secdomain "admin-gateway/middleware/security/domain"
	secinfra "admin-gateway/middleware/security/infra"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	CachePrefix   = "api"
	csrfTokenPath = "/api/csrf-token"
)

// Gateway guarda os componentes montados. Campos nil indicam recurso desligado.
type Gateway struct {
	Config   config.Config
	Log      *logrus.Logger
	Registry *prometheus.Registry
	Pipeline pipeline.Middleware

	Cache   *respcache.Cache
	Limiter *application.Limiter
	CSRF    *security.CSRF
	// Stats só é preenchido com RATE_STATS_STORE=memory.
	Stats *rlinfra.MemoryStatsStore
	Audit *secinfra.AsyncSink

	cleanup []func()
}

// Build cria stores, métricas e o pipeline. Janitors vivem até ctx cancelar.
func Build(ctx context.Context, cfg config.Config) (*Gateway, error) {
	g := &Gateway{
		Config:   cfg,
		Log:      NewLogger(cfg.LogLevel),
		Registry: prometheus.NewRegistry(),
	}
	log := g.Log.WithField("category", "gateway")

	var rdb *redis.Client
	if cfg.NeedsRedis() {
		client, err := newRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		rdb = client
		g.onClose(func() { _ = rdb.Close() })
		log.WithField("addr", cfg.RedisAddr).Info("redis ready")
	}

	allowList, err := security.ParseIPList(cfg.AllowedIPs)
	if err != nil {
		g.Close()
		return nil, errors.Wrap(err, "ALLOWED_IPS")
	}

	// Rate limit por categoria.
	var windows rldomain.WindowStore
	switch cfg.RateStore {
	case config.StoreRedis:
		windows = rlinfra.NewRedisWindowStore(rdb)
	default:
		mem := rlinfra.NewMemoryWindowStore()
		mem.StartJanitor(ctx)
		windows = mem
	}
	g.Limiter = application.NewLimiter(windows)
	g.Limiter.AllowList = ipSet(cfg.RateAllowIPs)
	g.Limiter.DenyList = ipSet(cfg.BlockedIPs)

	var stats rldomain.StatsStore
	if cfg.StatsEnabled {
		switch cfg.StatsStore {
		case config.StoreRedis:
			stats = rlinfra.NewRedisStatsStore(rdb,
				rlinfra.WithStatsPrefix(cfg.StatsPrefix),
				rlinfra.WithStatsTTL(cfg.StatsTTL),
				rlinfra.WithStatsBucket(cfg.StatsBucket),
				rlinfra.WithStatsTrackKeys(cfg.StatsTrackKeys),
			)
		default:
			g.Stats = rlinfra.NewMemoryStatsStore(rlinfra.WithTrackKeys(cfg.StatsTrackKeys))
			stats = g.Stats
		}
	}

	metrics := ratelimit.NewMetrics()

	var burst *ratelimit.BurstOptions
	if cfg.BurstRPS > 0 {
		buckets := rlinfra.NewBucketStore(cfg.BurstRPS, cfg.Burst)
		buckets.StartJanitor(ctx)
		burst = &ratelimit.BurstOptions{Store: buckets, Stats: stats, AddRateLimitHeaders: true}
	}

	// Cache de respostas.
	g.Cache = respcache.New(
		cacheinfra.NewMemoryStore(cacheinfra.WithMaxEntries(cfg.CacheMaxEntries)),
		respcache.WithDefaultTTL(cfg.CacheTTL),
		respcache.WithLogger(g.Log.WithField("category", "respcache")),
	)

	// CSRF.
	if cfg.CSRFEnabled {
		var tokens secdomain.TokenStore
		switch cfg.CSRFStore {
		case config.StoreRedis:
			tokens = secinfra.NewRedisTokenStore(rdb)
		default:
			mem := secinfra.NewMemoryTokenStore()
			g.onClose(mem.Close)
			tokens = mem
		}
		g.CSRF = security.NewCSRF(tokens, security.WithCSRFLogger(g.Log.WithField("category", "csrf")))
	}

	g.Audit = secinfra.NewAsyncSink(secinfra.NewLogSink(g.Log.WithField("category", "audit")), cfg.AuditBuffer)
	g.onClose(g.Audit.Close)

	g.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		respcache.NewCollector(g.Cache),
		metrics,
	)

	var resolver identity.Resolver
	if cfg.TrustIdentityHeaders {
		resolver = identity.HeaderResolver("", "")
	}

	var cors *security.CORSOptions
	if len(cfg.AllowedOrigins) > 0 {
		cors = &security.CORSOptions{AllowedOrigins: cfg.AllowedOrigins}
	}

	g.Pipeline = pipeline.New(pipeline.Components{
		Log:                g.Log.WithField("category", "pipeline"),
		Production:         cfg.Production(),
		TrustXForwardedFor: cfg.TrustXFF,
		IPAllowList:        allowList,
		CORS:               cors,
		Identity:           resolver,
		AuditSink:          g.Audit,
		CSRF:               g.CSRF,
		MaxBodyBytes:       cfg.MaxBodyBytes,
		Burst:              burst,
		RateLimit: &ratelimit.Options{
			Limiter: g.Limiter,
			Stats:   stats,
			Metrics: metrics,
			Log:     g.Log.WithField("category", "ratelimit"),
		},
		Cache: &respcache.Options{Cache: g.Cache, KeyPrefix: CachePrefix, Condition: cacheable},
	})

	log.WithFields(logrus.Fields{
		"env":         cfg.Env,
		"rate_store":  cfg.RateStore,
		"burst_rps":   cfg.BurstRPS,
		"burst":       cfg.Burst,
		"csrf":        cfg.CSRFEnabled,
		"csrf_store":  cfg.CSRFStore,
		"stats":       cfg.StatsEnabled,
		"allowed_ips": allowList.Len(),
		"cache_ttl":   cfg.CacheTTL.String(),
		"cache_max":   cfg.CacheMaxEntries,
		"concurrency": cfg.ConcurrencyMax,
		"trust_xff":   cfg.TrustXFF,
	}).Info("gateway configured")

	return g, nil
}

// Handler expõe /metrics e /healthz fora do pipeline; o resto passa pelo
// pipeline. /api/csrf-token emite tokens quando o CSRF está ligado e o
// handler da aplicação fica atrás do limite de concorrência.
func (g *Gateway) Handler(app http.Handler) http.Handler {
	inner := http.NewServeMux()
	if g.CSRF != nil {
		inner.Handle(csrfTokenPath, g.CSRF.TokenHandler())
	}
	inner.Handle("/", ratelimit.ConcurrencyMiddleware(ratelimit.ConcurrencyOptions{
		Max:            g.Config.ConcurrencyMax,
		AcquireTimeout: g.Config.ConcurrencyTimeout,
	})(app))

	top := http.NewServeMux()
	top.Handle("/metrics", promhttp.HandlerFor(g.Registry, promhttp.HandlerOpts{}))
	top.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	top.Handle("/", g.Pipeline(inner))
	return top
}

// Close libera os recursos na ordem inversa da criação.
func (g *Gateway) Close() {
	for i := len(g.cleanup) - 1; i >= 0; i-- {
		g.cleanup[i]()
	}
	g.cleanup = nil
}

func (g *Gateway) onClose(fn func()) { g.cleanup = append(g.cleanup, fn) }

// cacheable deixa de fora tokens e os paths de auth/admin, que saem com no-store.
func cacheable(r *http.Request) bool {
	if r.URL.Path == csrfTokenPath || security.NoStorePath(r.URL.Path) {
		return false
	}
	return respcache.DefaultCondition(r)
}

func ipSet(ips []string) map[string]struct{} {
	if len(ips) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(ips))
	for _, ip := range ips {
		out[ip] = struct{}{}
	}
	return out
}
