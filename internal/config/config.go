// Package config lê a configuração dos binários a partir de variáveis de ambiente.
package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"

	StoreMemory = "memory"
	StoreRedis  = "redis"
)

type Config struct {
	ListenAddr  string
	UpstreamURL string
	Env         string
	LogLevel    logrus.Level

	// AllowedIPs só vale em produção; em desenvolvimento fica desligado.
	AllowedIPs     []string
	BlockedIPs     []string
	RateAllowIPs   []string
	AllowedOrigins []string
	TrustXFF       bool
	// TrustIdentityHeaders aceita X-User-ID / X-User-Role de um proxy de
	// autenticação na frente do gateway.
	TrustIdentityHeaders bool

	CSRFEnabled bool
	CSRFStore   string

	CacheTTL        time.Duration
	CacheMaxEntries int

	RateStore     string
	BurstRPS      float64
	Burst         int
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ConcurrencyMax     int
	ConcurrencyTimeout time.Duration

	StatsEnabled   bool
	StatsStore     string
	StatsPrefix    string
	StatsTTL       time.Duration
	StatsBucket    string
	StatsTrackKeys bool

	AuditBuffer  int
	MaxBodyBytes int64

	// Credencial de demonstração da admin-api.
	AdminUsername string
	AdminPassword string
}

func (c Config) Production() bool { return c.Env == EnvProduction }

// NeedsRedis diz se algum componente foi configurado para usar Redis.
func (c Config) NeedsRedis() bool {
	return c.RateStore == StoreRedis || c.CSRFStore == StoreRedis ||
		(c.StatsEnabled && c.StatsStore == StoreRedis)
}

// Load lê o ambiente. Produção força CSRF e respeita ALLOWED_IPS;
// desenvolvimento deixa a lista de IPs desligada.
func Load() (Config, error) {
	cfg := Config{}
	cfg.ListenAddr = getenvDefault("LISTEN_ADDR", ":8080")
	cfg.UpstreamURL = getenvDefault("UPSTREAM_URL", "")
	cfg.Env = strings.ToLower(getenvDefault("APP_ENV", EnvDevelopment))

	level, err := logrus.ParseLevel(getenvDefault("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, errors.Wrap(err, "LOG_LEVEL")
	}
	cfg.LogLevel = level

	cfg.AllowedIPs = getenvList("ALLOWED_IPS")
	cfg.BlockedIPs = getenvList("BLOCKED_IPS")
	cfg.RateAllowIPs = getenvList("RATE_ALLOW_IPS")
	cfg.AllowedOrigins = getenvList("ALLOWED_ORIGINS")
	cfg.TrustXFF = getenvBoolDefault("TRUST_XFF", false)
	cfg.TrustIdentityHeaders = getenvBoolDefault("TRUST_IDENTITY_HEADERS", false)

	cfg.CSRFEnabled = getenvBoolDefault("CSRF_ENABLED", true)
	cfg.CSRFStore = strings.ToLower(getenvDefault("CSRF_STORE", StoreMemory))

	cfg.CacheTTL = getenvDurationDefault("CACHE_TTL", 5*time.Minute)
	cfg.CacheMaxEntries = getenvIntDefault("CACHE_MAX_ENTRIES", 1000)

	cfg.RateStore = strings.ToLower(getenvDefault("RATE_STORE", StoreMemory))
	cfg.BurstRPS = getenvFloatDefault("RATE_BURST_RPS", 0)
	// IMPORTANTE: o "burst" permite uma rajada inicial de requisições.
	// Com RPS muito baixo (ex: 0.02), o padrão 20 pode dar a impressão de que
	// o limiter não está funcionando, porque as primeiras ~20 passam.
	if burst, ok := getenvInt("RATE_BURST"); ok {
		cfg.Burst = burst
	} else {
		cfg.Burst = 20
		if cfg.BurstRPS > 0 && cfg.BurstRPS < 1 {
			cfg.Burst = 1
		}
	}
	cfg.RedisAddr = getenvDefault("REDIS_ADDR", "")
	cfg.RedisPassword = getenvDefault("REDIS_PASSWORD", "")
	cfg.RedisDB = getenvIntDefault("REDIS_DB", 0)

	cfg.ConcurrencyMax = getenvIntDefault("CONCURRENCY_MAX", 100)
	cfg.ConcurrencyTimeout = getenvDurationDefault("CONCURRENCY_TIMEOUT", 0)

	cfg.StatsEnabled = getenvBoolDefault("RATE_STATS_ENABLED", false)
	cfg.StatsStore = strings.ToLower(getenvDefault("RATE_STATS_STORE", StoreMemory))
	cfg.StatsPrefix = getenvDefault("RATE_STATS_PREFIX", "ratelimit:stats")
	cfg.StatsTTL = getenvDurationDefault("RATE_STATS_TTL", 24*time.Hour)
	cfg.StatsBucket = getenvDefault("RATE_STATS_BUCKET", "minute")
	cfg.StatsTrackKeys = getenvBoolDefault("RATE_STATS_TRACK_KEYS", false)

	cfg.AuditBuffer = getenvIntDefault("AUDIT_BUFFER", 1024)
	cfg.MaxBodyBytes = int64(getenvIntDefault("MAX_BODY_BYTES", 1<<20))
	cfg.AdminUsername = getenvDefault("ADMIN_USERNAME", "admin")
	cfg.AdminPassword = getenvDefault("ADMIN_PASSWORD", "")

	switch cfg.Env {
	case EnvProduction:
		cfg.CSRFEnabled = true
	case EnvDevelopment:
		cfg.AllowedIPs = nil
	default:
		return Config{}, errors.Errorf("APP_ENV must be %q or %q, got %q", EnvProduction, EnvDevelopment, cfg.Env)
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	for name, v := range map[string]string{"RATE_STORE": c.RateStore, "CSRF_STORE": c.CSRFStore, "RATE_STATS_STORE": c.StatsStore} {
		if v != StoreMemory && v != StoreRedis {
			return errors.Errorf("%s must be %q or %q, got %q", name, StoreMemory, StoreRedis, v)
		}
	}
	if c.NeedsRedis() && strings.TrimSpace(c.RedisAddr) == "" {
		return errors.New("REDIS_ADDR is required when a redis store is selected")
	}
	if c.BurstRPS < 0 {
		return errors.New("RATE_BURST_RPS must be >= 0")
	}
	if c.BurstRPS > 0 && c.Burst <= 0 {
		return errors.New("RATE_BURST must be > 0")
	}
	if c.ConcurrencyMax < 0 {
		return errors.New("CONCURRENCY_MAX must be >= 0")
	}
	if c.CacheMaxEntries <= 0 {
		return errors.New("CACHE_MAX_ENTRIES must be > 0")
	}
	if c.MaxBodyBytes <= 0 {
		return errors.New("MAX_BODY_BYTES must be > 0")
	}
	if c.CacheTTL <= 0 {
		return errors.New("CACHE_TTL must be > 0")
	}
	return nil
}
