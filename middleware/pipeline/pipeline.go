// Package pipeline monta a cadeia de middlewares do gateway numa ordem fixa:
//
//	Recover → IPAllowList → CORS → headers → identidade → Audit → Sanitize → CSRF
//	→ rajada → rate limit por categoria → cache de resposta → invalidação → handler
//
// Cada componente é construído fora e injetado em Components; os ausentes
// (nil) são pulados. Headers de segurança e saneamento estão sempre ligados.
package pipeline

import (
	"net/http"

	"admin-gateway/middleware/identity"
	"admin-gateway/middleware/ratelimit"
	"admin-gateway/middleware/respcache"
	"admin-gateway/middleware/security"
	secdomain "admin-gateway/middleware/security/domain"

	"github.com/mailgun/holster/v4/setter"
	"github.com/sirupsen/logrus"
)

type Middleware = func(next http.Handler) http.Handler

type Components struct {
	Log                logrus.FieldLogger
	Production         bool
	TrustXForwardedFor bool

	IPAllowList *security.IPList
	CORS        *security.CORSOptions
	Identity    identity.Resolver
	AuditSink   secdomain.AuditSink
	CSRF        *security.CSRF
	// MaxBodyBytes limita o corpo JSON saneado; 0 usa security.DefaultMaxBodyBytes.
	MaxBodyBytes int64

	Burst     *ratelimit.BurstOptions
	RateLimit *ratelimit.Options

	Cache *respcache.Options
	// Invalidate escolhe o padrão invalidado após escritas com sucesso.
	// nil usa a coleção do path (respcache.CollectionPatternFunc).
	Invalidate respcache.PatternFunc
}

// New devolve o pipeline completo pronto para envolver o handler final.
func New(c Components) Middleware {
	setter.SetDefault(&c.Log, logrus.WithField("category", "pipeline"))

	chain := []Middleware{
		Recover(c.Log),
		security.IPAllowList(c.IPAllowList, c.TrustXForwardedFor),
	}
	if c.CORS != nil {
		chain = append(chain, security.CORS(*c.CORS))
	}
	chain = append(chain,
		security.HeadersMiddleware(c.Production),
		identity.Middleware(c.Identity),
		security.Audit(c.AuditSink, security.AuditOptions{TrustXForwardedFor: c.TrustXForwardedFor}),
		security.Sanitizer(c.MaxBodyBytes),
	)
	if c.CSRF != nil {
		chain = append(chain, c.CSRF.Middleware)
	}
	if c.Burst != nil {
		opts := *c.Burst
		opts.TrustXForwardedFor = opts.TrustXForwardedFor || c.TrustXForwardedFor
		chain = append(chain, ratelimit.BurstMiddleware(opts))
	}
	if c.RateLimit != nil {
		opts := *c.RateLimit
		opts.TrustXForwardedFor = opts.TrustXForwardedFor || c.TrustXForwardedFor
		chain = append(chain, ratelimit.Middleware(opts))
	}
	if c.Cache != nil {
		chain = append(chain,
			respcache.Middleware(*c.Cache),
			respcache.InvalidateOnWrite(c.Cache.Cache, c.invalidatePattern()),
		)
	}
	return Chain(chain...)
}

func (c Components) invalidatePattern() respcache.PatternFunc {
	if c.Invalidate != nil {
		return c.Invalidate
	}
	return respcache.CollectionPatternFunc(c.Cache.KeyPrefix)
}

// Chain aplica os middlewares na ordem dada: o primeiro é o mais externo.
func Chain(mws ...Middleware) Middleware {
	return func(next http.Handler) http.Handler {
		for i := len(mws) - 1; i >= 0; i-- {
			if mws[i] != nil {
				next = mws[i](next)
			}
		}
		return next
	}
}
