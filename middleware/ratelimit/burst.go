package ratelimit

import (
	"net/http"
	"strings"
	"time"

	"admin-gateway/middleware/apierror"
	"admin-gateway/middleware/identity"
	"admin-gateway/middleware/ratelimit/application"
	"admin-gateway/middleware/ratelimit/domain"

	"github.com/mailgun/holster/v4/clock"
)

const CodeBurstExceeded = "BURST_RATE_LIMIT_EXCEEDED"

type KeyFunc func(r *http.Request) string

// BurstOptions configura a proteção de rajada (token bucket por cliente),
// aplicada antes do orçamento por categoria.
type BurstOptions struct {
	Store               domain.LimiterStore
	Stats               domain.StatsStore
	KeyFn               KeyFunc
	KeyHeader           string
	TrustXForwardedFor  bool
	RetryAfter          time.Duration
	AddRateLimitHeaders bool
}

type rateInfo interface {
	RPS() float64
	Burst() int
}

// DefaultKeyFunc escolhe a chave do cliente: header explícito, usuário
// autenticado ou IP, nessa ordem.
func DefaultKeyFunc(keyHeader string, trustXFF bool) KeyFunc {
	return func(r *http.Request) string {
		if keyHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(keyHeader)); v != "" {
				return v
			}
		}
		if id, ok := identity.FromContext(r.Context()); ok {
			return "user:" + id.UserID
		}
		return "ip:" + identity.ClientIP(r, trustXFF)
	}
}

func BurstMiddleware(opts BurstOptions) func(next http.Handler) http.Handler {
	if opts.Store == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.RetryAfter == 0 {
		opts.RetryAfter = 1 * time.Second
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.KeyHeader, opts.TrustXForwardedFor)
	}

	svc := application.BurstService{
		Store:      opts.Store,
		RetryAfter: opts.RetryAfter,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := opts.KeyFn(r)

			if opts.AddRateLimitHeaders {
				w.Header().Set("X-RateLimit-Key", key)
				if ri, ok := opts.Store.(rateInfo); ok {
					w.Header().Set("X-RateLimit-RPS", formatFloat(ri.RPS()))
					w.Header().Set("X-RateLimit-Burst", formatInt(ri.Burst()))
				}
			}

			dec := svc.Decide(domain.Key(key))
			if opts.Stats != nil {
				_ = opts.Stats.Record(r.Context(), domain.StatsEvent{
					Key:     domain.Key(key),
					Allowed: dec.Allowed,
					Method:  r.Method,
					Path:    r.URL.Path,
					At:      clock.Now(),
				})
			}
			if !dec.Allowed {
				apierror.Write(w, &apierror.Error{
					Status:     http.StatusTooManyRequests,
					Code:       CodeBurstExceeded,
					Message:    "Too many requests in a short period, please slow down.",
					RetryAfter: dec.RetryAfter,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
