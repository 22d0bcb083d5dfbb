package ratelimit

import (
	"context"
	"net/http"

	"admin-gateway/middleware/apierror"
	"admin-gateway/middleware/identity"
	"admin-gateway/middleware/ratelimit/application"
	"admin-gateway/middleware/ratelimit/domain"

	"github.com/mailgun/holster/v4/clock"
	"github.com/mailgun/holster/v4/setter"
	"github.com/sirupsen/logrus"
)

const (
	HeaderLimit     = "RateLimit-Limit"
	HeaderRemaining = "RateLimit-Remaining"
	HeaderReset     = "RateLimit-Reset"
	HeaderCategory  = "X-RateLimit-Category"
)

type Options struct {
	Limiter            *application.Limiter
	Stats              domain.StatsStore
	Metrics            *Metrics
	TrustXForwardedFor bool
	Log                logrus.FieldLogger
}

// RequestFrom monta a visão de domínio da requisição (IP + identidade do contexto).
func RequestFrom(r *http.Request, trustXFF bool) domain.Request {
	req := domain.Request{
		Method:   r.Method,
		Path:     r.URL.Path,
		Query:    r.URL.Query(),
		ClientIP: identity.ClientIP(r, trustXFF),
	}
	if id, ok := identity.FromContext(r.Context()); ok {
		req.UserID = id.UserID
		req.Role = id.Role
	}
	return req
}

// Middleware aplica o orçamento por categoria. A identidade precisa já estar
// no contexto (identity.Middleware antes deste).
func Middleware(opts Options) func(next http.Handler) http.Handler {
	setter.SetDefault(&opts.Log, logrus.WithField("category", "ratelimit"))
	if opts.Limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req := RequestFrom(r, opts.TrustXForwardedFor)

			dec, err := opts.Limiter.Check(r.Context(), req)
			record(r, opts, req, dec, err)
			if err != nil {
				opts.Log.WithError(err).WithField("path", req.Path).Error("rate limit store failure")
				apierror.Write(w, apierror.New(http.StatusServiceUnavailable,
					apierror.CodeRateLimitUnavailable, "Rate limiting is temporarily unavailable, please retry."))
				return
			}
			if dec.Bypassed {
				next.ServeHTTP(w, r)
				return
			}

			setHeaders(w, dec)
			if !dec.Allowed {
				apierror.Write(w, &apierror.Error{
					Status:     http.StatusTooManyRequests,
					Code:       dec.Code,
					Message:    dec.Message,
					RetryAfter: dec.RetryAfter,
				})
				return
			}

			policy, _ := opts.Limiter.Policy(dec.Category)
			if !policy.SkipSuccessful {
				next.ServeHTTP(w, r)
				return
			}

			sw := &statusWriter{ResponseWriter: w}
			next.ServeHTTP(sw, r)
			if sw.status() < http.StatusBadRequest {
				// o cliente pode já ter ido embora; a devolução precisa acontecer mesmo assim
				if err := opts.Limiter.Release(context.WithoutCancel(r.Context()), dec); err != nil {
					opts.Log.WithError(err).WithField("key", dec.Key).Warn("could not release rate limit count")
				}
			}
		})
	}
}

func setHeaders(w http.ResponseWriter, dec domain.Decision) {
	h := w.Header()
	h.Set(HeaderLimit, formatInt64(dec.Limit))
	h.Set(HeaderRemaining, formatInt64(dec.Remaining))
	h.Set(HeaderReset, formatInt(apierror.RetryAfterSeconds(dec.ResetAt.Sub(clock.Now()))))
	h.Set(HeaderCategory, string(dec.Category))
}

func record(r *http.Request, opts Options, req domain.Request, dec domain.Decision, err error) {
	if opts.Metrics != nil {
		opts.Metrics.Observe(dec, err)
	}
	if opts.Stats == nil {
		return
	}
	ev := domain.StatsEvent{
		Key:      domain.Key(dec.Key),
		Category: dec.Category,
		Allowed:  dec.Allowed && err == nil,
		Bypassed: dec.Bypassed,
		Method:   req.Method,
		Path:     req.Path,
		At:       clock.Now(),
	}
	if serr := opts.Stats.Record(r.Context(), ev); serr != nil {
		opts.Log.WithError(serr).Debug("rate limit stats not recorded")
	}
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.code == 0 {
		w.code = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.code == 0 {
		w.code = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

func (w *statusWriter) status() int {
	if w.code == 0 {
		return http.StatusOK
	}
	return w.code
}
