package ratelimit

import (
	"net/http"
	"time"

	"admin-gateway/middleware/apierror"
	"admin-gateway/middleware/ratelimit/application"
	"admin-gateway/middleware/ratelimit/domain"
	"admin-gateway/middleware/ratelimit/infra"
)

type ConcurrencyOptions struct {
	Max            int
	AcquireTimeout time.Duration
	// Pool substitui o semáforo padrão (infra.SlotPool com capacidade Max).
	Pool domain.SlotPool
}

// ConcurrencyMiddleware limita quantas requisições chegam ao upstream ao mesmo
// tempo; sem vaga dentro do timeout responde 503 SERVER_BUSY.
func ConcurrencyMiddleware(opts ConcurrencyOptions) func(next http.Handler) http.Handler {
	if opts.Pool == nil {
		if opts.Max <= 0 {
			return func(next http.Handler) http.Handler { return next }
		}
		opts.Pool = infra.NewSlotPool(opts.Max)
	}

	svc := application.SlotService{
		Pool:           opts.Pool,
		AcquireTimeout: opts.AcquireTimeout,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			release, ok := svc.Acquire(r.Context())
			if !ok {
				apierror.Write(w, apierror.New(http.StatusServiceUnavailable,
					apierror.CodeServerBusy, "Server is busy, please retry shortly."))
				return
			}
			defer release()

			next.ServeHTTP(w, r)
		})
	}
}
