package application

import (
	"context"
	"time"

	"admin-gateway/middleware/ratelimit/domain"
)

// BurstService é a proteção de rajada por cliente (token bucket), aplicada
// antes do orçamento por categoria. Sem store, tudo passa.
type BurstService struct {
	Store      domain.LimiterStore
	RetryAfter time.Duration
}

func (s BurstService) Decide(key domain.Key) domain.Decision {
	if s.Store == nil {
		return domain.Decision{Allowed: true}
	}
	if s.RetryAfter <= 0 {
		s.RetryAfter = 1 * time.Second
	}

	lim := s.Store.Get(key)
	if lim == nil || lim.Allow() {
		return domain.Decision{Allowed: true, Key: string(key)}
	}
	return domain.Decision{Allowed: false, Key: string(key), RetryAfter: s.RetryAfter}
}

// SlotService concentra a regra de aquisição de vagas com timeout,
// sem saber nada sobre HTTP.
type SlotService struct {
	Pool           domain.SlotPool
	AcquireTimeout time.Duration
}

// Acquire tenta adquirir uma vaga.
//   - AcquireTimeout <= 0: espera até o ctx cancelar.
//   - AcquireTimeout > 0: espera até o timeout.
//
// Se ok=false, nenhuma vaga foi adquirida.
func (s SlotService) Acquire(ctx context.Context) (func(), bool) {
	if s.Pool == nil {
		return func() {}, true
	}
	if s.AcquireTimeout <= 0 {
		return s.Pool.Acquire(ctx)
	}

	acqCtx, cancel := context.WithTimeout(ctx, s.AcquireTimeout)
	defer cancel()
	return s.Pool.Acquire(acqCtx)
}
