package infra

import (
	"context"

	"admin-gateway/middleware/ratelimit/domain"
)

// SlotPool é um semáforo baseado em channel com capacidade fixa.
type SlotPool struct {
	sem chan struct{}
}

var _ domain.SlotPool = (*SlotPool)(nil)

// NewSlotPool cria um pool com capacidade `max` (mínimo 1).
func NewSlotPool(max int) *SlotPool {
	if max < 1 {
		max = 1
	}
	return &SlotPool{sem: make(chan struct{}, max)}
}

func (p *SlotPool) Acquire(ctx context.Context) (func(), bool) {
	select {
	case p.sem <- struct{}{}:
		return func() { <-p.sem }, true
	case <-ctx.Done():
		return nil, false
	}
}

// InFlight devolve quantas vagas estão ocupadas agora.
func (p *SlotPool) InFlight() int { return len(p.sem) }

func (p *SlotPool) Cap() int { return cap(p.sem) }
