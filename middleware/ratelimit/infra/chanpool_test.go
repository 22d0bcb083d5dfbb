package infra

import (
	"context"
	"testing"
	"time"
)

func TestSlotPool_BlocksWhenFull(t *testing.T) {
	p := NewSlotPool(1)

	release, ok := p.Acquire(context.Background())
	if !ok {
		t.Fatalf("expected first acquire to succeed")
	}
	if p.InFlight() != 1 {
		t.Fatalf("expected 1 in flight, got %d", p.InFlight())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, ok := p.Acquire(ctx); ok {
		t.Fatalf("expected second acquire to time out")
	}

	release()
	if _, ok := p.Acquire(context.Background()); !ok {
		t.Fatalf("expected acquire after release to succeed")
	}
}

func TestSlotPool_MinimumCapacity(t *testing.T) {
	if got := NewSlotPool(0).Cap(); got != 1 {
		t.Fatalf("expected capacity 1, got %d", got)
	}
}
