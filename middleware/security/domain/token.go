package domain

import (
	"context"
	"time"
)

// TokenRecord é o token CSRF vivo de uma sessão. Há no máximo um por sessão:
// emitir de novo sobrescreve o anterior.
type TokenRecord struct {
	SessionID string
	Token     string
	ExpiresAt time.Time
}

// Expired segue a mesma fronteira do cache: em ExpiresAt já expirou.
func (r TokenRecord) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// TokenStore guarda os tokens por sessão. Implementações removem o registro
// sozinhas quando ExpiresAt passa.
type TokenStore interface {
	Put(ctx context.Context, rec TokenRecord) error
	Get(ctx context.Context, sessionID string) (TokenRecord, bool, error)
	Delete(ctx context.Context, sessionID string) error
}
