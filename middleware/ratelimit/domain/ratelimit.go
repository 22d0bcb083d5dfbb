package domain

// Camada de domínio do rate limit.
//
// Regras e contratos (interfaces/tipos) sem dependência de net/http.

import (
	"context"
	"time"
)

type Key string

// Limiter representa algo que pode decidir se uma ação é permitida agora.
// Usado pela proteção de rajada (token bucket, golang.org/x/time/rate).
type Limiter interface {
	Allow() bool
}

// LimiterStore obtém um limiter por chave (ex: IP, usuário).
type LimiterStore interface {
	Get(Key) Limiter
}

// WindowStore guarda os contadores de janela fixa por chave.
//
// Increment precisa ser atômico: incrementa, abre uma nova janela se a atual
// expirou, e devolve a contagem já incrementada e o fim da janela.
// Em deploy multi-processo a implementação deve ser externa (ex.: Redis).
type WindowStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (count int64, resetAt time.Time, err error)
	// Decrement desfaz uma contagem da janela que termina em resetAt (nunca
	// abaixo de zero). Se a janela viva for outra, não faz nada.
	Decrement(ctx context.Context, key string, resetAt time.Time) error
	Reset(ctx context.Context, key string) error
}

type Decision struct {
	Allowed bool
	// Bypassed indica admissão sem contagem (role elevada ou allow-list).
	Bypassed bool

	Category Category
	// Key é a chave composta categoria + cliente usada no WindowStore.
	Key string

	Limit     int64
	Remaining int64
	ResetAt   time.Time

	// RetryAfter é o valor a ser retornado em Retry-After quando bloquear.
	// Se 0, não há recomendação.
	RetryAfter time.Duration
	Code       string
	Message    string
}
