// Package identity carrega a identidade autenticada (user id + role) no contexto
// da requisição. Quem autentica é um colaborador externo; aqui só transportamos
// o resultado até o rate limiter e a auditoria.
package identity

import (
	"context"
	"net/http"
	"strings"
)

type Identity struct {
	UserID string
	Role   string
}

func (i Identity) Authenticated() bool { return i.UserID != "" }

// chave de contexto não exportada, à prova de colisão
type contextKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext devolve a identidade anexada, se houver.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	if !ok || !id.Authenticated() {
		return Identity{}, false
	}
	return id, true
}

// Resolver extrai a identidade de uma requisição (sessão, JWT, etc.).
type Resolver func(r *http.Request) (Identity, bool)

// Middleware anexa a identidade resolvida ao contexto. Sem resolver, é no-op.
func Middleware(resolve Resolver) func(next http.Handler) http.Handler {
	if resolve == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id, ok := resolve(r); ok {
				id.Role = strings.ToLower(strings.TrimSpace(id.Role))
				r = r.WithContext(WithIdentity(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
}
