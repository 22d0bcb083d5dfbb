package identity

import (
	"net/http"
	"strings"
)

const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

// HeaderResolver lê a identidade de cabeçalhos preenchidos por um proxy de
// autenticação. Só use quando o gateway não é acessível diretamente.
func HeaderResolver(userHeader, roleHeader string) Resolver {
	if userHeader == "" {
		userHeader = HeaderUserID
	}
	if roleHeader == "" {
		roleHeader = HeaderUserRole
	}
	return func(r *http.Request) (Identity, bool) {
		id := strings.TrimSpace(r.Header.Get(userHeader))
		if id == "" {
			return Identity{}, false
		}
		return Identity{UserID: id, Role: r.Header.Get(roleHeader)}, true
	}
}
