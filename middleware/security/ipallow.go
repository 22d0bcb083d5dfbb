package security

import (
	"net/http"
	"net/netip"
	"strings"

	"admin-gateway/middleware/apierror"
	"admin-gateway/middleware/identity"

	"github.com/pkg/errors"
)

// IPList é um conjunto de endereços e faixas CIDR.
type IPList struct {
	addrs    map[netip.Addr]struct{}
	prefixes []netip.Prefix
}

// ParseIPList aceita IPs ("10.0.0.1") e CIDRs ("10.0.0.0/8"); entradas vazias
// são ignoradas.
func ParseIPList(entries []string) (*IPList, error) {
	l := &IPList{addrs: make(map[netip.Addr]struct{})}
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if strings.Contains(e, "/") {
			p, err := netip.ParsePrefix(e)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid CIDR %q", e)
			}
			l.prefixes = append(l.prefixes, p.Masked())
			continue
		}
		a, err := netip.ParseAddr(e)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid IP %q", e)
		}
		l.addrs[a.Unmap()] = struct{}{}
	}
	return l, nil
}

func (l *IPList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.addrs) + len(l.prefixes)
}

func (l *IPList) Contains(ip string) bool {
	if l == nil {
		return false
	}
	a, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return false
	}
	a = a.Unmap()
	if _, ok := l.addrs[a]; ok {
		return true
	}
	for _, p := range l.prefixes {
		if p.Contains(a) {
			return true
		}
	}
	return false
}

// IPAllowList rejeita com 403 IP_NOT_ALLOWED quem não está na lista.
// Lista vazia desliga a checagem.
func IPAllowList(list *IPList, trustXFF bool) func(next http.Handler) http.Handler {
	if list.Len() == 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !list.Contains(identity.ClientIP(r, trustXFF)) {
				apierror.Write(w, apierror.New(http.StatusForbidden,
					apierror.CodeIPNotAllowed, "Access denied from this IP address."))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
