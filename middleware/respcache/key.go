package respcache

import (
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// KeyFunc deriva a chave de cache de uma requisição.
type KeyFunc func(r *http.Request) string

// DeriveKey monta "<segmentos do path separados por :>:<query ordenada>".
// Cada segmento é escapado (":" vira %3A), então /a:b e /a/b não colidem.
// Ex.: GET /suppliers?status=active => "suppliers:status=active".
// A ordem dos parâmetros (e dos valores repetidos) não altera a chave.
func DeriveKey(r *http.Request, prefix string) string {
	q := r.URL.Query()
	for _, vs := range q {
		sort.Strings(vs)
	}
	return withPrefix(prefix, pathKey(r.URL.Path)) + ":" + q.Encode()
}

// DefaultKeyFunc é DeriveKey com prefixo fixo.
func DefaultKeyFunc(prefix string) KeyFunc {
	return func(r *http.Request) string { return DeriveKey(r, prefix) }
}

// CollectionPattern devolve o padrão que invalida a coleção do path.
// Segmentos que parecem ids (números, UUIDs) e o que vem depois são descartados:
// /suppliers/42 => ^suppliers(:|$). Devolve "" quando não há coleção.
func CollectionPattern(path, prefix string) string {
	var segs []string
	for _, s := range splitPath(path) {
		if isIDSegment(s) {
			break
		}
		segs = append(segs, url.QueryEscape(s))
	}
	if len(segs) == 0 {
		return ""
	}
	return "^" + regexp.QuoteMeta(withPrefix(prefix, strings.Join(segs, ":"))) + "(:|$)"
}

func pathKey(path string) string {
	segs := splitPath(path)
	for i, s := range segs {
		segs[i] = url.QueryEscape(s)
	}
	return strings.Join(segs, ":")
}

func splitPath(path string) []string {
	var out []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func withPrefix(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + ":" + key
}

func isIDSegment(s string) bool {
	if _, err := strconv.ParseUint(s, 10, 64); err == nil {
		return true
	}
	_, err := uuid.Parse(s)
	return err == nil
}
