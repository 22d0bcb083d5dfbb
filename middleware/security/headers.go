package security

import (
	"net/http"
	"strings"
)

const (
	cspStrict = "default-src 'self'; script-src 'self'; style-src 'self'; img-src 'self' data:; " +
		"connect-src 'self'; font-src 'self'; object-src 'none'; frame-ancestors 'none'; " +
		"base-uri 'self'; form-action 'self'"
	cspRelaxed = "default-src 'self'; script-src 'self' 'unsafe-inline' 'unsafe-eval'; " +
		"style-src 'self' 'unsafe-inline'; img-src 'self' data: blob:; connect-src 'self' ws: wss:; " +
		"object-src 'none'; frame-ancestors 'self'"
)

// identificam o servidor/framework e nunca saem do gateway
var identifyingHeaders = []string{"Server", "X-Powered-By", "X-AspNet-Version"}

// noStoreSegments: paths com algum destes segmentos não podem ser cacheados
// por browsers nem proxies.
var noStoreSegments = []string{"auth", "admin"}

// HardenHeaders aplica os headers de segurança na resposta.
func HardenHeaders(w http.ResponseWriter, path string, production bool) {
	h := w.Header()
	for _, name := range identifyingHeaders {
		h.Del(name)
	}

	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-Frame-Options", "DENY")
	h.Set("X-XSS-Protection", "1; mode=block")
	h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
	h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
	if production {
		h.Set("Content-Security-Policy", cspStrict)
	} else {
		h.Set("Content-Security-Policy", cspRelaxed)
	}

	if NoStorePath(path) {
		h.Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
		h.Set("Pragma", "no-cache")
		h.Set("Expires", "0")
	}
}

// NoStorePath diz se o path é de autenticação ou administração.
func NoStorePath(path string) bool {
	for _, seg := range strings.Split(strings.ToLower(path), "/") {
		for _, s := range noStoreSegments {
			if seg == s {
				return true
			}
		}
	}
	return false
}

// HeadersMiddleware aplica HardenHeaders antes do handler e de novo no momento
// em que o status é escrito, removendo o que o downstream (ex.: reverse proxy)
// tiver copiado do upstream.
func HeadersMiddleware(production bool) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			HardenHeaders(w, r.URL.Path, production)
			next.ServeHTTP(&hardenWriter{ResponseWriter: w}, r)
		})
	}
}

type hardenWriter struct {
	http.ResponseWriter
	wrote bool
}

func (w *hardenWriter) WriteHeader(code int) {
	if !w.wrote {
		w.wrote = true
		for _, name := range identifyingHeaders {
			w.Header().Del(name)
		}
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *hardenWriter) Write(b []byte) (int, error) {
	if !w.wrote {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *hardenWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

func (w *hardenWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
