package respcache

import (
	"net/http"

	"github.com/sirupsen/logrus"
)

// PatternFunc devolve o padrão a invalidar depois de uma escrita bem-sucedida.
// "" significa não invalidar nada.
type PatternFunc func(r *http.Request) string

// CollectionPatternFunc invalida a coleção do path (ver CollectionPattern).
func CollectionPatternFunc(prefix string) PatternFunc {
	return func(r *http.Request) string { return CollectionPattern(r.URL.Path, prefix) }
}

// InvalidateOnWrite invalida o cache depois de POST/PUT/PATCH/DELETE que
// terminem com 2xx. Requisições abortadas não invalidam.
func InvalidateOnWrite(c *Cache, patternFn PatternFunc) func(next http.Handler) http.Handler {
	if c == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	if patternFn == nil {
		patternFn = CollectionPatternFunc("")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isMutating(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			sw := &statusWriter{ResponseWriter: w}
			next.ServeHTTP(sw, r)

			status := sw.status
			if status == 0 {
				status = http.StatusOK
			}
			if r.Context().Err() != nil || status < 200 || status >= 300 {
				return
			}
			pattern := patternFn(r)
			if pattern == "" {
				return
			}
			if _, err := c.Invalidate(pattern); err != nil {
				c.log.WithError(err).WithFields(logrus.Fields{
					"method": r.Method,
					"path":   r.URL.Path,
				}).Error("while invalidating cache after write")
			}
		})
	}
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

func (w *statusWriter) Flush() {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
