package respcache

import (
	"bytes"
	"net/http"
	"slices"
	"strconv"
	"time"

	"admin-gateway/middleware/respcache/domain"
)

const (
	HeaderCache    = "X-Cache"
	HeaderCacheKey = "X-Cache-Key"
	HeaderCacheTTL = "X-Cache-TTL"
)

type Options struct {
	Cache *Cache
	// TTL das entradas gravadas por este middleware. 0 usa o TTL padrão do Cache.
	TTL       time.Duration
	KeyPrefix string
	KeyFn     KeyFunc
	// Condition exclui requisições tanto da leitura quanto da escrita.
	// nil usa DefaultCondition.
	Condition func(r *http.Request) bool
}

// DefaultCondition pula requisições com ?realtime=true ou Cache-Control: no-cache.
func DefaultCondition(r *http.Request) bool {
	if v, _ := strconv.ParseBool(r.URL.Query().Get("realtime")); v {
		return false
	}
	return r.Header.Get("Cache-Control") != "no-cache"
}

// Middleware serve GETs do cache e memoriza respostas 2xx.
//
// Em hit o handler seguinte não é chamado. Em miss a resposta é espelhada em
// buffer e só é gravada se o handler retornar normalmente, com status 2xx e
// sem o contexto da requisição ter sido cancelado.
func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.Cache == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.TTL <= 0 {
		opts.TTL = opts.Cache.DefaultTTL()
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.KeyPrefix)
	}
	if opts.Condition == nil {
		opts.Condition = DefaultCondition
	}
	ttlHeader := strconv.Itoa(int(opts.TTL.Seconds()))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet || !opts.Condition(r) {
				next.ServeHTTP(w, r)
				return
			}

			key := opts.KeyFn(r)
			if v, ok := opts.Cache.Get(key); ok {
				h := w.Header()
				for k, vs := range v.Header {
					h[k] = append([]string(nil), vs...)
				}
				h.Set(HeaderCache, "HIT")
				h.Set(HeaderCacheKey, key)
				h.Set(HeaderCacheTTL, ttlHeader)
				w.WriteHeader(v.Status)
				_, _ = w.Write(v.Body)
				return
			}

			w.Header().Set(HeaderCache, "MISS")
			w.Header().Set(HeaderCacheKey, key)
			w.Header().Set(HeaderCacheTTL, ttlHeader)

			// headers das camadas externas (rate limit, request id) não entram na entrada
			outer := w.Header().Clone()
			cw := &captureWriter{ResponseWriter: w}
			next.ServeHTTP(cw, r)

			if r.Context().Err() != nil {
				return
			}
			status := cw.statusCode()
			if status < 200 || status >= 300 {
				return
			}
			opts.Cache.Set(key, valueFrom(cw, outer), opts.TTL)
		})
	}
}

// captureWriter espelha corpo e status enquanto escreve para o cliente.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (w *captureWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *captureWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// Flush escreve o cabeçalho implicitamente; o status passa a ser 200.
func (w *captureWriter) Flush() {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *captureWriter) statusCode() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func valueFrom(cw *captureWriter, outer http.Header) (v domain.Value) {
	header := make(map[string][]string, len(cw.Header()))
	for k, vs := range cw.Header() {
		switch k {
		case HeaderCache, HeaderCacheKey, HeaderCacheTTL, "Set-Cookie", "Date":
			continue
		}
		if prev, ok := outer[k]; ok && slices.Equal(prev, vs) {
			continue
		}
		header[k] = append([]string(nil), vs...)
	}
	v.Status = cw.statusCode()
	v.Header = header
	v.Body = append([]byte(nil), cw.buf.Bytes()...)
	return v
}
