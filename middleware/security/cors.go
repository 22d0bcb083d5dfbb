package security

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

type CORSOptions struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         time.Duration
}

func (o *CORSOptions) defaults() {
	if len(o.AllowedMethods) == 0 {
		o.AllowedMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	}
	if len(o.AllowedHeaders) == 0 {
		o.AllowedHeaders = []string{"Content-Type", "Authorization", HeaderCSRFToken, HeaderSessionID, HeaderRequestID}
	}
	if o.MaxAge == 0 {
		o.MaxAge = 10 * time.Minute
	}
}

// CORS libera as origens configuradas (com credenciais). "*" libera as
// demais sem credenciais. Sem origens configuradas, nenhum header CORS é
// emitido. Preflight termina aqui com 204.
func CORS(opts CORSOptions) func(next http.Handler) http.Handler {
	opts.defaults()

	allowed := make(map[string]struct{}, len(opts.AllowedOrigins))
	for _, o := range opts.AllowedOrigins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			allowed[o] = struct{}{}
		}
	}
	_, wildcard := allowed["*"]
	delete(allowed, "*")
	methods := strings.Join(opts.AllowedMethods, ", ")
	headers := strings.Join(opts.AllowedHeaders, ", ")
	maxAge := strconv.Itoa(int(opts.MaxAge / time.Second))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			_, ok := allowed[origin]
			// "*" libera qualquer origem, mas nunca com credenciais
			public := !ok && wildcard && origin != ""

			h := w.Header()
			h.Add("Vary", "Origin")
			switch {
			case ok:
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
			case public:
				h.Set("Access-Control-Allow-Origin", "*")
			}
			if ok || public {
				h.Set("Access-Control-Expose-Headers", strings.Join([]string{
					HeaderCSRFToken, HeaderSessionID, HeaderRequestID,
					"RateLimit-Limit", "RateLimit-Remaining", "RateLimit-Reset", "Retry-After",
					"X-Cache", "X-Cache-Key",
				}, ", "))
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				if ok || public {
					h.Set("Access-Control-Allow-Methods", methods)
					h.Set("Access-Control-Allow-Headers", headers)
					h.Set("Access-Control-Max-Age", maxAge)
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
