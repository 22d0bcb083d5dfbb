package security

import (
	"net/http"
	"strings"
	"time"

	"admin-gateway/middleware/identity"
	"admin-gateway/middleware/security/domain"

	"github.com/google/uuid"
	"github.com/mailgun/holster/v4/clock"
	"github.com/mailgun/holster/v4/setter"
)

const (
	HeaderRequestID = "X-Request-ID"

	SlowRequestThreshold = 5 * time.Second
)

type AuditOptions struct {
	TrustXForwardedFor bool
	// SlowThreshold marca requisições mais lentas que isso (padrão 5s).
	SlowThreshold time.Duration
}

// Audit emite um AuditEvent quando a requisição termina, inclusive se o
// handler entrar em pânico ou o cliente desconectar. A identidade precisa
// estar no contexto antes deste middleware.
func Audit(sink domain.AuditSink, opts AuditOptions) func(next http.Handler) http.Handler {
	setter.SetDefault(&opts.SlowThreshold, SlowRequestThreshold)
	if sink == nil {
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := clock.Now()

			reqID := strings.TrimSpace(r.Header.Get(HeaderRequestID))
			if reqID == "" {
				reqID = uuid.NewString()
			}
			w.Header().Set(HeaderRequestID, reqID)

			ev := domain.AuditEvent{
				RequestID:     reqID,
				Timestamp:     start,
				Method:        r.Method,
				Path:          r.URL.Path,
				ClientIP:      identity.ClientIP(r, opts.TrustXForwardedFor),
				Referer:       r.Referer(),
				UserAgent:     r.UserAgent(),
				ContentType:   r.Header.Get("Content-Type"),
				ContentLength: r.ContentLength,
			}
			if id, ok := identity.FromContext(r.Context()); ok {
				ev.UserID = id.UserID
			}

			rw := &recordingWriter{ResponseWriter: w}
			defer func() {
				rec := recover()

				ev.Status = rw.status()
				if rec != nil {
					ev.Status = http.StatusInternalServerError
				}
				ev.Duration = clock.Now().Sub(start)
				ev.Flagged = ev.Status >= http.StatusBadRequest || ev.Duration > opts.SlowThreshold
				sink.Emit(ev)

				if rec != nil {
					panic(rec)
				}
			}()

			next.ServeHTTP(rw, r)
		})
	}
}

type recordingWriter struct {
	http.ResponseWriter
	code int
}

func (w *recordingWriter) WriteHeader(code int) {
	if w.code == 0 {
		w.code = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *recordingWriter) Write(b []byte) (int, error) {
	if w.code == 0 {
		w.code = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

func (w *recordingWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

func (w *recordingWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *recordingWriter) status() int {
	if w.code == 0 {
		return http.StatusOK
	}
	return w.code
}
