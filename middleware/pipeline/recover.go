package pipeline

import (
	"net/http"
	"runtime/debug"

	"admin-gateway/middleware/apierror"

	"github.com/sirupsen/logrus"
)

// Recover transforma pânicos em 500 INTERNAL_ERROR. O stack vai para o log,
// nunca para o corpo da resposta.
func Recover(log logrus.FieldLogger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.WithFields(logrus.Fields{
					"panic":  rec,
					"method": r.Method,
					"path":   r.URL.Path,
					"stack":  string(debug.Stack()),
				}).Error("recovered from panic")
				apierror.Write(w, apierror.New(http.StatusInternalServerError,
					apierror.CodeInternal, "Internal server error."))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
