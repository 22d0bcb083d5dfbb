package app

import (
	"net/http"
	"net/http/httputil"
	"net/url"

	"admin-gateway/middleware/apierror"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// NewProxy encaminha para o upstream. Falhas de conexão viram 502 BAD_GATEWAY
// no envelope padrão.
func NewProxy(upstream string, log logrus.FieldLogger) (http.Handler, error) {
	if upstream == "" {
		return nil, errors.New("UPSTREAM_URL is required")
	}
	target, err := url.Parse(upstream)
	if err != nil {
		return nil, errors.Wrap(err, "invalid UPSTREAM_URL")
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, errors.Errorf("invalid UPSTREAM_URL %q", upstream)
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.WithError(err).WithField("path", r.URL.Path).Error("proxy error")
		apierror.Write(w, apierror.New(http.StatusBadGateway, apierror.CodeBadGateway, "Upstream service unavailable."))
	}
	return proxy, nil
}
