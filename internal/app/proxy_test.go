package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProxy_ForwardsToUpstream(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Upstream-Path", r.URL.Path)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer upstream.Close()

	log, _ := test.NewNullLogger()
	proxy, err := NewProxy(upstream.URL, log)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	proxy.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/suppliers", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "/api/suppliers", rec.Header().Get("X-Upstream-Path"))
}

func TestNewProxy_UnreachableUpstreamIsBadGateway(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	addr := upstream.URL
	upstream.Close()

	log, hook := test.NewNullLogger()
	proxy, err := NewProxy(addr, log)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	proxy.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/suppliers", nil))
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var out struct {
		Success bool `json:"success"`
		Error   struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	assert.False(t, out.Success)
	assert.Equal(t, "BAD_GATEWAY", out.Error.Code)
	assert.Equal(t, "proxy error", hook.LastEntry().Message)
}

func TestNewProxy_RejectsBadUpstream(t *testing.T) {
	log, _ := test.NewNullLogger()
	for _, u := range []string{"", "localhost:8080", "://x"} {
		_, err := NewProxy(u, log)
		assert.Error(t, err, u)
	}
}
