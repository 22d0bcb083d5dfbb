package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"admin-gateway/middleware/identity"
	"admin-gateway/middleware/ratelimit/application"
	"admin-gateway/middleware/ratelimit/domain"
	"admin-gateway/middleware/ratelimit/infra"

	"github.com/mailgun/holster/v4/clock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type errorBody struct {
	Success bool `json:"success"`
	Error   struct {
		Code       string `json:"code"`
		Message    string `json:"message"`
		RetryAfter int    `json:"retryAfter"`
	} `json:"error"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func loginHandler(ok *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if *ok {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	})
}

func login(h http.Handler) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, "http://example/api/auth/login", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestMiddleware_FailedLoginsExhaustAuthBudget(t *testing.T) {
	defer clock.Freeze(clock.Now()).Unfreeze()

	succeed := false
	h := Middleware(Options{Limiter: application.NewLimiter(infra.NewMemoryWindowStore())})(loginHandler(&succeed))

	for i := 0; i < 5; i++ {
		w := login(h)
		require.Equal(t, http.StatusUnauthorized, w.Code, "attempt %d", i+1)
	}

	w := login(h)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	body := decodeError(t, w)
	assert.False(t, body.Success)
	assert.Equal(t, "AUTH_RATE_LIMIT_EXCEEDED", body.Error.Code)
	assert.Equal(t, 900, body.Error.RetryAfter)
	assert.Equal(t, "900", w.Header().Get("Retry-After"))
	assert.Equal(t, "auth", w.Header().Get(HeaderCategory))
	assert.Equal(t, "0", w.Header().Get(HeaderRemaining))
}

func TestMiddleware_SuccessfulLoginDoesNotCount(t *testing.T) {
	defer clock.Freeze(clock.Now()).Unfreeze()

	succeed := false
	h := Middleware(Options{Limiter: application.NewLimiter(infra.NewMemoryWindowStore())})(loginHandler(&succeed))

	for i := 0; i < 4; i++ {
		require.Equal(t, http.StatusUnauthorized, login(h).Code)
	}

	succeed = true
	require.Equal(t, http.StatusOK, login(h).Code)

	succeed = false
	w := login(h)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "6th request after a successful login must be admitted")

	assert.Equal(t, http.StatusTooManyRequests, login(h).Code)
}

func TestMiddleware_SetsRateLimitHeaders(t *testing.T) {
	defer clock.Freeze(clock.Now()).Unfreeze()

	h := Middleware(Options{Limiter: application.NewLimiter(infra.NewMemoryWindowStore())})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }))

	r := httptest.NewRequest(http.MethodGet, "http://example/api/suppliers", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "100", w.Header().Get(HeaderLimit))
	assert.Equal(t, "99", w.Header().Get(HeaderRemaining))
	assert.Equal(t, "900", w.Header().Get(HeaderReset))
	assert.Equal(t, "api", w.Header().Get(HeaderCategory))
}

func TestMiddleware_AdminBypassesWithoutHeaders(t *testing.T) {
	store := infra.NewMemoryWindowStore()
	h := identity.Middleware(func(r *http.Request) (identity.Identity, bool) {
		return identity.Identity{UserID: "7", Role: "ADMIN"}, true
	})(Middleware(Options{Limiter: application.NewLimiter(store)})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })))

	for i := 0; i < 10; i++ {
		r := httptest.NewRequest(http.MethodPost, "http://example/api/password-reset", nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		require.Equal(t, http.StatusNoContent, w.Code)
		require.Empty(t, w.Header().Get(HeaderLimit))
	}
	assert.Zero(t, store.Len())
}

func TestMiddleware_AuthenticatedUsesUserKey(t *testing.T) {
	store := infra.NewMemoryWindowStore()
	h := identity.Middleware(func(r *http.Request) (identity.Identity, bool) {
		return identity.Identity{UserID: "42", Role: "staff"}, true
	})(Middleware(Options{Limiter: application.NewLimiter(store)})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })))

	r := httptest.NewRequest(http.MethodPost, "http://example/api/upload", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	assert.Equal(t, "authenticated", w.Header().Get(HeaderCategory))
	assert.Equal(t, "500", w.Header().Get(HeaderLimit))
	assert.Equal(t, int64(1), store.Count("authenticated:user:42"))
}

type failingStore struct{}

func (failingStore) Increment(context.Context, string, time.Duration) (int64, time.Time, error) {
	return 0, time.Time{}, errors.New("connection refused")
}
func (failingStore) Decrement(context.Context, string, time.Time) error { return nil }
func (failingStore) Reset(context.Context, string) error                { return nil }

func TestMiddleware_StoreFailureFailsClosed(t *testing.T) {
	called := false
	metrics := NewMetrics()
	h := Middleware(Options{Limiter: application.NewLimiter(failingStore{}), Metrics: metrics})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	r := httptest.NewRequest(http.MethodGet, "http://example/api/suppliers", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	assert.False(t, called)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, "RATE_LIMIT_UNAVAILABLE", body.Error.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.decisions.WithLabelValues("api", "error")))
}

func TestMiddleware_RecordsStatsAndMetrics(t *testing.T) {
	stats := infra.NewMemoryStatsStore()
	metrics := NewMetrics()
	lim := application.NewLimiter(infra.NewMemoryWindowStore())
	lim.Policies[domain.CategorySearch] = domain.Policy{Max: 1, Window: time.Minute, Message: "slow down"}

	h := Middleware(Options{Limiter: lim, Stats: stats, Metrics: metrics})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for i := 0; i < 2; i++ {
		r := httptest.NewRequest(http.MethodGet, "http://example/api/suppliers?q=acme", nil)
		r.RemoteAddr = "10.0.0.3:1"
		h.ServeHTTP(httptest.NewRecorder(), r)
	}

	assert.Equal(t, infra.Counters{Allowed: 1, Denied: 1}, stats.ByCategory()[domain.CategorySearch])
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.decisions.WithLabelValues("search", "allowed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.decisions.WithLabelValues("search", "denied")))
}

func TestMiddleware_NilLimiterIsNoop(t *testing.T) {
	called := false
	h := Middleware(Options{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "http://example/", nil))
	assert.True(t, called)
}
