package respcache_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"admin-gateway/middleware/respcache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingHandler struct {
	calls  int
	status int
}

func (h *countingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.calls++
	w.Header().Set("Content-Type", "application/json")
	status := h.status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = io.WriteString(w, `{"success":true}`)
}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestMiddleware_HitShortCircuitsHandler(t *testing.T) {
	c := newCache()
	next := &countingHandler{}
	h := respcache.Middleware(respcache.Options{Cache: c, TTL: time.Minute})(next)

	w1 := serve(h, http.MethodGet, "http://example/suppliers?status=active")
	require.Equal(t, http.StatusOK, w1.Code)
	assert.Equal(t, "MISS", w1.Header().Get(respcache.HeaderCache))

	w2 := serve(h, http.MethodGet, "http://example/suppliers?status=active")
	require.Equal(t, http.StatusOK, w2.Code)
	assert.Equal(t, "HIT", w2.Header().Get(respcache.HeaderCache))
	assert.Equal(t, "suppliers:status=active", w2.Header().Get(respcache.HeaderCacheKey))
	assert.Equal(t, "60", w2.Header().Get(respcache.HeaderCacheTTL))
	assert.Equal(t, "application/json", w2.Header().Get("Content-Type"))
	assert.Equal(t, `{"success":true}`, w2.Body.String())

	assert.Equal(t, 1, next.calls)
}

func TestMiddleware_DoesNotCacheErrors(t *testing.T) {
	c := newCache()
	next := &countingHandler{status: http.StatusInternalServerError}
	h := respcache.Middleware(respcache.Options{Cache: c})(next)

	serve(h, http.MethodGet, "http://example/suppliers")
	serve(h, http.MethodGet, "http://example/suppliers")

	assert.Equal(t, 2, next.calls)
	assert.Zero(t, c.Stats().Size)
}

func TestMiddleware_SkipsNonGetAndRealtime(t *testing.T) {
	c := newCache()
	next := &countingHandler{}
	h := respcache.Middleware(respcache.Options{Cache: c})(next)

	serve(h, http.MethodPost, "http://example/suppliers")
	serve(h, http.MethodGet, "http://example/suppliers?realtime=true")
	serve(h, http.MethodGet, "http://example/suppliers?realtime=true")

	assert.Equal(t, 3, next.calls)
	assert.Zero(t, c.Stats().Size)
}

func TestMiddleware_AbortedRequestIsNotCommitted(t *testing.T) {
	c := newCache()
	ctx, cancel := context.WithCancel(context.Background())
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "partial")
		cancel()
	})
	h := respcache.Middleware(respcache.Options{Cache: c})(next)

	r := httptest.NewRequest(http.MethodGet, "http://example/suppliers", nil).WithContext(ctx)
	h.ServeHTTP(httptest.NewRecorder(), r)

	assert.Zero(t, c.Stats().Size)
}

func TestMiddleware_PostInvalidatesCollection(t *testing.T) {
	c := newCache()
	next := &countingHandler{}
	h := respcache.Middleware(respcache.Options{Cache: c})(
		respcache.InvalidateOnWrite(c, nil)(next),
	)

	w := serve(h, http.MethodGet, "http://example/suppliers?status=active")
	require.Equal(t, "MISS", w.Header().Get(respcache.HeaderCache))
	w = serve(h, http.MethodGet, "http://example/suppliers?status=active")
	require.Equal(t, "HIT", w.Header().Get(respcache.HeaderCache))

	w = serve(h, http.MethodPost, "http://example/suppliers")
	require.Equal(t, http.StatusOK, w.Code)

	w = serve(h, http.MethodGet, "http://example/suppliers?status=active")
	assert.Equal(t, "MISS", w.Header().Get(respcache.HeaderCache))
	// GET inicial, POST e o GET recomputado
	assert.Equal(t, 3, next.calls)
}

func TestInvalidateOnWrite_FailedWriteKeepsCache(t *testing.T) {
	c := newCache()
	get := respcache.Middleware(respcache.Options{Cache: c})(&countingHandler{})
	serve(get, http.MethodGet, "http://example/suppliers")

	h := respcache.InvalidateOnWrite(c, nil)(&countingHandler{status: http.StatusBadRequest})
	serve(h, http.MethodPost, "http://example/suppliers")

	assert.Equal(t, 1, c.Stats().Size)
}

func TestMiddleware_OuterHeadersAreNotReplayed(t *testing.T) {
	c := newCache()
	counter := 0
	outer := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			counter++
			w.Header().Set("RateLimit-Remaining", strconv.Itoa(100-counter))
			next.ServeHTTP(w, r)
		})
	}
	h := outer(respcache.Middleware(respcache.Options{Cache: c})(&countingHandler{}))

	serve(h, http.MethodGet, "http://example/api/suppliers")
	w := serve(h, http.MethodGet, "http://example/api/suppliers")

	require.Equal(t, "HIT", w.Header().Get(respcache.HeaderCache))
	assert.Equal(t, "98", w.Header().Get("RateLimit-Remaining"))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}

func TestWrappers_FlushAndUnwrapReachRecorder(t *testing.T) {
	c := newCache()
	var inner http.ResponseWriter
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":true}`)
		require.NoError(t, http.NewResponseController(w).Flush())
		if u, ok := w.(interface{ Unwrap() http.ResponseWriter }); ok {
			inner = u.Unwrap()
		}
	})
	h := respcache.Middleware(respcache.Options{Cache: c})(respcache.InvalidateOnWrite(c, nil)(next))

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		inner = nil
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(method, "http://example/suppliers", nil))

		assert.True(t, rec.Flushed, method)
		assert.Same(t, rec, inner, method)
		assert.Equal(t, http.StatusOK, rec.Code, method)
	}
	assert.Equal(t, 0, c.Stats().Size)
}
