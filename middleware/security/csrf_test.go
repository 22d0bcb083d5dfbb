package security

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"admin-gateway/middleware/security/domain"
	"admin-gateway/middleware/security/infra"

	"github.com/mailgun/holster/v4/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCSRF(t *testing.T) *CSRF {
	t.Helper()
	store := infra.NewMemoryTokenStore()
	t.Cleanup(store.Close)
	return NewCSRF(store)
}

func TestCSRF_IssueThenValidate(t *testing.T) {
	c := newCSRF(t)
	ctx := context.Background()

	token, err := c.IssueToken(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, token, 64)

	assert.True(t, c.ValidateToken(ctx, token, "s1"))
	assert.True(t, c.ValidateToken(ctx, token, "s1"), "tokens are reusable until expiry")
	assert.False(t, c.ValidateToken(ctx, token, "s2"))
}

func TestCSRF_ExpiresAfterTTL(t *testing.T) {
	defer clock.Freeze(clock.Now()).Unfreeze()

	c := newCSRF(t)
	ctx := context.Background()

	token, err := c.IssueToken(ctx, "s1")
	require.NoError(t, err)

	clock.Advance(29 * time.Minute)
	assert.True(t, c.ValidateToken(ctx, token, "s1"))

	clock.Advance(time.Minute)
	assert.False(t, c.ValidateToken(ctx, token, "s1"))
}

func TestCSRF_ReissueSupersedesPreviousToken(t *testing.T) {
	c := newCSRF(t)
	ctx := context.Background()

	first, err := c.IssueToken(ctx, "s1")
	require.NoError(t, err)
	second, err := c.IssueToken(ctx, "s1")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.False(t, c.ValidateToken(ctx, first, "s1"))
	assert.True(t, c.ValidateToken(ctx, second, "s1"))
}

func TestCSRF_RejectsLengthMismatchAndGarbage(t *testing.T) {
	c := newCSRF(t)
	ctx := context.Background()

	token, err := c.IssueToken(ctx, "s1")
	require.NoError(t, err)

	assert.False(t, c.ValidateToken(ctx, token[:62], "s1"))
	assert.False(t, c.ValidateToken(ctx, token+"00", "s1"))
	assert.False(t, c.ValidateToken(ctx, strings.Repeat("z", 64), "s1"))
	assert.False(t, c.ValidateToken(ctx, "", "s1"))
	assert.False(t, c.ValidateToken(ctx, token, ""))
}

type brokenStore struct{}

func (brokenStore) Put(context.Context, domain.TokenRecord) error { return errors.New("down") }
func (brokenStore) Get(context.Context, string) (domain.TokenRecord, bool, error) {
	return domain.TokenRecord{}, false, errors.New("down")
}
func (brokenStore) Delete(context.Context, string) error { return errors.New("down") }

func TestCSRF_StoreFailureRejects(t *testing.T) {
	c := NewCSRF(brokenStore{})
	_, err := c.IssueToken(context.Background(), "s1")
	assert.Error(t, err)
	assert.False(t, c.ValidateToken(context.Background(), strings.Repeat("a", 64), "s1"))
}

func csrfCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error.Code
}

func TestCSRF_Middleware(t *testing.T) {
	c := newCSRF(t)
	token, err := c.IssueToken(context.Background(), "s1")
	require.NoError(t, err)

	h := c.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	serve := func(method, path, tok, session string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(method, "http://example"+path, nil)
		if tok != "" {
			r.Header.Set(HeaderCSRFToken, tok)
		}
		if session != "" {
			r.Header.Set(HeaderSessionID, session)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w
	}

	assert.Equal(t, http.StatusCreated, serve(http.MethodGet, "/api/suppliers", "", "").Code)
	assert.Equal(t, http.StatusCreated, serve(http.MethodPost, "/api/auth/login", "", "").Code)

	w := serve(http.MethodPost, "/api/suppliers", "", "s1")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "CSRF_TOKEN_MISSING", csrfCode(t, w))

	w = serve(http.MethodPost, "/api/suppliers", strings.Repeat("0", 64), "s1")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "CSRF_TOKEN_INVALID", csrfCode(t, w))

	assert.Equal(t, http.StatusCreated, serve(http.MethodDelete, "/api/suppliers/1", token, "s1").Code)
}

func TestCSRF_SessionFromCookie(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "http://example/", nil)
	r.AddCookie(&http.Cookie{Name: SessionCookie, Value: "cookie-session"})
	assert.Equal(t, "cookie-session", SessionID(r))
}

func TestCSRF_TokenHandlerCreatesSession(t *testing.T) {
	c := newCSRF(t)

	w := httptest.NewRecorder()
	c.TokenHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://example/api/csrf-token", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			CSRFToken string `json:"csrfToken"`
			SessionID string `json:"sessionId"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, body.Data.CSRFToken, w.Header().Get(HeaderCSRFToken))
	assert.Equal(t, body.Data.SessionID, w.Header().Get(HeaderSessionID))
	assert.True(t, c.ValidateToken(context.Background(), body.Data.CSRFToken, body.Data.SessionID))
}
