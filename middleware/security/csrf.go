package security

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"io"
	"net/http"
	"strings"
	"time"

	"admin-gateway/middleware/apierror"
	"admin-gateway/middleware/security/domain"

	"github.com/google/uuid"
	"github.com/mailgun/holster/v4/clock"
	"github.com/mailgun/holster/v4/setter"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	HeaderCSRFToken = "X-CSRF-Token"
	HeaderSessionID = "X-Session-ID"
	SessionCookie   = "session_id"

	DefaultTokenTTL = 30 * time.Minute
	tokenBytes      = 32
)

// DefaultExemptPaths são os endpoints que precedem a emissão do token.
var DefaultExemptPaths = []string{"/api/auth/login", "/api/auth/register", "/api/csrf-token"}

// CSRF emite e valida tokens por sessão. Não há uso único: o token vale até
// expirar ou ser reemitido, e reemitir invalida o anterior.
type CSRF struct {
	store  domain.TokenStore
	ttl    time.Duration
	exempt map[string]struct{}
	random io.Reader
	log    logrus.FieldLogger
}

type CSRFOption func(*CSRF)

func WithTokenTTL(d time.Duration) CSRFOption {
	return func(c *CSRF) { c.ttl = d }
}

// WithExemptPaths substitui a lista padrão de paths isentos.
func WithExemptPaths(paths ...string) CSRFOption {
	return func(c *CSRF) {
		c.exempt = make(map[string]struct{}, len(paths))
		for _, p := range paths {
			c.exempt[p] = struct{}{}
		}
	}
}

func WithCSRFLogger(log logrus.FieldLogger) CSRFOption {
	return func(c *CSRF) { c.log = log }
}

func NewCSRF(store domain.TokenStore, opts ...CSRFOption) *CSRF {
	c := &CSRF{store: store, random: rand.Reader}
	WithExemptPaths(DefaultExemptPaths...)(c)
	for _, opt := range opts {
		opt(c)
	}
	setter.SetDefault(&c.ttl, DefaultTokenTTL)
	setter.SetDefault(&c.log, logrus.WithField("category", "csrf"))
	return c
}

// IssueToken gera 256 bits aleatórios (hex) para a sessão, sobrescrevendo
// qualquer token anterior dela.
func (c *CSRF) IssueToken(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		return "", errors.New("csrf: empty session id")
	}

	b := make([]byte, tokenBytes)
	if _, err := io.ReadFull(c.random, b); err != nil {
		return "", errors.Wrap(err, "while generating csrf token")
	}
	token := hex.EncodeToString(b)

	rec := domain.TokenRecord{
		SessionID: sessionID,
		Token:     token,
		ExpiresAt: clock.Now().Add(c.ttl),
	}
	if err := c.store.Put(ctx, rec); err != nil {
		return "", errors.Wrap(err, "while storing csrf token")
	}
	return token, nil
}

// ValidateToken compara em tempo constante. Qualquer falha (sessão sem token,
// token expirado, hex inválido, tamanho diferente, erro do store) é inválida.
func (c *CSRF) ValidateToken(ctx context.Context, token, sessionID string) bool {
	if token == "" || sessionID == "" {
		return false
	}

	rec, ok, err := c.store.Get(ctx, sessionID)
	if err != nil {
		c.log.WithError(err).Error("csrf token lookup failed")
		return false
	}
	if !ok || rec.Expired(clock.Now()) {
		return false
	}

	provided, err := hex.DecodeString(token)
	if err != nil {
		return false
	}
	expected, err := hex.DecodeString(rec.Token)
	if err != nil {
		return false
	}
	if len(provided) != len(expected) {
		return false
	}
	return subtle.ConstantTimeCompare(provided, expected) == 1
}

// Middleware exige o token em métodos que alteram estado, exceto nos paths isentos.
func (c *CSRF) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if safeMethod(r.Method) {
			next.ServeHTTP(w, r)
			return
		}
		if _, ok := c.exempt[r.URL.Path]; ok {
			next.ServeHTTP(w, r)
			return
		}

		token := strings.TrimSpace(r.Header.Get(HeaderCSRFToken))
		if token == "" {
			apierror.Write(w, apierror.New(http.StatusForbidden,
				apierror.CodeCSRFTokenMissing, "CSRF token is required for this request."))
			return
		}
		if !c.ValidateToken(r.Context(), token, SessionID(r)) {
			apierror.Write(w, apierror.New(http.StatusForbidden,
				apierror.CodeCSRFTokenInvalid, "CSRF token is invalid or has expired."))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// TokenHandler emite um token para a sessão do chamador. Sem sessão, cria uma
// e a devolve em X-Session-ID.
func (c *CSRF) TokenHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := SessionID(r)
		if sessionID == "" {
			sessionID = uuid.NewString()
		}

		token, err := c.IssueToken(r.Context(), sessionID)
		if err != nil {
			c.log.WithError(err).Error("csrf token not issued")
			apierror.Write(w, err)
			return
		}

		w.Header().Set(HeaderCSRFToken, token)
		w.Header().Set(HeaderSessionID, sessionID)
		apierror.WriteData(w, http.StatusOK, map[string]string{
			"csrfToken": token,
			"sessionId": sessionID,
		})
	})
}

// SessionID lê a sessão do header X-Session-ID ou, na falta dele, do cookie.
func SessionID(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get(HeaderSessionID)); v != "" {
		return v
	}
	if ck, err := r.Cookie(SessionCookie); err == nil {
		return ck.Value
	}
	return ""
}

func safeMethod(m string) bool {
	switch m {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}
