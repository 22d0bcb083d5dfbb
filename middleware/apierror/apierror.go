// Package apierror padroniza o envelope JSON devolvido pelo pipeline:
//
//	{"success": bool, "data" | "error": ..., "timestamp": "..."}
//
// Toda rejeição (rate limit, CSRF, IP) sai por aqui com um código estável,
// uma mensagem legível e, quando fizer sentido, um retry hint.
package apierror

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/mailgun/holster/v4/clock"
)

const (
	CodeCSRFTokenMissing     = "CSRF_TOKEN_MISSING"
	CodeCSRFTokenInvalid     = "CSRF_TOKEN_INVALID"
	CodeIPNotAllowed         = "IP_NOT_ALLOWED"
	CodeRateLimitUnavailable = "RATE_LIMIT_UNAVAILABLE"
	CodeServerBusy           = "SERVER_BUSY"
	CodeInternal             = "INTERNAL_ERROR"
	CodeBadGateway           = "BAD_GATEWAY"
	CodePayloadTooLarge      = "PAYLOAD_TOO_LARGE"
	CodeNotFound             = "NOT_FOUND"
	CodeValidation           = "VALIDATION_ERROR"
	CodeUnauthorized         = "INVALID_CREDENTIALS"
	CodeForbidden            = "FORBIDDEN"
)

// Error é uma rejeição com código estável. Implementa error para poder
// atravessar camadas sem perder o status.
type Error struct {
	Status     int
	Code       string
	Message    string
	RetryAfter time.Duration
}

func (e *Error) Error() string { return e.Code + ": " + e.Message }

func New(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

type errorBody struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retryAfter,omitempty"`
}

type envelope struct {
	Success   bool       `json:"success"`
	Data      any        `json:"data,omitempty"`
	Error     *errorBody `json:"error,omitempty"`
	Timestamp string     `json:"timestamp"`
}

// Write responde com o envelope de erro. Erros que não são *Error viram
// INTERNAL_ERROR sem expor detalhes.
func Write(w http.ResponseWriter, err error) {
	e, ok := err.(*Error)
	if !ok || e == nil {
		e = New(http.StatusInternalServerError, CodeInternal, "internal server error")
	}

	body := &errorBody{Code: e.Code, Message: e.Message}
	if e.RetryAfter > 0 {
		secs := RetryAfterSeconds(e.RetryAfter)
		body.RetryAfter = secs
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}
	writeJSON(w, e.Status, envelope{Error: body})
}

// WriteData responde com o envelope de sucesso.
func WriteData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

// RetryAfterSeconds arredonda para cima; nunca devolve 0 para um retry > 0.
func RetryAfterSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	secs := int(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	return secs
}

func writeJSON(w http.ResponseWriter, status int, env envelope) {
	env.Timestamp = clock.Now().UTC().Format(time.RFC3339)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}
