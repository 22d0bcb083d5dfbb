package domain

import (
	"strings"
	"time"
)

// Category agrupa requisições que compartilham um orçamento.
type Category string

const (
	CategoryAuth          Category = "auth"
	CategoryAPI           Category = "api"
	CategoryUpload        Category = "upload"
	CategoryPasswordReset Category = "password-reset"
	CategorySearch        Category = "search"
	CategoryModification  Category = "modification"
	CategoryGeneral       Category = "general"
	CategoryAuthenticated Category = "authenticated"
)

// Code devolve o código estável de rejeição, ex.: AUTH_RATE_LIMIT_EXCEEDED.
func (c Category) Code() string {
	return strings.ToUpper(strings.ReplaceAll(string(c), "-", "_")) + "_RATE_LIMIT_EXCEEDED"
}

// Policy é o orçamento de uma categoria.
type Policy struct {
	Max    int64
	Window time.Duration
	// SkipSuccessful não conta requisições que terminam com status < 400.
	SkipSuccessful bool
	Message        string
}

// DefaultPolicies é a política de referência; todos os valores são ajustáveis.
func DefaultPolicies() map[Category]Policy {
	return map[Category]Policy{
		CategoryAuth: {
			Max: 5, Window: 15 * time.Minute, SkipSuccessful: true,
			Message: "Too many authentication attempts, please try again after 15 minutes.",
		},
		CategoryAPI: {
			Max: 100, Window: 15 * time.Minute,
			Message: "Too many API requests, please try again after 15 minutes.",
		},
		CategoryUpload: {
			Max: 10, Window: time.Hour,
			Message: "Too many uploads, please try again after an hour.",
		},
		CategoryPasswordReset: {
			Max: 3, Window: time.Hour,
			Message: "Too many password reset attempts, please try again after an hour.",
		},
		CategorySearch: {
			Max: 30, Window: time.Minute,
			Message: "Too many search requests, please slow down.",
		},
		CategoryModification: {
			Max: 20, Window: time.Minute,
			Message: "Too many modification requests, please slow down.",
		},
		CategoryGeneral: {
			Max: 1000, Window: 15 * time.Minute,
			Message: "Too many requests, please try again later.",
		},
		CategoryAuthenticated: {
			Max: 500, Window: 15 * time.Minute,
			Message: "Too many requests for this account, please try again after 15 minutes.",
		},
	}
}

// Request é a visão da requisição que o classificador precisa.
type Request struct {
	Method   string
	Path     string
	Query    map[string][]string
	ClientIP string
	UserID   string
	Role     string
}

func (r Request) Authenticated() bool { return r.UserID != "" }

// ClientKey identifica o cliente: usuário quando autenticado, senão o IP.
func (r Request) ClientKey() string {
	if r.UserID != "" {
		return "user:" + r.UserID
	}
	return "ip:" + r.ClientIP
}

// WindowKey compõe categoria + cliente para evitar colisão entre categorias.
func WindowKey(c Category, clientKey string) string {
	return string(c) + ":" + clientKey
}
