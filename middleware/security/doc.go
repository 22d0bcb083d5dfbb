// Package security é o SecurityGate do pipeline: lista de IPs permitidos, CORS,
// headers de segurança, auditoria, saneamento de payload e CSRF.
//
// Ordem usada por middleware/pipeline:
//
//	IPAllowList → CORS → HeadersMiddleware → (identidade) → Audit → Sanitizer → CSRF.Middleware
//
// Rejeições saem pelo envelope de middleware/apierror (IP_NOT_ALLOWED,
// CSRF_TOKEN_MISSING, CSRF_TOKEN_INVALID). Tokens e eventos de auditoria são
// guardados/entregues pelos stores e sinks de security/infra.
package security
