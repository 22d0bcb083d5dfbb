package domain

import "time"

// AuditEvent é o registro estruturado de uma requisição concluída.
type AuditEvent struct {
	RequestID     string
	Timestamp     time.Time
	Method        string
	Path          string
	ClientIP      string
	UserID        string
	Referer       string
	UserAgent     string
	ContentType   string
	ContentLength int64
	Status        int
	Duration      time.Duration
	// Flagged marca status >= 400 ou requisição lenta.
	Flagged bool
}

// AuditSink consome os eventos. Emit não deve bloquear a resposta.
type AuditSink interface {
	Emit(ev AuditEvent)
}

type AuditSinkFunc func(ev AuditEvent)

func (f AuditSinkFunc) Emit(ev AuditEvent) { f(ev) }
