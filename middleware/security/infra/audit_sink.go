package infra

import (
	"sync"
	"sync/atomic"

	"admin-gateway/middleware/security/domain"

	"github.com/mailgun/holster/v4/setter"
	"github.com/sirupsen/logrus"
)

// AsyncSink entrega eventos a outro sink numa goroutine própria. Emit nunca
// bloqueia: com o buffer cheio o evento é descartado e contado.
type AsyncSink struct {
	next    domain.AuditSink
	ch      chan domain.AuditEvent
	done    chan struct{}
	dropped atomic.Uint64

	mu     sync.RWMutex
	closed bool
}

var _ domain.AuditSink = (*AsyncSink)(nil)

func NewAsyncSink(next domain.AuditSink, buffer int) *AsyncSink {
	if buffer <= 0 {
		buffer = 1024
	}
	s := &AsyncSink{
		next: next,
		ch:   make(chan domain.AuditEvent, buffer),
		done: make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *AsyncSink) run() {
	defer close(s.done)
	for ev := range s.ch {
		s.next.Emit(ev)
	}
}

func (s *AsyncSink) Emit(ev domain.AuditEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		s.dropped.Add(1)
		return
	}
	select {
	case s.ch <- ev:
	default:
		s.dropped.Add(1)
	}
}

func (s *AsyncSink) Dropped() uint64 { return s.dropped.Load() }

// Close para de aceitar eventos e espera o que já está no buffer ser entregue.
func (s *AsyncSink) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.ch)
	s.mu.Unlock()

	<-s.done
}

// LogSink escreve cada evento como uma linha estruturada do logrus.
type LogSink struct {
	Log logrus.FieldLogger
}

var _ domain.AuditSink = (*LogSink)(nil)

func NewLogSink(log logrus.FieldLogger) *LogSink {
	s := &LogSink{Log: log}
	setter.SetDefault(&s.Log, logrus.WithField("category", "audit"))
	return s
}

func (s *LogSink) Emit(ev domain.AuditEvent) {
	entry := s.Log.WithFields(logrus.Fields{
		"request_id":     ev.RequestID,
		"method":         ev.Method,
		"path":           ev.Path,
		"client_ip":      ev.ClientIP,
		"user_id":        ev.UserID,
		"referer":        ev.Referer,
		"user_agent":     ev.UserAgent,
		"content_type":   ev.ContentType,
		"content_length": ev.ContentLength,
		"status":         ev.Status,
		"duration_ms":    ev.Duration.Milliseconds(),
		"flagged":        ev.Flagged,
	})
	if ev.Flagged {
		entry.Warn("request flagged")
		return
	}
	entry.Info("request")
}
