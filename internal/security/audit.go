package security

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"homeguard.org/internal/ids"
)

// Event is one structured audit record. The core emits these for every
// allow/deny, escalation, revocation, and rate-limit trip; storage belongs
// to the sink.
type Event struct {
	ID       string
	Kind     string
	Subject  string
	Decision string
	Reason   string
	At       time.Time
	Metadata map[string]string
}

// Sink receives audit events, append-only. Sink failures never influence
// the decision that produced the event.
type Sink interface {
	Record(ctx context.Context, e Event) error
}

// LogSink writes audit events as structured log lines.
type LogSink struct {
	log zerolog.Logger
}

// NewLogSink creates a Sink over the given logger.
func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Record(ctx context.Context, e Event) error {
	ev := s.log.Info().
		Str("audit_id", e.ID).
		Str("kind", e.Kind).
		Str("subject", e.Subject).
		Str("decision", e.Decision).
		Time("at", e.At)
	if e.Reason != "" {
		ev = ev.Str("reason", e.Reason)
	}
	for k, v := range e.Metadata {
		ev = ev.Str(k, v)
	}
	ev.Msg("audit")
	return nil
}

func (s *Service) emit(ctx context.Context, kind, subject, decision, reason string, metadata map[string]string) {
	e := Event{
		ID:       ids.New(),
		Kind:     kind,
		Subject:  subject,
		Decision: decision,
		Reason:   reason,
		At:       s.now().UTC(),
		Metadata: metadata,
	}
	if err := s.audit.Record(ctx, e); err != nil {
		s.log.Warn().Err(err).Str("kind", kind).Msg("audit sink failed")
	}
}
