package audit

import (
	"context"
	"log/slog"
	"time"

	"visitlog/pkg/requestcontext"
)

// Publisher captures structured audit events onto a buffered channel so
// request handling never blocks on the audit sink. The Worker drains the
// channel into the store and, when configured, Kafka.
type Publisher struct {
	inbox  chan Event
	logger *slog.Logger
}

// NewPublisher creates a publisher with the given buffer size.
func NewPublisher(buffer int, logger *slog.Logger) *Publisher {
	if buffer <= 0 {
		buffer = 256
	}
	return &Publisher{
		inbox:  make(chan Event, buffer),
		logger: logger,
	}
}

// Inbox exposes the event channel for the Worker.
func (p *Publisher) Inbox() <-chan Event { return p.inbox }

// Emit enriches the event with request-scoped metadata and enqueues it.
// A full buffer drops the event with a warning rather than stalling the
// request path.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.ActorID == "" {
		event.ActorID = requestcontext.UserID(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.ClientIP == "" {
		event.ClientIP = requestcontext.ClientIP(ctx)
	}
	if event.UserAgent == "" {
		event.UserAgent = requestcontext.UserAgent(ctx)
	}

	select {
	case p.inbox <- event:
	default:
		p.logger.Warn("audit buffer full, dropping event",
			"action", event.Action,
			"subject", event.Subject,
		)
	}
}
