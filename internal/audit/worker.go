package audit

import (
	"context"
	"log/slog"
)

// Worker consumes audit events from the publisher channel and persists them.
// When a Kafka producer is configured the event is also published there; a
// Kafka failure is logged but does not lose the stored copy.
type Worker struct {
	store    Store
	producer *KafkaProducer
	inbox    <-chan Event
	logger   *slog.Logger
}

func NewWorker(store Store, producer *KafkaProducer, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{store: store, producer: producer, inbox: inbox, logger: logger}
}

// Run drains the inbox until the context is canceled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "failed to persist audit event",
					"action", event.Action,
					"error", err,
				)
				continue
			}
			if w.producer != nil {
				if err := w.producer.Publish(ctx, event); err != nil {
					w.logger.ErrorContext(ctx, "failed to publish audit event to kafka",
						"action", event.Action,
						"error", err,
					)
				}
			}
		}
	}
}
