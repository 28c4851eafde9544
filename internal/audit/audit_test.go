package audit

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visitlog/pkg/requestcontext"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEmitEnrichesFromContext(t *testing.T) {
	publisher := NewPublisher(4, discardLogger())

	ctx := requestcontext.WithUserID(context.Background(), "user-1")
	ctx = requestcontext.WithRequestID(ctx, "req-1")
	ctx = requestcontext.WithClientMetadata(ctx, "10.0.0.1", "Firefox/141.0")

	publisher.Emit(ctx, Event{Action: ActionVisitCreated, Subject: "visit-1"})

	event := <-publisher.Inbox()
	assert.Equal(t, "user-1", event.ActorID)
	assert.Equal(t, "req-1", event.RequestID)
	assert.Equal(t, "10.0.0.1", event.ClientIP)
	assert.Equal(t, "Firefox/141.0", event.UserAgent)
	assert.False(t, event.Timestamp.IsZero())
}

func TestEmitDropsWhenBufferFull(t *testing.T) {
	publisher := NewPublisher(1, discardLogger())

	publisher.Emit(context.Background(), Event{Action: ActionVisitCreated, Subject: "a"})
	// Buffer is full; this one is dropped instead of blocking.
	publisher.Emit(context.Background(), Event{Action: ActionVisitCreated, Subject: "b"})

	first := <-publisher.Inbox()
	assert.Equal(t, "a", first.Subject)
	select {
	case extra := <-publisher.Inbox():
		t.Fatalf("expected the second event to be dropped, got %q", extra.Subject)
	default:
	}
}

func TestWorkerPersistsEvents(t *testing.T) {
	store := NewInMemoryStore()
	publisher := NewPublisher(8, discardLogger())
	worker := NewWorker(store, nil, publisher.Inbox(), discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = worker.Run(ctx)
		close(done)
	}()

	publisher.Emit(ctx, Event{Action: ActionVisitDeparted, Subject: "visit-1"})
	publisher.Emit(ctx, Event{Action: ActionUserLogin, Subject: "user-1"})

	require.Eventually(t, func() bool {
		events, err := store.ListRecent(ctx, 10)
		return err == nil && len(events) == 2
	}, time.Second, 10*time.Millisecond)

	events, err := store.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, ActionVisitDeparted, events[0].Action)
	assert.Equal(t, ActionUserLogin, events[1].Action)

	cancel()
	<-done
}

func TestInMemoryStoreListRecentCaps(t *testing.T) {
	store := NewInMemoryStore()
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(context.Background(), Event{Action: ActionVisitCreated}))
	}

	events, err := store.ListRecent(context.Background(), 3)
	require.NoError(t, err)
	assert.Len(t, events, 3)
}
