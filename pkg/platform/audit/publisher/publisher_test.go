package publisher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scholarops/pkg/platform/audit"
	"scholarops/pkg/platform/audit/store/memory"
	"scholarops/pkg/requestcontext"
)

type failingStore struct{}

func (failingStore) Append(context.Context, audit.Event) error { return errors.New("disk full") }
func (failingStore) ListBySubject(context.Context, string) ([]audit.Event, error) {
	return nil, nil
}

func TestPublisher_Emit(t *testing.T) {
	t.Run("enriches from request context", func(t *testing.T) {
		store := memory.NewInMemoryStore()
		pub := New(store)

		now := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
		ctx := requestcontext.WithTime(context.Background(), now)
		ctx = requestcontext.WithActorID(ctx, "staff-1")
		ctx = requestcontext.WithRequestID(ctx, "req-9")

		err := pub.Emit(ctx, audit.Event{Subject: "app-1", Action: string(audit.EventApplicationRejected)})
		require.NoError(t, err)

		events, err := store.ListBySubject(ctx, "app-1")
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, audit.CategoryCompliance, events[0].Category)
		assert.Equal(t, now, events[0].Timestamp)
		assert.Equal(t, "staff-1", events[0].ActorID)
		assert.Equal(t, "req-9", events[0].RequestID)
	})

	t.Run("requires action and subject", func(t *testing.T) {
		pub := New(memory.NewInMemoryStore())
		require.Error(t, pub.Emit(context.Background(), audit.Event{Subject: "x"}))
		require.Error(t, pub.Emit(context.Background(), audit.Event{Action: "y"}))
	})

	t.Run("fails closed when the store fails", func(t *testing.T) {
		pub := New(failingStore{})
		err := pub.Emit(context.Background(), audit.Event{Subject: "x", Action: "y"})
		require.Error(t, err)
	})
}
