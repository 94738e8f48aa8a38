package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAccessors(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, ActorID(ctx))
	assert.Empty(t, RequestID(ctx))

	fixed := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	ctx = WithTime(WithRequestID(WithActorID(ctx, "staff-7"), "req-1"), fixed)

	assert.Equal(t, "staff-7", ActorID(ctx))
	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Equal(t, fixed, Now(ctx))
}
