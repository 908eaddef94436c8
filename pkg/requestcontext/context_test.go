package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultsWhenUnset(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, RequestID(ctx))
	assert.Empty(t, ClientIP(ctx))
	assert.WithinDuration(t, time.Now(), Now(ctx), time.Second)
}

func TestDetachedKeepsValuesButNotCancellation(t *testing.T) {
	at := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)
	parent, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	parent = WithRequestID(WithTime(parent, at), "req-9")
	cancel()

	ctx := Detached(parent)
	assert.NoError(t, ctx.Err())
	_, hasDeadline := ctx.Deadline()
	assert.False(t, hasDeadline)
	assert.Equal(t, "req-9", RequestID(ctx))
	assert.Equal(t, at, Now(ctx))
}
