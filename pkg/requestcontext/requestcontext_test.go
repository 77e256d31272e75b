package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClientIP(t *testing.T) {
	t.Run("unknown when unset", func(t *testing.T) {
		assert.Equal(t, UnknownClient, ClientIP(context.Background()))
	})

	t.Run("unknown when empty", func(t *testing.T) {
		ctx := WithClientMetadata(context.Background(), "", "curl")
		assert.Equal(t, UnknownClient, ClientIP(ctx))
		assert.Equal(t, "curl", UserAgent(ctx))
	})

	t.Run("returns stored address", func(t *testing.T) {
		ctx := WithClientMetadata(context.Background(), "203.0.113.9", "")
		assert.Equal(t, "203.0.113.9", ClientIP(ctx))
	})
}

func TestNow(t *testing.T) {
	pinned := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := WithTime(context.Background(), pinned)
	assert.Equal(t, pinned, Now(ctx))

	before := time.Now()
	assert.False(t, Now(context.Background()).Before(before))
}

func TestRequestID(t *testing.T) {
	assert.Empty(t, RequestID(context.Background()))
	assert.Equal(t, "abc", RequestID(WithRequestID(context.Background(), "abc")))
}
