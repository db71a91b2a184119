package cache

import (
	"context"
	"testing"
	"time"

	"ai-orchestrator-be/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryExactStoreRoundTrip(t *testing.T) {
	store := NewMemoryExactStore(time.Minute)
	ctx := context.Background()

	answer := &entity.CachedAnswer{
		Answer:        "Revenue last month was 1.2M.",
		Intent:        entity.IntentAnalytics,
		StepsExecuted: 1,
		TokenUsage:    420,
	}

	require.NoError(t, store.Set(ctx, "fp-1", answer, time.Minute))

	got, found, err := store.Get(ctx, "fp-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, answer.Answer, got.Answer)
	assert.Equal(t, entity.IntentAnalytics, got.Intent)
}

func TestMemoryExactStoreMiss(t *testing.T) {
	store := NewMemoryExactStore(time.Minute)

	_, found, err := store.Get(context.Background(), "unknown")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryExactStoreTTLExpiry(t *testing.T) {
	store := NewMemoryExactStore(time.Minute)
	ctx := context.Background()

	answer := &entity.CachedAnswer{Answer: "stale soon"}
	require.NoError(t, store.Set(ctx, "fp-ttl", answer, 10*time.Millisecond))

	time.Sleep(30 * time.Millisecond)

	_, found, err := store.Get(ctx, "fp-ttl")
	require.NoError(t, err)
	assert.False(t, found)
}
