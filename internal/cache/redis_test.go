//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/docqa/internal/testutil"
)

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	rc := testutil.NewRedisContainer(ctx, t)
	defer rc.Terminate(ctx)

	client, err := NewRedisClient(ctx, rc.URL())
	require.NoError(t, err)
	defer client.Close()

	store := NewRedisStore(client)

	_, ok, err := store.Get(ctx, "docqa:missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "docqa:key", []byte("value"), time.Minute))
	got, ok, err := store.Get(ctx, "docqa:key")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("value"), got)

	ttl, err := client.TTL(ctx, "docqa:key").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestEmbeddingCache_WithRedis(t *testing.T) {
	ctx := context.Background()
	rc := testutil.NewRedisContainer(ctx, t)
	defer rc.Terminate(ctx)

	client, err := NewRedisClient(ctx, rc.URL())
	require.NoError(t, err)
	defer client.Close()

	next := new(MockEmbedder)
	next.On("EmbedOne", mock.Anything, "what is the refund policy?").Return([]float32{0.1, 0.2, 0.3}, nil)
	c := NewEmbeddingCache(next, NewRedisStore(client), "text-embedding-3-small", 3, time.Hour, nil)

	for i := 0; i < 3; i++ {
		v, err := c.EmbedOne(ctx, "what is the refund policy?")
		require.NoError(t, err)
		assert.Equal(t, []float32{0.1, 0.2, 0.3}, v)
	}
	next.AssertNumberOfCalls(t, "EmbedOne", 1)
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewRedisClient(ctx, "redis://127.0.0.1:1/0")
	assert.Error(t, err)

	_, err = NewRedisClient(ctx, "not a url")
	assert.Error(t, err)
}
