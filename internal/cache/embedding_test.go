package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

func (m *MockEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

type memoryStore struct {
	data   map[string][]byte
	getErr error
	setErr error
	ttl    time.Duration
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string][]byte{}}
}

func (s *memoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	if s.getErr != nil {
		return nil, false, s.getErr
	}
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *memoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if s.setErr != nil {
		return s.setErr
	}
	s.data[key] = value
	s.ttl = ttl
	return nil
}

func TestEmbeddingCache_HitAfterMiss(t *testing.T) {
	next := new(MockEmbedder)
	store := newMemoryStore()
	c := NewEmbeddingCache(next, store, "text-embedding-3-small", 3, time.Hour, nil)
	ctx := context.Background()

	next.On("EmbedOne", mock.Anything, "what is the leave policy?").Return([]float32{0.1, 0.2, 0.3}, nil).Once()

	first, err := c.EmbedOne(ctx, "what is the leave policy?")
	require.NoError(t, err)
	second, err := c.EmbedOne(ctx, "what is the leave policy?")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, time.Hour, store.ttl)
	next.AssertNumberOfCalls(t, "EmbedOne", 1)
}

func TestEmbeddingCache_IgnoresWrongDimension(t *testing.T) {
	next := new(MockEmbedder)
	store := newMemoryStore()
	c := NewEmbeddingCache(next, store, "m", 3, time.Hour, nil)
	store.data[c.Key("q")] = []byte("[1,2]")

	next.On("EmbedOne", mock.Anything, "q").Return([]float32{1, 2, 3}, nil)

	vec, err := c.EmbedOne(context.Background(), "q")

	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3}, vec)
	assert.JSONEq(t, "[1,2,3]", string(store.data[c.Key("q")]))
}

func TestEmbeddingCache_StoreFailuresAreNotFatal(t *testing.T) {
	next := new(MockEmbedder)
	store := newMemoryStore()
	store.getErr = errors.New("connection refused")
	store.setErr = errors.New("connection refused")
	c := NewEmbeddingCache(next, store, "m", 2, time.Hour, nil)

	next.On("EmbedOne", mock.Anything, "q").Return([]float32{1, 0}, nil)

	vec, err := c.EmbedOne(context.Background(), "q")

	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, vec)
}

func TestEmbeddingCache_PropagatesProviderErrors(t *testing.T) {
	next := new(MockEmbedder)
	c := NewEmbeddingCache(next, newMemoryStore(), "m", 2, time.Hour, nil)
	upstream := errors.New("401")
	next.On("EmbedOne", mock.Anything, "q").Return(nil, upstream)

	_, err := c.EmbedOne(context.Background(), "q")

	assert.ErrorIs(t, err, upstream)
}

func TestEmbeddingCache_BatchBypassesCache(t *testing.T) {
	next := new(MockEmbedder)
	store := newMemoryStore()
	c := NewEmbeddingCache(next, store, "m", 2, time.Hour, nil)
	next.On("EmbedBatch", mock.Anything, []string{"a", "b"}).Return([][]float32{{1, 0}, {0, 1}}, nil)

	out, err := c.EmbedBatch(context.Background(), []string{"a", "b"})

	require.NoError(t, err)
	assert.Len(t, out, 2)
	assert.Empty(t, store.data)
}

func TestEmbeddingCache_KeyScopedByModel(t *testing.T) {
	a := NewEmbeddingCache(nil, nil, "small", 1536, 0, nil)
	b := NewEmbeddingCache(nil, nil, "large", 3072, 0, nil)

	assert.NotEqual(t, a.Key("q"), b.Key("q"))
	assert.Equal(t, a.Key("q"), a.Key("q"))
	assert.Contains(t, a.Key("q"), "docqa:embedding:small:1536:")
}
