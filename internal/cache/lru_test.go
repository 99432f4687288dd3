package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUProviderRoundTrip(t *testing.T) {
	provider, err := NewLRUProvider(2)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = provider.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrCacheMiss)

	value := []byte("payload")
	require.NoError(t, provider.Set(ctx, "a", value))
	value[0] = 'X'

	got, err := provider.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))

	hits, misses := provider.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
}

func TestLRUProviderEvictsOldest(t *testing.T) {
	provider, err := NewLRUProvider(2)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, provider.Set(ctx, "a", []byte("1")))
	require.NoError(t, provider.Set(ctx, "b", []byte("2")))
	require.NoError(t, provider.Set(ctx, "c", []byte("3")))

	assert.Equal(t, 2, provider.Len())
	_, err = provider.Get(ctx, "a")
	assert.True(t, errors.Is(err, ErrCacheMiss))

	require.NoError(t, provider.Close())
	assert.Equal(t, 0, provider.Len())
}

func TestLRUProviderRejectsInvalidSize(t *testing.T) {
	_, err := NewLRUProvider(0)
	assert.Error(t, err)
}

func TestLRUProviderHonoursCancelledContext(t *testing.T) {
	provider, err := NewLRUProvider(1)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, provider.Set(ctx, "a", nil), context.Canceled)
	_, err = provider.Get(ctx, "a")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNoopProvider(t *testing.T) {
	var provider Provider = NoopProvider{}
	require.NoError(t, provider.Set(context.Background(), "a", []byte("1")))
	_, err := provider.Get(context.Background(), "a")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.NoError(t, provider.Close())
}
