package vstore

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewFromClient(client, "test:virtual:"), mr
}

func TestStoreGetDataMissingCollectionReturnsEmptyMap(t *testing.T) {
	store, mr := newTestStore(t)
	defer mr.Close()

	data, err := store.GetData(context.Background(), "comments")
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestStoreSetDataThenGetDataRoundTrips(t *testing.T) {
	store, mr := newTestStore(t)
	defer mr.Close()

	ctx := context.Background()
	rows := map[string]interface{}{
		"row-1": map[string]interface{}{"body": "hello", "likes": float64(3)},
		"row-2": map[string]interface{}{"body": "world", "likes": float64(1)},
	}

	require.NoError(t, store.SetData(ctx, "comments", rows))

	got, err := store.GetData(ctx, "comments")
	require.NoError(t, err)
	assert.Equal(t, rows, got)
}

func TestStoreSetDataReplacesPreviousValue(t *testing.T) {
	store, mr := newTestStore(t)
	defer mr.Close()

	ctx := context.Background()
	require.NoError(t, store.SetData(ctx, "comments", map[string]interface{}{"row-1": "a"}))
	require.NoError(t, store.SetData(ctx, "comments", map[string]interface{}{"row-2": "b"}))

	got, err := store.GetData(ctx, "comments")
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"row-2": "b"}, got)
}

func TestStoreKeysAreNamespacedByPrefix(t *testing.T) {
	store, mr := newTestStore(t)
	defer mr.Close()

	require.NoError(t, store.SetData(context.Background(), "comments", map[string]interface{}{"a": 1.0}))
	assert.True(t, mr.Exists("test:virtual:comments"))
}
