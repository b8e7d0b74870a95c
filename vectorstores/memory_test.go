package vectorstores

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragworks/rag/models"
)

func memRecords() []Record {
	return []Record{
		{ID: "a", Vector: []float32{1, 0}, Metadata: map[string]string{"file_url": "https://example.com/a.txt", "content": "alpha"}},
		{ID: "b", Vector: []float32{0.9, 0.1}, Metadata: map[string]string{"file_url": "https://example.com/a.txt", "content": "beta"}},
		{ID: "c", Vector: []float32{0, 1}, Metadata: map[string]string{"file_url": "https://example.com/c.txt", "content": "gamma"}},
	}
}

func TestMemoryUpsertIsIdempotent(t *testing.T) {
	store := NewMemory("idx", 2)

	n, err := store.Upsert(context.Background(), memRecords())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, store.Len())

	n, err = store.Upsert(context.Background(), memRecords())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, store.Len())
}

func TestMemoryQueryOrdering(t *testing.T) {
	store := NewMemory("idx", 2)
	_, err := store.Upsert(context.Background(), memRecords())
	require.NoError(t, err)

	matches, err := store.Query(context.Background(), []float32{1, 0}, 2, nil, nil)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "a", matches[0].ID)
	assert.Equal(t, "b", matches[1].ID)
	assert.Greater(t, matches[0].Score, matches[1].Score)
}

func TestMemoryQueryTieBreaksByID(t *testing.T) {
	store := NewMemory("idx", 2)
	_, err := store.Upsert(context.Background(), []Record{
		{ID: "z", Vector: []float32{1, 0}},
		{ID: "a", Vector: []float32{1, 0}},
		{ID: "m", Vector: []float32{1, 0}},
	})
	require.NoError(t, err)

	matches, err := store.Query(context.Background(), []float32{1, 0}, 3, nil, nil)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, "a", matches[0].ID)
	assert.Equal(t, "m", matches[1].ID)
	assert.Equal(t, "z", matches[2].ID)
}

func TestMemoryQueryFilterAndExcludeFields(t *testing.T) {
	store := NewMemory("idx", 2)
	_, err := store.Upsert(context.Background(), memRecords())
	require.NoError(t, err)

	matches, err := store.Query(context.Background(), []float32{1, 0}, 10,
		map[string]string{"file_url": "https://example.com/a.txt"}, []string{"content"})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	for _, m := range matches {
		assert.Equal(t, "https://example.com/a.txt", m.Metadata["file_url"])
		assert.NotContains(t, m.Metadata, "content")
	}
}

func TestMemoryDelete(t *testing.T) {
	store := NewMemory("idx", 2)
	_, err := store.Upsert(context.Background(), memRecords())
	require.NoError(t, err)

	deleted, err := store.Delete(context.Background(), map[string]string{"file_url": "https://example.com/a.txt"})
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)
	assert.Equal(t, 1, store.Len())

	// Deleting an unknown url removes nothing and still succeeds.
	deleted, err = store.Delete(context.Background(), map[string]string{"file_url": "https://example.com/missing.txt"})
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)
}

func TestMemoryDimensionMismatch(t *testing.T) {
	store := NewMemory("idx", 2)

	_, err := store.Upsert(context.Background(), []Record{{ID: "a", Vector: []float32{1, 0, 0}}})
	var storeErr *Error
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, KindDimensionMismatch, storeErr.Kind)
	assert.False(t, storeErr.Retryable())

	_, err = store.Query(context.Background(), []float32{1}, 5, nil, nil)
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, KindDimensionMismatch, storeErr.Kind)
}

func TestFactorySharesMemoryIndexAcrossRequests(t *testing.T) {
	db := models.VectorDatabase{Type: TypeMemory}
	ctx := context.Background()

	first, err := New(ctx, db, "factory-shared", 2)
	require.NoError(t, err)
	_, err = first.Upsert(ctx, memRecords())
	require.NoError(t, err)

	// A later request binding the same index, dimensions unknown, sees the
	// same data.
	second, err := New(ctx, db, "factory-shared", 0)
	require.NoError(t, err)
	deleted, err := second.Delete(ctx, map[string]string{"file_url": "https://example.com/c.txt"})
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	// Binding with a conflicting dimensionality is fatal.
	_, err = New(ctx, db, "factory-shared", 7)
	var storeErr *Error
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, KindDimensionMismatch, storeErr.Kind)
}

func TestFactoryRejectsBadSelection(t *testing.T) {
	ctx := context.Background()

	_, err := New(ctx, models.VectorDatabase{Type: "faiss"}, "idx", 2)
	var cfgErr *models.ConfigError
	require.ErrorAs(t, err, &cfgErr)

	_, err = New(ctx, models.VectorDatabase{Type: TypeMemory}, "", 2)
	require.ErrorAs(t, err, &cfgErr)

	_, err = New(ctx, models.VectorDatabase{}, "idx", 2)
	require.ErrorAs(t, err, &cfgErr)
}
