package chromem_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/longformai/longmem-go/pkg/vectorindex"
	"github.com/longformai/longmem-go/pkg/vectorindex/chromem"
)

func newTestIndex(t *testing.T) *chromem.Index {
	t.Helper()

	index, err := chromem.NewIndex(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	return index
}

func entry(key string, vector []float64, memoryID int64, userID, memType string, active bool) *vectorindex.Entry {
	return &vectorindex.Entry{
		Key:    key,
		Vector: vector,
		Meta: vectorindex.Metadata{
			MemoryID:  memoryID,
			UserID:    userID,
			Type:      memType,
			MemoryKey: key,
			Active:    active,
		},
	}
}

func TestQueryReturnsNearest(t *testing.T) {
	index := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, index.Upsert(ctx, []*vectorindex.Entry{
		entry("v1", []float64{1, 0, 0}, 1, "user1", "fact", true),
		entry("v2", []float64{0, 1, 0}, 2, "user1", "fact", true),
	}))

	hits, err := index.Query(ctx, []float64{1, 0, 0}, 1, &vectorindex.Filter{UserID: "user1"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "v1", hits[0].Key)
	assert.Equal(t, int64(1), hits[0].Meta.MemoryID)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-4)
}

func TestQueryFiltersByUser(t *testing.T) {
	index := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, index.Upsert(ctx, []*vectorindex.Entry{
		entry("v1", []float64{1, 0, 0}, 1, "user1", "fact", true),
		entry("v2", []float64{1, 0, 0}, 2, "user2", "fact", true),
	}))

	hits, err := index.Query(ctx, []float64{1, 0, 0}, 10, &vectorindex.Filter{UserID: "user1"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "user1", hits[0].Meta.UserID)
}

func TestQueryActiveOnly(t *testing.T) {
	index := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, index.Upsert(ctx, []*vectorindex.Entry{
		entry("v1", []float64{1, 0, 0}, 1, "user1", "fact", true),
		entry("v2", []float64{1, 0, 0}, 2, "user1", "fact", false),
	}))

	hits, err := index.Query(ctx, []float64{1, 0, 0}, 10, &vectorindex.Filter{UserID: "user1", ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "v1", hits[0].Key)
}

func TestQueryTypeFilter(t *testing.T) {
	index := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, index.Upsert(ctx, []*vectorindex.Entry{
		entry("v1", []float64{1, 0, 0}, 1, "user1", "fact", true),
		entry("v2", []float64{1, 0, 0}, 2, "user1", "preference", true),
		entry("v3", []float64{1, 0, 0}, 3, "user1", "commitment", true),
	}))

	hits, err := index.Query(ctx, []float64{1, 0, 0}, 10, &vectorindex.Filter{
		UserID:     "user1",
		ActiveOnly: true,
		Types:      []string{"fact", "preference"},
	})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	for _, hit := range hits {
		assert.NotEqual(t, "commitment", hit.Meta.Type)
	}
}

func TestQueryShrinksOversizedK(t *testing.T) {
	index := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, index.Upsert(ctx, []*vectorindex.Entry{
		entry("v1", []float64{1, 0, 0}, 1, "user1", "fact", true),
	}))

	// Asking for more results than stored documents must not error.
	hits, err := index.Query(ctx, []float64{1, 0, 0}, 15, &vectorindex.Filter{UserID: "user1"})
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestQueryEmptyIndex(t *testing.T) {
	index := newTestIndex(t)

	hits, err := index.Query(context.Background(), []float64{1, 0, 0}, 5, &vectorindex.Filter{UserID: "user1"})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestUpsertReplacesByKey(t *testing.T) {
	index := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, index.Upsert(ctx, []*vectorindex.Entry{
		entry("v1", []float64{1, 0, 0}, 1, "user1", "fact", true),
	}))
	require.NoError(t, index.Upsert(ctx, []*vectorindex.Entry{
		entry("v1", []float64{0, 1, 0}, 1, "user1", "fact", true),
	}))

	hits, err := index.Query(ctx, []float64{0, 1, 0}, 10, &vectorindex.Filter{UserID: "user1"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-4)
}

func TestDeactivate(t *testing.T) {
	index := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, index.Upsert(ctx, []*vectorindex.Entry{
		entry("v1", []float64{1, 0, 0}, 1, "user1", "fact", true),
	}))

	require.NoError(t, index.Deactivate(ctx, []string{"v1", "missing-key"}))

	hits, err := index.Query(ctx, []float64{1, 0, 0}, 10, &vectorindex.Filter{UserID: "user1", ActiveOnly: true})
	require.NoError(t, err)
	assert.Empty(t, hits)

	// The entry still exists for inactive-inclusive queries.
	hits, err = index.Query(ctx, []float64{1, 0, 0}, 10, &vectorindex.Filter{UserID: "user1"})
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestDelete(t *testing.T) {
	index := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, index.Upsert(ctx, []*vectorindex.Entry{
		entry("v1", []float64{1, 0, 0}, 1, "user1", "fact", true),
		entry("v2", []float64{0, 1, 0}, 2, "user1", "fact", true),
	}))

	require.NoError(t, index.Delete(ctx, []string{"v1"}))
	require.NoError(t, index.Delete(ctx, nil))

	hits, err := index.Query(ctx, []float64{1, 0, 0}, 10, &vectorindex.Filter{UserID: "user1"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "v2", hits[0].Key)
}
