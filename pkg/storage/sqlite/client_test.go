package sqlite_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/longformai/longmem-go/pkg/storage"
	"github.com/longformai/longmem-go/pkg/storage/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Client {
	t.Helper()

	client, err := sqlite.NewClient(&sqlite.Config{
		DBPath: filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client
}

func newMemory(id int64, userID string, memType storage.MemoryType, key, value string) *storage.Memory {
	now := time.Now().UTC()
	return &storage.Memory{
		ID:                   id,
		UserID:               userID,
		Type:                 memType,
		Key:                  key,
		Value:                value,
		Confidence:           0.9,
		Importance:           0.5,
		SourceTurn:           1,
		SourceConversationID: "conv1",
		CreatedAt:            now,
		UpdatedAt:            now,
		IsActive:             true,
		VectorKey:            "vec-" + value,
	}
}

func TestSupersedeInsertsFirstRecord(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	deactivated, err := store.Supersede(ctx, newMemory(1, "user1", storage.TypePreference, "language", "Spanish"))
	require.NoError(t, err)
	assert.Empty(t, deactivated)

	active, err := store.FindActiveByKey(ctx, "user1", storage.TypePreference, "language")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Spanish", active[0].Value)
}

func TestSupersedeDeactivatesPriorActive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Supersede(ctx, newMemory(1, "user1", storage.TypePreference, "language", "Spanish"))
	require.NoError(t, err)

	deactivated, err := store.Supersede(ctx, newMemory(2, "user1", storage.TypePreference, "language", "English"))
	require.NoError(t, err)
	require.Len(t, deactivated, 1)
	assert.Equal(t, "Spanish", deactivated[0].Value)
	assert.False(t, deactivated[0].IsActive)

	// At most one active record per logical key.
	active, err := store.FindActiveByKey(ctx, "user1", storage.TypePreference, "language")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "English", active[0].Value)

	// Both versions stay in the inactive-inclusive history.
	history, err := store.FindByUser(ctx, "user1", &storage.ListOptions{IncludeInactive: true})
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestSupersedeRepeatedWritesKeepOneActive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	values := []string{"Spanish", "English", "French", "German", "Kannada"}
	for i, v := range values {
		_, err := store.Supersede(ctx, newMemory(int64(i+1), "user1", storage.TypePreference, "language", v))
		require.NoError(t, err)
	}

	active, err := store.FindActiveByKey(ctx, "user1", storage.TypePreference, "language")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Kannada", active[0].Value)
}

func TestSupersedeConcurrentWritersKeepOneActive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			mem := newMemory(int64(100+i), "user1", storage.TypeFact, "location", fmt.Sprintf("city-%d", i))
			_, err := store.Supersede(ctx, mem)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	// Whatever the interleaving, exactly one record survives active.
	active, err := store.FindActiveByKey(ctx, "user1", storage.TypeFact, "location")
	require.NoError(t, err)
	assert.Len(t, active, 1)

	// Every write landed; the losers are in the inactive history.
	history, err := store.FindByUser(ctx, "user1", &storage.ListOptions{IncludeInactive: true})
	require.NoError(t, err)
	assert.Len(t, history, writers)
}

func TestSupersedeScopedByTypeAndUser(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Supersede(ctx, newMemory(1, "user1", storage.TypePreference, "language", "Spanish"))
	require.NoError(t, err)

	// Same key, different type: no conflict.
	_, err = store.Supersede(ctx, newMemory(2, "user1", storage.TypeFact, "language", "native speaker"))
	require.NoError(t, err)

	// Same key and type, different user: no conflict.
	_, err = store.Supersede(ctx, newMemory(3, "user2", storage.TypePreference, "language", "English"))
	require.NoError(t, err)

	active, err := store.FindActiveByKey(ctx, "user1", storage.TypePreference, "language")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Spanish", active[0].Value)
}

func TestGetNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), 404)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGetManySkipsMissing(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Supersede(ctx, newMemory(1, "user1", storage.TypeFact, "location", "Paris"))
	require.NoError(t, err)

	memories, err := store.GetMany(ctx, []int64{1, 404})
	require.NoError(t, err)
	assert.Len(t, memories, 1)

	memories, err = store.GetMany(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, memories)
}

func TestFindRecent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	old := newMemory(1, "user1", storage.TypeFact, "hometown", "Lyon")
	old.CreatedAt = time.Now().UTC().Add(-48 * time.Hour)
	_, err := store.Supersede(ctx, old)
	require.NoError(t, err)

	_, err = store.Supersede(ctx, newMemory(2, "user1", storage.TypeFact, "location", "Paris"))
	require.NoError(t, err)

	recent, err := store.FindRecent(ctx, "user1", time.Now().UTC().Add(-4*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "Paris", recent[0].Value)
}

func TestFindRecentExcludesExpired(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	expired := newMemory(1, "user1", storage.TypeCommitment, "dentist", "tuesday")
	past := time.Now().UTC().Add(-time.Minute)
	expired.ExpiresAt = &past
	_, err := store.Supersede(ctx, expired)
	require.NoError(t, err)

	recent, err := store.FindRecent(ctx, "user1", time.Now().UTC().Add(-4*time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestFindCritical(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	critical := newMemory(1, "user1", storage.TypeConstraint, "allergy", "peanuts")
	critical.Importance = 0.9
	critical.LastAccessedTurn = 2
	_, err := store.Supersede(ctx, critical)
	require.NoError(t, err)

	ordinary := newMemory(2, "user1", storage.TypeFact, "location", "Paris")
	ordinary.Importance = 0.5
	_, err = store.Supersede(ctx, ordinary)
	require.NoError(t, err)

	recentlyUsed := newMemory(3, "user1", storage.TypeInstruction, "tone", "formal")
	recentlyUsed.Importance = 0.9
	recentlyUsed.LastAccessedTurn = 39
	_, err = store.Supersede(ctx, recentlyUsed)
	require.NoError(t, err)

	results, err := store.FindCritical(ctx, "user1", 0.8, 30, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "peanuts", results[0].Value)
}

func TestRecordAccess(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Supersede(ctx, newMemory(1, "user1", storage.TypeFact, "location", "Paris"))
	require.NoError(t, err)

	require.NoError(t, store.RecordAccess(ctx, 1, 40))
	require.NoError(t, store.RecordAccess(ctx, 1, 41))

	mem, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, mem.AccessCount)
	assert.Equal(t, 41, mem.LastAccessedTurn)

	assert.ErrorIs(t, store.RecordAccess(ctx, 404, 1), storage.ErrNotFound)
}

func TestDeactivateOwnership(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Supersede(ctx, newMemory(1, "user1", storage.TypeFact, "location", "Paris"))
	require.NoError(t, err)

	_, err = store.Deactivate(ctx, 1, "intruder")
	assert.ErrorIs(t, err, storage.ErrOwnership)

	// The failed attempt modified nothing.
	mem, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.True(t, mem.IsActive)

	deleted, err := store.Deactivate(ctx, 1, "user1")
	require.NoError(t, err)
	assert.False(t, deleted.IsActive)

	active, err := store.FindActiveByKey(ctx, "user1", storage.TypeFact, "location")
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestPurgeConversation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	inConv := newMemory(1, "user1", storage.TypeFact, "location", "Paris")
	_, err := store.Supersede(ctx, inConv)
	require.NoError(t, err)

	other := newMemory(2, "user1", storage.TypeFact, "name", "Alex")
	other.SourceConversationID = "conv2"
	_, err = store.Supersede(ctx, other)
	require.NoError(t, err)

	purged, err := store.PurgeConversation(ctx, "user1", "conv1")
	require.NoError(t, err)
	require.Len(t, purged, 1)
	assert.Equal(t, "Paris", purged[0].Value)

	// Purge is a hard delete: the record is gone even from history.
	_, err = store.Get(ctx, 1)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.Get(ctx, 2)
	assert.NoError(t, err)
}

func TestFindByUserFiltersAndSort(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := newMemory(1, "user1", storage.TypeFact, "location", "Paris")
	first.CreatedAt = time.Now().UTC().Add(-time.Hour)
	first.Importance = 0.9
	_, err := store.Supersede(ctx, first)
	require.NoError(t, err)

	second := newMemory(2, "user1", storage.TypePreference, "language", "French")
	second.Importance = 0.3
	_, err = store.Supersede(ctx, second)
	require.NoError(t, err)

	// Default sort is newest first.
	all, err := store.FindByUser(ctx, "user1", nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, int64(2), all[0].ID)

	byImportance, err := store.FindByUser(ctx, "user1", &storage.ListOptions{SortBy: storage.SortByImportance})
	require.NoError(t, err)
	assert.Equal(t, int64(1), byImportance[0].ID)

	onlyFacts, err := store.FindByUser(ctx, "user1", &storage.ListOptions{Type: storage.TypeFact})
	require.NoError(t, err)
	require.Len(t, onlyFacts, 1)
	assert.Equal(t, "Paris", onlyFacts[0].Value)
}

func TestStats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	important := newMemory(1, "user1", storage.TypeConstraint, "allergy", "peanuts")
	important.Importance = 0.9
	_, err := store.Supersede(ctx, important)
	require.NoError(t, err)

	_, err = store.Supersede(ctx, newMemory(2, "user1", storage.TypeFact, "location", "Paris"))
	require.NoError(t, err)

	_, err = store.Supersede(ctx, newMemory(3, "user1", storage.TypeFact, "name", "Alex"))
	require.NoError(t, err)

	stats, err := store.Stats(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.ByType[storage.TypeFact])
	assert.Equal(t, 1, stats.ByType[storage.TypeConstraint])
	assert.Equal(t, 1, stats.HighImportance)
}
