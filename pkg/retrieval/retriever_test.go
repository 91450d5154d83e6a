package retrieval_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/longformai/longmem-go/pkg/retrieval"
	"github.com/longformai/longmem-go/pkg/storage"
	"github.com/longformai/longmem-go/pkg/vectorindex"
)

// fakeStore serves canned records and injectable failures.
type fakeStore struct {
	memories    map[int64]*storage.Memory
	recent      []*storage.Memory
	critical    []*storage.Memory
	recentErr   error
	criticalErr error
	getManyErr  error
}

func (f *fakeStore) Supersede(ctx context.Context, mem *storage.Memory) ([]*storage.Memory, error) {
	return nil, nil
}

func (f *fakeStore) Get(ctx context.Context, id int64) (*storage.Memory, error) {
	mem, ok := f.memories[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return mem, nil
}

func (f *fakeStore) GetMany(ctx context.Context, ids []int64) ([]*storage.Memory, error) {
	if f.getManyErr != nil {
		return nil, f.getManyErr
	}
	var out []*storage.Memory
	for _, id := range ids {
		if mem, ok := f.memories[id]; ok {
			out = append(out, mem)
		}
	}
	return out, nil
}

func (f *fakeStore) FindActiveByKey(ctx context.Context, userID string, t storage.MemoryType, key string) ([]*storage.Memory, error) {
	return nil, nil
}

func (f *fakeStore) FindByUser(ctx context.Context, userID string, opts *storage.ListOptions) ([]*storage.Memory, error) {
	return nil, nil
}

func (f *fakeStore) FindRecent(ctx context.Context, userID string, since time.Time, limit int) ([]*storage.Memory, error) {
	if f.recentErr != nil {
		return nil, f.recentErr
	}
	return f.recent, nil
}

func (f *fakeStore) FindCritical(ctx context.Context, userID string, minImportance float64, staleBefore int, limit int) ([]*storage.Memory, error) {
	if f.criticalErr != nil {
		return nil, f.criticalErr
	}
	return f.critical, nil
}

func (f *fakeStore) RecordAccess(ctx context.Context, id int64, currentTurn int) error {
	return nil
}

func (f *fakeStore) Deactivate(ctx context.Context, id int64, userID string) (*storage.Memory, error) {
	return nil, storage.ErrNotFound
}

func (f *fakeStore) PurgeConversation(ctx context.Context, userID, conversationID string) ([]*storage.Memory, error) {
	return nil, nil
}

func (f *fakeStore) Stats(ctx context.Context, userID string) (*storage.Stats, error) {
	return &storage.Stats{}, nil
}

func (f *fakeStore) Close() error { return nil }

// fakeIndex serves canned hits or fails.
type fakeIndex struct {
	hits []*vectorindex.Hit
	err  error
}

func (f *fakeIndex) Upsert(ctx context.Context, entries []*vectorindex.Entry) error { return nil }

func (f *fakeIndex) Query(ctx context.Context, vector []float64, k int, filter *vectorindex.Filter) ([]*vectorindex.Hit, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.hits) > k {
		return f.hits[:k], nil
	}
	return f.hits, nil
}

func (f *fakeIndex) Deactivate(ctx context.Context, keys []string) error { return nil }
func (f *fakeIndex) Delete(ctx context.Context, keys []string) error     { return nil }
func (f *fakeIndex) Close() error                                        { return nil }

// fakeEmbedder returns one fixed vector for everything.
type fakeEmbedder struct{}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	return []float64{1, 0, 0}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = []float64{1, 0, 0}
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int { return 3 }
func (f *fakeEmbedder) Close() error    { return nil }

func activeMemory(id int64, memType storage.MemoryType, key string, age time.Duration) *storage.Memory {
	now := time.Now().UTC()
	return &storage.Memory{
		ID:         id,
		UserID:     "user1",
		Type:       memType,
		Key:        key,
		Value:      key,
		Importance: 0.5,
		SourceTurn: 1,
		CreatedAt:  now.Add(-age),
		UpdatedAt:  now.Add(-age),
		IsActive:   true,
	}
}

func TestRetrieveSemanticHits(t *testing.T) {
	paris := activeMemory(1, storage.TypeFact, "location", time.Hour)
	store := &fakeStore{memories: map[int64]*storage.Memory{1: paris}}
	index := &fakeIndex{hits: []*vectorindex.Hit{
		{Key: "v1", Similarity: 0.92, Meta: vectorindex.Metadata{MemoryID: 1, UserID: "user1"}},
	}}

	r := retrieval.NewRetriever(store, index, &fakeEmbedder{})
	results, err := r.Retrieve(context.Background(), "user1", "tell me about my city", 40)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(1), results[0].Memory.ID)
	assert.Equal(t, retrieval.StrategySemantic, results[0].Strategy)
	assert.Equal(t, 0.92, results[0].Similarity)
	assert.Greater(t, results[0].FinalScore, 0.92)
}

func TestRetrieveConfidenceGate(t *testing.T) {
	weak := activeMemory(1, storage.TypeFact, "location", time.Hour)
	store := &fakeStore{memories: map[int64]*storage.Memory{1: weak}}
	index := &fakeIndex{hits: []*vectorindex.Hit{
		{Key: "v1", Similarity: 0.42, Meta: vectorindex.Metadata{MemoryID: 1, UserID: "user1"}},
	}}

	r := retrieval.NewRetriever(store, index, &fakeEmbedder{})
	results, err := r.Retrieve(context.Background(), "user1", "something unrelated", 40)

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRetrieveDropsInactiveHits(t *testing.T) {
	superseded := activeMemory(1, storage.TypeFact, "location", time.Hour)
	superseded.IsActive = false
	store := &fakeStore{memories: map[int64]*storage.Memory{1: superseded}}
	index := &fakeIndex{hits: []*vectorindex.Hit{
		{Key: "v1", Similarity: 0.95, Meta: vectorindex.Metadata{MemoryID: 1, UserID: "user1"}},
	}}

	// The index has not caught up with the supersession; hydration through
	// the store still keeps the stale fact out.
	r := retrieval.NewRetriever(store, index, &fakeEmbedder{})
	results, err := r.Retrieve(context.Background(), "user1", "tell me about my city", 40)

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRetrieveDropsExpiredHits(t *testing.T) {
	expired := activeMemory(1, storage.TypeCommitment, "dentist", time.Hour)
	past := time.Now().UTC().Add(-time.Minute)
	expired.ExpiresAt = &past
	store := &fakeStore{memories: map[int64]*storage.Memory{1: expired}}
	index := &fakeIndex{hits: []*vectorindex.Hit{
		{Key: "v1", Similarity: 0.95, Meta: vectorindex.Metadata{MemoryID: 1, UserID: "user1"}},
	}}

	r := retrieval.NewRetriever(store, index, &fakeEmbedder{})
	results, err := r.Retrieve(context.Background(), "user1", "anything relevant", 40)

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRetrieveDegradesWhenIndexFails(t *testing.T) {
	recent := activeMemory(2, storage.TypePreference, "language", 10*time.Minute)
	store := &fakeStore{
		memories: map[int64]*storage.Memory{2: recent},
		recent:   []*storage.Memory{recent},
	}
	index := &fakeIndex{err: errors.New("index down")}

	r := retrieval.NewRetriever(store, index, &fakeEmbedder{})
	results, err := r.Retrieve(context.Background(), "user1", "hello", 40)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(2), results[0].Memory.ID)
	assert.Equal(t, retrieval.StrategyRecencyWindow, results[0].Strategy)
}

func TestRetrieveEmptyWhenNothingMatches(t *testing.T) {
	store := &fakeStore{memories: map[int64]*storage.Memory{}}
	index := &fakeIndex{err: errors.New("index down")}

	r := retrieval.NewRetriever(store, index, &fakeEmbedder{})
	results, err := r.Retrieve(context.Background(), "user1", "hello", 40)

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRetrieveStoreFailureSurfaces(t *testing.T) {
	store := &fakeStore{recentErr: errors.New("store down")}
	index := &fakeIndex{}

	r := retrieval.NewRetriever(store, index, &fakeEmbedder{})
	_, err := r.Retrieve(context.Background(), "user1", "hello", 40)

	assert.Error(t, err)
}

func TestRetrieveCriticalSweep(t *testing.T) {
	critical := activeMemory(3, storage.TypeConstraint, "allergy", 48*time.Hour)
	critical.Importance = 0.9
	critical.LastAccessedTurn = 2
	store := &fakeStore{
		memories: map[int64]*storage.Memory{3: critical},
		critical: []*storage.Memory{critical},
	}

	r := retrieval.NewRetriever(store, &fakeIndex{}, &fakeEmbedder{})
	results, err := r.Retrieve(context.Background(), "user1", "hello", 40)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, retrieval.StrategyCritical, results[0].Strategy)
}

func TestRetrieveWithoutVectorBackend(t *testing.T) {
	recent := activeMemory(4, storage.TypeFact, "name", time.Minute)
	store := &fakeStore{
		memories: map[int64]*storage.Memory{4: recent},
		recent:   []*storage.Memory{recent},
	}

	// Nil index and embedder degrade to store-backed strategies.
	r := retrieval.NewRetriever(store, nil, nil)
	results, err := r.Retrieve(context.Background(), "user1", "hello", 5)

	require.NoError(t, err)
	require.Len(t, results, 1)
}
