package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/longformai/longmem-go/pkg/extraction"
	"github.com/longformai/longmem-go/pkg/storage"
	"github.com/longformai/longmem-go/pkg/vectorindex"
)

// commitmentTTL bounds how long time-sensitive memories stay retrievable.
const commitmentTTL = 30 * 24 * time.Hour

// keyedMutex serializes writers per logical memory key. The store's
// transaction already preserves the at-most-one-active invariant across
// processes; this keeps same-process writers from interleaving their store
// and index updates. Idle entries are evicted when their last holder
// unlocks, so the map does not grow with every key ever written.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu sync.Mutex

	// holders counts the current holder plus waiters; the entry is evicted
	// when it drops to zero.
	holders int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyLock)}
}

// lock acquires the key's mutex and returns the matching unlock function.
func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.holders++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.holders--
		if l.holders == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// writeMemory resolves one extraction candidate into the store and index.
//
// The sequence per logical key: supersede prior active records in one store
// transaction, embed and upsert the new vector entry, then deactivate the
// superseded records' vector entries. Index failures after the store commit
// are logged, not raised: retrieval hydrates through the store and filters
// inactive records, so a stale vector entry cannot surface a superseded
// fact.
func (c *Client) writeMemory(ctx context.Context, userID, conversationID string, turn int, cand *extraction.Candidate, boost float64) (*Memory, error) {
	lockKey := fmt.Sprintf("%s/%s/%s", userID, cand.Type, cand.Key)
	unlock := c.writes.lock(lockKey)
	defer unlock()

	now := time.Now().UTC()
	mem := &storage.Memory{
		ID:                   c.node.Generate().Int64(),
		UserID:               userID,
		Type:                 cand.Type,
		Key:                  cand.Key,
		Value:                cand.Value,
		Confidence:           cand.Confidence,
		Importance:           clampImportance(cand.Importance + boost),
		SourceTurn:           turn,
		SourceConversationID: conversationID,
		CreatedAt:            now,
		UpdatedAt:            now,
		IsActive:             true,
		VectorKey:            uuid.NewString(),
	}
	if cand.Type == storage.TypeCommitment || cand.Type == storage.TypeInstruction {
		expires := now.Add(commitmentTTL)
		mem.ExpiresAt = &expires
	}

	superseded, err := c.store.Supersede(ctx, mem)
	if err != nil {
		return nil, NewMemoryError("writeMemory", err)
	}

	c.indexMemory(ctx, mem)

	if len(superseded) > 0 {
		keys := make([]string, 0, len(superseded))
		for _, old := range superseded {
			if old.VectorKey != "" {
				keys = append(keys, old.VectorKey)
			}
		}
		if err := c.index.Deactivate(ctx, keys); err != nil {
			c.logger.Warn().Err(err).Str("key", cand.Key).Msg("vector deactivation failed for superseded memories")
		}
	}

	c.logger.Debug().
		Str("user_id", userID).
		Str("type", string(cand.Type)).
		Str("key", cand.Key).
		Int("superseded", len(superseded)).
		Msg("memory written")

	return mem, nil
}

// indexMemory embeds the memory's searchable text and upserts its vector
// entry. Failures degrade the memory to store-backed retrieval only.
func (c *Client) indexMemory(ctx context.Context, mem *Memory) {
	text := fmt.Sprintf("%s: %s - %s", mem.Type, mem.Key, mem.Value)
	vec, err := c.embedder.Embed(ctx, text)
	if err != nil {
		c.logger.Warn().Err(err).Int64("memory_id", mem.ID).Msg("embedding failed, memory not indexed")
		return
	}

	entry := &vectorindex.Entry{
		Key:    mem.VectorKey,
		Vector: vec,
		Meta: vectorindex.Metadata{
			MemoryID:  mem.ID,
			UserID:    mem.UserID,
			Type:      string(mem.Type),
			MemoryKey: mem.Key,
			Active:    true,
		},
	}
	if err := c.index.Upsert(ctx, []*vectorindex.Entry{entry}); err != nil {
		c.logger.Warn().Err(err).Int64("memory_id", mem.ID).Msg("vector upsert failed, memory not indexed")
	}
}

func clampImportance(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < 0 {
		return 0
	}
	return v
}
