// Package vectorindex defines the vector index interface used for semantic
// memory retrieval.
//
// The index stores one entry per memory record, keyed by the record's vector
// key. It is a derived view over the record store: entries carry just enough
// metadata to filter candidates, and the record store stays the source of
// truth for memory content and active state.
package vectorindex

import "context"

// Metadata is the filterable metadata attached to an index entry.
type Metadata struct {
	// MemoryID is the record store primary key of the indexed memory.
	MemoryID int64

	// UserID identifies the owning user.
	UserID string

	// Type is the memory type as a string.
	Type string

	// MemoryKey is the memory's logical key.
	MemoryKey string

	// Active mirrors the record's is_active flag. Best effort: retrieval
	// re-checks active state against the record store when hydrating.
	Active bool
}

// Entry is a vector index entry.
type Entry struct {
	// Key uniquely identifies the entry. Upserting an existing key replaces
	// the stored entry.
	Key string

	// Vector is the embedding of the memory's searchable text.
	Vector []float64

	// Meta is the entry's filterable metadata.
	Meta Metadata
}

// Filter restricts which entries a query considers.
type Filter struct {
	// UserID restricts results to one user. Required.
	UserID string

	// ActiveOnly drops entries marked inactive.
	ActiveOnly bool

	// Types restricts results to the given memory types (empty = all types).
	Types []string
}

// Hit is one nearest-neighbor query result.
type Hit struct {
	// Key is the entry's key.
	Key string

	// Similarity is the cosine similarity to the query vector, in [-1, 1].
	Similarity float64

	// Meta is the entry's metadata as stored.
	Meta Metadata
}

// Index is the vector index.
type Index interface {
	// Upsert inserts or replaces entries by key.
	Upsert(ctx context.Context, entries []*Entry) error

	// Query returns up to k entries nearest to vector, most similar first,
	// honoring the filter.
	Query(ctx context.Context, vector []float64, k int, filter *Filter) ([]*Hit, error)

	// Deactivate marks the entries inactive without removing their vectors.
	// Missing keys are skipped.
	Deactivate(ctx context.Context, keys []string) error

	// Delete removes the entries permanently. Missing keys are skipped.
	Delete(ctx context.Context, keys []string) error

	// Close releases the index resources.
	Close() error
}
