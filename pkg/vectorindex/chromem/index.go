// Package chromem provides the chromem-go implementation of the vector index.
//
// chromem-go is a pure Go embedded vector database, so the index runs
// in-process with no external service. It can run fully in memory or persist
// to disk.
package chromem

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	chromemgo "github.com/philippgille/chromem-go"

	"github.com/longformai/longmem-go/pkg/vectorindex"
)

// Index implements vectorindex.Index using chromem-go.
type Index struct {
	db  *chromemgo.DB
	col *chromemgo.Collection
}

// Config contains configuration for creating a chromem index.
type Config struct {
	// Path is the persistence directory. Empty means in-memory only.
	Path string

	// Compress enables gzip compression for persisted entries.
	Compress bool

	// Collection is the collection name. Defaults to "memories".
	Collection string
}

// NewIndex creates a new chromem-backed vector index.
func NewIndex(cfg *Config) (*Index, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	var db *chromemgo.DB
	var err error
	if cfg.Path == "" {
		db = chromemgo.NewDB()
	} else {
		db, err = chromemgo.NewPersistentDB(cfg.Path, cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("NewChromemIndex: %w", err)
		}
	}

	name := cfg.Collection
	if name == "" {
		name = "memories"
	}

	// Embeddings are always supplied by the caller, so no embedding func.
	col, err := db.GetOrCreateCollection(name, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("NewChromemIndex: %w", err)
	}

	return &Index{db: db, col: col}, nil
}

// Upsert inserts or replaces entries by key. chromem treats AddDocument with
// an existing ID as a replace.
func (i *Index) Upsert(ctx context.Context, entries []*vectorindex.Entry) error {
	for _, entry := range entries {
		doc := chromemgo.Document{
			ID:        entry.Key,
			Embedding: toFloat32(entry.Vector),
			Metadata:  encodeMeta(entry.Meta),
			Content:   entry.Key,
		}
		if err := i.col.AddDocument(ctx, doc); err != nil {
			return fmt.Errorf("Upsert: %w", err)
		}
	}
	return nil
}

// Query returns up to k entries nearest to vector, most similar first.
//
// chromem's where clause matches metadata by equality only, so a multi-type
// filter runs one query per type and merges the hits.
func (i *Index) Query(ctx context.Context, vector []float64, k int, filter *vectorindex.Filter) ([]*vectorindex.Hit, error) {
	if k <= 0 || filter == nil || filter.UserID == "" {
		return nil, nil
	}

	total := i.col.Count()
	if total == 0 {
		return nil, nil
	}
	if k > total {
		k = total
	}

	base := map[string]string{"user_id": filter.UserID}
	if filter.ActiveOnly {
		base["is_active"] = "true"
	}

	query := toFloat32(vector)

	var hits []*vectorindex.Hit
	if len(filter.Types) == 0 {
		results, err := i.queryOnce(ctx, query, k, base)
		if err != nil {
			return nil, err
		}
		hits = toHits(results)
	} else {
		for _, t := range filter.Types {
			where := map[string]string{"memory_type": t}
			for key, val := range base {
				where[key] = val
			}
			results, err := i.queryOnce(ctx, query, k, where)
			if err != nil {
				return nil, err
			}
			hits = append(hits, toHits(results)...)
		}
		sort.SliceStable(hits, func(a, b int) bool {
			return hits[a].Similarity > hits[b].Similarity
		})
		if len(hits) > k {
			hits = hits[:k]
		}
	}

	return hits, nil
}

// queryOnce runs a single filtered query, shrinking nResults when the
// collection holds fewer matching documents than requested.
func (i *Index) queryOnce(ctx context.Context, query []float32, k int, where map[string]string) ([]chromemgo.Result, error) {
	for n := k; n >= 1; n-- {
		results, err := i.col.QueryEmbedding(ctx, query, n, where, nil)
		if err == nil {
			return results, nil
		}
		if insufficientDocs(err) {
			continue
		}
		return nil, fmt.Errorf("Query: %w", err)
	}
	return nil, nil
}

// Deactivate marks the entries inactive by rewriting their metadata. The
// vectors stay in place so the entries keep their position in the index.
func (i *Index) Deactivate(ctx context.Context, keys []string) error {
	for _, key := range keys {
		doc, err := i.col.GetByID(ctx, key)
		if err != nil {
			// Entry already gone, nothing to deactivate.
			continue
		}
		doc.Metadata["is_active"] = "false"
		if err := i.col.AddDocument(ctx, doc); err != nil {
			return fmt.Errorf("Deactivate: %w", err)
		}
	}
	return nil
}

// Delete removes the entries permanently.
func (i *Index) Delete(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := i.col.Delete(ctx, nil, nil, keys...); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	return nil
}

// Close releases the index resources. chromem holds everything in memory or
// flushes on write, so there is nothing to tear down.
func (i *Index) Close() error {
	return nil
}

// encodeMeta flattens entry metadata into chromem's string map.
func encodeMeta(meta vectorindex.Metadata) map[string]string {
	return map[string]string{
		"memory_id":   strconv.FormatInt(meta.MemoryID, 10),
		"user_id":     meta.UserID,
		"memory_type": meta.Type,
		"mem_key":     meta.MemoryKey,
		"is_active":   strconv.FormatBool(meta.Active),
	}
}

// decodeMeta parses chromem metadata back into entry metadata.
func decodeMeta(m map[string]string) vectorindex.Metadata {
	id, _ := strconv.ParseInt(m["memory_id"], 10, 64)
	return vectorindex.Metadata{
		MemoryID:  id,
		UserID:    m["user_id"],
		Type:      m["memory_type"],
		MemoryKey: m["mem_key"],
		Active:    m["is_active"] == "true",
	}
}

func toHits(results []chromemgo.Result) []*vectorindex.Hit {
	hits := make([]*vectorindex.Hit, 0, len(results))
	for _, r := range results {
		hits = append(hits, &vectorindex.Hit{
			Key:        r.ID,
			Similarity: float64(r.Similarity),
			Meta:       decodeMeta(r.Metadata),
		})
	}
	return hits
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

// insufficientDocs reports whether the query failed because nResults exceeded
// the number of stored documents.
func insufficientDocs(err error) bool {
	return err != nil && strings.Contains(err.Error(), "nResults must be")
}
