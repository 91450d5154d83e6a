package retrieval

import (
	"sort"

	"github.com/longformai/longmem-go/pkg/storage"
)

// Strategy names, in merge priority order.
const (
	StrategyRecencyWindow = "recency_window"
	StrategyCritical      = "critical"
	StrategyIntent        = "intent"
	StrategySemantic      = "semantic"
)

// Candidate is one scored retrieval result. Candidates are rebuilt fresh
// every turn and never persisted.
type Candidate struct {
	// Memory is the underlying record.
	Memory *storage.Memory

	// Similarity is the raw cosine similarity for vector-backed strategies,
	// zero for store-backed ones.
	Similarity float64

	// RecencyBoost is the age-decay score addend.
	RecencyBoost float64

	// ImportanceBoost is the importance score addend.
	ImportanceBoost float64

	// FinalScore is the composite ranking score.
	FinalScore float64

	// Strategy names the strategy that produced this candidate.
	Strategy string
}

type logicalKey struct {
	memType storage.MemoryType
	key     string
}

// Merge deduplicates candidates from all strategies and ranks them.
//
// Strategy lists must arrive in priority order (recency windows, then
// critical, then intent, then semantic). Within a logical key the first
// occurrence wins unless a later occurrence is strictly newer by
// created_at: a freshly stated fact overrides a stale semantic match no
// matter how similar the stale one is.
//
// The merged set is ordered by final score descending, with created_at and
// source_turn descending as tie-breaks, then truncated to limit.
func Merge(strategies [][]*Candidate, limit int) []*Candidate {
	byKey := make(map[logicalKey]*Candidate)
	var order []logicalKey

	for _, candidates := range strategies {
		for _, cand := range candidates {
			lk := logicalKey{memType: cand.Memory.Type, key: cand.Memory.Key}
			existing, ok := byKey[lk]
			if !ok {
				byKey[lk] = cand
				order = append(order, lk)
				continue
			}
			if cand.Memory.CreatedAt.After(existing.Memory.CreatedAt) {
				byKey[lk] = cand
			}
		}
	}

	merged := make([]*Candidate, 0, len(order))
	for _, lk := range order {
		merged = append(merged, byKey[lk])
	}

	sort.SliceStable(merged, func(a, b int) bool {
		if merged[a].FinalScore != merged[b].FinalScore {
			return merged[a].FinalScore > merged[b].FinalScore
		}
		if !merged[a].Memory.CreatedAt.Equal(merged[b].Memory.CreatedAt) {
			return merged[a].Memory.CreatedAt.After(merged[b].Memory.CreatedAt)
		}
		return merged[a].Memory.SourceTurn > merged[b].Memory.SourceTurn
	})

	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}

	return merged
}
