// Package retrieval implements multi-strategy memory retrieval and ranking.
//
// Four strategies run concurrently per turn: a semantic nearest-neighbor
// baseline, an intent-keyword filtered semantic search, recency windows over
// recently created memories, and a critical-importance sweep that keeps
// high-value facts from being starved by recency bias. Their candidates are
// merged into one deduplicated, score-ranked list.
package retrieval

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/longformai/longmem-go/pkg/embedder"
	"github.com/longformai/longmem-go/pkg/storage"
	"github.com/longformai/longmem-go/pkg/vectorindex"
)

// Retriever runs the retrieval strategies and merges their results.
type Retriever struct {
	store    storage.Store
	index    vectorindex.Index
	embedder embedder.Provider
	cfg      *Config
	lexicon  IntentLexicon
	logger   zerolog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithConfig overrides the default retrieval configuration.
func WithConfig(cfg *Config) Option {
	return func(r *Retriever) {
		if cfg != nil {
			r.cfg = cfg
		}
	}
}

// WithLexicon overrides the default intent lexicon.
func WithLexicon(lexicon IntentLexicon) Option {
	return func(r *Retriever) {
		if lexicon != nil {
			r.lexicon = lexicon
		}
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Retriever) {
		r.logger = logger
	}
}

// NewRetriever creates a retriever over the given store, vector index, and
// embedding provider. The index and embedder may be nil, in which case the
// vector-backed strategies are skipped and retrieval degrades to the
// store-backed strategies.
func NewRetriever(store storage.Store, index vectorindex.Index, emb embedder.Provider, opts ...Option) *Retriever {
	r := &Retriever{
		store:    store,
		index:    index,
		embedder: emb,
		cfg:      DefaultConfig(),
		lexicon:  DefaultIntentLexicon(),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve returns the deduplicated, score-ranked active memories relevant
// to the query, at most TopK+Margin of them.
//
// Vector index and embedding failures degrade to empty candidate lists for
// the affected strategies. Record store failures surface as errors: they are
// data-integrity critical.
func (r *Retriever) Retrieve(ctx context.Context, userID, queryText string, currentTurn int) ([]*Candidate, error) {
	queryVec := r.embedQuery(ctx, queryText)

	// One slot per strategy, in merge priority order.
	strategies := make([][]*Candidate, 4)
	errs := make([]error, 4)

	var wg sync.WaitGroup
	wg.Add(4)
	go func() {
		defer wg.Done()
		strategies[0], errs[0] = r.recencyWindows(ctx, userID, currentTurn)
	}()
	go func() {
		defer wg.Done()
		strategies[1], errs[1] = r.criticalSweep(ctx, userID, currentTurn)
	}()
	go func() {
		defer wg.Done()
		strategies[2], errs[2] = r.intentSearch(ctx, userID, queryText, queryVec, currentTurn)
	}()
	go func() {
		defer wg.Done()
		strategies[3], errs[3] = r.semanticSearch(ctx, userID, queryVec, currentTurn)
	}()
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	results := Merge(strategies, r.cfg.TopK+r.cfg.Margin)

	r.logger.Debug().
		Str("user_id", userID).
		Int("turn", currentTurn).
		Int("semantic", len(strategies[3])).
		Int("intent", len(strategies[2])).
		Int("recency", len(strategies[0])).
		Int("critical", len(strategies[1])).
		Int("merged", len(results)).
		Msg("retrieval complete")

	return results, nil
}

// embedQuery embeds the query text. Embedding failures are non-fatal and
// leave the vector-backed strategies with no query vector.
func (r *Retriever) embedQuery(ctx context.Context, queryText string) []float64 {
	if r.embedder == nil || queryText == "" {
		return nil
	}
	vec, err := r.embedder.Embed(ctx, queryText)
	if err != nil {
		r.logger.Warn().Err(err).Msg("query embedding failed, skipping vector strategies")
		return nil
	}
	return vec
}

// semanticSearch runs the nearest-neighbor baseline over the user's active
// memories, keeping 3xK candidates above the confidence threshold.
func (r *Retriever) semanticSearch(ctx context.Context, userID string, queryVec []float64, currentTurn int) ([]*Candidate, error) {
	if r.index == nil || queryVec == nil {
		return nil, nil
	}

	pool := r.cfg.SemanticFactor * r.cfg.TopK
	if pool > 100 {
		pool = 100
	}
	hits, err := r.index.Query(ctx, queryVec, pool, &vectorindex.Filter{
		UserID:     userID,
		ActiveOnly: true,
	})
	if err != nil {
		r.logger.Warn().Err(err).Msg("semantic search failed, continuing without it")
		return nil, nil
	}

	gated := hits[:0]
	for _, hit := range hits {
		if hit.Similarity >= r.cfg.ConfidenceThreshold {
			gated = append(gated, hit)
		}
	}

	return r.hydrate(ctx, gated, currentTurn, StrategySemantic)
}

// intentSearch classifies the query into memory types via the lexicon and
// runs a type-filtered semantic search per matched type. No confidence gate
// applies: the type filter already narrows the candidate pool.
func (r *Retriever) intentSearch(ctx context.Context, userID, queryText string, queryVec []float64, currentTurn int) ([]*Candidate, error) {
	if r.index == nil || queryVec == nil {
		return nil, nil
	}

	intents := DetectIntents(queryText, r.lexicon)
	if len(intents) == 0 {
		return nil, nil
	}

	var candidates []*Candidate
	for _, intent := range intents {
		hits, err := r.index.Query(ctx, queryVec, r.cfg.IntentTopK, &vectorindex.Filter{
			UserID:     userID,
			ActiveOnly: true,
			Types:      []string{string(intent)},
		})
		if err != nil {
			r.logger.Warn().Err(err).Str("intent", string(intent)).Msg("intent search failed, continuing without it")
			continue
		}

		hydrated, err := r.hydrate(ctx, hits, currentTurn, StrategyIntent)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, hydrated...)
	}

	return candidates, nil
}

// recencyWindows fetches active memories created within each configured
// lookback window, newest first.
func (r *Retriever) recencyWindows(ctx context.Context, userID string, currentTurn int) ([]*Candidate, error) {
	now := time.Now().UTC()

	var candidates []*Candidate
	for _, window := range r.cfg.Windows {
		memories, err := r.store.FindRecent(ctx, userID, now.Add(-window), r.cfg.WindowLimit)
		if err != nil {
			return nil, err
		}
		for _, mem := range memories {
			candidates = append(candidates, r.score(mem, 0, currentTurn, StrategyRecencyWindow))
		}
	}

	return candidates, nil
}

// criticalSweep fetches high-importance memories that have not been accessed
// recently, so they stay retrievable during long conversations.
func (r *Retriever) criticalSweep(ctx context.Context, userID string, currentTurn int) ([]*Candidate, error) {
	staleBefore := currentTurn - r.cfg.CriticalStaleness

	memories, err := r.store.FindCritical(ctx, userID, r.cfg.CriticalImportance, staleBefore, r.cfg.CriticalLimit)
	if err != nil {
		return nil, err
	}

	candidates := make([]*Candidate, 0, len(memories))
	for _, mem := range memories {
		candidates = append(candidates, r.score(mem, 0, currentTurn, StrategyCritical))
	}

	return candidates, nil
}

// hydrate resolves vector hits into scored candidates through the record
// store. The store is authoritative for active state and expiry: hits whose
// records are gone, inactive, or expired are dropped even if the index has
// not caught up yet.
func (r *Retriever) hydrate(ctx context.Context, hits []*vectorindex.Hit, currentTurn int, strategy string) ([]*Candidate, error) {
	if len(hits) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(hits))
	similarity := make(map[int64]float64, len(hits))
	for _, hit := range hits {
		ids = append(ids, hit.Meta.MemoryID)
		similarity[hit.Meta.MemoryID] = hit.Similarity
	}

	memories, err := r.store.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	candidates := make([]*Candidate, 0, len(memories))
	for _, mem := range memories {
		if !mem.IsActive || mem.Expired(now) {
			continue
		}
		candidates = append(candidates, r.score(mem, similarity[mem.ID], currentTurn, strategy))
	}

	return candidates, nil
}

func (r *Retriever) score(mem *storage.Memory, sim float64, currentTurn int, strategy string) *Candidate {
	recency, importance, final := r.cfg.Score(sim, mem.Importance, currentTurn-mem.SourceTurn)
	return &Candidate{
		Memory:          mem,
		Similarity:      sim,
		RecencyBoost:    recency,
		ImportanceBoost: importance,
		FinalScore:      final,
		Strategy:        strategy,
	}
}
