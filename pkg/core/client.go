package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/rs/zerolog"

	"github.com/longformai/longmem-go/pkg/embedder"
	embedderopenai "github.com/longformai/longmem-go/pkg/embedder/openai"
	"github.com/longformai/longmem-go/pkg/extraction"
	"github.com/longformai/longmem-go/pkg/llm"
	llmopenai "github.com/longformai/longmem-go/pkg/llm/openai"
	"github.com/longformai/longmem-go/pkg/retrieval"
	"github.com/longformai/longmem-go/pkg/storage"
	"github.com/longformai/longmem-go/pkg/storage/mysql"
	"github.com/longformai/longmem-go/pkg/storage/postgres"
	"github.com/longformai/longmem-go/pkg/storage/sqlite"
	"github.com/longformai/longmem-go/pkg/vectorindex"
	chromemindex "github.com/longformai/longmem-go/pkg/vectorindex/chromem"
)

// Client is the LongMem memory client.
//
// It owns the record store, vector index, and providers, and exposes the
// per-turn pipeline (ProcessTurn) plus direct memory management operations.
// All dependencies are injected or constructed once here; there is no
// process-global state.
type Client struct {
	config    *Config
	logger    zerolog.Logger
	store     storage.Store
	index     vectorindex.Index
	embedder  embedder.Provider
	llm       llm.Provider
	retriever *retrieval.Retriever
	extractor *extraction.Extractor
	gate      *extraction.Gate
	writes    *keyedMutex
	node      *snowflake.Node
	convLog   ConversationLog
	lexicon   retrieval.IntentLexicon
	signals   []string
}

// NewClient creates a new LongMem client from the configuration.
//
// Providers not injected via options are constructed from their config
// sections. The snowflake node seeds record IDs.
func NewClient(config *Config, opts ...ClientOption) (*Client, error) {
	if config == nil {
		return nil, NewMemoryError("NewClient", ErrInvalidConfig)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		config: config,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	var err error
	if c.store == nil {
		c.store, err = initStore(&config.Database)
		if err != nil {
			return nil, NewMemoryError("NewClient", err)
		}
	}
	if c.index == nil {
		c.index, err = chromemindex.NewIndex(&chromemindex.Config{
			Path:       config.VectorIndex.Path,
			Compress:   config.VectorIndex.Compress,
			Collection: config.VectorIndex.Collection,
		})
		if err != nil {
			return nil, NewMemoryError("NewClient", err)
		}
	}
	if c.embedder == nil {
		c.embedder, err = initEmbedder(&config.Embedder)
		if err != nil {
			return nil, NewMemoryError("NewClient", err)
		}
	}
	if c.llm == nil {
		c.llm, err = initLLM(&config.LLM)
		if err != nil {
			return nil, NewMemoryError("NewClient", err)
		}
	}

	c.node, err = snowflake.NewNode(1)
	if err != nil {
		return nil, NewMemoryError("NewClient", err)
	}

	retrievalCfg := retrieval.DefaultConfig()
	applyRetrievalOverrides(retrievalCfg, config.Retrieval)

	retrieverOpts := []retrieval.Option{
		retrieval.WithConfig(retrievalCfg),
		retrieval.WithLogger(c.logger),
	}
	if c.lexicon != nil {
		retrieverOpts = append(retrieverOpts, retrieval.WithLexicon(c.lexicon))
	}
	c.retriever = retrieval.NewRetriever(c.store, c.index, c.embedder, retrieverOpts...)
	c.extractor = extraction.NewExtractor(c.llm, extraction.WithLogger(c.logger))
	c.gate = extraction.NewGate(c.signals)
	c.writes = newKeyedMutex()

	return c, nil
}

// initStore constructs the record store backend named by the configuration.
func initStore(cfg *DatabaseConfig) (storage.Store, error) {
	switch cfg.Provider {
	case "sqlite":
		return sqlite.NewClient(&sqlite.Config{
			DBPath:    getStringConfig(cfg.Config, "db_path", "./longmem.db"),
			TableName: getStringConfig(cfg.Config, "table_name", "memories"),
		})
	case "postgres":
		return postgres.NewClient(&postgres.Config{
			Host:      getStringConfig(cfg.Config, "host", "localhost"),
			Port:      getIntConfig(cfg.Config, "port", 5432),
			User:      getStringConfig(cfg.Config, "user", "postgres"),
			Password:  getStringConfig(cfg.Config, "password", ""),
			DBName:    getStringConfig(cfg.Config, "db_name", "longmem"),
			TableName: getStringConfig(cfg.Config, "table_name", "memories"),
			SSLMode:   getStringConfig(cfg.Config, "ssl_mode", "disable"),
		})
	case "mysql":
		return mysql.NewClient(&mysql.Config{
			Host:      getStringConfig(cfg.Config, "host", "localhost"),
			Port:      getIntConfig(cfg.Config, "port", 3306),
			User:      getStringConfig(cfg.Config, "user", "root"),
			Password:  getStringConfig(cfg.Config, "password", ""),
			DBName:    getStringConfig(cfg.Config, "db_name", "longmem"),
			TableName: getStringConfig(cfg.Config, "table_name", "memories"),
		})
	default:
		return nil, fmt.Errorf("unsupported database provider: %s", cfg.Provider)
	}
}

// initEmbedder constructs the embedding provider named by the configuration.
func initEmbedder(cfg *EmbedderConfig) (embedder.Provider, error) {
	switch cfg.Provider {
	case "openai":
		return embedderopenai.NewClient(&embedderopenai.Config{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			BaseURL:    cfg.BaseURL,
			Dimensions: cfg.Dimensions,
		})
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}

// initLLM constructs the language model provider named by the configuration.
func initLLM(cfg *LLMConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case "openai":
		return llmopenai.NewClient(&llmopenai.Config{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		})
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}

func applyRetrievalOverrides(cfg *retrieval.Config, overrides *RetrievalConfig) {
	if overrides == nil {
		return
	}
	if overrides.TopK > 0 {
		cfg.TopK = overrides.TopK
	}
	if overrides.ConfidenceThreshold > 0 {
		cfg.ConfidenceThreshold = overrides.ConfidenceThreshold
	}
	if overrides.RecencyTau > 0 {
		cfg.RecencyTau = overrides.RecencyTau
	}
	if overrides.ImportanceWeight > 0 {
		cfg.ImportanceWeight = overrides.ImportanceWeight
	}
}

// Retrieve returns the ranked memories relevant to the query for this turn.
func (c *Client) Retrieve(ctx context.Context, userID, query string, currentTurn int) ([]*RetrievalResult, error) {
	if userID == "" {
		return nil, NewMemoryError("Retrieve", ErrInvalidInput)
	}

	results, err := c.retriever.Retrieve(ctx, userID, query, currentTurn)
	if err != nil {
		return nil, NewMemoryError("Retrieve", err)
	}
	return results, nil
}

// GetMemory retrieves one memory by id, enforcing ownership.
func (c *Client) GetMemory(ctx context.Context, userID string, id int64) (*Memory, error) {
	mem, err := c.store.Get(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, NewMemoryError("GetMemory", ErrNotFound)
	}
	if err != nil {
		return nil, NewMemoryError("GetMemory", err)
	}
	if mem.UserID != userID {
		return nil, NewMemoryError("GetMemory", ErrOwnership)
	}
	return mem, nil
}

// ListMemories lists a user's memories. Passing IncludeInactive in opts
// returns superseded history as well as the active set.
func (c *Client) ListMemories(ctx context.Context, userID string, opts *storage.ListOptions) ([]*Memory, error) {
	if userID == "" {
		return nil, NewMemoryError("ListMemories", ErrInvalidInput)
	}

	memories, err := c.store.FindByUser(ctx, userID, opts)
	if err != nil {
		return nil, NewMemoryError("ListMemories", err)
	}
	return memories, nil
}

// DeleteMemory soft-deletes a memory the user owns and retires its vector
// entry.
func (c *Client) DeleteMemory(ctx context.Context, userID string, id int64) error {
	mem, err := c.store.Deactivate(ctx, id, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return NewMemoryError("DeleteMemory", ErrNotFound)
	}
	if errors.Is(err, storage.ErrOwnership) {
		return NewMemoryError("DeleteMemory", ErrOwnership)
	}
	if err != nil {
		return NewMemoryError("DeleteMemory", err)
	}

	if mem.VectorKey != "" {
		if err := c.index.Deactivate(ctx, []string{mem.VectorKey}); err != nil {
			c.logger.Warn().Err(err).Int64("memory_id", id).Msg("vector deactivation failed after soft delete")
		}
	}
	return nil
}

// PurgeConversation permanently deletes every memory sourced from the
// conversation, record and vector entry both. Used when the parent
// conversation is removed.
func (c *Client) PurgeConversation(ctx context.Context, userID, conversationID string) error {
	purged, err := c.store.PurgeConversation(ctx, userID, conversationID)
	if err != nil {
		return NewMemoryError("PurgeConversation", err)
	}

	keys := make([]string, 0, len(purged))
	for _, mem := range purged {
		if mem.VectorKey != "" {
			keys = append(keys, mem.VectorKey)
		}
	}
	if err := c.index.Delete(ctx, keys); err != nil {
		c.logger.Warn().Err(err).Str("conversation_id", conversationID).Msg("vector purge failed")
	}

	c.logger.Info().Str("user_id", userID).Str("conversation_id", conversationID).Int("purged", len(purged)).Msg("conversation memories purged")
	return nil
}

// MemoryStats summarizes the user's active memories.
func (c *Client) MemoryStats(ctx context.Context, userID string) (*storage.Stats, error) {
	stats, err := c.store.Stats(ctx, userID)
	if err != nil {
		return nil, NewMemoryError("MemoryStats", err)
	}
	return stats, nil
}

// Close releases the store and index resources.
func (c *Client) Close() error {
	var firstErr error
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			firstErr = err
		}
	}
	if c.index != nil {
		if err := c.index.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.embedder != nil {
		if err := c.embedder.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.llm != nil {
		if err := c.llm.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// getStringConfig extracts a string from a provider config map.
func getStringConfig(config map[string]interface{}, key, defaultValue string) string {
	if v, ok := config[key].(string); ok && v != "" {
		return v
	}
	return defaultValue
}

// getIntConfig extracts an int from a provider config map. JSON decoding
// produces float64 numbers, so both are accepted.
func getIntConfig(config map[string]interface{}, key string, defaultValue int) int {
	switch v := config[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return defaultValue
}
