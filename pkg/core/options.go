package core

import (
	"github.com/rs/zerolog"

	"github.com/longformai/longmem-go/pkg/embedder"
	"github.com/longformai/longmem-go/pkg/llm"
	"github.com/longformai/longmem-go/pkg/retrieval"
	"github.com/longformai/longmem-go/pkg/storage"
	"github.com/longformai/longmem-go/pkg/vectorindex"
)

// ClientOption configures a Client at construction time.
//
// Options that inject providers take precedence over the configuration's
// provider sections, which makes it possible to swap in fakes for tests or
// custom implementations without touching the config.
type ClientOption func(*Client)

// WithLogger sets the client logger. Defaults to a no-op logger.
func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithStore injects a memory record store, bypassing Database config.
func WithStore(store storage.Store) ClientOption {
	return func(c *Client) {
		c.store = store
	}
}

// WithIndex injects a vector index, bypassing VectorIndex config.
func WithIndex(index vectorindex.Index) ClientOption {
	return func(c *Client) {
		c.index = index
	}
}

// WithEmbedder injects an embedding provider, bypassing Embedder config.
func WithEmbedder(provider embedder.Provider) ClientOption {
	return func(c *Client) {
		c.embedder = provider
	}
}

// WithLLM injects a language model provider, bypassing LLM config.
func WithLLM(provider llm.Provider) ClientOption {
	return func(c *Client) {
		c.llm = provider
	}
}

// WithConversationLog sets the sink for used-memory write-backs. Without
// one, used memories are tracked in access statistics only.
func WithConversationLog(log ConversationLog) ClientOption {
	return func(c *Client) {
		c.convLog = log
	}
}

// WithIntentLexicon overrides the retrieval intent lexicon.
func WithIntentLexicon(lexicon retrieval.IntentLexicon) ClientOption {
	return func(c *Client) {
		c.lexicon = lexicon
	}
}

// WithSignalLexicon overrides the extraction signal phrase lexicon.
func WithSignalLexicon(signals []string) ClientOption {
	return func(c *Client) {
		c.signals = signals
	}
}
