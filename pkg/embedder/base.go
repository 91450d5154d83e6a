// Package embedder defines the text embedding provider interface.
//
// Memory values and user messages are embedded into the same vector space so
// the retriever can run nearest-neighbor queries over stored memories.
package embedder

import "context"

// Provider converts text into embedding vectors.
type Provider interface {
	// Embed converts a single text into its embedding vector.
	Embed(ctx context.Context, text string) ([]float64, error)

	// EmbedBatch converts multiple texts in one request. The result order
	// matches the input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)

	// Dimensions returns the dimension of the vectors this provider produces.
	Dimensions() int

	// Close closes the provider and releases resources.
	Close() error
}
