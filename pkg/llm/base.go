// Package llm defines the language model provider interface.
//
// Providers are used in two places: response generation for conversation
// turns (streamed token by token) and structured memory extraction from user
// messages (single completion).
package llm

import "context"

// Provider defines the interface for language model providers.
type Provider interface {
	// Generate generates text from a single prompt.
	Generate(ctx context.Context, prompt string, opts ...GenerateOption) (string, error)

	// GenerateWithMessages generates text from a conversation history
	// (system, user, and assistant messages).
	GenerateWithMessages(ctx context.Context, messages []Message, opts ...GenerateOption) (string, error)

	// Stream generates text from a conversation history and emits it
	// incrementally. The returned channel delivers token events followed by
	// exactly one terminal event (EventFinal on success, EventError on
	// failure), then closes. When the context is cancelled and the consumer
	// stops draining, the channel closes without a terminal event.
	Stream(ctx context.Context, messages []Message, opts ...GenerateOption) (<-chan StreamEvent, error)

	// Close closes the provider and releases resources.
	Close() error
}

// Message represents a single message in a conversation.
type Message struct {
	// Role is the message role: "system", "user", or "assistant".
	Role string `json:"role"`

	// Content is the message content text.
	Content string `json:"content"`
}

// EventType classifies stream events.
type EventType string

const (
	// EventToken carries one incremental chunk of generated text.
	EventToken EventType = "token"

	// EventFinal carries the complete generated text and ends the stream.
	EventFinal EventType = "final"

	// EventError reports a mid-stream failure and ends the stream.
	EventError EventType = "error"
)

// StreamEvent is one event from a streaming generation.
type StreamEvent struct {
	// Type classifies the event.
	Type EventType

	// Content is the chunk text for EventToken, or the full accumulated
	// text for EventFinal.
	Content string

	// Err is set for EventError.
	Err error
}

// GenerateOptions contains options for text generation.
type GenerateOptions struct {
	// Temperature controls randomness (0.0-2.0).
	Temperature float64

	// MaxTokens limits the response length in tokens.
	MaxTokens int

	// TopP controls nucleus sampling (0.0-1.0).
	TopP float64

	// Stop contains stop sequences that end generation.
	Stop []string
}

// GenerateOption configures generation options.
type GenerateOption func(*GenerateOptions)

// WithTemperature sets the sampling temperature.
func WithTemperature(temp float64) GenerateOption {
	return func(opts *GenerateOptions) {
		opts.Temperature = temp
	}
}

// WithMaxTokens sets the maximum number of response tokens.
func WithMaxTokens(max int) GenerateOption {
	return func(opts *GenerateOptions) {
		opts.MaxTokens = max
	}
}

// WithTopP sets the top-p (nucleus sampling) parameter.
func WithTopP(topP float64) GenerateOption {
	return func(opts *GenerateOptions) {
		opts.TopP = topP
	}
}

// WithStop sets the stop sequences.
func WithStop(stop ...string) GenerateOption {
	return func(opts *GenerateOptions) {
		opts.Stop = stop
	}
}

// ApplyGenerateOptions builds GenerateOptions from option functions.
// Defaults: Temperature=0.7, MaxTokens=1000, TopP=1.0.
func ApplyGenerateOptions(opts []GenerateOption) *GenerateOptions {
	options := &GenerateOptions{
		Temperature: 0.7,
		MaxTokens:   1000,
		TopP:        1.0,
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}
