// Package openai implements the language model provider on the OpenAI
// Chat Completions API.
package openai

import (
	"context"
	"errors"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/longformai/longmem-go/pkg/llm"
)

// Client is an OpenAI chat client implementing llm.Provider.
type Client struct {
	client *openai.Client
	model  string
}

// Config contains configuration for the OpenAI chat client.
type Config struct {
	// APIKey is the OpenAI API key. Required.
	APIKey string

	// Model is the chat model name, e.g. "gpt-4o-mini".
	Model string

	// BaseURL overrides the API base URL for OpenAI-compatible endpoints.
	BaseURL string
}

// NewClient creates a new OpenAI chat client.
func NewClient(cfg *Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai llm: api key is required")
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return &Client{
		client: openai.NewClientWithConfig(config),
		model:  cfg.Model,
	}, nil
}

// Generate generates text from a single prompt.
func (c *Client) Generate(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
	messages := []llm.Message{
		{Role: "user", Content: prompt},
	}
	return c.GenerateWithMessages(ctx, messages, opts...)
}

// GenerateWithMessages generates text from a conversation history.
func (c *Client) GenerateWithMessages(ctx context.Context, messages []llm.Message, opts ...llm.GenerateOption) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, c.buildRequest(messages, opts))
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("llm generation failed: no choices returned")
	}

	return resp.Choices[0].Message.Content, nil
}

// Stream generates text incrementally. Events are delivered on the returned
// channel: zero or more EventToken, then one EventFinal or EventError.
func (c *Client) Stream(ctx context.Context, messages []llm.Message, opts ...llm.GenerateOption) (<-chan llm.StreamEvent, error) {
	req := c.buildRequest(messages, opts)
	req.Stream = true

	stream, err := c.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, err
	}

	events := make(chan llm.StreamEvent)
	go func() {
		defer close(events)
		defer func() { _ = stream.Close() }()

		var full strings.Builder
		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				send(ctx, events, llm.StreamEvent{Type: llm.EventFinal, Content: full.String()})
				return
			}
			if err != nil {
				send(ctx, events, llm.StreamEvent{Type: llm.EventError, Err: err})
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}

			chunk := resp.Choices[0].Delta.Content
			if chunk == "" {
				continue
			}
			full.WriteString(chunk)

			if !send(ctx, events, llm.StreamEvent{Type: llm.EventToken, Content: chunk}) {
				return
			}
		}
	}()

	return events, nil
}

// send delivers one event, giving up when the context is cancelled and the
// consumer has stopped draining the channel.
func send(ctx context.Context, events chan<- llm.StreamEvent, event llm.StreamEvent) bool {
	select {
	case events <- event:
		return true
	case <-ctx.Done():
		return false
	}
}

// Close closes the client. The OpenAI SDK needs no explicit teardown.
func (c *Client) Close() error {
	return nil
}

func (c *Client) buildRequest(messages []llm.Message, opts []llm.GenerateOption) openai.ChatCompletionRequest {
	options := llm.ApplyGenerateOptions(opts)

	chatMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		chatMessages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	return openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    chatMessages,
		Temperature: float32(options.Temperature),
		MaxTokens:   options.MaxTokens,
		TopP:        float32(options.TopP),
		Stop:        options.Stop,
	}
}
