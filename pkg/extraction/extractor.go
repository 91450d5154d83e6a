// Package extraction turns conversation turns into candidate memory writes.
//
// It has two parts: a cheap gating decision (Gate) that decides whether a
// turn is worth an LLM extraction call at all, and the Extractor that asks
// the language model for structured candidates. Extraction always runs after
// the turn's response has been generated, never speculatively.
package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/longformai/longmem-go/pkg/llm"
	"github.com/longformai/longmem-go/pkg/storage"
)

// Priority classifies how strongly a turn warrants extraction.
type Priority string

const (
	// PriorityNone means the turn is skipped.
	PriorityNone Priority = "none"

	// PriorityLow marks routine cadence turns (every 5th).
	PriorityLow Priority = "low"

	// PriorityHigh marks signal-phrase turns and every 50th turn.
	PriorityHigh Priority = "high"

	// PriorityCritical marks the first turn of a conversation, which tends
	// to carry initial preferences.
	PriorityCritical Priority = "critical"
)

// Decision is the gate's verdict for one turn.
type Decision struct {
	// Extract reports whether extraction should run.
	Extract bool

	// Priority classifies the decision.
	Priority Priority

	// Boost is added to the importance of memories written from this turn,
	// clamped to 1.0 by the writer.
	Boost float64
}

// Gate decides which turns get an extraction call.
type Gate struct {
	signals []string
}

// NewGate creates a gate over the given signal lexicon. With no signals the
// default lexicon applies.
func NewGate(signals []string) *Gate {
	if len(signals) == 0 {
		signals = DefaultSignalLexicon()
	}
	lowered := make([]string, len(signals))
	for i, s := range signals {
		lowered[i] = strings.ToLower(s)
	}
	return &Gate{signals: lowered}
}

// Decide applies the extraction cadence policy.
//
// Turn 1 always extracts with critical priority. Every 50th turn extracts
// with high priority, every 5th with low. Any other turn extracts only when
// the message contains a signal phrase, with high priority.
func (g *Gate) Decide(turn int, message string) Decision {
	switch {
	case turn == 1:
		return Decision{Extract: true, Priority: PriorityCritical, Boost: 0.2}
	case turn%50 == 0:
		return Decision{Extract: true, Priority: PriorityHigh, Boost: 0.1}
	case turn%5 == 0:
		return Decision{Extract: true, Priority: PriorityLow, Boost: 0.05}
	}

	lowered := strings.ToLower(message)
	for _, signal := range g.signals {
		if strings.Contains(lowered, signal) {
			return Decision{Extract: true, Priority: PriorityHigh, Boost: 0.1}
		}
	}

	return Decision{Extract: false, Priority: PriorityNone}
}

// Candidate is one validated extraction result.
type Candidate struct {
	// Type is the memory type.
	Type storage.MemoryType `json:"type"`

	// Key is the short semantic label.
	Key string `json:"key"`

	// Value is the information to remember.
	Value string `json:"value"`

	// Confidence is the extraction certainty in [0,1].
	Confidence float64 `json:"confidence"`

	// Importance is the retrieval priority in [0,1].
	Importance float64 `json:"importance"`
}

// Extractor asks the language model for structured memory candidates.
type Extractor struct {
	provider llm.Provider
	logger   zerolog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// NewExtractor creates an extractor over the given language model provider.
func NewExtractor(provider llm.Provider, opts ...Option) *Extractor {
	e := &Extractor{
		provider: provider,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract asks the model for candidate memories from the latest exchange.
// history carries up to the last few conversation messages for context.
//
// Malformed candidates are dropped individually and never fail the batch.
func (e *Extractor) Extract(ctx context.Context, userMessage, assistantResponse string, history []llm.Message) ([]*Candidate, error) {
	conversation := buildConversation(history, userMessage, assistantResponse)

	messages := []llm.Message{
		{Role: "system", Content: extractionSystemPrompt},
		{Role: "user", Content: fmt.Sprintf(extractionPrompt, conversation)},
	}

	raw, err := e.provider.GenerateWithMessages(ctx, messages,
		llm.WithTemperature(0.1),
		llm.WithMaxTokens(1000),
	)
	if err != nil {
		return nil, fmt.Errorf("extraction failed: %w", err)
	}

	return e.parseCandidates(raw), nil
}

// parseCandidates decodes the model output into validated candidates.
func (e *Extractor) parseCandidates(raw string) []*Candidate {
	cleaned := stripFences(raw)

	// Pointer score fields distinguish "absent" from zero, since a
	// candidate missing a required field must be dropped.
	var wire []struct {
		Type       string   `json:"type"`
		Key        string   `json:"key"`
		Value      string   `json:"value"`
		Confidence *float64 `json:"confidence"`
		Importance *float64 `json:"importance"`
	}
	if err := json.Unmarshal([]byte(cleaned), &wire); err != nil {
		e.logger.Warn().Err(err).Msg("extraction output is not a JSON array, dropping batch")
		return nil
	}

	candidates := make([]*Candidate, 0, len(wire))
	for _, w := range wire {
		memType := storage.MemoryType(strings.ToLower(w.Type))
		if !storage.ValidType(memType) || w.Key == "" || w.Value == "" || w.Confidence == nil || w.Importance == nil {
			e.logger.Warn().Str("type", w.Type).Str("key", w.Key).Msg("dropping malformed extraction candidate")
			continue
		}
		candidates = append(candidates, &Candidate{
			Type:       memType,
			Key:        w.Key,
			Value:      w.Value,
			Confidence: clamp01(*w.Confidence),
			Importance: clamp01(*w.Importance),
		})
	}

	return candidates
}

// buildConversation renders the last few messages plus the current exchange.
func buildConversation(history []llm.Message, userMessage, assistantResponse string) string {
	var lines []string

	start := 0
	if len(history) > 5 {
		start = len(history) - 5
	}
	for _, msg := range history[start:] {
		role := "User"
		if msg.Role == "assistant" {
			role = "Assistant"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", role, msg.Content))
	}

	lines = append(lines, fmt.Sprintf("User: %s", userMessage))
	lines = append(lines, fmt.Sprintf("Assistant: %s", assistantResponse))

	return strings.Join(lines, "\n")
}

// stripFences removes markdown code fences around a JSON payload.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
