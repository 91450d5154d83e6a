package core

import (
	"context"

	"github.com/longformai/longmem-go/pkg/llm"
)

// ProcessTurn runs one conversation turn end to end: retrieve relevant
// memories, stream the assistant response with that context injected, then
// record memory usage and extract new memories from the exchange.
//
// The returned channel delivers TurnEventChunk events while the response
// streams, then exactly one TurnEventComplete or TurnEventError, then
// closes. Generation failures arrive as an error event rather than an error
// return, so a caller relaying the stream stays on one code path. When the
// context is cancelled and the caller stops draining, the channel closes
// without a terminal event. No memory writes happen on a failed or
// cancelled generation.
func (c *Client) ProcessTurn(ctx context.Context, req *TurnRequest) (<-chan TurnEvent, error) {
	if req == nil || req.UserID == "" || req.Message == "" || req.Turn < 1 {
		return nil, NewMemoryError("ProcessTurn", ErrInvalidInput)
	}

	// Record store failures during retrieval are data-integrity critical
	// and abort the turn before any generation starts.
	used, err := c.Retrieve(ctx, req.UserID, req.Message, req.Turn)
	if err != nil {
		return nil, err
	}

	messages := buildTurnMessages(req, used)

	events := make(chan TurnEvent)
	go func() {
		defer close(events)

		stream, err := c.llm.Stream(ctx, messages)
		if err != nil {
			c.logger.Error().Err(err).Str("user_id", req.UserID).Msg("generation stream failed to start")
			emit(ctx, events, TurnEvent{Type: TurnEventError, Err: NewMemoryError("ProcessTurn", err)})
			return
		}

		var response string
		for event := range stream {
			switch event.Type {
			case llm.EventToken:
				if !emit(ctx, events, TurnEvent{Type: TurnEventChunk, Content: event.Content}) {
					return
				}
			case llm.EventFinal:
				response = event.Content
			case llm.EventError:
				c.logger.Error().Err(event.Err).Str("user_id", req.UserID).Msg("generation failed mid-stream")
				emit(ctx, events, TurnEvent{Type: TurnEventError, Err: NewMemoryError("ProcessTurn", event.Err)})
				return
			}
		}

		c.recordUsage(ctx, req, used)
		extracted := c.extractAndWrite(ctx, req, response)

		emit(ctx, events, TurnEvent{
			Type: TurnEventComplete,
			Result: &TurnResult{
				Response:     response,
				UsedMemories: used,
				Extracted:    extracted,
			},
		})
	}()

	return events, nil
}

// emit delivers one turn event, giving up when the context is cancelled and
// the caller has stopped draining the channel.
func emit(ctx context.Context, events chan<- TurnEvent, event TurnEvent) bool {
	select {
	case events <- event:
		return true
	case <-ctx.Done():
		return false
	}
}

// buildTurnMessages assembles the generation context: memory system prompt,
// recent history, then the current user message.
func buildTurnMessages(req *TurnRequest, used []*RetrievalResult) []llm.Message {
	var messages []llm.Message
	if prompt := FormatMemoriesForPrompt(used); prompt != "" {
		messages = append(messages, llm.Message{Role: "system", Content: prompt})
	}
	messages = append(messages, req.History...)
	messages = append(messages, llm.Message{Role: "user", Content: req.Message})
	return messages
}

// recordUsage updates access statistics for the memories that backed the
// response. Runs only after successful generation, so a failed turn does
// not pollute access counts.
func (c *Client) recordUsage(ctx context.Context, req *TurnRequest, used []*RetrievalResult) {
	ids := make([]int64, 0, len(used))
	for _, res := range used {
		ids = append(ids, res.Memory.ID)
		if err := c.store.RecordAccess(ctx, res.Memory.ID, req.Turn); err != nil {
			c.logger.Warn().Err(err).Int64("memory_id", res.Memory.ID).Msg("access tracking failed")
		}
	}

	if c.convLog != nil && len(ids) > 0 {
		if err := c.convLog.RecordUsedMemories(req.UserID, req.ConversationID, req.Turn, ids); err != nil {
			c.logger.Warn().Err(err).Str("conversation_id", req.ConversationID).Msg("used-memory write-back failed")
		}
	}
}

// extractAndWrite runs the extraction gate and writes any candidates. All
// failures here are logged and swallowed: the user-visible response is
// already delivered, and extraction must never retract it.
func (c *Client) extractAndWrite(ctx context.Context, req *TurnRequest, response string) []*Memory {
	decision := c.gate.Decide(req.Turn, req.Message)
	if !decision.Extract {
		return nil
	}

	candidates, err := c.extractor.Extract(ctx, req.Message, response, req.History)
	if err != nil {
		c.logger.Warn().Err(err).Int("turn", req.Turn).Msg("extraction failed")
		return nil
	}

	var written []*Memory
	for _, cand := range candidates {
		mem, err := c.writeMemory(ctx, req.UserID, req.ConversationID, req.Turn, cand, decision.Boost)
		if err != nil {
			c.logger.Error().Err(err).Str("key", cand.Key).Msg("memory write failed")
			continue
		}
		written = append(written, mem)
	}

	if len(written) > 0 {
		c.logger.Info().
			Str("user_id", req.UserID).
			Int("turn", req.Turn).
			Str("priority", string(decision.Priority)).
			Int("written", len(written)).
			Msg("memories extracted")
	}

	return written
}
