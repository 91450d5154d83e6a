package core

import (
	"github.com/longformai/longmem-go/pkg/llm"
	"github.com/longformai/longmem-go/pkg/retrieval"
	"github.com/longformai/longmem-go/pkg/storage"
)

// Memory is the persisted memory record. Aliased from the storage package so
// callers only need to import core.
type Memory = storage.Memory

// MemoryType classifies what kind of information a memory holds.
type MemoryType = storage.MemoryType

// Memory type constants, re-exported for callers.
const (
	TypePreference  = storage.TypePreference
	TypeFact        = storage.TypeFact
	TypeEntity      = storage.TypeEntity
	TypeCommitment  = storage.TypeCommitment
	TypeInstruction = storage.TypeInstruction
	TypeConstraint  = storage.TypeConstraint
)

// RetrievalResult is one scored retrieval candidate.
type RetrievalResult = retrieval.Candidate

// TurnRequest describes one conversation turn to process.
type TurnRequest struct {
	// UserID identifies the user. Required.
	UserID string `json:"user_id"`

	// ConversationID identifies the conversation the turn belongs to.
	ConversationID string `json:"conversation_id"`

	// Turn is the monotonic turn number assigned by the owning
	// conversation.
	Turn int `json:"turn"`

	// Message is the user's message text. Required.
	Message string `json:"message"`

	// History carries recent conversation messages for generation and
	// extraction context, oldest first.
	History []llm.Message `json:"history,omitempty"`
}

// TurnEventType classifies turn stream events.
type TurnEventType string

const (
	// TurnEventChunk carries one incremental chunk of the response.
	TurnEventChunk TurnEventType = "chunk"

	// TurnEventComplete carries the final TurnResult and ends the stream.
	TurnEventComplete TurnEventType = "complete"

	// TurnEventError reports a generation failure and ends the stream.
	TurnEventError TurnEventType = "error"
)

// TurnEvent is one event from a streamed turn.
type TurnEvent struct {
	// Type classifies the event.
	Type TurnEventType `json:"type"`

	// Content is the chunk text for TurnEventChunk.
	Content string `json:"content,omitempty"`

	// Result is set for TurnEventComplete.
	Result *TurnResult `json:"result,omitempty"`

	// Err is set for TurnEventError.
	Err error `json:"-"`
}

// TurnResult summarizes a completed turn.
type TurnResult struct {
	// Response is the full generated response text.
	Response string `json:"response"`

	// UsedMemories are the memories injected into the generation context,
	// ranked.
	UsedMemories []*RetrievalResult `json:"used_memories,omitempty"`

	// Extracted are the memories written from this turn.
	Extracted []*Memory `json:"extracted,omitempty"`
}

// ConversationLog receives the identities of memories that were active
// context when a response was generated. It belongs to the conversation
// persistence layer; the core only writes to it.
type ConversationLog interface {
	// RecordUsedMemories notes which memories backed the turn's response.
	RecordUsedMemories(userID, conversationID string, turn int, memoryIDs []int64) error
}
