// Package storage defines the memory record store interface and the canonical
// persisted memory record.
//
// The record store owns canonical memory state. It supports filtered lookup,
// atomic supersession, access tracking, and soft deletion. Implementations
// exist for SQLite, PostgreSQL, and MySQL; all of them index records on
// (user_id, is_active) and (user_id, memory_type, mem_key, is_active).
package storage

import (
	"context"
	"errors"
	"time"
)

// MemoryType classifies what kind of information a memory holds.
//
// The type is part of the logical identity (user_id, memory_type, key):
// a preference and a fact may share the same key without conflicting.
type MemoryType string

const (
	// TypePreference records likes, dislikes, and choices (language, style, timing).
	TypePreference MemoryType = "preference"

	// TypeFact records personal information and demographics.
	TypeFact MemoryType = "fact"

	// TypeEntity records important people, places, and organizations.
	TypeEntity MemoryType = "entity"

	// TypeCommitment records promises, scheduled events, and deadlines.
	TypeCommitment MemoryType = "commitment"

	// TypeInstruction records explicit instructions on how to behave or respond.
	TypeInstruction MemoryType = "instruction"

	// TypeConstraint records limitations, restrictions, and boundaries.
	TypeConstraint MemoryType = "constraint"
)

// KnownTypes lists every valid memory type.
var KnownTypes = []MemoryType{
	TypePreference,
	TypeFact,
	TypeEntity,
	TypeCommitment,
	TypeInstruction,
	TypeConstraint,
}

// ValidType reports whether t is one of the known memory types.
func ValidType(t MemoryType) bool {
	for _, known := range KnownTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Memory is the persisted memory record.
//
// Identity: (UserID, Type, Key) is the logical dedup key; ID is the storage
// primary key. At most one active record exists per logical key at any time.
//
// Confidence and Importance are independent signals: confidence reflects
// extraction certainty, importance reflects retrieval priority.
type Memory struct {
	// ID is the surrogate primary key (snowflake).
	ID int64 `json:"id"`

	// UserID identifies the user who owns this memory.
	UserID string `json:"user_id"`

	// Type classifies the memory (preference, fact, entity, ...).
	Type MemoryType `json:"memory_type"`

	// Key is the short semantic label, e.g. "language" or "location".
	Key string `json:"key"`

	// Value is the remembered information as free text.
	Value string `json:"value"`

	// Context is a free-text provenance note.
	Context string `json:"context,omitempty"`

	// Confidence is the extraction certainty in [0,1].
	Confidence float64 `json:"confidence"`

	// Importance is the retrieval priority weight in [0,1].
	Importance float64 `json:"importance"`

	// SourceTurn is the conversation turn this memory was extracted from.
	SourceTurn int `json:"source_turn"`

	// SourceConversationID identifies the originating conversation.
	SourceConversationID string `json:"source_conversation_id,omitempty"`

	// CreatedAt is when the record was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the record was last modified.
	UpdatedAt time.Time `json:"updated_at"`

	// IsActive is false once the record has been superseded or soft-deleted.
	IsActive bool `json:"is_active"`

	// AccessCount is how many times this memory was included in generated context.
	AccessCount int `json:"access_count"`

	// LastAccessedTurn is the turn this memory was last included in context.
	LastAccessedTurn int `json:"last_accessed_turn"`

	// ExpiresAt marks time-sensitive memories (commitments, instructions) for
	// expiry. Nil means the memory never expires.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`

	// VectorKey references this record's entry in the vector index.
	VectorKey string `json:"vector_key,omitempty"`
}

// Expired reports whether the memory has passed its expiry time.
func (m *Memory) Expired(now time.Time) bool {
	return m.ExpiresAt != nil && !m.ExpiresAt.After(now)
}

// SortBy selects the ordering for list queries.
type SortBy string

const (
	// SortByRecency orders newest first (created_at descending).
	SortByRecency SortBy = "recency"

	// SortByImportance orders by importance descending.
	SortByImportance SortBy = "importance"
)

// ListOptions filters and paginates FindByUser queries.
type ListOptions struct {
	// Type restricts results to a single memory type (empty = all types).
	Type MemoryType

	// IncludeInactive also returns superseded and soft-deleted records.
	IncludeInactive bool

	// SortBy selects the ordering (default SortByRecency).
	SortBy SortBy

	// Limit caps the number of results (0 = backend default).
	Limit int

	// Offset skips results for pagination.
	Offset int
}

// Stats summarizes a user's active memories.
type Stats struct {
	// Total is the number of active memories.
	Total int `json:"total_memories"`

	// ByType counts active memories per memory type.
	ByType map[MemoryType]int `json:"by_type"`

	// HighImportance counts active memories with importance >= 0.8.
	HighImportance int `json:"high_importance_memories"`
}

// Store is the memory record store.
//
// Queries that feed retrieval (FindActiveByKey, FindRecent, FindCritical)
// exclude expired records.
type Store interface {
	// Supersede atomically deactivates every active record sharing the new
	// record's (user_id, memory_type, key) and inserts mem as the active
	// version, all within one transaction. It returns the records that were
	// deactivated so the caller can retire their vector entries.
	Supersede(ctx context.Context, mem *Memory) ([]*Memory, error)

	// Get retrieves a record by primary key.
	Get(ctx context.Context, id int64) (*Memory, error)

	// GetMany retrieves the records for the given primary keys. Missing ids
	// are skipped, not errors.
	GetMany(ctx context.Context, ids []int64) ([]*Memory, error)

	// FindActiveByKey returns the active, unexpired records for one logical
	// key. The at-most-one-active invariant means this returns zero or one
	// record unless the invariant has been violated.
	FindActiveByKey(ctx context.Context, userID string, t MemoryType, key string) ([]*Memory, error)

	// FindByUser lists a user's records with optional filtering and pagination.
	FindByUser(ctx context.Context, userID string, opts *ListOptions) ([]*Memory, error)

	// FindRecent returns active, unexpired records created at or after since,
	// newest first, capped at limit.
	FindRecent(ctx context.Context, userID string, since time.Time, limit int) ([]*Memory, error)

	// FindCritical returns active, unexpired records with importance >=
	// minImportance that have not been accessed since turn staleBefore,
	// ordered by importance descending, capped at limit.
	FindCritical(ctx context.Context, userID string, minImportance float64, staleBefore int, limit int) ([]*Memory, error)

	// RecordAccess increments access_count and sets last_accessed_turn.
	RecordAccess(ctx context.Context, id int64, currentTurn int) error

	// Deactivate soft-deletes a record. The userID must match the record's
	// owner; a mismatch is an ownership error and modifies nothing.
	Deactivate(ctx context.Context, id int64, userID string) (*Memory, error)

	// PurgeConversation permanently deletes every record sourced from the
	// given conversation and returns the deleted records so the caller can
	// remove their vector entries. Used when a parent conversation is removed.
	PurgeConversation(ctx context.Context, userID, conversationID string) ([]*Memory, error)

	// Stats summarizes the user's active memories.
	Stats(ctx context.Context, userID string) (*Stats, error)

	// Close releases the underlying database resources.
	Close() error
}

// Sentinel errors shared by all backends.
var (
	// ErrNotFound is returned when no record matches the given id.
	ErrNotFound = errors.New("memory not found")

	// ErrOwnership is returned when the record exists but belongs to a
	// different user.
	ErrOwnership = errors.New("memory owned by another user")
)
