package retrieval

import (
	"strings"

	"github.com/longformai/longmem-go/pkg/storage"
)

// IntentLexicon maps signal phrases to the memory types they suggest. A
// phrase matches when it appears as a substring of the lowercased query.
//
// The lexicon is plain data so deployments can extend it without touching
// the retrieval algorithm.
type IntentLexicon map[string][]storage.MemoryType

// DefaultIntentLexicon returns the built-in phrase-to-type mapping.
func DefaultIntentLexicon() IntentLexicon {
	return IntentLexicon{
		// Temporal phrases point at commitments.
		"tomorrow":  {storage.TypeCommitment},
		"today":     {storage.TypeCommitment},
		"tonight":   {storage.TypeCommitment},
		"later":     {storage.TypeCommitment},
		"deadline":  {storage.TypeCommitment},
		"meeting":   {storage.TypeCommitment},
		"schedule":  {storage.TypeCommitment},
		"remind":    {storage.TypeCommitment},
		"next week": {storage.TypeCommitment},
		"when":      {storage.TypeCommitment},

		// Preference phrases.
		"prefer":   {storage.TypePreference},
		"like":     {storage.TypePreference},
		"favorite": {storage.TypePreference},
		"want":     {storage.TypePreference},
		"need":     {storage.TypePreference},
		"hate":     {storage.TypePreference},
		"dislike":  {storage.TypePreference},

		// Identity and location questions point at facts and entities.
		"who":        {storage.TypeFact, storage.TypeEntity},
		"where":      {storage.TypeFact, storage.TypeEntity},
		"what about": {storage.TypeFact, storage.TypeEntity},
		"my name":    {storage.TypeFact},
		"do i":       {storage.TypeFact, storage.TypePreference},
	}
}

// DetectIntents returns the deduplicated memory types suggested by the
// query, or nil when no phrase matches.
func DetectIntents(query string, lexicon IntentLexicon) []storage.MemoryType {
	lowered := strings.ToLower(query)

	seen := make(map[storage.MemoryType]bool)
	var types []storage.MemoryType
	for phrase, suggested := range lexicon {
		if !strings.Contains(lowered, phrase) {
			continue
		}
		for _, t := range suggested {
			if !seen[t] {
				seen[t] = true
				types = append(types, t)
			}
		}
	}

	return types
}
