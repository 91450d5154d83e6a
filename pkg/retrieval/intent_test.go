package retrieval_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/longformai/longmem-go/pkg/retrieval"
	"github.com/longformai/longmem-go/pkg/storage"
)

func TestDetectIntentsTemporal(t *testing.T) {
	lexicon := retrieval.DefaultIntentLexicon()

	types := retrieval.DetectIntents("what do I have scheduled tomorrow?", lexicon)
	assert.Contains(t, types, storage.TypeCommitment)
}

func TestDetectIntentsPreference(t *testing.T) {
	lexicon := retrieval.DefaultIntentLexicon()

	types := retrieval.DetectIntents("what food do I prefer?", lexicon)
	assert.Contains(t, types, storage.TypePreference)
}

func TestDetectIntentsWhere(t *testing.T) {
	lexicon := retrieval.DefaultIntentLexicon()

	types := retrieval.DetectIntents("Where do I live?", lexicon)
	assert.Contains(t, types, storage.TypeFact)
	assert.Contains(t, types, storage.TypeEntity)
}

func TestDetectIntentsCaseInsensitive(t *testing.T) {
	lexicon := retrieval.DefaultIntentLexicon()

	types := retrieval.DetectIntents("WHERE DO I LIVE", lexicon)
	assert.Contains(t, types, storage.TypeFact)
}

func TestDetectIntentsNoMatch(t *testing.T) {
	lexicon := retrieval.DefaultIntentLexicon()

	types := retrieval.DetectIntents("tell me a joke", lexicon)
	assert.Empty(t, types)
}

func TestDetectIntentsDeduplicates(t *testing.T) {
	lexicon := retrieval.DefaultIntentLexicon()

	// "who" and "where" both suggest fact and entity; each type appears once.
	types := retrieval.DetectIntents("who is she and where does she work", lexicon)

	seen := make(map[storage.MemoryType]int)
	for _, memType := range types {
		seen[memType]++
	}
	for memType, count := range seen {
		assert.Equal(t, 1, count, "type %s duplicated", memType)
	}
}

func TestDetectIntentsCustomLexicon(t *testing.T) {
	lexicon := retrieval.IntentLexicon{
		"allergic": {storage.TypeConstraint},
	}

	types := retrieval.DetectIntents("am I allergic to anything?", lexicon)
	assert.Equal(t, []storage.MemoryType{storage.TypeConstraint}, types)
}
