package retrieval

import (
	"math"
	"time"
)

// Config contains the retrieval and scoring parameters.
type Config struct {
	// TopK is the number of memories handed to the caller.
	TopK int

	// Margin is the safety margin kept beyond TopK after merge.
	Margin int

	// SemanticFactor multiplies TopK for the semantic candidate pool, so
	// the merge has enough raw candidates to dedup and re-rank.
	SemanticFactor int

	// ConfidenceThreshold discards semantic candidates with raw similarity
	// below it. Applies to the semantic baseline only.
	ConfidenceThreshold float64

	// RecencyTau is the decay constant in turns for the recency boost.
	RecencyTau float64

	// RecencyMax is the recency boost at age zero.
	RecencyMax float64

	// ImportanceWeight scales importance into the final score.
	ImportanceWeight float64

	// Windows are the recency-window lookbacks, e.g. 4h and 24h.
	Windows []time.Duration

	// WindowLimit caps each recency window's candidates.
	WindowLimit int

	// CriticalImportance is the importance floor for the critical sweep.
	CriticalImportance float64

	// CriticalStaleness is how many turns a critical memory must have gone
	// unaccessed before the sweep picks it up.
	CriticalStaleness int

	// CriticalLimit caps the critical sweep's candidates.
	CriticalLimit int

	// IntentTopK caps candidates per matched intent type.
	IntentTopK int
}

// DefaultConfig returns the default retrieval configuration.
func DefaultConfig() *Config {
	return &Config{
		TopK:                5,
		Margin:              2,
		SemanticFactor:      3,
		ConfidenceThreshold: 0.7,
		RecencyTau:          50,
		RecencyMax:          0.2,
		ImportanceWeight:    0.15,
		Windows:             []time.Duration{4 * time.Hour, 24 * time.Hour},
		WindowLimit:         5,
		CriticalImportance:  0.8,
		CriticalStaleness:   10,
		CriticalLimit:       2,
		IntentTopK:          3,
	}
}

// Score computes the composite retrieval score for one candidate.
//
// The score decreases monotonically with age and increases monotonically
// with similarity and importance. It is only compared within one retrieval
// call, so it is not normalized.
func (c *Config) Score(similarity, importance float64, ageTurns int) (recencyBoost, importanceBoost, finalScore float64) {
	if ageTurns < 0 {
		ageTurns = 0
	}
	recencyBoost = c.RecencyMax * math.Exp(-float64(ageTurns)/c.RecencyTau)
	importanceBoost = importance * c.ImportanceWeight
	finalScore = similarity + recencyBoost + importanceBoost
	return recencyBoost, importanceBoost, finalScore
}
