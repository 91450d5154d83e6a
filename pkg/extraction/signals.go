package extraction

// DefaultSignalLexicon returns the built-in list of self-referential and
// preference signal phrases. A message containing any of them (case
// insensitive) triggers extraction outside the cadence turns.
//
// The lexicon is plain data so deployments can extend it without touching
// the gating logic.
func DefaultSignalLexicon() []string {
	return []string{
		"my name",
		"i am",
		"i'm",
		"call me",
		"i live",
		"i work",
		"i like",
		"i love",
		"i prefer",
		"i hate",
		"i dislike",
		"i want",
		"i need",
		"my favorite",
		"remember",
		"don't forget",
		"always",
		"never",
		"from now on",
		"i moved",
		"my birthday",
		"my wife",
		"my husband",
		"my partner",
		"my job",
	}
}
