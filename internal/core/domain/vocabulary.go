package domain

// Vocabulary lists the distinct canonical metadata values present in the corpus.
type Vocabulary struct {
	// Version changes whenever the corpus is reloaded.
	Version uint64

	Companies []string
	Cities    []string
	States    []string
	Sectors   []string
	Investors []string
	Rounds    []string
}
