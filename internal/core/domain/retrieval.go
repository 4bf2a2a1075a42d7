package domain

// Candidate is one entry of an ordered retrieval result.
type Candidate struct {
	Chunk      Chunk   `json:"chunk"`
	Similarity float64 `json:"similarity"`
	Score      float64 `json:"score"`
	Rank       int     `json:"rank"`
}

type NameCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type NameAmount struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// Aggregate holds figures computed directly over filter-matching chunks.
// AmountCount counts only records with a disclosed amount; Average is taken
// over those.
type Aggregate struct {
	Count        int          `json:"count"`
	AmountCount  int          `json:"amount_count"`
	Sum          float64      `json:"sum"`
	Average      float64      `json:"average"`
	Min          float64      `json:"min"`
	Max          float64      `json:"max"`
	TopInvestors []NameCount  `json:"top_investors,omitempty"`
	TopCompanies []NameAmount `json:"top_companies,omitempty"`
}

type GroupAggregate struct {
	Dimension CompareDimension `json:"dimension"`
	Value     string           `json:"value"`
	Aggregate Aggregate        `json:"aggregate"`
}

type RetrievalResult struct {
	Candidates []Candidate
	Aggregate  *Aggregate
	Groups     []GroupAggregate

	// Ranked marks candidates already ordered by amount.
	Ranked   bool
	Degraded bool
	Err      error
}
