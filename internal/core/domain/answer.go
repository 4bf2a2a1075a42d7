package domain

type QueryRequest struct {
	Query    string `json:"query"`
	Language string `json:"language,omitempty"`
}

type Source struct {
	Company   string  `json:"company"`
	Amount    float64 `json:"amount"`
	City      string  `json:"city"`
	Reference string  `json:"reference"`
}

type QueryResponse struct {
	Answer   string   `json:"answer"`
	Sources  []Source `json:"sources"`
	Language string   `json:"language"`
	Degraded bool     `json:"degraded"`

	Intent    Intent           `json:"intent,omitempty"`
	CacheHit  bool             `json:"cache_hit,omitempty"`
	Aggregate *Aggregate       `json:"aggregate,omitempty"`
	Groups    []GroupAggregate `json:"groups,omitempty"`
}

// Citation links a numbered context entry back to its chunk.
type Citation struct {
	Index   int     `json:"index"`
	ChunkID string  `json:"chunk_id"`
	Company string  `json:"company"`
	Amount  float64 `json:"amount"`
	City    string  `json:"city"`
	Year    int     `json:"year"`
}

func (c Citation) Source() Source {
	return Source{
		Company:   c.Company,
		Amount:    c.Amount,
		City:      c.City,
		Reference: c.ChunkID,
	}
}
