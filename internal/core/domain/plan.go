package domain

type Intent string

const (
	IntentLookup    Intent = "LOOKUP"
	IntentAggregate Intent = "AGGREGATE"
	IntentCompare   Intent = "COMPARE"
	IntentUnknown   Intent = "UNKNOWN"
)

type CompareDimension string

const (
	CompareByYear   CompareDimension = "year"
	CompareByCity   CompareDimension = "city"
	CompareBySector CompareDimension = "sector"
)

type Comparison struct {
	Dimension CompareDimension `json:"dimension"`
	Values    []string         `json:"values"`
}

type QueryPlan struct {
	Intent   Intent `json:"intent"`
	Filter   Filter `json:"filter"`
	Residual string `json:"residual_text"`

	// Limit and SortByAmount come from phrases like "top 5" or "largest".
	Limit        int         `json:"limit,omitempty"`
	SortByAmount bool        `json:"sort_by_amount,omitempty"`
	Compare      *Comparison `json:"compare,omitempty"`
}

func (p QueryPlan) Ranked() bool {
	return p.Limit > 0 || p.SortByAmount
}
