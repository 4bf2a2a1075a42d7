package domain

// FundingRound is one dataset record of a company raising money. Amount is
// zero when undisclosed.
type FundingRound struct {
	Reference string   `json:"reference"`
	Round     string   `json:"round,omitempty"`
	Amount    float64  `json:"amount"`
	Date      string   `json:"date,omitempty"`
	Year      int      `json:"year,omitempty"`
	Investors []string `json:"investors,omitempty"`
	Sector    string   `json:"sector,omitempty"`
	City      string   `json:"city,omitempty"`
	State     string   `json:"state,omitempty"`
}

// CompanyProfile lists every round of one company, oldest first.
type CompanyProfile struct {
	Company         string         `json:"company"`
	Rounds          []FundingRound `json:"funding_rounds"`
	TotalFunding    float64        `json:"total_funding"`
	TotalRounds     int            `json:"total_rounds"`
	DisclosedRounds int            `json:"disclosed_rounds"`
}
