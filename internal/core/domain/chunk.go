package domain

import (
	"strconv"
	"strings"
)

// Chunk is one indexed funding record. Chunks are owned by the ingestion
// process; the core only reads them.
type Chunk struct {
	ID        string        `json:"id" yaml:"id"`
	Text      string        `json:"text" yaml:"text"`
	Embedding []float32     `json:"embedding,omitempty" yaml:"embedding,omitempty"`
	Metadata  ChunkMetadata `json:"metadata" yaml:"metadata"`
}

type ChunkMetadata struct {
	Company   string   `json:"company" yaml:"company"`
	City      string   `json:"city" yaml:"city"`
	State     string   `json:"state" yaml:"state"`
	Sector    string   `json:"sector" yaml:"sector"`
	Investors []string `json:"investors" yaml:"investors"`
	Round     string   `json:"round" yaml:"round"`
	Amount    float64  `json:"amount" yaml:"amount"`
	Date      string   `json:"date" yaml:"date"`
	Year      int      `json:"year" yaml:"year"`
}

// HasInvestor reports whether name matches one of the investors, ignoring case.
func (m ChunkMetadata) HasInvestor(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	for _, investor := range m.Investors {
		if strings.EqualFold(strings.TrimSpace(investor), name) {
			return true
		}
	}
	return false
}

// DedupKey identifies near-identical records: same company, year and amount.
func (m ChunkMetadata) DedupKey() string {
	return strings.ToLower(strings.Join(strings.Fields(m.Company), " ")) + "|" +
		strconv.Itoa(m.Year) + "|" + strconv.FormatFloat(m.Amount, 'f', 2, 64)
}
