package usecase

import (
	"sort"
	"strings"

	"github.com/kirillkom/funding-rag-assistant/internal/core/domain"
)

const topAggregateEntries = 5

// ComputeAggregate computes exact figures over chunks. Every chunk counts as
// a deal; only disclosed amounts contribute to the sum, average and extremes.
func ComputeAggregate(chunks []domain.Chunk) domain.Aggregate {
	var agg domain.Aggregate
	investors := newNameTally()
	companies := newNameTally()

	for _, chunk := range chunks {
		meta := chunk.Metadata
		agg.Count++
		for _, investor := range meta.Investors {
			investors.add(investor, 1)
		}
		if meta.Amount <= 0 {
			continue
		}
		companies.add(meta.Company, meta.Amount)
		if agg.AmountCount == 0 || meta.Amount < agg.Min {
			agg.Min = meta.Amount
		}
		if meta.Amount > agg.Max {
			agg.Max = meta.Amount
		}
		agg.AmountCount++
		agg.Sum += meta.Amount
	}
	if agg.AmountCount > 0 {
		agg.Average = agg.Sum / float64(agg.AmountCount)
	}

	for _, entry := range investors.top(topAggregateEntries) {
		agg.TopInvestors = append(agg.TopInvestors, domain.NameCount{Name: entry.name, Count: int(entry.value)})
	}
	for _, entry := range companies.top(topAggregateEntries) {
		agg.TopCompanies = append(agg.TopCompanies, domain.NameAmount{Name: entry.name, Amount: entry.value})
	}
	return agg
}

type tallyEntry struct {
	name  string
	value float64
}

// nameTally sums values per case-insensitive name, keeping the first spelling.
type nameTally struct {
	index   map[string]int
	entries []tallyEntry
}

func newNameTally() *nameTally {
	return &nameTally{index: make(map[string]int)}
}

func (t *nameTally) add(name string, value float64) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	key := strings.ToLower(name)
	if i, ok := t.index[key]; ok {
		t.entries[i].value += value
		return
	}
	t.index[key] = len(t.entries)
	t.entries = append(t.entries, tallyEntry{name: name, value: value})
}

func (t *nameTally) top(n int) []tallyEntry {
	out := append([]tallyEntry(nil), t.entries...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].value != out[j].value {
			return out[i].value > out[j].value
		}
		return out[i].name < out[j].name
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
