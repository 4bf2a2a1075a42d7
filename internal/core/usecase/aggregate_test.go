package usecase

import (
	"testing"

	"github.com/kirillkom/funding-rag-assistant/internal/core/domain"
)

func TestComputeAggregateMatchesDirectSum(t *testing.T) {
	corpus := newCorpusFake()
	filter := domain.Filter{State: "Karnataka", Years: &domain.YearRange{From: 2019, To: 2019}}
	chunks := corpus.Scan(filter)

	var want float64
	disclosed := 0
	for _, chunk := range corpus.chunks {
		if chunk.Metadata.State == "Karnataka" && chunk.Metadata.Year == 2019 && chunk.Metadata.Amount > 0 {
			want += chunk.Metadata.Amount
			disclosed++
		}
	}

	agg := ComputeAggregate(chunks)
	if agg.Sum != want {
		t.Fatalf("expected sum %v, got %v", want, agg.Sum)
	}
	if agg.AmountCount != disclosed || agg.Count != len(chunks) {
		t.Fatalf("expected %d/%d deals, got %d/%d", disclosed, len(chunks), agg.AmountCount, agg.Count)
	}
	if agg.Average != want/float64(disclosed) {
		t.Fatalf("expected average %v, got %v", want/float64(disclosed), agg.Average)
	}
	if agg.Max != 10_000_000_000 || agg.Min != 50_000_000 {
		t.Fatalf("unexpected extremes min=%v max=%v", agg.Min, agg.Max)
	}
}

func TestComputeAggregateExcludesUndisclosedAmounts(t *testing.T) {
	corpus := newCorpusFake()
	agg := ComputeAggregate(corpus.Scan(domain.Filter{Years: &domain.YearRange{From: 2020, To: 2020}}))

	if agg.Count != 3 || agg.AmountCount != 2 {
		t.Fatalf("expected 3 deals with 2 disclosed, got %d and %d", agg.Count, agg.AmountCount)
	}
	if agg.Min != 1_000_000_000 {
		t.Fatalf("expected undisclosed amount to be ignored for the minimum, got %v", agg.Min)
	}
	if agg.Average != 1_500_000_000 {
		t.Fatalf("expected average over disclosed amounts, got %v", agg.Average)
	}
}

func TestComputeAggregateTopLists(t *testing.T) {
	corpus := newCorpusFake()
	agg := ComputeAggregate(corpus.Scan(domain.Filter{Sector: "fintech", City: "Bangalore"}))

	if len(agg.TopCompanies) == 0 || agg.TopCompanies[0].Name != "Razorpay" || agg.TopCompanies[0].Amount != 9_000_000_000 {
		t.Fatalf("expected Razorpay summed across rounds first, got %+v", agg.TopCompanies)
	}
	if len(agg.TopInvestors) == 0 || agg.TopInvestors[0] != (domain.NameCount{Name: "Sequoia Capital", Count: 3}) {
		t.Fatalf("expected Sequoia Capital with 3 deals first, got %+v", agg.TopInvestors)
	}
	if len(agg.TopCompanies) > topAggregateEntries || len(agg.TopInvestors) > topAggregateEntries {
		t.Fatalf("expected top lists capped at %d", topAggregateEntries)
	}
}

func TestComputeAggregateEmpty(t *testing.T) {
	agg := ComputeAggregate(nil)
	if agg.Count != 0 || agg.Sum != 0 || agg.Average != 0 {
		t.Fatalf("expected zero aggregate, got %+v", agg)
	}
}
