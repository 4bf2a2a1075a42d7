package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/kirillkom/funding-rag-assistant/internal/core/domain"
	"github.com/kirillkom/funding-rag-assistant/internal/core/ports"
)

// StatsUseCase answers structured aggregate requests without the language
// pipeline.
type StatsUseCase struct {
	corpus ports.CorpusStore
}

func NewStatsUseCase(corpus ports.CorpusStore) *StatsUseCase {
	return &StatsUseCase{corpus: corpus}
}

func (uc *StatsUseCase) Stats(ctx context.Context, filter domain.Filter) (domain.Aggregate, error) {
	if err := ctx.Err(); err != nil {
		return domain.Aggregate{}, err
	}
	if uc.corpus == nil {
		return domain.Aggregate{}, domain.WrapError(domain.ErrCorpusUnavailable, "stats", errors.New("no corpus loaded"))
	}
	if filter.Years != nil && filter.Years.From > filter.Years.To {
		return domain.Aggregate{}, domain.WrapError(domain.ErrInvalidInput, "stats", errors.New("year_from is after year_to"))
	}
	return ComputeAggregate(uc.corpus.Scan(filter)), nil
}

// CompanyProfile collects the rounds of the company whose name equals name,
// ignoring case and surrounding space.
func (uc *StatsUseCase) CompanyProfile(ctx context.Context, name string) (domain.CompanyProfile, error) {
	if err := ctx.Err(); err != nil {
		return domain.CompanyProfile{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.CompanyProfile{}, domain.WrapError(domain.ErrInvalidInput, "company profile", errors.New("company name is empty"))
	}
	if uc.corpus == nil {
		return domain.CompanyProfile{}, domain.WrapError(domain.ErrCorpusUnavailable, "company profile", errors.New("no corpus loaded"))
	}

	chunks := uc.corpus.Scan(domain.Filter{Company: name})
	if len(chunks) == 0 {
		return domain.CompanyProfile{}, domain.WrapError(domain.ErrNotFound, "company profile", fmt.Errorf("company %q is not in the dataset", name))
	}

	profile := domain.CompanyProfile{
		Company: strings.TrimSpace(chunks[0].Metadata.Company),
		Rounds:  make([]domain.FundingRound, 0, len(chunks)),
	}
	for _, chunk := range chunks {
		meta := chunk.Metadata
		profile.Rounds = append(profile.Rounds, domain.FundingRound{
			Reference: chunk.ID,
			Round:     meta.Round,
			Amount:    meta.Amount,
			Date:      meta.Date,
			Year:      meta.Year,
			Investors: meta.Investors,
			Sector:    meta.Sector,
			City:      meta.City,
			State:     meta.State,
		})
		if meta.Amount > 0 {
			profile.TotalFunding += meta.Amount
			profile.DisclosedRounds++
		}
	}
	sort.SliceStable(profile.Rounds, func(i, j int) bool {
		a, b := profile.Rounds[i], profile.Rounds[j]
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		return a.Date < b.Date
	})
	profile.TotalRounds = len(profile.Rounds)
	return profile, nil
}
