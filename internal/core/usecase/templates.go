package usecase

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kirillkom/funding-rag-assistant/internal/core/domain"
	"github.com/kirillkom/funding-rag-assistant/internal/core/money"
)

// Answers for aggregate, comparison and ranked questions are rendered from
// exact figures with the asker's label table; the language model never
// sees or rewrites them.

func renderAggregate(lang string, filter domain.Filter, agg domain.Aggregate, currency string) string {
	scope := describeScope(filter, currency)
	if agg.AmountCount == 0 {
		return fmt.Sprintf("%s%s: %d\n%s", message(lang, msgDeals), scope, agg.Count, message(lang, msgNoDisclosed))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s%s: %s (%s)", message(lang, msgTotalFunding), scope,
		money.Format(agg.Sum, currency), money.FormatExact(agg.Sum, currency))
	fmt.Fprintf(&b, "\n%s: %d (%s)", message(lang, msgDeals), agg.Count, message(lang, msgDisclosed, agg.AmountCount))
	fmt.Fprintf(&b, "\n%s: %s | %s: %s | %s: %s",
		message(lang, msgAverageDeal), money.Format(agg.Average, currency),
		message(lang, msgLargest), money.Format(agg.Max, currency),
		message(lang, msgSmallest), money.Format(agg.Min, currency))

	if len(agg.TopCompanies) > 0 {
		parts := make([]string, 0, len(agg.TopCompanies))
		for _, c := range agg.TopCompanies {
			parts = append(parts, fmt.Sprintf("%s (%s)", c.Name, money.Format(c.Amount, currency)))
		}
		fmt.Fprintf(&b, "\n%s: %s", message(lang, msgTopCompanies), strings.Join(parts, ", "))
	}
	if len(agg.TopInvestors) > 0 {
		parts := make([]string, 0, len(agg.TopInvestors))
		for _, inv := range agg.TopInvestors {
			parts = append(parts, fmt.Sprintf("%s (%d)", inv.Name, inv.Count))
		}
		fmt.Fprintf(&b, "\n%s: %s", message(lang, msgTopInvestors), strings.Join(parts, ", "))
	}
	return b.String()
}

func renderComparison(lang string, filter domain.Filter, groups []domain.GroupAggregate, currency string) string {
	if len(groups) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s%s", message(lang, msgComparison), dimensionLabel(lang, groups[0].Dimension), describeScope(filter, currency))

	best := -1
	for i, g := range groups {
		agg := g.Aggregate
		fmt.Fprintf(&b, "\n- %s: %s (%s) | %s: %d (%s)",
			g.Value, money.Format(agg.Sum, currency), money.FormatExact(agg.Sum, currency),
			message(lang, msgDeals), agg.Count, message(lang, msgDisclosed, agg.AmountCount))
		if agg.AmountCount > 0 {
			fmt.Fprintf(&b, " | %s: %s", message(lang, msgAverageDeal), money.Format(agg.Average, currency))
		}
		if g.Dimension == domain.CompareByYear && i > 0 {
			if prev := groups[i-1].Aggregate.Sum; prev > 0 {
				fmt.Fprintf(&b, " | %s: %+.1f%% vs %s", message(lang, msgGrowth), (agg.Sum-prev)/prev*100, groups[i-1].Value)
			}
		}
		if agg.Sum > 0 && (best < 0 || agg.Sum > groups[best].Aggregate.Sum) {
			best = i
		}
	}
	if best >= 0 {
		fmt.Fprintf(&b, "\n%s: %s", message(lang, msgHighest), groups[best].Value)
	}
	return b.String()
}

func renderRanked(lang string, filter domain.Filter, citations []domain.Citation, currency string) string {
	var b strings.Builder
	b.WriteString(message(lang, msgRankedHeader, len(citations)))
	b.WriteString(describeScope(filter, currency))
	for i, c := range citations {
		fmt.Fprintf(&b, "\n%d. %s", i+1, c.Company)
		if details := citationDetails(c); details != "" {
			fmt.Fprintf(&b, " (%s)", details)
		}
		fmt.Fprintf(&b, ": %s [%d]", money.Format(c.Amount, currency), c.Index)
	}
	return b.String()
}

// renderCitationList is the reply used when generation fails.
func renderCitationList(lang string, citations []domain.Citation, currency string) string {
	var b strings.Builder
	b.WriteString(message(lang, msgDegradedHeader))
	for _, c := range citations {
		fmt.Fprintf(&b, "\n[%d] %s", c.Index, c.Company)
		if details := citationDetails(c); details != "" {
			fmt.Fprintf(&b, ", %s", details)
		}
		fmt.Fprintf(&b, ": %s", money.Format(c.Amount, currency))
	}
	return b.String()
}

func dimensionLabel(lang string, dim domain.CompareDimension) string {
	switch dim {
	case domain.CompareByCity:
		return message(lang, msgDimCity)
	case domain.CompareBySector:
		return message(lang, msgDimSector)
	case domain.CompareByYear:
		return message(lang, msgDimYear)
	default:
		return string(dim)
	}
}

func citationDetails(c domain.Citation) string {
	var parts []string
	if c.City != "" {
		parts = append(parts, c.City)
	}
	if c.Year > 0 {
		parts = append(parts, strconv.Itoa(c.Year))
	}
	return strings.Join(parts, ", ")
}

// describeScope lists the filter values in parentheses. Values are canonical
// dataset names and symbols, so the same text reads in every language.
func describeScope(f domain.Filter, currency string) string {
	var parts []string
	for _, v := range []string{f.Company, f.Sector, f.Round, f.City, f.State, f.Investor} {
		if v != "" {
			parts = append(parts, v)
		}
	}
	if f.Years != nil {
		if f.Years.From == f.Years.To {
			parts = append(parts, strconv.Itoa(f.Years.From))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", f.Years.From, f.Years.To))
		}
	}
	if f.Amount != nil {
		parts = append(parts, amountPhrase(*f.Amount, currency))
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

func amountPhrase(a domain.AmountFilter, currency string) string {
	value := money.Format(a.Value, currency)
	switch a.Op {
	case domain.AmountGTE:
		return "≥ " + value
	case domain.AmountLT:
		return "< " + value
	case domain.AmountLTE:
		return "≤ " + value
	case domain.AmountEQ:
		return "= " + value
	default:
		return "> " + value
	}
}
