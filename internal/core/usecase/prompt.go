package usecase

import (
	"fmt"
	"strings"

	"github.com/kirillkom/funding-rag-assistant/internal/core/domain"
	"github.com/kirillkom/funding-rag-assistant/internal/core/money"
)

// BuildPrompt renders the generation prompt. Exact figures, when present, are
// listed ahead of the context so the model copies them instead of computing.
func BuildPrompt(question, contextBlock string, aggregate *domain.Aggregate, groups []domain.GroupAggregate, currency string) string {
	var b strings.Builder
	b.WriteString(`You answer questions about startup funding using only the numbered context records below.
Rules:
- Use only facts from the context. Do not add outside knowledge.
- Cite the records you use with their numbers, like [1] or [2][3].
- Copy company names, amounts and years exactly as written.
- If the context does not contain the answer, say that the dataset has no matching records.
- Answer in English, in at most a few sentences or a short list.
`)

	if figures := renderFigures(aggregate, groups, currency); figures != "" {
		b.WriteString("\nExact figures (computed over the full dataset, use them verbatim):\n")
		b.WriteString(figures)
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\nContext:\n%s\n\nQuestion:\n%s\n", strings.TrimSpace(contextBlock), strings.TrimSpace(question))
	return b.String()
}

func renderFigures(aggregate *domain.Aggregate, groups []domain.GroupAggregate, currency string) string {
	var lines []string
	if aggregate != nil {
		lines = append(lines, "- "+figureLine("all matching deals", *aggregate, currency))
	}
	for _, g := range groups {
		lines = append(lines, "- "+figureLine(fmt.Sprintf("%s %s", g.Dimension, g.Value), g.Aggregate, currency))
	}
	return strings.Join(lines, "\n")
}

func figureLine(label string, agg domain.Aggregate, currency string) string {
	return fmt.Sprintf("%s: %d deals, %d with disclosed amounts, total %s, average %s",
		label, agg.Count, agg.AmountCount,
		money.FormatExact(agg.Sum, currency), money.FormatExact(agg.Average, currency))
}
