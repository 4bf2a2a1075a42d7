package usecase

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/funding-rag-assistant/internal/core/domain"
	"github.com/kirillkom/funding-rag-assistant/internal/core/money"
	"github.com/kirillkom/funding-rag-assistant/internal/core/textnorm"
)

const (
	charsPerToken           = 4
	defaultTruncateMinRatio = 0.75
	entrySeparator          = "\n\n"
)

type AssemblerConfig struct {
	MaxTokens        int
	TruncateMinRatio float64
	Currency         string
}

type Assembler struct {
	cfg AssemblerConfig
}

func NewAssembler(cfg AssemblerConfig) *Assembler {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2000
	}
	if cfg.TruncateMinRatio <= 0 || cfg.TruncateMinRatio > 1 {
		cfg.TruncateMinRatio = defaultTruncateMinRatio
	}
	return &Assembler{cfg: cfg}
}

// Assemble builds the numbered context block. Near-duplicate records keep
// their highest-scored instance. Entries are added in order until the budget
// runs out; the entry that overflows is truncated when most of it fits and
// dropped otherwise. Citations follow inclusion order.
func (a *Assembler) Assemble(candidates []domain.Candidate) (string, []domain.Citation) {
	kept := dedupCandidates(candidates)
	budget := a.cfg.MaxTokens * charsPerToken

	var b strings.Builder
	used := 0
	citations := make([]domain.Citation, 0, len(kept))

	for _, c := range kept {
		index := len(citations) + 1
		entry := a.formatEntry(index, c.Chunk)
		size := utf8.RuneCountInString(entry)
		sep := 0
		if used > 0 {
			sep = utf8.RuneCountInString(entrySeparator)
		}

		truncated := false
		if used+sep+size > budget {
			remaining := budget - used - sep
			if remaining <= 0 || float64(remaining) < a.cfg.TruncateMinRatio*float64(size) {
				break
			}
			entry = textnorm.Truncate(entry, remaining)
			size = utf8.RuneCountInString(entry)
			truncated = true
		}

		if sep > 0 {
			b.WriteString(entrySeparator)
		}
		b.WriteString(entry)
		used += sep + size
		citations = append(citations, citationOf(index, c.Chunk))
		if truncated {
			break
		}
	}
	return b.String(), citations
}

func (a *Assembler) formatEntry(index int, chunk domain.Chunk) string {
	meta := chunk.Metadata
	var details []string
	for _, v := range []string{meta.City, meta.State, meta.Sector, meta.Round, meta.Date} {
		if v = strings.TrimSpace(v); v != "" {
			details = append(details, v)
		}
	}
	if meta.Date == "" && meta.Year > 0 {
		details = append(details, fmt.Sprintf("%d", meta.Year))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%d] %s", index, meta.Company)
	if len(details) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(details, ", "))
	}
	fmt.Fprintf(&b, ": %s", money.Format(meta.Amount, a.cfg.Currency))
	if len(meta.Investors) > 0 {
		fmt.Fprintf(&b, "\nInvestors: %s", strings.Join(meta.Investors, ", "))
	}
	if text := strings.TrimSpace(chunk.Text); text != "" {
		b.WriteString("\n")
		b.WriteString(text)
	}
	return b.String()
}

// dedupCandidates keeps, for each company+year+amount key, the candidate with
// the highest score at its own position.
func dedupCandidates(candidates []domain.Candidate) []domain.Candidate {
	best := make(map[string]int, len(candidates))
	for i, c := range candidates {
		key := c.Chunk.Metadata.DedupKey()
		if j, ok := best[key]; !ok || c.Score > candidates[j].Score {
			best[key] = i
		}
	}
	out := make([]domain.Candidate, 0, len(best))
	for i, c := range candidates {
		if best[c.Chunk.Metadata.DedupKey()] == i {
			out = append(out, c)
		}
	}
	return out
}

func citationOf(index int, chunk domain.Chunk) domain.Citation {
	return domain.Citation{
		Index:   index,
		ChunkID: chunk.ID,
		Company: chunk.Metadata.Company,
		Amount:  chunk.Metadata.Amount,
		City:    chunk.Metadata.City,
		Year:    chunk.Metadata.Year,
	}
}
