package qdrant

import (
	"fmt"
	"strings"

	"github.com/kirillkom/funding-rag-assistant/internal/core/domain"
)

// Keyword fields are stored twice: as displayed and lowercased under a *_key
// name, because Qdrant keyword matches are case-sensitive.
func chunkPayload(chunk domain.Chunk) map[string]any {
	meta := chunk.Metadata
	investorKeys := make([]string, 0, len(meta.Investors))
	for _, investor := range meta.Investors {
		investorKeys = append(investorKeys, normKey(investor))
	}
	investors := meta.Investors
	if investors == nil {
		investors = []string{}
	}

	return map[string]any{
		"chunk_id":      chunk.ID,
		"text":          chunk.Text,
		"company":       meta.Company,
		"city":          meta.City,
		"state":         meta.State,
		"sector":        meta.Sector,
		"investors":     investors,
		"round":         meta.Round,
		"amount":        meta.Amount,
		"date":          meta.Date,
		"year":          meta.Year,
		"company_key":   normKey(meta.Company),
		"city_key":      normKey(meta.City),
		"state_key":     normKey(meta.State),
		"sector_key":    normKey(meta.Sector),
		"round_key":     normKey(meta.Round),
		"investor_keys": investorKeys,
	}
}

func payloadChunk(payload map[string]any) domain.Chunk {
	return domain.Chunk{
		ID:   getStringPayload(payload, "chunk_id"),
		Text: getStringPayload(payload, "text"),
		Metadata: domain.ChunkMetadata{
			Company:   getStringPayload(payload, "company"),
			City:      getStringPayload(payload, "city"),
			State:     getStringPayload(payload, "state"),
			Sector:    getStringPayload(payload, "sector"),
			Investors: getStringsPayload(payload, "investors"),
			Round:     getStringPayload(payload, "round"),
			Amount:    getFloatPayload(payload, "amount"),
			Date:      getStringPayload(payload, "date"),
			Year:      int(getFloatPayload(payload, "year")),
		},
	}
}

// buildFilter translates the structured filter into Qdrant "must" conditions.
func buildFilter(f domain.Filter) map[string]any {
	var must []map[string]any
	match := func(key, value string) {
		if value = normKey(value); value != "" {
			must = append(must, map[string]any{"key": key, "match": map[string]any{"value": value}})
		}
	}

	match("city_key", f.City)
	match("state_key", f.State)
	match("sector_key", f.Sector)
	match("round_key", f.Round)
	match("investor_keys", f.Investor)
	match("company_key", f.Company)

	if f.Years != nil {
		must = append(must, map[string]any{
			"key":   "year",
			"range": map[string]any{"gte": f.Years.From, "lte": f.Years.To},
		})
	}
	if f.Amount != nil {
		if r := amountRange(*f.Amount); r != nil {
			must = append(must, map[string]any{"key": "amount", "range": r})
		}
	}

	if len(must) == 0 {
		return nil
	}
	return map[string]any{"must": must}
}

// Undisclosed amounts are stored as 0 and never satisfy an upper bound.
func amountRange(a domain.AmountFilter) map[string]any {
	switch a.Op {
	case domain.AmountGT:
		return map[string]any{"gt": a.Value}
	case domain.AmountGTE:
		return map[string]any{"gte": a.Value}
	case domain.AmountLT:
		return map[string]any{"gt": 0, "lt": a.Value}
	case domain.AmountLTE:
		return map[string]any{"gt": 0, "lte": a.Value}
	case domain.AmountEQ:
		return map[string]any{"gte": a.Value, "lte": a.Value}
	default:
		return nil
	}
}

func normKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func getStringsPayload(payload map[string]any, key string) []string {
	raw, ok := payload[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func getFloatPayload(payload map[string]any, key string) float64 {
	switch v := payload[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}
