package corpus

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/kirillkom/funding-rag-assistant/internal/core/domain"
	"github.com/kirillkom/funding-rag-assistant/internal/core/gazetteer"
	"github.com/kirillkom/funding-rag-assistant/internal/core/money"
)

type field string

const (
	fieldID        field = "id"
	fieldCompany   field = "company"
	fieldCity      field = "city"
	fieldState     field = "state"
	fieldSector    field = "sector"
	fieldInvestors field = "investors"
	fieldRound     field = "round"
	fieldAmount    field = "amount"
	fieldDate      field = "date"
	fieldYear      field = "year"
	fieldText      field = "text"
)

var columnAliases = map[field][]string{
	fieldID:        {"id", "chunk id", "sr no", "sno", "s no"},
	fieldCompany:   {"company", "startup name", "startup", "company name", "name"},
	fieldCity:      {"city", "city location", "location"},
	fieldState:     {"state"},
	fieldSector:    {"sector", "industry vertical", "industry", "vertical"},
	fieldInvestors: {"investors", "investors name", "investor", "investor names", "investors names"},
	fieldRound:     {"round", "investmentntype", "investment type", "round type", "stage"},
	fieldAmount:    {"amount", "amount in usd", "amount in inr", "amount cleaned"},
	fieldDate:      {"date", "date dd mm yyyy", "funding date"},
	fieldYear:      {"year"},
	fieldText:      {"text", "content", "description"},
}

var dateLayouts = []string{
	"02/01/2006", "2/1/2006", "02.01.2006", "2.1.2006", "2006-01-02", "02-01-2006",
	"Jan 2, 2006", "2 Jan 2006", "January 2006", "01/2006",
}

// FileSource loads a finalized corpus file. Supported formats: .json, .yaml,
// .yml, .csv and .xlsx.
type FileSource struct {
	path     string
	currency string
}

func NewFileSource(path, currency string) *FileSource {
	return &FileSource{path: path, currency: currency}
}

func (s *FileSource) Path() string {
	return s.path
}

func (s *FileSource) Load(ctx context.Context) ([]domain.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		rows []map[string]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(s.path)) {
	case ".csv":
		rows, err = readCSV(s.path)
	case ".xlsx":
		rows, err = readXLSX(s.path)
	case ".json":
		rows, err = readStructured(s.path, json.Unmarshal)
	case ".yaml", ".yml":
		rows, err = readStructured(s.path, yaml.Unmarshal)
	default:
		return nil, domain.WrapError(domain.ErrCorpusUnavailable, "load corpus", fmt.Errorf("unsupported corpus format: %s", s.path))
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrCorpusUnavailable, "load corpus", err)
	}
	return buildChunks(rows, s.currency)
}

func readCSV(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	var rows []map[string]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv record: %w", err)
		}
		rows = append(rows, zipRow(header, record))
	}
	return rows, nil
}

func readXLSX(path string) ([]map[string]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx has no sheets")
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read xlsx rows: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("xlsx sheet %q is empty", sheets[0])
	}

	rows := make([]map[string]string, 0, len(records)-1)
	for _, record := range records[1:] {
		rows = append(rows, zipRow(records[0], record))
	}
	return rows, nil
}

// readStructured accepts either a list of flat records or a list of chunks
// with a nested "metadata" object, optionally wrapped in {"chunks": [...]}.
func readStructured(path string, unmarshal func([]byte, any) error) ([]map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus file: %w", err)
	}

	var records []map[string]any
	if err := unmarshal(raw, &records); err != nil {
		var wrapped struct {
			Chunks []map[string]any `json:"chunks" yaml:"chunks"`
		}
		if err2 := unmarshal(raw, &wrapped); err2 != nil {
			return nil, fmt.Errorf("decode corpus records: %w", err)
		}
		records = wrapped.Chunks
	}

	rows := make([]map[string]string, 0, len(records))
	for _, record := range records {
		row := make(map[string]string, len(record))
		for key, value := range record {
			if nested, ok := value.(map[string]any); ok && normalizeHeader(key) == "metadata" {
				for nk, nv := range nested {
					row[nk] = stringify(nv)
				}
				continue
			}
			row[key] = stringify(value)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, stringify(item))
		}
		return strings.Join(parts, ", ")
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func zipRow(header, record []string) map[string]string {
	row := make(map[string]string, len(header))
	for i, name := range header {
		if i < len(record) {
			row[name] = record[i]
		}
	}
	return row
}

// resolveColumns maps every known field to the source column that carries it.
func resolveColumns(rows []map[string]string) map[field]string {
	headers := map[string]string{}
	for _, row := range rows {
		for key := range row {
			headers[normalizeHeader(key)] = key
		}
	}

	out := make(map[field]string)
	for f, aliases := range columnAliases {
		for _, alias := range aliases {
			if original, ok := headers[alias]; ok {
				out[f] = original
				break
			}
		}
	}
	for _, f := range []field{fieldAmount, fieldDate} {
		if _, ok := out[f]; ok {
			continue
		}
		for normalized, original := range headers {
			if strings.Contains(normalized, string(f)) {
				out[f] = original
				break
			}
		}
	}
	return out
}

func normalizeHeader(h string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, h)
	return strings.Join(strings.Fields(mapped), " ")
}

func buildChunks(rows []map[string]string, currency string) ([]domain.Chunk, error) {
	if len(rows) == 0 {
		return nil, domain.WrapError(domain.ErrCorpusUnavailable, "load corpus", fmt.Errorf("corpus is empty"))
	}

	cols := resolveColumns(rows)
	var missing []string
	for _, f := range []field{fieldCompany, fieldAmount} {
		if _, ok := cols[f]; !ok {
			missing = append(missing, string(f))
		}
	}
	_, hasDate := cols[fieldDate]
	_, hasYear := cols[fieldYear]
	if !hasDate && !hasYear {
		missing = append(missing, "date|year")
	}
	if len(missing) > 0 {
		return nil, domain.WrapError(domain.ErrCorpusSchema, "load corpus", fmt.Errorf("missing columns: %s", strings.Join(missing, ", ")))
	}

	get := func(row map[string]string, f field) string {
		col, ok := cols[f]
		if !ok {
			return ""
		}
		return strings.TrimSpace(row[col])
	}

	chunks := make([]domain.Chunk, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for i, row := range rows {
		company := get(row, fieldCompany)
		if company == "" {
			continue
		}

		id := get(row, fieldID)
		if id == "" {
			id = "row-" + strconv.Itoa(i+1)
		}
		if _, dup := seen[id]; dup {
			id = id + "-" + strconv.Itoa(i+1)
		}
		seen[id] = struct{}{}

		amount, _ := money.Parse(get(row, fieldAmount))
		date, year := parseDate(get(row, fieldDate))
		if y, err := strconv.Atoi(get(row, fieldYear)); err == nil && y > 0 {
			year = y
		}

		cityRaw := get(row, fieldCity)
		city, known := gazetteer.CanonicalCity(cityRaw)
		if !known {
			city = strings.TrimSpace(cityRaw)
		}
		state, ok := gazetteer.CanonicalState(get(row, fieldState))
		if !ok {
			state = get(row, fieldState)
		}
		if state == "" {
			state = gazetteer.StateOf(city)
		}

		meta := domain.ChunkMetadata{
			Company:   company,
			City:      city,
			State:     state,
			Sector:    gazetteer.CanonicalSector(get(row, fieldSector)),
			Investors: splitInvestors(get(row, fieldInvestors)),
			Round:     gazetteer.CanonicalRound(get(row, fieldRound)),
			Amount:    amount,
			Date:      date,
			Year:      year,
		}

		text := get(row, fieldText)
		if text == "" {
			text = describe(meta, currency)
		}
		chunks = append(chunks, domain.Chunk{ID: id, Text: text, Metadata: meta})
	}

	if len(chunks) == 0 {
		return nil, domain.WrapError(domain.ErrCorpusUnavailable, "load corpus", fmt.Errorf("no usable records"))
	}
	return chunks, nil
}

func parseDate(raw string) (string, int) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", 0
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02"), t.Year()
		}
	}
	if y, err := strconv.Atoi(raw); err == nil && y > 1900 && y < 2100 {
		return raw, y
	}
	return raw, 0
}

func splitInvestors(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == '&' || r == ';' })
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" || strings.EqualFold(part, "undisclosed investors") || strings.EqualFold(part, "undisclosed") {
			continue
		}
		out = append(out, part)
	}
	return out
}

func describe(meta domain.ChunkMetadata, currency string) string {
	var b strings.Builder
	b.WriteString(meta.Company)

	var where []string
	for _, part := range []string{meta.Sector, meta.City, meta.State} {
		if part != "" {
			where = append(where, part)
		}
	}
	if len(where) > 0 {
		b.WriteString(" (" + strings.Join(where, ", ") + ")")
	}

	if meta.Amount > 0 {
		b.WriteString(" raised " + money.Format(meta.Amount, currency))
	} else {
		b.WriteString(" raised an undisclosed amount")
	}
	if meta.Round != "" {
		b.WriteString(" in a " + meta.Round + " round")
	}
	switch {
	case meta.Date != "":
		b.WriteString(" on " + meta.Date)
	case meta.Year > 0:
		b.WriteString(" in " + strconv.Itoa(meta.Year))
	}
	if len(meta.Investors) > 0 {
		b.WriteString(" from " + strings.Join(meta.Investors, ", "))
	}
	b.WriteString(".")
	return b.String()
}
