package corpus

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/kirillkom/funding-rag-assistant/internal/core/domain"
	"github.com/kirillkom/funding-rag-assistant/internal/core/ports"
	"github.com/kirillkom/funding-rag-assistant/internal/core/textnorm"
)

type snapshot struct {
	chunks     []domain.Chunk
	byID       map[string]int
	vocabulary domain.Vocabulary
	minYear    int
	maxYear    int
}

// Store serves structured reads over an immutable corpus snapshot. Reload
// swaps the snapshot atomically so readers never see a partial corpus.
type Store struct {
	source  ports.CorpusSource
	current atomic.Pointer[snapshot]
	version atomic.Uint64
}

func NewStore(source ports.CorpusSource) *Store {
	return &Store{source: source}
}

// NewStoreFromChunks builds a store over an in-memory corpus.
func NewStoreFromChunks(chunks []domain.Chunk) *Store {
	s := &Store{}
	s.current.Store(newSnapshot(chunks, s.version.Add(1)))
	return s
}

func (s *Store) Reload(ctx context.Context) (int, error) {
	if s.source == nil {
		return 0, domain.WrapError(domain.ErrCorpusUnavailable, "reload corpus", fmt.Errorf("no corpus source configured"))
	}
	chunks, err := s.source.Load(ctx)
	if err != nil {
		return 0, err
	}
	s.current.Store(newSnapshot(chunks, s.version.Add(1)))
	return len(chunks), nil
}

func (s *Store) load() *snapshot {
	if snap := s.current.Load(); snap != nil {
		return snap
	}
	return &snapshot{}
}

func (s *Store) Len() int {
	return len(s.load().chunks)
}

// All returns the chunks in corpus order.
func (s *Store) All() []domain.Chunk {
	snap := s.load()
	out := make([]domain.Chunk, len(snap.chunks))
	copy(out, snap.chunks)
	return out
}

func (s *Store) Get(id string) (domain.Chunk, bool) {
	snap := s.load()
	idx, ok := snap.byID[id]
	if !ok {
		return domain.Chunk{}, false
	}
	return snap.chunks[idx], true
}

// Scan returns every chunk matching filter, in corpus order.
func (s *Store) Scan(filter domain.Filter) []domain.Chunk {
	snap := s.load()
	out := make([]domain.Chunk, 0)
	for _, chunk := range snap.chunks {
		if filter.Matches(chunk.Metadata) {
			out = append(out, chunk)
		}
	}
	return out
}

// Lexical ranks filter-matching chunks by token overlap with text, then by
// amount. Chunks without any overlap are skipped unless text is empty.
func (s *Store) Lexical(text string, filter domain.Filter, limit int) []domain.Chunk {
	query := textnorm.TokenSet(text)

	type scored struct {
		chunk   domain.Chunk
		overlap float64
		order   int
	}
	var hits []scored
	for i, chunk := range s.load().chunks {
		if !filter.Matches(chunk.Metadata) {
			continue
		}
		overlap := textnorm.Overlap(query, chunk.Text)
		if len(query) > 0 && overlap == 0 {
			continue
		}
		hits = append(hits, scored{chunk: chunk, overlap: overlap, order: i})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].overlap != hits[j].overlap {
			return hits[i].overlap > hits[j].overlap
		}
		if hits[i].chunk.Metadata.Amount != hits[j].chunk.Metadata.Amount {
			return hits[i].chunk.Metadata.Amount > hits[j].chunk.Metadata.Amount
		}
		return hits[i].order < hits[j].order
	})

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]domain.Chunk, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.chunk)
	}
	return out
}

// YearSpan returns the smallest and largest funding year in the corpus, or
// zeros when no chunk carries a year.
func (s *Store) YearSpan() (int, int) {
	snap := s.load()
	return snap.minYear, snap.maxYear
}

func (s *Store) Vocabulary() domain.Vocabulary {
	return s.load().vocabulary
}

func newSnapshot(chunks []domain.Chunk, version uint64) *snapshot {
	snap := &snapshot{
		chunks: chunks,
		byID:   make(map[string]int, len(chunks)),
	}

	companies := newValueSet()
	cities := newValueSet()
	states := newValueSet()
	sectors := newValueSet()
	investors := newValueSet()
	rounds := newValueSet()

	for i, chunk := range chunks {
		snap.byID[chunk.ID] = i
		meta := chunk.Metadata
		if meta.Year > 0 {
			if snap.minYear == 0 || meta.Year < snap.minYear {
				snap.minYear = meta.Year
			}
			if meta.Year > snap.maxYear {
				snap.maxYear = meta.Year
			}
		}
		companies.add(meta.Company)
		cities.add(meta.City)
		states.add(meta.State)
		sectors.add(meta.Sector)
		rounds.add(meta.Round)
		for _, investor := range meta.Investors {
			investors.add(investor)
		}
	}

	snap.vocabulary = domain.Vocabulary{
		Version:   version,
		Companies: companies.sorted(),
		Cities:    cities.sorted(),
		States:    states.sorted(),
		Sectors:   sectors.sorted(),
		Investors: investors.sorted(),
		Rounds:    rounds.sorted(),
	}
	return snap
}

// valueSet keeps the first spelling seen for each case-insensitive value.
type valueSet map[string]string

func newValueSet() valueSet {
	return make(valueSet)
}

func (v valueSet) add(value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	key := strings.ToLower(value)
	if _, ok := v[key]; !ok {
		v[key] = value
	}
}

func (v valueSet) sorted() []string {
	out := make([]string, 0, len(v))
	for _, value := range v {
		out = append(out, value)
	}
	sort.Strings(out)
	return out
}
