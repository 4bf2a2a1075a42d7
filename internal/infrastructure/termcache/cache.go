// Package termcache keeps term translations in memory and persists them
// through a pluggable store.
package termcache

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/funding-rag-assistant/internal/core/domain"
	"github.com/kirillkom/funding-rag-assistant/internal/core/ports"
	"github.com/kirillkom/funding-rag-assistant/internal/core/textnorm"
)

//go:embed seed.yaml
var seedYAML []byte

type key struct {
	source string
	target string
	term   string
}

type record struct {
	entry domain.TranslationEntry
	dirty bool
	// rev counts changes so Flush only clears what it actually wrote.
	rev uint64
}

func (r *record) touch() {
	r.dirty = true
	r.rev++
}

// Cache is safe for concurrent use. Seeded entries reach the store only
// once they are updated or looked up.
type Cache struct {
	mu      sync.RWMutex
	entries map[key]*record
	store   ports.TermStore
	now     func() time.Time
}

// New builds a cache seeded with the embedded vocabulary. store may be nil.
func New(store ports.TermStore) (*Cache, error) {
	c := &Cache{
		entries: make(map[key]*record),
		store:   store,
		now:     time.Now,
	}
	if err := c.seed(seedYAML); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Cache) seed(raw []byte) error {
	var vocab map[string]map[string]string
	if err := yaml.Unmarshal(raw, &vocab); err != nil {
		return fmt.Errorf("decode term seed: %w", err)
	}
	for lang, terms := range vocab {
		for pivot, native := range terms {
			c.set(domain.TranslationEntry{SourceTerm: pivot, SourceLang: domain.PivotLanguage, TargetLang: lang, TranslatedTerm: native}, false)
			c.set(domain.TranslationEntry{SourceTerm: native, SourceLang: lang, TargetLang: domain.PivotLanguage, TranslatedTerm: pivot}, false)
		}
	}
	return nil
}

func newKey(sourceLang, targetLang, term string) key {
	return key{source: sourceLang, target: targetLang, term: textnorm.Fold(term)}
}

// Get looks up a translation and counts the hit. The new count is flushed
// with the next batch.
func (c *Cache) Get(sourceLang, targetLang, term string) (string, bool) {
	k := newKey(sourceLang, targetLang, term)
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.entries[k]
	if !ok {
		return "", false
	}
	rec.entry.HitCount++
	rec.touch()
	return rec.entry.TranslatedTerm, true
}

// Put creates or replaces a translation and marks it for persistence.
func (c *Cache) Put(entry domain.TranslationEntry) {
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = c.now().UTC()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(entry, true)
}

func (c *Cache) set(entry domain.TranslationEntry, dirty bool) {
	k := newKey(entry.SourceLang, entry.TargetLang, entry.SourceTerm)
	entry.SourceTerm = k.term
	if rec, ok := c.entries[k]; ok {
		if entry.HitCount < rec.entry.HitCount {
			entry.HitCount = rec.entry.HitCount
		}
		rec.entry = entry
		if dirty {
			rec.touch()
		}
		return
	}
	c.entries[k] = &record{entry: entry, dirty: dirty}
}

// Reverse returns native term -> pivot term pairs known for lang.
func (c *Cache) Reverse(lang string) map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string)
	for k, rec := range c.entries {
		switch {
		case k.source == lang && k.target == domain.PivotLanguage:
			out[k.term] = rec.entry.TranslatedTerm
		case k.source == domain.PivotLanguage && k.target == lang:
			native := textnorm.Fold(rec.entry.TranslatedTerm)
			if _, exists := out[native]; !exists {
				out[native] = k.term
			}
		}
	}
	return out
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Load hydrates the cache from the store. Stored entries override seeds.
func (c *Cache) Load(ctx context.Context) (int, error) {
	if c.store == nil {
		return 0, nil
	}
	entries, err := c.store.LoadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("load term cache: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, entry := range entries {
		c.set(entry, false)
	}
	return len(entries), nil
}

// Flush writes dirty entries to the store. Entries stay dirty on failure.
func (c *Cache) Flush(ctx context.Context) (int, error) {
	if c.store == nil {
		return 0, nil
	}

	c.mu.RLock()
	var batch []domain.TranslationEntry
	revs := make(map[key]uint64)
	for k, rec := range c.entries {
		if rec.dirty {
			batch = append(batch, rec.entry)
			revs[k] = rec.rev
		}
	}
	c.mu.RUnlock()
	if len(batch) == 0 {
		return 0, nil
	}
	sort.Slice(batch, func(i, j int) bool {
		if batch[i].SourceLang != batch[j].SourceLang {
			return batch[i].SourceLang < batch[j].SourceLang
		}
		if batch[i].TargetLang != batch[j].TargetLang {
			return batch[i].TargetLang < batch[j].TargetLang
		}
		return batch[i].SourceTerm < batch[j].SourceTerm
	})

	if err := c.store.UpsertBatch(ctx, batch); err != nil {
		return 0, fmt.Errorf("flush term cache: %w", err)
	}

	c.mu.Lock()
	for k, rev := range revs {
		if rec, ok := c.entries[k]; ok && rec.rev == rev {
			rec.dirty = false
		}
	}
	c.mu.Unlock()
	return len(batch), nil
}

// Run flushes on every tick until ctx is done, then flushes once more.
func (c *Cache) Run(ctx context.Context, interval time.Duration) {
	if c.store == nil || interval <= 0 {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if n, err := c.Flush(flushCtx); err != nil {
				slog.Error("term_cache_flush_failed", "error", err)
			} else if n > 0 {
				slog.Info("term_cache_flushed", "entries", n)
			}
			cancel()
			return
		case <-ticker.C:
			if n, err := c.Flush(ctx); err != nil {
				slog.Warn("term_cache_flush_failed", "error", err)
			} else if n > 0 {
				slog.Info("term_cache_flushed", "entries", n)
			}
		}
	}
}
