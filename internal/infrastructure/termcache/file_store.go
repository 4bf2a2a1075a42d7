package termcache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/funding-rag-assistant/internal/core/domain"
)

// FileStore persists entries as a YAML list. Writes go to a temp file that is
// renamed over the target.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) LoadAll(ctx context.Context) ([]domain.TranslationEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *FileStore) read() ([]domain.TranslationEntry, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read term store: %w", err)
	}
	var entries []domain.TranslationEntry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode term store: %w", err)
	}
	return entries, nil
}

func (s *FileStore) UpsertBatch(ctx context.Context, batch []domain.TranslationEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.read()
	if err != nil {
		return err
	}

	type storeKey struct{ source, target, term string }
	merged := make(map[storeKey]domain.TranslationEntry, len(existing)+len(batch))
	for _, entry := range existing {
		merged[storeKey{entry.SourceLang, entry.TargetLang, entry.SourceTerm}] = entry
	}
	for _, entry := range batch {
		merged[storeKey{entry.SourceLang, entry.TargetLang, entry.SourceTerm}] = entry
	}

	out := make([]domain.TranslationEntry, 0, len(merged))
	for _, entry := range merged {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SourceLang != out[j].SourceLang {
			return out[i].SourceLang < out[j].SourceLang
		}
		if out[i].TargetLang != out[j].TargetLang {
			return out[i].TargetLang < out[j].TargetLang
		}
		return out[i].SourceTerm < out[j].SourceTerm
	})

	raw, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("encode term store: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create term store dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".terms-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp term store: %w", err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp term store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp term store: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace term store: %w", err)
	}
	return nil
}
