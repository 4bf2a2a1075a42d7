// Package sqlite stores the translation cache in a single-file SQLite
// database for single-node deployments.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kirillkom/funding-rag-assistant/internal/core/domain"
)

type TermRepository struct {
	db   *sql.DB
	path string
}

// Open creates the database file if needed and ensures the schema.
func Open(ctx context.Context, path string) (*TermRepository, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	repo := &TermRepository{db: db, path: path}
	if err := repo.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *TermRepository) ensureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS translation_cache (
	source_term TEXT NOT NULL,
	source_lang TEXT NOT NULL,
	target_lang TEXT NOT NULL,
	translated_term TEXT NOT NULL,
	hit_count INTEGER NOT NULL DEFAULT 0,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (source_lang, target_lang, source_term)
)`)
	if err != nil {
		return fmt.Errorf("create translation_cache: %w", err)
	}
	return nil
}

func (r *TermRepository) Close() error {
	return r.db.Close()
}

func (r *TermRepository) Path() string {
	return r.path
}

func (r *TermRepository) LoadAll(ctx context.Context) ([]domain.TranslationEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT source_term, source_lang, target_lang, translated_term, hit_count, updated_at
FROM translation_cache
ORDER BY source_lang, target_lang, source_term`)
	if err != nil {
		return nil, fmt.Errorf("query translation cache: %w", err)
	}
	defer rows.Close()

	var entries []domain.TranslationEntry
	for rows.Next() {
		var (
			e         domain.TranslationEntry
			updatedAt string
		)
		if err := rows.Scan(&e.SourceTerm, &e.SourceLang, &e.TargetLang, &e.TranslatedTerm, &e.HitCount, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan translation: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
			e.UpdatedAt = ts
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate translations: %w", err)
	}
	return entries, nil
}

func (r *TermRepository) UpsertBatch(ctx context.Context, entries []domain.TranslationEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO translation_cache (source_term, source_lang, target_lang, translated_term, hit_count, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (source_lang, target_lang, source_term) DO UPDATE SET
	translated_term = excluded.translated_term,
	hit_count = MAX(translation_cache.hit_count, excluded.hit_count),
	updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		updatedAt := e.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = time.Now()
		}
		if _, err := stmt.ExecContext(ctx, e.SourceTerm, e.SourceLang, e.TargetLang, e.TranslatedTerm, e.HitCount, updatedAt.UTC().Format(time.RFC3339Nano)); err != nil {
			return fmt.Errorf("upsert translation %s/%s: %w", e.SourceLang, e.TargetLang, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert tx: %w", err)
	}
	return nil
}
