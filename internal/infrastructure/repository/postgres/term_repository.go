package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/funding-rag-assistant/internal/core/domain"
)

// TermRepository persists the translation cache in the translation_cache table.
type TermRepository struct {
	db *sql.DB
}

func NewTermRepository(db *sql.DB) *TermRepository {
	return &TermRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *TermRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker/mcp startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026101501)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS translation_cache (
	source_term TEXT NOT NULL,
	source_lang TEXT NOT NULL,
	target_lang TEXT NOT NULL,
	translated_term TEXT NOT NULL,
	hit_count BIGINT NOT NULL DEFAULT 0,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (source_lang, target_lang, source_term)
);

CREATE INDEX IF NOT EXISTS idx_translation_cache_target ON translation_cache(target_lang);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *TermRepository) LoadAll(ctx context.Context) ([]domain.TranslationEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT source_term, source_lang, target_lang, translated_term, hit_count, updated_at
FROM translation_cache
ORDER BY source_lang, target_lang, source_term
`)
	if err != nil {
		return nil, fmt.Errorf("query translation cache: %w", err)
	}
	defer rows.Close()

	var entries []domain.TranslationEntry
	for rows.Next() {
		var e domain.TranslationEntry
		if err := rows.Scan(&e.SourceTerm, &e.SourceLang, &e.TargetLang, &e.TranslatedTerm, &e.HitCount, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan translation: %w", err)
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

	for _, e := range entries {
		_, err := tx.ExecContext(ctx, `
INSERT INTO translation_cache (source_term, source_lang, target_lang, translated_term, hit_count, updated_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (source_lang, target_lang, source_term) DO UPDATE SET
	translated_term = EXCLUDED.translated_term,
	hit_count = GREATEST(translation_cache.hit_count, EXCLUDED.hit_count),
	updated_at = EXCLUDED.updated_at
`, e.SourceTerm, e.SourceLang, e.TargetLang, e.TranslatedTerm, e.HitCount, e.UpdatedAt)
		if err != nil {
			return fmt.Errorf("upsert translation %s/%s: %w", e.SourceLang, e.TargetLang, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert tx: %w", err)
	}
	return nil
}
