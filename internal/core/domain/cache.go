package domain

import "time"

type CacheEntry struct {
	Fingerprint string        `json:"fingerprint"`
	Response    QueryResponse `json:"response"`
	CreatedAt   time.Time     `json:"created_at"`
	ExpiresAt   time.Time     `json:"expires_at"`
}

func (e CacheEntry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

type CacheStats struct {
	Backend string `json:"backend"`
	Entries int    `json:"entries"`
	Hits    int64  `json:"hits"`
	Misses  int64  `json:"misses"`
}

type TranslationEntry struct {
	SourceTerm     string    `json:"source_term" yaml:"source_term"`
	SourceLang     string    `json:"source_lang" yaml:"source_lang"`
	TargetLang     string    `json:"target_lang" yaml:"target_lang"`
	TranslatedTerm string    `json:"translated_term" yaml:"translated_term"`
	HitCount       int64     `json:"hit_count" yaml:"hit_count"`
	UpdatedAt      time.Time `json:"updated_at" yaml:"updated_at"`
}

// QueryEvent is the optional analytics record emitted after each query.
type QueryEvent struct {
	ID        string        `json:"id"`
	RequestID string        `json:"request_id,omitempty"`
	Query     string        `json:"query"`
	Answer    string        `json:"answer"`
	Language  string        `json:"language"`
	Intent    Intent        `json:"intent"`
	Latency   time.Duration `json:"latency_ns"`
	CacheHit  bool          `json:"cache_hit"`
	Degraded  bool          `json:"degraded"`
	At        time.Time     `json:"at"`
}
