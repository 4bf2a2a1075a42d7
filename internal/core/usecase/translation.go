package usecase

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/singleflight"

	"github.com/kirillkom/funding-rag-assistant/internal/core/domain"
	"github.com/kirillkom/funding-rag-assistant/internal/core/ports"
	"github.com/kirillkom/funding-rag-assistant/internal/core/textnorm"
)

// Only texts up to this many runes are written to the term cache; full
// answers are translated but not remembered.
const defaultMaxCachedRunes = 200

var errNoTranslator = errors.New("no translator configured")

type TranslationService struct {
	cache          ports.TermCache
	external       ports.ExternalTranslator
	timeout        time.Duration
	maxCachedRunes int
	group          singleflight.Group
}

func NewTranslationService(cache ports.TermCache, external ports.ExternalTranslator, timeout time.Duration) *TranslationService {
	return &TranslationService{
		cache:          cache,
		external:       external,
		timeout:        timeout,
		maxCachedRunes: defaultMaxCachedRunes,
	}
}

// Translate returns text in the target language. Cached translations are
// served without calling the external translator; concurrent misses for the
// same text share one call. On failure the original text is returned along
// with the error.
func (s *TranslationService) Translate(ctx context.Context, text, from, to string) (string, error) {
	if strings.TrimSpace(text) == "" || from == to {
		return text, nil
	}

	key := textnorm.Fold(text)
	cacheable := s.cache != nil && utf8.RuneCountInString(key) <= s.maxCachedRunes
	if cacheable {
		if cached, ok := s.cache.Get(from, to, key); ok {
			return cached, nil
		}
	}
	if s.external == nil {
		return text, domain.WrapError(domain.ErrTemporary, "translate", errNoTranslator)
	}

	v, err, _ := s.group.Do(from+"|"+to+"|"+key, func() (any, error) {
		callCtx := ctx
		if s.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}
		out, err := s.external.Translate(callCtx, text, from, to)
		if err != nil {
			return nil, err
		}
		out = strings.TrimSpace(out)
		if out == "" {
			return nil, errors.New("empty translation")
		}
		if cacheable {
			s.cache.Put(domain.TranslationEntry{
				SourceTerm:     key,
				SourceLang:     from,
				TargetLang:     to,
				TranslatedTerm: out,
			})
		}
		return out, nil
	})
	if err != nil {
		return text, domain.WrapError(domain.ErrTemporary, "translate "+from+"->"+to, err)
	}
	return v.(string), nil
}
