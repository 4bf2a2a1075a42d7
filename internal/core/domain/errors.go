package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrTemporary    = errors.New("temporary failure")
	ErrNotFound     = errors.New("not found")

	ErrUnsupportedLanguage   = errors.New("unsupported language")
	ErrRetrievalDegraded     = errors.New("retrieval degraded")
	ErrGenerationTimeout     = errors.New("generation timeout")
	ErrGenerationUnavailable = errors.New("generation unavailable")
	ErrEmptyContext          = errors.New("empty context")

	ErrIndexUnavailable  = errors.New("vector index unavailable")
	ErrCorpusUnavailable = errors.New("corpus unavailable")
	ErrCorpusSchema      = errors.New("corpus schema mismatch")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
