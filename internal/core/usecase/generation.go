package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/kirillkom/funding-rag-assistant/internal/core/domain"
	"github.com/kirillkom/funding-rag-assistant/internal/core/ports"
)

// GenerationService bounds one generation with an overall deadline. Retries
// with backoff happen inside the generator adapter, within that deadline.
type GenerationService struct {
	generator ports.TextGenerator
	timeout   time.Duration
	maxTokens int
}

func NewGenerationService(generator ports.TextGenerator, timeout time.Duration, maxTokens int) *GenerationService {
	return &GenerationService{generator: generator, timeout: timeout, maxTokens: maxTokens}
}

// Generate returns the model output. Failures are reported as
// ErrGenerationTimeout or ErrGenerationUnavailable; a cancelled caller gets
// its own context error back.
func (s *GenerationService) Generate(ctx context.Context, prompt string) (string, error) {
	if s.generator == nil {
		return "", domain.WrapError(domain.ErrGenerationUnavailable, "generate", errors.New("no generator configured"))
	}

	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	out, err := s.generator.Generate(callCtx, prompt, s.maxTokens)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return "", domain.WrapError(domain.ErrGenerationTimeout, "generate", err)
		}
		return "", domain.WrapError(domain.ErrGenerationUnavailable, "generate", err)
	}

	out = strings.TrimSpace(out)
	if out == "" {
		return "", domain.WrapError(domain.ErrGenerationUnavailable, "generate", errors.New("empty completion"))
	}
	return out, nil
}
