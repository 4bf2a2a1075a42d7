package ollama

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/kirillkom/funding-rag-assistant/internal/core/domain"
	"github.com/kirillkom/funding-rag-assistant/internal/infrastructure/resilience"
)

// HTTPStatusError is a non-2xx reply from the Ollama API. Message holds the
// "error" field of the JSON body when the server sent one, Body the raw text.
type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Message    string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "ollama status error"
	}
	detail := e.Message
	if detail == "" {
		detail = strings.TrimSpace(e.Body)
	}
	if detail == "" {
		return fmt.Sprintf("ollama %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("ollama %s status: %s: %s", e.Operation, e.Status, detail)
}

// ModelMissing reports a 404 for a model that has not been pulled.
func (e *HTTPStatusError) ModelMissing() bool {
	return e != nil && e.StatusCode == http.StatusNotFound && strings.Contains(strings.ToLower(e.Message), "not found")
}

var (
	retryAndCount = resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	failAndCount  = resilience.ErrorClassification{RecordFailure: true}
	failQuietly   = resilience.ErrorClassification{}
)

// classify treats an expired attempt deadline as a slow model worth
// retrying; the executor stops on its own once the caller's context ends.
func classify(err error) resilience.ErrorClassification {
	var statusErr *HTTPStatusError
	var netErr net.Error
	switch {
	case err == nil, errors.Is(err, context.Canceled), resilience.IsCircuitOpen(err):
		return failQuietly
	case errors.Is(err, resilience.ErrPoolSaturated):
		// Our own queue is full; Ollama never saw the request.
		return failQuietly
	case resilience.IsTimeout(err):
		return retryAndCount
	case errors.As(err, &statusErr):
		if statusErr.ModelMissing() {
			// Misconfiguration, not an outage: keep the breaker closed.
			return failQuietly
		}
		if transientStatus(statusErr.StatusCode) {
			return retryAndCount
		}
		return failQuietly
	case errors.As(err, &netErr):
		return retryAndCount
	default:
		return failAndCount
	}
}

// asDomainError marks outages as ErrTemporary so callers can degrade
// instead of failing the whole query.
func asDomainError(operation string, err error) error {
	if err == nil || errors.Is(err, context.Canceled) || domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if classify(err).Retryable || resilience.IsCircuitOpen(err) || errors.Is(err, resilience.ErrPoolSaturated) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}

func transientStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return true
	}
	return code >= 500 && code != http.StatusNotImplemented
}
