package httpadapter

import (
	"context"
	"errors"
	"net/http"

	"github.com/kirillkom/funding-rag-assistant/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrCorpusUnavailable):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage hides internal error chains behind a stable message.
func publicMessage(status int, err error) string {
	if status == http.StatusBadRequest || status == http.StatusNotFound {
		return err.Error()
	}
	return http.StatusText(status)
}
