package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/okian/gradebook/internal/adapters/repository"
	"github.com/okian/gradebook/internal/adapters/source"
	"github.com/okian/gradebook/internal/domain/query"
	"github.com/okian/gradebook/internal/domain/scoring"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrNotFound   = errors.New("not found")
)

// Error codes returned in errorResponse.Code.
const (
	codeBadRequest     = "bad_request"
	codeLimitExceeded  = "limit_exceeded"
	codeNotFound       = "not_found"
	codeEmptyResultSet = "empty_result_set"
	codeNotReady       = "not_ready"
	codeLoadFailed     = "load_failed"
	codeCancelled      = "cancelled"
	codeInternal       = "internal_error"
)

// classify maps a domain error to an HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, repository.ErrInvalidLimit):
		return http.StatusBadRequest, codeBadRequest
	case errors.Is(err, query.ErrEmptyResultSet):
		return http.StatusNotFound, codeEmptyResultSet
	case errors.Is(err, ErrNotFound), errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, codeNotFound
	case errors.Is(err, repository.ErrNoSnapshot):
		return http.StatusServiceUnavailable, codeNotReady
	case errors.Is(err, source.ErrSourceNotFound),
		errors.Is(err, source.ErrMissingColumn),
		errors.Is(err, source.ErrUnsupportedFormat),
		errors.Is(err, source.ErrEmptySource),
		errors.Is(err, scoring.ErrNoNumericColumns):
		return http.StatusUnprocessableEntity, codeLoadFailed
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, codeCancelled
	default:
		return http.StatusInternalServerError, codeInternal
	}
}
