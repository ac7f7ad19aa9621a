package common

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound        = errors.New("requested resource not found")
	ErrUnauthorized    = errors.New("unauthorized access")
	ErrBadRequest      = errors.New("bad request")
	ErrConflict        = errors.New("resource conflict")
	ErrValidation      = errors.New("validation failed")
	ErrTopicLockFailed = errors.New("failed to acquire topic lock")

	// Judging and duel errors.
	ErrInvalidInput          = errors.New("invalid input")
	ErrMalformedVerdict      = errors.New("malformed verdict")
	ErrEvaluationUnavailable = errors.New("evaluation unavailable")
	ErrJudgeSuperseded       = errors.New("judging superseded or abandoned")
	ErrDuelNotActive         = errors.New("no active duel")
)

// HTTPStatusFromError maps domain errors to HTTP status codes.
func HTTPStatusFromError(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrUnauthorized) {
		return http.StatusUnauthorized
	}
	if errors.Is(err, ErrBadRequest) || errors.Is(err, ErrValidation) || errors.Is(err, ErrInvalidInput) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrConflict) || errors.Is(err, ErrTopicLockFailed) || errors.Is(err, ErrDuelNotActive) || errors.Is(err, ErrJudgeSuperseded) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrMalformedVerdict) {
		return http.StatusBadGateway
	}
	if errors.Is(err, ErrEvaluationUnavailable) {
		return http.StatusServiceUnavailable
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" { // Unique violation
			return http.StatusConflict
		}
	}

	return http.StatusInternalServerError
}

// Errorf creates a new error with formatting, useful for wrapping.
func Errorf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
