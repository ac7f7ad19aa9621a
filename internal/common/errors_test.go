package common

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestHTTPStatusFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"not found", fmt.Errorf("problem p9: %w", ErrNotFound), http.StatusNotFound},
		{"invalid input", fmt.Errorf("empty code: %w", ErrInvalidInput), http.StatusBadRequest},
		{"malformed verdict", fmt.Errorf("missing status: %w", ErrMalformedVerdict), http.StatusBadGateway},
		{"evaluator down", fmt.Errorf("dial: %w", ErrEvaluationUnavailable), http.StatusServiceUnavailable},
		{"no duel", ErrDuelNotActive, http.StatusConflict},
		{"topic lock", fmt.Errorf("redis down: %w", ErrTopicLockFailed), http.StatusConflict},
		{"unique violation", &pgconn.PgError{Code: "23505"}, http.StatusConflict},
		{"other", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatusFromError(tt.err); got != tt.want {
				t.Errorf("HTTPStatusFromError(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestErrorKind(t *testing.T) {
	if kind := ErrorKind(Errorf("bad json: %w", ErrMalformedVerdict)); kind != "MalformedVerdict" {
		t.Errorf("unexpected kind %q", kind)
	}
	if kind := ErrorKind(Errorf("timeout: %w", ErrEvaluationUnavailable)); kind != "EvaluationUnavailable" {
		t.Errorf("unexpected kind %q", kind)
	}
	if kind := ErrorKind(ErrInvalidInput); kind != "InvalidInput" {
		t.Errorf("unexpected kind %q", kind)
	}
	if kind := ErrorKind(ErrNotFound); kind != "" {
		t.Errorf("expected no kind, got %q", kind)
	}
}
