package common

import (
	"encoding/json"
	"errors"
	"net/http"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, ErrorResponse{Error: message})
}

// RespondWithDomainError writes err with the status HTTPStatusFromError picks for it.
func RespondWithDomainError(w http.ResponseWriter, err error) {
	RespondWithJSON(w, HTTPStatusFromError(err), ErrorResponse{Error: err.Error(), Kind: ErrorKind(err)})
}

// ErrorKind names the judging error taxonomy member err belongs to, if any.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMalformedVerdict):
		return "MalformedVerdict"
	case errors.Is(err, ErrEvaluationUnavailable):
		return "EvaluationUnavailable"
	case errors.Is(err, ErrInvalidInput):
		return "InvalidInput"
	}
	return ""
}

func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
