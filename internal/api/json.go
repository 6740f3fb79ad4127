package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/inkwell/internal/apperr"
	"github.com/starford/inkwell/internal/pipeline"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error     string `json:"error" validate:"required"`
	Retryable bool   `json:"retryable,omitempty"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// writeError maps the apperr taxonomy onto HTTP status codes.
func writeError(w http.ResponseWriter, op string, err error) {
	var status int
	switch {
	case errors.Is(err, apperr.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, apperr.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperr.ErrDuplicateKeyword), errors.Is(err, apperr.ErrRevisionConflict):
		status = http.StatusConflict
	case errors.Is(err, apperr.ErrRemoteUnavailable):
		status = http.StatusBadGateway
	case errors.Is(err, apperr.ErrMalformedTable):
		slog.Error(op+" failed", slog.String("error", err.Error()))
		status = http.StatusInternalServerError
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, status, errResponse{Error: err.Error(), Retryable: apperr.Retryable(err)})
}

// resultBody flattens a pipeline result and marks partial success.
func resultBody(res pipeline.Result, extra map[string]any) map[string]any {
	body := map[string]any{"message": res.Message}
	if res.Partial() {
		body["warning"] = res.Warning
		body["partial"] = true
	}
	for k, v := range extra {
		body[k] = v
	}
	return body
}
