package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/playperu/sprintstory/internal/sprint"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeDomainError maps the sprint error taxonomy onto HTTP statuses.
// Unclassified errors are logged and reported as "internal error".
func writeDomainError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, sprint.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, sprint.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, sprint.ErrInvalidState), errors.Is(err, sprint.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, sprint.ErrUnconfigured):
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
