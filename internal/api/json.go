package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/tally/internal/apperr"
	"github.com/starford/tally/internal/export"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// decodeJSON reads a size-limited JSON body into v. On failure it has
// already written a 400.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}

func decodeValue(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req SetValueRequest
	if !decodeJSON(w, r, &req) {
		return "", false
	}
	return req.Value, true
}

func itemIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("index must be an integer"))
		return 0, false
	}
	return i, true
}

// writeServiceError maps a service error to a status code.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	var exportErr *export.Error
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrUnknownKind):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrUnknownField), errors.Is(err, apperr.ErrItemOutOfRange):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrLastItem), errors.Is(err, export.ErrExportInProgress):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	case errors.As(err, &exportErr):
		slog.Error(op+" failed", slog.String("stage", string(exportErr.Stage)), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("export failed at "+string(exportErr.Stage)))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}
