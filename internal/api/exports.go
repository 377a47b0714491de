package api

import (
	"bytes"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/tally/internal/apperr"
	"github.com/starford/tally/internal/storage"
)

// ExportFileHandler serves files previously written to the export directory.
type ExportFileHandler struct {
	store storage.Provider
}

// NewExportFileHandler creates a handler backed by the export directory.
func NewExportFileHandler(store storage.Provider) *ExportFileHandler {
	return &ExportFileHandler{store: store}
}

// List handles GET /api/exports.
//
//	@Summary		List exported files
//	@Tags			export
//	@Produce		json
//	@Success		200	{object}	ExportListResponse
//	@Security		BearerAuth
//	@Router			/exports [get]
func (h *ExportFileHandler) List(w http.ResponseWriter, _ *http.Request) {
	files, err := h.store.List()
	if err != nil {
		slog.Error("list exports failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, ExportListResponse{Files: files})
}

// ServeFile handles GET /api/exports/{filename}.
//
//	@Summary		Download an exported file
//	@Tags			export
//	@Produce		application/pdf
//	@Param			filename	path	string	true	"File name"
//	@Success		200	{file}	binary
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/exports/{filename} [get]
func (h *ExportFileHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	if !strings.HasSuffix(name, ".pdf") {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	data, err := h.store.Read(name)
	if err != nil {
		writeFileError(w, name, "read", err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	http.ServeContent(w, r, name, time.Time{}, bytes.NewReader(data))
}

// Delete handles DELETE /api/exports/{filename}.
//
//	@Summary		Delete an exported file
//	@Tags			export
//	@Param			filename	path	string	true	"File name"
//	@Success		204	"File deleted"
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/exports/{filename} [delete]
func (h *ExportFileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	if !strings.HasSuffix(name, ".pdf") {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	if err := h.store.Delete(name); err != nil {
		writeFileError(w, name, "delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeFileError(w http.ResponseWriter, name, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrInvalidName):
		writeJSON(w, http.StatusBadRequest, errorBody("invalid file name"))
	case errors.Is(err, fs.ErrNotExist):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	default:
		slog.Error(op+" export failed", slog.String("file", name), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}
