package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/tally/internal/docfile"
	"github.com/starford/tally/internal/models"
	"github.com/starford/tally/internal/session"
)

// Handler holds API route handlers.
type Handler struct {
	svc *session.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *session.Service) *Handler {
	return &Handler{svc: svc}
}

// ListDocuments handles GET /api/documents.
//
//	@Summary		List open documents
//	@Tags			documents
//	@Produce		json
//	@Success		200	{object}	DocumentListResponse
//	@Security		BearerAuth
//	@Router			/documents [get]
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs := h.svc.List(r.Context())
	writeJSON(w, http.StatusOK, DocumentListResponse{Documents: docs, Total: len(docs)})
}

// CreateDocument handles POST /api/documents.
//
//	@Summary		Open a new invoice or purchase order
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateDocumentRequest	true	"Document kind"
//	@Success		201		{object}	DocumentDetail
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents [post]
func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var req CreateDocumentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Kind == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("kind is required"))
		return
	}
	doc, err := h.svc.Create(r.Context(), req.Kind)
	if err != nil {
		writeServiceError(w, "create document", err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// GetDocument handles GET /api/documents/{id}.
//
//	@Summary		Get a document with its totals
//	@Tags			documents
//	@Produce		json,yaml
//	@Param			id		path		string	true	"Document id"
//	@Param			format	query		string	false	"Response format"	Enums(json, yaml)
//	@Success		200		{object}	DocumentDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id} [get]
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if r.URL.Query().Get("format") == "yaml" {
		h.writeDocumentFile(w, r, id)
		return
	}
	doc, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, "get document", err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// writeDocumentFile writes the document in the YAML form that render, watch
// and load_document accept.
func (h *Handler) writeDocumentFile(w http.ResponseWriter, r *http.Request, id string) {
	d, err := h.svc.Snapshot(r.Context(), id)
	if err != nil {
		writeServiceError(w, "get document", err)
		return
	}
	data, err := docfile.Marshal(docfile.FromDocument(d))
	if err != nil {
		writeServiceError(w, "marshal document", err)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// DeleteDocument handles DELETE /api/documents/{id}.
//
//	@Summary		Discard a document
//	@Tags			documents
//	@Param			id	path	string	true	"Document id"
//	@Success		204	"Document discarded"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id} [delete]
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, "delete document", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetHeaderField handles PUT /api/documents/{id}/header/{field}.
//
//	@Summary		Overwrite one header field
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Document id"
//	@Param			field	path		string			true	"Header field"	Enums(company_address, client_name, client_address, vendor, terms)
//	@Param			body	body		SetValueRequest	true	"New value"
//	@Success		200		{object}	DocumentDetail
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id}/header/{field} [put]
func (h *Handler) SetHeaderField(w http.ResponseWriter, r *http.Request) {
	value, ok := decodeValue(w, r)
	if !ok {
		return
	}
	field := models.HeaderField(chi.URLParam(r, "field"))
	doc, err := h.svc.SetHeaderField(r.Context(), chi.URLParam(r, "id"), field, value)
	if err != nil {
		writeServiceError(w, "set header field", err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// FocusCompanyAddress handles POST /api/documents/{id}/company-address/focus.
//
//	@Summary		Clear the untouched issuer address placeholder
//	@Tags			documents
//	@Produce		json
//	@Param			id	path		string	true	"Document id"
//	@Success		200	{object}	DocumentDetail
//	@Failure		422	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id}/company-address/focus [post]
func (h *Handler) FocusCompanyAddress(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.FocusCompanyAddress(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, "focus company address", err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// BlurCompanyAddress handles POST /api/documents/{id}/company-address/blur.
//
//	@Summary		Restore the issuer address placeholder if left blank
//	@Tags			documents
//	@Produce		json
//	@Param			id	path		string	true	"Document id"
//	@Success		200	{object}	DocumentDetail
//	@Failure		422	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id}/company-address/blur [post]
func (h *Handler) BlurCompanyAddress(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.BlurCompanyAddress(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, "blur company address", err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// AddItem handles POST /api/documents/{id}/items.
//
//	@Summary		Append a blank line item
//	@Tags			items
//	@Produce		json
//	@Param			id	path		string	true	"Document id"
//	@Success		201	{object}	DocumentDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id}/items [post]
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.AddItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, "add item", err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// SetItemField handles PUT /api/documents/{id}/items/{index}/{field}.
//
//	@Summary		Overwrite one field of one line item
//	@Tags			items
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Document id"
//	@Param			index	path		int				true	"Item index"
//	@Param			field	path		string			true	"Item field"	Enums(name, quantity, price)
//	@Param			body	body		SetValueRequest	true	"New value"
//	@Success		200		{object}	DocumentDetail
//	@Failure		400		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id}/items/{index}/{field} [put]
func (h *Handler) SetItemField(w http.ResponseWriter, r *http.Request) {
	index, ok := itemIndex(w, r)
	if !ok {
		return
	}
	value, ok := decodeValue(w, r)
	if !ok {
		return
	}
	field := models.ItemField(chi.URLParam(r, "field"))
	doc, err := h.svc.SetItemField(r.Context(), chi.URLParam(r, "id"), index, field, value)
	if err != nil {
		writeServiceError(w, "set item field", err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// GetItem handles GET /api/documents/{id}/items/{index}.
//
//	@Summary		Get one line item with its total
//	@Tags			items
//	@Produce		json
//	@Param			id		path		string	true	"Document id"
//	@Param			index	path		int		true	"Item index"
//	@Success		200		{object}	ItemDetail
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id}/items/{index} [get]
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	index, ok := itemIndex(w, r)
	if !ok {
		return
	}
	item, err := h.svc.Item(r.Context(), chi.URLParam(r, "id"), index)
	if err != nil {
		writeServiceError(w, "get item", err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// RemoveItem handles DELETE /api/documents/{id}/items/{index}.
//
//	@Summary		Remove a line item
//	@Tags			items
//	@Produce		json
//	@Param			id		path		string	true	"Document id"
//	@Param			index	path		int		true	"Item index"
//	@Success		200		{object}	DocumentDetail
//	@Failure		409		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id}/items/{index} [delete]
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	index, ok := itemIndex(w, r)
	if !ok {
		return
	}
	doc, err := h.svc.RemoveItem(r.Context(), chi.URLParam(r, "id"), index)
	if err != nil {
		writeServiceError(w, "remove item", err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// Preview handles GET /api/documents/{id}/preview.
//
//	@Summary		Get the rendered preview
//	@Tags			documents
//	@Produce		json,plain
//	@Param			id		path		string	true	"Document id"
//	@Param			format	query		string	false	"Response format"	Enums(json, text)
//	@Success		200		{object}	Layout
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id}/preview [get]
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	l, err := h.svc.Preview(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, "preview", err)
		return
	}
	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(l.Text()))
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// ExportDocument handles POST /api/documents/{id}/export.
//
//	@Summary		Export the preview as a single-page PDF download
//	@Tags			export
//	@Produce		application/pdf
//	@Param			id	path	string	true	"Document id"
//	@Success		200	{file}	binary
//	@Success		204	"Preview not mounted"
//	@Failure		404	{object}	errResponse
//	@Failure		409	{object}	errResponse
//	@Failure		500	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id}/export [post]
func (h *Handler) ExportDocument(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Export(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, "export document", err)
		return
	}
	if res == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+res.FileName+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(res.Bytes))
	w.Header().Set("ETag", `"`+res.Checksum+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Data)
}

// Views handles GET /api/views.
//
//	@Summary		List the application's views
//	@Tags			navigation
//	@Produce		json
//	@Success		200	{object}	ViewsResponse
//	@Router			/views [get]
func (h *Handler) Views(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ViewsResponse{Views: views})
}
