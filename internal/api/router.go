package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/tally/internal/session"
	"github.com/starford/tally/internal/storage"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// store is the export directory served under /exports.
func NewRouter(svc *session.Service, store storage.Provider, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)
	eh := NewExportFileHandler(store)

	r := chi.NewRouter()

	// Navigation descriptor (public).
	r.Get("/views", h.Views)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(authEnabled, token))

		// Documents.
		r.Get("/documents", h.ListDocuments)
		r.Post("/documents", h.CreateDocument)
		r.Get("/documents/{id}", h.GetDocument)
		r.Delete("/documents/{id}", h.DeleteDocument)
		r.Put("/documents/{id}/header/{field}", h.SetHeaderField)
		r.Post("/documents/{id}/company-address/focus", h.FocusCompanyAddress)
		r.Post("/documents/{id}/company-address/blur", h.BlurCompanyAddress)
		r.Get("/documents/{id}/preview", h.Preview)

		// Items.
		r.Post("/documents/{id}/items", h.AddItem)
		r.Get("/documents/{id}/items/{index}", h.GetItem)
		r.Put("/documents/{id}/items/{index}/{field}", h.SetItemField)
		r.Delete("/documents/{id}/items/{index}", h.RemoveItem)

		// Export.
		r.Post("/documents/{id}/export", h.ExportDocument)
		r.Get("/exports", eh.List)
		r.Get("/exports/{filename}", eh.ServeFile)
		r.Delete("/exports/{filename}", eh.Delete)

		// SSE endpoint (protected by same auth middleware).
		if sseHandler != nil {
			r.Get("/events", sseHandler.ServeHTTP)
		}
	})

	return r
}
