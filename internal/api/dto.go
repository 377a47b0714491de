package api

import (
	"github.com/starford/tally/internal/models"
	"github.com/starford/tally/internal/preview"
	"github.com/starford/tally/internal/session"
)

// CreateDocumentRequest is the request body for opening a document.
type CreateDocumentRequest struct {
	Kind models.Kind `json:"kind" example:"invoice" validate:"required"`
}

// SetValueRequest is the request body for header and item field edits.
type SetValueRequest struct {
	Value string `json:"value" example:"Acme Corp"`
}

// DocumentDetail is the full document response type (aliased from the domain layer).
type DocumentDetail = session.DocumentDetail

// ItemDetail is one line item with its total (aliased from the domain layer).
type ItemDetail = session.ItemDetail

// DocumentSummary is a lightweight item in a list response (aliased from the domain layer).
type DocumentSummary = session.Summary

// Layout is the preview response type.
type Layout = preview.Layout

// DocumentListResponse wraps document listings.
type DocumentListResponse struct {
	Documents []DocumentSummary `json:"documents" validate:"required"`
	Total     int               `json:"total" example:"2" validate:"required"`
}

// ExportListResponse wraps the files in the export directory.
type ExportListResponse struct {
	Files []models.ExportFile `json:"files" validate:"required"`
}

// View is one screen of the application.
type View struct {
	Name  string      `json:"name" example:"invoice" validate:"required"`
	Title string      `json:"title" example:"Invoice" validate:"required"`
	Path  string      `json:"path" example:"/invoice" validate:"required"`
	Kind  models.Kind `json:"kind,omitempty" example:"invoice"`
}

// ViewsResponse wraps the navigation descriptor.
type ViewsResponse struct {
	Views []View `json:"views" validate:"required"`
}

var views = []View{
	{Name: "home", Title: "Home", Path: "/"},
	{Name: "invoice", Title: "Invoice", Path: "/invoice", Kind: models.KindInvoice},
	{Name: "purchase-order", Title: "Purchase Order", Path: "/purchase-order", Kind: models.KindPurchaseOrder},
}
