// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Tally's editing and export tools via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/tally/internal/docfile"
	"github.com/starford/tally/internal/models"
	"github.com/starford/tally/internal/session"
)

const formatURI = "tally://document-format"

// Server wraps the MCP server with Tally tools.
type Server struct {
	mcp *server.MCPServer
	svc *session.Service
}

// New creates a new MCP server with all Tally tools registered.
func New(svc *session.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Tally",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("create_document",
		mcp.WithDescription("Open a new invoice or purchase order with default header values and one blank item. "+
			"Returns the document including its id."),
		mcp.WithString("kind", mcp.Required(), mcp.Enum(string(models.KindInvoice), string(models.KindPurchaseOrder)),
			mcp.Description("Document kind")),
	), s.createDocument)

	s.mcp.AddTool(mcp.NewTool("load_document",
		mcp.WithDescription("Open a document from its YAML form. Read the tally://document-format resource "+
			"or call get_document_format for the structure."),
		mcp.WithString("content", mcp.Required(), mcp.Description("YAML document description")),
	), s.loadDocument)

	s.mcp.AddTool(mcp.NewTool("get_document",
		mcp.WithDescription("Get a document with its item totals and grand total. With format yaml, "+
			"returns the YAML form that load_document accepts instead."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Document id")),
		mcp.WithString("format", mcp.Enum("json", "yaml"), mcp.Description("Result format (default json)")),
	), s.getDocument)

	s.mcp.AddTool(mcp.NewTool("set_header_field",
		mcp.WithDescription("Overwrite one header field. Invoices have company_address, client_name, "+
			"client_address and terms; purchase orders have vendor and terms."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Document id")),
		mcp.WithString("field", mcp.Required(), mcp.Description("Header field name")),
		mcp.WithString("value", mcp.Required(), mcp.Description("New value, may be empty")),
	), s.setHeaderField)

	s.mcp.AddTool(mcp.NewTool("focus_company_address",
		mcp.WithDescription("Clear an invoice's issuer address if it still holds the placeholder."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Document id")),
	), s.focusCompanyAddress)

	s.mcp.AddTool(mcp.NewTool("blur_company_address",
		mcp.WithDescription("Restore an invoice's issuer address placeholder if the field is blank."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Document id")),
	), s.blurCompanyAddress)

	s.mcp.AddTool(mcp.NewTool("add_item",
		mcp.WithDescription("Append a blank line item."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Document id")),
	), s.addItem)

	s.mcp.AddTool(mcp.NewTool("set_item_field",
		mcp.WithDescription("Overwrite the name, quantity or price of one line item. "+
			"Quantity and price that are not plain decimals count as 0."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Document id")),
		mcp.WithNumber("index", mcp.Required(), mcp.Description("Zero-based item index")),
		mcp.WithString("field", mcp.Required(), mcp.Enum(string(models.ItemName), string(models.ItemQuantity), string(models.ItemPrice)),
			mcp.Description("Item field")),
		mcp.WithString("value", mcp.Required(), mcp.Description("New value, kept as typed")),
	), s.setItemField)

	s.mcp.AddTool(mcp.NewTool("remove_item",
		mcp.WithDescription("Remove one line item. The last item cannot be removed."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Document id")),
		mcp.WithNumber("index", mcp.Required(), mcp.Description("Zero-based item index")),
	), s.removeItem)

	s.mcp.AddTool(mcp.NewTool("get_preview",
		mcp.WithDescription("Get the rendered preview of a document as plain text."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Document id")),
	), s.getPreview)

	s.mcp.AddTool(mcp.NewTool("export_document",
		mcp.WithDescription("Export the preview as a single-page PDF into the export directory. "+
			"The file is named invoice.pdf or purchase_order.pdf."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Document id")),
	), s.exportDocument)

	s.mcp.AddTool(mcp.NewTool("get_document_format",
		mcp.WithDescription("Returns the Tally document format: header fields per kind, item rules and the YAML form."),
	), s.getDocumentFormat)

	// Resource: document format contract.
	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Document Format",
			mcp.WithResourceDescription("Header fields, line item rules and the YAML document form."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readDocumentFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func documentResult(doc *session.DocumentDetail, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(doc)
}

func requireIndex(req mcp.CallToolRequest) (int, error) {
	f, err := req.RequireFloat("index")
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("index must be an integer, got %v", f)
	}
	return int(f), nil
}

func (s *Server) createDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := req.RequireString("kind")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return documentResult(s.svc.Create(ctx, models.Kind(kind)))
}

func (s *Server) loadDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	f, err := docfile.Parse([]byte(content))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := f.Build()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return documentResult(s.svc.Adopt(ctx, d))
}

func (s *Server) getDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if req.GetString("format", "json") != "yaml" {
		return documentResult(s.svc.Get(ctx, id))
	}
	d, err := s.svc.Snapshot(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := docfile.Marshal(docfile.FromDocument(d))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) setHeaderField(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	field, err := req.RequireString("field")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	value, err := req.RequireString("value")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return documentResult(s.svc.SetHeaderField(ctx, id, models.HeaderField(field), value))
}

func (s *Server) focusCompanyAddress(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return documentResult(s.svc.FocusCompanyAddress(ctx, id))
}

func (s *Server) blurCompanyAddress(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return documentResult(s.svc.BlurCompanyAddress(ctx, id))
}

func (s *Server) addItem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return documentResult(s.svc.AddItem(ctx, id))
}

func (s *Server) setItemField(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	index, err := requireIndex(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	field, err := req.RequireString("field")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	value, err := req.RequireString("value")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return documentResult(s.svc.SetItemField(ctx, id, index, models.ItemField(field), value))
}

func (s *Server) removeItem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	index, err := requireIndex(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return documentResult(s.svc.RemoveItem(ctx, id, index))
}

func (s *Server) getPreview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	l, err := s.svc.Preview(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(l.Text()), nil
}

func (s *Server) exportDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.Export(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if res == nil {
		return mcp.NewToolResultText("nothing to export: preview not mounted"), nil
	}
	return jsonResult(res)
}

func (s *Server) getDocumentFormat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(DocumentFormatContract), nil
}

func (s *Server) readDocumentFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     DocumentFormatContract,
		},
	}, nil
}
