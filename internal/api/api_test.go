package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/tally/internal/docfile"
	"github.com/starford/tally/internal/models"
	"github.com/starford/tally/internal/session"
	"github.com/starford/tally/internal/storage"
	"github.com/starford/tally/internal/testutil"
)

// testEnv sets up a session service, export dir and router for testing.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) (*session.Service, http.Handler) {
	t.Helper()
	svc, router, _ := testEnvFull(t, authToken != "", authToken, nil)
	return svc, router
}

func testEnvFull(t *testing.T, authEnabled bool, authToken string, sseHandler http.Handler) (*session.Service, http.Handler, storage.Provider) {
	t.Helper()
	svc, store := testutil.TestService(t)
	router := NewRouter(svc, store, authEnabled, authToken, sseHandler)
	return svc, router, store
}

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createDoc(t *testing.T, router http.Handler, kind string) DocumentDetail {
	t.Helper()
	w := do(t, router, http.MethodPost, "/documents", map[string]string{"kind": kind})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var doc DocumentDetail
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatal(err)
	}
	return doc
}

func decodeDoc(t *testing.T, w *httptest.ResponseRecorder) DocumentDetail {
	t.Helper()
	var doc DocumentDetail
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v (%s)", err, w.Body.String())
	}
	return doc
}

func TestCreateAndGetDocument(t *testing.T) {
	_, router := testEnv(t, "")

	doc := createDoc(t, router, "invoice")
	if doc.Kind != "invoice" || len(doc.Items) != 1 {
		t.Fatalf("unexpected doc: %+v", doc)
	}

	w := do(t, router, http.MethodGet, "/documents/"+doc.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	got := decodeDoc(t, w)
	if got.ID != doc.ID || got.GrandTotal != "0.00" {
		t.Errorf("got %+v", got)
	}
}

func TestCreateDocument_BadInput(t *testing.T) {
	_, router := testEnv(t, "")

	if w := do(t, router, http.MethodPost, "/documents", map[string]string{"kind": "receipt"}); w.Code != http.StatusBadRequest {
		t.Errorf("unknown kind = %d, want 400", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/documents", map[string]string{}); w.Code != http.StatusBadRequest {
		t.Errorf("missing kind = %d, want 400", w.Code)
	}
	req := httptest.NewRequest(http.MethodPost, "/documents", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad json = %d, want 400", w.Code)
	}
}

func TestEditScenario(t *testing.T) {
	_, router := testEnv(t, "")
	doc := createDoc(t, router, "invoice")
	base := "/documents/" + doc.ID

	steps := []struct {
		path  string
		value string
	}{
		{base + "/header/client_name", "Acme"},
		{base + "/items/0/name", "Hosting"},
		{base + "/items/0/quantity", "2"},
		{base + "/items/0/price", "10"},
	}
	var w *httptest.ResponseRecorder
	for _, s := range steps {
		w = do(t, router, http.MethodPut, s.path, map[string]string{"value": s.value})
		if w.Code != http.StatusOK {
			t.Fatalf("PUT %s = %d, body = %s", s.path, w.Code, w.Body.String())
		}
	}
	got := decodeDoc(t, w)
	if got.Items[0].Total != "20.00" || got.GrandTotal != "20.00" {
		t.Errorf("totals = %q / %q, want 20.00 / 20.00", got.Items[0].Total, got.GrandTotal)
	}
	if got.Header.ClientName != "Acme" {
		t.Errorf("client name = %q", got.Header.ClientName)
	}

	w = do(t, router, http.MethodPost, base+"/items", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("add item = %d", w.Code)
	}
	got = decodeDoc(t, w)
	if len(got.Items) != 2 || got.Items[1].Name != "" {
		t.Errorf("items = %+v", got.Items)
	}

	w = do(t, router, http.MethodPut, base+"/items/1/quantity", map[string]string{"value": "abc"})
	got = decodeDoc(t, w)
	if len(got.Items[1].Invalid) != 1 || got.GrandTotal != "20.00" {
		t.Errorf("invalid = %v total = %q", got.Items[1].Invalid, got.GrandTotal)
	}

	w = do(t, router, http.MethodDelete, base+"/items/1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("remove item = %d", w.Code)
	}
	if got = decodeDoc(t, w); len(got.Items) != 1 {
		t.Errorf("items after remove = %d", len(got.Items))
	}
}

func TestEditErrors(t *testing.T) {
	_, router := testEnv(t, "")
	doc := createDoc(t, router, "purchase_order")
	base := "/documents/" + doc.ID

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"foreign header field", http.MethodPut, base + "/header/client_name", map[string]string{"value": "x"}, http.StatusUnprocessableEntity},
		{"unknown item field", http.MethodPut, base + "/items/0/colour", map[string]string{"value": "x"}, http.StatusUnprocessableEntity},
		{"index out of range", http.MethodPut, base + "/items/3/name", map[string]string{"value": "x"}, http.StatusUnprocessableEntity},
		{"index not a number", http.MethodPut, base + "/items/first/name", map[string]string{"value": "x"}, http.StatusBadRequest},
		{"remove last item", http.MethodDelete, base + "/items/0", nil, http.StatusConflict},
		{"focus on purchase order", http.MethodPost, base + "/company-address/focus", nil, http.StatusUnprocessableEntity},
		{"unknown document", http.MethodPut, "/documents/ghost/header/terms", map[string]string{"value": "x"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, tt.method, tt.path, tt.body)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestCompanyAddressFocusBlur(t *testing.T) {
	_, router := testEnv(t, "")
	doc := createDoc(t, router, "invoice")
	base := "/documents/" + doc.ID
	placeholder := doc.Header.CompanyAddress

	got := decodeDoc(t, do(t, router, http.MethodPost, base+"/company-address/focus", nil))
	if got.Header.CompanyAddress != "" {
		t.Errorf("after focus = %q", got.Header.CompanyAddress)
	}
	got = decodeDoc(t, do(t, router, http.MethodPost, base+"/company-address/blur", nil))
	if got.Header.CompanyAddress != placeholder {
		t.Errorf("after blur = %q", got.Header.CompanyAddress)
	}
}

func TestPreview(t *testing.T) {
	_, router := testEnv(t, "")
	doc := createDoc(t, router, "invoice")

	w := do(t, router, http.MethodGet, "/documents/"+doc.ID+"/preview", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("preview = %d", w.Code)
	}
	var l Layout
	if err := json.Unmarshal(w.Body.Bytes(), &l); err != nil {
		t.Fatal(err)
	}
	if l.Title != "Invoice Preview" {
		t.Errorf("title = %q", l.Title)
	}

	w = do(t, router, http.MethodGet, "/documents/"+doc.ID+"/preview?format=text", nil)
	if !strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain") {
		t.Errorf("content type = %q", w.Header().Get("Content-Type"))
	}
	if !strings.Contains(w.Body.String(), "Grand Total:") {
		t.Errorf("text preview = %q", w.Body.String())
	}
}

func TestExportDownloadAndServe(t *testing.T) {
	_, router, store := testEnvFull(t, false, "", nil)
	doc := createDoc(t, router, "purchase_order")

	w := do(t, router, http.MethodPost, "/documents/"+doc.ID+"/export", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export = %d, body = %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("content type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); cd != `attachment; filename="purchase_order.pdf"` {
		t.Errorf("content disposition = %q", cd)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")) {
		t.Error("body is not a PDF")
	}

	saved, err := store.Read("purchase_order.pdf")
	if err != nil {
		t.Fatalf("export not saved: %v", err)
	}
	if !bytes.Equal(saved, w.Body.Bytes()) {
		t.Error("saved file differs from download")
	}

	w = do(t, router, http.MethodGet, "/exports/purchase_order.pdf", nil)
	if w.Code != http.StatusOK || !bytes.Equal(w.Body.Bytes(), saved) {
		t.Errorf("serve export = %d", w.Code)
	}

	w = do(t, router, http.MethodGet, "/exports", nil)
	var list ExportListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if len(list.Files) != 1 || list.Files[0].Name != "purchase_order.pdf" {
		t.Errorf("export list = %+v", list.Files)
	}
}

func TestServeExport_Errors(t *testing.T) {
	_, router := testEnv(t, "")

	if w := do(t, router, http.MethodGet, "/exports/invoice.pdf", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing export = %d, want 404", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/exports/notes.txt", nil); w.Code != http.StatusNotFound {
		t.Errorf("non-pdf = %d, want 404", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/exports/..%2Fsecret.pdf", nil); w.Code != http.StatusBadRequest && w.Code != http.StatusNotFound {
		t.Errorf("traversal = %d, want 400 or 404", w.Code)
	}
}

func TestDeleteExport(t *testing.T) {
	_, router := testEnv(t, "")
	doc := createDoc(t, router, "invoice")

	if w := do(t, router, http.MethodPost, "/documents/"+doc.ID+"/export", nil); w.Code != http.StatusOK {
		t.Fatalf("export = %d, body = %s", w.Code, w.Body.String())
	}
	if w := do(t, router, http.MethodDelete, "/exports/invoice.pdf", nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete export = %d, body = %s", w.Code, w.Body.String())
	}
	if w := do(t, router, http.MethodGet, "/exports/invoice.pdf", nil); w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}
	if w := do(t, router, http.MethodDelete, "/exports/invoice.pdf", nil); w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", w.Code)
	}
	if w := do(t, router, http.MethodDelete, "/exports/notes.txt", nil); w.Code != http.StatusNotFound {
		t.Errorf("delete non-pdf = %d, want 404", w.Code)
	}
}

func TestGetDocument_YAML(t *testing.T) {
	_, router := testEnv(t, "")
	doc := createDoc(t, router, "invoice")
	base := "/documents/" + doc.ID
	do(t, router, http.MethodPut, base+"/header/client_name", map[string]string{"value": "Acme"})
	do(t, router, http.MethodPut, base+"/items/0/name", map[string]string{"value": "Hosting"})

	w := do(t, router, http.MethodGet, base+"?format=yaml", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get yaml = %d, body = %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/yaml" {
		t.Errorf("content type = %q", ct)
	}
	f, err := docfile.Parse(w.Body.Bytes())
	if err != nil {
		t.Fatalf("parse served yaml: %v\n%s", err, w.Body.String())
	}
	if f.Kind != models.KindInvoice || f.Header["client_name"] != "Acme" {
		t.Errorf("file = %+v", f)
	}
	if len(f.Items) != 1 || f.Items[0].Name != "Hosting" {
		t.Errorf("items = %+v", f.Items)
	}

	if w := do(t, router, http.MethodGet, "/documents/ghost?format=yaml", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing yaml = %d, want 404", w.Code)
	}
}

func TestGetItem(t *testing.T) {
	_, router := testEnv(t, "")
	doc := createDoc(t, router, "invoice")
	base := "/documents/" + doc.ID
	do(t, router, http.MethodPut, base+"/items/0/quantity", map[string]string{"value": "2"})
	do(t, router, http.MethodPut, base+"/items/0/price", map[string]string{"value": "10"})

	w := do(t, router, http.MethodGet, base+"/items/0", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get item = %d, body = %s", w.Code, w.Body.String())
	}
	var it ItemDetail
	if err := json.Unmarshal(w.Body.Bytes(), &it); err != nil {
		t.Fatal(err)
	}
	if it.Quantity != "2" || it.Total != "20.00" {
		t.Errorf("item = %+v", it)
	}

	if w := do(t, router, http.MethodGet, base+"/items/5", nil); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("out of range = %d, want 422", w.Code)
	}
}

func TestExportUnknownDocument(t *testing.T) {
	_, router := testEnv(t, "")
	if w := do(t, router, http.MethodPost, "/documents/ghost/export", nil); w.Code != http.StatusNotFound {
		t.Errorf("export unknown = %d, want 404", w.Code)
	}
}

func TestDeleteDocument(t *testing.T) {
	_, router := testEnv(t, "")
	doc := createDoc(t, router, "invoice")

	if w := do(t, router, http.MethodDelete, "/documents/"+doc.ID, nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/documents/"+doc.ID, nil); w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}
	if w := do(t, router, http.MethodDelete, "/documents/"+doc.ID, nil); w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", w.Code)
	}
}

func TestListDocuments(t *testing.T) {
	_, router := testEnv(t, "")
	createDoc(t, router, "invoice")
	createDoc(t, router, "purchase_order")

	w := do(t, router, http.MethodGet, "/documents", nil)
	var resp DocumentListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 2 || len(resp.Documents) != 2 {
		t.Errorf("list = %+v", resp)
	}
}

func TestViews(t *testing.T) {
	_, router := testEnv(t, "secret")

	// Public even with auth enabled.
	w := do(t, router, http.MethodGet, "/views", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("views = %d", w.Code)
	}
	var resp ViewsResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Views) != 3 || resp.Views[0].Name != "home" {
		t.Errorf("views = %+v", resp.Views)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	body, _ := json.Marshal(map[string]string{"kind": "invoice"})
	req := httptest.NewRequest(http.MethodPost, "/documents", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Errorf("authed create = %d, want 201", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/documents", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/documents", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	_, router := testEnv(t, "")

	req := httptest.NewRequest(http.MethodGet, "/documents", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

// SSE endpoint auth tests.

// blockingSSE writes headers and blocks until the request context is done.
var blockingSSE = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	<-r.Context().Done()
})

func TestSSEEvents_AuthProtected(t *testing.T) {
	_, router, _ := testEnvFull(t, true, "secret", blockingSSE)

	// No token → 401.
	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	_, router, _ := testEnvFull(t, true, "tok", blockingSSE)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}

func TestAuthMiddleware_QueryToken(t *testing.T) {
	_, router, _ := testEnvFull(t, true, "tok", blockingSSE)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events?access_token=tok", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with access_token query should not 401")
	}

	req = httptest.NewRequest(http.MethodGet, "/documents?access_token=nope", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong query token = %d, want 401", w.Code)
	}
}
