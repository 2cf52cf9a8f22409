package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supplymatch/internal"
)

type fakeReconciler struct {
	got    internal.Document
	result internal.Result
	err    error
}

func (f *fakeReconciler) Reconcile(_ context.Context, doc internal.Document) (internal.Result, error) {
	f.got = doc
	return f.result, f.err
}

func newTestRouter(rec Reconciler) http.Handler {
	return NewRouter(rec, zerolog.Nop(), Options{})
}

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	w := httptest.NewRecorder()
	newTestRouter(&fakeReconciler{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestReconcileEndpoint(t *testing.T) {
	rec := &fakeReconciler{result: internal.Result{
		RunID:    "r1",
		Supplier: "Acme Co",
		Records: []internal.CombinedRecord{
			{ID: "1", Supplier: "Acme Co", Description: "Dump Truck", Price: 100, Rate: 5, Quantity: "3"},
		},
		Unmatched: []internal.Unmatched{},
		Failures: []internal.ItemFailure{
			{LineNo: 2, Description: "digger", Quantity: "1", Err: errors.New("matcher fake unavailable")},
		},
	}}

	w := postJSON(t, newTestRouter(rec), "/api/v1/reconcile",
		`{"supplier_name":"ACME","line_items":[{"description":"Moxy","quantity":"3"},{"description":"digger","quantity":"1"}]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, internal.SourceAPI, rec.got.Source)
	assert.Equal(t, "ACME", rec.got.SupplierName)
	assert.Equal(t, []internal.LineItem{{Description: "Moxy", Quantity: "3"}, {Description: "digger", Quantity: "1"}}, rec.got.LineItems)

	var body struct {
		Records  []internal.CombinedRecord `json:"records"`
		Failures []map[string]any         `json:"failures"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, rec.result.Records, body.Records)
	require.Len(t, body.Failures, 1)
	assert.Equal(t, "matcher fake unavailable", body.Failures[0]["error"])
}

func TestReconcileEndpointErrors(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		err    error
		status int
		kind   string
	}{
		{name: "invalid json", body: `{`, status: http.StatusBadRequest, kind: "bad_request"},
		{name: "missing supplier", body: `{"line_items":[]}`, status: http.StatusBadRequest, kind: "bad_request"},
		{name: "blank supplier", body: `{"supplier_name":"  "}`, status: http.StatusBadRequest, kind: "bad_request"},
		{
			name:   "supplier unresolved",
			body:   `{"supplier_name":"Nobody"}`,
			err:    &internal.SupplierError{Query: "Nobody", Reason: "no acceptable match"},
			status: http.StatusUnprocessableEntity,
			kind:   "supplier_unresolved",
		},
		{
			name:   "catalog down",
			body:   `{"supplier_name":"Acme"}`,
			err:    &internal.CatalogError{Op: "list suppliers", StatusCode: 503},
			status: http.StatusBadGateway,
			kind:   "catalog_unavailable",
		},
		{
			name:   "matcher down",
			body:   `{"supplier_name":"Acme"}`,
			err:    &internal.MatcherError{Provider: "openai", Err: errors.New("timeout")},
			status: http.StatusBadGateway,
			kind:   "matcher_unavailable",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := postJSON(t, newTestRouter(&fakeReconciler{err: tc.err}), "/api/v1/reconcile", tc.body)
			assert.Equal(t, tc.status, w.Code)

			var resp errorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tc.kind, resp.Kind)
			assert.NotEmpty(t, resp.RequestID)
		})
	}
}

func TestReconcileEndpointRequestDeadline(t *testing.T) {
	deadlineErr := &internal.MatcherError{Provider: "openai", Err: context.DeadlineExceeded}

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reconcile", bytes.NewBufferString(`{"supplier_name":"Acme"}`)).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	newTestRouter(&fakeReconciler{err: deadlineErr}).ServeHTTP(w, req)

	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "timeout", resp.Kind)

	// a per-call matcher timeout while the request is still alive stays a 502
	w = postJSON(t, newTestRouter(&fakeReconciler{err: deadlineErr}), "/api/v1/reconcile", `{"supplier_name":"Acme"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func upload(t *testing.T, h http.Handler, filename, content string, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestDocumentUpload(t *testing.T) {
	rec := &fakeReconciler{result: internal.Result{RunID: "r2"}}
	docai := `{"supplier_name":"ACME","line_items":[{"line_item/description":"Moxy","line_item/quantity":"3"}]}`

	w := upload(t, newTestRouter(rec), "invoice.json", docai, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, internal.SourceDocAI, rec.got.Source)
	assert.Equal(t, "ACME", rec.got.SupplierName)
	assert.Equal(t, []internal.LineItem{{LineNo: 1, Description: "Moxy", Quantity: "3"}}, rec.got.LineItems)

	w = upload(t, newTestRouter(rec), "invoice.json", docai, map[string]string{"supplier": "Beta Ltd"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Beta Ltd", rec.got.SupplierName)
}

func TestDocumentUploadErrors(t *testing.T) {
	h := newTestRouter(&fakeReconciler{})

	w := upload(t, h, "scan.png", "x", nil)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)

	w = upload(t, h, "docket.txt", "Moxy 30t 3\n", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
