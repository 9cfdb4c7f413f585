package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/01moynul/bookshelf-admin/internal/handlers"
	"github.com/01moynul/bookshelf-admin/internal/metrics"
	"github.com/01moynul/bookshelf-admin/internal/models"
	"github.com/01moynul/bookshelf-admin/internal/routes"
	"github.com/01moynul/bookshelf-admin/internal/session"
	"github.com/01moynul/bookshelf-admin/internal/submission"
	"github.com/01moynul/bookshelf-admin/internal/variation"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

type fakeTokens map[string]int64

func (f fakeTokens) ValidateToken(s string) (int64, error) {
	id, ok := f[s]
	if !ok {
		return 0, errors.New("bad token")
	}
	return id, nil
}

type fakeBackend struct {
	mu        sync.Mutex
	payloads  []*submission.Payload
	bearers   []string
	submitErr error
	book      *models.Book
}

func (b *fakeBackend) Submit(_ context.Context, bearer string, p *submission.Payload) (*models.Book, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.payloads = append(b.payloads, p)
	b.bearers = append(b.bearers, bearer)
	if b.submitErr != nil {
		return nil, b.submitErr
	}
	return &models.Book{ID: 99, Title: "submitted"}, nil
}

func (b *fakeBackend) FetchBook(_ context.Context, _ string, id int64) (*models.Book, error) {
	if b.book == nil || b.book.ID != id {
		return nil, &submission.TransportError{StatusCode: http.StatusNotFound, Body: "not found"}
	}
	return b.book, nil
}

type fakeSuggester struct{ drafts []variation.AttributeDraft }

func (f fakeSuggester) SuggestAttributes(context.Context, string, string) ([]variation.AttributeDraft, error) {
	return f.drafts, nil
}

type env struct {
	router   *gin.Engine
	h        *handlers.Handlers
	backend  *fakeBackend
	registry *prometheus.Registry
}

func newEnv(t *testing.T, opts session.Options) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	mgr := session.NewManager(opts)
	t.Cleanup(mgr.CloseAll)

	backend := &fakeBackend{}
	h := &handlers.Handlers{
		Sessions:      mgr,
		Backend:       backend,
		Metrics:       metrics.New(reg, mgr.Len),
		MaxImageBytes: 1 << 20,
	}
	r := routes.SetupRouter(h, routes.Options{
		AllowedOrigin: "http://localhost:5173",
		Tokens:        fakeTokens{"alice": 1, "bob": 2},
		Gatherer:      reg,
	})
	return &env{router: r, h: h, backend: backend, registry: reg}
}

func (e *env) do(t *testing.T, token, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// variableSession opens a session with Format x Language expanded into four variations.
func (e *env) variableSession(t *testing.T) string {
	t.Helper()
	w := e.do(t, "alice", http.MethodPost, "/v1/sessions", gin.H{"parentSku": "BOOK001", "title": "Dune"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decode[session.View](t, w).ID

	require.Equal(t, http.StatusOK, e.do(t, "alice", http.MethodPut, "/v1/sessions/"+id+"/type",
		gin.H{"productType": "variable"}).Code)
	require.Equal(t, http.StatusOK, e.do(t, "alice", http.MethodPatch, "/v1/sessions/"+id+"/attributes/0",
		gin.H{"field": "name", "value": "Format"}).Code)
	require.Equal(t, http.StatusOK, e.do(t, "alice", http.MethodPatch, "/v1/sessions/"+id+"/attributes/0",
		gin.H{"field": "values", "value": "Hardcover, Paperback"}).Code)
	require.Equal(t, http.StatusCreated, e.do(t, "alice", http.MethodPost, "/v1/sessions/"+id+"/attributes", nil).Code)
	require.Equal(t, http.StatusOK, e.do(t, "alice", http.MethodPatch, "/v1/sessions/"+id+"/attributes/1",
		gin.H{"field": "name", "value": "Language"}).Code)
	require.Equal(t, http.StatusOK, e.do(t, "alice", http.MethodPatch, "/v1/sessions/"+id+"/attributes/1",
		gin.H{"field": "values", "value": "EN, FR"}).Code)

	w = e.do(t, "alice", http.MethodPost, "/v1/sessions/"+id+"/expand", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return id
}

func TestPingAndAuth(t *testing.T) {
	e := newEnv(t, session.Options{})

	assert.Equal(t, http.StatusOK, e.do(t, "", http.MethodGet, "/v1/ping", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, e.do(t, "", http.MethodPost, "/v1/sessions", gin.H{}).Code)
	assert.Equal(t, http.StatusUnauthorized, e.do(t, "mallory", http.MethodPost, "/v1/sessions", gin.H{}).Code)

	w := e.do(t, "alice", http.MethodPost, "/v1/sessions", gin.H{"parentSku": "B"})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[session.View](t, w).ID

	assert.Equal(t, http.StatusForbidden, e.do(t, "bob", http.MethodGet, "/v1/sessions/"+id, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, "alice", http.MethodGet, "/v1/sessions/nope", nil).Code)
}

func TestCORSPreflight(t *testing.T) {
	e := newEnv(t, session.Options{})
	w := e.do(t, "", http.MethodOptions, "/v1/sessions", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestExpandAndSubmit(t *testing.T) {
	e := newEnv(t, session.Options{MaxCombinations: 10})
	id := e.variableSession(t)

	w := e.do(t, "alice", http.MethodGet, "/v1/sessions/"+id, nil)
	view := decode[session.View](t, w)
	require.Len(t, view.Variations, 4)
	skus := []string{}
	for _, v := range view.Variations {
		skus = append(skus, v.SKU)
	}
	assert.Equal(t, []string{"BOOK001-Hardcover-EN", "BOOK001-Hardcover-FR", "BOOK001-Paperback-EN", "BOOK001-Paperback-FR"}, skus)

	// Re-expanding adds nothing new.
	w = e.do(t, "alice", http.MethodPost, "/v1/sessions/"+id+"/expand", nil)
	assert.Equal(t, float64(0), decode[map[string]any](t, w)["added"])

	// Stock is missing everywhere, so the pre-submit check fails.
	w = e.do(t, "alice", http.MethodPost, "/v1/sessions/"+id+"/submit", nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var failed struct {
		Errors variation.MappedErrors `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &failed))
	assert.Equal(t, []string{"stock_quantity is required"}, failed.Errors.VariationField(3, "stock_quantity"))
	assert.Empty(t, e.backend.payloads)

	for i := 0; i < 4; i++ {
		w = e.do(t, "alice", http.MethodPatch, "/v1/sessions/"+id+"/variations/"+string(rune('0'+i)),
			gin.H{"field": "stock_quantity", "value": 5})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	w = e.do(t, "alice", http.MethodPatch, "/v1/sessions/"+id+"/variations/1", gin.H{"field": "price", "value": "12.50"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decimal.RequireFromString("12.5").Equal(*decode[session.View](t, w).Variations[1].Price))

	w = e.do(t, "alice", http.MethodPost, "/v1/sessions/"+id+"/check", nil)
	assert.Equal(t, true, decode[map[string]any](t, w)["valid"])

	w = e.do(t, "alice", http.MethodPost, "/v1/sessions/"+id+"/submit", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Len(t, e.backend.payloads, 1)
	assert.Equal(t, 4, e.backend.payloads[0].Variations)
	assert.Equal(t, "alice", e.backend.bearers[0])

	assert.Equal(t, http.StatusNotFound, e.do(t, "alice", http.MethodGet, "/v1/sessions/"+id, nil).Code)

	assert.Equal(t, 2.0, testutil.ToFloat64(e.h.Metrics.Expansions.WithLabelValues(metrics.ExpansionOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.h.Metrics.Submissions.WithLabelValues(metrics.SubmissionIncomplete)))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.h.Metrics.Submissions.WithLabelValues(metrics.SubmissionCreated)))
}

func TestExpandErrors(t *testing.T) {
	e := newEnv(t, session.Options{MaxCombinations: 3})
	w := e.do(t, "alice", http.MethodPost, "/v1/sessions", gin.H{"parentSku": "B"})
	id := decode[session.View](t, w).ID

	// Simple products cannot expand.
	assert.Equal(t, http.StatusBadRequest, e.do(t, "alice", http.MethodPost, "/v1/sessions/"+id+"/expand", nil).Code)

	e.do(t, "alice", http.MethodPut, "/v1/sessions/"+id+"/type", gin.H{"productType": "variable"})
	w = e.do(t, "alice", http.MethodPost, "/v1/sessions/"+id+"/expand", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"validation"`)

	e.do(t, "alice", http.MethodPatch, "/v1/sessions/"+id+"/attributes/0", gin.H{"field": "name", "value": "Size"})
	e.do(t, "alice", http.MethodPatch, "/v1/sessions/"+id+"/attributes/0", gin.H{"field": "values", "value": "S, M, L, XL"})
	w = e.do(t, "alice", http.MethodPost, "/v1/sessions/"+id+"/expand", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, float64(4), decode[map[string]any](t, w)["combinations"])

	assert.Equal(t, 1.0, testutil.ToFloat64(e.h.Metrics.Expansions.WithLabelValues(metrics.ExpansionInvalid)))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.h.Metrics.Expansions.WithLabelValues(metrics.ExpansionRefused)))
}

func TestSubmitBackendErrorsKeepSession(t *testing.T) {
	e := newEnv(t, session.Options{})
	w := e.do(t, "alice", http.MethodPost, "/v1/sessions", gin.H{"parentSku": "B", "title": "Dune"})
	id := decode[session.View](t, w).ID

	e.backend.submitErr = &variation.FieldValidationError{
		Message: "The given data was invalid.",
		Errors:  variation.MapErrors(map[string][]string{"title": {"taken"}}),
	}
	w = e.do(t, "alice", http.MethodPost, "/v1/sessions/"+id+"/submit", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), `"topLevelErrors":{"title":["taken"]}`)

	e.backend.submitErr = &submission.TransportError{StatusCode: http.StatusInternalServerError}
	w = e.do(t, "alice", http.MethodPost, "/v1/sessions/"+id+"/submit", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)

	assert.Equal(t, http.StatusOK, e.do(t, "alice", http.MethodGet, "/v1/sessions/"+id, nil).Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(e.h.Metrics.Submissions.WithLabelValues(metrics.SubmissionRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.h.Metrics.Submissions.WithLabelValues(metrics.SubmissionFailed)))
}

func TestVariationEdits(t *testing.T) {
	e := newEnv(t, session.Options{})
	id := e.variableSession(t)
	base := "/v1/sessions/" + id + "/variations/"

	w := e.do(t, "alice", http.MethodPatch, base+"0/attributes",
		gin.H{"oldKey": "Language", "newKey": "Lang", "value": "DE"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "BOOK001-Hardcover-DE", decode[session.View](t, w).Variations[0].SKU)

	w = e.do(t, "alice", http.MethodDelete, base+"0/attributes/Lang", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "BOOK001-Hardcover", decode[session.View](t, w).Variations[0].SKU)

	w = e.do(t, "alice", http.MethodPatch, base+"0", gin.H{"field": "sku", "value": "CUSTOM"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "CUSTOM", decode[session.View](t, w).Variations[0].SKU)

	assert.Equal(t, http.StatusBadRequest, e.do(t, "alice", http.MethodPatch, base+"0", gin.H{"field": "weight", "value": 1}).Code)
	assert.Equal(t, http.StatusBadRequest, e.do(t, "alice", http.MethodPatch, base+"0", gin.H{"field": "stock", "value": -1}).Code)
	assert.Equal(t, http.StatusBadRequest, e.do(t, "alice", http.MethodPatch, base+"9", gin.H{"field": "sku", "value": "X"}).Code)
	assert.Equal(t, http.StatusBadRequest, e.do(t, "alice", http.MethodPatch, base+"x", gin.H{"field": "sku", "value": "X"}).Code)

	w = e.do(t, "alice", http.MethodPost, "/v1/sessions/"+id+"/variations", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Len(t, decode[session.View](t, w).Variations, 5)

	w = e.do(t, "alice", http.MethodDelete, base+"4", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[session.View](t, w).Variations, 4)
}

func TestUploadVariationImage(t *testing.T) {
	e := newEnv(t, session.Options{})
	id := e.variableSession(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "cover.PNG")
	require.NoError(t, err)
	_, err = part.Write(pngBytes)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/"+id+"/variations/2/image", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer alice")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	s, err := e.h.Sessions.Get(id, 1)
	require.NoError(t, err)
	s.WaitPreviews()

	view := decode[session.View](t, e.do(t, "alice", http.MethodGet, "/v1/sessions/"+id, nil))
	require.NotNil(t, view.Variations[2].Preview)
	assert.Equal(t, "image/png", view.Variations[2].Preview.ContentType)
	require.NotNil(t, view.Variations[2].Image)
	assert.Regexp(t, `^[0-9a-f-]{36}\.png$`, view.Variations[2].Image.Filename)
	assert.Nil(t, view.Variations[0].Preview)

	w = e.do(t, "alice", http.MethodPost, "/v1/sessions/"+id+"/variations/2/image", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, "alice", http.MethodPatch, "/v1/sessions/"+id+"/variations/2", gin.H{"field": "image", "value": "cover.png"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, "alice", http.MethodPatch, "/v1/sessions/"+id+"/variations/2", gin.H{"field": "image", "value": nil})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	view = decode[session.View](t, w)
	assert.Nil(t, view.Variations[2].Image)
	assert.Nil(t, view.Variations[2].Preview)
}

func TestEditExistingBook(t *testing.T) {
	e := newEnv(t, session.Options{})
	sku := "DUNE"
	e.backend.book = &models.Book{
		ID: 5, Title: "Dune", SKU: &sku, ProductType: "variable", Price: decimal.NewFromInt(10),
		Variations: []models.BookVariation{
			{ID: 11, Attributes: variation.NewAttributes("Format", "Hardcover"), StockQuantity: 2, SKU: "DUNE-Hardcover"},
		},
	}

	w := e.do(t, "alice", http.MethodPost, "/v1/sessions", gin.H{"bookId": 5})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	view := decode[session.View](t, w)
	assert.Equal(t, int64(5), *view.BookID)
	assert.Equal(t, "DUNE", view.ParentSKU)
	assert.Equal(t, variation.Variable, view.ProductType)
	require.Len(t, view.Variations, 1)
	assert.Equal(t, int64(11), *view.Variations[0].ID)

	w = e.do(t, "alice", http.MethodPost, "/v1/sessions/"+view.ID+"/submit", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, int64(5), *e.backend.payloads[0].BookID)
	assert.Equal(t, 1.0, testutil.ToFloat64(e.h.Metrics.Submissions.WithLabelValues(metrics.SubmissionUpdated)))

	assert.Equal(t, http.StatusBadGateway, e.do(t, "alice", http.MethodPost, "/v1/sessions", gin.H{"bookId": 6}).Code)
}

func TestProductFieldsAndSKU(t *testing.T) {
	e := newEnv(t, session.Options{})
	w := e.do(t, "alice", http.MethodPost, "/v1/sessions", gin.H{})
	id := decode[session.View](t, w).ID

	w = e.do(t, "alice", http.MethodPatch, "/v1/sessions/"+id, gin.H{"title": "The Go Way", "price": "9.99", "stockQuantity": 3})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	view := decode[session.View](t, w)
	assert.Equal(t, "The Go Way", view.Title)
	assert.Equal(t, 3, *view.StockQuantity)

	assert.Equal(t, http.StatusBadRequest, e.do(t, "alice", http.MethodPatch, "/v1/sessions/"+id, gin.H{"price": "-1"}).Code)

	w = e.do(t, "alice", http.MethodPost, "/v1/sessions/"+id+"/sku/generate", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Regexp(t, `^THE-GO-WAY-[0-9A-F]{6}$`, decode[session.View](t, w).ParentSKU)

	w = e.do(t, "alice", http.MethodPut, "/v1/sessions/"+id+"/sku", gin.H{"sku": "MANUAL"})
	assert.Equal(t, "MANUAL", decode[session.View](t, w).ParentSKU)

	e.do(t, "alice", http.MethodPut, "/v1/sessions/"+id+"/type", gin.H{"productType": "variable"})
	assert.Equal(t, http.StatusBadRequest,
		e.do(t, "alice", http.MethodPatch, "/v1/sessions/"+id, gin.H{"stockQuantity": 1}).Code)
	assert.Equal(t, http.StatusBadRequest,
		e.do(t, "alice", http.MethodPut, "/v1/sessions/"+id+"/type", gin.H{"productType": "bundle"}).Code)

	assert.Equal(t, http.StatusOK, e.do(t, "alice", http.MethodDelete, "/v1/sessions/"+id, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, "alice", http.MethodDelete, "/v1/sessions/"+id, nil).Code)
}

func TestSuggestAttributes(t *testing.T) {
	e := newEnv(t, session.Options{})
	w := e.do(t, "alice", http.MethodPost, "/v1/sessions", gin.H{"title": "Dune"})
	id := decode[session.View](t, w).ID

	assert.Equal(t, http.StatusNotImplemented, e.do(t, "alice", http.MethodPost, "/v1/sessions/"+id+"/attributes/suggest", nil).Code)

	e.h.Suggester = fakeSuggester{drafts: []variation.AttributeDraft{
		{Name: "Format", RawValues: "Hardcover, Paperback"},
		{Name: "format", RawValues: "Ebook"},
	}}
	w = e.do(t, "alice", http.MethodPost, "/v1/sessions/"+id+"/attributes/suggest", gin.H{"description": "Sci-fi"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	view := decode[session.View](t, w)
	require.Len(t, view.Attributes, 2)
	assert.Equal(t, "Format", view.Attributes[0].Name)
	assert.False(t, view.Validation.Valid)
	assert.Equal(t, variation.MsgDuplicateName, view.Validation.Errors[1].NameError)
}

func TestDraftsDisabledAndMetricsEndpoint(t *testing.T) {
	e := newEnv(t, session.Options{})
	w := e.do(t, "alice", http.MethodPost, "/v1/sessions", gin.H{})
	id := decode[session.View](t, w).ID

	assert.Equal(t, http.StatusNotImplemented, e.do(t, "alice", http.MethodPost, "/v1/sessions/"+id+"/draft", nil).Code)
	assert.Equal(t, http.StatusNotImplemented, e.do(t, "alice", http.MethodPost, "/v1/drafts/"+id+"/restore", nil).Code)

	w = e.do(t, "", http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "catalog_sessions_active 1")
}
