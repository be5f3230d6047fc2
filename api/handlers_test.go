package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dodoricogino/INMO-enlaces-PDF/events"
	"github.com/dodoricogino/INMO-enlaces-PDF/models"
	"github.com/dodoricogino/INMO-enlaces-PDF/scraper"
	"github.com/dodoricogino/INMO-enlaces-PDF/services"
	"github.com/dodoricogino/INMO-enlaces-PDF/storage"
	"github.com/dodoricogino/INMO-enlaces-PDF/utils"
)

// fakeExtractor fails with errs in order, then succeeds.
type fakeExtractor struct {
	errs  []error
	calls atomic.Int32
}

func (f *fakeExtractor) Extract(ctx context.Context, url string) (*models.ExtractedPayload, error) {
	n := int(f.calls.Add(1)) - 1
	if n < len(f.errs) {
		return nil, f.errs[n]
	}
	price := 120000.0
	currency := "USD"
	return &models.ExtractedPayload{
		Title:    "Casa Centro",
		Price:    &price,
		Currency: &currency,
		Extras:   []string{},
		Images:   []string{"https://img.test/1.jpg"},
	}, nil
}

type testEnv struct {
	router    http.Handler
	extractor *fakeExtractor
	recorder  *events.Recorder
	now       time.Time
}

func newTestEnv(t *testing.T, extractErrs ...error) *testEnv {
	t.Helper()
	env := &testEnv{
		extractor: &fakeExtractor{errs: extractErrs},
		recorder:  &events.Recorder{},
		now:       time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	logger := utils.NewNopLogger()
	format := services.NewFormatter("es")
	pages, err := services.NewPublicPageRenderer(format)
	if err != nil {
		t.Fatal(err)
	}
	props := services.NewPropertyService(services.PropertyConfig{
		Store:     storage.NewMemoryStore(),
		Publisher: env.recorder,
		Logger:    logger,
		Now:       func() time.Time { return env.now },
	})
	env.router = NewRouter(Deps{
		Extractor:  env.extractor,
		Properties: props,
		Brochures:  services.NewBrochureRenderer(format),
		Pages:      pages,
		Publisher:  env.recorder,
		Retry:      utils.RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond},
		Logger:     logger,
	})
	return env
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestExtractSuccess(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodPost, "/api/extract", `{"url":"https://portal.test/listing/1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body)
	}
	var payload models.ExtractedPayload
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatal(err)
	}
	if payload.Title != "Casa Centro" || *payload.Price != 120000 {
		t.Errorf("payload: %+v", payload)
	}
	if rec.Header().Get(TraceHeader) == "" {
		t.Error("response must carry a trace id")
	}

	evs := env.recorder.Events()
	if len(evs) != 1 || evs[0].Type != events.TypeExtraction {
		t.Fatalf("events: %+v", evs)
	}
	if data := evs[0].Data.(events.ListingExtracted); data.Host != "portal.test" || data.ErrorKind != "" {
		t.Errorf("event data: %+v", data)
	}
}

func TestExtractErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"invalid url", &scraper.InvalidURLError{URL: "x", Reason: "empty"}, http.StatusBadRequest, scraper.KindInvalidURL},
		{"unsupported", &scraper.UnsupportedPortalError{Host: "other.test"}, http.StatusUnprocessableEntity, scraper.KindUnsupportedPortal},
		{"malformed", &scraper.MalformedMarkupError{Reason: "empty document"}, http.StatusBadGateway, scraper.KindMalformedMarkup},
		{"internal", errors.New("boom"), http.StatusInternalServerError, scraper.KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.err, tt.err)
			rec := env.do(http.MethodPost, "/api/extract", `{"url":"https://portal.test/1"}`)
			if rec.Code != tt.status {
				t.Errorf("status: got %d, want %d", rec.Code, tt.status)
			}
			var body ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body.Kind != tt.kind {
				t.Errorf("kind: got %q, want %q", body.Kind, tt.kind)
			}
			if got := env.extractor.calls.Load(); got != 1 {
				t.Errorf("non-retryable errors must not be retried, got %d calls", got)
			}
		})
	}
}

func TestExtractRetriesTransientFailures(t *testing.T) {
	env := newTestEnv(t, &scraper.NavigationError{URL: "u", Err: errors.New("reset")})
	rec := env.do(http.MethodPost, "/api/extract", `{"url":"https://portal.test/1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body)
	}
	if got := env.extractor.calls.Load(); got != 2 {
		t.Errorf("calls: got %d, want 2", got)
	}
}

func TestExtractTimeoutAfterRetries(t *testing.T) {
	timeout := &scraper.TimeoutError{URL: "u", After: time.Second}
	env := newTestEnv(t, timeout, timeout)
	rec := env.do(http.MethodPost, "/api/extract", `{"url":"https://portal.test/1"}`)
	if rec.Code != http.StatusGatewayTimeout {
		t.Errorf("status: %d", rec.Code)
	}
	if got := env.recorder.Events()[0].Data.(events.ListingExtracted).ErrorKind; got != scraper.KindTimeout {
		t.Errorf("event kind: %q", got)
	}
}

func TestExtractBadBody(t *testing.T) {
	env := newTestEnv(t)
	if rec := env.do(http.MethodPost, "/api/extract", `not json`); rec.Code != http.StatusBadRequest {
		t.Errorf("status: %d", rec.Code)
	}
	if env.extractor.calls.Load() != 0 {
		t.Error("bad body must not reach the extractor")
	}
}

const saveBody = `{
  "property": {"title": "Casa Centro", "sourceUrl": "https://portal.test/1", "price": 120000, "currency": "USD"},
  "images": ["https://img.test/1.jpg", "https://img.test/2.jpg"],
  "linkConfig": {"expiresInDays": 3}
}`

func saveProperty(t *testing.T, env *testEnv) models.SaveResult {
	t.Helper()
	rec := env.do(http.MethodPost, "/api/properties", saveBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("save status %d: %s", rec.Code, rec.Body)
	}
	var res models.SaveResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	return res
}

func TestPropertyLifecycle(t *testing.T) {
	env := newTestEnv(t)
	res := saveProperty(t, env)

	rec := env.do(http.MethodGet, "/api/properties/"+res.PropertyID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status %d", rec.Code)
	}
	var prop models.Property
	if err := json.Unmarshal(rec.Body.Bytes(), &prop); err != nil {
		t.Fatal(err)
	}
	if prop.Title != "Casa Centro" || len(prop.Images) != 2 {
		t.Errorf("property: %+v", prop)
	}

	rec = env.do(http.MethodGet, res.PDFURL, "")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/pdf" {
		t.Fatalf("pdf: status %d type %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !strings.HasPrefix(rec.Body.String(), "%PDF-") {
		t.Error("pdf body is not a PDF")
	}

	rec = env.do(http.MethodGet, res.PublicURL, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Casa Centro") {
		t.Errorf("public page: status %d", rec.Code)
	}

	env.now = env.now.AddDate(0, 0, 4)
	rec = env.do(http.MethodGet, res.PublicURL, "")
	if rec.Code != http.StatusGone || !strings.Contains(rec.Body.String(), services.ExpiredTitle) {
		t.Errorf("expired page: status %d", rec.Code)
	}
}

func TestPropertyErrors(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"invalid body", http.MethodPost, "/api/properties", `{"property":{"title":""}}`, http.StatusBadRequest},
		{"unknown branding", http.MethodPost, "/api/properties", `{"property":{"title":"x","sourceUrl":"https://p.test/1"},"brandingProfileId":"nope"}`, http.StatusBadRequest},
		{"unknown property", http.MethodGet, "/api/properties/missing", "", http.StatusNotFound},
		{"unknown pdf", http.MethodGet, "/api/properties/missing/pdf", "", http.StatusNotFound},
		{"unknown slug", http.MethodGet, "/p/missing1", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := env.do(tt.method, tt.path, tt.body); rec.Code != tt.status {
				t.Errorf("status: got %d, want %d (%s)", rec.Code, tt.status, rec.Body)
			}
		})
	}
}

func TestHealthAndTraceID(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	const trace = "4f2a6f49-6a0e-4a5b-9f59-0c1e2b3d4e5f"
	req.Header.Set(TraceHeader, trace)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status: %d", rec.Code)
	}
	if got := rec.Header().Get(TraceHeader); got != trace {
		t.Errorf("trace id must be propagated, got %q", got)
	}
}
