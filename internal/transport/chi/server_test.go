package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/tradefind/tradefind/internal/domain"
	"github.com/tradefind/tradefind/internal/repository/cache"
	healthuc "github.com/tradefind/tradefind/internal/usecase/health"
	searchuc "github.com/tradefind/tradefind/internal/usecase/search"
	syncuc "github.com/tradefind/tradefind/internal/usecase/sync"
)

// --- Fakes wired through the real usecases ---

type fakeRecords struct {
	list []domain.Contractor
	err  error
}

func (f *fakeRecords) ListAll(_ context.Context) ([]domain.Contractor, error) {
	return f.list, f.err
}

func (f *fakeRecords) Count(_ context.Context) (int, error) {
	return len(f.list), f.err
}

func (f *fakeRecords) GetTextFields(_ context.Context, id string) (*string, *string, error) {
	for _, c := range f.list {
		if c.ID == id {
			return c.BioText, c.ServicesText, nil
		}
	}
	return nil, nil, domain.ErrNotFound
}

func (f *fakeRecords) ListTextSources(_ context.Context) ([]domain.TextSource, error) {
	var out []domain.TextSource
	for _, c := range f.list {
		out = append(out, domain.TextSource{ID: c.ID, BioText: c.BioText, ServicesText: c.ServicesText})
	}
	return out, f.err
}

type fakeIndex struct {
	hits          []domain.ScoredContractor
	lastK         int
	lastThreshold float64
}

func (f *fakeIndex) Query(_ context.Context, _ []float32, k int, threshold float64) ([]domain.ScoredContractor, error) {
	f.lastK = k
	f.lastThreshold = threshold
	return f.hits, nil
}

func (f *fakeIndex) Upsert(_ context.Context, _, _ string, _ []float32) error { return nil }
func (f *fakeIndex) Delete(_ context.Context, _ string) error                 { return nil }

type fakeEmbedder struct{}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{Embedding: make([]float32, domain.EmbeddingDimensions)}, nil
}

type fakeSynth struct{}

func (f *fakeSynth) Synthesize(_ context.Context, _ string, _ []domain.View) domain.SynthesizedAnswer {
	return domain.SynthesizedAnswer{
		Answer:      "summary",
		KeyInsights: []string{},
		Sources:     []string{},
		GeneratedAt: "2026-01-01T00:00:00Z",
	}
}

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(_ context.Context) error { return f.err }

func newTestServer(records *fakeRecords, dbErr error) (*Server, *fakeIndex) {
	logger := zap.NewNop()
	index := &fakeIndex{}
	// Nil backing store: cache reads as misses, writes as no-ops.
	resultCache := cache.New(nil, cache.Config{KeyPrefix: "tradefind:"}, nil, logger)
	searchSvc := searchuc.New(records, index, &fakeEmbedder{}, &fakeSynth{}, resultCache, searchuc.Config{}, logger)
	syncSvc := syncuc.New(records, index, &fakeEmbedder{}, resultCache, domain.EmbeddingDimensions, logger)
	healthSvc := healthuc.New(&fakePinger{err: dbErr}, nil, nil, records)
	return NewServer(searchSvc, syncSvc, healthSvc, resultCache, logger), index
}

func doRequest(t *testing.T, srv *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	srv.Routes(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

// --- Tests ---

func TestPlainSearchEndpoint(t *testing.T) {
	bio := "licensed plumber"
	srv, _ := newTestServer(&fakeRecords{list: []domain.Contractor{
		{ID: "1", Name: "Alice Plumbing", BioText: &bio},
	}}, nil)

	rec := doRequest(t, srv, http.MethodGet, "/search/plain?q=plumber")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp domain.SearchResult
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.TotalCount != 1 || resp.Query != "plumber" {
		t.Errorf("unexpected payload: %+v", resp)
	}
}

func TestRAGSearchEndpoint(t *testing.T) {
	srv, _ := newTestServer(&fakeRecords{list: []domain.Contractor{{ID: "1", Name: "Alice Plumbing"}}}, nil)

	rec := doRequest(t, srv, http.MethodGet, "/search?q=plumber")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp domain.RAGResult
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Answer != "summary" || resp.TotalCount != 1 {
		t.Errorf("unexpected payload: %+v", resp)
	}
}

func TestSemanticSearchEndpoint_Tagged(t *testing.T) {
	srv, _ := newTestServer(&fakeRecords{}, nil)

	rec := doRequest(t, srv, http.MethodGet, "/search/semantic?q=plumber")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["search_type"] != "semantic" {
		t.Errorf("search_type = %v, want semantic", resp["search_type"])
	}
}

func TestSemanticSearchEndpoint_LimitAndThresholdParams(t *testing.T) {
	srv, index := newTestServer(&fakeRecords{}, nil)

	rec := doRequest(t, srv, http.MethodGet, "/search/semantic?q=plumber&limit=5&threshold=0.7")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if index.lastK != 5 {
		t.Errorf("limit passed to index = %d, want 5", index.lastK)
	}
	if index.lastThreshold != 0.7 {
		t.Errorf("threshold passed to index = %v, want 0.7", index.lastThreshold)
	}
}

func TestSemanticSearchEndpoint_InvalidParamsAre400(t *testing.T) {
	srv, _ := newTestServer(&fakeRecords{}, nil)

	for _, target := range []string{
		"/search/semantic?q=plumber&limit=zero",
		"/search/semantic?q=plumber&limit=-3",
		"/search/semantic?q=plumber&threshold=2.5",
	} {
		rec := doRequest(t, srv, http.MethodGet, target)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, rec.Code)
		}
	}
}

func TestUpdateEmbedding_UnknownRecordIs404(t *testing.T) {
	srv, _ := newTestServer(&fakeRecords{}, nil)

	rec := doRequest(t, srv, http.MethodPost, "/embeddings/update/99")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Code != "not_found" {
		t.Errorf("code = %q, want not_found", resp.Code)
	}
}

func TestUpdateAllEmbeddings_ReportsProcessedCount(t *testing.T) {
	bio := "electrician"
	srv, _ := newTestServer(&fakeRecords{list: []domain.Contractor{
		{ID: "1", Name: "A", BioText: &bio},
		{ID: "2", Name: "B", BioText: &bio},
	}}, nil)

	rec := doRequest(t, srv, http.MethodPost, "/embeddings/update-all")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["processed"] != 2 {
		t.Errorf("processed = %d, want 2", resp["processed"])
	}
}

func TestHealthEndpoint_DatabaseDownIs503(t *testing.T) {
	srv, _ := newTestServer(&fakeRecords{}, errors.New("refused"))

	rec := doRequest(t, srv, http.MethodGet, "/health")

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestCacheStats_DisconnectedWithoutStore(t *testing.T) {
	srv, _ := newTestServer(&fakeRecords{}, nil)

	rec := doRequest(t, srv, http.MethodGet, "/cache/stats")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp cache.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "disconnected" {
		t.Errorf("status = %q, want disconnected", resp.Status)
	}
}
