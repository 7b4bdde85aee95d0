package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"listingsearch/internal/apperror"
	"listingsearch/internal/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type stubSearcher struct {
	resp  *model.SearchResponse
	err   error
	calls int
}

func (s *stubSearcher) Search(_ context.Context, query string) (*model.SearchResponse, error) {
	s.calls++
	if strings.TrimSpace(query) == "" {
		return nil, apperror.Validation("Query cannot be empty")
	}
	if s.err != nil {
		return nil, s.err
	}
	s.resp.Query = query
	return s.resp, nil
}

type stubSimilarity struct {
	results []model.ScoredListing
	err     error
	topK    int
}

func (s *stubSimilarity) Search(_ context.Context, query string, topK int) ([]model.ScoredListing, error) {
	s.topK = topK
	if strings.TrimSpace(query) == "" {
		return nil, apperror.Validation("Query cannot be empty")
	}
	return s.results, s.err
}

func (s *stubSimilarity) Reindex(context.Context) (int, error) {
	return len(s.results), s.err
}

func newTestRouter(searcher Searcher, similarity SimilarityFinder) *gin.Engine {
	gin.SetMode(gin.TestMode)

	routes := Routes{
		Search:         NewSearchHandler(searcher),
		Health:         NewHealthHandler("sqlite", model.DialectSQLite, func() bool { return similarity != nil }, BuildInfo{Version: "test"}),
		AllowedOrigins: "*",
	}
	if similarity != nil {
		routes.Similarity = NewSimilarityHandler(similarity, 10)
	}
	return NewRouter(routes, zap.NewNop())
}

func doRequest(router *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSearch_Success(t *testing.T) {
	searcher := &stubSearcher{resp: &model.SearchResponse{
		Success: true,
		Results: []model.ListingRecord{{ListingKey: "1"}, {ListingKey: "2"}},
		Count:   2,
		Message: "Showing 2 homes",
	}}
	router := newTestRouter(searcher, nil)

	w := doRequest(router, http.MethodPost, "/api/search", `{"query":"Show me homes"}`, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp model.SearchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.Count != 2 || len(resp.Results) != 2 || resp.Query != "Show me homes" {
		t.Errorf("unexpected response %+v", resp)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	for _, body := range []string{`{"query":""}`, `{"query":"   "}`, `{}`} {
		router := newTestRouter(&stubSearcher{}, nil)
		w := doRequest(router, http.MethodPost, "/api/search", body, nil)

		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", body, w.Code)
			continue
		}

		var got map[string]any
		if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if got["success"] != false || got["query"] != "" || got["count"] != float64(0) {
			t.Errorf("%s: unexpected body %v", body, got)
		}
		if results, ok := got["results"].([]any); !ok || len(results) != 0 {
			t.Errorf("%s: results = %v, want []", body, got["results"])
		}
		if got["error"] != "Query cannot be empty" {
			t.Errorf("%s: error = %v", body, got["error"])
		}
	}
}

func TestSearch_MalformedBody(t *testing.T) {
	searcher := &stubSearcher{}
	router := newTestRouter(searcher, nil)

	w := doRequest(router, http.MethodPost, "/api/search", `{"query":`, nil)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if searcher.calls != 0 {
		t.Error("malformed body should not reach the service")
	}
	if !strings.Contains(w.Body.String(), `"success":false`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestSearch_PipelineFailure(t *testing.T) {
	searcher := &stubSearcher{err: apperror.Upstream("Gemini API", 503, "unavailable")}
	router := newTestRouter(searcher, nil)

	w := doRequest(router, http.MethodPost, "/api/search", `{"query":"homes"}`, nil)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	var got map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got["success"] != false || got["error"] != "Gemini API error: 503 - unavailable" {
		t.Errorf("unexpected body %v", got)
	}
	if _, ok := got["results"]; ok {
		t.Error("failure response must not carry results")
	}
}

func TestSearch_Preflight(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
	}{
		{name: "Without origin"},
		{
			name: "Browser preflight",
			headers: map[string]string{
				"Origin":                        "http://localhost:3000",
				"Access-Control-Request-Method": "POST",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&stubSearcher{}, nil)
			w := doRequest(router, http.MethodOptions, "/api/search", "", tt.headers)

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", w.Code)
			}
			if w.Body.Len() != 0 {
				t.Errorf("body = %q, want empty", w.Body.String())
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
				t.Errorf("Allow-Origin = %q", got)
			}
			if got := w.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, "POST") || !strings.Contains(got, "DELETE") {
				t.Errorf("Allow-Methods = %q", got)
			}
			if got := w.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(got, "X-Client-Info") || !strings.Contains(got, "Apikey") {
				t.Errorf("Allow-Headers = %q", got)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	router := newTestRouter(&stubSearcher{}, nil)
	w := doRequest(router, http.MethodGet, "/api/health", "", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var got map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got["status"] != "healthy" || got["backend"] != "sqlite" || got["dialect"] != "sqlite" || got["similarity_ready"] != false {
		t.Errorf("unexpected body %v", got)
	}
	if _, ok := got["timestamp"].(string); !ok {
		t.Error("missing timestamp")
	}

	w = doRequest(router, http.MethodGet, "/version", "", nil)
	if !strings.Contains(w.Body.String(), `"version":"test"`) {
		t.Errorf("version body = %s", w.Body.String())
	}
}

func TestSimilar(t *testing.T) {
	similarity := &stubSimilarity{results: []model.ScoredListing{
		{Listing: model.ListingRecord{ListingKey: "a"}, Score: 0.9},
	}}
	router := newTestRouter(&stubSearcher{}, similarity)

	w := doRequest(router, http.MethodPost, "/api/similar", `{"query":"pool","top_k":100}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp model.SimilarResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.Count != 1 || resp.Results[0].Listing.ListingKey != "a" {
		t.Errorf("unexpected response %+v", resp)
	}
	if similarity.topK != 10 {
		t.Errorf("top_k passed = %d, want capped 10", similarity.topK)
	}

	w = doRequest(router, http.MethodPost, "/api/similar", `{"query":" "}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("blank query status = %d, want 400", w.Code)
	}

	w = doRequest(router, http.MethodPost, "/api/similar/reindex", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"indexed":1`) {
		t.Errorf("reindex: status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestSimilar_DisabledRoutesAreAbsent(t *testing.T) {
	router := newTestRouter(&stubSearcher{}, nil)
	w := doRequest(router, http.MethodPost, "/api/similar", `{"query":"pool"}`, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
