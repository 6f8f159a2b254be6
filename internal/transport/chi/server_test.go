package chi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/corpusd/corpusd/internal/domain"
	"github.com/corpusd/corpusd/internal/store/sqlite"
	healthuc "github.com/corpusd/corpusd/internal/usecase/health"
	ingestuc "github.com/corpusd/corpusd/internal/usecase/ingest"
	paragraphuc "github.com/corpusd/corpusd/internal/usecase/paragraph"
	searchuc "github.com/corpusd/corpusd/internal/usecase/search"
)

// fakeEmbedder returns fixed vectors per text, so rankings are deterministic.
type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, ok := f.vectors[t]
		if !ok {
			return nil, fmt.Errorf("no fake vector for %q: %w", t, domain.ErrEmbeddingProvider)
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vs, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vs[0], nil
}

// fakeSummarizer condenses by prefixing, keeping the mapping predictable.
type fakeSummarizer struct{}

func (fakeSummarizer) Summarize(_ context.Context, text string) (string, error) {
	return "summary: " + text, nil
}

func newTestServer(t *testing.T, embed *fakeEmbedder) *httptest.Server {
	t.Helper()

	st, err := sqlite.Open(":memory:", zap.NewNop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	srv := NewServer(
		ingestuc.New(st, embed, fakeSummarizer{}),
		searchuc.New(st, embed),
		paragraphuc.New(st),
		healthuc.New(st, nil),
		zap.NewNop(),
	)

	r := chi.NewRouter()
	srv.Register(r)

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts
}

func petEmbedder() *fakeEmbedder {
	return &fakeEmbedder{vectors: map[string][]float32{
		"summary: cats are great pets":       {1, 0},
		"summary: dogs are loyal companions": {0, 1},
		"feline pets":                        {0.9, 0.1},
	}}
}

func ingestPets(t *testing.T, ts *httptest.Server) {
	t.Helper()
	body := `[
		{"url": "a", "text": "cats are great pets", "crawl": {"depth": 1}},
		{"url": "b", "text": "dogs are loyal companions", "screenshotUrl": "https://img.example/b.png"}
	]`
	resp, err := http.Post(ts.URL+"/embeddings", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("ingest status = %d, want 201", resp.StatusCode)
	}
	var out map[string]int
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["stored"] != 2 {
		t.Fatalf("stored = %d, want 2", out["stored"])
	}
}

func TestEndToEnd_IngestSearchDelete(t *testing.T) {
	ts := newTestServer(t, petEmbedder())
	ingestPets(t, ts)

	// Semantic query: the feline sentence must rank the cats passage first.
	resp, err := http.Get(ts.URL + "/embeddings?sentence=" + url.QueryEscape("feline pets"))
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("search status = %d", resp.StatusCode)
	}
	var rs domain.ResultSet
	if err := json.NewDecoder(resp.Body).Decode(&rs); err != nil {
		t.Fatalf("decode result set: %v", err)
	}
	if rs.Sentence != "feline pets" {
		t.Errorf("sentence = %q", rs.Sentence)
	}
	if len(rs.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(rs.Results))
	}
	if rs.Results[0].Paragraph.Reference != "a" {
		t.Errorf("top result = %q, want %q", rs.Results[0].Paragraph.Reference, "a")
	}
	// Original text is returned unaltered, not the summary.
	if rs.Results[0].Paragraph.Text != "cats are great pets" {
		t.Errorf("text = %q, want the original passage", rs.Results[0].Paragraph.Text)
	}

	// Delete one and check it is gone.
	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/embeddings/a", nil)
	dresp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	dresp.Body.Close()
	if dresp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", dresp.StatusCode)
	}

	// Repeated delete: unknown reference maps to 404.
	dresp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("repeat delete: %v", err)
	}
	dresp2.Body.Close()
	if dresp2.StatusCode != http.StatusNotFound {
		t.Fatalf("repeat delete status = %d, want 404", dresp2.StatusCode)
	}
}

func TestListEmbeddings(t *testing.T) {
	ts := newTestServer(t, petEmbedder())
	ingestPets(t, ts)

	resp, err := http.Get(ts.URL + "/embeddings")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}

	var paragraphs []domain.Paragraph
	if err := json.NewDecoder(resp.Body).Decode(&paragraphs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(paragraphs) != 2 {
		t.Fatalf("expected 2 paragraphs, got %d", len(paragraphs))
	}
	if paragraphs[0].Reference != "a" || paragraphs[0].Text != "cats are great pets" {
		t.Errorf("unexpected first paragraph: %+v", paragraphs[0])
	}
}

func TestSearch_EmptyStore(t *testing.T) {
	embed := &fakeEmbedder{vectors: map[string][]float32{"anything": {1, 0}}}
	ts := newTestServer(t, embed)

	resp, err := http.Get(ts.URL + "/embeddings?sentence=anything")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var raw struct {
		Sentence string            `json:"sentence"`
		Results  []json.RawMessage `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if raw.Sentence != "anything" {
		t.Errorf("sentence = %q", raw.Sentence)
	}
	if raw.Results == nil || len(raw.Results) != 0 {
		t.Errorf("expected empty results array, got %v", raw.Results)
	}
}

func TestCreateEmbeddings_EmbeddingFailureIs502(t *testing.T) {
	ts := newTestServer(t, &fakeEmbedder{err: domain.ErrEmbeddingProvider})

	resp, err := http.Post(ts.URL+"/embeddings", "application/json",
		strings.NewReader(`[{"url": "a", "text": "x"}]`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", resp.StatusCode)
	}
	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if er.Code != codeEmbeddingProvider {
		t.Errorf("code = %q, want %q", er.Code, codeEmbeddingProvider)
	}
}

func TestCreateEmbeddings_BadPayload(t *testing.T) {
	ts := newTestServer(t, petEmbedder())

	resp, err := http.Post(ts.URL+"/embeddings", "application/json", strings.NewReader(`{"not":"an array"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}

	resp, err = http.Post(ts.URL+"/embeddings", "application/json", strings.NewReader(`[{"text": "no url"}]`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status for missing url = %d, want 400", resp.StatusCode)
	}
}

func TestDeleteEmbedding_EscapedReference(t *testing.T) {
	embed := &fakeEmbedder{vectors: map[string][]float32{
		"summary: some page": {1, 0},
	}}
	ts := newTestServer(t, embed)

	body := `[{"url": "https://example.com/page?id=1", "text": "some page"}]`
	resp, err := http.Post(ts.URL+"/embeddings", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()

	escaped := url.PathEscape("https://example.com/page?id=1")
	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/embeddings/"+escaped, nil)
	dresp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	dresp.Body.Close()
	if dresp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", dresp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, petEmbedder())

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var report healthuc.Report
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Status != healthuc.Healthy {
		t.Errorf("status = %s, want %s", report.Status, healthuc.Healthy)
	}
}
