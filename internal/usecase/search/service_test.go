package search

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/corpusd/corpusd/internal/domain"
)

// --- Mocks ---

type mockReader struct {
	records []domain.Record
	err     error
}

func (m *mockReader) List(_ context.Context) ([]domain.Record, error) {
	return m.records, m.err
}

type mockEmbedder struct {
	vec []float32
	err error
}

func (m *mockEmbedder) EmbedOne(_ context.Context, _ string) ([]float32, error) {
	return m.vec, m.err
}

// --- Tests ---

func TestSearch_RanksDescending(t *testing.T) {
	store := &mockReader{records: []domain.Record{
		{Reference: "far", Text: "far text", Embedding: []float32{0, 1}},
		{Reference: "near", Text: "near text", Embedding: []float32{1, 0.1}},
	}}
	embed := &mockEmbedder{vec: []float32{1, 0}}
	svc := New(store, embed)

	rs, err := svc.Search(context.Background(), "query")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rs.Sentence != "query" {
		t.Errorf("sentence = %q", rs.Sentence)
	}
	if len(rs.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(rs.Results))
	}
	if rs.Results[0].Paragraph.Reference != "near" {
		t.Errorf("top result = %q, want %q", rs.Results[0].Paragraph.Reference, "near")
	}
	for i := 1; i < len(rs.Results); i++ {
		if rs.Results[i-1].Similarity < rs.Results[i].Similarity {
			t.Errorf("results not sorted descending at %d", i)
		}
	}
}

func TestSearch_TiesKeepStoreOrder(t *testing.T) {
	// Identical vectors score identically; the stable sort must keep the
	// store's row order.
	store := &mockReader{records: []domain.Record{
		{Reference: "first", Embedding: []float32{1, 1}},
		{Reference: "second", Embedding: []float32{2, 2}},
	}}
	embed := &mockEmbedder{vec: []float32{1, 1}}
	svc := New(store, embed)

	rs, err := svc.Search(context.Background(), "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rs.Results[0].Paragraph.Reference != "first" || rs.Results[1].Paragraph.Reference != "second" {
		t.Errorf("tie order broken: %s, %s",
			rs.Results[0].Paragraph.Reference, rs.Results[1].Paragraph.Reference)
	}
}

func TestSearch_NaNSortsLast(t *testing.T) {
	store := &mockReader{records: []domain.Record{
		{Reference: "degenerate", Embedding: []float32{0, 0}},
		{Reference: "real", Embedding: []float32{1, 0}},
	}}
	embed := &mockEmbedder{vec: []float32{1, 0}}
	svc := New(store, embed)

	rs, err := svc.Search(context.Background(), "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rs.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(rs.Results))
	}
	if rs.Results[0].Paragraph.Reference != "real" {
		t.Errorf("top result = %q, want the real score first", rs.Results[0].Paragraph.Reference)
	}
	if !math.IsNaN(float64(rs.Results[1].Similarity)) {
		t.Errorf("expected NaN last, got %v", rs.Results[1].Similarity)
	}
}

func TestSearch_EmptyStore(t *testing.T) {
	svc := New(&mockReader{}, &mockEmbedder{vec: []float32{1}})

	rs, err := svc.Search(context.Background(), "anything")
	if err != nil {
		t.Fatalf("empty store must not error: %v", err)
	}
	if rs.Sentence != "anything" {
		t.Errorf("sentence = %q", rs.Sentence)
	}
	if rs.Results == nil || len(rs.Results) != 0 {
		t.Errorf("expected empty non-nil results, got %#v", rs.Results)
	}
}

func TestSearch_EmbedFailure(t *testing.T) {
	svc := New(&mockReader{}, &mockEmbedder{err: domain.ErrEmbeddingProvider})
	_, err := svc.Search(context.Background(), "q")
	if !errors.Is(err, domain.ErrEmbeddingProvider) {
		t.Errorf("expected ErrEmbeddingProvider, got %v", err)
	}
}

func TestSearch_StoreFailure(t *testing.T) {
	svc := New(&mockReader{err: domain.ErrStoreRead}, &mockEmbedder{vec: []float32{1}})
	_, err := svc.Search(context.Background(), "q")
	if !errors.Is(err, domain.ErrStoreRead) {
		t.Errorf("expected ErrStoreRead, got %v", err)
	}
}

func TestSearch_DimensionMismatchFailsFast(t *testing.T) {
	store := &mockReader{records: []domain.Record{
		{Reference: "short", Embedding: []float32{1}},
	}}
	svc := New(store, &mockEmbedder{vec: []float32{1, 0}})
	_, err := svc.Search(context.Background(), "q")
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Errorf("expected ErrVectorDimMismatch, got %v", err)
	}
}
