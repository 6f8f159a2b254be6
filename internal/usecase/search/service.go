// Package search ranks stored paragraphs against a query sentence by cosine
// similarity. The comparison set is the entire store: a linear scan with
// O(N*L) cost per query, acceptable for a small corpus only.
package search

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/corpusd/corpusd/internal/domain"
)

// Service is the similarity engine.
type Service struct {
	store Reader
	embed Embedder
}

// New creates a search service.
func New(store Reader, embed Embedder) *Service {
	return &Service{store: store, embed: embed}
}

// Search embeds the sentence, scores every stored record against it and
// returns the results sorted by similarity descending. Ties keep the store's
// row order; NaN scores (zero-norm vectors) sort last. An empty store yields
// an empty result set, not an error.
func (s *Service) Search(ctx context.Context, sentence string) (domain.ResultSet, error) {
	queryVec, err := s.embed.EmbedOne(ctx, sentence)
	if err != nil {
		return domain.ResultSet{}, fmt.Errorf("embed query: %w", err)
	}

	records, err := s.store.List(ctx)
	if err != nil {
		return domain.ResultSet{}, fmt.Errorf("load comparison set: %w", err)
	}

	results := make([]domain.SimilarityResult, 0, len(records))
	for _, rec := range records {
		if len(rec.Embedding) != len(queryVec) {
			return domain.ResultSet{}, fmt.Errorf(
				"record %q has dimension %d, query has %d: %w",
				rec.Reference, len(rec.Embedding), len(queryVec), domain.ErrVectorDimMismatch,
			)
		}
		results = append(results, domain.SimilarityResult{
			Paragraph:  rec.Paragraph(),
			Similarity: domain.CosineSimilarity(rec.Embedding, queryVec),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return moreSimilar(results[i].Similarity, results[j].Similarity)
	})

	return domain.ResultSet{Sentence: sentence, Results: results}, nil
}

// moreSimilar orders scores descending with NaN after every real value.
func moreSimilar(a, b float32) bool {
	if math.IsNaN(float64(a)) {
		return false
	}
	if math.IsNaN(float64(b)) {
		return true
	}
	return a > b
}
