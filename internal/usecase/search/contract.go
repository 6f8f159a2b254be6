package search

import (
	"context"

	"github.com/corpusd/corpusd/internal/domain"
)

// Embedder vectorizes a single query sentence.
type Embedder interface {
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}

// Reader loads the full comparison set from the record store.
type Reader interface {
	List(ctx context.Context) ([]domain.Record, error)
}
