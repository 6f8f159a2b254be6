package ingest

import (
	"context"

	"github.com/corpusd/corpusd/internal/domain"
)

// Summarizer condenses a passage before embedding.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Embedder vectorizes a batch of texts, one vector per input, same order.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Writer persists paragraph records.
type Writer interface {
	Insert(ctx context.Context, rec domain.Record) error
}
