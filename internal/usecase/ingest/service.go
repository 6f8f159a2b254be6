// Package ingest turns submitted passages into stored records:
// summarize each, embed the summaries in one batch, persist the triples.
package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/corpusd/corpusd/internal/domain"
	"github.com/corpusd/corpusd/internal/logger"
)

// Service orchestrates the ingestion pipeline.
type Service struct {
	store     Writer
	embed     Embedder
	summarize Summarizer
}

// New creates an ingestion service.
func New(store Writer, embed Embedder, summarize Summarizer) *Service {
	return &Service{store: store, embed: embed, summarize: summarize}
}

// Ingest summarizes each passage, embeds the summaries in a single batch
// call and persists one record per surviving passage. The embedding for a
// passage is derived from its summary; the stored text is the original.
//
// Returns the count of passages as submitted, regardless of how many were
// actually stored: a passage whose summarization fails is dropped (logged,
// siblings continue), and a failed insert is tolerated per record. This is
// a deliberate best-effort contract favoring simple caller semantics over
// exact accounting. A batch embedding failure aborts the whole call with
// nothing stored.
func (s *Service) Ingest(ctx context.Context, passages []domain.Paragraph) (int, error) {
	log := logger.FromContext(ctx)

	survivors := make([]domain.Paragraph, 0, len(passages))
	summaries := make([]string, 0, len(passages))
	for _, p := range passages {
		summary, err := s.summarize.Summarize(ctx, p.Text)
		if err != nil {
			log.Warn("dropping passage: summarization failed",
				zap.String("reference", p.Reference), zap.Error(err))
			continue
		}
		survivors = append(survivors, p)
		summaries = append(summaries, summary)
	}

	if len(survivors) == 0 {
		return len(passages), nil
	}

	vectors, err := s.embed.EmbedBatch(ctx, summaries)
	if err != nil {
		return 0, fmt.Errorf("embed summaries: %w", err)
	}

	for i, p := range survivors {
		rec := domain.Record{Reference: p.Reference, Text: p.Text, Embedding: vectors[i]}
		if err := s.store.Insert(ctx, rec); err != nil {
			log.Warn("failed to store paragraph record",
				zap.String("reference", p.Reference), zap.Error(err))
		}
	}

	return len(passages), nil
}
