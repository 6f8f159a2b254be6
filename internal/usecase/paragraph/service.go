// Package paragraph provides plain retrieval and deletion over the record
// store.
package paragraph

import (
	"context"
	"fmt"

	"github.com/corpusd/corpusd/internal/domain"
)

// Service handles paragraph listing and deletion.
type Service struct {
	store Store
}

// New creates a paragraph service.
func New(store Store) *Service {
	return &Service{store: store}
}

// List returns every stored paragraph's visible fields. Embeddings are never
// exposed through this path.
func (s *Service) List(ctx context.Context) ([]domain.Paragraph, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list paragraphs: %w", err)
	}

	paragraphs := make([]domain.Paragraph, len(records))
	for i, rec := range records {
		paragraphs[i] = rec.Paragraph()
	}
	return paragraphs, nil
}

// Delete removes the record for reference. Returns true if a record existed
// and was removed; false for an unknown reference is not an error.
func (s *Service) Delete(ctx context.Context, reference string) (bool, error) {
	removed, err := s.store.Delete(ctx, reference)
	if err != nil {
		return false, fmt.Errorf("delete paragraph: %w", err)
	}
	return removed, nil
}
