package paragraph

import (
	"context"

	"github.com/corpusd/corpusd/internal/domain"
)

// Store provides read and delete access to paragraph records.
type Store interface {
	List(ctx context.Context) ([]domain.Record, error)
	Delete(ctx context.Context, reference string) (bool, error)
}
