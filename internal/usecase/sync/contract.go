package sync

import (
	"context"

	"github.com/tradefind/tradefind/internal/domain"
)

// RecordReader supplies record text fields for embedding.
type RecordReader interface {
	GetTextFields(ctx context.Context, id string) (bio, services *string, err error)
	ListTextSources(ctx context.Context) ([]domain.TextSource, error)
}

// VectorIndex stores one embedding per record id.
type VectorIndex interface {
	Upsert(ctx context.Context, contractorID, text string, vec []float32) error
	Delete(ctx context.Context, contractorID string) error
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// CacheInvalidator removes cache entries made stale by record mutations.
type CacheInvalidator interface {
	InvalidateContractor(ctx context.Context, id string)
	InvalidateSearch(ctx context.Context) int
}
