package search

import (
	"context"
	"time"

	"github.com/tradefind/tradefind/internal/domain"
)

// RecordStore reads contractor rows for full-scan retrieval.
type RecordStore interface {
	ListAll(ctx context.Context) ([]domain.Contractor, error)
}

// VectorIndex answers nearest-neighbor queries over contractor embeddings.
type VectorIndex interface {
	Query(ctx context.Context, vec []float32, k int, threshold float64) ([]domain.ScoredContractor, error)
}

// Embedder vectorizes query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Synthesizer produces an answer over a candidate record set. It never fails;
// generation trouble surfaces as a degraded answer.
type Synthesizer interface {
	Synthesize(ctx context.Context, query string, records []domain.View) domain.SynthesizedAnswer
}

// ResultCache is the keyed result cache. All operations are best-effort: a
// missing or unreachable cache reads as a miss and writes as a no-op.
type ResultCache interface {
	Key(namespace string, args ...string) string
	Get(ctx context.Context, key string, dest any) bool
	Set(ctx context.Context, key string, value any, ttl time.Duration)
	InvalidateContractor(ctx context.Context, id string)
	InvalidateSearch(ctx context.Context) int
}
