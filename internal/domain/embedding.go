package domain

import "context"

// EmbeddingResult carries a computed vector plus provider token usage.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// AnswerGenerator produces a raw structured-JSON answer for a query over a
// prepared context block. The payload is opaque here; the synthesizer layer
// owns parsing and validation.
type AnswerGenerator interface {
	Generate(ctx context.Context, query, contextBlock string) (string, error)
}

// HealthChecker is implemented by providers that can verify availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// ZeroVector returns the placeholder embedding stored for records with no
// searchable text.
func ZeroVector(dim int) []float32 {
	return make([]float32, dim)
}
