package synth

import "context"

// Generator produces a raw structured-JSON answer for a query over a
// prepared context block.
type Generator interface {
	Generate(ctx context.Context, query, contextBlock string) (string, error)
}
