package core

import "context"

// Embedder maps a text to a fixed-length vector. Implementations live in the
// processors package; the interface sits here so storage backends can embed
// queries without importing them.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
