package embedding

import "context"

// Provider defines the interface for generating text embeddings.
// The similarity cache keys entries by these vectors.
type Provider interface {
	Generate(ctx context.Context, text string) ([]float32, error)
}
