package embedding

import (
	"context"
	"fmt"
)

// Provider produces fixed-size semantic embeddings for batches of text.
// Output order and length mirror the input.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// ModelLoadError indicates that a named embedding model could not be resolved
// or loaded. The invocation is not retried internally.
type ModelLoadError struct {
	Model string
	Err   error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("failed to load embedding model %q: %v", e.Model, e.Err)
}

func (e *ModelLoadError) Unwrap() error {
	return e.Err
}
