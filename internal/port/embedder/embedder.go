// Package embedder defines the embedding collaborator the memory store
// calls to turn text into normalized vectors. Per the design notes, a
// duck-typed "maybe has an embed method" collaborator is replaced with an
// explicit interface; unavailability is represented by a nil Embedder, not
// by probing for a method.
package embedder

import "context"

// Embedder turns text into a normalized vector of a fixed dimension.
// Implementations that rely on an external model client are treated as
// out-of-scope collaborators; the store only depends on this interface.
type Embedder interface {
	// Embed returns a normalized embedding vector for text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// Dimension returns the fixed vector dimension this embedder produces.
	Dimension() int
}
