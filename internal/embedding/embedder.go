// Package embedding defines the text embedding contract used by the vector
// search path.
package embedding

import (
	"context"
	"fmt"
	"math"
)

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus.
type Embedder interface {
	Name() string
	Prepare(corpus []string) error
	Dimension() int
	// Embed vectorizes a single non-empty text. The returned vector is
	// L2-normalized so inner product equals cosine similarity downstream.
	// Failures are reported as *Error and never masked as empty results.
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Error reports a failed text-to-vector call. Callers use it to decide
// whether to fall back to lexical search.
type Error struct {
	Model string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("embedding with %s failed: %v", e.Model, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Normalize scales v to unit length in place and returns it. A zero vector
// is returned unchanged.
func Normalize(v []float64) []float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return v
	}
	norm := math.Sqrt(sum)
	for i := range v {
		v[i] /= norm
	}
	return v
}
