// Package backend defines the opaque inference backend contract: one
// fixed-shape numeric tensor in, one fixed-length probability vector out.
// Implementations adapt a concrete runtime (an embedded interpreter, a model
// server sidecar) behind this interface; the pipeline never sees past it.
package backend

import "context"

// Backend classifies one prepared analysis window. Implementations must
// behave as a pure function of their input: deterministic given identical
// input, with no state persisted between calls. They must be safe for use
// from a single pipeline goroutine; concurrent use is not required.
type Backend interface {
	// Infer runs the classifier on a window of exactly InputLen float32
	// samples in [-1,1] and returns one probability per emotion class, in
	// the model's label order, summing to 1 within floating tolerance.
	Infer(ctx context.Context, window []float32) ([]float32, error)

	// InputLen returns the fixed input tensor length the model expects.
	InputLen() int

	// Close releases any resources held by the backend.
	Close() error
}
