package moodsense

import (
	"context"
	"fmt"
	"time"

	"github.com/moodsense/moodsense/backend"
)

// probSumTolerance is how far a returned probability vector's mass may drift
// from 1 before it is rejected as malformed.
const probSumTolerance = 0.01

// InferenceInvoker drives the opaque backend: one synchronous call per
// assembled window, with defensive checks on both sides of the contract and
// latency accounting.
type InferenceInvoker struct {
	backend backend.Backend
	metrics *Metrics
}

// NewInferenceInvoker wraps b. metrics may be nil.
func NewInferenceInvoker(b backend.Backend, metrics *Metrics) *InferenceInvoker {
	return &InferenceInvoker{backend: b, metrics: metrics}
}

// Infer classifies one prepared window. A window of the wrong length fails
// with ErrInvalidInputShape. Backend failures and malformed output vectors
// fail with ErrModelUnavailable, which is fatal to the pipeline.
func (iv *InferenceInvoker) Infer(ctx context.Context, window []float32) (ProbabilityVector, error) {
	if len(window) != iv.backend.InputLen() {
		return nil, fmt.Errorf("%w: got %d samples, backend expects %d",
			ErrInvalidInputShape, len(window), iv.backend.InputLen())
	}

	start := time.Now()
	probs, err := iv.backend.Infer(ctx, window)
	if iv.metrics != nil {
		iv.metrics.RecordInference(ctx, time.Since(start), err == nil)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	p := ProbabilityVector(probs)
	if len(p) != NumLabels() {
		return nil, fmt.Errorf("%w: backend returned %d classes, want %d",
			ErrModelUnavailable, len(p), NumLabels())
	}
	for i, v := range p {
		if v < 0 || v > 1 {
			return nil, fmt.Errorf("%w: probability %f at index %d outside [0,1]",
				ErrModelUnavailable, v, i)
		}
	}
	if sum := p.Sum(); sum < 1-probSumTolerance || sum > 1+probSumTolerance {
		return nil, fmt.Errorf("%w: probabilities sum to %f", ErrModelUnavailable, sum)
	}

	return p, nil
}
