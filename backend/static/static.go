// Package static provides a self-contained heuristic backend. It scores the
// six emotion classes from coarse signal statistics — the cues a real model
// learns (loud and jittery reads angry, quiet and flat reads sad, a high
// zero-crossing rate reads fearful) — and is fully deterministic, which makes
// it usable both as a demo classifier and as a test double for the pipeline.
package static

import (
	"context"
	"math"
)

// numClasses matches the pipeline's closed label set:
// neutral, happy, sad, angry, fearful, disgust.
const numClasses = 6

// Backend is a deterministic signal-statistics classifier.
type Backend struct {
	inputLen int
}

// New returns a static backend expecting windows of inputLen samples.
func New(inputLen int) *Backend {
	return &Backend{inputLen: inputLen}
}

// InputLen implements backend.Backend.
func (b *Backend) InputLen() int {
	return b.inputLen
}

// Close implements backend.Backend. It has nothing to release.
func (b *Backend) Close() error {
	return nil
}

// Infer implements backend.Backend. The same window always yields the same
// probability vector.
func (b *Backend) Infer(_ context.Context, window []float32) ([]float32, error) {
	energy, zcr, flux := stats(window)

	// Heuristic class affinities in [0,1]-ish space. Tuned for plausible,
	// stable output rather than accuracy.
	scores := [numClasses]float64{
		1.2 - energy - flux,       // neutral: quiet-ish, steady
		energy + 0.5*zcr,          // happy: energetic, bright
		1.0 - energy - 0.5*zcr,    // sad: quiet, dull
		1.5*energy + flux,         // angry: loud, jittery
		zcr + 0.5*flux - energy/2, // fearful: bright, unsteady, not loud
		0.4 + 0.3*flux - zcr,      // disgust: weak catch-all
	}

	return softmax(scores[:]), nil
}

// stats summarizes a window: mean RMS energy, zero-crossing rate, and
// envelope flux (mean absolute energy change across subwindows). All three
// are clipped to [0,1].
func stats(window []float32) (energy, zcr, flux float64) {
	if len(window) == 0 {
		return 0, 0, 0
	}

	var sum float64
	crossings := 0
	for i, v := range window {
		sum += float64(v) * float64(v)
		if i > 0 && (v >= 0) != (window[i-1] >= 0) {
			crossings++
		}
	}
	// RMS of normalized audio lands well below 1 for speech; scale up so the
	// heuristics operate mid-range.
	energy = clip(math.Sqrt(sum/float64(len(window))) * 3)
	zcr = clip(float64(crossings) / float64(len(window)) * 4)

	const subwindows = 16
	step := len(window) / subwindows
	if step > 0 {
		prev := -1.0
		var acc float64
		n := 0
		for i := 0; i+step <= len(window); i += step {
			var s float64
			for _, v := range window[i : i+step] {
				s += float64(v) * float64(v)
			}
			cur := math.Sqrt(s / float64(step))
			if prev >= 0 {
				acc += math.Abs(cur - prev)
				n++
			}
			prev = cur
		}
		if n > 0 {
			flux = clip(acc / float64(n) * 10)
		}
	}
	return energy, zcr, flux
}

func clip(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func softmax(scores []float64) []float32 {
	maxScore := scores[0]
	for _, s := range scores[1:] {
		if s > maxScore {
			maxScore = s
		}
	}

	out := make([]float32, len(scores))
	var total float64
	exps := make([]float64, len(scores))
	for i, s := range scores {
		exps[i] = math.Exp((s - maxScore) * 2)
		total += exps[i]
	}
	for i, e := range exps {
		out[i] = float32(e / total)
	}
	return out
}
