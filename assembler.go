package moodsense

// FeatureAssembler accumulates consecutive voiced frames into a fixed-length
// analysis window and converts it into the float32 tensor the inference
// backend expects. Windows are non-overlapping: the accumulator resets after
// each emission. Exactly one window is in flight at a time.
//
// A window tolerates up to MaxGapFrames consecutive silent frames (brief gate
// drops mid-utterance); the quiet audio still counts toward the window. A
// longer gap discards the partial accumulator, so inference only ever sees a
// full window of (near-)continuous voiced audio.
type FeatureAssembler struct {
	windowSamples int
	maxGap        int
	clamp         float32

	buf    []int16
	gapRun int
}

// NewFeatureAssembler builds an assembler from the config's window geometry.
func NewFeatureAssembler(cfg *Config) *FeatureAssembler {
	return &FeatureAssembler{
		windowSamples: cfg.WindowSamples(),
		maxGap:        cfg.MaxGapFrames,
		clamp:         float32(cfg.NoiseClamp),
	}
}

// Add feeds one gated frame. When the frame completes a window, the prepared
// tensor is returned with ok=true and the accumulator resets.
func (a *FeatureAssembler) Add(f Frame, state GateState) (window []float32, ok bool) {
	if state == Silent {
		if len(a.buf) == 0 {
			return nil, false
		}
		a.gapRun++
		if a.gapRun > a.maxGap {
			a.Reset()
			return nil, false
		}
	} else {
		a.gapRun = 0
	}

	a.buf = append(a.buf, f.Samples...)
	if len(a.buf) < a.windowSamples {
		return nil, false
	}

	window = a.prepare(a.buf[:a.windowSamples])
	a.Reset()
	return window, true
}

// Flush emits a zero-padded window from whatever has accumulated, or ok=false
// when the accumulator is empty. Used when a finite source ends mid-window.
func (a *FeatureAssembler) Flush() (window []float32, ok bool) {
	if len(a.buf) == 0 {
		return nil, false
	}
	padded := make([]int16, a.windowSamples)
	copy(padded, a.buf)
	window = a.prepare(padded)
	a.Reset()
	return window, true
}

// Pending reports how many samples the partial accumulator holds.
func (a *FeatureAssembler) Pending() int {
	return len(a.buf)
}

// Reset discards the partial accumulator.
func (a *FeatureAssembler) Reset() {
	a.buf = a.buf[:0]
	a.gapRun = 0
}

// prepare converts raw samples into the backend's numeric contract:
// float32, peak-normalized to [-1,1], with samples below the noise clamp
// zeroed so residual hiss cannot skew the classifier.
func (a *FeatureAssembler) prepare(samples []int16) []float32 {
	out := make([]float32, len(samples))

	var peak float32
	for i, s := range samples {
		v := float32(s) / 32768.0
		out[i] = v
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	if peak == 0 {
		return out
	}

	for i, v := range out {
		v /= peak
		if v < a.clamp && v > -a.clamp {
			v = 0
		}
		out[i] = v
	}
	return out
}
