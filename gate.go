package moodsense

import "math"

// GateState reports whether the gate currently considers the stream voiced.
type GateState int

const (
	// Silent means frames are dropped from the assembly path. They still
	// advance device-loss detection because the pipeline keeps pulling.
	Silent GateState = iota

	// Voiced means frames are passed through to the assembler.
	Voiced
)

func (s GateState) String() string {
	if s == Voiced {
		return "voiced"
	}
	return "silent"
}

// NoiseGate decides per frame whether the stream carries voiced signal worth
// classifying. It compares short-term RMS energy against asymmetric open and
// close thresholds with consecutive-frame hysteresis, so background noise
// near the boundary cannot chatter the gate. Without it, silence would reach
// the classifier and produce a spurious dominant class.
type NoiseGate struct {
	open    float64
	close   float64
	attack  int
	release int

	state      GateState
	aboveCount int
	belowCount int
}

// NewNoiseGate builds a gate from the config's thresholds and frame counts.
func NewNoiseGate(cfg *Config) *NoiseGate {
	return &NoiseGate{
		open:    cfg.OpenThreshold,
		close:   cfg.CloseThreshold,
		attack:  cfg.AttackFrames,
		release: cfg.ReleaseFrames,
	}
}

// Process advances the gate by one frame and returns the resulting state.
// The frame itself is never modified.
//
// While Silent, a frame at or above the open threshold counts toward the
// attack; any frame below it resets the count. While Voiced, a frame below
// the close threshold counts toward the release; any frame at or above it
// resets the count. Frames between the two thresholds therefore keep the
// current state alive.
func (g *NoiseGate) Process(f Frame) GateState {
	level := frameRMS(f.Samples)

	switch g.state {
	case Silent:
		if level >= g.open {
			g.aboveCount++
			if g.aboveCount >= g.attack {
				g.state = Voiced
				g.aboveCount = 0
				g.belowCount = 0
			}
		} else {
			g.aboveCount = 0
		}
	case Voiced:
		if level < g.close {
			g.belowCount++
			if g.belowCount >= g.release {
				g.state = Silent
				g.aboveCount = 0
				g.belowCount = 0
			}
		} else {
			g.belowCount = 0
		}
	}

	return g.state
}

// State returns the gate's current state without consuming a frame.
func (g *NoiseGate) State() GateState {
	return g.state
}

// Reset returns the gate to Silent and clears the hysteresis counters.
func (g *NoiseGate) Reset() {
	g.state = Silent
	g.aboveCount = 0
	g.belowCount = 0
}

// frameRMS computes root-mean-square energy of a frame, normalized to [0,1].
func frameRMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s) / 32768.0
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}
