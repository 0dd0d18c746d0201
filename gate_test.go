package moodsense

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// testFrame builds a frame of n samples at constant amplitude. A constant
// amplitude a gives RMS a/32768.
func testFrame(amp int16, n int) Frame {
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = amp
	}
	return Frame{Samples: samples}
}

func gateConfig() *Config {
	cfg := DefaultConfig()
	cfg.OpenThreshold = 0.015  // amplitude ~492
	cfg.CloseThreshold = 0.008 // amplitude ~262
	cfg.AttackFrames = 3
	cfg.ReleaseFrames = 5
	return cfg
}

const (
	loud  = int16(3000) // RMS ~0.092, above open
	mid   = int16(400)  // RMS ~0.012, between thresholds
	quiet = int16(100)  // RMS ~0.003, below close
)

func TestNoiseGateNeverOpensBelowThreshold(t *testing.T) {
	gate := NewNoiseGate(gateConfig())

	for i := 0; i < 200; i++ {
		state := gate.Process(testFrame(quiet, 320))
		assert.Equal(t, Silent, state, "frame %d", i)
	}
}

func TestNoiseGateAttackAndRelease(t *testing.T) {
	gate := NewNoiseGate(gateConfig())

	// Attack: two loud frames are not enough.
	assert.Equal(t, Silent, gate.Process(testFrame(loud, 320)))
	assert.Equal(t, Silent, gate.Process(testFrame(loud, 320)))
	// Third consecutive loud frame opens the gate.
	assert.Equal(t, Voiced, gate.Process(testFrame(loud, 320)))

	// Release: four quiet frames are not enough.
	for i := 0; i < 4; i++ {
		assert.Equal(t, Voiced, gate.Process(testFrame(quiet, 320)), "release frame %d", i)
	}
	// Fifth closes it.
	assert.Equal(t, Silent, gate.Process(testFrame(quiet, 320)))
}

func TestNoiseGateAttackResetOnDip(t *testing.T) {
	// attack=3: 2 above, 1 below, 4 above. The dip resets the consecutive
	// count, so the gate must stay Silent until frame 3 of the second burst.
	gate := NewNoiseGate(gateConfig())

	states := []GateState{}
	sequence := []int16{loud, loud, quiet, loud, loud}
	for _, amp := range sequence {
		states = append(states, gate.Process(testFrame(amp, 320)))
	}
	for i, state := range states {
		assert.Equal(t, Silent, state, "frame %d should not open the gate", i)
	}

	// But one more loud frame completes a fresh attack.
	assert.Equal(t, Voiced, gate.Process(testFrame(loud, 320)))
}

func TestNoiseGateMidLevelsHoldState(t *testing.T) {
	gate := NewNoiseGate(gateConfig())

	// Mid-level frames never open the gate.
	for i := 0; i < 10; i++ {
		assert.Equal(t, Silent, gate.Process(testFrame(mid, 320)))
	}

	// Open it, then feed levels between close and open: stays voiced and the
	// release counter keeps resetting.
	for i := 0; i < 3; i++ {
		gate.Process(testFrame(loud, 320))
	}
	assert.Equal(t, Voiced, gate.State())

	for i := 0; i < 20; i++ {
		assert.Equal(t, Voiced, gate.Process(testFrame(mid, 320)))
	}

	// Quiet frames interleaved with mid frames never accumulate a release.
	for i := 0; i < 10; i++ {
		gate.Process(testFrame(quiet, 320))
		gate.Process(testFrame(mid, 320))
	}
	assert.Equal(t, Voiced, gate.State())
}

func TestNoiseGateReset(t *testing.T) {
	gate := NewNoiseGate(gateConfig())
	for i := 0; i < 3; i++ {
		gate.Process(testFrame(loud, 320))
	}
	assert.Equal(t, Voiced, gate.State())

	gate.Reset()
	assert.Equal(t, Silent, gate.State())
	// A fresh attack is required again.
	assert.Equal(t, Silent, gate.Process(testFrame(loud, 320)))
}

func TestFrameRMS(t *testing.T) {
	tests := []struct {
		name     string
		samples  []int16
		expected float64
		delta    float64
	}{
		{name: "empty", samples: []int16{}, expected: 0, delta: 0},
		{name: "silence", samples: make([]int16, 320), expected: 0, delta: 0},
		{name: "constant", samples: []int16{3277, 3277, 3277, 3277}, expected: 0.1, delta: 0.001},
		{name: "alternating sign", samples: []int16{3277, -3277, 3277, -3277}, expected: 0.1, delta: 0.001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, frameRMS(tt.samples), tt.delta)
		})
	}
}
