package moodsense

import "time"

// EmotionSmoother converts noisy per-window probability vectors into a stable
// published state. It keeps a ring buffer of the last K vectors, averages
// them, and only lets the dominant label change when the smoothed argmax
// leads the runner-up by at least the configured margin — hysteresis against
// label flapping near ties. It republishes only on a label change or a
// meaningful confidence step, bounding the update rate seen by the
// presentation layer.
//
// The smoother starts uninitialized (no state published). The first observed
// vector always publishes; from then on it runs until the pipeline stops,
// with no terminal state.
type EmotionSmoother struct {
	history   []ProbabilityVector
	next      int
	filled    int
	minMargin float32
	confStep  float32

	current  *EmotionState
	revision uint64

	now func() time.Time // test seam
}

// NewEmotionSmoother builds a smoother from the config's history length,
// switch margin and confidence step.
func NewEmotionSmoother(cfg *Config) *EmotionSmoother {
	return &EmotionSmoother{
		history:   make([]ProbabilityVector, cfg.HistoryLength),
		minMargin: float32(cfg.MinSwitchMargin),
		confStep:  float32(cfg.ConfidenceStep),
		now:       time.Now,
	}
}

// Observe pushes one probability vector and returns the new state when a
// publish happens. When published is false the previously published state
// still stands and the revision counter has not moved.
func (s *EmotionSmoother) Observe(p ProbabilityVector) (state EmotionState, published bool) {
	s.push(p)
	smoothed := s.smoothed()

	best, second := smoothed.Top2()
	if best < 0 {
		return EmotionState{}, false
	}

	dominant := labels[best]
	if s.current != nil {
		margin := smoothed[best]
		if second >= 0 {
			margin -= smoothed[second]
		}
		// Near-tied classes keep the previously published label.
		if dominant != s.current.Dominant && margin < s.minMargin {
			dominant = s.current.Dominant
		}
	}

	confidence := smoothed[indexOf(dominant)]

	if s.current != nil {
		confDelta := confidence - s.current.Confidence
		if confDelta < 0 {
			confDelta = -confDelta
		}
		if dominant == s.current.Dominant && confDelta < s.confStep {
			return EmotionState{}, false
		}
	}

	s.revision++
	scores := make(map[Label]float32, len(labels))
	for i, l := range labels {
		scores[l] = smoothed[i]
	}
	next := EmotionState{
		Dominant:   dominant,
		Confidence: confidence,
		Intensity:  intensity(smoothed),
		Scores:     scores,
		Revision:   s.revision,
		UpdatedAt:  s.now(),
	}
	s.current = &next
	return next, true
}

// Current returns the last published state, or nil before the first publish.
func (s *EmotionSmoother) Current() *EmotionState {
	return s.current
}

func (s *EmotionSmoother) push(p ProbabilityVector) {
	s.history[s.next] = p
	s.next = (s.next + 1) % len(s.history)
	if s.filled < len(s.history) {
		s.filled++
	}
}

// smoothed averages the filled portion of the history.
func (s *EmotionSmoother) smoothed() ProbabilityVector {
	out := make(ProbabilityVector, NumLabels())
	if s.filled == 0 {
		return out
	}
	for i := 0; i < s.filled; i++ {
		for j, v := range s.history[i] {
			if j < len(out) {
				out[j] += v
			}
		}
	}
	for j := range out {
		out[j] /= float32(s.filled)
	}
	return out
}

func indexOf(l Label) int {
	for i, candidate := range labels {
		if candidate == l {
			return i
		}
	}
	return 0
}
