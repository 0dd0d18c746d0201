package moodsense

import (
	"math"
	"time"
)

// Label identifies one emotion class from the model's closed output set.
type Label string

// The six emotion classes, in the model's output order. The set is fixed at
// runtime: a ProbabilityVector always has exactly one entry per label, in
// this order.
const (
	Neutral Label = "neutral"
	Happy   Label = "happy"
	Sad     Label = "sad"
	Angry   Label = "angry"
	Fearful Label = "fearful"
	Disgust Label = "disgust"
)

var labels = []Label{Neutral, Happy, Sad, Angry, Fearful, Disgust}

// Labels returns the fixed, ordered emotion label set.
func Labels() []Label {
	out := make([]Label, len(labels))
	copy(out, labels)
	return out
}

// NumLabels is the size of the closed label set.
func NumLabels() int { return len(labels) }

// LabelInfo carries display metadata for presentation clients.
type LabelInfo struct {
	Color string `json:"color"`
	Emoji string `json:"emoji"`
}

var labelInfo = map[Label]LabelInfo{
	Neutral: {Color: "#9E9E9E", Emoji: "😐"},
	Happy:   {Color: "#4CAF50", Emoji: "😊"},
	Sad:     {Color: "#2196F3", Emoji: "😢"},
	Angry:   {Color: "#F44336", Emoji: "😠"},
	Fearful: {Color: "#9C27B0", Emoji: "😨"},
	Disgust: {Color: "#795548", Emoji: "🤢"},
}

// Info returns display metadata for l. Unknown labels map to Neutral's info.
func (l Label) Info() LabelInfo {
	if info, ok := labelInfo[l]; ok {
		return info
	}
	return labelInfo[Neutral]
}

// ProbabilityVector is one classifier output: a probability per label, in
// label order, summing to 1 within floating tolerance. Ephemeral; produced
// once per inference call.
type ProbabilityVector []float32

// Top2 returns the indices of the highest and second-highest probabilities.
// With fewer than two entries the second index is -1.
func (p ProbabilityVector) Top2() (best, second int) {
	best, second = -1, -1
	for i, v := range p {
		switch {
		case best == -1 || v > p[best]:
			second = best
			best = i
		case second == -1 || v > p[second]:
			second = i
		}
	}
	return best, second
}

// Sum returns the total probability mass.
func (p ProbabilityVector) Sum() float32 {
	var s float32
	for _, v := range p {
		s += v
	}
	return s
}

// EmotionState is the published, user-facing result. It is written only by
// the smoother and overwritten whole, never partially mutated, so readers
// always see a consistent snapshot.
type EmotionState struct {
	// Dominant is the emotion with the highest smoothed probability that has
	// survived the switch hysteresis.
	Dominant Label `json:"dominant"`

	// Confidence is the smoothed probability of the dominant label, in [0,1].
	Confidence float32 `json:"confidence"`

	// Intensity is the normalized distance of the smoothed vector from the
	// uniform distribution, in [0,1]. 0 means the classifier is maximally
	// unsure; 1 means a one-hot prediction.
	Intensity float32 `json:"intensity"`

	// Scores is the smoothed per-label probability breakdown.
	Scores map[Label]float32 `json:"scores"`

	// Revision increases by one on every publish.
	Revision uint64 `json:"revision"`

	// UpdatedAt is when this state was published.
	UpdatedAt time.Time `json:"updated_at"`
}

// IntensityLevel buckets Intensity into the three presentation levels.
func (s EmotionState) IntensityLevel() string {
	switch {
	case s.Intensity < 0.33:
		return "low"
	case s.Intensity < 0.66:
		return "medium"
	default:
		return "high"
	}
}

// intensity computes the normalized distance of p from the uniform
// distribution. The maximum distance is attained by a one-hot vector.
func intensity(p ProbabilityVector) float32 {
	n := len(p)
	if n < 2 {
		return 0
	}
	uniform := 1.0 / float64(n)
	var d float64
	for _, v := range p {
		diff := float64(v) - uniform
		d += diff * diff
	}
	maxD := (1-uniform)*(1-uniform) + float64(n-1)*uniform*uniform
	return float32(math.Sqrt(d) / math.Sqrt(maxD))
}
