package moodsense

import "time"

// Analytics computes summary statistics over journal records for the
// presentation layer's insights view.
type Analytics struct {
	records []SessionRecord
	scored  []SessionRecord
}

// NewAnalytics wraps a set of session records. Records without an emotion
// (e.g. sessions that ended before any inference) are excluded from the
// distribution views but still counted in the total.
func NewAnalytics(records []SessionRecord) *Analytics {
	a := &Analytics{records: records}
	for _, r := range records {
		if r.Emotion != "" {
			a.scored = append(a.scored, r)
		}
	}
	return a
}

// TotalSessions returns the number of recorded sessions.
func (a *Analytics) TotalSessions() int {
	return len(a.records)
}

// SessionsWithEmotion returns how many sessions produced a classification.
func (a *Analytics) SessionsWithEmotion() int {
	return len(a.scored)
}

// Distribution returns a per-emotion session count.
func (a *Analytics) Distribution() map[Label]int {
	dist := make(map[Label]int)
	for _, r := range a.scored {
		dist[r.Emotion]++
	}
	return dist
}

// Percentages returns the per-emotion share of classified sessions, 0-100.
func (a *Analytics) Percentages() map[Label]float64 {
	out := make(map[Label]float64)
	total := len(a.scored)
	if total == 0 {
		return out
	}
	for emotion, count := range a.Distribution() {
		out[emotion] = float64(count) / float64(total) * 100
	}
	return out
}

// MostCommon returns the emotion with the most sessions and its count, or
// ("", 0) with no data. Ties break on the fixed label order.
func (a *Analytics) MostCommon() (Label, int) {
	dist := a.Distribution()
	var best Label
	bestCount := 0
	for _, l := range labels {
		if dist[l] > bestCount {
			best = l
			bestCount = dist[l]
		}
	}
	return best, bestCount
}

// IntensityDistribution returns a count per intensity level.
func (a *Analytics) IntensityDistribution() map[string]int {
	dist := make(map[string]int)
	for _, r := range a.scored {
		if r.Intensity != "" {
			dist[r.Intensity]++
		}
	}
	return dist
}

// Streak returns the number of consecutive days, ending today or yesterday,
// with at least one session. A last session older than yesterday breaks the
// streak.
func (a *Analytics) Streak(now time.Time) int {
	if len(a.records) == 0 {
		return 0
	}

	seen := make(map[string]bool)
	var days []time.Time
	for _, r := range a.records {
		day := r.EndedAt.Truncate(24 * time.Hour)
		key := day.Format("2006-01-02")
		if !seen[key] {
			seen[key] = true
			days = append(days, day)
		}
	}
	// Newest first.
	for i := 0; i < len(days); i++ {
		for k := i + 1; k < len(days); k++ {
			if days[k].After(days[i]) {
				days[i], days[k] = days[k], days[i]
			}
		}
	}

	today := now.Truncate(24 * time.Hour)
	if today.Sub(days[0]) > 24*time.Hour {
		return 0
	}

	streak := 1
	current := days[0]
	for _, prev := range days[1:] {
		if current.Sub(prev) == 24*time.Hour {
			streak++
			current = prev
		} else {
			break
		}
	}
	return streak
}

// Summary bundles the stats for the /stats endpoint.
type Summary struct {
	TotalSessions         int               `json:"total_sessions"`
	SessionsWithEmotion   int               `json:"sessions_with_emotion"`
	MostCommonEmotion     Label             `json:"most_common_emotion,omitempty"`
	MostCommonCount       int               `json:"most_common_count"`
	Distribution          map[Label]int     `json:"distribution"`
	Percentages           map[Label]float64 `json:"percentages"`
	IntensityDistribution map[string]int    `json:"intensity_distribution"`
	StreakDays            int               `json:"streak_days"`
}

// Summarize computes the full summary as of now.
func (a *Analytics) Summarize(now time.Time) Summary {
	mostCommon, count := a.MostCommon()
	return Summary{
		TotalSessions:         a.TotalSessions(),
		SessionsWithEmotion:   a.SessionsWithEmotion(),
		MostCommonEmotion:     mostCommon,
		MostCommonCount:       count,
		Distribution:          a.Distribution(),
		Percentages:           a.Percentages(),
		IntensityDistribution: a.IntensityDistribution(),
		StreakDays:            a.Streak(now),
	}
}
