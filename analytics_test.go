package moodsense

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionAt(emotion Label, intensity string, endedAt time.Time) SessionRecord {
	return SessionRecord{
		Emotion:    emotion,
		Confidence: 0.7,
		Intensity:  intensity,
		Revisions:  3,
		StartedAt:  endedAt.Add(-time.Minute),
		EndedAt:    endedAt,
	}
}

func TestAnalyticsEmpty(t *testing.T) {
	a := NewAnalytics(nil)
	assert.Zero(t, a.TotalSessions())
	assert.Zero(t, a.SessionsWithEmotion())
	assert.Empty(t, a.Distribution())
	assert.Empty(t, a.Percentages())
	mostCommon, count := a.MostCommon()
	assert.Equal(t, Label(""), mostCommon)
	assert.Zero(t, count)
	assert.Zero(t, a.Streak(time.Now()))
}

func TestAnalyticsDistributionAndPercentages(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	records := []SessionRecord{
		sessionAt(Happy, "medium", now),
		sessionAt(Happy, "high", now.Add(-time.Hour)),
		sessionAt(Sad, "low", now.Add(-2*time.Hour)),
		sessionAt(Angry, "medium", now.Add(-3*time.Hour)),
		{EndedAt: now.Add(-4 * time.Hour)}, // aborted before any inference
	}
	a := NewAnalytics(records)

	assert.Equal(t, 5, a.TotalSessions())
	assert.Equal(t, 4, a.SessionsWithEmotion())
	assert.Equal(t, map[Label]int{Happy: 2, Sad: 1, Angry: 1}, a.Distribution())

	pct := a.Percentages()
	assert.InDelta(t, 50, pct[Happy], 1e-9)
	assert.InDelta(t, 25, pct[Sad], 1e-9)
	assert.InDelta(t, 25, pct[Angry], 1e-9)

	mostCommon, count := a.MostCommon()
	assert.Equal(t, Happy, mostCommon)
	assert.Equal(t, 2, count)

	assert.Equal(t, map[string]int{"medium": 2, "high": 1, "low": 1}, a.IntensityDistribution())
}

func TestAnalyticsMostCommonTieBreaksOnLabelOrder(t *testing.T) {
	now := time.Now()
	a := NewAnalytics([]SessionRecord{
		sessionAt(Sad, "low", now),
		sessionAt(Happy, "low", now),
	})
	mostCommon, count := a.MostCommon()
	assert.Equal(t, Happy, mostCommon, "happy precedes sad in the label order")
	assert.Equal(t, 1, count)
}

func TestAnalyticsStreak(t *testing.T) {
	day := func(offset int) time.Time {
		base := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
		return base.AddDate(0, 0, offset)
	}
	now := day(0)

	tests := []struct {
		name string
		ends []time.Time
		want int
	}{
		{"no sessions", nil, 0},
		{"today only", []time.Time{day(0)}, 1},
		{"three consecutive days", []time.Time{day(0), day(-1), day(-2)}, 3},
		{"ends yesterday", []time.Time{day(-1), day(-2)}, 2},
		{"gap breaks streak", []time.Time{day(0), day(-2), day(-3)}, 1},
		{"stale streak", []time.Time{day(-3), day(-4)}, 0},
		{"multiple sessions per day", []time.Time{day(0), day(0).Add(time.Hour), day(-1)}, 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var records []SessionRecord
			for _, end := range tc.ends {
				records = append(records, sessionAt(Happy, "low", end))
			}
			assert.Equal(t, tc.want, NewAnalytics(records).Streak(now))
		})
	}
}

func TestAnalyticsSummarize(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	a := NewAnalytics([]SessionRecord{
		sessionAt(Happy, "medium", now),
		sessionAt(Sad, "low", now.AddDate(0, 0, -1)),
	})

	s := a.Summarize(now)
	require.Equal(t, 2, s.TotalSessions)
	assert.Equal(t, 2, s.SessionsWithEmotion)
	assert.Equal(t, Happy, s.MostCommonEmotion)
	assert.Equal(t, 1, s.MostCommonCount)
	assert.Equal(t, 2, s.StreakDays)
	assert.Len(t, s.Distribution, 2)
}
