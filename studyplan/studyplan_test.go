package studyplan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamsForStyle(t *testing.T) {
	intensive := ParamsForStyle(StyleIntensive)
	assert.Equal(t, 0.85, intensive.Intensity)
	assert.Equal(t, 90, intensive.SessionMinutes)
	assert.Equal(t, 0, intensive.RestEvery)

	balanced := ParamsForStyle(StyleBalanced)
	assert.Equal(t, 0.75, balanced.Intensity)
	assert.Equal(t, 60, balanced.SessionMinutes)
	assert.Equal(t, 7, balanced.RestEvery)

	relaxed := ParamsForStyle(StyleRelaxed)
	assert.Equal(t, 0.65, relaxed.Intensity)
	assert.Equal(t, 45, relaxed.SessionMinutes)
	assert.Equal(t, 5, relaxed.RestEvery)

	// Unknown styles fall back to balanced.
	assert.Equal(t, balanced, ParamsForStyle("whatever"))
}

func TestIsRestDay(t *testing.T) {
	balanced := ParamsForStyle(StyleBalanced)
	assert.False(t, balanced.IsRestDay(1))
	assert.False(t, balanced.IsRestDay(6))
	assert.True(t, balanced.IsRestDay(7))
	assert.True(t, balanced.IsRestDay(14))

	intensive := ParamsForStyle(StyleIntensive)
	for day := 1; day <= 30; day++ {
		assert.False(t, intensive.IsRestDay(day))
	}
}

func TestBuildFallbackSchedule(t *testing.T) {
	sources := []topicSource{
		{RecommendationID: "r1", Subject: "Matematik", Topic: "Türev"},
		{RecommendationID: "r2", Subject: "Fizik", Topic: "Optik"},
	}
	params := ParamsForStyle(StyleBalanced)

	days := buildFallbackSchedule(sources, params, 14, 120)

	// Days 7 and 14 are rest days.
	require.Len(t, days, 12)
	for _, day := range days {
		assert.NotEqual(t, 0, day.DayNumber%7, "day %d should be a rest day", day.DayNumber)
		// 120 * 0.75 = 90 minutes budget fits one 60-minute session.
		require.Len(t, day.Items, 1)
		assert.Equal(t, 60, day.Items[0].DurationMinutes)
	}

	// Topics alternate between the two recommendations.
	assert.Equal(t, "Matematik", days[0].Items[0].Subject)
	assert.Equal(t, "Fizik", days[1].Items[0].Subject)
	assert.Equal(t, "r1", days[0].Items[0].RecommendationID)
}

func TestBuildFallbackScheduleMultipleSessions(t *testing.T) {
	sources := []topicSource{{RecommendationID: "r1", Subject: "Kimya", Topic: "Mol"}}
	params := ParamsForStyle(StyleIntensive)

	days := buildFallbackSchedule(sources, params, 3, 240)

	require.Len(t, days, 3)
	// 240 * 0.85 = 204 minutes fits two 90-minute sessions.
	for _, day := range days {
		assert.Len(t, day.Items, 2)
	}
}

func TestComputeProgress(t *testing.T) {
	start := time.Now().AddDate(0, 0, -6) // day 7 of the plan

	p := ComputeProgress("plan1", 20, 10, start, 14, time.Now())

	assert.Equal(t, 20, p.TotalItems)
	assert.Equal(t, 10, p.CompletedItems)
	assert.Equal(t, 7, p.DaysElapsed)
	assert.InDelta(t, 50.0, p.CompletionPercent, 1e-9)
	assert.InDelta(t, 50.0, p.ExpectedPercent, 0.5)
	assert.True(t, p.OnTrack)
}

func TestComputeProgressBehindSchedule(t *testing.T) {
	start := time.Now().AddDate(0, 0, -9) // day 10 of 10

	p := ComputeProgress("plan1", 20, 10, start, 10, time.Now())

	assert.InDelta(t, 50.0, p.CompletionPercent, 1e-9)
	assert.InDelta(t, 100.0, p.ExpectedPercent, 0.5)
	assert.False(t, p.OnTrack)
}

func TestComputeProgressWithinGrace(t *testing.T) {
	start := time.Now().AddDate(0, 0, -4) // day 5 of 10, expected 50%

	p := ComputeProgress("plan1", 10, 4, start, 10, time.Now())

	assert.InDelta(t, 40.0, p.CompletionPercent, 1e-9)
	// 40% done against 50% expected is inside the 10-point grace.
	assert.True(t, p.OnTrack)
}
