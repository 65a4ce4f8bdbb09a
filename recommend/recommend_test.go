package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deneme-server/analytics"
	"deneme-server/models"
)

func TestDetectPatternsWeakSubject(t *testing.T) {
	perf := []models.SubjectPerformance{
		{SubjectName: "Matematik", AvgNetPercentage: 45, AvgCorrect: 18, AvgWrong: 12, AvgBlank: 10, Trend: analytics.TrendStable},
		{SubjectName: "Fizik", AvgNetPercentage: 25, AvgCorrect: 4, AvgWrong: 5, AvgBlank: 5, Trend: analytics.TrendStable},
		{SubjectName: "Türkçe", AvgNetPercentage: 80, AvgCorrect: 33, AvgWrong: 5, AvgBlank: 2, Trend: analytics.TrendStable},
	}

	patterns := DetectPatterns(perf, nil)

	var mat, fizik *Pattern
	for i := range patterns {
		switch {
		case patterns[i].Type == PatternWeakSubject && patterns[i].SubjectName == "Matematik":
			mat = &patterns[i]
		case patterns[i].Type == PatternWeakSubject && patterns[i].SubjectName == "Fizik":
			fizik = &patterns[i]
		}
	}
	require.NotNil(t, mat)
	assert.Equal(t, SeverityMedium, mat.Severity)
	require.NotNil(t, fizik)
	assert.Equal(t, SeverityHigh, fizik.Severity)

	for _, p := range patterns {
		assert.NotEqual(t, "Türkçe", p.SubjectName)
	}
}

func TestDetectPatternsDecliningTrend(t *testing.T) {
	perf := []models.SubjectPerformance{
		{SubjectName: "Kimya", AvgNetPercentage: 60, AvgCorrect: 8, AvgWrong: 3, AvgBlank: 2,
			Trend: analytics.TrendDeclining, TrendDelta: -15},
	}

	patterns := DetectPatterns(perf, nil)

	require.Len(t, patterns, 1)
	assert.Equal(t, PatternDecliningTrend, patterns[0].Type)
	assert.Equal(t, SeverityHigh, patterns[0].Severity)
}

func TestDetectPatternsHighBlankRate(t *testing.T) {
	perf := []models.SubjectPerformance{
		{SubjectName: "Tarih", AvgNetPercentage: 55, AvgCorrect: 5, AvgWrong: 2, AvgBlank: 5, Trend: analytics.TrendStable},
	}

	patterns := DetectPatterns(perf, nil)

	require.Len(t, patterns, 1)
	assert.Equal(t, PatternHighBlankRate, patterns[0].Type)
	// 5 of 12 questions blank.
	assert.InDelta(t, 41.7, patterns[0].Value, 0.1)
}

func TestDetectPatternsWeakOutcomesNeedsTwo(t *testing.T) {
	outcomes := []models.OutcomeAggregate{
		{SubjectName: "Matematik", OutcomeDescription: "Türev alma", TotalQuestions: 5, Acquired: 1, SuccessRate: 20},
		{SubjectName: "Matematik", OutcomeDescription: "İntegral", TotalQuestions: 4, Acquired: 1, SuccessRate: 25},
		{SubjectName: "Fizik", OutcomeDescription: "Optik", TotalQuestions: 3, Acquired: 0, SuccessRate: 0},
	}

	patterns := DetectPatterns(nil, outcomes)

	require.Len(t, patterns, 1)
	assert.Equal(t, PatternWeakOutcomes, patterns[0].Type)
	assert.Equal(t, "Matematik", patterns[0].SubjectName)
	assert.Equal(t, 2.0, patterns[0].Value)
}

func TestFallbackRecommendationsOrderAndContent(t *testing.T) {
	patterns := []Pattern{
		{Type: PatternHighBlankRate, SubjectName: "Tarih", Severity: SeverityMedium, Detail: "boş oranı yüksek"},
		{Type: PatternWeakSubject, SubjectName: "Fizik", Severity: SeverityHigh, Detail: "net düşük"},
	}

	gens := fallbackRecommendations(patterns)

	require.Len(t, gens, 2)
	// High severity first, priorities sequential.
	assert.Equal(t, "Fizik", gens[0].SubjectName)
	assert.Equal(t, 1, gens[0].Priority)
	assert.Equal(t, 2, gens[1].Priority)
	assert.Equal(t, PatternWeakSubject, gens[0].IssueType)
	assert.NotEmpty(t, gens[0].Description)
	assert.NotEmpty(t, gens[0].ActionItems)
}
