package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"deneme-server/models"
)

func TestComputeTrend(t *testing.T) {
	cases := []struct {
		name        string
		percentages []float64
		want        string
	}{
		{"improving", []float64{40, 42, 45, 58, 60, 62}, TrendImproving},
		{"declining", []float64{70, 68, 65, 50, 48, 45}, TrendDeclining},
		{"stable", []float64{50, 52, 49, 51, 50, 53}, TrendStable},
		{"single exam", []float64{50}, TrendStable},
		{"empty", nil, TrendStable},
		{"two exams improving", []float64{40, 55}, TrendImproving},
		{"two exams close", []float64{50, 55}, TrendStable},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			trend, _ := ComputeTrend(c.percentages)
			assert.Equal(t, c.want, trend)
		})
	}
}

func TestComputeTrendDelta(t *testing.T) {
	trend, delta := ComputeTrend([]float64{40, 40, 40, 60, 60, 60})
	assert.Equal(t, TrendImproving, trend)
	assert.InDelta(t, 20.0, delta, 1e-9)
}

func TestWeakSubjects(t *testing.T) {
	perf := []models.SubjectPerformance{
		{SubjectName: "Matematik", AvgNetPercentage: 45},
		{SubjectName: "Fizik", AvgNetPercentage: 30},
		{SubjectName: "Türkçe", AvgNetPercentage: 80},
		{SubjectName: "Kimya", AvgNetPercentage: 55},
		{SubjectName: "Tarih", AvgNetPercentage: 25},
	}

	weak := WeakSubjects(perf)

	assert.Len(t, weak, 3)
	assert.Equal(t, "Tarih", weak[0].SubjectName)
	assert.Equal(t, "Fizik", weak[1].SubjectName)
	assert.Equal(t, "Matematik", weak[2].SubjectName)

	// Input order untouched.
	assert.Equal(t, "Matematik", perf[0].SubjectName)
}

func TestWeakSubjectsFewerThanThree(t *testing.T) {
	perf := []models.SubjectPerformance{
		{SubjectName: "Matematik", AvgNetPercentage: 45},
	}
	assert.Len(t, WeakSubjects(perf), 1)
}
