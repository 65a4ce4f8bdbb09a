// Package analytics computes performance statistics over a student's
// confirmed exams. Only confirmed exams count: pending uploads have no
// materialized result rows.
package analytics

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"deneme-server/models"
)

const (
	TrendImproving = "improving"
	TrendDeclining = "declining"
	TrendStable    = "stable"

	// trendThreshold is the net percentage delta between early and recent
	// exams needed before movement counts as a trend.
	trendThreshold = 10.0

	weakSubjectCount = 3
)

// GetOverview returns aggregate statistics across all confirmed exams.
func GetOverview(ctx context.Context, pool *pgxpool.Pool, studentID string) (*models.OverviewStats, error) {
	stats := &models.OverviewStats{}
	err := pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COALESCE(AVG(r.net_score), 0),
		       COALESCE(AVG(r.net_percentage), 0),
		       COALESCE(MAX(r.net_score), 0),
		       COALESCE(SUM(r.total_correct), 0),
		       COALESCE(SUM(r.total_wrong), 0),
		       COALESCE(SUM(r.total_blank), 0),
		       MIN(e.exam_date)::text,
		       MAX(e.exam_date)::text
		FROM exams e
		JOIN exam_results r ON r.exam_id = e.id
		WHERE e.student_id = $1 AND e.status = 'confirmed'
	`, studentID).Scan(
		&stats.TotalExams, &stats.AvgNetScore, &stats.AvgNetPercentage,
		&stats.BestNetScore, &stats.TotalCorrect, &stats.TotalWrong,
		&stats.TotalBlank, &stats.FirstExamDate, &stats.LastExamDate,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query overview stats: %w", err)
	}

	if stats.TotalExams > 0 {
		var latest float64
		err = pool.QueryRow(ctx, `
			SELECT r.net_score
			FROM exams e
			JOIN exam_results r ON r.exam_id = e.id
			WHERE e.student_id = $1 AND e.status = 'confirmed'
			ORDER BY e.exam_date DESC, e.uploaded_at DESC
			LIMIT 1
		`, studentID).Scan(&latest)
		if err != nil {
			return nil, fmt.Errorf("failed to query latest net score: %w", err)
		}
		stats.LatestNetScore = &latest
	}
	return stats, nil
}

// GetScoreTrend returns exam-by-exam net scores in chronological order.
// A limit of zero or less returns all confirmed exams.
func GetScoreTrend(ctx context.Context, pool *pgxpool.Pool, studentID string, limit int) ([]models.TrendPoint, error) {
	query := `
		SELECT e.id, e.exam_name, e.exam_date, r.net_score, r.net_percentage,
		       r.class_avg, r.school_avg
		FROM exams e
		JOIN exam_results r ON r.exam_id = e.id
		WHERE e.student_id = $1 AND e.status = 'confirmed'
		ORDER BY e.exam_date ASC, e.uploaded_at ASC`
	args := []interface{}{studentID}
	if limit > 0 {
		// Limit to the most recent exams, then restore chronological order.
		query = `SELECT * FROM (
			SELECT e.id, e.exam_name, e.exam_date, r.net_score, r.net_percentage,
			       r.class_avg, r.school_avg
			FROM exams e
			JOIN exam_results r ON r.exam_id = e.id
			WHERE e.student_id = $1 AND e.status = 'confirmed'
			ORDER BY e.exam_date DESC, e.uploaded_at DESC
			LIMIT $2
		) recent ORDER BY exam_date ASC`
		args = append(args, limit)
	}

	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query score trend: %w", err)
	}
	defer rows.Close()

	points := []models.TrendPoint{}
	for rows.Next() {
		var p models.TrendPoint
		if err := rows.Scan(&p.ExamID, &p.ExamName, &p.ExamDate, &p.NetScore, &p.NetPercentage,
			&p.ClassAvg, &p.SchoolAvg); err != nil {
			return nil, fmt.Errorf("failed to scan trend point: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// GetSubjectPerformance aggregates per-subject results across confirmed
// exams and attaches an improvement trend per subject.
func GetSubjectPerformance(ctx context.Context, pool *pgxpool.Pool, studentID string) ([]models.SubjectPerformance, error) {
	rows, err := pool.Query(ctx, `
		SELECT s.subject_name, s.net_score, s.net_percentage,
		       s.correct, s.wrong, s.blank
		FROM subject_results s
		JOIN exams e ON e.id = s.exam_id
		WHERE e.student_id = $1 AND e.status = 'confirmed'
		ORDER BY s.subject_name, e.exam_date ASC, e.uploaded_at ASC
	`, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query subject results: %w", err)
	}
	defer rows.Close()

	type subjectAccum struct {
		name        string
		percentages []float64
		netSum      float64
		correctSum  float64
		wrongSum    float64
		blankSum    float64
	}
	order := []string{}
	accums := map[string]*subjectAccum{}

	for rows.Next() {
		var (
			name                  string
			net, pct              float64
			correct, wrong, blank int
		)
		if err := rows.Scan(&name, &net, &pct, &correct, &wrong, &blank); err != nil {
			return nil, fmt.Errorf("failed to scan subject row: %w", err)
		}
		acc, ok := accums[name]
		if !ok {
			acc = &subjectAccum{name: name}
			accums[name] = acc
			order = append(order, name)
		}
		acc.percentages = append(acc.percentages, pct)
		acc.netSum += net
		acc.correctSum += float64(correct)
		acc.wrongSum += float64(wrong)
		acc.blankSum += float64(blank)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	perf := make([]models.SubjectPerformance, 0, len(order))
	for _, name := range order {
		acc := accums[name]
		n := float64(len(acc.percentages))
		trend, delta := ComputeTrend(acc.percentages)
		perf = append(perf, models.SubjectPerformance{
			SubjectName:      name,
			ExamCount:        len(acc.percentages),
			AvgNetScore:      acc.netSum / n,
			AvgNetPercentage: mean(acc.percentages),
			AvgCorrect:       acc.correctSum / n,
			AvgWrong:         acc.wrongSum / n,
			AvgBlank:         acc.blankSum / n,
			Trend:            trend,
			TrendDelta:       delta,
		})
	}
	return perf, nil
}

// ComputeTrend compares the average of the first exams against the average
// of the most recent ones. With fewer than two data points there is nothing
// to compare and the trend is stable.
func ComputeTrend(percentages []float64) (string, float64) {
	if len(percentages) < 2 {
		return TrendStable, 0
	}
	window := 3
	if len(percentages) < window {
		window = len(percentages) / 2
		if window == 0 {
			window = 1
		}
	}
	early := mean(percentages[:window])
	recent := mean(percentages[len(percentages)-window:])
	delta := recent - early
	switch {
	case delta > trendThreshold:
		return TrendImproving, delta
	case delta < -trendThreshold:
		return TrendDeclining, delta
	default:
		return TrendStable, delta
	}
}

// WeakSubjects picks the lowest scoring subjects from a performance list.
func WeakSubjects(perf []models.SubjectPerformance) []models.SubjectPerformance {
	sorted := make([]models.SubjectPerformance, len(perf))
	copy(sorted, perf)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].AvgNetPercentage < sorted[j-1].AvgNetPercentage; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	if len(sorted) > weakSubjectCount {
		sorted = sorted[:weakSubjectCount]
	}
	return sorted
}

// GetOutcomeAggregates groups learning outcomes across confirmed exams.
// Passing an empty subject returns all subjects.
func GetOutcomeAggregates(ctx context.Context, pool *pgxpool.Pool, studentID, subject string) ([]models.OutcomeAggregate, error) {
	query := `
		SELECT o.subject_name,
		       COALESCE(o.category, ''),
		       COALESCE(o.subcategory, ''),
		       COALESCE(o.outcome_description, ''),
		       SUM(o.total_questions),
		       SUM(o.acquired),
		       SUM(o.lost)
		FROM learning_outcomes o
		JOIN exams e ON e.id = o.exam_id
		WHERE e.student_id = $1 AND e.status = 'confirmed'`
	args := []interface{}{studentID}
	if subject != "" {
		query += ` AND o.subject_name = $2`
		args = append(args, subject)
	}
	query += `
		GROUP BY o.subject_name, o.category, o.subcategory, o.outcome_description
		ORDER BY o.subject_name, o.category, o.subcategory`

	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query learning outcomes: %w", err)
	}
	defer rows.Close()

	aggs := []models.OutcomeAggregate{}
	for rows.Next() {
		var a models.OutcomeAggregate
		if err := rows.Scan(&a.SubjectName, &a.Category, &a.Subcategory,
			&a.OutcomeDescription, &a.TotalQuestions, &a.Acquired, &a.Lost); err != nil {
			return nil, fmt.Errorf("failed to scan outcome aggregate: %w", err)
		}
		if a.TotalQuestions > 0 {
			a.SuccessRate = float64(a.Acquired) / float64(a.TotalQuestions) * 100
		}
		aggs = append(aggs, a)
	}
	return aggs, rows.Err()
}

func mean(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}
