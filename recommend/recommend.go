// Package recommend turns a student's performance patterns into study
// recommendations. Pattern detection is deterministic; the recommendation
// text is generated by Claude with a template fallback when the API is
// unavailable.
package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"deneme-server/analytics"
	"deneme-server/db"
	"deneme-server/extraction"
	"deneme-server/models"
)

const (
	PatternWeakSubject    = "weak_subject"
	PatternDecliningTrend = "declining_trend"
	PatternHighBlankRate  = "high_blank_rate"
	PatternWeakOutcomes   = "weak_outcomes"

	SeverityHigh   = "high"
	SeverityMedium = "medium"

	weakSubjectThreshold     = 50.0
	criticalSubjectThreshold = 30.0
	blankRateThreshold       = 0.30
	weakOutcomeThreshold     = 40.0
	weakOutcomeMinCount      = 2
)

// Pattern is one detected problem in the student's results.
type Pattern struct {
	Type        string  `json:"type"`
	SubjectName string  `json:"subject_name,omitempty"`
	Severity    string  `json:"severity"`
	Value       float64 `json:"value"`
	Detail      string  `json:"detail"`
}

// DetectPatterns scans subject performance and outcome aggregates for the
// signals the recommendation generator works from.
func DetectPatterns(perf []models.SubjectPerformance, outcomes []models.OutcomeAggregate) []Pattern {
	patterns := []Pattern{}

	for _, p := range perf {
		if p.AvgNetPercentage < weakSubjectThreshold {
			severity := SeverityMedium
			if p.AvgNetPercentage < criticalSubjectThreshold {
				severity = SeverityHigh
			}
			patterns = append(patterns, Pattern{
				Type:        PatternWeakSubject,
				SubjectName: p.SubjectName,
				Severity:    severity,
				Value:       p.AvgNetPercentage,
				Detail:      fmt.Sprintf("%s average net is %.1f%%", p.SubjectName, p.AvgNetPercentage),
			})
		}

		if p.Trend == analytics.TrendDeclining {
			patterns = append(patterns, Pattern{
				Type:        PatternDecliningTrend,
				SubjectName: p.SubjectName,
				Severity:    SeverityHigh,
				Value:       p.TrendDelta,
				Detail:      fmt.Sprintf("%s dropped %.1f points between early and recent exams", p.SubjectName, -p.TrendDelta),
			})
		}

		total := p.AvgCorrect + p.AvgWrong + p.AvgBlank
		if total > 0 {
			blankRate := p.AvgBlank / total
			if blankRate > blankRateThreshold {
				patterns = append(patterns, Pattern{
					Type:        PatternHighBlankRate,
					SubjectName: p.SubjectName,
					Severity:    SeverityMedium,
					Value:       blankRate * 100,
					Detail:      fmt.Sprintf("%s has %.0f%% of questions left blank", p.SubjectName, blankRate*100),
				})
			}
		}
	}

	// Subjects with repeated weak learning outcomes.
	weakBySubject := map[string][]string{}
	for _, o := range outcomes {
		if o.TotalQuestions > 0 && o.SuccessRate < weakOutcomeThreshold {
			weakBySubject[o.SubjectName] = append(weakBySubject[o.SubjectName], o.OutcomeDescription)
		}
	}
	for subject, descs := range weakBySubject {
		if len(descs) < weakOutcomeMinCount {
			continue
		}
		patterns = append(patterns, Pattern{
			Type:        PatternWeakOutcomes,
			SubjectName: subject,
			Severity:    SeverityMedium,
			Value:       float64(len(descs)),
			Detail:      fmt.Sprintf("%s has %d learning outcomes below %.0f%%: %s", subject, len(descs), weakOutcomeThreshold, strings.Join(truncateList(descs, 3), "; ")),
		})
	}

	return patterns
}

// Service generates and stores recommendations.
type Service struct {
	pool   *pgxpool.Pool
	claude *extraction.ClaudeClient
}

func NewService(pool *pgxpool.Pool, claude *extraction.ClaudeClient) *Service {
	return &Service{pool: pool, claude: claude}
}

// generated mirrors the JSON shape Claude is asked to return.
type generated struct {
	Priority    int      `json:"priority"`
	SubjectName string   `json:"subject_name"`
	Topic       string   `json:"topic"`
	IssueType   string   `json:"issue_type"`
	Description string   `json:"description"`
	ActionItems []string `json:"action_items"`
	Rationale   string   `json:"rationale"`
	ImpactScore float64  `json:"impact_score"`
}

// Regenerate replaces the student's active recommendations with a fresh set
// derived from current performance data.
func (s *Service) Regenerate(ctx context.Context, studentID string) ([]models.Recommendation, error) {
	perf, err := analytics.GetSubjectPerformance(ctx, s.pool, studentID)
	if err != nil {
		return nil, err
	}
	outcomes, err := analytics.GetOutcomeAggregates(ctx, s.pool, studentID, "")
	if err != nil {
		return nil, err
	}

	patterns := DetectPatterns(perf, outcomes)
	if len(patterns) == 0 {
		return []models.Recommendation{}, nil
	}

	gens := s.generate(ctx, patterns)
	if len(gens) == 0 {
		gens = fallbackRecommendations(patterns)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM recommendations WHERE student_id = $1`, studentID); err != nil {
		return nil, fmt.Errorf("failed to clear old recommendations: %w", err)
	}

	recs := make([]models.Recommendation, 0, len(gens))
	for i, g := range gens {
		rec := models.Recommendation{
			ID:          uuid.New().String(),
			StudentID:   studentID,
			Priority:    g.Priority,
			IssueType:   g.IssueType,
			Description: g.Description,
			ActionItems: g.ActionItems,
			IsActive:    true,
		}
		if rec.Priority == 0 {
			rec.Priority = i + 1
		}
		if g.SubjectName != "" {
			rec.SubjectName = &g.SubjectName
		}
		if g.Topic != "" {
			rec.Topic = &g.Topic
		}
		if g.Rationale != "" {
			rec.Rationale = &g.Rationale
		}
		if g.ImpactScore > 0 {
			rec.ImpactScore = &g.ImpactScore
		}

		actionJSON, err := json.Marshal(rec.ActionItems)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal action items: %w", err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO recommendations (id, student_id, priority, subject_name, topic,
			                             issue_type, description, action_items, rationale,
			                             impact_score, is_active)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, TRUE)
		`, rec.ID, rec.StudentID, rec.Priority, rec.SubjectName, rec.Topic,
			rec.IssueType, rec.Description, actionJSON, rec.Rationale, rec.ImpactScore)
		if err != nil {
			return nil, fmt.Errorf("failed to insert recommendation: %w", err)
		}
		recs = append(recs, rec)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit recommendations: %w", err)
	}
	db.LogSystemEvent(s.pool, "api", "recommendations_regenerated", studentID,
		fmt.Sprintf("%d recommendation(s) from %d pattern(s)", len(recs), len(patterns)))
	return recs, nil
}

// generate asks Claude for recommendation text. Returns nil on any failure
// so the caller can fall back to templates.
func (s *Service) generate(ctx context.Context, patterns []Pattern) []generated {
	if !s.claude.Enabled() {
		return nil
	}
	patternJSON, err := json.Marshal(patterns)
	if err != nil {
		return nil
	}
	prompt := fmt.Sprintf(`Bir öğrencinin deneme sınavı sonuçlarında tespit edilen sorunlar aşağıda JSON olarak verilmiştir:

%s

Her sorun için somut bir çalışma önerisi üret. SADECE aşağıdaki şemaya uyan bir JSON dizisi döndür, açıklama ekleme:

[{"priority": 1, "subject_name": "", "topic": "", "issue_type": "", "description": "", "action_items": ["..."], "rationale": "", "impact_score": 7.5}]

priority 1 en acil olandır. issue_type alanına sorunun type değerini aynen yaz. Türkçe yaz.`, string(patternJSON))

	raw, err := s.claude.Complete(ctx, prompt)
	if err != nil {
		logrus.WithError(err).Warn("claude recommendation generation failed, using fallback")
		return nil
	}
	var gens []generated
	if err := json.Unmarshal([]byte(extraction.StripCodeFences(raw)), &gens); err != nil {
		logrus.WithError(err).Warn("claude returned malformed recommendation JSON, using fallback")
		return nil
	}
	return gens
}

// fallbackRecommendations builds template recommendations straight from the
// detected patterns, ordered high severity first.
func fallbackRecommendations(patterns []Pattern) []generated {
	ordered := make([]Pattern, 0, len(patterns))
	for _, p := range patterns {
		if p.Severity == SeverityHigh {
			ordered = append(ordered, p)
		}
	}
	for _, p := range patterns {
		if p.Severity != SeverityHigh {
			ordered = append(ordered, p)
		}
	}

	gens := make([]generated, 0, len(ordered))
	for i, p := range ordered {
		g := generated{
			Priority:    i + 1,
			SubjectName: p.SubjectName,
			IssueType:   p.Type,
			Rationale:   p.Detail,
		}
		switch p.Type {
		case PatternWeakSubject:
			g.Topic = "Konu tekrarı"
			g.Description = fmt.Sprintf("%s dersinde net ortalaması düşük. Temel konuları baştan tekrar et.", p.SubjectName)
			g.ActionItems = []string{
				fmt.Sprintf("%s için konu eksiklerini çıkar", p.SubjectName),
				"Her gün 20 soru çöz",
				"Yanlış yapılan soruları hata defterine yaz",
			}
		case PatternDecliningTrend:
			g.Topic = "Performans düşüşü"
			g.Description = fmt.Sprintf("%s dersinde son denemelerde belirgin düşüş var. Son konulara odaklan.", p.SubjectName)
			g.ActionItems = []string{
				"Son üç denemenin yanlışlarını analiz et",
				fmt.Sprintf("%s için haftalık deneme programı yap", p.SubjectName),
			}
		case PatternHighBlankRate:
			g.Topic = "Boş bırakma oranı"
			g.Description = fmt.Sprintf("%s dersinde soruların önemli bölümü boş bırakılıyor. Süre yönetimi ve soru seçimi üzerine çalış.", p.SubjectName)
			g.ActionItems = []string{
				"Süre tutarak soru çöz",
				"Emin olmadığın sorularda eleme tekniğini kullan",
			}
		case PatternWeakOutcomes:
			g.Topic = "Kazanım eksikleri"
			g.Description = fmt.Sprintf("%s dersinde birden fazla kazanımda başarı düşük. Kazanım bazlı çalış.", p.SubjectName)
			g.ActionItems = []string{
				"Zayıf kazanımların listesini çıkar",
				"Her kazanım için konu anlatımı izle ve test çöz",
			}
		default:
			g.Description = p.Detail
			g.ActionItems = []string{"Bu konuda düzenli tekrar yap"}
		}
		gens = append(gens, g)
	}
	return gens
}

// List returns the student's recommendations with attached resources.
func (s *Service) List(ctx context.Context, studentID string, activeOnly bool) ([]models.Recommendation, error) {
	query := `
		SELECT id, student_id, priority, subject_name, topic, issue_type, description,
		       COALESCE(action_items, '[]'::jsonb), rationale, impact_score, is_active, created_at
		FROM recommendations
		WHERE student_id = $1`
	if activeOnly {
		query += ` AND is_active = TRUE`
	}
	query += ` ORDER BY priority ASC, created_at DESC`

	rows, err := s.pool.Query(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendations: %w", err)
	}
	defer rows.Close()

	recs := []models.Recommendation{}
	for rows.Next() {
		var (
			r          models.Recommendation
			actionJSON []byte
		)
		if err := rows.Scan(&r.ID, &r.StudentID, &r.Priority, &r.SubjectName, &r.Topic,
			&r.IssueType, &r.Description, &actionJSON, &r.Rationale, &r.ImpactScore,
			&r.IsActive, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan recommendation: %w", err)
		}
		if err := json.Unmarshal(actionJSON, &r.ActionItems); err != nil {
			r.ActionItems = []string{}
		}
		recs = append(recs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range recs {
		resources, err := s.attachedResources(ctx, recs[i].ID)
		if err != nil {
			return nil, err
		}
		recs[i].Resources = resources
	}
	return recs, nil
}

func (s *Service) attachedResources(ctx context.Context, recommendationID string) ([]models.Resource, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT r.id, r.name, r.type, r.url, r.description, r.subject_name, r.topic,
		       r.thumbnail_url, r.quality_score, r.is_active, r.created_at
		FROM resources r
		JOIN recommendation_resources rr ON rr.resource_id = r.id
		WHERE rr.recommendation_id = $1 AND r.is_active = TRUE
		ORDER BY r.quality_score DESC NULLS LAST
	`, recommendationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query attached resources: %w", err)
	}
	defer rows.Close()

	resources := []models.Resource{}
	for rows.Next() {
		var r models.Resource
		if err := rows.Scan(&r.ID, &r.Name, &r.Type, &r.URL, &r.Description, &r.SubjectName,
			&r.Topic, &r.ThumbnailURL, &r.QualityScore, &r.IsActive, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan resource: %w", err)
		}
		resources = append(resources, r)
	}
	return resources, rows.Err()
}

// MarkCompleted deactivates one recommendation.
func (s *Service) MarkCompleted(ctx context.Context, recommendationID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE recommendations SET is_active = FALSE WHERE id = $1
	`, recommendationID)
	if err != nil {
		return fmt.Errorf("failed to mark recommendation completed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("recommendation %s not found", recommendationID)
	}
	return nil
}

func truncateList(items []string, max int) []string {
	if len(items) <= max {
		return items
	}
	return items[:max]
}
