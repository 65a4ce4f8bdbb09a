// Package studyplan builds day-by-day study schedules from a student's
// active recommendations. The schedule layout comes from Claude when
// available, otherwise from a deterministic round-robin planner.
package studyplan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"deneme-server/db"
	"deneme-server/extraction"
	"deneme-server/models"
	"deneme-server/utils"
)

var ErrPlanNotFound = errors.New("study plan not found")

const (
	StyleIntensive = "intensive"
	StyleBalanced  = "balanced"
	StyleRelaxed   = "relaxed"

	StatusActive   = "active"
	StatusArchived = "archived"

	// A student counts as on track while completion lags expected progress
	// by at most this many percentage points.
	onTrackGrace = 10.0
)

// StyleParams controls how densely a plan packs study time.
type StyleParams struct {
	// Intensity is the fraction of the daily study budget actually
	// scheduled; the rest is slack.
	Intensity      float64
	SessionMinutes int
	// RestEvery inserts a rest day every Nth day. Zero means no rest days.
	RestEvery int
}

// ParamsForStyle maps a study style to its scheduling parameters.
func ParamsForStyle(style string) StyleParams {
	switch style {
	case StyleIntensive:
		return StyleParams{Intensity: 0.85, SessionMinutes: 90, RestEvery: 0}
	case StyleRelaxed:
		return StyleParams{Intensity: 0.65, SessionMinutes: 45, RestEvery: 5}
	default:
		return StyleParams{Intensity: 0.75, SessionMinutes: 60, RestEvery: 7}
	}
}

// IsRestDay reports whether the given one-based day number is a rest day.
func (p StyleParams) IsRestDay(dayNumber int) bool {
	return p.RestEvery > 0 && dayNumber%p.RestEvery == 0
}

// Service persists study plans.
type Service struct {
	pool   *pgxpool.Pool
	claude *extraction.ClaudeClient
}

func NewService(pool *pgxpool.Pool, claude *extraction.ClaudeClient) *Service {
	return &Service{pool: pool, claude: claude}
}

// planItem is one scheduled study block before persistence.
type planItem struct {
	Subject          string `json:"subject"`
	Topic            string `json:"topic"`
	Description      string `json:"description,omitempty"`
	DurationMinutes  int    `json:"duration_minutes"`
	RecommendationID string `json:"-"`
}

type planDay struct {
	DayNumber int        `json:"day"`
	Items     []planItem `json:"items"`
}

// topicSource is what the planner schedules from: one recommendation's
// subject and topic.
type topicSource struct {
	RecommendationID string
	Subject          string
	Topic            string
	Description      string
}

// Create builds and stores a new study plan from the student's active
// recommendations.
func (s *Service) Create(ctx context.Context, studentID string, req models.CreateStudyPlanRequest) (*models.StudyPlan, error) {
	sources, err := s.activeTopics(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		// No recommendations yet, fall back to a general review plan
		// over the subjects of the student's exam program.
		sources, err = s.programTopics(ctx, studentID)
		if err != nil {
			return nil, err
		}
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no active recommendations to plan from; generate recommendations first")
	}

	params := ParamsForStyle(req.StudyStyle)
	days := s.schedule(ctx, sources, params, req.TimeFrame, req.DailyStudyTime)

	startDate := time.Now().Truncate(24 * time.Hour)
	endDate := startDate.AddDate(0, 0, req.TimeFrame-1)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	plan := &models.StudyPlan{
		ID:             uuid.New().String(),
		StudentID:      studentID,
		Name:           req.Name,
		TimeFrame:      req.TimeFrame,
		DailyStudyTime: req.DailyStudyTime,
		StudyStyle:     req.StudyStyle,
		Status:         StatusActive,
		StartDate:      startDate,
		EndDate:        endDate,
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO study_plans (id, student_id, name, time_frame, daily_study_time,
		                         study_style, status, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, plan.ID, plan.StudentID, plan.Name, plan.TimeFrame, plan.DailyStudyTime,
		plan.StudyStyle, plan.Status, plan.StartDate, plan.EndDate)
	if err != nil {
		return nil, fmt.Errorf("failed to insert study plan: %w", err)
	}

	for _, day := range days {
		dayID := uuid.New().String()
		total := 0
		for _, item := range day.Items {
			total += item.DurationMinutes
		}
		date := startDate.AddDate(0, 0, day.DayNumber-1)
		_, err = tx.Exec(ctx, `
			INSERT INTO study_plan_days (id, plan_id, day_number, date, total_duration_minutes)
			VALUES ($1, $2, $3, $4, $5)
		`, dayID, plan.ID, day.DayNumber, date, total)
		if err != nil {
			return nil, fmt.Errorf("failed to insert plan day %d: %w", day.DayNumber, err)
		}

		for order, item := range day.Items {
			var recID *string
			if item.RecommendationID != "" {
				recID = &item.RecommendationID
			}
			var desc *string
			if item.Description != "" {
				desc = &item.Description
			}
			_, err = tx.Exec(ctx, `
				INSERT INTO study_plan_items (id, day_id, recommendation_id, subject_name,
				                              topic, description, duration_minutes, item_order)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			`, uuid.New().String(), dayID, recID, item.Subject, item.Topic, desc,
				item.DurationMinutes, order+1)
			if err != nil {
				return nil, fmt.Errorf("failed to insert plan item: %w", err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit study plan: %w", err)
	}
	db.LogSystemEvent(s.pool, "api", "study_plan_created", plan.ID,
		fmt.Sprintf("%d day(s), style %s", req.TimeFrame, req.StudyStyle))
	return s.Get(ctx, plan.ID)
}

func (s *Service) activeTopics(ctx context.Context, studentID string) ([]topicSource, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, COALESCE(subject_name, ''), COALESCE(topic, ''), description
		FROM recommendations
		WHERE student_id = $1 AND is_active = TRUE
		ORDER BY priority ASC
		LIMIT 10
	`, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendations: %w", err)
	}
	defer rows.Close()

	sources := []topicSource{}
	for rows.Next() {
		var src topicSource
		if err := rows.Scan(&src.RecommendationID, &src.Subject, &src.Topic, &src.Description); err != nil {
			return nil, fmt.Errorf("failed to scan recommendation: %w", err)
		}
		if src.Subject == "" {
			src.Subject = "Genel"
		}
		if src.Topic == "" {
			src.Topic = "Genel tekrar"
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

// programTopics builds general review topics from the subject list of the
// student's exam program (TM, MF, ...).
func (s *Service) programTopics(ctx context.Context, studentID string) ([]topicSource, error) {
	var program *string
	err := s.pool.QueryRow(ctx, `
		SELECT program FROM students WHERE id = $1
	`, studentID).Scan(&program)
	if err != nil {
		return nil, fmt.Errorf("failed to load student program: %w", err)
	}
	if program == nil {
		return nil, nil
	}
	subjects, ok := utils.ProgramSubjects[strings.ToUpper(strings.TrimSpace(*program))]
	if !ok {
		return nil, nil
	}
	sources := make([]topicSource, 0, len(subjects))
	for _, subject := range subjects {
		sources = append(sources, topicSource{Subject: subject, Topic: "Genel tekrar"})
	}
	return sources, nil
}

// schedule asks Claude to lay out the days and falls back to round-robin
// when that fails.
func (s *Service) schedule(ctx context.Context, sources []topicSource, params StyleParams, timeFrame, dailyMinutes int) []planDay {
	if days := s.claudeSchedule(ctx, sources, params, timeFrame, dailyMinutes); days != nil {
		return days
	}
	return buildFallbackSchedule(sources, params, timeFrame, dailyMinutes)
}

func (s *Service) claudeSchedule(ctx context.Context, sources []topicSource, params StyleParams, timeFrame, dailyMinutes int) []planDay {
	if !s.claude.Enabled() {
		return nil
	}
	type promptTopic struct {
		Subject string `json:"subject"`
		Topic   string `json:"topic"`
	}
	topics := make([]promptTopic, 0, len(sources))
	for _, src := range sources {
		topics = append(topics, promptTopic{Subject: src.Subject, Topic: src.Topic})
	}
	topicJSON, err := json.Marshal(topics)
	if err != nil {
		return nil
	}

	budget := int(float64(dailyMinutes) * params.Intensity)
	prompt := fmt.Sprintf(`Bir öğrenci için %d günlük çalışma programı hazırla. Günlük çalışma süresi en fazla %d dakika, her oturum yaklaşık %d dakika olmalı. Öncelik sırasına göre çalışılacak konular:

%s

SADECE aşağıdaki şemaya uyan bir JSON dizisi döndür, açıklama ekleme:

[{"day": 1, "items": [{"subject": "", "topic": "", "description": "", "duration_minutes": %d}]}]

İlk konulara daha fazla zaman ayır. Türkçe yaz.`,
		timeFrame, budget, params.SessionMinutes, string(topicJSON), params.SessionMinutes)

	raw, err := s.claude.Complete(ctx, prompt)
	if err != nil {
		logrus.WithError(err).Warn("claude schedule generation failed, using fallback planner")
		return nil
	}
	var days []planDay
	if err := json.Unmarshal([]byte(extraction.StripCodeFences(raw)), &days); err != nil {
		logrus.WithError(err).Warn("claude returned malformed schedule JSON, using fallback planner")
		return nil
	}
	if len(days) == 0 {
		return nil
	}

	// Attach recommendation IDs back by subject and topic, drop days
	// outside the time frame, and honor rest days.
	bySubjectTopic := map[string]string{}
	for _, src := range sources {
		bySubjectTopic[src.Subject+"|"+src.Topic] = src.RecommendationID
	}
	cleaned := make([]planDay, 0, len(days))
	for _, day := range days {
		if day.DayNumber < 1 || day.DayNumber > timeFrame || params.IsRestDay(day.DayNumber) {
			continue
		}
		for i := range day.Items {
			day.Items[i].RecommendationID = bySubjectTopic[day.Items[i].Subject+"|"+day.Items[i].Topic]
		}
		cleaned = append(cleaned, day)
	}
	if len(cleaned) == 0 {
		return nil
	}
	return cleaned
}

// buildFallbackSchedule cycles through the prioritized topics, filling each
// study day up to the intensity-adjusted budget in session-sized blocks.
func buildFallbackSchedule(sources []topicSource, params StyleParams, timeFrame, dailyMinutes int) []planDay {
	budget := int(float64(dailyMinutes) * params.Intensity)
	if budget < params.SessionMinutes {
		budget = params.SessionMinutes
	}

	days := []planDay{}
	next := 0
	for dayNum := 1; dayNum <= timeFrame; dayNum++ {
		if params.IsRestDay(dayNum) {
			continue
		}
		day := planDay{DayNumber: dayNum}
		remaining := budget
		for remaining >= params.SessionMinutes {
			src := sources[next%len(sources)]
			next++
			day.Items = append(day.Items, planItem{
				Subject:          src.Subject,
				Topic:            src.Topic,
				Description:      src.Description,
				DurationMinutes:  params.SessionMinutes,
				RecommendationID: src.RecommendationID,
			})
			remaining -= params.SessionMinutes
		}
		days = append(days, day)
	}
	return days
}

// Get loads one plan with its days and items.
func (s *Service) Get(ctx context.Context, planID string) (*models.StudyPlan, error) {
	var plan models.StudyPlan
	err := s.pool.QueryRow(ctx, `
		SELECT id, student_id, name, time_frame, daily_study_time, study_style,
		       status, start_date, end_date, created_at
		FROM study_plans WHERE id = $1
	`, planID).Scan(&plan.ID, &plan.StudentID, &plan.Name, &plan.TimeFrame,
		&plan.DailyStudyTime, &plan.StudyStyle, &plan.Status, &plan.StartDate,
		&plan.EndDate, &plan.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load study plan: %w", err)
	}

	dayRows, err := s.pool.Query(ctx, `
		SELECT id, plan_id, day_number, date, total_duration_minutes, completed
		FROM study_plan_days WHERE plan_id = $1 ORDER BY day_number
	`, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to query plan days: %w", err)
	}
	defer dayRows.Close()

	for dayRows.Next() {
		var day models.StudyPlanDay
		if err := dayRows.Scan(&day.ID, &day.PlanID, &day.DayNumber, &day.Date,
			&day.TotalDurationMinutes, &day.Completed); err != nil {
			return nil, fmt.Errorf("failed to scan plan day: %w", err)
		}
		plan.Days = append(plan.Days, day)
	}
	if err := dayRows.Err(); err != nil {
		return nil, err
	}

	for i := range plan.Days {
		itemRows, err := s.pool.Query(ctx, `
			SELECT id, day_id, recommendation_id, subject_name, topic, description,
			       duration_minutes, item_order, completed, completed_at
			FROM study_plan_items WHERE day_id = $1 ORDER BY item_order
		`, plan.Days[i].ID)
		if err != nil {
			return nil, fmt.Errorf("failed to query plan items: %w", err)
		}
		for itemRows.Next() {
			var item models.StudyPlanItem
			if err := itemRows.Scan(&item.ID, &item.DayID, &item.RecommendationID,
				&item.SubjectName, &item.Topic, &item.Description, &item.DurationMinutes,
				&item.ItemOrder, &item.Completed, &item.CompletedAt); err != nil {
				itemRows.Close()
				return nil, fmt.Errorf("failed to scan plan item: %w", err)
			}
			plan.Days[i].Items = append(plan.Days[i].Items, item)
		}
		itemRows.Close()
		if err := itemRows.Err(); err != nil {
			return nil, err
		}
	}
	return &plan, nil
}

// List returns a student's plans without their day detail.
func (s *Service) List(ctx context.Context, studentID string) ([]models.StudyPlan, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, student_id, name, time_frame, daily_study_time, study_style,
		       status, start_date, end_date, created_at
		FROM study_plans WHERE student_id = $1 ORDER BY created_at DESC
	`, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query study plans: %w", err)
	}
	defer rows.Close()

	plans := []models.StudyPlan{}
	for rows.Next() {
		var p models.StudyPlan
		if err := rows.Scan(&p.ID, &p.StudentID, &p.Name, &p.TimeFrame,
			&p.DailyStudyTime, &p.StudyStyle, &p.Status, &p.StartDate,
			&p.EndDate, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan study plan: %w", err)
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

// CompleteItem marks one study block done and closes the day when all of
// its items are done.
func (s *Service) CompleteItem(ctx context.Context, itemID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var dayID string
	err = tx.QueryRow(ctx, `
		UPDATE study_plan_items
		SET completed = TRUE, completed_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING day_id
	`, itemID).Scan(&dayID)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("study plan item %s not found", itemID)
	}
	if err != nil {
		return fmt.Errorf("failed to complete item: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE study_plan_days d
		SET completed = NOT EXISTS (
			SELECT 1 FROM study_plan_items i
			WHERE i.day_id = d.id AND i.completed = FALSE
		)
		WHERE d.id = $1
	`, dayID)
	if err != nil {
		return fmt.Errorf("failed to update day completion: %w", err)
	}
	return tx.Commit(ctx)
}

// Progress reports completion against the expected pace.
func (s *Service) Progress(ctx context.Context, planID string) (*models.StudyPlanProgress, error) {
	plan, err := s.Get(ctx, planID)
	if err != nil {
		return nil, err
	}

	total, completed := 0, 0
	for _, day := range plan.Days {
		for _, item := range day.Items {
			total++
			if item.Completed {
				completed++
			}
		}
	}
	return ComputeProgress(planID, total, completed, plan.StartDate, plan.TimeFrame, time.Now()), nil
}

// ComputeProgress derives the progress report from raw counts. Expected
// progress scales linearly with elapsed days; a student is on track while
// within the grace margin of that line.
func ComputeProgress(planID string, total, completed int, start time.Time, timeFrame int, now time.Time) *models.StudyPlanProgress {
	daysElapsed := int(now.Sub(start).Hours()/24) + 1
	if daysElapsed < 0 {
		daysElapsed = 0
	}
	if daysElapsed > timeFrame {
		daysElapsed = timeFrame
	}

	p := &models.StudyPlanProgress{
		PlanID:         planID,
		TotalItems:     total,
		CompletedItems: completed,
		DaysElapsed:    daysElapsed,
		DaysTotal:      timeFrame,
	}
	if total > 0 {
		p.CompletionPercent = float64(completed) / float64(total) * 100
	}
	if timeFrame > 0 {
		p.ExpectedPercent = float64(daysElapsed) / float64(timeFrame) * 100
	}
	p.OnTrack = p.CompletionPercent >= p.ExpectedPercent-onTrackGrace
	return p
}

// Archive retires a plan without deleting it.
func (s *Service) Archive(ctx context.Context, planID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE study_plans SET status = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1
	`, planID, StatusArchived)
	if err != nil {
		return fmt.Errorf("failed to archive plan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPlanNotFound
	}
	return nil
}

// Delete removes a plan and, through cascades, its days and items.
func (s *Service) Delete(ctx context.Context, planID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM study_plans WHERE id = $1`, planID)
	if err != nil {
		return fmt.Errorf("failed to delete plan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPlanNotFound
	}
	return nil
}
