// --- deneme-server/db/db.go ---
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// InitDB initializes the PostgreSQL database connection pool
func InitDB(connString string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(context.Background(), connString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	// Ping the database to verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.Info("Successfully connected to PostgreSQL database")
	return pool, nil
}

// CreateSchema sets up the necessary tables.
// In a production environment, use a proper migration tool (e.g., golang-migrate).
func CreateSchema(pool *pgxpool.Pool) error {
	schemaSQL := `
	CREATE TABLE IF NOT EXISTS students (
		id VARCHAR(36) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		school VARCHAR(255),
		grade VARCHAR(10),
		class_section VARCHAR(10),
		program VARCHAR(10),
		created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS exams (
		id VARCHAR(36) PRIMARY KEY,
		student_id VARCHAR(36) REFERENCES students(id) ON DELETE CASCADE,
		exam_name VARCHAR(255) NOT NULL,
		exam_date DATE NOT NULL,
		booklet_type VARCHAR(10),
		exam_number INT,
		pdf_path VARCHAR(500),
		status VARCHAR(30) NOT NULL DEFAULT 'pending_confirmation'
			CHECK (status IN ('pending_confirmation', 'confirmed')),
		confirmed_source VARCHAR(10) CHECK (confirmed_source IN ('claude', 'local')),
		claude_payload JSONB,
		local_payload JSONB,
		validation_report JSONB,
		uploaded_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
		processed_at TIMESTAMP WITH TIME ZONE,
		confirmed_at TIMESTAMP WITH TIME ZONE,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_exams_student ON exams(student_id);
	CREATE INDEX IF NOT EXISTS idx_exams_status ON exams(status);
	CREATE INDEX IF NOT EXISTS idx_exams_date ON exams(exam_date);

	CREATE TABLE IF NOT EXISTS exam_results (
		id VARCHAR(36) PRIMARY KEY,
		exam_id VARCHAR(36) NOT NULL UNIQUE REFERENCES exams(id) ON DELETE CASCADE,
		total_questions INT NOT NULL,
		total_correct INT NOT NULL,
		total_wrong INT NOT NULL,
		total_blank INT NOT NULL,
		net_score NUMERIC(10,3) NOT NULL,
		net_percentage NUMERIC(5,2) NOT NULL,
		class_rank INT,
		class_total INT,
		school_rank INT,
		school_total INT,
		class_avg NUMERIC(10,3),
		school_avg NUMERIC(10,3),
		created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS subject_results (
		id VARCHAR(36) PRIMARY KEY,
		exam_id VARCHAR(36) NOT NULL REFERENCES exams(id) ON DELETE CASCADE,
		subject_name VARCHAR(50) NOT NULL,
		total_questions INT NOT NULL,
		correct INT NOT NULL,
		wrong INT NOT NULL,
		blank INT NOT NULL,
		net_score NUMERIC(10,3) NOT NULL,
		net_percentage NUMERIC(5,2) NOT NULL,
		class_rank INT,
		class_avg NUMERIC(10,3),
		school_rank INT,
		school_avg NUMERIC(10,3),
		created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_subject_results_exam ON subject_results(exam_id);
	CREATE INDEX IF NOT EXISTS idx_subject_results_subject ON subject_results(subject_name);

	CREATE TABLE IF NOT EXISTS learning_outcomes (
		id VARCHAR(36) PRIMARY KEY,
		exam_id VARCHAR(36) NOT NULL REFERENCES exams(id) ON DELETE CASCADE,
		subject_name VARCHAR(50) NOT NULL,
		category VARCHAR(255),
		subcategory VARCHAR(255),
		outcome_description TEXT,
		total_questions INT NOT NULL,
		acquired INT NOT NULL,
		lost INT NOT NULL,
		success_rate NUMERIC(5,2),
		student_percentage NUMERIC(5,2),
		class_percentage NUMERIC(5,2),
		school_percentage NUMERIC(5,2),
		created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_outcomes_exam ON learning_outcomes(exam_id);

	CREATE TABLE IF NOT EXISTS questions (
		id VARCHAR(36) PRIMARY KEY,
		exam_id VARCHAR(36) NOT NULL REFERENCES exams(id) ON DELETE CASCADE,
		subject_name VARCHAR(50) NOT NULL,
		question_number INT NOT NULL,
		correct_answer VARCHAR(1),
		student_answer VARCHAR(1),
		is_correct BOOLEAN DEFAULT FALSE,
		is_blank BOOLEAN DEFAULT FALSE,
		is_canceled BOOLEAN DEFAULT FALSE,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_questions_exam ON questions(exam_id);

	CREATE TABLE IF NOT EXISTS recommendations (
		id VARCHAR(36) PRIMARY KEY,
		student_id VARCHAR(36) NOT NULL REFERENCES students(id) ON DELETE CASCADE,
		priority INT NOT NULL,
		subject_name VARCHAR(50),
		topic VARCHAR(255),
		issue_type VARCHAR(50) NOT NULL,
		description TEXT NOT NULL,
		action_items JSONB,
		rationale TEXT,
		impact_score NUMERIC(4,1),
		is_active BOOLEAN DEFAULT TRUE,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_recommendations_student ON recommendations(student_id);

	CREATE TABLE IF NOT EXISTS resources (
		id VARCHAR(36) PRIMARY KEY,
		name VARCHAR(500) NOT NULL,
		type VARCHAR(20) NOT NULL CHECK (type IN ('youtube', 'pdf', 'website')),
		url VARCHAR(1000) NOT NULL UNIQUE,
		description TEXT,
		subject_name VARCHAR(50),
		topic VARCHAR(255),
		thumbnail_url VARCHAR(1000),
		quality_score NUMERIC(5,1),
		extra_data JSONB,
		is_active BOOLEAN DEFAULT TRUE,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_resources_subject_topic ON resources(subject_name, topic);

	CREATE TABLE IF NOT EXISTS recommendation_resources (
		id VARCHAR(36) PRIMARY KEY,
		recommendation_id VARCHAR(36) NOT NULL REFERENCES recommendations(id) ON DELETE CASCADE,
		resource_id VARCHAR(36) NOT NULL REFERENCES resources(id) ON DELETE CASCADE,
		UNIQUE (recommendation_id, resource_id)
	);

	CREATE TABLE IF NOT EXISTS youtube_channels (
		id VARCHAR(36) PRIMARY KEY,
		channel_id VARCHAR(50) NOT NULL UNIQUE,
		channel_name VARCHAR(255) NOT NULL,
		subject_name VARCHAR(50) NOT NULL,
		subscriber_count BIGINT DEFAULT 0,
		video_count BIGINT DEFAULT 0,
		view_count BIGINT DEFAULT 0,
		thumbnail_url VARCHAR(1000),
		description TEXT,
		custom_url VARCHAR(255),
		trust_score NUMERIC(5,1) DEFAULT 70.0,
		discovered_via VARCHAR(20) NOT NULL DEFAULT 'auto_search'
			CHECK (discovered_via IN ('auto_search', 'manual_add', 'seed_file')),
		notes TEXT,
		is_active BOOLEAN DEFAULT TRUE,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_channels_subject ON youtube_channels(subject_name);

	CREATE TABLE IF NOT EXISTS study_plans (
		id VARCHAR(36) PRIMARY KEY,
		student_id VARCHAR(36) NOT NULL REFERENCES students(id) ON DELETE CASCADE,
		name VARCHAR(255) NOT NULL,
		time_frame INT NOT NULL,
		daily_study_time INT NOT NULL,
		study_style VARCHAR(20) NOT NULL CHECK (study_style IN ('intensive', 'balanced', 'relaxed')),
		status VARCHAR(20) NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'archived')),
		start_date DATE NOT NULL,
		end_date DATE NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_plans_student ON study_plans(student_id);

	CREATE TABLE IF NOT EXISTS study_plan_days (
		id VARCHAR(36) PRIMARY KEY,
		plan_id VARCHAR(36) NOT NULL REFERENCES study_plans(id) ON DELETE CASCADE,
		day_number INT NOT NULL,
		date DATE NOT NULL,
		total_duration_minutes INT NOT NULL DEFAULT 0,
		completed BOOLEAN DEFAULT FALSE,
		UNIQUE (plan_id, day_number)
	);

	CREATE TABLE IF NOT EXISTS study_plan_items (
		id VARCHAR(36) PRIMARY KEY,
		day_id VARCHAR(36) NOT NULL REFERENCES study_plan_days(id) ON DELETE CASCADE,
		recommendation_id VARCHAR(36) REFERENCES recommendations(id) ON DELETE SET NULL,
		subject_name VARCHAR(50) NOT NULL,
		topic VARCHAR(255) NOT NULL,
		description TEXT,
		duration_minutes INT NOT NULL,
		item_order INT NOT NULL,
		completed BOOLEAN DEFAULT FALSE,
		completed_at TIMESTAMP WITH TIME ZONE
	);
	CREATE INDEX IF NOT EXISTS idx_plan_items_day ON study_plan_items(day_id);

	CREATE TABLE IF NOT EXISTS system_events (
		id SERIAL PRIMARY KEY,
		timestamp TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
		action VARCHAR(255),
		actor VARCHAR(255),
		target TEXT,
		notes TEXT
	);

	CREATE TABLE IF NOT EXISTS error_logs (
		id SERIAL PRIMARY KEY,
		timestamp TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
		source TEXT NOT NULL,
		exam_id VARCHAR(36),
		file_path TEXT,
		field_name TEXT,
		error_message TEXT NOT NULL
	);
	`
	_, err := pool.Exec(context.Background(), schemaSQL)
	if err != nil {
		return fmt.Errorf("error executing schema SQL: %w", err)
	}
	return nil
}

// LogError adds an entry to the error_logs table
func LogError(pool *pgxpool.Pool, source, examID, filePath, fieldName, errMsg string) {
	if pool == nil {
		return
	}
	_, err := pool.Exec(context.Background(), `
		INSERT INTO error_logs (source, exam_id, file_path, field_name, error_message)
		VALUES ($1, $2, $3, $4, $5)
	`, source, nullable(examID), nullable(filePath), nullable(fieldName), errMsg)
	if err != nil {
		logrus.WithError(err).Errorf("failed to log error to database (original error: %s)", errMsg)
	}
}

// LogSystemEvent adds an entry to the system_events audit table
func LogSystemEvent(pool *pgxpool.Pool, actor, action, target, notes string) {
	if pool == nil {
		return
	}
	_, err := pool.Exec(context.Background(), `
		INSERT INTO system_events (action, actor, target, notes)
		VALUES ($1, $2, $3, $4)
	`, action, actor, target, notes)
	if err != nil {
		logrus.WithError(err).Errorf("failed to log system event %s by %s on %s", action, actor, target)
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
