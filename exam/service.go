// Package exam implements the upload lifecycle: dual extraction of the PDF,
// reconciliation of the two results, the pending_confirmation holding state,
// and materialization of the confirmed source into result rows.
package exam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"deneme-server/db"
	"deneme-server/extraction"
	"deneme-server/models"
	"deneme-server/utils"
	"deneme-server/validation"
)

var (
	ErrExamNotFound     = errors.New("exam not found")
	ErrAlreadyConfirmed = errors.New("exam is already confirmed")
	ErrSourceMissing    = errors.New("requested source has no extracted data")
)

const (
	StatusPendingConfirmation = "pending_confirmation"
	StatusConfirmed           = "confirmed"

	SourceClaude = "claude"
	SourceLocal  = "local"
)

// Service coordinates extraction, validation and persistence for exams.
type Service struct {
	pool      *pgxpool.Pool
	claude    *extraction.ClaudeClient
	tolerance float64
}

func NewService(pool *pgxpool.Pool, claude *extraction.ClaudeClient, tolerance float64) *Service {
	if tolerance <= 0 {
		tolerance = validation.DefaultTolerance
	}
	return &Service{pool: pool, claude: claude, tolerance: tolerance}
}

// ProcessUpload runs both extractions on the stored PDF, validates one
// against the other and parks the exam in pending_confirmation. Nothing is
// written to the result tables until Confirm. Any failure removes the
// stored PDF so abandoned files do not accumulate outside the retention
// sweep, which only sees files referenced by an exam row.
func (s *Service) ProcessUpload(ctx context.Context, studentID, examName string, examDate time.Time, pdfPath string) (*models.UploadExamResponse, error) {
	resp, err := s.processUpload(ctx, studentID, examName, examDate, pdfPath)
	if err != nil {
		removePDF(&pdfPath)
	}
	return resp, err
}

func (s *Service) processUpload(ctx context.Context, studentID, examName string, examDate time.Time, pdfPath string) (*models.UploadExamResponse, error) {
	text, err := extraction.ExtractText(pdfPath)
	if err != nil {
		db.LogError(s.pool, "pdf_extraction", "", pdfPath, "", err.Error())
		return nil, fmt.Errorf("could not read uploaded PDF: %w", err)
	}

	var pdfData []byte
	if s.claude.Enabled() {
		pdfData, err = extraction.ReadPDFBytes(pdfPath)
		if err != nil {
			return nil, err
		}
	}
	return s.processDocument(ctx, studentID, examName, examDate, pdfPath, text, pdfData)
}

// processDocument runs the extraction and validation pipeline on the
// already-read document. A failing Claude call fails the whole upload; a
// pending exam built from one source would bypass the reconciliation the
// confirmation flow exists for. Only an unconfigured client degrades to
// local-only mode.
func (s *Service) processDocument(ctx context.Context, studentID, examName string, examDate time.Time, pdfPath, text string, pdfData []byte) (*models.UploadExamResponse, error) {
	localRec, err := extraction.ParseLocal(text)
	if err != nil {
		db.LogError(s.pool, "local_parser", "", pdfPath, "", err.Error())
		return nil, fmt.Errorf("local parsing failed: %w", err)
	}

	var claudeRec *extraction.Record
	if s.claude.Enabled() {
		claudeRec, err = s.claude.AnalyzePDF(ctx, pdfData)
		if err != nil {
			db.LogError(s.pool, "claude_extraction", "", pdfPath, "", err.Error())
			return nil, fmt.Errorf("claude extraction failed: %w", err)
		}
	}

	var report *validation.Report
	if claudeRec != nil {
		report = validation.Validate(claudeRec, localRec, s.tolerance)
	} else {
		logrus.Warn("claude extraction not configured, continuing with local result only")
		report = singleSourceReport()
	}

	examID := uuid.New().String()
	claudeJSON, err := marshalNullable(claudeRec)
	if err != nil {
		return nil, err
	}
	localJSON, err := json.Marshal(localRec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal local record: %w", err)
	}
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal validation report: %w", err)
	}

	bookletType := localRec.ExamInfo.BookletType
	if bookletType == "" && claudeRec != nil {
		bookletType = claudeRec.ExamInfo.BookletType
	}
	examNumber := localRec.ExamInfo.ExamNumber
	if examNumber == nil && claudeRec != nil {
		examNumber = claudeRec.ExamInfo.ExamNumber
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO exams (id, student_id, exam_name, exam_date, booklet_type, exam_number,
		                   pdf_path, status, claude_payload, local_payload, validation_report, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, CURRENT_TIMESTAMP)
	`, examID, studentID, examName, examDate, utils.StringPtr(bookletType), examNumber,
		pdfPath, StatusPendingConfirmation, claudeJSON, localJSON, reportJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to insert exam: %w", err)
	}

	db.LogSystemEvent(s.pool, studentID, "exam_uploaded", examID,
		fmt.Sprintf("validation status: %s", report.Status))

	return &models.UploadExamResponse{
		ExamID:           examID,
		Status:           StatusPendingConfirmation,
		ValidationReport: report,
		ClaudeData:       claudeRec,
		LocalData:        localRec,
	}, nil
}

// Confirm materializes the chosen extraction source into the result tables
// and moves the exam to its terminal confirmed state. Confirmation is only
// valid once; a second call fails with ErrAlreadyConfirmed.
func (s *Service) Confirm(ctx context.Context, examID, source string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		status      string
		claudeJSON  []byte
		localJSON   []byte
		bookletType *string
	)
	err = tx.QueryRow(ctx, `
		SELECT status, claude_payload, local_payload, booklet_type
		FROM exams WHERE id = $1 FOR UPDATE
	`, examID).Scan(&status, &claudeJSON, &localJSON, &bookletType)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrExamNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load exam: %w", err)
	}
	if status == StatusConfirmed {
		return ErrAlreadyConfirmed
	}

	var payload []byte
	switch source {
	case SourceClaude:
		payload = claudeJSON
	case SourceLocal:
		payload = localJSON
	default:
		return fmt.Errorf("unknown source %q", source)
	}
	if len(payload) == 0 || string(payload) == "null" {
		return ErrSourceMissing
	}

	var rec extraction.Record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return fmt.Errorf("stored %s payload is corrupt: %w", source, err)
	}

	if err := materialize(ctx, tx, examID, &rec); err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		UPDATE exams
		SET status = $2, confirmed_source = $3, confirmed_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`, examID, StatusConfirmed, source)
	if err != nil {
		return fmt.Errorf("failed to update exam status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit confirmation: %w", err)
	}
	db.LogSystemEvent(s.pool, "api", "exam_confirmed", examID, "source: "+source)
	return nil
}

// materialize writes the result rows for the confirmed record inside the
// confirmation transaction.
func materialize(ctx context.Context, tx pgx.Tx, examID string, rec *extraction.Record) error {
	o := rec.Overall
	_, err := tx.Exec(ctx, `
		INSERT INTO exam_results (id, exam_id, total_questions, total_correct, total_wrong,
		                          total_blank, net_score, net_percentage,
		                          class_rank, class_total, school_rank, school_total,
		                          class_avg, school_avg)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, uuid.New().String(), examID,
		intOrZero(o.TotalQuestions), intOrZero(o.TotalCorrect), intOrZero(o.TotalWrong),
		intOrZero(o.TotalBlank), floatOrZero(o.NetScore), floatOrZero(o.NetPercentage),
		intOrNil(o.ClassRank), intOrNil(o.ClassTotal), intOrNil(o.SchoolRank), intOrNil(o.SchoolTotal),
		o.ClassAvg, o.SchoolAvg)
	if err != nil {
		return fmt.Errorf("failed to insert exam result: %w", err)
	}

	for name, s := range rec.Subjects {
		canonical := utils.NormalizeSubjectName(name)
		_, err := tx.Exec(ctx, `
			INSERT INTO subject_results (id, exam_id, subject_name, total_questions,
			                             correct, wrong, blank, net_score, net_percentage,
			                             class_avg, school_avg)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, uuid.New().String(), examID, canonical,
			intOrZero(s.TotalQuestions), intOrZero(s.Correct), intOrZero(s.Wrong),
			intOrZero(s.Blank), floatOrZero(s.NetScore), floatOrZero(s.NetPercentage),
			s.ClassAvg, s.SchoolAvg)
		if err != nil {
			return fmt.Errorf("failed to insert subject result for %s: %w", canonical, err)
		}
	}

	for _, out := range rec.LearningOutcomes {
		_, err := tx.Exec(ctx, `
			INSERT INTO learning_outcomes (id, exam_id, subject_name, category, subcategory,
			                               outcome_description, total_questions, acquired, lost,
			                               success_rate)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, uuid.New().String(), examID, utils.NormalizeSubjectName(out.SubjectName),
			utils.StringPtr(out.Category), utils.StringPtr(out.Subcategory),
			utils.StringPtr(out.OutcomeDescription),
			out.TotalQuestions, out.Acquired, out.Lost, out.SuccessRate)
		if err != nil {
			return fmt.Errorf("failed to insert learning outcome: %w", err)
		}
	}

	for _, q := range rec.Questions {
		_, err := tx.Exec(ctx, `
			INSERT INTO questions (id, exam_id, subject_name, question_number,
			                       correct_answer, student_answer, is_correct, is_blank, is_canceled)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, uuid.New().String(), examID, utils.NormalizeSubjectName(q.SubjectName),
			q.QuestionNumber, utils.StringPtr(q.CorrectAnswer), utils.StringPtr(q.StudentAnswer),
			q.IsCorrect, q.IsBlank, q.IsCanceled)
		if err != nil {
			return fmt.Errorf("failed to insert question: %w", err)
		}
	}
	return nil
}

// Delete removes an exam and its PDF file. Result rows cascade.
func (s *Service) Delete(ctx context.Context, examID string) error {
	var pdfPath *string
	err := s.pool.QueryRow(ctx, `
		DELETE FROM exams WHERE id = $1 RETURNING pdf_path
	`, examID).Scan(&pdfPath)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrExamNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete exam: %w", err)
	}
	removePDF(pdfPath)
	db.LogSystemEvent(s.pool, "api", "exam_deleted", examID, "")
	return nil
}

// CleanupExpired removes pending exams older than the retention window.
// The conditional DELETE is atomic: an exam confirmed between the cutoff
// computation and the sweep is untouched because the status predicate no
// longer matches.
func (s *Service) CleanupExpired(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := time.Now().Add(-retention)
	rows, err := s.pool.Query(ctx, `
		DELETE FROM exams
		WHERE status = $1 AND uploaded_at < $2
		RETURNING id, pdf_path
	`, StatusPendingConfirmation, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup delete failed: %w", err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var (
			id      string
			pdfPath *string
		)
		if err := rows.Scan(&id, &pdfPath); err != nil {
			return count, fmt.Errorf("failed to scan cleanup row: %w", err)
		}
		removePDF(pdfPath)
		logrus.WithField("exam_id", id).Info("removed expired pending exam")
		count++
	}
	if err := rows.Err(); err != nil {
		return count, err
	}
	if count > 0 {
		db.LogSystemEvent(s.pool, "scheduler", "pending_cleanup", "",
			fmt.Sprintf("removed %d expired pending exam(s)", count))
	}
	return count, nil
}

// PendingCount returns how many exams are waiting for confirmation.
func (s *Service) PendingCount(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM exams WHERE status = $1`, StatusPendingConfirmation).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending exams: %w", err)
	}
	return n, nil
}

func removePDF(path *string) {
	if path == nil || *path == "" {
		return
	}
	if err := os.Remove(*path); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).WithField("path", *path).Warn("failed to remove PDF file")
	}
}

// singleSourceReport stands in for a validation report when no Claude
// client is configured and there is nothing to reconcile against.
func singleSourceReport() *validation.Report {
	return &validation.Report{
		Status:       validation.StatusWarning,
		WarningCount: 1,
		TotalIssues:  1,
		Issues: []validation.Issue{{
			Field:    "extraction",
			Severity: validation.SeverityWarning,
			Message:  "Claude extraction is not configured. Only the local parser result can be confirmed.",
		}},
		Summary: "Validation skipped: only one extraction source available.",
	}
}

func marshalNullable(rec *extraction.Record) ([]byte, error) {
	if rec == nil {
		return nil, nil
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}
	return data, nil
}

func intOrZero(f *float64) int {
	if f == nil {
		return 0
	}
	return int(*f + 0.5)
}

func floatOrZero(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

func intOrNil(f *float64) *int {
	if f == nil {
		return nil
	}
	n := int(*f + 0.5)
	return &n
}
