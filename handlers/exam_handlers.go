// --- deneme-server/handlers/exam_handlers.go ---
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"deneme-server/db"
	"deneme-server/exam"
	"deneme-server/models"
)

const maxUploadSize = 20 << 20 // 20 MB

// UploadExam accepts a result PDF, runs both extractions and returns the
// validation report. The exam stays pending until confirmed.
func UploadExam(pool *pgxpool.Pool, svc *exam.Service, storagePath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		studentID := c.PostForm("student_id")
		examName := c.PostForm("exam_name")
		examDateStr := c.PostForm("exam_date")
		if studentID == "" || examName == "" || examDateStr == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "student_id, exam_name and exam_date are required"})
			return
		}
		examDate, err := time.Parse("2006-01-02", examDateStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "exam_date must be YYYY-MM-DD"})
			return
		}

		var exists bool
		if err := pool.QueryRow(c.Request.Context(),
			`SELECT EXISTS (SELECT 1 FROM students WHERE id = $1)`, studentID).Scan(&exists); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify student"})
			return
		}
		if !exists {
			c.JSON(http.StatusNotFound, gin.H{"error": "Student not found"})
			return
		}

		file, err := c.FormFile("pdf")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "A PDF file is required in the 'pdf' form field"})
			return
		}
		if file.Size > maxUploadSize {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "PDF exceeds the 20 MB upload limit"})
			return
		}
		if !strings.EqualFold(filepath.Ext(file.Filename), ".pdf") {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Only PDF files are accepted"})
			return
		}

		pdfPath := filepath.Join(storagePath, fmt.Sprintf("%s.pdf", uuid.New().String()))
		if err := c.SaveUploadedFile(file, pdfPath); err != nil {
			db.LogError(pool, "upload", "", pdfPath, "", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store uploaded file"})
			return
		}

		resp, err := svc.ProcessUpload(c.Request.Context(), studentID, examName, examDate, pdfPath)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Failed to process PDF: " + err.Error()})
			return
		}
		c.JSON(http.StatusCreated, resp)
	}
}

// ConfirmExam materializes the chosen source into result rows.
func ConfirmExam(svc *exam.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ConfirmExamRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "source must be 'claude' or 'local'"})
			return
		}

		err := svc.Confirm(c.Request.Context(), c.Param("exam_id"), req.Source)
		switch {
		case errors.Is(err, exam.ErrExamNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Exam not found"})
		case errors.Is(err, exam.ErrAlreadyConfirmed):
			c.JSON(http.StatusConflict, gin.H{"error": "Exam is already confirmed"})
		case errors.Is(err, exam.ErrSourceMissing):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "The requested source produced no data for this exam"})
		case err != nil:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to confirm exam"})
		default:
			c.JSON(http.StatusOK, gin.H{"exam_id": c.Param("exam_id"), "status": exam.StatusConfirmed, "source": req.Source})
		}
	}
}

// ListExams returns a student's exams, newest first. The status query
// parameter filters by lifecycle state.
func ListExams(pool *pgxpool.Pool) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := `
			SELECT e.id, e.exam_name, e.exam_date, e.status, e.uploaded_at,
			       r.net_score, r.net_percentage,
			       e.validation_report->>'status'
			FROM exams e
			LEFT JOIN exam_results r ON r.exam_id = e.id
			WHERE e.student_id = $1`
		args := []interface{}{c.Param("student_id")}
		if status := c.Query("status"); status != "" {
			args = append(args, status)
			query += fmt.Sprintf(" AND e.status = $%d", len(args))
		}
		query += " ORDER BY e.exam_date DESC, e.uploaded_at DESC"

		rows, err := pool.Query(c.Request.Context(), query, args...)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list exams"})
			return
		}
		defer rows.Close()

		exams := []models.ExamSummary{}
		for rows.Next() {
			var e models.ExamSummary
			if err := rows.Scan(&e.ID, &e.ExamName, &e.ExamDate, &e.Status, &e.UploadedAt,
				&e.NetScore, &e.NetPercentage, &e.ValidationStatus); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read exams"})
				return
			}
			exams = append(exams, e)
		}
		c.JSON(http.StatusOK, gin.H{"exams": exams})
	}
}

// GetExam returns the full exam detail. Pending exams include both raw
// extraction payloads and the validation report so the caller can decide
// which source to confirm.
func GetExam(pool *pgxpool.Pool) gin.HandlerFunc {
	return func(c *gin.Context) {
		examID := c.Param("exam_id")
		ctx := c.Request.Context()

		var (
			detail     models.ExamDetail
			claudeJSON []byte
			localJSON  []byte
			reportJSON []byte
		)
		err := pool.QueryRow(ctx, `
			SELECT id, student_id, exam_name, exam_date, booklet_type, exam_number,
			       status, confirmed_source, uploaded_at, processed_at, confirmed_at,
			       claude_payload, local_payload, validation_report
			FROM exams WHERE id = $1
		`, examID).Scan(&detail.Exam.ID, &detail.Exam.StudentID, &detail.Exam.ExamName,
			&detail.Exam.ExamDate, &detail.Exam.BookletType, &detail.Exam.ExamNumber,
			&detail.Exam.Status, &detail.Exam.ConfirmedSource, &detail.Exam.UploadedAt,
			&detail.Exam.ProcessedAt, &detail.Exam.ConfirmedAt,
			&claudeJSON, &localJSON, &reportJSON)
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Exam not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load exam"})
			return
		}

		detail.ValidationReport = rawJSON(reportJSON)
		if detail.Exam.Status == exam.StatusPendingConfirmation {
			detail.ClaudeData = rawJSON(claudeJSON)
			detail.LocalData = rawJSON(localJSON)
			c.JSON(http.StatusOK, detail)
			return
		}

		var result models.ExamResult
		err = pool.QueryRow(ctx, `
			SELECT id, exam_id, total_questions, total_correct, total_wrong, total_blank,
			       net_score, net_percentage, class_rank, class_total, school_rank,
			       school_total, class_avg, school_avg
			FROM exam_results WHERE exam_id = $1
		`, examID).Scan(&result.ID, &result.ExamID, &result.TotalQuestions,
			&result.TotalCorrect, &result.TotalWrong, &result.TotalBlank,
			&result.NetScore, &result.NetPercentage, &result.ClassRank, &result.ClassTotal,
			&result.SchoolRank, &result.SchoolTotal, &result.ClassAvg, &result.SchoolAvg)
		if err == nil {
			detail.Result = &result
		} else if !errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load exam result"})
			return
		}

		subjRows, err := pool.Query(ctx, `
			SELECT id, exam_id, subject_name, total_questions, correct, wrong, blank,
			       net_score, net_percentage, class_rank, class_avg, school_rank, school_avg
			FROM subject_results WHERE exam_id = $1 ORDER BY subject_name
		`, examID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load subject results"})
			return
		}
		defer subjRows.Close()
		for subjRows.Next() {
			var s models.SubjectResult
			if err := subjRows.Scan(&s.ID, &s.ExamID, &s.SubjectName, &s.TotalQuestions,
				&s.Correct, &s.Wrong, &s.Blank, &s.NetScore, &s.NetPercentage,
				&s.ClassRank, &s.ClassAvg, &s.SchoolRank, &s.SchoolAvg); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read subject results"})
				return
			}
			detail.Subjects = append(detail.Subjects, s)
		}

		outRows, err := pool.Query(ctx, `
			SELECT id, exam_id, subject_name, category, subcategory, outcome_description,
			       total_questions, acquired, lost, success_rate,
			       student_percentage, class_percentage, school_percentage
			FROM learning_outcomes WHERE exam_id = $1 ORDER BY subject_name, category
		`, examID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load learning outcomes"})
			return
		}
		defer outRows.Close()
		for outRows.Next() {
			var o models.LearningOutcome
			if err := outRows.Scan(&o.ID, &o.ExamID, &o.SubjectName, &o.Category,
				&o.Subcategory, &o.OutcomeDescription, &o.TotalQuestions, &o.Acquired,
				&o.Lost, &o.SuccessRate, &o.StudentPercentage, &o.ClassPercentage,
				&o.SchoolPercentage); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read learning outcomes"})
				return
			}
			detail.Outcomes = append(detail.Outcomes, o)
		}

		c.JSON(http.StatusOK, detail)
	}
}

// DeleteExam removes an exam, its result rows and the stored PDF.
func DeleteExam(svc *exam.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := svc.Delete(c.Request.Context(), c.Param("exam_id"))
		if errors.Is(err, exam.ErrExamNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Exam not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete exam"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": c.Param("exam_id")})
	}
}

// rawJSON lets stored JSONB pass through to the response unmodified.
func rawJSON(data []byte) interface{} {
	if len(data) == 0 {
		return nil
	}
	return json.RawMessage(data)
}
