// --- deneme-server/handlers/admin_handlers.go ---
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// AdminDashboard renders the operational overview page.
func AdminDashboard(pool *pgxpool.Pool) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var totalStudents, totalExams, pendingExams, failedValidations int
		if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM students`).Scan(&totalStudents); err != nil {
			logrus.WithError(err).Error("failed to count students")
		}
		if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM exams WHERE status = 'confirmed'`).Scan(&totalExams); err != nil {
			logrus.WithError(err).Error("failed to count exams")
		}
		if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM exams WHERE status = 'pending_confirmation'`).Scan(&pendingExams); err != nil {
			logrus.WithError(err).Error("failed to count pending exams")
		}
		if err := pool.QueryRow(ctx, `
			SELECT COUNT(*) FROM exams WHERE validation_report->>'status' = 'failed'
		`).Scan(&failedValidations); err != nil {
			logrus.WithError(err).Error("failed to count failed validations")
		}

		type eventRow struct {
			Timestamp time.Time
			Action    string
			Actor     string
			Target    string
		}
		events := []eventRow{}
		rows, err := pool.Query(ctx, `
			SELECT timestamp, COALESCE(action, ''), COALESCE(actor, ''), COALESCE(target, '')
			FROM system_events ORDER BY timestamp DESC LIMIT 15
		`)
		if err == nil {
			defer rows.Close()
			for rows.Next() {
				var e eventRow
				if err := rows.Scan(&e.Timestamp, &e.Action, &e.Actor, &e.Target); err == nil {
					events = append(events, e)
				}
			}
		} else {
			logrus.WithError(err).Error("failed to fetch recent events")
		}

		c.HTML(http.StatusOK, "admin_dashboard", gin.H{
			"Title":             "Deneme Analiz Dashboard",
			"TotalStudents":     totalStudents,
			"TotalExams":        totalExams,
			"PendingExams":      pendingExams,
			"FailedValidations": failedValidations,
			"RecentEvents":      events,
		})
	}
}

// AdminPendingExams renders the review queue of unconfirmed uploads.
func AdminPendingExams(pool *pgxpool.Pool) gin.HandlerFunc {
	return func(c *gin.Context) {
		type pendingRow struct {
			ExamID           string
			StudentName      string
			ExamName         string
			UploadedAt       time.Time
			ValidationStatus string
			ErrorCount       int
			WarningCount     int
		}

		rows, err := pool.Query(c.Request.Context(), `
			SELECT e.id, s.name, e.exam_name, e.uploaded_at,
			       COALESCE(e.validation_report->>'status', 'unknown'),
			       COALESCE((e.validation_report->>'error_count')::int, 0),
			       COALESCE((e.validation_report->>'warning_count')::int, 0)
			FROM exams e
			JOIN students s ON s.id = e.student_id
			WHERE e.status = 'pending_confirmation'
			ORDER BY e.uploaded_at ASC
		`)
		if err != nil {
			logrus.WithError(err).Error("failed to query pending exams")
			c.HTML(http.StatusInternalServerError, "admin_pending", gin.H{"error": "Failed to retrieve pending exams"})
			return
		}
		defer rows.Close()

		pending := []pendingRow{}
		for rows.Next() {
			var p pendingRow
			if err := rows.Scan(&p.ExamID, &p.StudentName, &p.ExamName, &p.UploadedAt,
				&p.ValidationStatus, &p.ErrorCount, &p.WarningCount); err != nil {
				logrus.WithError(err).Error("failed to scan pending exam row")
				c.HTML(http.StatusInternalServerError, "admin_pending", gin.H{"error": "Failed to process pending exams"})
				return
			}
			pending = append(pending, p)
		}

		c.HTML(http.StatusOK, "admin_pending", gin.H{
			"Title":   "Pending Confirmations",
			"Pending": pending,
		})
	}
}

// AdminErrorLogs returns recent extraction and processing errors as JSON.
func AdminErrorLogs(pool *pgxpool.Pool) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := pool.Query(c.Request.Context(), `
			SELECT id, timestamp, source, exam_id, file_path, field_name, error_message
			FROM error_logs ORDER BY timestamp DESC LIMIT 200
		`)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve error logs"})
			return
		}
		defer rows.Close()

		type logEntry struct {
			ID           int       `json:"id"`
			Timestamp    time.Time `json:"timestamp"`
			Source       string    `json:"source"`
			ExamID       *string   `json:"exam_id,omitempty"`
			FilePath     *string   `json:"file_path,omitempty"`
			FieldName    *string   `json:"field_name,omitempty"`
			ErrorMessage string    `json:"error_message"`
		}
		logs := []logEntry{}
		for rows.Next() {
			var l logEntry
			if err := rows.Scan(&l.ID, &l.Timestamp, &l.Source, &l.ExamID, &l.FilePath,
				&l.FieldName, &l.ErrorMessage); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process error logs"})
				return
			}
			logs = append(logs, l)
		}
		c.JSON(http.StatusOK, gin.H{"error_logs": logs})
	}
}

// AdminSystemEvents returns the audit trail as JSON.
func AdminSystemEvents(pool *pgxpool.Pool) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := pool.Query(c.Request.Context(), `
			SELECT id, timestamp, COALESCE(action, ''), COALESCE(actor, ''),
			       COALESCE(target, ''), COALESCE(notes, '')
			FROM system_events ORDER BY timestamp DESC LIMIT 200
		`)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve system events"})
			return
		}
		defer rows.Close()

		type event struct {
			ID        int       `json:"id"`
			Timestamp time.Time `json:"timestamp"`
			Action    string    `json:"action"`
			Actor     string    `json:"actor"`
			Target    string    `json:"target"`
			Notes     string    `json:"notes"`
		}
		events := []event{}
		for rows.Next() {
			var e event
			if err := rows.Scan(&e.ID, &e.Timestamp, &e.Action, &e.Actor, &e.Target, &e.Notes); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process system events"})
				return
			}
			events = append(events, e)
		}
		c.JSON(http.StatusOK, gin.H{"events": events})
	}
}
