// --- deneme-server/handlers/analytics_handlers.go ---
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"deneme-server/analytics"
)

// AnalyticsOverview returns aggregate statistics for a student.
func AnalyticsOverview(pool *pgxpool.Pool) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := analytics.GetOverview(c.Request.Context(), pool, c.Param("student_id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute overview"})
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

// AnalyticsTrends returns the chronological net score series. The limit
// query parameter caps it to the most recent N exams.
func AnalyticsTrends(pool *pgxpool.Pool) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 0
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
				return
			}
			limit = n
		}
		points, err := analytics.GetScoreTrend(c.Request.Context(), pool, c.Param("student_id"), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute trend"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"trend": points})
	}
}

// AnalyticsSubjects returns per-subject averages and trends.
func AnalyticsSubjects(pool *pgxpool.Pool) gin.HandlerFunc {
	return func(c *gin.Context) {
		perf, err := analytics.GetSubjectPerformance(c.Request.Context(), pool, c.Param("student_id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute subject performance"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"subjects":      perf,
			"weak_subjects": analytics.WeakSubjects(perf),
		})
	}
}

// AnalyticsOutcomes returns learning outcome aggregates, optionally for a
// single subject.
func AnalyticsOutcomes(pool *pgxpool.Pool) gin.HandlerFunc {
	return func(c *gin.Context) {
		aggs, err := analytics.GetOutcomeAggregates(c.Request.Context(), pool,
			c.Param("student_id"), c.Query("subject"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute outcome aggregates"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"outcomes": aggs})
	}
}
