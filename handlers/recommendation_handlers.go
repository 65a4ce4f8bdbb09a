// --- deneme-server/handlers/recommendation_handlers.go ---
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"deneme-server/recommend"
)

// ListRecommendations returns a student's recommendations. Pass all=true to
// include completed ones.
func ListRecommendations(svc *recommend.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		activeOnly := c.Query("all") != "true"
		recs, err := svc.List(c.Request.Context(), c.Param("student_id"), activeOnly)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list recommendations"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"recommendations": recs})
	}
}

// RegenerateRecommendations replaces the student's recommendations with a
// fresh set from current performance data.
func RegenerateRecommendations(svc *recommend.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		recs, err := svc.Regenerate(c.Request.Context(), c.Param("student_id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate recommendations: " + err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"recommendations": recs})
	}
}

// CompleteRecommendation marks a recommendation done.
func CompleteRecommendation(svc *recommend.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.MarkCompleted(c.Request.Context(), c.Param("recommendation_id")); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"completed": c.Param("recommendation_id")})
	}
}
