// --- deneme-server/handlers/resource_handlers.go ---
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"deneme-server/curation"
	"deneme-server/models"
)

// CurateResources runs the video curation pipeline for a subject and topic.
func CurateResources(curator *curation.Curator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.CurateResourcesRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "subject_name and topic are required"})
			return
		}
		resources, err := curator.Curate(c.Request.Context(), req.SubjectName, req.Topic, req.MaxResults)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "Curation failed: " + err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"resources": resources})
	}
}

// ListResources returns stored resources filtered by subject and topic.
func ListResources(curator *curation.Curator) gin.HandlerFunc {
	return func(c *gin.Context) {
		resources, err := curator.ListResources(c.Request.Context(), c.Query("subject"), c.Query("topic"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list resources"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"resources": resources})
	}
}

// AttachResources links existing resources to a recommendation.
func AttachResources(curator *curation.Curator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			ResourceIDs []string `json:"resource_ids" binding:"required,min=1"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "resource_ids is required"})
			return
		}
		if err := curator.AttachToRecommendation(c.Request.Context(), c.Param("recommendation_id"), req.ResourceIDs); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to attach resources"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"attached": len(req.ResourceIDs)})
	}
}
