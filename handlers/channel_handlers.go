// --- deneme-server/handlers/channel_handlers.go ---
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"deneme-server/curation"
	"deneme-server/models"
)

// ListChannels returns the trusted channel pool, optionally filtered by
// subject. Pass all=true to include deactivated channels.
func ListChannels(mgr *curation.ChannelManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		channels, err := mgr.List(c.Request.Context(), c.Query("subject"), c.Query("all") != "true")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list channels"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"channels": channels})
	}
}

// DiscoverChannels searches YouTube for teaching channels per subject.
func DiscoverChannels(mgr *curation.ChannelManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.DiscoverChannelsRequest
		if err := c.ShouldBindJSON(&req); err != nil || len(req.Subjects) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "subjects is required"})
			return
		}
		added, err := mgr.DiscoverChannels(c.Request.Context(), req.Subjects, int64(req.PerQuery))
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "Discovery failed: " + err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"added": added})
	}
}

// AddChannel registers a channel manually by its YouTube channel ID.
func AddChannel(mgr *curation.ChannelManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.AddChannelRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "channel_id and subject_name are required"})
			return
		}
		channel, err := mgr.AddManual(c.Request.Context(), req.ChannelID, req.SubjectName, req.TrustScore, req.Notes)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to add channel: " + err.Error()})
			return
		}
		c.JSON(http.StatusCreated, channel)
	}
}

// DeactivateChannel removes a channel from curation.
func DeactivateChannel(mgr *curation.ChannelManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := mgr.Deactivate(c.Request.Context(), c.Param("channel_id")); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"deactivated": c.Param("channel_id")})
	}
}

// RefreshChannels re-reads statistics for all active channels.
func RefreshChannels(mgr *curation.ChannelManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := mgr.RefreshStats(c.Request.Context()); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to refresh channels: " + err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"refreshed": true})
	}
}
