// --- deneme-server/handlers/studyplan_handlers.go ---
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"deneme-server/models"
	"deneme-server/studyplan"
)

// CreateStudyPlan builds a plan from the student's active recommendations.
func CreateStudyPlan(svc *studyplan.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.CreateStudyPlanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
			return
		}
		plan, err := svc.Create(c.Request.Context(), c.Param("student_id"), req)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, plan)
	}
}

// ListStudyPlans returns a student's plans without day detail.
func ListStudyPlans(svc *studyplan.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		plans, err := svc.List(c.Request.Context(), c.Param("student_id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list study plans"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"plans": plans})
	}
}

// GetStudyPlan returns one plan with its full schedule.
func GetStudyPlan(svc *studyplan.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		plan, err := svc.Get(c.Request.Context(), c.Param("plan_id"))
		if errors.Is(err, studyplan.ErrPlanNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Study plan not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load study plan"})
			return
		}
		c.JSON(http.StatusOK, plan)
	}
}

// StudyPlanProgress reports completion against the expected pace.
func StudyPlanProgress(svc *studyplan.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		progress, err := svc.Progress(c.Request.Context(), c.Param("plan_id"))
		if errors.Is(err, studyplan.ErrPlanNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Study plan not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute progress"})
			return
		}
		c.JSON(http.StatusOK, progress)
	}
}

// CompletePlanItem marks one study block done.
func CompletePlanItem(svc *studyplan.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.CompleteItem(c.Request.Context(), c.Param("item_id")); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"completed": c.Param("item_id")})
	}
}

// ArchiveStudyPlan retires a plan.
func ArchiveStudyPlan(svc *studyplan.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := svc.Archive(c.Request.Context(), c.Param("plan_id"))
		if errors.Is(err, studyplan.ErrPlanNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Study plan not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to archive plan"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"archived": c.Param("plan_id")})
	}
}

// DeleteStudyPlan removes a plan entirely.
func DeleteStudyPlan(svc *studyplan.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := svc.Delete(c.Request.Context(), c.Param("plan_id"))
		if errors.Is(err, studyplan.ErrPlanNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Study plan not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete plan"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": c.Param("plan_id")})
	}
}
