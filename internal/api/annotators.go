package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ArjavDesa912/ConstitutionalFlow/internal/annotators"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/models"
)

// defaultListLimit caps an unqualified annotator listing.
const defaultListLimit = 100

// AnnotatorHandler serves the annotator lifecycle.
type AnnotatorHandler struct {
	manager *annotators.Manager
}

// NewAnnotatorHandler creates a new annotator handler.
func NewAnnotatorHandler(m *annotators.Manager) *AnnotatorHandler {
	return &AnnotatorHandler{manager: m}
}

// Register creates a new annotator.
// POST /api/annotators
func (h *AnnotatorHandler) Register(c *gin.Context) {
	var req annotators.Registration
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	annotator, err := h.manager.Register(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "annotator": annotator})
}

// List returns annotators, optionally filtered by availability status.
// GET /api/annotators
func (h *AnnotatorHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultListLimit)))

	list, err := h.manager.List(c.Request.Context(), models.AvailabilityStatus(c.Query("status")), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "annotators": list, "count": len(list)})
}

// Profile returns the stored record plus derived performance data.
// GET /api/annotators/:id
func (h *AnnotatorHandler) Profile(c *gin.Context) {
	profile, err := h.manager.Profile(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "profile": profile})
}

// UpdateAvailability moves an annotator to a new availability status.
// PUT /api/annotators/:id/availability
func (h *AnnotatorHandler) UpdateAvailability(c *gin.Context) {
	var req struct {
		AvailabilityStatus string `json:"availability_status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	annotator, err := h.manager.UpdateAvailability(c.Request.Context(), c.Param("id"), models.AvailabilityStatus(req.AvailabilityStatus))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "annotator": annotator})
}

// UpdateSkills merges new scores into the annotator's skill table.
// PUT /api/annotators/:id/skills
func (h *AnnotatorHandler) UpdateSkills(c *gin.Context) {
	var req struct {
		SkillScores map[string]float64 `json:"skill_scores" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	annotator, err := h.manager.UpdateSkills(c.Request.Context(), c.Param("id"), req.SkillScores)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "annotator": annotator})
}

// Deactivate soft-deletes an annotator by marking it unavailable. The record
// and its history stay queryable.
// DELETE /api/annotators/:id
func (h *AnnotatorHandler) Deactivate(c *gin.Context) {
	annotator, err := h.manager.UpdateAvailability(c.Request.Context(), c.Param("id"), models.AvailabilityUnavailable)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":             true,
		"annotator_id":        annotator.AnnotatorID,
		"availability_status": annotator.AvailabilityStatus,
	})
}

// FindMatches scores available annotators against task requirements. The
// requirement lists arrive as repeated query parameters.
// GET /api/annotators/matching
func (h *AnnotatorHandler) FindMatches(c *gin.Context) {
	req := annotators.Requirements{
		RequiredSkills:    c.QueryArray("required_skills"),
		CulturalContext:   c.Query("cultural_context"),
		RequiredLanguages: c.QueryArray("required_languages"),
	}

	matches, err := h.manager.FindMatches(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "matches": matches, "count": len(matches)})
}

// Analytics returns the derived work view for one annotator, or for all of
// them when no annotator_id is given.
// GET /api/annotators/analytics
func (h *AnnotatorHandler) Analytics(c *gin.Context) {
	if id := c.Query("annotator_id"); id != "" {
		analytics, err := h.manager.Analytics(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "analytics": analytics})
		return
	}

	all, err := h.manager.AnalyticsAll(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "analytics": all, "count": len(all)})
}

// PerformanceReport covers one annotator's work inside a day window.
// GET /api/annotators/:id/performance
func (h *AnnotatorHandler) PerformanceReport(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))

	report, err := h.manager.PerformanceReport(c.Request.Context(), c.Param("id"), days)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "report": report})
}

// RegisterAnnotatorRoutes attaches the annotator routes under /annotators.
func RegisterAnnotatorRoutes(r *gin.RouterGroup, h *AnnotatorHandler) {
	a := r.Group("/annotators")
	{
		a.POST("", h.Register)
		a.GET("", h.List)
		a.GET("/matching", h.FindMatches)
		a.GET("/analytics", h.Analytics)
		a.GET("/:id", h.Profile)
		a.PUT("/:id/availability", h.UpdateAvailability)
		a.PUT("/:id/skills", h.UpdateSkills)
		a.DELETE("/:id", h.Deactivate)
		a.GET("/:id/performance", h.PerformanceReport)
	}
}
