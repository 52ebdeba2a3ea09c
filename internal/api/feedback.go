package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ArjavDesa912/ConstitutionalFlow/internal/analytics"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/annotators"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/models"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/storage"
)

// FeedbackHandler stores human feedback and serves feedback reports.
type FeedbackHandler struct {
	feedback storage.FeedbackStore
	manager  *annotators.Manager
	reports  *analytics.Service
	log      *logrus.Logger
}

// NewFeedbackHandler creates a new feedback handler.
func NewFeedbackHandler(feedback storage.FeedbackStore, manager *annotators.Manager, reports *analytics.Service, log *logrus.Logger) *FeedbackHandler {
	return &FeedbackHandler{feedback: feedback, manager: manager, reports: reports, log: log}
}

// feedbackSubmission is the submit payload. Quality scores are validated,
// never clamped.
type feedbackSubmission struct {
	TaskID          string                 `json:"task_id" binding:"required"`
	OriginalContent string                 `json:"original_content"`
	HumanFeedback   string                 `json:"human_feedback" binding:"required"`
	FeedbackType    string                 `json:"feedback_type"`
	AnnotatorID     string                 `json:"annotator_id"`
	QualityScore    *float64               `json:"quality_score"`
	Metadata        map[string]interface{} `json:"metadata"`
}

func (f *feedbackSubmission) sample() *models.FeedbackSample {
	return &models.FeedbackSample{
		TaskID:          f.TaskID,
		OriginalContent: f.OriginalContent,
		HumanFeedback:   f.HumanFeedback,
		FeedbackType:    f.FeedbackType,
		AnnotatorID:     f.AnnotatorID,
		QualityScore:    f.QualityScore,
		Metadata:        f.Metadata,
	}
}

// SubmitFeedback stores one feedback sample. A scored sample that names its
// annotator also folds the score into that annotator's history; history
// trouble is logged, not surfaced, so the sample itself always lands.
// POST /api/feedback
func (h *FeedbackHandler) SubmitFeedback(c *gin.Context) {
	var req feedbackSubmission
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.QualityScore != nil {
		if err := models.CheckScore01("quality_score", *req.QualityScore); err != nil {
			writeError(c, err)
			return
		}
	}

	sample := req.sample()
	if err := h.feedback.Insert(c.Request.Context(), sample); err != nil {
		writeError(c, err)
		return
	}
	h.recordPerformance(c, sample)

	c.JSON(http.StatusCreated, gin.H{"success": true, "feedback_id": sample.ID})
}

// SubmitFeedbackBatch stores several samples in one call. All scores are
// checked before anything is written.
// POST /api/feedback/batch
func (h *FeedbackHandler) SubmitFeedbackBatch(c *gin.Context) {
	var req struct {
		Samples []feedbackSubmission `json:"samples" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	for i := range req.Samples {
		if req.Samples[i].QualityScore == nil {
			continue
		}
		field := fmt.Sprintf("samples[%d].quality_score", i)
		if err := models.CheckScore01(field, *req.Samples[i].QualityScore); err != nil {
			writeError(c, err)
			return
		}
	}

	ids := make([]int64, 0, len(req.Samples))
	for i := range req.Samples {
		sample := req.Samples[i].sample()
		if err := h.feedback.Insert(c.Request.Context(), sample); err != nil {
			writeError(c, err)
			return
		}
		h.recordPerformance(c, sample)
		ids = append(ids, sample.ID)
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "stored": len(ids), "feedback_ids": ids})
}

// GetFeedback returns one stored sample by its row ID.
// GET /api/feedback/:id
func (h *FeedbackHandler) GetFeedback(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "feedback id must be an integer"})
		return
	}

	sample, err := h.feedback.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "feedback": sample})
}

// FeedbackAnalytics reports feedback volume and quality over a day window.
// GET /api/feedback/analytics
func (h *FeedbackHandler) FeedbackAnalytics(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))

	report, err := h.reports.FeedbackReport(c.Request.Context(), c.Query("annotator_id"), c.Query("feedback_type"), days)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "analytics": report})
}

// recordPerformance folds a scored sample into its annotator's history.
func (h *FeedbackHandler) recordPerformance(c *gin.Context, sample *models.FeedbackSample) {
	if sample.QualityScore == nil || sample.AnnotatorID == "" {
		return
	}
	if err := h.manager.RecordResult(c.Request.Context(), sample.AnnotatorID, sample.QualityScore); err != nil {
		h.log.WithFields(logrus.Fields{
			"annotator_id": sample.AnnotatorID,
			"error":        err,
		}).Warn("Failed to update performance history")
	}
}

// RegisterFeedbackRoutes attaches the feedback routes under /feedback.
func RegisterFeedbackRoutes(r *gin.RouterGroup, h *FeedbackHandler) {
	feedback := r.Group("/feedback")
	{
		feedback.POST("", h.SubmitFeedback)
		feedback.POST("/batch", h.SubmitFeedbackBatch)
		feedback.GET("/analytics", h.FeedbackAnalytics)
		feedback.GET("/:id", h.GetFeedback)
	}
}
