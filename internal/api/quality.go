package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ArjavDesa912/ConstitutionalFlow/internal/quality"
)

// QualityHandler serves quality predictions.
type QualityHandler struct {
	predictor *quality.Predictor
}

// NewQualityHandler creates a new quality handler.
func NewQualityHandler(p *quality.Predictor) *QualityHandler {
	return &QualityHandler{predictor: p}
}

// PredictQuality predicts how well an annotator will do on a task.
// POST /api/quality/predict
func (h *QualityHandler) PredictQuality(c *gin.Context) {
	var req struct {
		TaskID      string `json:"task_id" binding:"required"`
		AnnotatorID string `json:"annotator_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	prediction, err := h.predictor.PredictPair(c.Request.Context(), req.TaskID, req.AnnotatorID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"trained":    h.predictor.Trained(),
		"prediction": prediction,
	})
}

// Retrain refits the model from current feedback. Too little scored history
// leaves the predictor on the rule-based path, reported in the response.
// POST /api/quality/retrain
func (h *QualityHandler) Retrain(c *gin.Context) {
	if err := h.predictor.Retrain(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "trained": h.predictor.Trained()})
}

// RegisterQualityRoutes attaches the quality routes under /quality.
func RegisterQualityRoutes(r *gin.RouterGroup, h *QualityHandler) {
	q := r.Group("/quality")
	{
		q.POST("/predict", h.PredictQuality)
		q.POST("/retrain", h.Retrain)
	}
}
