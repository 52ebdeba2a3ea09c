package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ArjavDesa912/ConstitutionalFlow/internal/consensus"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/evolution"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/models"
)

// defaultEvolveFeedbackCount is the batch size when an evolve request does
// not name one.
const defaultEvolveFeedbackCount = 50

// ConstitutionalHandler serves consensus validation and principle evolution.
// Engine failures surface as 200 responses with success=false in the body;
// the engines never hard-fail on provider trouble.
type ConstitutionalHandler struct {
	consensus *consensus.Engine
	evolution *evolution.Engine
}

// NewConstitutionalHandler creates a new constitutional handler.
func NewConstitutionalHandler(ce *consensus.Engine, ee *evolution.Engine) *ConstitutionalHandler {
	return &ConstitutionalHandler{consensus: ce, evolution: ee}
}

// AnalyzeFeedback extracts candidate principles from a feedback batch.
// POST /api/feedback/analyze
func (h *ConstitutionalHandler) AnalyzeFeedback(c *gin.Context) {
	var req struct {
		Samples []models.FeedbackSample `json:"samples" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, h.evolution.AnalyzeFeedbackBatch(c.Request.Context(), req.Samples))
}

// EvolvePrinciples runs one evolution cycle over recent feedback.
// POST /api/principles/evolve
func (h *ConstitutionalHandler) EvolvePrinciples(c *gin.Context) {
	var req struct {
		FeedbackCount int `json:"feedback_count"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if req.FeedbackCount <= 0 {
		req.FeedbackCount = defaultEvolveFeedbackCount
	}

	c.JSON(http.StatusOK, h.evolution.EvolvePrinciples(c.Request.Context(), req.FeedbackCount))
}

// ListPrinciples returns the active principle set, highest confidence first.
// GET /api/principles
func (h *ConstitutionalHandler) ListPrinciples(c *gin.Context) {
	principles := h.evolution.HistoricalPrinciples(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"success": true, "principles": principles, "count": len(principles)})
}

// RankPrinciples orders the submitted principles by composite score.
// POST /api/principles/rank
func (h *ConstitutionalHandler) RankPrinciples(c *gin.Context) {
	var req struct {
		Principles []models.Principle `json:"principles" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ranked := h.consensus.RankPrinciples(req.Principles)
	c.JSON(http.StatusOK, gin.H{"success": true, "ranked_principles": ranked, "count": len(ranked)})
}

// ValidateConsensus judges agreement among provider responses.
// POST /api/consensus/validate
func (h *ConstitutionalHandler) ValidateConsensus(c *gin.Context) {
	var req struct {
		Responses []*models.ProviderResponse `json:"responses" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := h.consensus.ValidateConsensus(c.Request.Context(), req.Responses)
	c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
}

// WeightedVote counts provider votes, with optional per-provider weights.
// POST /api/consensus/vote
func (h *ConstitutionalHandler) WeightedVote(c *gin.Context) {
	var req struct {
		Responses []*models.ProviderResponse `json:"responses" binding:"required"`
		Weights   map[string]float64         `json:"weights"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := h.consensus.WeightedVoting(req.Responses, req.Weights)
	c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
}

// ResolveConflict picks a resolution strategy for disagreeing responses.
// POST /api/consensus/conflict
func (h *ConstitutionalHandler) ResolveConflict(c *gin.Context) {
	var req struct {
		Responses []*models.ProviderResponse `json:"responses" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resolution := h.consensus.ResolveConflict(req.Responses)
	c.JSON(http.StatusOK, gin.H{"success": true, "result": resolution})
}

// RegisterConstitutionalRoutes attaches the consensus and principle routes.
func RegisterConstitutionalRoutes(r *gin.RouterGroup, h *ConstitutionalHandler) {
	cons := r.Group("/consensus")
	{
		cons.POST("/validate", h.ValidateConsensus)
		cons.POST("/vote", h.WeightedVote)
		cons.POST("/conflict", h.ResolveConflict)
	}
	principles := r.Group("/principles")
	{
		principles.GET("", h.ListPrinciples)
		principles.POST("/evolve", h.EvolvePrinciples)
		principles.POST("/rank", h.RankPrinciples)
	}
	r.POST("/feedback/analyze", h.AnalyzeFeedback)
}
