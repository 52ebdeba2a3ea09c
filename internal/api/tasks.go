package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ArjavDesa912/ConstitutionalFlow/internal/analytics"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/models"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/router"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/storage"
)

// TaskHandler serves task creation, routing and reporting.
type TaskHandler struct {
	router  *router.Router
	reports *analytics.Service
	tasks   storage.TaskStore
}

// NewTaskHandler creates a new task handler.
func NewTaskHandler(rt *router.Router, reports *analytics.Service, tasks storage.TaskStore) *TaskHandler {
	return &TaskHandler{router: rt, reports: reports, tasks: tasks}
}

// CreateTask analyzes the content and stores a pending task.
// POST /api/tasks
func (h *TaskHandler) CreateTask(c *gin.Context) {
	var req struct {
		Content       string `json:"content" binding:"required"`
		TaskType      string `json:"task_type" binding:"required"`
		PriorityLevel int    `json:"priority_level"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.PriorityLevel == 0 {
		req.PriorityLevel = 1
	}

	created, err := h.router.CreateTask(c.Request.Context(), req.Content, req.TaskType, req.PriorityLevel)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":             true,
		"task_id":             created.TaskID,
		"complexity_analysis": created.Analysis,
		"task":                created.Task,
	})
}

// GetTask returns one task by its public ID.
// GET /api/tasks/:id
func (h *TaskHandler) GetTask(c *gin.Context) {
	task, err := h.tasks.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "task": task})
}

// AssignTask routes the task to the named annotator, or searches the
// available pool when the body names nobody.
// POST /api/tasks/:id/assign
func (h *TaskHandler) AssignTask(c *gin.Context) {
	var req struct {
		AnnotatorID string `json:"annotator_id"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	taskID := c.Param("id")
	assignment, err := h.router.AssignTask(c.Request.Context(), taskID, req.AnnotatorID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "task_id": taskID, "assignment": assignment})
}

// StartTask moves an assigned task into progress.
// POST /api/tasks/:id/start
func (h *TaskHandler) StartTask(c *gin.Context) {
	if err := h.router.StartTask(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "status": models.TaskStatusInProgress})
}

// CompleteTask finishes the task and records the annotator's feedback.
// POST /api/tasks/:id/complete
func (h *TaskHandler) CompleteTask(c *gin.Context) {
	var req struct {
		Feedback     string   `json:"feedback" binding:"required"`
		QualityScore *float64 `json:"quality_score"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	completion, err := h.router.CompleteTask(c.Request.Context(), c.Param("id"), req.Feedback, req.QualityScore)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"completion_time": completion.CompletionTime,
		"feedback_stored": completion.FeedbackStored,
	})
}

// CancelTask cancels any task that has not already finished.
// POST /api/tasks/:id/cancel
func (h *TaskHandler) CancelTask(c *gin.Context) {
	if err := h.router.CancelTask(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "status": models.TaskStatusCancelled})
}

// TaskQueue lists an annotator's active work, or every pending task.
// GET /api/tasks/queue
func (h *TaskHandler) TaskQueue(c *gin.Context) {
	tasks, err := h.router.TaskQueue(c.Request.Context(), c.Query("annotator_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "tasks": tasks, "count": len(tasks)})
}

// TaskAnalytics reports task throughput over the requested day window.
// GET /api/tasks/analytics
func (h *TaskHandler) TaskAnalytics(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))

	report, err := h.reports.TaskReport(c.Request.Context(), c.Query("annotator_id"), c.Query("task_type"), days)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "analytics": report})
}

// RegisterTaskRoutes attaches the task routes under /tasks.
func RegisterTaskRoutes(r *gin.RouterGroup, h *TaskHandler) {
	tasks := r.Group("/tasks")
	{
		tasks.POST("", h.CreateTask)
		tasks.GET("/queue", h.TaskQueue)
		tasks.GET("/analytics", h.TaskAnalytics)
		tasks.GET("/:id", h.GetTask)
		tasks.POST("/:id/assign", h.AssignTask)
		tasks.POST("/:id/start", h.StartTask)
		tasks.POST("/:id/complete", h.CompleteTask)
		tasks.POST("/:id/cancel", h.CancelTask)
	}
}
