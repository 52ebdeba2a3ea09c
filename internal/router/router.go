// Package router creates annotation tasks, scores annotators against them,
// and drives the task lifecycle.
package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ArjavDesa912/ConstitutionalFlow/internal/config"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/metrics"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/models"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/prompts"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/storage"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/structured"
)

const (
	analysisMaxTokens     = 1000
	analysisTemperature   = 0.3
	predictionMaxTokens   = 1000
	predictionTemperature = 0.2

	// Annotators predicted at or below this quality are never assigned.
	qualityThreshold = 0.5

	defaultEstimatedMinutes = 30
	queueContentLimit       = 200
)

// ErrNoAnnotator is returned when no available annotator clears the quality
// threshold for a task.
var ErrNoAnnotator = errors.New("no suitable annotator available")

// Generator is the slice of the provider gateway the router needs.
type Generator interface {
	GenerateWithFailover(ctx context.Context, req *models.GenerateRequest, order []string) *models.ProviderResponse
}

// CreatedTask is the outcome of CreateTask.
type CreatedTask struct {
	TaskID   string               `json:"task_id"`
	Analysis *models.TaskAnalysis `json:"complexity_analysis"`
	Task     *models.Task         `json:"task"`
}

// Assignment identifies the annotator a task was routed to.
type Assignment struct {
	AnnotatorID      string  `json:"annotator_id"`
	MatchScore       float64 `json:"match_score"`
	PredictedQuality float64 `json:"predicted_quality"`
	Confidence       float64 `json:"confidence"`
}

// Completion reports a finished task.
type Completion struct {
	CompletionTime time.Time `json:"completion_time"`
	FeedbackStored bool      `json:"feedback_stored"`
}

type qualityEstimate struct {
	SkillMatchScore  float64  `json:"skill_match_score"`
	PredictedQuality float64  `json:"predicted_quality"`
	Confidence       float64  `json:"confidence"`
	Risks            []string `json:"risks,omitempty"`
	Recommendations  []string `json:"recommendations,omitempty"`
}

// Router routes annotation tasks to annotators. Complexity analysis and
// annotator scoring go to the configured model providers and degrade to
// deterministic heuristics when those are unreachable.
type Router struct {
	gen        Generator
	tasks      storage.TaskStore
	annotators storage.AnnotatorStore
	feedback   storage.FeedbackStore
	cfg        config.RouterConfig
	log        *logrus.Logger
}

func NewRouter(gen Generator, stores *storage.Stores, cfg config.RouterConfig, log *logrus.Logger) *Router {
	metrics.Init()
	return &Router{
		gen:        gen,
		tasks:      stores.Tasks,
		annotators: stores.Annotators,
		feedback:   stores.Feedback,
		cfg:        cfg,
		log:        log,
	}
}

// CreateTask analyzes the content's complexity and persists a pending task.
func (r *Router) CreateTask(ctx context.Context, content, taskType string, priority int) (*CreatedTask, error) {
	taskID := generateTaskID()
	analysis := r.analyzeComplexity(ctx, content, taskType)

	task := &models.Task{
		TaskID:          taskID,
		Content:         content,
		TaskType:        taskType,
		ComplexityScore: analysis.ComplexityScore,
		EstimatedTime:   analysis.EstimatedTimeMinutes,
		PriorityLevel:   priority,
		Status:          models.TaskStatusPending,
	}
	if err := r.tasks.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	metrics.TaskEvents.WithLabelValues("created").Inc()
	r.log.WithFields(logrus.Fields{
		"task_id":    taskID,
		"complexity": analysis.ComplexityScore,
		"source":     analysis.Source,
	}).Info("Task created")

	return &CreatedTask{TaskID: taskID, Analysis: analysis, Task: task}, nil
}

// AssignTask routes a task to the named annotator, or searches the available
// pool for the best match when annotatorID is empty. The status flip is a
// compare-and-set so two racing assigners cannot both win.
func (r *Router) AssignTask(ctx context.Context, taskID, annotatorID string) (*Assignment, error) {
	task, err := r.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	var assignment *Assignment
	if annotatorID != "" {
		assignment, err = r.directAssignment(ctx, annotatorID)
	} else {
		assignment, err = r.bestAssignment(ctx, task)
	}
	if err != nil {
		return nil, err
	}

	if err := r.tasks.TransitionStatus(ctx, taskID, models.TaskStatusPending, models.TaskStatusAssigned, assignment.AnnotatorID); err != nil {
		return nil, err
	}

	metrics.TaskEvents.WithLabelValues("assigned").Inc()
	r.log.WithFields(logrus.Fields{
		"task_id":      taskID,
		"annotator_id": assignment.AnnotatorID,
		"match_score":  assignment.MatchScore,
	}).Info("Task assigned")

	return assignment, nil
}

func (r *Router) directAssignment(ctx context.Context, annotatorID string) (*Assignment, error) {
	annotator, err := r.annotators.Get(ctx, annotatorID)
	if err != nil {
		return nil, err
	}
	if annotator.AvailabilityStatus != models.AvailabilityAvailable {
		return nil, fmt.Errorf("annotator %s not available: %w", annotatorID, storage.ErrNotFound)
	}
	return &Assignment{
		AnnotatorID:      annotatorID,
		MatchScore:       1.0,
		PredictedQuality: 0.8,
		Confidence:       1.0,
	}, nil
}

func (r *Router) bestAssignment(ctx context.Context, task *models.Task) (*Assignment, error) {
	available, err := r.annotators.ListAvailable(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list annotators: %w", err)
	}
	if len(available) == 0 {
		return nil, ErrNoAnnotator
	}

	var best *Assignment
	for i := range available {
		estimate := r.predictQuality(ctx, &available[i], task)
		if estimate.PredictedQuality <= qualityThreshold {
			continue
		}
		if best == nil || estimate.SkillMatchScore > best.MatchScore {
			best = &Assignment{
				AnnotatorID:      available[i].AnnotatorID,
				MatchScore:       estimate.SkillMatchScore,
				PredictedQuality: estimate.PredictedQuality,
				Confidence:       estimate.Confidence,
			}
		}
	}
	if best == nil {
		return nil, ErrNoAnnotator
	}
	return best, nil
}

// predictQuality asks the prediction providers to score the annotator for
// the task, falling back to a skill-table heuristic.
func (r *Router) predictQuality(ctx context.Context, annotator *models.Annotator, task *models.Task) qualityEstimate {
	resp := r.gen.GenerateWithFailover(ctx, &models.GenerateRequest{
		Prompt:      prompts.QualityPrediction(annotator, task),
		MaxTokens:   predictionMaxTokens,
		Temperature: predictionTemperature,
	}, r.cfg.PredictionProviders)
	if !resp.Success {
		return heuristicEstimate(annotator, task)
	}

	var estimate qualityEstimate
	if err := structured.DecodeInto(resp.Content, &estimate); err != nil {
		return heuristicEstimate(annotator, task)
	}
	estimate.SkillMatchScore = clamp01(estimate.SkillMatchScore)
	estimate.PredictedQuality = clamp01(estimate.PredictedQuality)
	estimate.Confidence = clamp01(estimate.Confidence)
	return estimate
}

func heuristicEstimate(annotator *models.Annotator, task *models.Task) qualityEstimate {
	skillMatch, ok := annotator.SkillScores[task.TaskType]
	if !ok {
		skillMatch = 0.5
	}
	if task.ComplexityScore > 0.8 && skillMatch < 0.7 {
		skillMatch *= 0.8
	}

	predicted := skillMatch*0.8 + 0.2
	if predicted > 1.0 {
		predicted = 1.0
	}
	return qualityEstimate{
		SkillMatchScore:  skillMatch,
		PredictedQuality: predicted,
		Confidence:       0.6,
	}
}

// StartTask moves an assigned task into progress. Only the assigned state
// can start; anything else is a conflict.
func (r *Router) StartTask(ctx context.Context, taskID string) error {
	if err := r.tasks.TransitionStatus(ctx, taskID, models.TaskStatusAssigned, models.TaskStatusInProgress, ""); err != nil {
		return err
	}

	metrics.TaskEvents.WithLabelValues("started").Inc()
	r.log.WithField("task_id", taskID).Info("Task started")
	return nil
}

// TaskQueue returns the annotator's open tasks, or every pending task when
// annotatorID is empty. Content is trimmed for listing.
func (r *Router) TaskQueue(ctx context.Context, annotatorID string) ([]models.Task, error) {
	var tasks []models.Task
	var err error
	if annotatorID != "" {
		tasks, err = r.tasks.ListByAnnotator(ctx, annotatorID, []models.TaskStatus{
			models.TaskStatusAssigned, models.TaskStatusInProgress,
		})
	} else {
		tasks, err = r.tasks.ListByStatus(ctx, models.TaskStatusPending)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task queue: %w", err)
	}

	for i := range tasks {
		if len(tasks[i].Content) > queueContentLimit {
			tasks[i].Content = tasks[i].Content[:queueContentLimit] + "..."
		}
	}
	return tasks, nil
}

// CompleteTask marks the task completed and records the annotator's feedback
// as a sample for principle evolution. Completing an already-completed task
// restamps its completion time.
func (r *Router) CompleteTask(ctx context.Context, taskID, feedback string, qualityScore *float64) (*Completion, error) {
	if qualityScore != nil {
		if err := models.CheckScore01("quality_score", *qualityScore); err != nil {
			return nil, err
		}
	}

	task, err := r.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !task.Status.CanTransitionTo(models.TaskStatusCompleted) {
		return nil, fmt.Errorf("task %s is %s: %w", taskID, task.Status, storage.ErrConflict)
	}

	completedAt := time.Now().UTC()
	if err := r.tasks.SetCompleted(ctx, taskID, completedAt); err != nil {
		return nil, err
	}

	sample := &models.FeedbackSample{
		TaskID:          taskID,
		OriginalContent: task.Content,
		HumanFeedback:   feedback,
		FeedbackType:    "completion",
		AnnotatorID:     task.AssignedAnnotatorID,
		QualityScore:    qualityScore,
		Metadata: map[string]interface{}{
			"task_type":        task.TaskType,
			"complexity_score": task.ComplexityScore,
			"completion_time":  completedAt.Format(time.RFC3339),
		},
	}
	if err := r.feedback.Insert(ctx, sample); err != nil {
		return nil, fmt.Errorf("failed to store feedback: %w", err)
	}

	metrics.TaskEvents.WithLabelValues("completed").Inc()
	r.log.WithField("task_id", taskID).Info("Task completed")

	return &Completion{CompletionTime: completedAt, FeedbackStored: true}, nil
}

// CancelTask cancels any task that has not already finished.
func (r *Router) CancelTask(ctx context.Context, taskID string) error {
	task, err := r.tasks.Get(ctx, taskID)
	if err != nil {
		return err
	}
	if task.Status.IsTerminal() {
		return fmt.Errorf("task %s is %s: %w", taskID, task.Status, storage.ErrConflict)
	}

	if err := r.tasks.TransitionStatus(ctx, taskID, task.Status, models.TaskStatusCancelled, ""); err != nil {
		return err
	}

	metrics.TaskEvents.WithLabelValues("cancelled").Inc()
	r.log.WithField("task_id", taskID).Info("Task cancelled")
	return nil
}

// analyzeComplexity asks the analysis providers for a structured complexity
// read on the content, degrading to the length heuristic.
func (r *Router) analyzeComplexity(ctx context.Context, content, taskType string) *models.TaskAnalysis {
	resp := r.gen.GenerateWithFailover(ctx, &models.GenerateRequest{
		Prompt:      prompts.TaskComplexityAnalysis(content),
		MaxTokens:   analysisMaxTokens,
		Temperature: analysisTemperature,
	}, r.cfg.AnalysisProviders)
	if !resp.Success {
		return heuristicAnalysis(content, taskType, "analysis providers unavailable")
	}

	var analysis models.TaskAnalysis
	if err := structured.DecodeInto(resp.Content, &analysis); err != nil {
		return heuristicAnalysis(content, taskType, "analysis response unparseable")
	}

	// Models answer on a 1-10 scale; stored scores are 0-1.
	if analysis.ComplexityScore > 1 {
		analysis.ComplexityScore /= 10
	}
	analysis.ComplexityScore = clamp01(analysis.ComplexityScore)
	analysis.Confidence = clamp01(analysis.Confidence)
	if analysis.EstimatedTimeMinutes <= 0 {
		analysis.EstimatedTimeMinutes = defaultEstimatedMinutes
	}
	analysis.Source = models.SourceModel
	return &analysis
}

func heuristicAnalysis(content, taskType, reason string) *models.TaskAnalysis {
	complexity := complexityScore(content)

	expertise := "beginner"
	if complexity > 0.5 {
		expertise = "intermediate"
	}

	return &models.TaskAnalysis{
		ComplexityScore:      complexity,
		ExpertiseLevel:       expertise,
		EstimatedTimeMinutes: estimateMinutes(content, taskType),
		RequiredSkills:       []string{taskType},
		Confidence:           0.5,
		Source:               models.SourceHeuristic,
		FallbackReason:       reason,
	}
}

// complexityScore blends content length, average word length and sentence
// count into a 0-1 score.
func complexityScore(text string) float64 {
	if text == "" {
		return 0.0
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return 0.0
	}

	totalLen := 0
	for _, w := range words {
		totalLen += len(w)
	}
	avgWordLength := float64(totalLen) / float64(len(words))

	sentences := 0
	for _, s := range strings.Split(text, ".") {
		if strings.TrimSpace(s) != "" {
			sentences++
		}
	}

	lengthFactor := capAt1(float64(len(text)) / 1000)
	wordLengthFactor := capAt1(avgWordLength / 10)
	sentenceFactor := capAt1(float64(sentences) / 10)

	return capAt1(lengthFactor*0.3 + wordLengthFactor*0.4 + sentenceFactor*0.3)
}

var typeTimeMultipliers = map[string]float64{
	"sentiment":      0.8,
	"classification": 1.0,
	"translation":    1.5,
	"summarization":  1.2,
	"qa":             1.3,
}

func estimateMinutes(content, taskType string) int {
	multiplier, ok := typeTimeMultipliers[taskType]
	if !ok {
		multiplier = 1.0
	}
	words := len(strings.Fields(content))
	return int(float64(words) * 0.1 * multiplier)
}

func generateTaskID() string {
	return fmt.Sprintf("task_%s", uuid.New().String()[:8])
}

func capAt1(v float64) float64 {
	if v > 1.0 {
		return 1.0
	}
	return v
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
