// Package analytics derives windowed statistics over tasks and feedback.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ArjavDesa912/ConstitutionalFlow/internal/models"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/storage"
)

const defaultWindowDays = 30

// DateRange describes the window a report covers.
type DateRange struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Days      int       `json:"days"`
}

// TaskReport summarizes task throughput inside a window.
type TaskReport struct {
	TotalTasks               int            `json:"total_tasks"`
	CompletedTasks           int            `json:"completed_tasks"`
	PendingTasks             int            `json:"pending_tasks"`
	InProgressTasks          int            `json:"in_progress_tasks"`
	CompletionRate           float64        `json:"completion_rate"`
	AverageComplexity        float64        `json:"average_complexity"`
	AverageCompletionMinutes float64        `json:"average_completion_time_minutes"`
	TaskTypeDistribution     map[string]int `json:"task_type_distribution"`
	DateRange                DateRange      `json:"date_range"`
}

// FeedbackReport summarizes feedback volume and quality inside a window.
// AnnotatorAverages is only present when the report is not already filtered
// to one annotator.
type FeedbackReport struct {
	TotalFeedback       int                `json:"total_feedback"`
	ScoredFeedback      int                `json:"feedback_with_quality"`
	AverageQuality      float64            `json:"average_quality"`
	QualityDistribution map[string]int     `json:"quality_distribution"`
	TypeDistribution    map[string]int     `json:"feedback_type_distribution"`
	AnnotatorAverages   map[string]float64 `json:"annotator_performance,omitempty"`
	DateRange           DateRange          `json:"date_range"`
}

// Service computes reports from the task and feedback stores.
type Service struct {
	tasks    storage.TaskStore
	feedback storage.FeedbackStore
	log      *logrus.Logger
	now      func() time.Time
}

func NewService(stores *storage.Stores, log *logrus.Logger) *Service {
	return &Service{
		tasks:    stores.Tasks,
		feedback: stores.Feedback,
		log:      log,
		now:      time.Now,
	}
}

// TaskReport aggregates the tasks created in the last days-long window,
// optionally restricted to one annotator or task type. days <= 0 defaults
// to thirty.
func (s *Service) TaskReport(ctx context.Context, annotatorID, taskType string, days int) (*TaskReport, error) {
	window := s.window(days)

	tasks, err := s.tasks.ListSince(ctx, window.StartDate)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	report := &TaskReport{
		TaskTypeDistribution: make(map[string]int),
		DateRange:            window,
	}

	var complexitySum float64
	var completionMinutes []float64
	for _, task := range tasks {
		if annotatorID != "" && task.AssignedAnnotatorID != annotatorID {
			continue
		}
		if taskType != "" && task.TaskType != taskType {
			continue
		}

		report.TotalTasks++
		report.TaskTypeDistribution[task.TaskType]++
		complexitySum += task.ComplexityScore

		switch task.Status {
		case models.TaskStatusCompleted:
			report.CompletedTasks++
			if task.CompletedAt != nil {
				completionMinutes = append(completionMinutes, task.CompletedAt.Sub(task.CreatedAt).Minutes())
			}
		case models.TaskStatusPending:
			report.PendingTasks++
		case models.TaskStatusInProgress:
			report.InProgressTasks++
		}
	}

	if report.TotalTasks > 0 {
		report.CompletionRate = float64(report.CompletedTasks) / float64(report.TotalTasks)
		report.AverageComplexity = complexitySum / float64(report.TotalTasks)
	}
	report.AverageCompletionMinutes = mean(completionMinutes)
	return report, nil
}

// FeedbackReport aggregates the feedback recorded in the last days-long
// window, optionally restricted to one annotator or feedback type.
// days <= 0 defaults to thirty.
func (s *Service) FeedbackReport(ctx context.Context, annotatorID, feedbackType string, days int) (*FeedbackReport, error) {
	window := s.window(days)

	samples, err := s.feedback.ListSince(ctx, window.StartDate)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}

	report := &FeedbackReport{
		QualityDistribution: map[string]int{"excellent": 0, "good": 0, "fair": 0, "poor": 0},
		TypeDistribution:    make(map[string]int),
		DateRange:           window,
	}

	var scoreSum float64
	perAnnotator := make(map[string][]float64)
	for _, sample := range samples {
		if annotatorID != "" && sample.AnnotatorID != annotatorID {
			continue
		}
		if feedbackType != "" && sample.FeedbackType != feedbackType {
			continue
		}

		report.TotalFeedback++

		kind := sample.FeedbackType
		if kind == "" {
			kind = "unknown"
		}
		report.TypeDistribution[kind]++

		if sample.QualityScore == nil {
			continue
		}
		score := *sample.QualityScore
		report.ScoredFeedback++
		scoreSum += score
		report.QualityDistribution[qualityBucket(score)]++
		if sample.AnnotatorID != "" {
			perAnnotator[sample.AnnotatorID] = append(perAnnotator[sample.AnnotatorID], score)
		}
	}

	if report.ScoredFeedback > 0 {
		report.AverageQuality = scoreSum / float64(report.ScoredFeedback)
	}
	if annotatorID == "" {
		report.AnnotatorAverages = make(map[string]float64, len(perAnnotator))
		for id, scores := range perAnnotator {
			report.AnnotatorAverages[id] = mean(scores)
		}
	}
	return report, nil
}

func (s *Service) window(days int) DateRange {
	if days <= 0 {
		days = defaultWindowDays
	}
	end := s.now().UTC()
	return DateRange{
		StartDate: end.AddDate(0, 0, -days),
		EndDate:   end,
		Days:      days,
	}
}

func qualityBucket(score float64) string {
	switch {
	case score >= 0.9:
		return "excellent"
	case score >= 0.7:
		return "good"
	case score >= 0.5:
		return "fair"
	default:
		return "poor"
	}
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
