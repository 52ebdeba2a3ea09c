// Package annotators manages annotator registration, skills, availability
// and performance tracking.
package annotators

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ArjavDesa912/ConstitutionalFlow/internal/models"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/storage"
)

const (
	// matchThreshold is the minimum weighted score for FindMatches hits.
	matchThreshold = 0.5

	// recentScoreWindow bounds the rolling performance history.
	recentScoreWindow = 20

	trendWindow     = 5
	trendDelta      = 0.1
	recentTaskDays  = 30
	recentTaskLimit = 10

	skillWeight       = 0.4
	culturalWeight    = 0.3
	languageWeight    = 0.2
	performanceWeight = 0.1
)

// Quality trend labels reported in performance metrics.
const (
	TrendImproving        = "improving"
	TrendDeclining        = "declining"
	TrendStable           = "stable"
	TrendInsufficientData = "insufficient_data"
)

var allTaskStatuses = []models.TaskStatus{
	models.TaskStatusPending,
	models.TaskStatusAssigned,
	models.TaskStatusInProgress,
	models.TaskStatusCompleted,
	models.TaskStatusCancelled,
}

// Registration is the payload for Register.
type Registration struct {
	AnnotatorID        string             `json:"annotator_id"`
	SkillScores        map[string]float64 `json:"skill_scores"`
	CulturalBackground string             `json:"cultural_background"`
	Languages          []string           `json:"languages"`
}

// PerformanceMetrics summarizes an annotator's scored feedback history.
type PerformanceMetrics struct {
	TotalTasks     int       `json:"total_tasks"`
	AverageQuality float64   `json:"average_quality"`
	QualityTrend   string    `json:"quality_trend"`
	CompletionRate float64   `json:"completion_rate"`
	RecentScores   []float64 `json:"recent_performance,omitempty"`
}

// RecentTask is one row of an annotator's recent completion history.
type RecentTask struct {
	TaskID          string    `json:"task_id"`
	TaskType        string    `json:"task_type"`
	ComplexityScore float64   `json:"complexity_score"`
	CompletedAt     time.Time `json:"completed_at"`
	EstimatedTime   int       `json:"estimated_time"`
}

// Profile is the full annotator view: the stored record plus derived
// performance data.
type Profile struct {
	models.Annotator
	RecentTasks []RecentTask       `json:"recent_tasks"`
	Metrics     PerformanceMetrics `json:"performance_metrics"`
}

// Requirements describe a task when searching for matching annotators.
type Requirements struct {
	RequiredSkills    []string `json:"required_skills"`
	CulturalContext   string   `json:"cultural_context"`
	RequiredLanguages []string `json:"required_languages"`
}

// Match is one annotator candidate scored against Requirements.
type Match struct {
	AnnotatorID        string                    `json:"annotator_id"`
	MatchScore         float64                   `json:"match_score"`
	SkillScores        map[string]float64        `json:"skill_scores"`
	CulturalBackground string                    `json:"cultural_background"`
	Languages          []string                  `json:"languages"`
	Performance        models.PerformanceHistory `json:"performance_history"`
}

// SkillUtilization reports how much a recorded skill is exercised by
// completed work.
type SkillUtilization struct {
	Score           float64 `json:"score"`
	TasksCompleted  int     `json:"tasks_completed"`
	UtilizationRate float64 `json:"utilization_rate"`
}

// Analytics is the derived view of one annotator's work.
type Analytics struct {
	AnnotatorID          string                      `json:"annotator_id"`
	Metrics              PerformanceMetrics          `json:"performance_metrics"`
	TaskTypeDistribution map[string]int              `json:"task_type_distribution"`
	SkillUtilization     map[string]SkillUtilization `json:"skill_utilization"`
	AvailabilityStatus   models.AvailabilityStatus   `json:"availability_status"`
	CulturalBackground   string                      `json:"cultural_background"`
	Languages            []string                    `json:"languages"`
}

// TypePerformance breaks a performance report down by task type.
type TypePerformance struct {
	Total          int     `json:"total"`
	Completed      int     `json:"completed"`
	AverageQuality float64 `json:"avg_quality"`
}

// PerformanceReport covers an annotator's work inside a day window.
type PerformanceReport struct {
	AnnotatorID     string                     `json:"annotator_id"`
	Days            int                        `json:"days"`
	TotalTasks      int                        `json:"total_tasks"`
	CompletedTasks  int                        `json:"completed_tasks"`
	PendingTasks    int                        `json:"pending_tasks"`
	InProgressTasks int                        `json:"in_progress_tasks"`
	CompletionRate  float64                    `json:"completion_rate"`
	AverageQuality  float64                    `json:"average_quality"`
	TypePerformance map[string]TypePerformance `json:"task_type_performance"`
}

// Manager owns the annotator lifecycle and performance bookkeeping.
type Manager struct {
	annotators storage.AnnotatorStore
	tasks      storage.TaskStore
	feedback   storage.FeedbackStore
	log        *logrus.Logger
	now        func() time.Time
}

func NewManager(stores *storage.Stores, log *logrus.Logger) *Manager {
	return &Manager{
		annotators: stores.Annotators,
		tasks:      stores.Tasks,
		feedback:   stores.Feedback,
		log:        log,
		now:        time.Now,
	}
}

// Register stores a new annotator with an empty performance history and
// available status. A taken ID is a conflict, not an overwrite.
func (m *Manager) Register(ctx context.Context, reg Registration) (*models.Annotator, error) {
	if strings.TrimSpace(reg.AnnotatorID) == "" {
		return nil, models.NewValidationError("annotator_id", "must not be empty")
	}
	if err := checkSkillScores(reg.SkillScores); err != nil {
		return nil, err
	}

	skills := reg.SkillScores
	if skills == nil {
		skills = make(map[string]float64)
	}
	annotator := &models.Annotator{
		AnnotatorID:        reg.AnnotatorID,
		SkillScores:        skills,
		Performance:        models.PerformanceHistory{},
		CulturalBackground: reg.CulturalBackground,
		Languages:          reg.Languages,
		AvailabilityStatus: models.AvailabilityAvailable,
	}
	if err := m.annotators.Insert(ctx, annotator); err != nil {
		return nil, fmt.Errorf("failed to register annotator: %w", err)
	}

	m.log.WithField("annotator_id", annotator.AnnotatorID).Info("Annotator registered")
	return annotator, nil
}

// Profile returns the stored annotator together with their completions from
// the last thirty days and derived performance metrics.
func (m *Manager) Profile(ctx context.Context, annotatorID string) (*Profile, error) {
	annotator, err := m.annotators.Get(ctx, annotatorID)
	if err != nil {
		return nil, err
	}

	recent, err := m.recentTasks(ctx, annotatorID)
	if err != nil {
		return nil, err
	}
	metrics, err := m.performanceMetrics(ctx, annotatorID)
	if err != nil {
		return nil, err
	}

	return &Profile{Annotator: *annotator, RecentTasks: recent, Metrics: metrics}, nil
}

func (m *Manager) recentTasks(ctx context.Context, annotatorID string) ([]RecentTask, error) {
	completed, err := m.tasks.ListByAnnotator(ctx, annotatorID, []models.TaskStatus{models.TaskStatusCompleted})
	if err != nil {
		return nil, fmt.Errorf("failed to list completed tasks: %w", err)
	}

	cutoff := m.now().UTC().AddDate(0, 0, -recentTaskDays)
	recent := make([]RecentTask, 0, recentTaskLimit)
	for _, task := range completed {
		if task.CompletedAt == nil || task.CompletedAt.Before(cutoff) {
			continue
		}
		recent = append(recent, RecentTask{
			TaskID:          task.TaskID,
			TaskType:        task.TaskType,
			ComplexityScore: task.ComplexityScore,
			CompletedAt:     *task.CompletedAt,
			EstimatedTime:   task.EstimatedTime,
		})
	}
	sort.Slice(recent, func(i, j int) bool { return recent[i].CompletedAt.After(recent[j].CompletedAt) })
	if len(recent) > recentTaskLimit {
		recent = recent[:recentTaskLimit]
	}
	return recent, nil
}

func (m *Manager) performanceMetrics(ctx context.Context, annotatorID string) (PerformanceMetrics, error) {
	samples, err := m.feedback.ListScoredByAnnotator(ctx, annotatorID)
	if err != nil {
		return PerformanceMetrics{}, fmt.Errorf("failed to list scored feedback: %w", err)
	}
	if len(samples) == 0 {
		return PerformanceMetrics{QualityTrend: TrendStable}, nil
	}

	scores := make([]float64, 0, len(samples))
	for _, s := range samples {
		scores = append(scores, *s.QualityScore)
	}

	trend := TrendInsufficientData
	if len(scores) >= trendWindow {
		recentAvg := mean(scores[len(scores)-trendWindow:])
		overallAvg := recentAvg
		if len(scores) > trendWindow {
			overallAvg = mean(scores[:len(scores)-trendWindow])
		}
		switch {
		case recentAvg > overallAvg+trendDelta:
			trend = TrendImproving
		case recentAvg < overallAvg-trendDelta:
			trend = TrendDeclining
		default:
			trend = TrendStable
		}
	}

	assigned, err := m.tasks.ListByAnnotator(ctx, annotatorID, allTaskStatuses)
	if err != nil {
		return PerformanceMetrics{}, fmt.Errorf("failed to list assigned tasks: %w", err)
	}
	completed := 0
	for _, task := range assigned {
		if task.Status == models.TaskStatusCompleted {
			completed++
		}
	}
	completionRate := 0.0
	if len(assigned) > 0 {
		completionRate = float64(completed) / float64(len(assigned))
	}

	recentScores := scores
	if len(recentScores) > 10 {
		recentScores = recentScores[len(recentScores)-10:]
	}

	return PerformanceMetrics{
		TotalTasks:     len(scores),
		AverageQuality: mean(scores),
		QualityTrend:   trend,
		CompletionRate: completionRate,
		RecentScores:   recentScores,
	}, nil
}

// UpdateAvailability moves an annotator to a new availability status.
func (m *Manager) UpdateAvailability(ctx context.Context, annotatorID string, status models.AvailabilityStatus) (*models.Annotator, error) {
	if !status.Valid() {
		return nil, models.NewValidationError("availability_status", fmt.Sprintf("invalid status %q", status))
	}

	annotator, err := m.annotators.Get(ctx, annotatorID)
	if err != nil {
		return nil, err
	}
	annotator.AvailabilityStatus = status
	if err := m.annotators.Update(ctx, annotator); err != nil {
		return nil, fmt.Errorf("failed to update availability: %w", err)
	}

	m.log.WithFields(logrus.Fields{
		"annotator_id": annotatorID,
		"status":       status,
	}).Info("Annotator availability updated")
	return annotator, nil
}

// UpdateSkills merges the given scores into the annotator's skill table.
// Any score outside [0, 1] rejects the whole update.
func (m *Manager) UpdateSkills(ctx context.Context, annotatorID string, updates map[string]float64) (*models.Annotator, error) {
	annotator, err := m.annotators.Get(ctx, annotatorID)
	if err != nil {
		return nil, err
	}

	merged := make(map[string]float64, len(annotator.SkillScores)+len(updates))
	for skill, score := range annotator.SkillScores {
		merged[skill] = score
	}
	for skill, score := range updates {
		merged[skill] = score
	}
	if err := checkSkillScores(merged); err != nil {
		return nil, err
	}

	annotator.SkillScores = merged
	if err := m.annotators.Update(ctx, annotator); err != nil {
		return nil, fmt.Errorf("failed to update skills: %w", err)
	}

	m.log.WithFields(logrus.Fields{
		"annotator_id":   annotatorID,
		"updated_skills": sortedKeys(updates),
	}).Info("Annotator skills updated")
	return annotator, nil
}

// RecordResult folds a completed task's quality score into the annotator's
// rolling performance history. A nil score counts as the neutral 0.5.
func (m *Manager) RecordResult(ctx context.Context, annotatorID string, qualityScore *float64) error {
	score := 0.5
	if qualityScore != nil {
		score = *qualityScore
	}
	if err := models.CheckScore01("quality_score", score); err != nil {
		return err
	}

	annotator, err := m.annotators.Get(ctx, annotatorID)
	if err != nil {
		return err
	}

	h := annotator.Performance
	h.TotalTasks++
	h.RecentScores = append(h.RecentScores, score)
	if len(h.RecentScores) > recentScoreWindow {
		h.RecentScores = h.RecentScores[len(h.RecentScores)-recentScoreWindow:]
	}
	h.AverageQuality = mean(h.RecentScores)

	months := m.now().UTC().Sub(annotator.CreatedAt).Hours() / 24 / 30
	if months > h.MonthsActive {
		h.MonthsActive = months
	}

	annotator.Performance = h
	if err := m.annotators.Update(ctx, annotator); err != nil {
		return fmt.Errorf("failed to update performance history: %w", err)
	}

	m.log.WithFields(logrus.Fields{
		"annotator_id":  annotatorID,
		"quality_score": score,
	}).Info("Performance history updated")
	return nil
}

// FindMatches scores every available annotator against the requirements and
// returns those above the match threshold, best first.
func (m *Manager) FindMatches(ctx context.Context, req Requirements) ([]Match, error) {
	available, err := m.annotators.ListAvailable(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list available annotators: %w", err)
	}

	matches := make([]Match, 0, len(available))
	for _, annotator := range available {
		score := matchScore(annotator, req)
		if score <= matchThreshold {
			continue
		}
		matches = append(matches, Match{
			AnnotatorID:        annotator.AnnotatorID,
			MatchScore:         score,
			SkillScores:        annotator.SkillScores,
			CulturalBackground: annotator.CulturalBackground,
			Languages:          annotator.Languages,
			Performance:        annotator.Performance,
		})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].MatchScore > matches[j].MatchScore })
	return matches, nil
}

// matchScore is a weighted average over the requirement dimensions the pair
// actually shares; absent dimensions drop out of the weighting instead of
// dragging the score down.
func matchScore(annotator models.Annotator, req Requirements) float64 {
	score, weight := 0.0, 0.0

	for _, skill := range req.RequiredSkills {
		score += annotator.SkillScores[skill] * skillWeight
		weight += skillWeight
	}

	if req.CulturalContext != "" && annotator.CulturalBackground != "" {
		score += culturalSimilarity(req.CulturalContext, annotator.CulturalBackground) * culturalWeight
		weight += culturalWeight
	}

	if len(req.RequiredLanguages) > 0 && len(annotator.Languages) > 0 {
		score += languageOverlap(req.RequiredLanguages, annotator.Languages) * languageWeight
		weight += languageWeight
	}

	score += annotator.Performance.AverageQuality * performanceWeight
	weight += performanceWeight

	return score / weight
}

// culturalSimilarity is the Jaccard similarity between the word sets of the
// two descriptions.
func culturalSimilarity(required, background string) float64 {
	reqWords := wordSet(required)
	bgWords := wordSet(background)
	if len(reqWords) == 0 || len(bgWords) == 0 {
		return 0.5
	}

	intersection := 0
	union := len(bgWords)
	for w := range reqWords {
		if bgWords[w] {
			intersection++
		} else {
			union++
		}
	}
	return float64(intersection) / float64(union)
}

// languageOverlap is the fraction of required languages the annotator
// covers.
func languageOverlap(required, languages []string) float64 {
	have := make(map[string]bool, len(languages))
	for _, l := range languages {
		have[l] = true
	}
	matched := make(map[string]bool)
	for _, l := range required {
		if have[l] {
			matched[l] = true
		}
	}
	return float64(len(matched)) / float64(len(required))
}

// Analytics derives the work profile for one annotator.
func (m *Manager) Analytics(ctx context.Context, annotatorID string) (*Analytics, error) {
	annotator, err := m.annotators.Get(ctx, annotatorID)
	if err != nil {
		return nil, err
	}
	return m.analyticsFor(ctx, annotator)
}

// AnalyticsAll derives work profiles for every annotator.
func (m *Manager) AnalyticsAll(ctx context.Context) ([]Analytics, error) {
	annotators, err := m.annotators.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list annotators: %w", err)
	}

	out := make([]Analytics, 0, len(annotators))
	for i := range annotators {
		a, err := m.analyticsFor(ctx, &annotators[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, nil
}

func (m *Manager) analyticsFor(ctx context.Context, annotator *models.Annotator) (*Analytics, error) {
	metrics, err := m.performanceMetrics(ctx, annotator.AnnotatorID)
	if err != nil {
		return nil, err
	}

	completed, err := m.tasks.ListByAnnotator(ctx, annotator.AnnotatorID, []models.TaskStatus{models.TaskStatusCompleted})
	if err != nil {
		return nil, fmt.Errorf("failed to list completed tasks: %w", err)
	}
	typeCounts := make(map[string]int)
	for _, task := range completed {
		typeCounts[task.TaskType]++
	}

	utilization := make(map[string]SkillUtilization)
	for skill, score := range annotator.SkillScores {
		count, ok := typeCounts[skill]
		if !ok {
			continue
		}
		rate := 0.0
		if metrics.TotalTasks > 0 {
			rate = float64(count) / float64(metrics.TotalTasks)
		}
		utilization[skill] = SkillUtilization{
			Score:           score,
			TasksCompleted:  count,
			UtilizationRate: rate,
		}
	}

	return &Analytics{
		AnnotatorID:          annotator.AnnotatorID,
		Metrics:              metrics,
		TaskTypeDistribution: typeCounts,
		SkillUtilization:     utilization,
		AvailabilityStatus:   annotator.AvailabilityStatus,
		CulturalBackground:   annotator.CulturalBackground,
		Languages:            annotator.Languages,
	}, nil
}

// PerformanceReport covers the annotator's tasks and scored feedback created
// inside the last days-long window. days <= 0 defaults to thirty.
func (m *Manager) PerformanceReport(ctx context.Context, annotatorID string, days int) (*PerformanceReport, error) {
	if days <= 0 {
		days = recentTaskDays
	}
	if _, err := m.annotators.Get(ctx, annotatorID); err != nil {
		return nil, err
	}

	since := m.now().UTC().AddDate(0, 0, -days)

	tasks, err := m.tasks.ListByAnnotator(ctx, annotatorID, allTaskStatuses)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	report := &PerformanceReport{
		AnnotatorID:     annotatorID,
		Days:            days,
		TypePerformance: make(map[string]TypePerformance),
	}

	typeOf := make(map[string]string)
	typeScores := make(map[string][]float64)
	for _, task := range tasks {
		if task.CreatedAt.Before(since) {
			continue
		}
		report.TotalTasks++
		typeOf[task.TaskID] = task.TaskType

		tp := report.TypePerformance[task.TaskType]
		tp.Total++
		switch task.Status {
		case models.TaskStatusCompleted:
			report.CompletedTasks++
			tp.Completed++
		case models.TaskStatusPending:
			report.PendingTasks++
		case models.TaskStatusInProgress:
			report.InProgressTasks++
		}
		report.TypePerformance[task.TaskType] = tp
	}
	if report.TotalTasks > 0 {
		report.CompletionRate = float64(report.CompletedTasks) / float64(report.TotalTasks)
	}

	samples, err := m.feedback.ListScoredByAnnotator(ctx, annotatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list scored feedback: %w", err)
	}
	var scores []float64
	for _, s := range samples {
		if s.CreatedAt.Before(since) {
			continue
		}
		scores = append(scores, *s.QualityScore)
		if taskType, ok := typeOf[s.TaskID]; ok {
			typeScores[taskType] = append(typeScores[taskType], *s.QualityScore)
		}
	}
	report.AverageQuality = mean(scores)

	for taskType, tp := range report.TypePerformance {
		tp.AverageQuality = mean(typeScores[taskType])
		report.TypePerformance[taskType] = tp
	}

	return report, nil
}

// List returns annotators, optionally filtered by availability status.
// limit <= 0 means no limit.
func (m *Manager) List(ctx context.Context, status models.AvailabilityStatus, limit int) ([]models.Annotator, error) {
	all, err := m.annotators.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list annotators: %w", err)
	}

	out := make([]models.Annotator, 0, len(all))
	for _, a := range all {
		if status != "" && a.AvailabilityStatus != status {
			continue
		}
		out = append(out, a)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func checkSkillScores(skills map[string]float64) error {
	for _, skill := range sortedKeys(skills) {
		if err := models.CheckScore01("skill_scores."+skill, skills[skill]); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = true
	}
	return set
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
