package annotators

import (
	"context"
	"errors"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArjavDesa912/ConstitutionalFlow/internal/models"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/storage"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/storage/memory"
)

func newTestManagerLogger() *log.Logger {
	logger := log.New()
	logger.SetLevel(log.PanicLevel)
	return logger
}

func newTestManager() (*Manager, *storage.Stores) {
	stores := memory.NewStores()
	return NewManager(stores, newTestManagerLogger()), stores
}

func scorePtr(v float64) *float64 {
	return &v
}

func TestRegister(t *testing.T) {
	m, stores := newTestManager()
	ctx := context.Background()

	a, err := m.Register(ctx, Registration{
		AnnotatorID:        "ann_1",
		SkillScores:        map[string]float64{"translation": 0.9},
		CulturalBackground: "western",
		Languages:          []string{"english"},
	})
	require.NoError(t, err)
	assert.NotZero(t, a.ID)
	assert.Equal(t, models.AvailabilityAvailable, a.AvailabilityStatus)
	assert.Zero(t, a.Performance.TotalTasks)

	stored, err := stores.Annotators.Get(ctx, "ann_1")
	require.NoError(t, err)
	assert.Equal(t, 0.9, stored.SkillScores["translation"])

	_, err = m.Register(ctx, Registration{AnnotatorID: "ann_1"})
	assert.True(t, errors.Is(err, storage.ErrConflict))
}

func TestRegisterValidation(t *testing.T) {
	m, _ := newTestManager()
	ctx := context.Background()

	var validationErr *models.ValidationError

	_, err := m.Register(ctx, Registration{AnnotatorID: "   "})
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "annotator_id", validationErr.Field)

	_, err = m.Register(ctx, Registration{
		AnnotatorID: "ann_bad",
		SkillScores: map[string]float64{"translation": 1.5},
	})
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "skill_scores.translation", validationErr.Field)
}

func TestRegisterDefaultsSkillMap(t *testing.T) {
	m, _ := newTestManager()

	a, err := m.Register(context.Background(), Registration{AnnotatorID: "ann_plain"})
	require.NoError(t, err)
	assert.NotNil(t, a.SkillScores)
	assert.Empty(t, a.SkillScores)
}

func TestProfile(t *testing.T) {
	m, stores := newTestManager()
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := m.Register(ctx, Registration{
		AnnotatorID: "ann_1",
		SkillScores: map[string]float64{"translation": 0.9},
	})
	require.NoError(t, err)

	// A fresh completion, an expired one and one still open.
	require.NoError(t, stores.Tasks.Create(ctx, &models.Task{
		TaskID: "task_fresh", TaskType: "translation", ComplexityScore: 0.4,
		EstimatedTime: 20, AssignedAnnotatorID: "ann_1",
	}))
	require.NoError(t, stores.Tasks.SetCompleted(ctx, "task_fresh", now.AddDate(0, 0, -2)))

	require.NoError(t, stores.Tasks.Create(ctx, &models.Task{
		TaskID: "task_stale", TaskType: "translation", AssignedAnnotatorID: "ann_1",
	}))
	require.NoError(t, stores.Tasks.SetCompleted(ctx, "task_stale", now.AddDate(0, 0, -40)))

	require.NoError(t, stores.Tasks.Create(ctx, &models.Task{
		TaskID: "task_open", TaskType: "qa", AssignedAnnotatorID: "ann_1",
	}))

	for i, score := range []float64{0.4, 0.4, 0.9, 0.9, 0.9, 0.9} {
		require.NoError(t, stores.Feedback.Insert(ctx, &models.FeedbackSample{
			TaskID:       "task_fresh",
			AnnotatorID:  "ann_1",
			QualityScore: scorePtr(score),
			CreatedAt:    now.Add(time.Duration(i-6) * time.Hour),
		}))
	}

	profile, err := m.Profile(ctx, "ann_1")
	require.NoError(t, err)

	assert.Equal(t, "ann_1", profile.AnnotatorID)
	require.Len(t, profile.RecentTasks, 1)
	assert.Equal(t, "task_fresh", profile.RecentTasks[0].TaskID)

	assert.Equal(t, 6, profile.Metrics.TotalTasks)
	assert.InDelta(t, 4.4/6, profile.Metrics.AverageQuality, 1e-9)
	assert.Equal(t, TrendImproving, profile.Metrics.QualityTrend)
	assert.InDelta(t, 2.0/3, profile.Metrics.CompletionRate, 1e-9)
	assert.Len(t, profile.Metrics.RecentScores, 6)
}

func TestProfileEmptyHistory(t *testing.T) {
	m, _ := newTestManager()
	ctx := context.Background()

	_, err := m.Register(ctx, Registration{AnnotatorID: "ann_new"})
	require.NoError(t, err)

	profile, err := m.Profile(ctx, "ann_new")
	require.NoError(t, err)
	assert.Empty(t, profile.RecentTasks)
	assert.Zero(t, profile.Metrics.TotalTasks)
	assert.Equal(t, TrendStable, profile.Metrics.QualityTrend)
	assert.Zero(t, profile.Metrics.CompletionRate)
}

func TestProfileTrendInsufficientData(t *testing.T) {
	m, stores := newTestManager()
	ctx := context.Background()

	_, err := m.Register(ctx, Registration{AnnotatorID: "ann_few"})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, stores.Feedback.Insert(ctx, &models.FeedbackSample{
			AnnotatorID: "ann_few", QualityScore: scorePtr(0.7),
		}))
	}

	profile, err := m.Profile(ctx, "ann_few")
	require.NoError(t, err)
	assert.Equal(t, TrendInsufficientData, profile.Metrics.QualityTrend)
}

func TestProfileMissing(t *testing.T) {
	m, _ := newTestManager()

	_, err := m.Profile(context.Background(), "ann_ghost")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestUpdateAvailability(t *testing.T) {
	m, stores := newTestManager()
	ctx := context.Background()

	_, err := m.Register(ctx, Registration{AnnotatorID: "ann_1"})
	require.NoError(t, err)

	a, err := m.UpdateAvailability(ctx, "ann_1", models.AvailabilityBusy)
	require.NoError(t, err)
	assert.Equal(t, models.AvailabilityBusy, a.AvailabilityStatus)

	stored, err := stores.Annotators.Get(ctx, "ann_1")
	require.NoError(t, err)
	assert.Equal(t, models.AvailabilityBusy, stored.AvailabilityStatus)

	var validationErr *models.ValidationError
	_, err = m.UpdateAvailability(ctx, "ann_1", "sleeping")
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "availability_status", validationErr.Field)

	_, err = m.UpdateAvailability(ctx, "ann_ghost", models.AvailabilityBusy)
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestUpdateSkills(t *testing.T) {
	m, stores := newTestManager()
	ctx := context.Background()

	_, err := m.Register(ctx, Registration{
		AnnotatorID: "ann_1",
		SkillScores: map[string]float64{"translation": 0.9},
	})
	require.NoError(t, err)

	a, err := m.UpdateSkills(ctx, "ann_1", map[string]float64{"qa": 0.7, "translation": 0.95})
	require.NoError(t, err)
	assert.Equal(t, 0.95, a.SkillScores["translation"])
	assert.Equal(t, 0.7, a.SkillScores["qa"])

	var validationErr *models.ValidationError
	_, err = m.UpdateSkills(ctx, "ann_1", map[string]float64{"qa": -0.1})
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "skill_scores.qa", validationErr.Field)

	stored, err := stores.Annotators.Get(ctx, "ann_1")
	require.NoError(t, err)
	assert.Equal(t, 0.7, stored.SkillScores["qa"], "rejected update leaves skills untouched")
}

func TestRecordResult(t *testing.T) {
	m, stores := newTestManager()
	ctx := context.Background()

	_, err := m.Register(ctx, Registration{AnnotatorID: "ann_1"})
	require.NoError(t, err)

	for _, score := range []float64{0.8, 0.6, 1.0} {
		require.NoError(t, m.RecordResult(ctx, "ann_1", scorePtr(score)))
	}
	require.NoError(t, m.RecordResult(ctx, "ann_1", nil))

	stored, err := stores.Annotators.Get(ctx, "ann_1")
	require.NoError(t, err)
	assert.Equal(t, 4, stored.Performance.TotalTasks)
	assert.Equal(t, []float64{0.8, 0.6, 1.0, 0.5}, stored.Performance.RecentScores)
	assert.InDelta(t, 2.9/4, stored.Performance.AverageQuality, 1e-9)
}

func TestRecordResultRollingWindow(t *testing.T) {
	m, stores := newTestManager()
	ctx := context.Background()

	_, err := m.Register(ctx, Registration{AnnotatorID: "ann_1"})
	require.NoError(t, err)

	require.NoError(t, m.RecordResult(ctx, "ann_1", scorePtr(0.9)))
	for i := 0; i < recentScoreWindow; i++ {
		require.NoError(t, m.RecordResult(ctx, "ann_1", scorePtr(0.5)))
	}

	stored, err := stores.Annotators.Get(ctx, "ann_1")
	require.NoError(t, err)
	assert.Equal(t, recentScoreWindow+1, stored.Performance.TotalTasks)
	assert.Len(t, stored.Performance.RecentScores, recentScoreWindow)
	assert.Equal(t, 0.5, stored.Performance.AverageQuality, "the first score fell out of the window")
}

func TestRecordResultMonthsActive(t *testing.T) {
	m, stores := newTestManager()
	ctx := context.Background()

	_, err := m.Register(ctx, Registration{AnnotatorID: "ann_1"})
	require.NoError(t, err)

	m.now = func() time.Time { return time.Now().Add(90 * 24 * time.Hour) }
	require.NoError(t, m.RecordResult(ctx, "ann_1", scorePtr(0.8)))

	stored, err := stores.Annotators.Get(ctx, "ann_1")
	require.NoError(t, err)
	assert.InDelta(t, 3.0, stored.Performance.MonthsActive, 0.01)
}

func TestRecordResultValidation(t *testing.T) {
	m, _ := newTestManager()
	ctx := context.Background()

	_, err := m.Register(ctx, Registration{AnnotatorID: "ann_1"})
	require.NoError(t, err)

	var validationErr *models.ValidationError
	require.ErrorAs(t, m.RecordResult(ctx, "ann_1", scorePtr(1.5)), &validationErr)

	assert.True(t, errors.Is(m.RecordResult(ctx, "ann_ghost", scorePtr(0.5)), storage.ErrNotFound))
}

func TestFindMatches(t *testing.T) {
	m, _ := newTestManager()
	ctx := context.Background()

	_, err := m.Register(ctx, Registration{
		AnnotatorID:        "ann_good",
		SkillScores:        map[string]float64{"translation": 0.9},
		CulturalBackground: "western europe",
		Languages:          []string{"english", "french"},
	})
	require.NoError(t, err)
	_, err = m.Register(ctx, Registration{
		AnnotatorID:        "ann_best",
		SkillScores:        map[string]float64{"translation": 1.0},
		CulturalBackground: "western",
		Languages:          []string{"english"},
	})
	require.NoError(t, err)
	_, err = m.Register(ctx, Registration{
		AnnotatorID:        "ann_poor",
		SkillScores:        map[string]float64{"translation": 0.2},
		CulturalBackground: "asian",
		Languages:          []string{"mandarin"},
	})
	require.NoError(t, err)
	_, err = m.Register(ctx, Registration{
		AnnotatorID:        "ann_away",
		SkillScores:        map[string]float64{"translation": 1.0},
		CulturalBackground: "western",
		Languages:          []string{"english"},
	})
	require.NoError(t, err)
	_, err = m.UpdateAvailability(ctx, "ann_away", models.AvailabilityBusy)
	require.NoError(t, err)

	matches, err := m.FindMatches(ctx, Requirements{
		RequiredSkills:    []string{"translation"},
		CulturalContext:   "western culture",
		RequiredLanguages: []string{"english"},
	})
	require.NoError(t, err)

	require.Len(t, matches, 2)
	assert.Equal(t, "ann_best", matches[0].AnnotatorID)
	// 0.4*1.0 + 0.3*(1/2) + 0.2*1.0 + 0.1*0, all over total weight 1.0
	assert.InDelta(t, 0.75, matches[0].MatchScore, 1e-9)
	assert.Equal(t, "ann_good", matches[1].AnnotatorID)
	// 0.4*0.9 + 0.3*(1/3) + 0.2*1.0 + 0.1*0
	assert.InDelta(t, 0.66, matches[1].MatchScore, 1e-9)
}

func TestFindMatchesPerformanceOnly(t *testing.T) {
	m, _ := newTestManager()
	ctx := context.Background()

	_, err := m.Register(ctx, Registration{AnnotatorID: "ann_seasoned"})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, m.RecordResult(ctx, "ann_seasoned", scorePtr(0.8)))
	}
	_, err = m.Register(ctx, Registration{AnnotatorID: "ann_fresh"})
	require.NoError(t, err)

	matches, err := m.FindMatches(ctx, Requirements{})
	require.NoError(t, err)

	require.Len(t, matches, 1)
	assert.Equal(t, "ann_seasoned", matches[0].AnnotatorID)
	assert.InDelta(t, 0.8, matches[0].MatchScore, 1e-9)
}

func TestAnalytics(t *testing.T) {
	m, stores := newTestManager()
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := m.Register(ctx, Registration{
		AnnotatorID: "ann_1",
		SkillScores: map[string]float64{"qa": 0.9, "translation": 0.6, "sentiment": 0.8},
	})
	require.NoError(t, err)

	for _, task := range []struct {
		id       string
		taskType string
	}{
		{"task_q1", "qa"}, {"task_q2", "qa"}, {"task_t1", "translation"},
	} {
		require.NoError(t, stores.Tasks.Create(ctx, &models.Task{
			TaskID: task.id, TaskType: task.taskType, AssignedAnnotatorID: "ann_1",
		}))
		require.NoError(t, stores.Tasks.SetCompleted(ctx, task.id, now))
	}
	for i := 0; i < 3; i++ {
		require.NoError(t, stores.Feedback.Insert(ctx, &models.FeedbackSample{
			AnnotatorID: "ann_1", QualityScore: scorePtr(0.8),
		}))
	}

	analytics, err := m.Analytics(ctx, "ann_1")
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"qa": 2, "translation": 1}, analytics.TaskTypeDistribution)
	require.Contains(t, analytics.SkillUtilization, "qa")
	assert.Equal(t, SkillUtilization{Score: 0.9, TasksCompleted: 2, UtilizationRate: 2.0 / 3}, analytics.SkillUtilization["qa"])
	assert.NotContains(t, analytics.SkillUtilization, "sentiment", "unused skills carry no utilization")

	all, err := m.AnalyticsAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "ann_1", all[0].AnnotatorID)
}

func TestPerformanceReport(t *testing.T) {
	m, stores := newTestManager()
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := m.Register(ctx, Registration{AnnotatorID: "ann_1"})
	require.NoError(t, err)

	require.NoError(t, stores.Tasks.Create(ctx, &models.Task{
		TaskID: "task_done", TaskType: "qa", AssignedAnnotatorID: "ann_1",
	}))
	require.NoError(t, stores.Tasks.SetCompleted(ctx, "task_done", now))

	require.NoError(t, stores.Tasks.Create(ctx, &models.Task{
		TaskID: "task_waiting", TaskType: "qa", AssignedAnnotatorID: "ann_1",
	}))

	require.NoError(t, stores.Tasks.Create(ctx, &models.Task{
		TaskID: "task_running", TaskType: "translation", AssignedAnnotatorID: "ann_1",
	}))
	require.NoError(t, stores.Tasks.TransitionStatus(ctx, "task_running", models.TaskStatusPending, models.TaskStatusAssigned, "ann_1"))
	require.NoError(t, stores.Tasks.TransitionStatus(ctx, "task_running", models.TaskStatusAssigned, models.TaskStatusInProgress, ""))

	require.NoError(t, stores.Tasks.Create(ctx, &models.Task{
		TaskID: "task_ancient", TaskType: "qa", AssignedAnnotatorID: "ann_1",
		CreatedAt: now.AddDate(0, 0, -45),
	}))

	require.NoError(t, stores.Feedback.Insert(ctx, &models.FeedbackSample{
		TaskID: "task_done", AnnotatorID: "ann_1", QualityScore: scorePtr(0.9),
	}))

	report, err := m.PerformanceReport(ctx, "ann_1", 0)
	require.NoError(t, err)

	assert.Equal(t, 30, report.Days)
	assert.Equal(t, 3, report.TotalTasks, "tasks older than the window are excluded")
	assert.Equal(t, 1, report.CompletedTasks)
	assert.Equal(t, 1, report.PendingTasks)
	assert.Equal(t, 1, report.InProgressTasks)
	assert.InDelta(t, 1.0/3, report.CompletionRate, 1e-9)
	assert.InDelta(t, 0.9, report.AverageQuality, 1e-9)

	qa := report.TypePerformance["qa"]
	assert.Equal(t, 2, qa.Total)
	assert.Equal(t, 1, qa.Completed)
	assert.InDelta(t, 0.9, qa.AverageQuality, 1e-9)

	translation := report.TypePerformance["translation"]
	assert.Equal(t, 1, translation.Total)
	assert.Zero(t, translation.Completed)
	assert.Zero(t, translation.AverageQuality)

	_, err = m.PerformanceReport(ctx, "ann_ghost", 30)
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestListAnnotators(t *testing.T) {
	m, _ := newTestManager()
	ctx := context.Background()

	for _, id := range []string{"ann_a", "ann_b", "ann_c"} {
		_, err := m.Register(ctx, Registration{AnnotatorID: id})
		require.NoError(t, err)
	}
	_, err := m.UpdateAvailability(ctx, "ann_b", models.AvailabilityBusy)
	require.NoError(t, err)

	all, err := m.List(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	busy, err := m.List(ctx, models.AvailabilityBusy, 0)
	require.NoError(t, err)
	require.Len(t, busy, 1)
	assert.Equal(t, "ann_b", busy[0].AnnotatorID)

	capped, err := m.List(ctx, "", 2)
	require.NoError(t, err)
	assert.Len(t, capped, 2)
}
