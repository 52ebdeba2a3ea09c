// Package quality predicts how well an annotator will perform on a task.
// A regression model trained on completed work scores the pair once enough
// scored history exists; until then a deterministic rule-based estimate
// stands in.
package quality

import (
	"math"
	"strings"
	"time"

	"github.com/ArjavDesa912/ConstitutionalFlow/internal/models"
)

// taskTypeEncoding places each task type on the scale the model trains
// against. Unknown types sit at the midpoint.
var taskTypeEncoding = map[string]float64{
	"sentiment":      0.2,
	"classification": 0.4,
	"translation":    0.6,
	"summarization":  0.8,
	"qa":             1.0,
}

// MatchStrategy scores how well an annotator's background fits a task's
// content. The keyword default can be swapped for a real NLP matcher
// without touching the predictor.
type MatchStrategy interface {
	// CulturalMatch returns 1.0 when the content carries cultural markers
	// the annotator shares, 0.3 when it carries markers they do not, and
	// a neutral score when no markers are present.
	CulturalMatch(content, background string) float64
	// LanguageMatch returns 1.0 when one of the annotator's languages
	// appears in the content, else a neutral score.
	LanguageMatch(content string, languages []string) float64
}

// cultureIndicators is ordered: the first culture with a keyword hit
// decides the match.
var cultureIndicators = []struct {
	culture  string
	keywords []string
}{
	{"western", []string{"christmas", "thanksgiving", "halloween", "easter"}},
	{"asian", []string{"chinese", "japanese", "korean", "lunar new year"}},
	{"middle_eastern", []string{"ramadan", "eid", "arabic", "islamic"}},
	{"indian", []string{"diwali", "holi", "hindu", "sanskrit"}},
}

// keywordMatcher is the default MatchStrategy, matching fixed indicator
// words against lowercased content.
type keywordMatcher struct{}

func (keywordMatcher) CulturalMatch(content, background string) float64 {
	contentLower := strings.ToLower(content)
	backgroundLower := strings.ToLower(background)
	for _, ci := range cultureIndicators {
		for _, kw := range ci.keywords {
			if strings.Contains(contentLower, kw) {
				if strings.Contains(backgroundLower, ci.culture) {
					return 1.0
				}
				return 0.3
			}
		}
	}
	return 0.7
}

func (keywordMatcher) LanguageMatch(content string, languages []string) float64 {
	if len(languages) == 0 {
		return 0.5
	}
	contentLower := strings.ToLower(content)
	for _, lang := range languages {
		if lang == "" {
			continue
		}
		if strings.Contains(contentLower, strings.ToLower(lang)) {
			return 1.0
		}
	}
	return 0.5
}

// featureVector describes a (task, annotator) pair with the nine features
// the model trains on, in fixed order.
type featureVector struct {
	TaskComplexity      float64
	AnnotatorExperience float64
	TaskTypeEncoded     float64
	ContentLength       float64
	TimeOfDay           float64
	DayOfWeek           float64
	AnnotatorFatigue    float64
	CulturalMatch       float64
	LanguageMatch       float64
}

func (f featureVector) vector() []float64 {
	return []float64{
		f.TaskComplexity,
		f.AnnotatorExperience,
		f.TaskTypeEncoded,
		f.ContentLength,
		f.TimeOfDay,
		f.DayOfWeek,
		f.AnnotatorFatigue,
		f.CulturalMatch,
		f.LanguageMatch,
	}
}

// completeness is the fraction of features holding a usable value.
func (f featureVector) completeness() float64 {
	vals := f.vector()
	present := 0
	for _, v := range vals {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			present++
		}
	}
	return float64(present) / float64(len(vals))
}

// ruleBasedQuality is the deterministic estimate used while the model is
// untrained.
func (f featureVector) ruleBasedQuality() float64 {
	score := 0.5
	score -= f.TaskComplexity * 0.3
	score += f.AnnotatorExperience * 0.4
	score += f.CulturalMatch * 0.2
	score += f.LanguageMatch * 0.2
	score -= f.AnnotatorFatigue * 0.3
	return clamp01(score)
}

func (p *Predictor) features(task *models.Task, annotator *models.Annotator) featureVector {
	now := p.now()
	return featureVector{
		TaskComplexity:      task.ComplexityScore,
		AnnotatorExperience: experienceScore(annotator.Performance),
		TaskTypeEncoded:     encodeTaskType(task.TaskType),
		ContentLength:       float64(len(task.Content)),
		TimeOfDay:           float64(now.Hour()) / 24,
		DayOfWeek:           float64(mondayIndexed(now.Weekday())) / 7,
		AnnotatorFatigue:    fatigueScore(annotator.Performance),
		CulturalMatch:       p.match.CulturalMatch(task.Content, annotator.CulturalBackground),
		LanguageMatch:       p.match.LanguageMatch(task.Content, annotator.Languages),
	}
}

func encodeTaskType(taskType string) float64 {
	if v, ok := taskTypeEncoding[taskType]; ok {
		return v
	}
	return 0.5
}

// mondayIndexed converts Go's Sunday-first weekday to a Monday-first index.
func mondayIndexed(d time.Weekday) int {
	return (int(d) + 6) % 7
}

// experienceScore folds task volume, quality and tenure into one capped
// score. An annotator with no recorded history sits at the midpoint.
func experienceScore(h models.PerformanceHistory) float64 {
	if h.TotalTasks == 0 && h.AverageQuality == 0 && h.MonthsActive == 0 && len(h.RecentScores) == 0 {
		return 0.5
	}
	return math.Min(float64(h.TotalTasks)*h.AverageQuality*h.MonthsActive/100, 1)
}

// fatigueScore measures how far the average of the last three scores has
// fallen below the annotator's overall average. Fewer than three recent
// scores reads as no fatigue signal.
func fatigueScore(h models.PerformanceHistory) float64 {
	if len(h.RecentScores) < 3 || h.AverageQuality <= 0 {
		return 0
	}
	last := h.RecentScores[len(h.RecentScores)-3:]
	recentAvg := (last[0] + last[1] + last[2]) / 3
	fatigue := (h.AverageQuality - recentAvg) / h.AverageQuality
	if fatigue <= 0 {
		return 0
	}
	return math.Min(fatigue, 1)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
