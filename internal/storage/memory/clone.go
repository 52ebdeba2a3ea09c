// Package memory provides mutex-guarded in-memory implementations of the
// storage contracts, used by tests and standalone mode.
package memory

import "github.com/ArjavDesa912/ConstitutionalFlow/internal/models"

// Stores hand out copies so callers can never alias internal state.

func clonePrinciple(p models.Principle) models.Principle {
	p.CulturalContext = cloneAnyMap(p.CulturalContext)
	p.SupportingEvidence = cloneStrings(p.SupportingEvidence)
	if p.PreviousConfidence != nil {
		prev := *p.PreviousConfidence
		p.PreviousConfidence = &prev
	}
	return p
}

func cloneTask(t models.Task) models.Task {
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		t.CompletedAt = &at
	}
	return t
}

func cloneAnnotator(a models.Annotator) models.Annotator {
	a.SkillScores = cloneFloatMap(a.SkillScores)
	a.Languages = cloneStrings(a.Languages)
	a.Performance.RecentScores = cloneFloats(a.Performance.RecentScores)
	return a
}

func cloneFeedback(s models.FeedbackSample) models.FeedbackSample {
	s.Metadata = cloneAnyMap(s.Metadata)
	if s.QualityScore != nil {
		q := *s.QualityScore
		s.QualityScore = &q
	}
	return s
}

func cloneAnyMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneFloatMap(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func cloneFloats(s []float64) []float64 {
	if s == nil {
		return nil
	}
	out := make([]float64, len(s))
	copy(out, s)
	return out
}
