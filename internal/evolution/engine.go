// Package evolution analyzes human feedback batches and evolves the active
// set of behavioral principles from them.
package evolution

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ArjavDesa912/ConstitutionalFlow/internal/cache"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/config"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/gateway"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/metrics"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/models"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/prompts"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/storage"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/structured"
)

const (
	historicalCacheKey = "historical_principles"

	extractionMaxTokens   = 2000
	extractionTemperature = 0.3
	validationMaxTokens   = 1500
	validationTemperature = 0.2

	// Confidence drift above this marks an existing principle as updated.
	updateThreshold = 0.1
)

// Generator is the slice of the provider gateway the engine needs.
type Generator interface {
	GenerateWithFailover(ctx context.Context, req *models.GenerateRequest, order []string) *models.ProviderResponse
	GenerateConsensus(ctx context.Context, req *models.GenerateRequest) *gateway.ConsensusResponse
}

// AnalysisResult is the outcome of one feedback batch analysis.
type AnalysisResult struct {
	Success    bool               `json:"success"`
	Error      string             `json:"error,omitempty"`
	Principles []models.Principle `json:"principles"`
	Summary    string             `json:"summary,omitempty"`
	Confidence float64            `json:"confidence"`
}

// EvolutionResult reports which principles a run added or updated.
type EvolutionResult struct {
	Success           bool               `json:"success"`
	Error             string             `json:"error,omitempty"`
	NewPrinciples     []models.Principle `json:"evolved_principles"`
	UpdatedPrinciples []models.Principle `json:"updated_principles"`
	Confidence        float64            `json:"confidence"`
}

type extractionPayload struct {
	Principles        []models.Principle `json:"principles"`
	Summary           string             `json:"summary"`
	ConfidenceOverall float64            `json:"confidence_overall"`
}

type validationVerdict struct {
	IsValid          bool     `json:"is_valid"`
	ConfidenceScore  float64  `json:"confidence_score"`
	ConsistencyScore float64  `json:"consistency_score"`
	Conflicts        []string `json:"conflicts,omitempty"`
	Recommendations  []string `json:"recommendations,omitempty"`
}

// Engine extracts principles from feedback via model consensus, validates
// them against the historical set, and upserts the survivors.
type Engine struct {
	gen        Generator
	principles storage.PrincipleStore
	feedback   storage.FeedbackStore
	cache      cache.Cache
	cfg        config.EvolutionConfig
	log        *logrus.Logger
}

func NewEngine(gen Generator, stores *storage.Stores, store cache.Cache, cfg config.EvolutionConfig, log *logrus.Logger) *Engine {
	metrics.Init()
	return &Engine{
		gen:        gen,
		principles: stores.Principles,
		feedback:   stores.Feedback,
		cache:      store,
		cfg:        cfg,
		log:        log,
	}
}

// AnalyzeFeedbackBatch extracts candidate principles from the given samples
// via multi-provider consensus and validates each candidate.
func (e *Engine) AnalyzeFeedbackBatch(ctx context.Context, samples []models.FeedbackSample) *AnalysisResult {
	consensus := e.gen.GenerateConsensus(ctx, &models.GenerateRequest{
		Prompt:      prompts.PrincipleExtraction(samples),
		MaxTokens:   extractionMaxTokens,
		Temperature: extractionTemperature,
	})
	if !consensus.Success {
		e.log.Error("Failed to get consensus for principle extraction")
		return &AnalysisResult{
			Success:    false,
			Error:      "failed to extract principles from feedback",
			Principles: []models.Principle{},
		}
	}

	var payload extractionPayload
	if err := structured.DecodeInto(consensus.Consensus, &payload); err != nil {
		e.log.WithError(err).Error("Failed to parse consensus response")
		return &AnalysisResult{
			Success:    false,
			Error:      "invalid response format",
			Principles: []models.Principle{},
		}
	}
	for i := range payload.Principles {
		payload.Principles[i].ConfidenceScore = models.Clamp01(payload.Principles[i].ConfidenceScore)
	}

	validated := e.ValidatePrinciples(ctx, payload.Principles)
	return &AnalysisResult{
		Success:    true,
		Principles: validated,
		Summary:    payload.Summary,
		Confidence: consensus.Confidence,
	}
}

// ValidatePrinciples checks each candidate against the historical set and
// keeps the ones the validator accepts, annotated with validation and
// consistency scores. Candidate order is preserved.
func (e *Engine) ValidatePrinciples(ctx context.Context, candidates []models.Principle) []models.Principle {
	if len(candidates) == 0 {
		return []models.Principle{}
	}

	historical := e.HistoricalPrinciples(ctx)

	verdicts := make([]validationVerdict, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	concurrency := e.cfg.ValidationConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	g.SetLimit(concurrency)

	for i := range candidates {
		i := i
		g.Go(func() error {
			verdicts[i] = e.validatePrinciple(gctx, candidates[i], historical)
			return nil
		})
	}
	// Workers never return errors; validation failures degrade to
	// accepting verdicts instead.
	_ = g.Wait()

	validated := make([]models.Principle, 0, len(candidates))
	for i, candidate := range candidates {
		if !verdicts[i].IsValid {
			e.log.WithField("principle", candidate.Text).Warn("Principle validation failed")
			continue
		}
		candidate.ValidationScore = verdicts[i].ConfidenceScore
		candidate.ConsistencyScore = verdicts[i].ConsistencyScore
		validated = append(validated, candidate)
	}
	return validated
}

// validatePrinciple asks the validation providers for a verdict. Any failure
// along the way falls back to accepting the principle with its declared
// confidence, so a provider outage never blocks evolution.
func (e *Engine) validatePrinciple(ctx context.Context, candidate models.Principle, historical []models.Principle) validationVerdict {
	fallback := validationVerdict{
		IsValid:          true,
		ConfidenceScore:  declaredConfidence(candidate),
		ConsistencyScore: 0.5,
	}

	resp := e.gen.GenerateWithFailover(ctx, &models.GenerateRequest{
		Prompt:      prompts.PrincipleValidation(candidate, historical),
		MaxTokens:   validationMaxTokens,
		Temperature: validationTemperature,
	}, e.cfg.ValidationProviders)
	if !resp.Success {
		return fallback
	}

	var verdict validationVerdict
	if err := structured.DecodeInto(resp.Content, &verdict); err != nil {
		return fallback
	}
	verdict.ConfidenceScore = models.Clamp01(verdict.ConfidenceScore)
	verdict.ConsistencyScore = models.Clamp01(verdict.ConsistencyScore)
	return verdict
}

// HistoricalPrinciples returns the top active principles, trimmed to text,
// confidence and category, cached for the configured TTL.
func (e *Engine) HistoricalPrinciples(ctx context.Context) []models.Principle {
	var cached []models.Principle
	if hit, err := e.cache.Get(ctx, historicalCacheKey, &cached); err == nil && hit {
		return cached
	}

	active, err := e.principles.ListActive(ctx, e.cfg.HistoricalLimit)
	if err != nil {
		e.log.WithError(err).Error("Error getting historical principles")
		return []models.Principle{}
	}

	historical := make([]models.Principle, 0, len(active))
	for _, p := range active {
		historical = append(historical, models.Principle{
			Text:            p.Text,
			ConfidenceScore: p.ConfidenceScore,
			Category:        p.Category,
		})
	}

	if err := e.cache.Set(ctx, historicalCacheKey, historical, e.cfg.HistoricalCacheTTL); err != nil {
		e.log.WithError(err).Warn("Failed to cache historical principles")
	}
	return historical
}

// EvolvePrinciples runs the full cycle: pull recent feedback, extract and
// validate candidates, then split them into new and significantly-changed
// principles.
func (e *Engine) EvolvePrinciples(ctx context.Context, feedbackCount int) *EvolutionResult {
	recent, err := e.feedback.ListRecent(ctx, feedbackCount)
	if err != nil {
		e.log.WithError(err).Error("Error getting recent feedback")
		return &EvolutionResult{
			Success:       false,
			Error:         err.Error(),
			NewPrinciples: []models.Principle{},
		}
	}
	if len(recent) == 0 {
		return &EvolutionResult{
			Success:       false,
			Error:         "no recent feedback available for evolution",
			NewPrinciples: []models.Principle{},
		}
	}

	analysis := e.AnalyzeFeedbackBatch(ctx, recent)
	if !analysis.Success {
		return &EvolutionResult{
			Success:       false,
			Error:         analysis.Error,
			NewPrinciples: []models.Principle{},
		}
	}

	newPrinciples, updated := e.identifyEvolution(ctx, analysis.Principles)

	metrics.PrincipleUpdates.WithLabelValues("new").Add(float64(len(newPrinciples)))
	metrics.PrincipleUpdates.WithLabelValues("updated").Add(float64(len(updated)))

	return &EvolutionResult{
		Success:           true,
		NewPrinciples:     newPrinciples,
		UpdatedPrinciples: updated,
		Confidence:        analysis.Confidence,
	}
}

// identifyEvolution splits candidates into principles never seen before and
// existing ones whose confidence drifted past the update threshold.
func (e *Engine) identifyEvolution(ctx context.Context, candidates []models.Principle) (newPrinciples, updated []models.Principle) {
	existing := e.HistoricalPrinciples(ctx)
	byText := make(map[string]models.Principle, len(existing))
	for _, p := range existing {
		byText[p.Text] = p
	}

	newPrinciples = make([]models.Principle, 0)
	updated = make([]models.Principle, 0)
	for _, candidate := range candidates {
		prior, ok := byText[candidate.Text]
		if !ok {
			newPrinciples = append(newPrinciples, candidate)
			continue
		}
		diff := candidate.ConfidenceScore - prior.ConfidenceScore
		if diff < 0 {
			diff = -diff
		}
		if diff > updateThreshold {
			prev := prior.ConfidenceScore
			candidate.PreviousConfidence = &prev
			updated = append(updated, candidate)
		}
	}
	return newPrinciples, updated
}

// StorePrinciples upserts principles by exact text. Existing rows keep their
// identity and gain a version bump; new rows start at version 1, active.
func (e *Engine) StorePrinciples(ctx context.Context, principles []models.Principle) error {
	for _, p := range principles {
		existing, err := e.principles.GetByText(ctx, p.Text)
		switch {
		case err == nil:
			existing.ConfidenceScore = p.ConfidenceScore
			if p.Category != "" {
				existing.Category = p.Category
			}
			if p.CulturalContext != nil {
				existing.CulturalContext = p.CulturalContext
			}
			existing.VersionNumber++
			if err := e.principles.Update(ctx, existing); err != nil {
				return fmt.Errorf("failed to update principle: %w", err)
			}
		case errors.Is(err, storage.ErrNotFound):
			p.Active = true
			p.VersionNumber = 1
			if p.ConfidenceScore == 0 {
				p.ConfidenceScore = 0.5
			}
			if err := e.principles.Insert(ctx, &p); err != nil {
				return fmt.Errorf("failed to insert principle: %w", err)
			}
		default:
			return fmt.Errorf("failed to look up principle: %w", err)
		}
	}

	if err := e.cache.Delete(ctx, historicalCacheKey); err != nil {
		e.log.WithError(err).Warn("Failed to invalidate historical principles cache")
	}

	e.log.WithField("count", len(principles)).Info("Stored principles")
	return nil
}

// declaredConfidence treats a zero confidence as unset.
func declaredConfidence(p models.Principle) float64 {
	if p.ConfidenceScore == 0 {
		return 0.5
	}
	return p.ConfidenceScore
}
