// Package consensus judges agreement across provider responses. Two or
// more answers are arbitrated by a referee model; when the referee is
// unavailable the engine degrades to deterministic majority counting and
// records why.
package consensus

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/ArjavDesa912/ConstitutionalFlow/internal/config"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/metrics"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/models"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/prompts"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/structured"
)

// Methods recorded on ConsensusResult.Method.
const (
	MethodNone     = "none"
	MethodSingle   = "single"
	MethodReferee  = "referee"
	MethodSimple   = "simple_consensus"
	MethodWeighted = "weighted_voting"
)

// Strategies recorded on ConflictResolution.Strategy.
const (
	StrategySimpleConsensus  = "simple_consensus"
	StrategyWeightedVoting   = "weighted_voting"
	StrategyExpertValidation = "expert_validation"
)

const unknownProviderWeight = 0.1

var defaultWeights = map[string]float64{
	"openai":    0.4,
	"anthropic": 0.4,
	"cohere":    0.2,
}

var categoryWeights = map[string]float64{
	"safety":               1.2,
	"helpfulness":          1.0,
	"honesty":              1.1,
	"cultural_sensitivity": 1.3,
}

// Generator is the slice of the gateway the engine uses for referee calls.
type Generator interface {
	GenerateWithFailover(ctx context.Context, req *models.GenerateRequest, order []string) *models.ProviderResponse
}

// refereeVerdict is the JSON shape the referee prompt asks for. Confidence
// is a pointer so a verdict that omits it falls back to 0.5.
type refereeVerdict struct {
	ConsensusStrength     float64  `json:"consensus_strength"`
	AgreementAreas        []string `json:"agreement_areas"`
	DisagreementAreas     []string `json:"disagreement_areas"`
	SynthesizedConclusion string   `json:"synthesized_conclusion"`
	Confidence            *float64 `json:"confidence"`
	ValidationNeeded      []string `json:"validation_needed"`
	PotentialBiases       []string `json:"potential_biases"`
}

// Engine validates consensus, votes and ranks principles. Stateless apart
// from its configuration; safe for concurrent use.
type Engine struct {
	gen     Generator
	cfg     config.ConsensusConfig
	weights map[string]float64
	logger  *logrus.Logger
}

// NewEngine builds an engine. weights maps provider name to voting weight;
// nil uses the built-in defaults.
func NewEngine(gen Generator, cfg config.ConsensusConfig, weights map[string]float64, logger *logrus.Logger) *Engine {
	metrics.Init()
	if len(weights) == 0 {
		weights = defaultWeights
	}
	return &Engine{gen: gen, cfg: cfg, weights: weights, logger: logger}
}

// ValidateConsensus judges agreement among the successful responses.
func (e *Engine) ValidateConsensus(ctx context.Context, responses []*models.ProviderResponse) *models.ConsensusResult {
	result := e.validateConsensus(ctx, responses)
	metrics.ConsensusValidations.WithLabelValues(result.Method).Inc()
	return result
}

func (e *Engine) validateConsensus(ctx context.Context, responses []*models.ProviderResponse) *models.ConsensusResult {
	successful := successfulResponses(responses)

	if len(successful) == 0 {
		return &models.ConsensusResult{
			Method:         MethodNone,
			FallbackReason: "no successful responses to validate",
		}
	}

	if len(successful) == 1 {
		return &models.ConsensusResult{
			Valid:          true,
			Method:         MethodSingle,
			Confidence:     1.0,
			Consensus:      successful[0].Content,
			AgreementScore: 1.0,
		}
	}

	texts := make([]string, len(successful))
	for i, r := range successful {
		texts[i] = r.Content
	}

	req := &models.GenerateRequest{
		Prompt:      prompts.ConsensusValidation(texts),
		MaxTokens:   e.cfg.RefereeMaxTokens,
		Temperature: e.cfg.RefereeTemperature,
	}
	refereeResp := e.gen.GenerateWithFailover(ctx, req, []string{e.cfg.RefereeProvider})
	if !refereeResp.Success {
		e.logger.WithFields(logrus.Fields{
			"referee": e.cfg.RefereeProvider,
			"error":   refereeResp.Error,
		}).Warn("Referee unavailable, falling back to simple consensus")
		result := simpleConsensus(successful)
		result.FallbackReason = "referee unavailable"
		return result
	}

	var verdict refereeVerdict
	if err := structured.DecodeInto(refereeResp.Content, &verdict); err != nil {
		e.logger.WithFields(logrus.Fields{
			"referee": e.cfg.RefereeProvider,
			"error":   err.Error(),
		}).Warn("Referee verdict unparseable, falling back to simple consensus")
		result := simpleConsensus(successful)
		result.FallbackReason = "referee verdict unparseable"
		return result
	}

	confidence := 0.5
	if verdict.Confidence != nil {
		confidence = models.Clamp01(*verdict.Confidence)
	}

	return &models.ConsensusResult{
		Valid:             verdict.ConsensusStrength > 0.7,
		Method:            MethodReferee,
		Confidence:        confidence,
		Consensus:         verdict.SynthesizedConclusion,
		AgreementScore:    models.Clamp01(verdict.ConsensusStrength),
		AgreementAreas:    verdict.AgreementAreas,
		DisagreementAreas: verdict.DisagreementAreas,
		PotentialBiases:   verdict.PotentialBiases,
	}
}

// WeightedVoting accumulates provider weights per distinct answer and
// declares the winner valid when it holds a strict majority of the weight.
// nil weights use the engine's configured defaults.
func (e *Engine) WeightedVoting(responses []*models.ProviderResponse, weights map[string]float64) *models.ConsensusResult {
	if len(responses) == 0 {
		return &models.ConsensusResult{
			Method:         MethodWeighted,
			FallbackReason: "no responses provided",
		}
	}
	if len(weights) == 0 {
		weights = e.weights
	}

	weightedScores := make(map[string]float64)
	totalWeight := 0.0
	for _, r := range responses {
		if r == nil || !r.Success || r.Content == "" {
			continue
		}
		weight, ok := weights[r.Provider]
		if !ok {
			weight = unknownProviderWeight
		}
		weightedScores[r.Content] += weight
		totalWeight += weight
	}

	if len(weightedScores) == 0 {
		return &models.ConsensusResult{
			Method:         MethodWeighted,
			FallbackReason: "no valid responses for weighted voting",
		}
	}

	// Walk responses in order so ties go to the earliest answer.
	var best string
	bestScore := -1.0
	for _, r := range responses {
		if r == nil || !r.Success || r.Content == "" {
			continue
		}
		if score := weightedScores[r.Content]; score > bestScore {
			best = r.Content
			bestScore = score
		}
	}

	confidence := 0.0
	if totalWeight > 0 {
		confidence = models.Clamp01(bestScore / totalWeight)
	}

	metrics.ConsensusValidations.WithLabelValues(MethodWeighted).Inc()
	return &models.ConsensusResult{
		Valid:          confidence > 0.5,
		Method:         MethodWeighted,
		Confidence:     confidence,
		Consensus:      best,
		WeightedScores: weightedScores,
		TotalWeight:    totalWeight,
	}
}

// ResolveConflict classifies how much the responses disagree and picks the
// strategy to resolve them. High conflict escalates to expert validation.
func (e *Engine) ResolveConflict(responses []*models.ProviderResponse) *models.ConflictResolution {
	if len(responses) < 2 {
		return &models.ConflictResolution{Resolved: true, Confidence: 1.0}
	}

	distinct := make(map[string]struct{})
	for _, r := range responses {
		content := ""
		if r != nil {
			content = r.Content
		}
		distinct[content] = struct{}{}
	}
	conflictLevel := float64(len(distinct)) / float64(len(responses))

	var strategy string
	var confidence float64
	switch {
	case conflictLevel < 0.3:
		strategy = StrategySimpleConsensus
		confidence = 0.8
	case conflictLevel < 0.7:
		strategy = StrategyWeightedVoting
		confidence = 0.6
	default:
		strategy = StrategyExpertValidation
		confidence = 0.4
	}

	return &models.ConflictResolution{
		Resolved:      true,
		Strategy:      strategy,
		ConflictLevel: conflictLevel,
		Confidence:    confidence,
	}
}

// RankPrinciples orders principles by composite score. Safety and cultural
// sensitivity categories carry extra weight. The input slice is not
// modified.
func (e *Engine) RankPrinciples(principles []models.Principle) []models.Principle {
	if len(principles) == 0 {
		return []models.Principle{}
	}

	ranked := make([]models.Principle, len(principles))
	copy(ranked, principles)

	for i := range ranked {
		multiplier, ok := categoryWeights[ranked[i].Category]
		if !ok {
			multiplier = 1.0
		}
		score := ranked[i].ConfidenceScore + ranked[i].ValidationScore*0.2 + ranked[i].ConsistencyScore*0.1
		ranked[i].CompositeScore = score * multiplier
	}

	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].CompositeScore > ranked[b].CompositeScore
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

func simpleConsensus(successful []*models.ProviderResponse) *models.ConsensusResult {
	counts := make(map[string]int)
	best := successful[0].Content
	for _, r := range successful {
		counts[r.Content]++
		if counts[r.Content] > counts[best] {
			best = r.Content
		}
	}
	strength := float64(counts[best]) / float64(len(successful))

	return &models.ConsensusResult{
		Valid:          strength > 0.5,
		Method:         MethodSimple,
		Confidence:     strength,
		Consensus:      best,
		AgreementScore: strength,
	}
}

func successfulResponses(responses []*models.ProviderResponse) []*models.ProviderResponse {
	successful := make([]*models.ProviderResponse, 0, len(responses))
	for _, r := range responses {
		if r != nil && r.Success {
			successful = append(successful, r)
		}
	}
	return successful
}
