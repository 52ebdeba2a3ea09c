package models

import "time"

// AnalysisSource tags every AI-assisted result with the path that produced
// it, so callers can tell a model answer from a heuristic fallback.
type AnalysisSource string

const (
	SourceModel     AnalysisSource = "model"
	SourceHeuristic AnalysisSource = "heuristic"
)

// GenerateRequest carries one prompt to an upstream model API. Zero values
// for Model, MaxTokens and Temperature mean "use the provider's configured
// default".
type GenerateRequest struct {
	Prompt      string  `json:"prompt"`
	Model       string  `json:"model,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

type ProviderResponse struct {
	Provider  string `json:"provider"`
	Model     string `json:"model,omitempty"`
	Content   string `json:"content"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
	Cached    bool   `json:"cached,omitempty"`
}

type ConsensusResult struct {
	Valid             bool               `json:"is_valid"`
	Method            string             `json:"method"`
	Confidence        float64            `json:"confidence"`
	Consensus         string             `json:"consensus"`
	AgreementScore    float64            `json:"agreement_score"`
	AgreementAreas    []string           `json:"agreement_areas,omitempty"`
	DisagreementAreas []string           `json:"disagreement_areas,omitempty"`
	PotentialBiases   []string           `json:"potential_biases,omitempty"`
	WeightedScores    map[string]float64 `json:"weighted_scores,omitempty"`
	TotalWeight       float64            `json:"total_weight,omitempty"`
	FallbackReason    string             `json:"fallback_reason,omitempty"`
}

type ConflictResolution struct {
	Resolved      bool    `json:"resolved"`
	Strategy      string  `json:"resolution_strategy"`
	ConflictLevel float64 `json:"conflict_level"`
	Confidence    float64 `json:"confidence"`
}

type Principle struct {
	ID                 int64                  `json:"id" db:"id"`
	Text               string                 `json:"principle_text" db:"principle_text"`
	Category           string                 `json:"category" db:"category"`
	ConfidenceScore    float64                `json:"confidence_score" db:"confidence_score"`
	CulturalContext    map[string]interface{} `json:"cultural_context,omitempty" db:"cultural_context"`
	VersionNumber      int                    `json:"version_number" db:"version_number"`
	Active             bool                   `json:"is_active" db:"is_active"`
	CreatedAt          time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time              `json:"updated_at" db:"updated_at"`
	SupportingEvidence []string               `json:"supporting_evidence,omitempty" db:"-"`
	ValidationScore    float64                `json:"validation_score,omitempty" db:"-"`
	ConsistencyScore   float64                `json:"consistency_score,omitempty" db:"-"`
	CompositeScore     float64                `json:"composite_score,omitempty" db:"-"`
	Rank               int                    `json:"rank,omitempty" db:"-"`
	PreviousConfidence *float64               `json:"previous_confidence,omitempty" db:"-"`
}

type FeedbackSample struct {
	ID              int64                  `json:"id" db:"id"`
	TaskID          string                 `json:"task_id" db:"task_id"`
	OriginalContent string                 `json:"original_content" db:"original_content"`
	HumanFeedback   string                 `json:"human_feedback" db:"human_feedback"`
	FeedbackType    string                 `json:"feedback_type" db:"feedback_type"`
	AnnotatorID     string                 `json:"annotator_id" db:"annotator_id"`
	QualityScore    *float64               `json:"quality_score,omitempty" db:"quality_score"`
	Metadata        map[string]interface{} `json:"metadata,omitempty" db:"metadata"`
	CreatedAt       time.Time              `json:"created_at" db:"created_at"`
}

type PerformanceHistory struct {
	TotalTasks     int       `json:"total_tasks"`
	AverageQuality float64   `json:"average_quality"`
	RecentScores   []float64 `json:"recent_scores"`
	MonthsActive   float64   `json:"months_active"`
}

type Annotator struct {
	ID                 int64              `json:"id" db:"id"`
	AnnotatorID        string             `json:"annotator_id" db:"annotator_id"`
	SkillScores        map[string]float64 `json:"skill_scores" db:"skill_scores"`
	Performance        PerformanceHistory `json:"performance_history" db:"performance_history"`
	CulturalBackground string             `json:"cultural_background" db:"cultural_background"`
	Languages          []string           `json:"languages" db:"languages"`
	AvailabilityStatus AvailabilityStatus `json:"availability_status" db:"availability_status"`
	CreatedAt          time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at" db:"updated_at"`
}

type Task struct {
	ID                  int64      `json:"id" db:"id"`
	TaskID              string     `json:"task_id" db:"task_id"`
	Content             string     `json:"content" db:"content"`
	TaskType            string     `json:"task_type" db:"task_type"`
	ComplexityScore     float64    `json:"complexity_score" db:"complexity_score"`
	EstimatedTime       int        `json:"estimated_time" db:"estimated_time"`
	PriorityLevel       int        `json:"priority_level" db:"priority_level"`
	Status              TaskStatus `json:"status" db:"status"`
	AssignedAnnotatorID string     `json:"assigned_annotator_id,omitempty" db:"assigned_annotator_id"`
	CreatedAt           time.Time  `json:"created_at" db:"created_at"`
	CompletedAt         *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// TaskAnalysis is the outcome of complexity analysis for a new task. Source
// records whether a model produced it or the length heuristic did.
type TaskAnalysis struct {
	ComplexityScore        float64        `json:"complexity_score"`
	ExpertiseLevel         string         `json:"expertise_level"`
	EstimatedTimeMinutes   int            `json:"estimated_time_minutes"`
	Challenges             []string       `json:"challenges,omitempty"`
	RequiredSkills         []string       `json:"required_skills,omitempty"`
	CulturalConsiderations []string       `json:"cultural_considerations,omitempty"`
	Confidence             float64        `json:"confidence"`
	Source                 AnalysisSource `json:"source"`
	FallbackReason         string         `json:"fallback_reason,omitempty"`
}

type QualityPrediction struct {
	PredictedQuality float64  `json:"predicted_quality"`
	AnomalyScore     float64  `json:"anomaly_score"`
	Confidence       float64  `json:"confidence"`
	RiskFactors      []string `json:"risk_factors"`
	Recommendations  []string `json:"recommendations"`
}
