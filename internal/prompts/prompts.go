// Package prompts builds the model prompts used by the evolution, router,
// quality and consensus engines. Every template instructs the model to
// answer with a JSON object so responses can be decoded by the structured
// package.
package prompts

import (
	"fmt"
	"strings"

	"github.com/ArjavDesa912/ConstitutionalFlow/internal/models"
)

// PrincipleExtraction asks the model to mine a feedback batch for the
// implicit behavioral principles behind it.
func PrincipleExtraction(samples []models.FeedbackSample) string {
	parts := make([]string, len(samples))
	for i, s := range samples {
		parts[i] = fmt.Sprintf("Original: %s\nFeedback: %s\nType: %s\n",
			s.OriginalContent, s.HumanFeedback, s.FeedbackType)
	}

	return fmt.Sprintf(`Analyze the following human feedback samples and extract implicit constitutional principles that guide AI behavior.

Feedback Samples:
%s

Instructions:
1. Identify recurring patterns in the feedback
2. Extract general principles that could guide AI behavior
3. Categorize principles by type (safety, helpfulness, honesty, etc.)
4. Provide confidence scores for each principle (0-1)
5. Consider cultural context and sensitivity

Format your response as a JSON object with the following structure:
{
    "principles": [
        {
            "principle_text": "Clear, actionable principle statement",
            "category": "safety|helpfulness|honesty|cultural_sensitivity",
            "confidence_score": 0.85,
            "cultural_context": {"regions": ["global"], "considerations": ["..."]},
            "supporting_evidence": ["specific feedback examples that support this principle"]
        }
    ],
    "summary": "Brief summary of key insights",
    "confidence_overall": 0.8
}`, strings.Join(parts, "\n"))
}

// PrincipleValidation asks the model to check a proposed principle against
// the currently active ones.
func PrincipleValidation(principle models.Principle, historical []models.Principle) string {
	parts := make([]string, len(historical))
	for i, p := range historical {
		parts[i] = fmt.Sprintf("Principle %d: %s (Confidence: %g)", i+1, p.Text, p.ConfidenceScore)
	}

	return fmt.Sprintf(`Validate the following proposed constitutional principle against historical principles and best practices.

Proposed Principle:
%s
Category: %s
Confidence: %g

Historical Principles:
%s

Instructions:
1. Check for consistency with existing principles
2. Identify potential conflicts or contradictions
3. Assess cultural sensitivity and inclusivity
4. Evaluate clarity and actionability
5. Provide specific recommendations for improvement

Format your response as a JSON object:
{
    "is_valid": true/false,
    "confidence_score": 0.85,
    "consistency_score": 0.9,
    "conflicts": ["list of conflicts if any"],
    "recommendations": ["specific improvement suggestions"],
    "cultural_assessment": {"sensitivity": "high|medium|low", "concerns": ["..."]},
    "final_principle": "improved principle text if needed"
}`, principle.Text, principle.Category, principle.ConfidenceScore, strings.Join(parts, "\n"))
}

// TaskComplexityAnalysis asks the model to size up an annotation task.
// The complexity score comes back on a 1-10 scale.
func TaskComplexityAnalysis(content string) string {
	return fmt.Sprintf(`Analyze the complexity of the following annotation task.

Task Content:
%s

Instructions:
1. Assess the cognitive complexity (1-10 scale)
2. Estimate required expertise level (beginner|intermediate|expert)
3. Identify potential challenges or ambiguities
4. Estimate completion time in minutes
5. Suggest optimal annotator characteristics

Format your response as a JSON object:
{
    "complexity_score": 7.5,
    "expertise_level": "intermediate",
    "estimated_time_minutes": 15,
    "challenges": ["list of potential challenges"],
    "required_skills": ["list of required skills"],
    "cultural_considerations": ["any cultural factors to consider"],
    "confidence": 0.85
}`, content)
}

// QualityPrediction asks the model to score an annotator-task pairing.
func QualityPrediction(annotator *models.Annotator, task *models.Task) string {
	return fmt.Sprintf(`Predict the quality of annotation for the following annotator-task pairing.

Annotator Profile:
- Skills: %v
- Performance History: %v
- Cultural Background: %s
- Languages: %v

Task Details:
- Type: %s
- Complexity: %g
- Content: %s...

Instructions:
1. Assess skill-task match (0-1 scale)
2. Predict quality score (0-1 scale)
3. Identify potential issues or risks
4. Suggest alternative annotators if needed
5. Provide confidence in prediction

Format your response as a JSON object:
{
    "skill_match_score": 0.85,
    "predicted_quality": 0.92,
    "confidence": 0.88,
    "risks": ["potential quality issues"],
    "recommendations": ["suggestions for improvement"],
    "alternative_annotators": ["list of better matches if any"]
}`, annotator.SkillScores, annotator.Performance, annotator.CulturalBackground, annotator.Languages,
		task.TaskType, task.ComplexityScore, truncateString(task.Content, 200))
}

// CulturalContextAnalysis asks the model to review content for cultural
// sensitivity. An empty region list means a global audience.
func CulturalContextAnalysis(content string, targetRegions []string) string {
	regions := "global"
	if len(targetRegions) > 0 {
		regions = strings.Join(targetRegions, ", ")
	}

	return fmt.Sprintf(`Analyze the cultural context and sensitivity of the following content for %s audiences.

Content:
%s

Instructions:
1. Identify cultural references and implications
2. Assess potential sensitivity issues
3. Evaluate inclusivity and accessibility
4. Suggest cultural adaptations if needed
5. Provide region-specific considerations

Format your response as a JSON object:
{
    "cultural_references": ["list of cultural elements"],
    "sensitivity_level": "low|medium|high",
    "potential_issues": ["list of potential problems"],
    "inclusivity_score": 0.85,
    "adaptations_needed": ["suggested changes"],
    "region_specific": {
        "region": "specific considerations for each region"
    },
    "overall_assessment": "summary of cultural appropriateness"
}`, regions, content)
}

// ConsensusValidation asks a referee model to judge agreement among
// sibling model responses.
func ConsensusValidation(responses []string) string {
	parts := make([]string, len(responses))
	for i, r := range responses {
		parts[i] = fmt.Sprintf("Response %d: %s", i+1, r)
	}

	return fmt.Sprintf(`Analyze the consensus among the following AI model responses and identify the most reliable conclusion.

Responses:
%s

Instructions:
1. Identify areas of agreement and disagreement
2. Assess the strength of consensus (0-1 scale)
3. Identify potential biases or errors
4. Provide a synthesized conclusion
5. Suggest additional validation if needed

Format your response as a JSON object:
{
    "consensus_strength": 0.85,
    "agreement_areas": ["points of agreement"],
    "disagreement_areas": ["points of disagreement"],
    "synthesized_conclusion": "best combined conclusion",
    "confidence": 0.9,
    "validation_needed": ["additional checks if any"],
    "potential_biases": ["identified biases or errors"]
}`, strings.Join(parts, "\n"))
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
