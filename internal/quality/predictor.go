package quality

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ArjavDesa912/ConstitutionalFlow/internal/config"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/metrics"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/models"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/storage"
)

const (
	// trainingSampleLimit caps how many scored samples one training pass
	// loads.
	trainingSampleLimit = 1000

	ridgeLambda = 0.1
)

// errInsufficientData keeps the predictor on the rule-based path until
// enough scored history accumulates. Callers never see it.
var errInsufficientData = errors.New("insufficient training data")

// Predictor estimates the quality an annotator will deliver on a task.
type Predictor struct {
	tasks      storage.TaskStore
	annotators storage.AnnotatorStore
	feedback   storage.FeedbackStore
	match      MatchStrategy
	cfg        config.QualityConfig
	log        *logrus.Logger
	now        func() time.Time

	mu     sync.RWMutex
	scaler *standardizer
	model  *linearModel
}

func NewPredictor(stores *storage.Stores, cfg config.QualityConfig, log *logrus.Logger) *Predictor {
	metrics.Init()
	return &Predictor{
		tasks:      stores.Tasks,
		annotators: stores.Annotators,
		feedback:   stores.Feedback,
		match:      keywordMatcher{},
		cfg:        cfg,
		log:        log,
		now:        time.Now,
	}
}

// Predict scores a (task, annotator) pair. The model trains itself on the
// first call once enough scored feedback exists; before that the estimate
// is rule-based. Prediction never fails: bad input produces the neutral
// fallback instead of an error.
func (p *Predictor) Predict(ctx context.Context, task *models.Task, annotator *models.Annotator) *models.QualityPrediction {
	if task == nil || annotator == nil {
		p.log.Warn("Quality prediction requested without a task or annotator")
		metrics.QualityPredictions.WithLabelValues("failed").Inc()
		return failedPrediction()
	}

	if err := p.ensureTrained(ctx); err != nil && !errors.Is(err, errInsufficientData) {
		p.log.WithError(err).Warn("Quality model training failed")
	}

	f := p.features(task, annotator)

	p.mu.RLock()
	scaler, model := p.scaler, p.model
	p.mu.RUnlock()

	var predicted, anomaly float64
	mode := "rule"
	if model != nil {
		z := scaler.transform(f.vector())
		predicted = clamp01(model.predict(z))
		anomaly = anomalyScore(z)
		mode = "model"
	} else {
		predicted = f.ruleBasedQuality()
		anomaly = 0.5
	}
	metrics.QualityPredictions.WithLabelValues(mode).Inc()

	return &models.QualityPrediction{
		PredictedQuality: predicted,
		AnomalyScore:     anomaly,
		Confidence:       predictionConfidence(model != nil, f),
		RiskFactors:      riskFactors(f),
		Recommendations:  recommendations(predicted, f),
	}
}

// PredictPair looks up the task and annotator by their public IDs and
// predicts the pairing. Unknown IDs surface as storage.ErrNotFound.
func (p *Predictor) PredictPair(ctx context.Context, taskID, annotatorID string) (*models.QualityPrediction, error) {
	task, err := p.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to load task %s: %w", taskID, err)
	}
	annotator, err := p.annotators.Get(ctx, annotatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load annotator %s: %w", annotatorID, err)
	}
	return p.Predict(ctx, task, annotator), nil
}

// Trained reports whether the regression model is currently fitted.
func (p *Predictor) Trained() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.model != nil
}

// Retrain discards the fitted model and rebuilds it from current feedback.
// Too little scored history leaves the predictor on the rule-based path
// without error.
func (p *Predictor) Retrain(ctx context.Context) error {
	p.mu.Lock()
	p.scaler = nil
	p.model = nil
	p.mu.Unlock()

	if err := p.train(ctx); err != nil && !errors.Is(err, errInsufficientData) {
		return err
	}
	return nil
}

func (p *Predictor) ensureTrained(ctx context.Context) error {
	p.mu.RLock()
	trained := p.model != nil
	p.mu.RUnlock()
	if trained {
		return nil
	}
	return p.train(ctx)
}

func (p *Predictor) train(ctx context.Context) error {
	rows, targets, err := p.trainingSet(ctx)
	if err != nil {
		return err
	}
	if len(rows) < p.minSamples() {
		p.log.WithField("samples", len(rows)).Debug("Insufficient training data for quality model")
		return errInsufficientData
	}

	split := len(rows) - len(rows)/5
	trainRows, testRows := rows[:split], rows[split:]
	trainTargets, testTargets := targets[:split], targets[split:]

	scaler := fitStandardizer(trainRows)
	scaled := make([][]float64, len(trainRows))
	for i, r := range trainRows {
		scaled[i] = scaler.transform(r)
	}

	model, err := fitLinearModel(scaled, trainTargets, ridgeLambda)
	if err != nil {
		return fmt.Errorf("failed to fit quality model: %w", err)
	}

	scaledTest := make([][]float64, len(testRows))
	for i, r := range testRows {
		scaledTest[i] = scaler.transform(r)
	}

	p.mu.Lock()
	p.scaler = scaler
	p.model = model
	p.mu.Unlock()

	p.log.WithFields(logrus.Fields{
		"samples":     len(rows),
		"train_score": rSquared(model, scaled, trainTargets),
		"test_score":  rSquared(model, scaledTest, testTargets),
	}).Info("Quality model trained")
	return nil
}

// trainingSet joins scored feedback back to its task and annotator rows.
// Samples whose task or annotator no longer exists are skipped.
func (p *Predictor) trainingSet(ctx context.Context) ([][]float64, []float64, error) {
	samples, err := p.feedback.ListScored(ctx, trainingSampleLimit)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load scored feedback: %w", err)
	}

	rows := make([][]float64, 0, len(samples))
	targets := make([]float64, 0, len(samples))
	for _, s := range samples {
		task, err := p.tasks.Get(ctx, s.TaskID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return nil, nil, err
		}
		annotator, err := p.annotators.Get(ctx, s.AnnotatorID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return nil, nil, err
		}

		f := p.features(task, annotator)
		rows = append(rows, f.vector())
		targets = append(targets, *s.QualityScore)
	}
	return rows, targets, nil
}

func (p *Predictor) minSamples() int {
	if p.cfg.MinTrainingSamples > 0 {
		return p.cfg.MinTrainingSamples
	}
	return 50
}

// predictionConfidence reflects how much to trust the estimate: a trained
// model adds 0.3 and complete features add up to 0.2 over the 0.5 base.
func predictionConfidence(trained bool, f featureVector) float64 {
	conf := 0.5
	if trained {
		conf += 0.3
	}
	conf += 0.2 * f.completeness()
	return clamp01(conf)
}

func riskFactors(f featureVector) []string {
	var risks []string
	if f.TaskComplexity > 0.8 {
		risks = append(risks, "High task complexity")
	}
	if f.AnnotatorExperience < 0.3 {
		risks = append(risks, "Low annotator experience")
	}
	if f.AnnotatorFatigue > 0.7 {
		risks = append(risks, "High annotator fatigue")
	}
	if f.CulturalMatch < 0.4 {
		risks = append(risks, "Poor cultural match")
	}
	if f.LanguageMatch < 0.4 {
		risks = append(risks, "Poor language match")
	}
	if len(risks) == 0 {
		risks = append(risks, "No significant risks identified")
	}
	return risks
}

func recommendations(predicted float64, f featureVector) []string {
	var recs []string
	if predicted < 0.6 {
		recs = append(recs, "Consider manual review for quality assurance")
	}
	if f.TaskComplexity > 0.8 {
		recs = append(recs, "Consider assigning to more experienced annotator")
	}
	if f.AnnotatorFatigue > 0.7 {
		recs = append(recs, "Consider giving annotator a break")
	}
	if f.CulturalMatch < 0.4 {
		recs = append(recs, "Consider cultural context training")
	}
	if len(recs) == 0 {
		recs = append(recs, "No specific recommendations")
	}
	return recs
}

func failedPrediction() *models.QualityPrediction {
	return &models.QualityPrediction{
		PredictedQuality: 0.5,
		AnomalyScore:     0.5,
		Confidence:       0.3,
		RiskFactors:      []string{"Prediction failed"},
		Recommendations:  []string{"Use manual review"},
	}
}
