package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArjavDesa912/ConstitutionalFlow/internal/models"
)

func TestPredictQualityEndpoint(t *testing.T) {
	engine, stores := newTestServer(&stubGenerator{})

	require.NoError(t, stores.Tasks.Create(context.Background(), &models.Task{
		TaskID:          "task_1",
		Content:         "Check these answers.",
		TaskType:        "qa",
		ComplexityScore: 0.5,
		Status:          models.TaskStatusPending,
	}))
	require.NoError(t, stores.Annotators.Insert(context.Background(), availableAnnotator("ann_1", map[string]float64{"qa": 0.9})))

	w := doRequest(t, engine, http.MethodPost, "/api/quality/predict", map[string]interface{}{
		"task_id":      "task_1",
		"annotator_id": "ann_1",
	})
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeJSON(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, false, body["trained"])

	prediction := body["prediction"].(map[string]interface{})
	predicted := prediction["predicted_quality"].(float64)
	assert.Greater(t, predicted, 0.0)
	assert.LessOrEqual(t, predicted, 1.0)
	assert.Contains(t, prediction, "confidence")
	assert.Contains(t, prediction, "anomaly_score")
}

func TestPredictQualityNotFound(t *testing.T) {
	engine, stores := newTestServer(&stubGenerator{})

	w := doRequest(t, engine, http.MethodPost, "/api/quality/predict", map[string]interface{}{
		"task_id":      "task_ghost",
		"annotator_id": "ann_1",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	require.NoError(t, stores.Tasks.Create(context.Background(), &models.Task{
		TaskID:   "task_1",
		Content:  "Check these answers.",
		TaskType: "qa",
		Status:   models.TaskStatusPending,
	}))

	w = doRequest(t, engine, http.MethodPost, "/api/quality/predict", map[string]interface{}{
		"task_id":      "task_1",
		"annotator_id": "ann_ghost",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPredictQualityValidation(t *testing.T) {
	engine, _ := newTestServer(&stubGenerator{})

	w := doRequest(t, engine, http.MethodPost, "/api/quality/predict", map[string]interface{}{
		"task_id": "task_1",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRetrainEndpoint(t *testing.T) {
	engine, _ := newTestServer(&stubGenerator{})

	// Nowhere near enough scored history, the rule-based path stays active.
	w := doRequest(t, engine, http.MethodPost, "/api/quality/retrain", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeJSON(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, false, body["trained"])
}
