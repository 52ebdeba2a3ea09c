package api

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// registerAnnotator drives POST /api/annotators.
func registerAnnotator(t *testing.T, engine *gin.Engine, id string, skills map[string]float64) {
	t.Helper()

	w := doRequest(t, engine, http.MethodPost, "/api/annotators", map[string]interface{}{
		"annotator_id": id,
		"skill_scores": skills,
	})
	require.Equal(t, http.StatusCreated, w.Code)
}

func TestRegisterAnnotatorEndpoint(t *testing.T) {
	engine, _ := newTestServer(&stubGenerator{})

	w := doRequest(t, engine, http.MethodPost, "/api/annotators", map[string]interface{}{
		"annotator_id":        "ann_1",
		"skill_scores":        map[string]float64{"translation": 0.9},
		"cultural_background": "es-MX",
		"languages":           []string{"es", "en"},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	body := decodeJSON(t, w)
	assert.Equal(t, true, body["success"])
	annotator := body["annotator"].(map[string]interface{})
	assert.Equal(t, "ann_1", annotator["annotator_id"])
	assert.Equal(t, "available", annotator["availability_status"])

	// Same ID again is a conflict.
	w = doRequest(t, engine, http.MethodPost, "/api/annotators", map[string]interface{}{
		"annotator_id": "ann_1",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRegisterAnnotatorValidation(t *testing.T) {
	engine, _ := newTestServer(&stubGenerator{})

	w := doRequest(t, engine, http.MethodPost, "/api/annotators", map[string]interface{}{
		"skill_scores": map[string]float64{"qa": 0.8},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeJSON(t, w)["error"], "annotator_id")

	w = doRequest(t, engine, http.MethodPost, "/api/annotators", map[string]interface{}{
		"annotator_id": "ann_bad",
		"skill_scores": map[string]float64{"qa": 1.5},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListAnnotatorsEndpoint(t *testing.T) {
	engine, _ := newTestServer(&stubGenerator{})
	registerAnnotator(t, engine, "ann_1", map[string]float64{"qa": 0.8})
	registerAnnotator(t, engine, "ann_2", map[string]float64{"translation": 0.9})

	w := doRequest(t, engine, http.MethodPut, "/api/annotators/ann_2/availability", map[string]interface{}{
		"availability_status": "busy",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, engine, http.MethodGet, "/api/annotators", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decodeJSON(t, w)["count"])

	w = doRequest(t, engine, http.MethodGet, "/api/annotators?status=busy", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeJSON(t, w)
	assert.Equal(t, float64(1), body["count"])
	listed := body["annotators"].([]interface{})
	assert.Equal(t, "ann_2", listed[0].(map[string]interface{})["annotator_id"])

	w = doRequest(t, engine, http.MethodGet, "/api/annotators?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decodeJSON(t, w)["count"])
}

func TestAnnotatorProfileEndpoint(t *testing.T) {
	engine, _ := newTestServer(&stubGenerator{})
	registerAnnotator(t, engine, "ann_1", map[string]float64{"qa": 0.8})

	w := doRequest(t, engine, http.MethodGet, "/api/annotators/ann_1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	profile := decodeJSON(t, w)["profile"].(map[string]interface{})
	assert.Equal(t, "ann_1", profile["annotator_id"])
	assert.Contains(t, profile, "recent_tasks")
	assert.Contains(t, profile, "performance_metrics")

	w = doRequest(t, engine, http.MethodGet, "/api/annotators/ann_ghost", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateAvailabilityEndpoint(t *testing.T) {
	engine, _ := newTestServer(&stubGenerator{})
	registerAnnotator(t, engine, "ann_1", map[string]float64{"qa": 0.8})

	w := doRequest(t, engine, http.MethodPut, "/api/annotators/ann_1/availability", map[string]interface{}{
		"availability_status": "on_break",
	})
	require.Equal(t, http.StatusOK, w.Code)
	annotator := decodeJSON(t, w)["annotator"].(map[string]interface{})
	assert.Equal(t, "on_break", annotator["availability_status"])

	w = doRequest(t, engine, http.MethodPut, "/api/annotators/ann_1/availability", map[string]interface{}{
		"availability_status": "napping",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, engine, http.MethodPut, "/api/annotators/ann_1/availability", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, engine, http.MethodPut, "/api/annotators/ann_ghost/availability", map[string]interface{}{
		"availability_status": "busy",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateSkillsEndpoint(t *testing.T) {
	engine, _ := newTestServer(&stubGenerator{})
	registerAnnotator(t, engine, "ann_1", map[string]float64{"qa": 0.8})

	w := doRequest(t, engine, http.MethodPut, "/api/annotators/ann_1/skills", map[string]interface{}{
		"skill_scores": map[string]float64{"translation": 0.7},
	})
	require.Equal(t, http.StatusOK, w.Code)

	annotator := decodeJSON(t, w)["annotator"].(map[string]interface{})
	skills := annotator["skill_scores"].(map[string]interface{})
	// New scores merge in beside the existing ones.
	assert.InDelta(t, 0.8, skills["qa"].(float64), 1e-9)
	assert.InDelta(t, 0.7, skills["translation"].(float64), 1e-9)

	w = doRequest(t, engine, http.MethodPut, "/api/annotators/ann_1/skills", map[string]interface{}{
		"skill_scores": map[string]float64{"qa": 1.5},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeactivateAnnotatorEndpoint(t *testing.T) {
	engine, _ := newTestServer(&stubGenerator{})
	registerAnnotator(t, engine, "ann_1", map[string]float64{"qa": 0.8})

	w := doRequest(t, engine, http.MethodDelete, "/api/annotators/ann_1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeJSON(t, w)
	assert.Equal(t, "ann_1", body["annotator_id"])
	assert.Equal(t, "unavailable", body["availability_status"])

	w = doRequest(t, engine, http.MethodGet, "/api/annotators?status=available", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decodeJSON(t, w)["count"])
}

func TestFindMatchesEndpoint(t *testing.T) {
	engine, _ := newTestServer(&stubGenerator{})
	registerAnnotator(t, engine, "ann_strong", map[string]float64{"translation": 0.95})
	registerAnnotator(t, engine, "ann_weak", map[string]float64{"translation": 0.7})
	registerAnnotator(t, engine, "ann_other", map[string]float64{"qa": 0.9})

	w := doRequest(t, engine, http.MethodGet, "/api/annotators/matching?required_skills=translation", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeJSON(t, w)
	assert.Equal(t, float64(2), body["count"])

	matches := body["matches"].([]interface{})
	first := matches[0].(map[string]interface{})
	assert.Equal(t, "ann_strong", first["annotator_id"])
	// 0.95*0.4 over skill+performance weight 0.5.
	assert.InDelta(t, 0.76, first["match_score"].(float64), 1e-9)
	assert.Equal(t, "ann_weak", matches[1].(map[string]interface{})["annotator_id"])
}

func TestAnnotatorAnalyticsEndpoint(t *testing.T) {
	engine, _ := newTestServer(&stubGenerator{})
	registerAnnotator(t, engine, "ann_1", map[string]float64{"qa": 0.8})
	registerAnnotator(t, engine, "ann_2", map[string]float64{"translation": 0.9})

	w := doRequest(t, engine, http.MethodGet, "/api/annotators/analytics?annotator_id=ann_1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	analytics := decodeJSON(t, w)["analytics"].(map[string]interface{})
	assert.Equal(t, "ann_1", analytics["annotator_id"])
	assert.Equal(t, "available", analytics["availability_status"])

	w = doRequest(t, engine, http.MethodGet, "/api/annotators/analytics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decodeJSON(t, w)["count"])

	w = doRequest(t, engine, http.MethodGet, "/api/annotators/analytics?annotator_id=ann_ghost", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPerformanceReportEndpoint(t *testing.T) {
	engine, _ := newTestServer(&stubGenerator{})
	registerAnnotator(t, engine, "ann_1", map[string]float64{"qa": 0.8})

	w := doRequest(t, engine, http.MethodGet, "/api/annotators/ann_1/performance", nil)
	require.Equal(t, http.StatusOK, w.Code)

	report := decodeJSON(t, w)["report"].(map[string]interface{})
	assert.Equal(t, "ann_1", report["annotator_id"])
	assert.Equal(t, float64(30), report["days"])
	assert.Equal(t, float64(0), report["total_tasks"])

	w = doRequest(t, engine, http.MethodGet, "/api/annotators/ann_1/performance?days=7", nil)
	require.Equal(t, http.StatusOK, w.Code)
	report = decodeJSON(t, w)["report"].(map[string]interface{})
	assert.Equal(t, float64(7), report["days"])

	w = doRequest(t, engine, http.MethodGet, "/api/annotators/ann_ghost/performance", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
