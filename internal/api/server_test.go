package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArjavDesa912/ConstitutionalFlow/internal/analytics"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/annotators"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/cache"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/config"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/consensus"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/evolution"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/gateway"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/models"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/quality"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/router"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/storage"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/storage/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubGenerator serves every engine behind the server. Prompts are routed to
// canned responses by the JSON field names their templates ask for; anything
// unset degrades to a provider failure, which the engines absorb with their
// heuristic fallbacks.
type stubGenerator struct {
	mu         sync.Mutex
	analysis   *models.ProviderResponse
	prediction *models.ProviderResponse
	validation *models.ProviderResponse
	referee    *models.ProviderResponse
	consensus  *gateway.ConsensusResponse
}

func (s *stubGenerator) GenerateWithFailover(_ context.Context, req *models.GenerateRequest, _ []string) *models.ProviderResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case strings.Contains(req.Prompt, "skill_match_score"):
		return orFailed(s.prediction)
	case strings.Contains(req.Prompt, "is_valid"):
		return orFailed(s.validation)
	case strings.Contains(req.Prompt, "consensus_strength"):
		return orFailed(s.referee)
	default:
		return orFailed(s.analysis)
	}
}

func (s *stubGenerator) GenerateConsensus(_ context.Context, _ *models.GenerateRequest) *gateway.ConsensusResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.consensus == nil {
		return &gateway.ConsensusResponse{}
	}
	return s.consensus
}

func orFailed(resp *models.ProviderResponse) *models.ProviderResponse {
	if resp == nil {
		return failedResponse()
	}
	return resp
}

func failedResponse() *models.ProviderResponse {
	return &models.ProviderResponse{Provider: "none", Error: "all providers failed"}
}

func modelResponse(content string) *models.ProviderResponse {
	return &models.ProviderResponse{Provider: "openai", Content: content, Success: true}
}

func newTestServer(gen *stubGenerator) (*gin.Engine, *storage.Stores) {
	logger := log.New()
	logger.SetLevel(log.PanicLevel)

	stores := memory.NewStores()

	consensusEngine := consensus.NewEngine(gen, config.ConsensusConfig{
		RefereeProvider:    "anthropic",
		RefereeMaxTokens:   1500,
		RefereeTemperature: 0.2,
	}, nil, logger)

	evolutionEngine := evolution.NewEngine(gen, stores, cache.NewMemoryCache(), config.EvolutionConfig{
		HistoricalLimit:       20,
		HistoricalCacheTTL:    time.Hour,
		ValidationProviders:   []string{"openai", "anthropic"},
		ValidationConcurrency: 4,
	}, logger)

	taskRouter := router.NewRouter(gen, stores, config.RouterConfig{
		AnalysisProviders:   []string{"openai", "anthropic"},
		PredictionProviders: []string{"openai"},
	}, logger)

	predictor := quality.NewPredictor(stores, config.QualityConfig{MinTrainingSamples: 50}, logger)
	manager := annotators.NewManager(stores, logger)
	reports := analytics.NewService(stores, logger)

	server := NewServer(Dependencies{
		Router:     taskRouter,
		Consensus:  consensusEngine,
		Evolution:  evolutionEngine,
		Predictor:  predictor,
		Annotators: manager,
		Analytics:  reports,
		Stores:     stores,
	}, logger)
	return server.Routes(), stores
}

// doRequest serves one request against the full route table. A nil body
// sends no payload at all.
func doRequest(t *testing.T, engine *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func availableAnnotator(id string, skills map[string]float64) *models.Annotator {
	return &models.Annotator{
		AnnotatorID:        id,
		SkillScores:        skills,
		AvailabilityStatus: models.AvailabilityAvailable,
	}
}

func TestHealthEndpoint(t *testing.T) {
	engine, _ := newTestServer(&stubGenerator{})

	w := doRequest(t, engine, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	body := decodeJSON(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "constitutionalflow", body["service"])
	assert.NotEmpty(t, body["version"])
	assert.Greater(t, body["timestamp"].(float64), float64(0))
}

func TestMetricsEndpoint(t *testing.T) {
	engine, _ := newTestServer(&stubGenerator{})

	w := doRequest(t, engine, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestUnknownRouteReturns404(t *testing.T) {
	engine, _ := newTestServer(&stubGenerator{})

	w := doRequest(t, engine, http.MethodGet, "/api/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
