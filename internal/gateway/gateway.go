// Package gateway routes generation requests to the configured providers
// with per-provider rate limiting, response caching, ordered failover and
// concurrent fan-out.
package gateway

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ArjavDesa912/ConstitutionalFlow/internal/cache"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/config"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/metrics"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/models"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/providers"
)

// Gateway fronts the provider registry. Single-provider failures surface
// as failed ProviderResponses rather than errors so fan-out callers can
// aggregate without error plumbing.
type Gateway struct {
	registry       *providers.Registry
	cache          cache.Cache
	limiters       map[string]*IntervalLimiter
	cacheTTL       time.Duration
	requestTimeout time.Duration
	logger         *logrus.Logger
}

// ConsensusResponse aggregates a fan-out into a single answer. Confidence
// is the fraction of configured providers that answered successfully.
type ConsensusResponse struct {
	Consensus  string                     `json:"consensus"`
	Responses  []*models.ProviderResponse `json:"responses"`
	Confidence float64                    `json:"confidence"`
	Success    bool                       `json:"success"`
}

// New builds a gateway over the registered providers. store may be nil to
// run without response caching.
func New(registry *providers.Registry, store cache.Cache, cfg config.ProvidersConfig, logger *logrus.Logger) *Gateway {
	metrics.Init()

	limiters := make(map[string]*IntervalLimiter)
	for _, name := range registry.Names() {
		rps := 0
		if pc, ok := cfg.Providers[name]; ok {
			rps = int(pc.RateLimitRPS)
		}
		limiters[name] = NewIntervalLimiter(rps)
	}

	return &Gateway{
		registry:       registry,
		cache:          store,
		limiters:       limiters,
		cacheTTL:       cfg.CacheTTL,
		requestTimeout: cfg.RequestTimeout,
		logger:         logger,
	}
}

// Providers returns the configured provider names in failover order.
func (g *Gateway) Providers() []string {
	return g.registry.Names()
}

// Generate calls a single provider after its rate-limit slot arrives.
func (g *Gateway) Generate(ctx context.Context, provider string, req *models.GenerateRequest) *models.ProviderResponse {
	p, ok := g.registry.Get(provider)
	if !ok {
		return failedResponse(provider, fmt.Errorf("unknown provider %q", provider))
	}

	if limiter, ok := g.limiters[provider]; ok {
		if err := limiter.Wait(ctx); err != nil {
			return failedResponse(provider, err)
		}
	}

	start := time.Now()
	resp, err := p.Generate(ctx, req)
	if err != nil {
		metrics.ProviderRequests.WithLabelValues(provider, "error").Inc()
		g.logger.WithFields(logrus.Fields{
			"provider": provider,
			"error":    err.Error(),
		}).Warn("Provider request failed")
		return failedResponse(provider, err)
	}

	metrics.ProviderRequests.WithLabelValues(provider, "success").Inc()
	metrics.ProviderLatency.WithLabelValues(provider).Observe(time.Since(start).Seconds())
	return resp
}

// GenerateWithFailover walks order until one provider succeeds. Successful
// responses are cached; a later identical request is served from cache with
// Cached set. An empty order means the configured failover order.
func (g *Gateway) GenerateWithFailover(ctx context.Context, req *models.GenerateRequest, order []string) *models.ProviderResponse {
	if len(order) == 0 {
		order = g.registry.Names()
	}

	key := cacheKey(req, order)
	if g.cache != nil {
		var cached models.ProviderResponse
		hit, err := g.cache.Get(ctx, key, &cached)
		if err != nil {
			g.logger.WithField("error", err.Error()).Warn("Response cache lookup failed")
		}
		if hit {
			metrics.CacheEvents.WithLabelValues("hit").Inc()
			cached.Cached = true
			g.logger.WithField("cache_key", key).Debug("Using cached provider response")
			return &cached
		}
		metrics.CacheEvents.WithLabelValues("miss").Inc()
	}

	for _, name := range order {
		if _, ok := g.registry.Get(name); !ok {
			continue
		}

		resp := g.Generate(ctx, name, req)
		if !resp.Success {
			g.logger.WithFields(logrus.Fields{
				"provider": name,
				"error":    resp.Error,
			}).Warn("Provider failed, trying next in failover order")
			continue
		}

		if g.cache != nil {
			if err := g.cache.Set(ctx, key, resp, g.cacheTTL); err != nil {
				g.logger.WithField("error", err.Error()).Warn("Response cache write failed")
			}
		}
		return resp
	}

	return failedResponse("none", fmt.Errorf("all providers failed"))
}

// GenerateFromAll fans out to every provider concurrently. Results are
// indexed by failover order regardless of completion order, and each
// provider fails independently.
func (g *Gateway) GenerateFromAll(ctx context.Context, req *models.GenerateRequest) []*models.ProviderResponse {
	if g.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.requestTimeout)
		defer cancel()
	}

	names := g.registry.Names()
	results := make([]*models.ProviderResponse, len(names))

	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			results[i] = g.Generate(ctx, name, req)
		}(i, name)
	}
	wg.Wait()

	return results
}

// GenerateConsensus fans out and selects the most common successful answer.
// Ties go to the provider earliest in failover order.
func (g *Gateway) GenerateConsensus(ctx context.Context, req *models.GenerateRequest) *ConsensusResponse {
	all := g.GenerateFromAll(ctx, req)

	succeeded := make([]*models.ProviderResponse, 0, len(all))
	for _, r := range all {
		if r != nil && r.Success {
			succeeded = append(succeeded, r)
		}
	}

	if len(succeeded) == 0 {
		g.logger.Warn("Consensus generation got no successful responses")
		return &ConsensusResponse{Responses: []*models.ProviderResponse{}}
	}

	contents := make([]string, len(succeeded))
	for i, r := range succeeded {
		contents[i] = r.Content
	}

	confidence := 0.0
	if total := g.registry.Len(); total > 0 {
		confidence = float64(len(succeeded)) / float64(total)
	}

	return &ConsensusResponse{
		Consensus:  mostCommon(contents),
		Responses:  succeeded,
		Confidence: confidence,
		Success:    true,
	}
}

func failedResponse(provider string, err error) *models.ProviderResponse {
	return &models.ProviderResponse{
		Provider: provider,
		Success:  false,
		Error:    err.Error(),
	}
}

func cacheKey(req *models.GenerateRequest, order []string) string {
	hashInput := fmt.Sprintf("%s|%s|%d|%g|%s",
		req.Prompt, req.Model, req.MaxTokens, req.Temperature, strings.Join(order, ","))
	hash := sha256.Sum256([]byte(hashInput))
	return fmt.Sprintf("api_response:%x", hash[:8])
}

// mostCommon returns the most frequent string, first occurrence winning
// ties.
func mostCommon(contents []string) string {
	if len(contents) == 0 {
		return ""
	}
	counts := make(map[string]int)
	best := contents[0]
	for _, c := range contents {
		counts[c]++
		if counts[c] > counts[best] {
			best = c
		}
	}
	return best
}
