package providers

import (
	"sync"

	"github.com/ArjavDesa912/ConstitutionalFlow/internal/config"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/providers/anthropic"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/providers/cohere"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/providers/openai"
)

// Registry holds the configured providers. Names preserves registration
// order so fan-out results line up deterministically.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	order     []string
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Name()
	if _, exists := r.providers[name]; !exists {
		r.order = append(r.order, name)
	}
	r.providers[name] = p
}

func (r *Registry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	return p, ok
}

// Names returns registered provider names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}

// NewRegistryFromConfig builds clients for every enabled provider,
// registered in failover order so fan-out order matches configuration.
func NewRegistryFromConfig(cfg config.ProvidersConfig) *Registry {
	reg := NewRegistry()

	for _, name := range cfg.FailoverOrder {
		pc, ok := cfg.Providers[name]
		if !ok || !pc.Enabled {
			continue
		}

		switch name {
		case "openai":
			reg.Register(openai.NewProvider(openai.Config{
				APIKey:      pc.APIKey,
				BaseURL:     pc.BaseURL,
				Model:       pc.Model,
				MaxTokens:   pc.MaxTokens,
				Temperature: pc.Temperature,
				Timeout:     pc.Timeout,
				MaxRetries:  cfg.MaxRetries,
			}))
		case "anthropic":
			reg.Register(anthropic.NewProvider(anthropic.Config{
				APIKey:      pc.APIKey,
				BaseURL:     pc.BaseURL,
				Model:       pc.Model,
				MaxTokens:   pc.MaxTokens,
				Temperature: pc.Temperature,
				Timeout:     pc.Timeout,
				MaxRetries:  cfg.MaxRetries,
			}))
		case "cohere":
			reg.Register(cohere.NewProvider(cohere.Config{
				APIKey:      pc.APIKey,
				BaseURL:     pc.BaseURL,
				Model:       pc.Model,
				MaxTokens:   pc.MaxTokens,
				Temperature: pc.Temperature,
				Timeout:     pc.Timeout,
				MaxRetries:  cfg.MaxRetries,
			}))
		}
	}

	return reg
}
