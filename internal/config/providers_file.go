package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// providersFile is the on-disk shape of the optional provider overlay.
// Pointer fields distinguish absent keys from explicit zeros so a partial
// file only touches what it names.
type providersFile struct {
	FailoverOrder  []string                   `yaml:"failover_order"`
	RequestTimeout string                     `yaml:"request_timeout"`
	MaxRetries     *int                       `yaml:"max_retries"`
	CacheTTL       string                     `yaml:"cache_ttl"`
	Providers      map[string]providerOverlay `yaml:"providers"`
}

type providerOverlay struct {
	Enabled      *bool    `yaml:"enabled"`
	APIKey       string   `yaml:"api_key"`
	BaseURL      string   `yaml:"base_url"`
	Model        string   `yaml:"model"`
	MaxTokens    *int     `yaml:"max_tokens"`
	Temperature  *float64 `yaml:"temperature"`
	Weight       *float64 `yaml:"weight"`
	RateLimitRPS *float64 `yaml:"rate_limit_rps"`
	Timeout      string   `yaml:"timeout"`
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// substituteEnvVars replaces ${VAR_NAME} placeholders with environment
// variable values.
func substituteEnvVars(value string) string {
	return envVarPattern.ReplaceAllStringFunc(value, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}

// ApplyProvidersFile overlays provider settings from a YAML file onto cfg.
func ApplyProvidersFile(cfg *Config, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("providers file does not exist: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read providers file: %w", err)
	}

	var file providersFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse providers file: %w", err)
	}

	if len(file.FailoverOrder) > 0 {
		cfg.Providers.FailoverOrder = file.FailoverOrder
	}
	if file.RequestTimeout != "" {
		d, err := time.ParseDuration(file.RequestTimeout)
		if err != nil {
			return fmt.Errorf("invalid request_timeout: %w", err)
		}
		cfg.Providers.RequestTimeout = d
	}
	if file.MaxRetries != nil {
		cfg.Providers.MaxRetries = *file.MaxRetries
	}
	if file.CacheTTL != "" {
		d, err := time.ParseDuration(file.CacheTTL)
		if err != nil {
			return fmt.Errorf("invalid cache_ttl: %w", err)
		}
		cfg.Providers.CacheTTL = d
	}

	for name, overlay := range file.Providers {
		pc := cfg.Providers.Providers[name]
		if overlay.Enabled != nil {
			pc.Enabled = *overlay.Enabled
		}
		if overlay.APIKey != "" {
			pc.APIKey = substituteEnvVars(overlay.APIKey)
		}
		if overlay.BaseURL != "" {
			pc.BaseURL = overlay.BaseURL
		}
		if overlay.Model != "" {
			pc.Model = overlay.Model
		}
		if overlay.MaxTokens != nil {
			pc.MaxTokens = *overlay.MaxTokens
		}
		if overlay.Temperature != nil {
			pc.Temperature = *overlay.Temperature
		}
		if overlay.Weight != nil {
			pc.Weight = *overlay.Weight
		}
		if overlay.RateLimitRPS != nil {
			pc.RateLimitRPS = *overlay.RateLimitRPS
		}
		if overlay.Timeout != "" {
			d, err := time.ParseDuration(overlay.Timeout)
			if err != nil {
				return fmt.Errorf("invalid timeout for provider %s: %w", name, err)
			}
			pc.Timeout = d
		}
		cfg.Providers.Providers[name] = pc
	}

	return nil
}
