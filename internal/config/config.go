package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Logging   LoggingConfig
	Providers ProvidersConfig
	Consensus ConsensusConfig
	Evolution EvolutionConfig
	Router    RouterConfig
	Quality   QualityConfig
	Metrics   MetricsConfig
}

type ServerConfig struct {
	Host         string
	Port         string
	Mode         string // "debug" or "release"
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	URL            string // full DSN override, takes precedence over the parts
	Host           string
	Port           string
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxConnections int
	ConnTimeout    time.Duration
}

// DSN returns the connection string, preferring the DATABASE_URL override.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
	PoolSize int
	Timeout  time.Duration
}

func (c RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

type LoggingConfig struct {
	Level  string
	Format string // "json" or "text"
}

// ProviderConfig describes one upstream model API.
type ProviderConfig struct {
	Enabled      bool
	APIKey       string
	BaseURL      string
	Model        string
	MaxTokens    int
	Temperature  float64
	Weight       float64
	RateLimitRPS float64
	Timeout      time.Duration
}

type ProvidersConfig struct {
	// FailoverOrder is the default provider walk for single-response calls.
	FailoverOrder  []string
	RequestTimeout time.Duration
	MaxRetries     int
	CacheTTL       time.Duration
	Providers      map[string]ProviderConfig
}

type ConsensusConfig struct {
	RefereeProvider    string
	RefereeMaxTokens   int
	RefereeTemperature float64
}

type EvolutionConfig struct {
	HistoricalLimit       int
	HistoricalCacheTTL    time.Duration
	ValidationProviders   []string
	ValidationConcurrency int
}

type RouterConfig struct {
	AnalysisProviders   []string
	PredictionProviders []string
}

type QualityConfig struct {
	MinTrainingSamples int
}

type MetricsConfig struct {
	Enabled bool
	Path    string
}

func Load() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnv("PORT", "8000"),
			Mode:         getEnv("GIN_MODE", "release"),
			ReadTimeout:  getDurationEnv("READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getDurationEnv("WRITE_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "constitutionalflow"),
			Password:       getEnv("DB_PASSWORD", ""),
			Name:           getEnv("DB_NAME", "constitutional_flow"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			MaxConnections: getIntEnv("DB_MAX_CONNECTIONS", 20),
			ConnTimeout:    getDurationEnv("DB_CONN_TIMEOUT", 10*time.Second),
		},
		Redis: RedisConfig{
			Enabled:  getBoolEnv("REDIS_ENABLED", true),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
			PoolSize: getIntEnv("REDIS_POOL_SIZE", 10),
			Timeout:  getDurationEnv("REDIS_TIMEOUT", 5*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Providers: ProvidersConfig{
			FailoverOrder:  getEnvSlice("PROVIDER_FAILOVER_ORDER", []string{"openai", "anthropic", "cohere"}),
			RequestTimeout: getDurationEnv("PROVIDER_REQUEST_TIMEOUT", 60*time.Second),
			MaxRetries:     getIntEnv("PROVIDER_MAX_RETRIES", 3),
			CacheTTL:       getDurationEnv("PROVIDER_CACHE_TTL", time.Hour),
			Providers: map[string]ProviderConfig{
				"openai": {
					Enabled:      getBoolEnv("OPENAI_ENABLED", true),
					APIKey:       getEnv("OPENAI_API_KEY", ""),
					BaseURL:      getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
					Model:        getEnv("OPENAI_MODEL", "gpt-4"),
					MaxTokens:    getIntEnv("OPENAI_MAX_TOKENS", 1000),
					Temperature:  getFloatEnv("OPENAI_TEMPERATURE", 0.7),
					Weight:       getFloatEnv("OPENAI_WEIGHT", 0.4),
					RateLimitRPS: getFloatEnv("OPENAI_RATE_LIMIT", 100),
					Timeout:      getDurationEnv("OPENAI_TIMEOUT", 120*time.Second),
				},
				"anthropic": {
					Enabled:      getBoolEnv("ANTHROPIC_ENABLED", true),
					APIKey:       getEnv("ANTHROPIC_API_KEY", ""),
					BaseURL:      getEnv("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
					Model:        getEnv("ANTHROPIC_MODEL", "claude-3-sonnet-20240229"),
					MaxTokens:    getIntEnv("ANTHROPIC_MAX_TOKENS", 1000),
					Temperature:  getFloatEnv("ANTHROPIC_TEMPERATURE", 0.7),
					Weight:       getFloatEnv("ANTHROPIC_WEIGHT", 0.4),
					RateLimitRPS: getFloatEnv("ANTHROPIC_RATE_LIMIT", 100),
					Timeout:      getDurationEnv("ANTHROPIC_TIMEOUT", 120*time.Second),
				},
				"cohere": {
					Enabled:      getBoolEnv("COHERE_ENABLED", true),
					APIKey:       getEnv("COHERE_API_KEY", ""),
					BaseURL:      getEnv("COHERE_BASE_URL", "https://api.cohere.com"),
					Model:        getEnv("COHERE_MODEL", "command-r"),
					MaxTokens:    getIntEnv("COHERE_MAX_TOKENS", 1000),
					Temperature:  getFloatEnv("COHERE_TEMPERATURE", 0.7),
					Weight:       getFloatEnv("COHERE_WEIGHT", 0.2),
					RateLimitRPS: getFloatEnv("COHERE_RATE_LIMIT", 100),
					Timeout:      getDurationEnv("COHERE_TIMEOUT", 120*time.Second),
				},
			},
		},
		Consensus: ConsensusConfig{
			RefereeProvider:    getEnv("CONSENSUS_REFEREE_PROVIDER", "anthropic"),
			RefereeMaxTokens:   getIntEnv("CONSENSUS_REFEREE_MAX_TOKENS", 1500),
			RefereeTemperature: getFloatEnv("CONSENSUS_REFEREE_TEMPERATURE", 0.2),
		},
		Evolution: EvolutionConfig{
			HistoricalLimit:       getIntEnv("EVOLUTION_HISTORICAL_LIMIT", 20),
			HistoricalCacheTTL:    getDurationEnv("EVOLUTION_HISTORICAL_CACHE_TTL", time.Hour),
			ValidationProviders:   getEnvSlice("EVOLUTION_VALIDATION_PROVIDERS", []string{"openai", "anthropic"}),
			ValidationConcurrency: getIntEnv("EVOLUTION_VALIDATION_CONCURRENCY", 4),
		},
		Router: RouterConfig{
			AnalysisProviders:   getEnvSlice("ROUTER_ANALYSIS_PROVIDERS", []string{"openai", "anthropic"}),
			PredictionProviders: getEnvSlice("ROUTER_PREDICTION_PROVIDERS", []string{"openai"}),
		},
		Quality: QualityConfig{
			MinTrainingSamples: getIntEnv("QUALITY_MIN_TRAINING_SAMPLES", 50),
		},
		Metrics: MetricsConfig{
			Enabled: getBoolEnv("METRICS_ENABLED", true),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
	}

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}
