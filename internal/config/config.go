// internal/config/config.go
package config

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spf13/viper"
)

// LLMProvider defines the supported model gateway providers.
type LLMProvider string

const (
	ProviderGroq   LLMProvider = "groq"
	ProviderGemini LLMProvider = "gemini"
)

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color names for different log levels.
type ColorConfig struct {
	Debug string `mapstructure:"debug" yaml:"debug"`
	Info  string `mapstructure:"info" yaml:"info"`
	Warn  string `mapstructure:"warn" yaml:"warn"`
	Error string `mapstructure:"error" yaml:"error"`
	Fatal string `mapstructure:"fatal" yaml:"fatal"`
}

// LLMConfig defines the model gateway connection and generation settings.
type LLMConfig struct {
	Provider LLMProvider `mapstructure:"provider" yaml:"provider"`
	// Model is the planning/generation model identifier.
	Model string `mapstructure:"model" yaml:"model"`
	// SafetyModel is the content-safety classifier model. Its first response
	// token is expected to be "safe" or "unsafe".
	SafetyModel string        `mapstructure:"safety_model" yaml:"safety_model"`
	APIKey      string        `mapstructure:"api_key" yaml:"-"`
	Endpoint    string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout  time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature float32       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	// RequestsPerSecond throttles outbound gateway calls. Zero disables the
	// limiter.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
}

// AgentConfig holds settings for the plan/reflect/execute pipeline.
type AgentConfig struct {
	// MaxReflectionIterations bounds the critique/revise loop. Zero disables
	// reflection entirely; the initial plan is used as-is.
	MaxReflectionIterations int `mapstructure:"max_reflection_iterations" yaml:"max_reflection_iterations"`
}

// DatabaseConfig holds the optional interaction-store connection details.
// An empty URL disables persistence.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"-"`
}

// SerpAPIConfig configures the google_search tool.
type SerpAPIConfig struct {
	APIKey   string `mapstructure:"api_key" yaml:"-"`
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
	Engine   string `mapstructure:"engine" yaml:"engine"`
	TopN     int    `mapstructure:"top_n" yaml:"top_n"`
	// Enrich fetches each hit's page and attaches an extracted summary.
	Enrich            bool    `mapstructure:"enrich" yaml:"enrich"`
	EnrichConcurrency int     `mapstructure:"enrich_concurrency" yaml:"enrich_concurrency"`
	RateLimit         float64 `mapstructure:"rate_limit" yaml:"rate_limit"`
}

// WeatherConfig configures the get_weather tool.
type WeatherConfig struct {
	APIKey   string `mapstructure:"api_key" yaml:"-"`
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
	Units    string `mapstructure:"units" yaml:"units"`
}

// WikipediaConfig configures the wikipedia_search tool.
type WikipediaConfig struct {
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
	Language string `mapstructure:"language" yaml:"language"`
}

// ScraperConfig configures the scrape_webpage tool.
type ScraperConfig struct {
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxBytes  int64         `mapstructure:"max_bytes" yaml:"max_bytes"`
	UserAgent string        `mapstructure:"user_agent" yaml:"user_agent"`
}

// ToolsConfig is the container for all built-in tool configurations.
type ToolsConfig struct {
	SerpAPI   SerpAPIConfig   `mapstructure:"serpapi" yaml:"serpapi"`
	Weather   WeatherConfig   `mapstructure:"weather" yaml:"weather"`
	Wikipedia WikipediaConfig `mapstructure:"wikipedia" yaml:"wikipedia"`
	Scraper   ScraperConfig   `mapstructure:"scraper" yaml:"scraper"`
}

// Config holds the entire application configuration.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	LLM      LLMConfig      `mapstructure:"llm" yaml:"llm"`
	Agent    AgentConfig    `mapstructure:"agent" yaml:"agent"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Tools    ToolsConfig    `mapstructure:"tools" yaml:"tools"`
}

// current stores the process-wide configuration for command handlers.
var current atomic.Pointer[Config]

// Get returns the active configuration, falling back to defaults when Set has
// not run yet (mainly in tests).
func Get() *Config {
	if cfg := current.Load(); cfg != nil {
		return cfg
	}
	return NewDefaultConfig()
}

// Set installs the active configuration.
func Set(cfg *Config) { current.Store(cfg) }

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "reagent-cli")
	v.SetDefault("logger.log_file", "reagent.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- LLM --
	v.SetDefault("llm.provider", "groq")
	v.SetDefault("llm.model", "gemma2-9b-it")
	v.SetDefault("llm.safety_model", "llama-guard-3-8b")
	v.SetDefault("llm.api_timeout", "30s")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.requests_per_second", 2.0)

	// -- Agent --
	v.SetDefault("agent.max_reflection_iterations", 3)

	// -- Tools --
	v.SetDefault("tools.serpapi.endpoint", "https://serpapi.com/search")
	v.SetDefault("tools.serpapi.engine", "google")
	v.SetDefault("tools.serpapi.top_n", 5)
	v.SetDefault("tools.serpapi.enrich", false)
	v.SetDefault("tools.serpapi.enrich_concurrency", 4)
	v.SetDefault("tools.serpapi.rate_limit", 1.0)
	v.SetDefault("tools.weather.endpoint", "https://api.openweathermap.org/data/2.5/weather")
	v.SetDefault("tools.weather.units", "metric")
	v.SetDefault("tools.wikipedia.endpoint", "https://%s.wikipedia.org/api/rest_v1/page/summary")
	v.SetDefault("tools.wikipedia.language", "en")
	v.SetDefault("tools.scraper.timeout", "10s")
	v.SetDefault("tools.scraper.max_bytes", 1<<20)
	v.SetDefault("tools.scraper.user_agent", "reagent-cli/1.0")
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Unreachable with defaults only, but fail loudly if it ever happens.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper creates a validated configuration from a viper instance.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	// Bind environment variables for sensitive data.
	v.BindEnv("llm.api_key", "REAGENT_LLM_API_KEY")
	v.BindEnv("database.url", "REAGENT_DATABASE_URL")
	v.BindEnv("tools.serpapi.api_key", "REAGENT_TOOLS_SERPAPI_API_KEY")
	v.BindEnv("tools.weather.api_key", "REAGENT_TOOLS_WEATHER_API_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderGroq, ProviderGemini:
	default:
		return fmt.Errorf("llm.provider must be one of [%s, %s], got %q",
			ProviderGroq, ProviderGemini, c.LLM.Provider)
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is a required configuration field")
	}
	if c.LLM.SafetyModel == "" {
		return fmt.Errorf("llm.safety_model is a required configuration field")
	}
	if c.LLM.APITimeout <= 0 {
		return fmt.Errorf("llm.api_timeout must be a positive duration")
	}
	if c.LLM.RequestsPerSecond < 0 {
		return fmt.Errorf("llm.requests_per_second must not be negative")
	}
	if c.Agent.MaxReflectionIterations < 0 {
		return fmt.Errorf("agent.max_reflection_iterations must not be negative")
	}
	if c.Tools.SerpAPI.TopN <= 0 {
		return fmt.Errorf("tools.serpapi.top_n must be a positive integer")
	}
	if c.Tools.SerpAPI.EnrichConcurrency <= 0 {
		return fmt.Errorf("tools.serpapi.enrich_concurrency must be a positive integer")
	}
	if c.Tools.Scraper.MaxBytes <= 0 {
		return fmt.Errorf("tools.scraper.max_bytes must be a positive integer")
	}
	return nil
}
