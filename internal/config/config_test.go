package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "reagent-cli", cfg.Logger.ServiceName)
	assert.Equal(t, ProviderGroq, cfg.LLM.Provider)
	assert.Equal(t, "llama-guard-3-8b", cfg.LLM.SafetyModel)
	assert.Equal(t, 30*time.Second, cfg.LLM.APITimeout)
	assert.Equal(t, 3, cfg.Agent.MaxReflectionIterations)
	assert.Equal(t, 5, cfg.Tools.SerpAPI.TopN)
	assert.Equal(t, "en", cfg.Tools.Wikipedia.Language)

	// Defaults must pass their own validation.
	require.NoError(t, cfg.Validate())
}

func TestNewConfigFromViper_EnvBinding(t *testing.T) {
	t.Setenv("REAGENT_LLM_API_KEY", "gsk_test_key")
	t.Setenv("REAGENT_TOOLS_SERPAPI_API_KEY", "serp_test_key")

	cfg, err := NewConfigFromViper(newTestViper())
	require.NoError(t, err)

	assert.Equal(t, "gsk_test_key", cfg.LLM.APIKey)
	assert.Equal(t, "serp_test_key", cfg.Tools.SerpAPI.APIKey)
}

func TestNewConfigFromViper_Overrides(t *testing.T) {
	v := newTestViper()
	v.Set("llm.provider", "gemini")
	v.Set("llm.model", "gemini-2.5-flash")
	v.Set("agent.max_reflection_iterations", 0)

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)

	assert.Equal(t, ProviderGemini, cfg.LLM.Provider)
	assert.Equal(t, "gemini-2.5-flash", cfg.LLM.Model)
	assert.Zero(t, cfg.Agent.MaxReflectionIterations)
}

func TestValidate_Failures(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown provider", func(c *Config) { c.LLM.Provider = "openrouter" }},
		{"missing model", func(c *Config) { c.LLM.Model = "" }},
		{"missing safety model", func(c *Config) { c.LLM.SafetyModel = "" }},
		{"non-positive timeout", func(c *Config) { c.LLM.APITimeout = 0 }},
		{"negative rate limit", func(c *Config) { c.LLM.RequestsPerSecond = -1 }},
		{"negative reflection budget", func(c *Config) { c.Agent.MaxReflectionIterations = -1 }},
		{"zero top_n", func(c *Config) { c.Tools.SerpAPI.TopN = 0 }},
		{"zero enrich concurrency", func(c *Config) { c.Tools.SerpAPI.EnrichConcurrency = 0 }},
		{"zero scraper max bytes", func(c *Config) { c.Tools.Scraper.MaxBytes = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestGetFallsBackToDefaults(t *testing.T) {
	current.Store(nil)
	cfg := Get()
	require.NotNil(t, cfg)
	assert.Equal(t, ProviderGroq, cfg.LLM.Provider)

	custom := NewDefaultConfig()
	custom.LLM.Model = "custom-model"
	Set(custom)
	t.Cleanup(func() { current.Store(nil) })

	assert.Equal(t, "custom-model", Get().LLM.Model)
}
