package llmclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voidhawk42/reagent-cli/internal/config"
)

func TestNewGateway(t *testing.T) {
	logger := setupTestLogger(t)

	t.Run("groq provider", func(t *testing.T) {
		cfg := getValidLLMConfig()
		cfg.Provider = config.ProviderGroq

		gateway, err := NewGateway(cfg, logger)

		require.NoError(t, err)
		assert.IsType(t, &ChatClient{}, gateway)
	})

	t.Run("gemini provider", func(t *testing.T) {
		cfg := getValidLLMConfig()
		cfg.Provider = config.ProviderGemini
		cfg.Model = "gemini-2.0-flash"

		gateway, err := NewGateway(cfg, logger)

		require.NoError(t, err)
		assert.IsType(t, &GeminiClient{}, gateway)
	})

	t.Run("unknown provider", func(t *testing.T) {
		cfg := getValidLLMConfig()
		cfg.Provider = "openai"

		gateway, err := NewGateway(cfg, logger)

		require.Error(t, err)
		assert.Nil(t, gateway)
		assert.Contains(t, err.Error(), "unsupported LLM provider")
	})

	t.Run("constructor errors propagate", func(t *testing.T) {
		cfg := getValidLLMConfig()
		cfg.APIKey = ""

		gateway, err := NewGateway(cfg, logger)

		require.Error(t, err)
		assert.Nil(t, gateway)
	})
}
