// internal/llmclient/factory.go
package llmclient

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/voidhawk42/reagent-cli/api/schemas"
	"github.com/voidhawk42/reagent-cli/internal/config"
)

// NewGateway constructs the model gateway for the configured provider.
func NewGateway(cfg config.LLMConfig, logger *zap.Logger) (schemas.ModelGateway, error) {
	switch cfg.Provider {
	case config.ProviderGroq:
		return NewChatClient(cfg, logger)
	case config.ProviderGemini:
		return NewGeminiClient(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %q", cfg.Provider)
	}
}
