// internal/agent/safety.go
package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/voidhawk42/reagent-cli/api/schemas"
)

// Classification is the parsed guard verdict for one piece of content.
type Classification struct {
	// Safe is true iff the verdict's first token is "safe".
	Safe bool
	// Raw is the full verdict string, including any category tags.
	Raw string
}

// SafetyGate classifies raw user input before any planning happens. A
// transport failure is an error, never a silent pass: content whose safety
// cannot be determined does not reach the planner.
type SafetyGate struct {
	gateway schemas.ModelGateway
	log     *zap.Logger
}

// NewSafetyGate creates the gate.
func NewSafetyGate(gateway schemas.ModelGateway, logger *zap.Logger) *SafetyGate {
	return &SafetyGate{
		gateway: gateway,
		log:     logger.Named("safety"),
	}
}

// Check classifies the content. The verdict's first whitespace-separated
// token decides: "safe" passes, anything else (including "unsafe" with
// category tags) is a rejection.
func (g *SafetyGate) Check(ctx context.Context, content string) (*Classification, error) {
	verdict, err := g.gateway.ClassifySafety(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("safety classification failed: %w", err)
	}

	fields := strings.Fields(verdict)
	if len(fields) == 0 {
		return nil, fmt.Errorf("safety classifier returned an empty verdict")
	}

	classification := &Classification{
		Safe: strings.EqualFold(fields[0], "safe"),
		Raw:  strings.TrimSpace(verdict),
	}

	if !classification.Safe {
		g.log.Warn("Content rejected by safety gate",
			zap.String("verdict", classification.Raw))
	}
	return classification, nil
}
