// internal/agent/planner.go
package agent

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/voidhawk42/reagent-cli/api/schemas"
	"github.com/voidhawk42/reagent-cli/internal/llmutil"
)

// Planner turns a user query into a validated Plan via one blocking gateway
// call. With a previous plan and feedback it issues a revision request
// instead of an initial one.
type Planner struct {
	gateway     schemas.ModelGateway
	prompts     *PromptBuilder
	temperature float32
	log         *zap.Logger
}

// NewPlanner creates a planner bound to the gateway.
func NewPlanner(gateway schemas.ModelGateway, prompts *PromptBuilder, temperature float32, logger *zap.Logger) *Planner {
	return &Planner{
		gateway:     gateway,
		prompts:     prompts,
		temperature: temperature,
		log:         logger.Named("planner"),
	}
}

// GetPlan requests a plan for the query. prevPlan and feedback are both nil
// for the initial request; both set means a revision. Malformed model output
// is a *PlanParseError, never a silently empty plan.
func (p *Planner) GetPlan(ctx context.Context, query, systemPrompt string, prevPlan *schemas.Plan, feedback *schemas.ReflectionVerdict) (*schemas.Plan, error) {
	userPrompt := query
	mode := "initial"

	if prevPlan != nil && feedback != nil {
		revision, err := p.prompts.BuildRevisionPrompt(query, prevPlan, feedback)
		if err != nil {
			return nil, fmt.Errorf("failed to build revision prompt: %w", err)
		}
		userPrompt = revision
		mode = "revision"
	}

	response, err := p.gateway.Complete(ctx, schemas.GenerationRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		ForceJSON:    true,
		Temperature:  p.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("plan generation failed: %w", err)
	}

	plan, err := llmutil.ParseJSONResponse[schemas.Plan](response)
	if err != nil {
		p.log.Warn("Planner returned unparseable output",
			zap.String("mode", mode),
			zap.String("raw", llmutil.Truncate(response, 500)),
			zap.Error(err))
		return nil, &PlanParseError{Raw: llmutil.Truncate(response, 500), Err: err}
	}

	if err := plan.Validate(); err != nil {
		p.log.Warn("Planner returned structurally invalid plan",
			zap.String("mode", mode),
			zap.Error(err))
		return nil, &PlanParseError{Raw: llmutil.Truncate(response, 500), Err: err}
	}

	p.log.Debug("Plan generated",
		zap.String("mode", mode),
		zap.Bool("requires_tools", plan.RequiresTools),
		zap.Strings("tools", plan.ToolNames()))
	return plan, nil
}
