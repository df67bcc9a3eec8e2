// internal/agent/reflection.go
package agent

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/voidhawk42/reagent-cli/api/schemas"
	"github.com/voidhawk42/reagent-cli/internal/llmutil"
)

// ReflectionState describes how the critique loop ended.
type ReflectionState string

const (
	// ReflectionConverged means a verdict declared the plan good enough.
	ReflectionConverged ReflectionState = "CONVERGED"
	// ReflectionExhausted means the iteration cap was reached with changes
	// still outstanding.
	ReflectionExhausted ReflectionState = "EXHAUSTED"
)

// ReflectionOutcome is the result of one full critique/revise loop.
type ReflectionOutcome struct {
	FinalPlan *schemas.Plan
	History   []schemas.ReflectionVerdict
	State     ReflectionState
}

// ReflectionEngine runs the bounded critique/revise loop over a plan. Each
// iteration records the plan under review to the session history, asks the
// gateway for a verdict, and on requested changes asks the planner for a
// revision. Failures inside an iteration are consumed, never propagated.
type ReflectionEngine struct {
	gateway     schemas.ModelGateway
	planner     *Planner
	prompts     *PromptBuilder
	history     *History
	temperature float32
	log         *zap.Logger
}

// NewReflectionEngine creates the engine. The history is the session's own
// instance, shared with the orchestrator.
func NewReflectionEngine(gateway schemas.ModelGateway, planner *Planner, prompts *PromptBuilder, history *History, temperature float32, logger *zap.Logger) *ReflectionEngine {
	return &ReflectionEngine{
		gateway:     gateway,
		planner:     planner,
		prompts:     prompts,
		history:     history,
		temperature: temperature,
		log:         logger.Named("reflection"),
	}
}

// Run executes at most maxIterations critique rounds over initialPlan.
// Zero iterations means no critique calls at all and the initial plan is
// final. A failed critique becomes a synthetic verdict that consumes the
// iteration without altering the plan; a failed revision keeps the current
// plan and continues.
func (e *ReflectionEngine) Run(ctx context.Context, query string, initialPlan *schemas.Plan, systemPrompt string, maxIterations int) (*ReflectionOutcome, error) {
	if initialPlan == nil {
		return nil, fmt.Errorf("reflection requires an initial plan")
	}
	if maxIterations < 0 {
		return nil, fmt.Errorf("maxIterations must not be negative, got %d", maxIterations)
	}

	currentPlan := initialPlan
	verdicts := make([]schemas.ReflectionVerdict, 0, maxIterations)
	state := ReflectionExhausted

	for iteration := 1; iteration <= maxIterations; iteration++ {
		e.history.Record(query, currentPlan)

		verdict, err := e.critique(ctx, systemPrompt)
		if err != nil {
			e.log.Warn("Critique failed, consuming iteration",
				zap.Int("iteration", iteration),
				zap.Error(err))
			verdicts = append(verdicts, schemas.ReflectionVerdict{
				Reflection:      fmt.Sprintf("Reflection failed due to error: %v", err),
				RequiresChanges: false,
			})
			continue
		}

		verdicts = append(verdicts, *verdict)

		if !verdict.RequiresChanges {
			e.log.Debug("Plan accepted by reflection",
				zap.Int("iteration", iteration))
			state = ReflectionConverged
			break
		}

		revised, err := e.planner.GetPlan(ctx, query, systemPrompt, currentPlan, verdict)
		if err != nil {
			e.log.Warn("Revision failed, keeping current plan",
				zap.Int("iteration", iteration),
				zap.Error(err))
			continue
		}
		currentPlan = revised
	}

	if maxIterations == 0 {
		state = ReflectionConverged
	}

	return &ReflectionOutcome{
		FinalPlan: currentPlan,
		History:   verdicts,
		State:     state,
	}, nil
}

// critique asks the gateway to review the plan most recently recorded to
// history.
func (e *ReflectionEngine) critique(ctx context.Context, systemPrompt string) (*schemas.ReflectionVerdict, error) {
	prompt, err := e.prompts.BuildReflectionPrompt(e.history.Last())
	if err != nil {
		return nil, err
	}

	response, err := e.gateway.Complete(ctx, schemas.GenerationRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   prompt,
		ForceJSON:    true,
		Temperature:  e.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("critique call failed: %w", err)
	}

	verdict, err := llmutil.ParseJSONResponse[schemas.ReflectionVerdict](response)
	if err != nil {
		return nil, fmt.Errorf("critique output unparseable: %w", err)
	}
	return verdict, nil
}
