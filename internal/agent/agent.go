// Package agent implements the plan, reflect and execute pipeline: a safety
// gate in front of a JSON-planning model, a bounded critique/revise loop,
// and a tool executor with per-call failure isolation. The orchestrator
// converts every internal fault into a structured execution record; callers
// never see a raw error or panic.
package agent

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/voidhawk42/reagent-cli/api/schemas"
)

// Agent wires the pipeline stages together around a session-owned history.
// One Agent serves one conversation; concurrent conversations each get their
// own instance.
type Agent struct {
	safety     *SafetyGate
	planner    *Planner
	reflection *ReflectionEngine
	executor   *Executor
	registry   *Registry
	prompts    *PromptBuilder
	history    *History
	log        *zap.Logger
}

// Options configures agent construction.
type Options struct {
	Gateway schemas.ModelGateway
	// Tools are registered at startup; duplicate names fail construction.
	Tools []schemas.Tool
	// Sink optionally persists finished interactions. May be nil.
	Sink        Sink
	Temperature float32
	Logger      *zap.Logger
}

// New assembles the full pipeline.
func New(opts Options) (*Agent, error) {
	if opts.Gateway == nil {
		return nil, fmt.Errorf("agent requires a model gateway")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("agent")

	registry := NewRegistry(logger)
	for _, tool := range opts.Tools {
		if err := registry.Register(tool); err != nil {
			return nil, fmt.Errorf("tool registration failed: %w", err)
		}
	}

	prompts := NewPromptBuilder()
	history := NewHistory(opts.Sink, logger)
	planner := NewPlanner(opts.Gateway, prompts, opts.Temperature, logger)

	return &Agent{
		safety:     NewSafetyGate(opts.Gateway, logger),
		planner:    planner,
		reflection: NewReflectionEngine(opts.Gateway, planner, prompts, history, opts.Temperature, logger),
		executor:   NewExecutor(registry, opts.Gateway, prompts, opts.Temperature, logger),
		registry:   registry,
		prompts:    prompts,
		history:    history,
		log:        logger,
	}, nil
}

// History exposes the session log, mainly for inspection and tests.
func (a *Agent) History() *History { return a.history }

// Registry exposes the tool registry.
func (a *Agent) Registry() *Registry { return a.registry }

// Execute runs the full pipeline for one query and always returns a
// structured record. maxReflectionIterations bounds the critique loop; zero
// disables reflection entirely.
func (a *Agent) Execute(ctx context.Context, query string, maxReflectionIterations int) (record *schemas.ExecutionRecord) {
	defer func() {
		if rec := recover(); rec != nil {
			a.log.Error("Pipeline panicked", zap.Any("panic", rec))
			record = failedRecord(fmt.Errorf("internal error: %v", rec))
		}
	}()

	if query == "" {
		return failedRecord(fmt.Errorf("query must not be empty"))
	}
	if maxReflectionIterations < 0 {
		return failedRecord(fmt.Errorf("max reflection iterations must not be negative, got %d", maxReflectionIterations))
	}

	a.log.Info("Query accepted",
		zap.String("query", query),
		zap.Int("max_reflection_iterations", maxReflectionIterations))

	// Stage 1: safety gate. Unsafe content makes zero planner calls.
	classification, err := a.safety.Check(ctx, query)
	if err != nil {
		return failedRecord(err)
	}
	if !classification.Safe {
		// No interaction is recorded for a rejected query, so there is
		// nothing to persist either; pairing this record with the previous
		// interaction would overwrite its stored row.
		rejection := &SafetyRejectionError{Classification: classification.Raw}
		return &schemas.ExecutionRecord{
			Status:    schemas.StatusFailed,
			Warning:   "This query was flagged by the content safety filter and will not be processed.",
			Error:     rejection.Error(),
			ErrorType: string(rejection.Code()),
		}
	}

	// Stage 2: initial plan.
	systemPrompt, err := a.prompts.BuildSystemPrompt(a.registry.List())
	if err != nil {
		return failedRecord(err)
	}

	initialPlan, err := a.planner.GetPlan(ctx, query, systemPrompt, nil, nil)
	if err != nil {
		return failedRecord(err)
	}

	a.history.Record(query, initialPlan)

	// Direct-response fast path: no reflection, no dispatch.
	if !initialPlan.RequiresTools {
		a.history.CollapseLast(initialPlan, nil, initialPlan)
		record := &schemas.ExecutionRecord{
			Status:   schemas.StatusSuccess,
			Response: initialPlan.DirectResponse,
			Metadata: &schemas.ExecutionMetadata{
				InitialThought:   initialPlan.Thought,
				InitialPlanSteps: initialPlan.Steps,
				FinalPlanSteps:   initialPlan.Steps,
			},
		}
		a.history.Persist(ctx, record)
		return record
	}

	// Stage 3: bounded reflection.
	outcome, err := a.reflection.Run(ctx, query, initialPlan, systemPrompt, maxReflectionIterations)
	if err != nil {
		return failedRecord(err)
	}
	a.history.CollapseLast(initialPlan, outcome.History, outcome.FinalPlan)

	a.log.Info("Reflection finished",
		zap.String("state", string(outcome.State)),
		zap.Int("verdicts", len(outcome.History)))

	// Stage 4: execution.
	result, err := a.executor.ExecutePlan(ctx, query, outcome.FinalPlan)
	if err != nil {
		return failedRecord(err)
	}

	record = &schemas.ExecutionRecord{
		Status:   schemas.StatusSuccess,
		Response: result.Response,
		Metadata: &schemas.ExecutionMetadata{
			InitialThought:   initialPlan.Thought,
			InitialPlanSteps: initialPlan.Steps,
			FinalPlanSteps:   outcome.FinalPlan.Steps,
			ToolsUsed:        result.ToolsUsed,
		},
	}
	if result.SynthesisFailed {
		record.Warning = "Result synthesis failed; showing per-tool information instead."
	}

	a.history.Persist(ctx, record)
	return record
}

// failedRecord converts an internal fault into the caller-facing shape.
func failedRecord(err error) *schemas.ExecutionRecord {
	return &schemas.ExecutionRecord{
		Status:    schemas.StatusFailed,
		Error:     err.Error(),
		ErrorType: string(errorCode(err)),
	}
}
