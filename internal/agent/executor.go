// internal/agent/executor.go
package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/voidhawk42/reagent-cli/api/schemas"
)

// FallbackNoResults is returned when every tool call in a plan was skipped
// or failed.
const FallbackNoResults = "I couldn't find any relevant information. Please try again with a different query."

// ExecutionResult is the executor's answer for one plan.
type ExecutionResult struct {
	Response string
	// ToolsUsed lists the tools that contributed a surviving result, in
	// dispatch order.
	ToolsUsed []string
	// SynthesisFailed is set when the merge call failed and the response is
	// the labeled concatenation fallback.
	SynthesisFailed bool
}

// Executor dispatches a plan's tool calls strictly in list order and merges
// surviving results into a single response. Per-call failures are isolated:
// an unregistered or failing tool is logged and skipped, and the remaining
// calls still run.
type Executor struct {
	registry    *Registry
	gateway     schemas.ModelGateway
	prompts     *PromptBuilder
	temperature float32
	log         *zap.Logger
}

// NewExecutor creates the executor.
func NewExecutor(registry *Registry, gateway schemas.ModelGateway, prompts *PromptBuilder, temperature float32, logger *zap.Logger) *Executor {
	return &Executor{
		registry:    registry,
		gateway:     gateway,
		prompts:     prompts,
		temperature: temperature,
		log:         logger.Named("executor"),
	}
}

// ExecutePlan runs the plan. A direct-response plan short-circuits without
// touching the registry or the gateway.
func (e *Executor) ExecutePlan(ctx context.Context, query string, plan *schemas.Plan) (*ExecutionResult, error) {
	if plan == nil {
		return nil, fmt.Errorf("cannot execute a nil plan")
	}

	if !plan.RequiresTools {
		e.log.Debug("Plan requires no tools, returning direct response")
		return &ExecutionResult{Response: plan.DirectResponse}, nil
	}

	sources := e.dispatch(ctx, plan)

	switch len(sources) {
	case 0:
		e.log.Warn("No tool produced a usable result",
			zap.Strings("planned_tools", plan.ToolNames()))
		return &ExecutionResult{Response: FallbackNoResults}, nil
	case 1:
		// A single surviving result is returned as-is; synthesis would only
		// paraphrase it.
		return &ExecutionResult{
			Response:  sources[0].Formatted,
			ToolsUsed: []string{sources[0].Tool},
		}, nil
	}

	tools := make([]string, len(sources))
	for i, src := range sources {
		tools[i] = src.Tool
	}

	response, synthesisFailed := e.synthesize(ctx, query, sources)
	return &ExecutionResult{
		Response:        response,
		ToolsUsed:       tools,
		SynthesisFailed: synthesisFailed,
	}, nil
}

// dispatch invokes the plan's tool calls in order, dropping failures.
func (e *Executor) dispatch(ctx context.Context, plan *schemas.Plan) []SynthesisSource {
	var sources []SynthesisSource

	for _, call := range plan.ToolCalls {
		result, err := e.registry.Invoke(ctx, call.Tool, call.Args)
		if err != nil {
			e.log.Warn("Tool call skipped",
				zap.String("tool", call.Tool),
				zap.Error(err))
			continue
		}
		if result.Empty() {
			e.log.Warn("Tool returned an empty result, skipping",
				zap.String("tool", call.Tool))
			continue
		}

		sources = append(sources, SynthesisSource{
			Tool:      call.Tool,
			Formatted: formatToolResult(result),
		})
	}

	return sources
}

// synthesize issues exactly one merge call over the formatted results; on
// failure it degrades to the labeled concatenation of all contributions.
func (e *Executor) synthesize(ctx context.Context, query string, sources []SynthesisSource) (string, bool) {
	prompt := e.prompts.BuildSynthesisPrompt(query, sources)

	response, err := e.gateway.Complete(ctx, schemas.GenerationRequest{
		SystemPrompt: SynthesisSystemPrompt,
		UserPrompt:   prompt,
		Temperature:  e.temperature,
	})
	if err == nil && strings.TrimSpace(response) != "" {
		return response, false
	}

	e.log.Warn("Synthesis failed, falling back to concatenation",
		zap.Error(err))

	blocks := make([]string, len(sources))
	for i, src := range sources {
		blocks[i] = fmt.Sprintf("Information from %s:\n%s", src.Tool, src.Formatted)
	}
	return strings.Join(blocks, "\n\n"), true
}

// formatToolResult renders a tool's structured result as prompt-ready text.
// Enriched entries render as title/summary blocks; otherwise the summary
// text is used directly.
func formatToolResult(result *schemas.ToolResult) string {
	if len(result.Enriched) > 0 {
		var sb strings.Builder
		for _, entry := range result.Enriched {
			sb.WriteString(entry.Title)
			sb.WriteString(":\n")
			sb.WriteString(entry.Summary)
			sb.WriteString("\n\n")
		}
		return strings.TrimSpace(sb.String())
	}

	return result.Summary
}
