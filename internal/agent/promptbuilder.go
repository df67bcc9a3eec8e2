// internal/agent/promptbuilder.go
package agent

import (
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/voidhawk42/reagent-cli/api/schemas"
)

// json is the package-wide serializer for prompt assembly.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// PromptBuilder renders the prompts consumed by the planner, the reflection
// engine and the executor's synthesis step. It is deterministic and side
// effect free: the same inputs always produce the same prompt text.
type PromptBuilder struct{}

// NewPromptBuilder creates a prompt builder.
func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// toolCatalogEntry is the machine-readable tool descriptor embedded in the
// system prompt.
type toolCatalogEntry struct {
	Name        string                           `json:"name"`
	Description string                           `json:"description"`
	Parameters  map[string]schemas.ParameterSpec `json:"parameters"`
}

// BuildSystemPrompt renders the planning system prompt: role, instruction
// block, the tool catalog, the literal plan response schema and fixed worked
// examples.
func (b *PromptBuilder) BuildSystemPrompt(tools []schemas.Tool) (string, error) {
	catalog := make([]toolCatalogEntry, len(tools))
	for i, tool := range tools {
		catalog[i] = toolCatalogEntry{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  tool.Parameters,
		}
	}

	toolsJSON, err := json.MarshalIndent(map[string]any{"tools": catalog}, "", "    ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal tool catalog: %w", err)
	}
	schemaJSON, err := json.MarshalIndent(planResponseSchema, "", "    ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal response schema: %w", err)
	}
	examplesJSON, err := json.MarshalIndent(map[string]any{"examples": workedExamples}, "", "    ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal examples: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(`You are an AI assistant that helps users by providing direct answers or using tools when necessary.
Configuration, instructions, and available tools are provided in JSON format below.

## Role and Capabilities
- Use provided tools to help users when necessary
- Respond directly without tools for questions that don't require tool usage
- Plan efficient tool usage sequences
- Reflect on your plan when asked
- Handle tool failures gracefully with fallback options

## Instructions
1. Use tools ONLY when they meet these criteria:
- The question requires up-to-date information beyond your knowledge cutoff
- The question requires specific data you don't have access to
- The task explicitly requires a specialized tool (calculation, search, etc.)
- The answer would be significantly more accurate with tool usage

2. Respond directly WITHOUT tools when:
- The query is about general knowledge within your training
- The query is conversational or opinion-based
- The query can be answered with logical reasoning

3. When using tools:
- Plan their usage efficiently to minimize tool calls
- Start with the most relevant tool first
- Process and synthesize tool outputs into coherent responses

4. Always use the tools that are provided to you, never fabricate tool names.

## Available Tools
`)
	sb.Write(toolsJSON)
	sb.WriteString("\n\n## Response Format\n")
	sb.Write(schemaJSON)
	sb.WriteString("\n\n## Examples\n")
	sb.Write(examplesJSON)
	sb.WriteString(`

Always respond with a JSON object following the response_format schema above.
Remember that your goal is to help the user effectively - tools are means to an end, not the end itself.`)

	return sb.String(), nil
}

// BuildReflectionPrompt renders the critique request for the plan under
// review in the given interaction.
func (b *PromptBuilder) BuildReflectionPrompt(last *schemas.Interaction) (string, error) {
	if last == nil {
		return "", fmt.Errorf("no interaction to reflect on")
	}

	payload := map[string]any{
		"task": "reflection",
		"context": map[string]any{
			"user_query":     last.Query,
			"generated_plan": last.Plan,
		},
		"instructions": []string{
			"Review the generated plan for potential improvements",
			"Consider if the chosen tools are appropriate",
			"Verify tool parameters are correct",
			"Check if the plan is efficient",
			"Determine if tools are actually needed",
		},
		"response_format": verdictResponseSchema,
	}

	payloadJSON, err := json.MarshalIndent(payload, "", "    ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal reflection payload: %w", err)
	}

	return fmt.Sprintf(`You are conducting a critical review of an AI assistant's plan for using tools to answer a user query.
Your task is to identify improvements that would make the plan more effective, appropriate, and efficient.

%s

Remember that the goal is to provide actionable feedback that can improve how the assistant handles similar queries.
Always respond with a JSON object following the response_format schema above.`, payloadJSON), nil
}

// BuildRevisionPrompt renders the request for a revised plan: the query, the
// previous plan verbatim and the critique verbatim. The model is instructed
// to address only the raised issues.
func (b *PromptBuilder) BuildRevisionPrompt(query string, prev *schemas.Plan, verdict *schemas.ReflectionVerdict) (string, error) {
	prevJSON, err := json.MarshalIndent(prev, "", "    ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal previous plan: %w", err)
	}
	verdictJSON, err := json.MarshalIndent(verdict, "", "    ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal reflection feedback: %w", err)
	}

	return fmt.Sprintf(`The user asked: %q

Your previous plan was:
%s

A critical review of that plan produced this feedback:
%s

Produce a revised plan that addresses ONLY the issues raised in the feedback.
Keep everything the feedback did not question unchanged.
Respond with a JSON object following the same plan response schema as before.`, query, prevJSON, verdictJSON), nil
}

// SynthesisSource is one tool's formatted contribution to the merge call.
type SynthesisSource struct {
	Tool      string
	Formatted string
}

// BuildSynthesisPrompt renders the executor's merge request over multiple
// tool results.
func (b *PromptBuilder) BuildSynthesisPrompt(query string, sources []SynthesisSource) string {
	blocks := make([]string, len(sources))
	for i, src := range sources {
		blocks[i] = fmt.Sprintf("Information from %s:\n%s", src.Tool, src.Formatted)
	}

	return fmt.Sprintf(`I need to provide a comprehensive answer to this query: %q

I have gathered the following information from different tools:

%s

Please synthesize this information into a coherent, helpful response that
directly addresses the user's query. Make sure the response flows naturally
and doesn't explicitly mention which tool provided which information unless
it's relevant to the answer.`, query, strings.Join(blocks, "\n\n"))
}

// SynthesisSystemPrompt is the fixed system prompt for the merge call.
const SynthesisSystemPrompt = "You are a helpful assistant synthesizing information from multiple sources."

// planResponseSchema is the literal wire schema advertised to the planning
// model.
var planResponseSchema = map[string]any{
	"requires_tools": map[string]any{
		"type":        "boolean",
		"description": "whether tools are needed for this query",
	},
	"direct_response": map[string]any{
		"type":        "string",
		"description": "response when no tools are needed",
		"optional":    true,
	},
	"thought": map[string]any{
		"type":        "string",
		"description": "reasoning about how to solve the task (when tools are needed)",
		"optional":    true,
	},
	"plan": map[string]any{
		"type":        "array",
		"items":       map[string]any{"type": "string"},
		"description": "steps to solve the task (when tools are needed)",
		"optional":    true,
	},
	"tool_calls": map[string]any{
		"type": "array",
		"items": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"tool": map[string]any{
					"type":        "string",
					"description": "name of the tool",
				},
				"args": map[string]any{
					"type":        "object",
					"description": "parameters for the tool",
				},
			},
		},
		"description": "tools to call in sequence (when tools are needed)",
		"optional":    true,
	},
}

// verdictResponseSchema is the literal wire schema for a reflection verdict.
var verdictResponseSchema = map[string]any{
	"type": "json",
	"schema": map[string]any{
		"requires_changes": map[string]any{
			"type":        "boolean",
			"description": "whether the plan needs modifications",
		},
		"reflection": map[string]any{
			"type":        "string",
			"description": "explanation of what changes are needed or why no changes are needed",
		},
		"suggestions": map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string"},
			"description": "specific suggestions for improvements",
			"optional":    true,
		},
	},
}

// workedExamples are the fixed few-shot examples embedded in the system
// prompt, covering the direct-answer, single-tool and tool-selection cases.
var workedExamples = []map[string]any{
	{
		"query": "Where is the Eiffel Tower located?",
		"response": map[string]any{
			"requires_tools":  false,
			"direct_response": "The Eiffel Tower is located in Paris, France. This is common knowledge that doesn't require using the search tool.",
		},
	},
	{
		"query": "Who is Albert Einstein?",
		"response": map[string]any{
			"requires_tools": true,
			"thought":        "I need to use the Wikipedia tool to get information about Albert Einstein.",
			"plan": []string{
				"Use Wikipedia tool to search for information about Albert Einstein",
				"Return the result from Wikipedia",
			},
			"tool_calls": []map[string]any{
				{
					"tool": "wikipedia_search",
					"args": map[string]any{"query": "Albert Einstein"},
				},
			},
		},
	},
	{
		"query": "What was the outcome of the recent UEFA Champions League final?",
		"response": map[string]any{
			"requires_tools": true,
			"thought":        "I need to use the Google search tool to get the latest result of the UEFA Champions League final.",
			"plan": []string{
				"Use Google search tool to find information about the most recent UEFA Champions League final",
				"Return the result from Google",
			},
			"tool_calls": []map[string]any{
				{
					"tool": "google_search",
					"args": map[string]any{"search_query": "latest UEFA Champions League final result"},
				},
			},
		},
	},
}
