// api/schemas/plan.go
package schemas

import "fmt"

// Plan is the structured output of a planning call: the model's decision on
// whether tools are needed and, if so, which tool invocations to make.
// It mirrors the wire schema the planner requests from the model gateway.
type Plan struct {
	// RequiresTools indicates whether the query needs tool usage at all.
	RequiresTools bool `json:"requires_tools"`
	// DirectResponse carries the answer when no tools are needed.
	DirectResponse string `json:"direct_response,omitempty"`
	// Thought is the model's reasoning about how to solve the task.
	Thought string `json:"thought,omitempty"`
	// Steps is the human-readable plan, one step per entry.
	Steps []string `json:"plan,omitempty"`
	// ToolCalls lists the tool invocations to perform, in order. Order is
	// significant: later calls may depend conceptually on earlier ones.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// ToolCall names a single tool invocation with its argument mapping.
type ToolCall struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args"`
}

// Validate enforces the well-formedness invariant: a plan carries exactly one
// of DirectResponse or a non-empty ToolCalls list, consistent with
// RequiresTools. This keeps "no tools, empty response" distinguishable from a
// parse failure at the system boundary.
func (p *Plan) Validate() error {
	if p == nil {
		return fmt.Errorf("plan is nil")
	}
	if p.RequiresTools {
		if len(p.ToolCalls) == 0 {
			return fmt.Errorf("plan requires tools but has no tool_calls")
		}
		for i, tc := range p.ToolCalls {
			if tc.Tool == "" {
				return fmt.Errorf("tool_calls[%d] is missing the tool name", i)
			}
		}
		return nil
	}
	if p.DirectResponse == "" {
		return fmt.Errorf("plan has requires_tools=false but no direct_response")
	}
	if len(p.ToolCalls) > 0 {
		return fmt.Errorf("plan has requires_tools=false but %d tool_calls", len(p.ToolCalls))
	}
	return nil
}

// ToolNames returns the tool name of every call in listed order.
func (p *Plan) ToolNames() []string {
	if p == nil || len(p.ToolCalls) == 0 {
		return nil
	}
	names := make([]string, 0, len(p.ToolCalls))
	for _, tc := range p.ToolCalls {
		names = append(names, tc.Tool)
	}
	return names
}

// ReflectionVerdict is the structured output of one critique call: whether
// the reviewed plan needs changes, the rationale, and optional concrete
// suggestions for the revision request.
type ReflectionVerdict struct {
	RequiresChanges bool     `json:"requires_changes"`
	Reflection      string   `json:"reflection"`
	Suggestions     []string `json:"suggestions,omitempty"`
}
