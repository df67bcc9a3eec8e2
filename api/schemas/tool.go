// api/schemas/tool.go
package schemas

import "context"

// ParameterSpec describes a single tool parameter for the prompt catalog.
type ParameterSpec struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// InvokeFunc is the invocation function of a tool. Implementations return a
// nil result with a non-nil error on failure; they must not panic. The
// registry recovers panics defensively, but a panicking tool is a bug.
type InvokeFunc func(ctx context.Context, args map[string]any) (*ToolResult, error)

// Tool is a statically declared capability descriptor: name, description and
// a typed parameter list, registered once at startup. No runtime signature or
// docstring introspection is involved; what the prompt catalog advertises is
// exactly what the author declared.
type Tool struct {
	Name        string                   `json:"name"`
	Description string                   `json:"description"`
	Parameters  map[string]ParameterSpec `json:"parameters"`
	Invoke      InvokeFunc               `json:"-"`
}

// EnrichedResult is one entry of a multi-result tool payload, e.g. a search
// hit with its page summary.
type EnrichedResult struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// ToolResult is the structured value a tool returns. Exactly which fields are
// populated depends on the tool: a lookup typically fills Summary, a search
// fills Enriched, and anything tabular goes into Data. A failed invocation
// returns (nil, err) instead; a nil ToolResult is the failure sentinel at the
// registry boundary.
type ToolResult struct {
	Summary  string           `json:"summary,omitempty"`
	Enriched []EnrichedResult `json:"enriched_results,omitempty"`
	Data     map[string]any   `json:"data,omitempty"`
}

// Empty reports whether the result carries no usable content.
func (r *ToolResult) Empty() bool {
	return r == nil || (r.Summary == "" && len(r.Enriched) == 0 && len(r.Data) == 0)
}
