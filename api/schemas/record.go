// api/schemas/record.go
package schemas

// Status values for an ExecutionRecord.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// ExecutionMetadata summarizes how a tool-backed answer was produced.
type ExecutionMetadata struct {
	InitialThought   string   `json:"initial_thought,omitempty"`
	InitialPlanSteps []string `json:"initial_plan_steps,omitempty"`
	FinalPlanSteps   []string `json:"final_plan_steps,omitempty"`
	ToolsUsed        []string `json:"tools_used,omitempty"`
}

// ExecutionRecord is the structured result of one end-to-end query. The
// pipeline always returns one of these; internal faults are converted, never
// propagated raw to the caller.
type ExecutionRecord struct {
	Status   string             `json:"status"`
	Response string             `json:"response,omitempty"`
	Warning  string             `json:"warning,omitempty"`
	Error    string             `json:"error,omitempty"`
	// ErrorType is the taxonomy code of the failure, e.g. "GENERAL" for the
	// catch-all conversion. Empty on success.
	ErrorType string             `json:"error_type,omitempty"`
	Metadata  *ExecutionMetadata `json:"metadata,omitempty"`
}

// Succeeded reports whether the record carries a successful response.
func (r *ExecutionRecord) Succeeded() bool {
	return r != nil && r.Status == StatusSuccess
}
