// internal/agent/errors.go
package agent

import (
	"errors"
	"fmt"
)

// ErrorCode is a string type used for structured failure reporting on
// execution records. Using a custom type ensures that only predefined
// constants can be used where an ErrorCode is expected.
type ErrorCode string

const (
	// ErrCodeSafetyRejection marks a query stopped at the safety gate. No
	// downstream model or tool calls were made.
	ErrCodeSafetyRejection ErrorCode = "CONTENT_SAFETY_REJECTION"
	// ErrCodePlanParse marks malformed structured output from the planner.
	ErrCodePlanParse ErrorCode = "PLAN_PARSE_ERROR"
	// ErrCodeReflectionIteration marks a failed critique call. It is
	// recoverable inside the loop; it only surfaces when the loop itself
	// cannot continue.
	ErrCodeReflectionIteration ErrorCode = "REFLECTION_ITERATION_ERROR"
	// ErrCodeToolNotRegistered marks a plan naming an unknown tool.
	ErrCodeToolNotRegistered ErrorCode = "TOOL_NOT_REGISTERED"
	// ErrCodeToolExecution marks a registered tool that failed or panicked.
	ErrCodeToolExecution ErrorCode = "TOOL_EXECUTION_FAILURE"
	// ErrCodeSynthesis marks a failed merge call. The executor degrades to
	// concatenation, so this code never terminates a query by itself.
	ErrCodeSynthesis ErrorCode = "SYNTHESIS_FAILURE"
	// ErrCodeGeneral is the catch-all for unexpected internal faults,
	// including recovered panics.
	ErrCodeGeneral ErrorCode = "GENERAL"
)

// SafetyRejectionError is terminal: the query never reaches the planner.
type SafetyRejectionError struct {
	// Classification is the raw guard verdict, e.g. "unsafe S9".
	Classification string
}

func (e *SafetyRejectionError) Error() string {
	return fmt.Sprintf("query rejected by content safety gate: %s", e.Classification)
}

func (e *SafetyRejectionError) Code() ErrorCode { return ErrCodeSafetyRejection }

// PlanParseError reports malformed planner output. At the top level it is
// terminal; inside the reflection loop the caller downgrades it to "keep the
// previous plan and continue".
type PlanParseError struct {
	// Raw is the model output that failed to parse, truncated for logging.
	Raw string
	Err error
}

func (e *PlanParseError) Error() string {
	return fmt.Sprintf("failed to parse plan from model output: %v", e.Err)
}

func (e *PlanParseError) Unwrap() error   { return e.Err }
func (e *PlanParseError) Code() ErrorCode { return ErrCodePlanParse }

// ToolNotRegisteredError reports a plan referencing a tool the registry does
// not know. The executor drops that call and continues.
type ToolNotRegisteredError struct {
	Tool string
}

func (e *ToolNotRegisteredError) Error() string {
	return fmt.Sprintf("tool %q is not registered", e.Tool)
}

func (e *ToolNotRegisteredError) Code() ErrorCode { return ErrCodeToolNotRegistered }

// ToolExecutionError wraps a failure (or recovered panic) from a single tool
// invocation. The executor drops that call's contribution and continues.
type ToolExecutionError struct {
	Tool string
	Err  error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %q failed: %v", e.Tool, e.Err)
}

func (e *ToolExecutionError) Unwrap() error   { return e.Err }
func (e *ToolExecutionError) Code() ErrorCode { return ErrCodeToolExecution }

// coder is implemented by the typed pipeline errors.
type coder interface {
	Code() ErrorCode
}

// errorCode maps any error to its taxonomy code, falling back to the
// catch-all for untyped faults.
func errorCode(err error) ErrorCode {
	var c coder
	if errors.As(err, &c) {
		return c.Code()
	}
	return ErrCodeGeneral
}
