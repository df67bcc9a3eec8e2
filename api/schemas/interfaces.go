// api/schemas/interfaces.go
package schemas

import "context"

// GenerationRequest is one blocking request to the model gateway.
type GenerationRequest struct {
	SystemPrompt string
	UserPrompt   string
	// ForceJSON requests a schema-constrained JSON object response.
	ForceJSON   bool
	Temperature float32
}

// ModelGateway is the contract consumed by the planner, the reflection
// engine, the executor's synthesis step and the safety gate. Implementations
// live in internal/llmclient; everything above them treats the gateway as an
// external collaborator.
type ModelGateway interface {
	// Complete issues one blocking chat-completion request and returns the
	// raw response text.
	Complete(ctx context.Context, req GenerationRequest) (string, error)

	// ClassifySafety classifies raw content. The first whitespace-separated
	// token of the returned string is "safe" or "unsafe", optionally followed
	// by category tags. Transport or protocol failures surface as errors;
	// content is never silently treated as safe.
	ClassifySafety(ctx context.Context, content string) (string, error)
}
