package agent

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/voidhawk42/reagent-cli/api/schemas"
)

// -- Model Gateway Mock --

// MockModelGateway mocks the schemas.ModelGateway interface consumed by the
// safety gate, the planner, the reflection engine and the executor.
type MockModelGateway struct {
	mock.Mock
}

// Complete mocks a chat-completion call.
func (m *MockModelGateway) Complete(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// ClassifySafety mocks a guard-model call.
func (m *MockModelGateway) ClassifySafety(ctx context.Context, content string) (string, error) {
	args := m.Called(ctx, content)
	return args.String(0), args.Error(1)
}

// expectSafe sets up a passing safety verdict for any content.
func (m *MockModelGateway) expectSafe() *mock.Call {
	return m.On("ClassifySafety", mock.Anything, mock.Anything).Return("safe", nil)
}

// -- Persistence Sink Mock --

// MockSink mocks the History's persistence sink.
type MockSink struct {
	mock.Mock
}

func (m *MockSink) SaveInteraction(ctx context.Context, interaction *schemas.Interaction, record *schemas.ExecutionRecord) error {
	args := m.Called(ctx, interaction, record)
	return args.Error(0)
}

// -- Fixture helpers --

// directPlan is a minimal no-tools plan.
func directPlan(response string) *schemas.Plan {
	return &schemas.Plan{
		RequiresTools:  false,
		DirectResponse: response,
	}
}

// toolPlan is a minimal plan invoking the given tools in order.
func toolPlan(thought string, tools ...string) *schemas.Plan {
	calls := make([]schemas.ToolCall, len(tools))
	for i, name := range tools {
		calls[i] = schemas.ToolCall{Tool: name, Args: map[string]any{"query": "q"}}
	}
	return &schemas.Plan{
		RequiresTools: true,
		Thought:       thought,
		Steps:         []string{"Use " + tools[0], "Return the result"},
		ToolCalls:     calls,
	}
}

// staticTool builds a registered tool returning a fixed summary.
func staticTool(name, summary string) schemas.Tool {
	return schemas.Tool{
		Name:        name,
		Description: name + " test tool",
		Parameters: map[string]schemas.ParameterSpec{
			"query": {Type: "string", Description: "query"},
		},
		Invoke: func(ctx context.Context, args map[string]any) (*schemas.ToolResult, error) {
			return &schemas.ToolResult{Summary: summary}, nil
		},
	}
}

// failingTool builds a registered tool that always errors.
func failingTool(name string, err error) schemas.Tool {
	tool := staticTool(name, "")
	tool.Invoke = func(ctx context.Context, args map[string]any) (*schemas.ToolResult, error) {
		return nil, err
	}
	return tool
}

// panickingTool builds a registered tool that panics on invocation.
func panickingTool(name string) schemas.Tool {
	tool := staticTool(name, "")
	tool.Invoke = func(ctx context.Context, args map[string]any) (*schemas.ToolResult, error) {
		panic("tool exploded")
	}
	return tool
}
