package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/voidhawk42/reagent-cli/api/schemas"
)

const validToolPlanJSON = `{
	"requires_tools": true,
	"thought": "I need to search for this.",
	"plan": ["Use google_search", "Return the result"],
	"tool_calls": [{"tool": "google_search", "args": {"query": "latest news"}}]
}`

func newTestPlanner(gateway *MockModelGateway) *Planner {
	return NewPlanner(gateway, NewPromptBuilder(), 0.2, zap.NewNop())
}

func TestPlanner_GetPlan_Initial(t *testing.T) {
	gateway := new(MockModelGateway)
	gateway.On("Complete", mock.Anything, mock.MatchedBy(func(req schemas.GenerationRequest) bool {
		return req.ForceJSON && req.UserPrompt == "latest news about the UEFA final" &&
			req.SystemPrompt == "system"
	})).Return(validToolPlanJSON, nil).Once()

	plan, err := newTestPlanner(gateway).GetPlan(
		context.Background(), "latest news about the UEFA final", "system", nil, nil)

	require.NoError(t, err)
	assert.True(t, plan.RequiresTools)
	assert.Equal(t, []string{"google_search"}, plan.ToolNames())
	gateway.AssertExpectations(t)
}

func TestPlanner_GetPlan_Revision(t *testing.T) {
	prev := toolPlan("search", "google_search")
	verdict := &schemas.ReflectionVerdict{
		RequiresChanges: true,
		Reflection:      "narrow the query",
	}

	gateway := new(MockModelGateway)
	gateway.On("Complete", mock.Anything, mock.MatchedBy(func(req schemas.GenerationRequest) bool {
		// The revision request embeds the previous plan and the feedback,
		// not the bare query.
		return req.ForceJSON && req.UserPrompt != "the query"
	})).Return(validToolPlanJSON, nil).Once()

	plan, err := newTestPlanner(gateway).GetPlan(
		context.Background(), "the query", "system", prev, verdict)

	require.NoError(t, err)
	assert.NotNil(t, plan)
	gateway.AssertExpectations(t)

	// The prompt carried the feedback text.
	req := gateway.Calls[0].Arguments.Get(1).(schemas.GenerationRequest)
	assert.Contains(t, req.UserPrompt, "narrow the query")
	assert.Contains(t, req.UserPrompt, "ONLY the issues raised")
}

func TestPlanner_GetPlan_FencedOutput(t *testing.T) {
	gateway := new(MockModelGateway)
	gateway.On("Complete", mock.Anything, mock.Anything).
		Return("Here is my plan:\n```json\n"+validToolPlanJSON+"\n```", nil).Once()

	plan, err := newTestPlanner(gateway).GetPlan(context.Background(), "q", "system", nil, nil)

	require.NoError(t, err)
	assert.True(t, plan.RequiresTools)
}

func TestPlanner_GetPlan_MalformedOutput(t *testing.T) {
	gateway := new(MockModelGateway)
	gateway.On("Complete", mock.Anything, mock.Anything).
		Return("I cannot produce a plan right now.", nil).Once()

	plan, err := newTestPlanner(gateway).GetPlan(context.Background(), "q", "system", nil, nil)

	assert.Nil(t, plan, "a parse failure must not degrade to an empty plan")
	var parseErr *PlanParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, ErrCodePlanParse, errorCode(err))
}

func TestPlanner_GetPlan_StructurallyInvalidPlan(t *testing.T) {
	// requires_tools=true but no tool calls violates the plan invariant.
	gateway := new(MockModelGateway)
	gateway.On("Complete", mock.Anything, mock.Anything).
		Return(`{"requires_tools": true, "thought": "hmm", "plan": [], "tool_calls": []}`, nil).Once()

	plan, err := newTestPlanner(gateway).GetPlan(context.Background(), "q", "system", nil, nil)

	assert.Nil(t, plan)
	var parseErr *PlanParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestPlanner_GetPlan_GatewayFailure(t *testing.T) {
	gateway := new(MockModelGateway)
	gateway.On("Complete", mock.Anything, mock.Anything).
		Return("", errors.New("api timeout")).Once()

	plan, err := newTestPlanner(gateway).GetPlan(context.Background(), "q", "system", nil, nil)

	assert.Nil(t, plan)
	require.Error(t, err)
	assert.NotEqual(t, ErrCodePlanParse, errorCode(err), "transport failure is not a parse failure")
}
