package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/voidhawk42/reagent-cli/api/schemas"
)

const (
	cleanVerdictJSON   = `{"requires_changes": false, "reflection": "The plan is appropriate."}`
	changesVerdictJSON = `{"requires_changes": true, "reflection": "Use wikipedia instead.", "suggestions": ["swap the tool"]}`
	revisedPlanJSON    = `{
		"requires_tools": true,
		"thought": "Wikipedia is more authoritative.",
		"plan": ["Use wikipedia_search", "Return the result"],
		"tool_calls": [{"tool": "wikipedia_search", "args": {"query": "topic"}}]
	}`
)

// isCritique matches the critique request by its fixed reflection framing.
// The revision prompt mentions the review too, so match on the framing only
// the critique request carries.
func isCritique(req schemas.GenerationRequest) bool {
	return strings.Contains(req.UserPrompt, "conducting a critical review")
}

// isRevision matches the revision request by its fixed framing.
func isRevision(req schemas.GenerationRequest) bool {
	return strings.Contains(req.UserPrompt, "ONLY the issues raised")
}

func newTestEngine(gateway *MockModelGateway) (*ReflectionEngine, *History) {
	history := NewHistory(nil, zap.NewNop())
	planner := newTestPlanner(gateway)
	engine := NewReflectionEngine(gateway, planner, NewPromptBuilder(), history, 0.2, zap.NewNop())
	return engine, history
}

func TestReflection_ZeroIterations(t *testing.T) {
	gateway := new(MockModelGateway)
	engine, history := newTestEngine(gateway)
	initial := toolPlan("thought", "google_search")

	outcome, err := engine.Run(context.Background(), "q", initial, "system", 0)

	require.NoError(t, err)
	assert.Same(t, initial, outcome.FinalPlan)
	assert.Empty(t, outcome.History)
	assert.Equal(t, ReflectionConverged, outcome.State)
	assert.Equal(t, 0, history.Len())
	gateway.AssertNotCalled(t, "Complete")
}

func TestReflection_ConvergesOnCleanVerdict(t *testing.T) {
	gateway := new(MockModelGateway)
	gateway.On("Complete", mock.Anything, mock.MatchedBy(isCritique)).
		Return(cleanVerdictJSON, nil).Once()

	engine, history := newTestEngine(gateway)
	initial := toolPlan("thought", "google_search")

	outcome, err := engine.Run(context.Background(), "q", initial, "system", 3)

	require.NoError(t, err)
	assert.Same(t, initial, outcome.FinalPlan)
	require.Len(t, outcome.History, 1)
	assert.False(t, outcome.History[0].RequiresChanges)
	assert.Equal(t, ReflectionConverged, outcome.State)
	// One record for the single reviewed plan.
	assert.Equal(t, 1, history.Len())
	// No revision call after a clean verdict.
	gateway.AssertExpectations(t)
	gateway.AssertNotCalled(t, "Complete", mock.Anything, mock.MatchedBy(isRevision))
}

func TestReflection_ReviseThenConverge(t *testing.T) {
	gateway := new(MockModelGateway)
	gateway.On("Complete", mock.Anything, mock.MatchedBy(isCritique)).
		Return(changesVerdictJSON, nil).Once()
	gateway.On("Complete", mock.Anything, mock.MatchedBy(isRevision)).
		Return(revisedPlanJSON, nil).Once()
	gateway.On("Complete", mock.Anything, mock.MatchedBy(isCritique)).
		Return(cleanVerdictJSON, nil).Once()

	engine, history := newTestEngine(gateway)
	initial := toolPlan("thought", "google_search")

	outcome, err := engine.Run(context.Background(), "q", initial, "system", 3)

	require.NoError(t, err)
	require.Len(t, outcome.History, 2)
	assert.True(t, outcome.History[0].RequiresChanges)
	assert.False(t, outcome.History[1].RequiresChanges)
	assert.Equal(t, ReflectionConverged, outcome.State)
	assert.Equal(t, []string{"wikipedia_search"}, outcome.FinalPlan.ToolNames())
	// One record per reviewed plan: the initial and the revised.
	assert.Equal(t, 2, history.Len())
	gateway.AssertExpectations(t)
}

func TestReflection_ExhaustsIterationBudget(t *testing.T) {
	gateway := new(MockModelGateway)
	gateway.On("Complete", mock.Anything, mock.MatchedBy(isCritique)).
		Return(changesVerdictJSON, nil).Times(2)
	gateway.On("Complete", mock.Anything, mock.MatchedBy(isRevision)).
		Return(revisedPlanJSON, nil).Times(2)

	engine, _ := newTestEngine(gateway)
	initial := toolPlan("thought", "google_search")

	outcome, err := engine.Run(context.Background(), "q", initial, "system", 2)

	require.NoError(t, err)
	assert.Len(t, outcome.History, 2, "at most maxIterations critiques")
	assert.Equal(t, ReflectionExhausted, outcome.State)
	assert.Equal(t, []string{"wikipedia_search"}, outcome.FinalPlan.ToolNames())
	gateway.AssertExpectations(t)
}

func TestReflection_FailedCritiqueConsumesIteration(t *testing.T) {
	gateway := new(MockModelGateway)
	// First critique fails at transport level, second returns clean.
	gateway.On("Complete", mock.Anything, mock.MatchedBy(isCritique)).
		Return("", errors.New("api unavailable")).Once()
	gateway.On("Complete", mock.Anything, mock.MatchedBy(isCritique)).
		Return(cleanVerdictJSON, nil).Once()

	engine, _ := newTestEngine(gateway)
	initial := toolPlan("thought", "google_search")

	outcome, err := engine.Run(context.Background(), "q", initial, "system", 3)

	require.NoError(t, err)
	require.Len(t, outcome.History, 2)
	// The synthetic verdict records the failure without requiring changes
	// and without ending the loop.
	assert.False(t, outcome.History[0].RequiresChanges)
	assert.Contains(t, outcome.History[0].Reflection, "Reflection failed due to error")
	assert.Equal(t, ReflectionConverged, outcome.State)
	assert.Same(t, initial, outcome.FinalPlan)
	gateway.AssertExpectations(t)
}

func TestReflection_UnparseableCritiqueIsSynthetic(t *testing.T) {
	gateway := new(MockModelGateway)
	gateway.On("Complete", mock.Anything, mock.MatchedBy(isCritique)).
		Return("not json at all", nil).Times(2)

	engine, _ := newTestEngine(gateway)
	initial := toolPlan("thought", "google_search")

	outcome, err := engine.Run(context.Background(), "q", initial, "system", 2)

	require.NoError(t, err)
	assert.Len(t, outcome.History, 2)
	assert.Equal(t, ReflectionExhausted, outcome.State)
	assert.Same(t, initial, outcome.FinalPlan)
}

func TestReflection_FailedRevisionKeepsCurrentPlan(t *testing.T) {
	gateway := new(MockModelGateway)
	gateway.On("Complete", mock.Anything, mock.MatchedBy(isCritique)).
		Return(changesVerdictJSON, nil).Once()
	gateway.On("Complete", mock.Anything, mock.MatchedBy(isRevision)).
		Return("garbage output", nil).Once()
	gateway.On("Complete", mock.Anything, mock.MatchedBy(isCritique)).
		Return(cleanVerdictJSON, nil).Once()

	engine, history := newTestEngine(gateway)
	initial := toolPlan("thought", "google_search")

	outcome, err := engine.Run(context.Background(), "q", initial, "system", 3)

	require.NoError(t, err)
	assert.Same(t, initial, outcome.FinalPlan, "unrevised plan carries forward")
	assert.Equal(t, ReflectionConverged, outcome.State)
	// The carried-forward plan is not re-recorded as a duplicate.
	assert.Equal(t, 1, history.Len())
	gateway.AssertExpectations(t)
}

func TestReflection_NilInitialPlan(t *testing.T) {
	engine, _ := newTestEngine(new(MockModelGateway))
	_, err := engine.Run(context.Background(), "q", nil, "system", 3)
	assert.Error(t, err)
}
