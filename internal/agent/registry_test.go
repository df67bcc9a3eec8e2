package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/voidhawk42/reagent-cli/api/schemas"
)

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	require.NoError(t, r.Register(staticTool("wikipedia_search", "summary")))
	assert.Equal(t, 1, r.Len())

	t.Run("duplicate name rejected", func(t *testing.T) {
		err := r.Register(staticTool("wikipedia_search", "other"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already registered")
		assert.Equal(t, 1, r.Len())
	})

	t.Run("empty name rejected", func(t *testing.T) {
		err := r.Register(staticTool("", "x"))
		assert.Error(t, err)
	})

	t.Run("nil invoke rejected", func(t *testing.T) {
		tool := staticTool("broken", "x")
		tool.Invoke = nil
		err := r.Register(tool)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no invoke function")
	})
}

func TestRegistry_List_StableOrder(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	for _, name := range []string{"get_weather", "wikipedia_search", "google_search"} {
		require.NoError(t, r.Register(staticTool(name, "s")))
	}

	var names []string
	for _, tool := range r.List() {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{"get_weather", "google_search", "wikipedia_search"}, names)
}

func TestRegistry_Invoke(t *testing.T) {
	ctx := context.Background()

	t.Run("successful invocation", func(t *testing.T) {
		r := NewRegistry(zap.NewNop())
		require.NoError(t, r.Register(staticTool("wikipedia_search", "Einstein was a physicist.")))

		result, err := r.Invoke(ctx, "wikipedia_search", map[string]any{"query": "Einstein"})

		require.NoError(t, err)
		assert.Equal(t, "Einstein was a physicist.", result.Summary)
	})

	t.Run("unregistered tool yields typed error", func(t *testing.T) {
		r := NewRegistry(zap.NewNop())

		result, err := r.Invoke(ctx, "nonexistent", nil)

		assert.Nil(t, result)
		var notRegistered *ToolNotRegisteredError
		require.ErrorAs(t, err, &notRegistered)
		assert.Equal(t, "nonexistent", notRegistered.Tool)
		assert.Equal(t, ErrCodeToolNotRegistered, errorCode(err))
	})

	t.Run("tool error wrapped as execution failure", func(t *testing.T) {
		r := NewRegistry(zap.NewNop())
		cause := errors.New("upstream API down")
		require.NoError(t, r.Register(failingTool("google_search", cause)))

		result, err := r.Invoke(ctx, "google_search", nil)

		assert.Nil(t, result)
		var execErr *ToolExecutionError
		require.ErrorAs(t, err, &execErr)
		assert.Equal(t, "google_search", execErr.Tool)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("tool panic recovered as execution failure", func(t *testing.T) {
		r := NewRegistry(zap.NewNop())
		require.NoError(t, r.Register(panickingTool("volatile")))

		result, err := r.Invoke(ctx, "volatile", nil)

		assert.Nil(t, result)
		var execErr *ToolExecutionError
		require.ErrorAs(t, err, &execErr)
		assert.Contains(t, err.Error(), "panic")
	})
}

func TestRegistry_InvokeResultContract(t *testing.T) {
	// A nil result with nil error from a misbehaving tool is surfaced as an
	// empty result, not a crash downstream.
	r := NewRegistry(zap.NewNop())
	tool := staticTool("quiet", "")
	tool.Invoke = func(ctx context.Context, args map[string]any) (*schemas.ToolResult, error) {
		return nil, nil
	}
	require.NoError(t, r.Register(tool))

	result, err := r.Invoke(context.Background(), "quiet", nil)
	require.NoError(t, err)
	assert.True(t, result.Empty())
}
