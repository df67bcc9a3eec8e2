// internal/agent/registry.go
package agent

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/voidhawk42/reagent-cli/api/schemas"
)

// Registry holds the statically declared tools available to the agent.
// Registration happens once at startup; lookups are concurrent-safe.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]schemas.Tool
	log   *zap.Logger
}

// NewRegistry creates an empty tool registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		tools: make(map[string]schemas.Tool),
		log:   logger.Named("registry"),
	}
}

// Register adds a tool. Duplicate names are rejected so a misconfigured
// startup fails loudly instead of silently shadowing a tool.
func (r *Registry) Register(tool schemas.Tool) error {
	if tool.Name == "" {
		return fmt.Errorf("tool name must not be empty")
	}
	if tool.Invoke == nil {
		return fmt.Errorf("tool %q has no invoke function", tool.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("tool %q is already registered", tool.Name)
	}
	r.tools[tool.Name] = tool

	r.log.Debug("Tool registered", zap.String("tool", tool.Name))
	return nil
}

// Get returns the named tool.
func (r *Registry) Get(name string) (schemas.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// List returns all registered tools in stable name order, so the prompt
// catalog is deterministic across runs.
func (r *Registry) List() []schemas.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]schemas.Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		tools = append(tools, tool)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
	return tools
}

// Len reports the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Invoke dispatches one tool call. A missing tool becomes a
// ToolNotRegisteredError and any failure, including a panic inside the tool,
// becomes a ToolExecutionError. No fault escapes this boundary raw.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) (result *schemas.ToolResult, err error) {
	tool, ok := r.Get(name)
	if !ok {
		return nil, &ToolNotRegisteredError{Tool: name}
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("Tool panicked during invocation",
				zap.String("tool", name),
				zap.Any("panic", rec))
			result = nil
			err = &ToolExecutionError{Tool: name, Err: fmt.Errorf("panic: %v", rec)}
		}
	}()

	result, err = tool.Invoke(ctx, args)
	if err != nil {
		return nil, &ToolExecutionError{Tool: name, Err: err}
	}
	return result, nil
}
