// internal/agent/history.go
package agent

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/voidhawk42/reagent-cli/api/schemas"
)

// Sink receives finished interactions for durable storage. The Postgres
// store implements it; persistence failures are logged, never fatal.
type Sink interface {
	SaveInteraction(ctx context.Context, interaction *schemas.Interaction, record *schemas.ExecutionRecord) error
}

// History is the session-scoped, append-only interaction log. Each session
// owns its own instance; there is no package-level state. All access is
// mutex guarded, though the pipeline itself keeps one query in flight at a
// time.
type History struct {
	mu           sync.Mutex
	interactions []schemas.Interaction
	sink         Sink
	log          *zap.Logger
}

// NewHistory creates an empty history. sink may be nil.
func NewHistory(sink Sink, logger *zap.Logger) *History {
	return &History{
		sink: sink,
		log:  logger.Named("history"),
	}
}

// Record appends a fresh interaction for the query/plan pair unless the
// latest entry already holds exactly that pair. The reflection loop records
// every iteration; deduplication keeps the most-recent-entry invariant
// without stacking identical records when a revision fails and the plan is
// carried forward unchanged.
func (h *History) Record(query string, plan *schemas.Plan) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if n := len(h.interactions); n > 0 {
		last := &h.interactions[n-1]
		if last.Query == query && last.Plan == plan {
			return
		}
	}

	h.interactions = append(h.interactions, schemas.Interaction{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Query:     query,
		Plan:      plan,
	})
}

// Last returns a pointer to the most recent interaction, or nil when empty.
// The pointer stays valid because the log is append-only and collapse
// mutates in place under the lock.
func (h *History) Last() *schemas.Interaction {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.interactions) == 0 {
		return nil
	}
	return &h.interactions[len(h.interactions)-1]
}

// All returns a copy of the log.
func (h *History) All() []schemas.Interaction {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]schemas.Interaction, len(h.interactions))
	copy(out, h.interactions)
	return out
}

// Len reports the number of recorded interactions.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.interactions)
}

// Clear empties the log.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.interactions = nil
}

// CollapseLast rewrites the most recent interaction into its composite
// shape: the initial plan, the full reflection transcript and the final
// plan. No-op on an empty history.
func (h *History) CollapseLast(initial *schemas.Plan, verdicts []schemas.ReflectionVerdict, final *schemas.Plan) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.interactions) == 0 {
		return
	}

	last := &h.interactions[len(h.interactions)-1]
	last.Plan = final
	last.InitialPlan = initial
	last.ReflectionHistory = verdicts
	last.FinalPlan = final
}

// Persist writes the most recent interaction and its execution record to the
// sink, if one is configured.
func (h *History) Persist(ctx context.Context, record *schemas.ExecutionRecord) {
	if h.sink == nil {
		return
	}

	last := h.Last()
	if last == nil {
		return
	}

	if err := h.sink.SaveInteraction(ctx, last, record); err != nil {
		h.log.Warn("Failed to persist interaction",
			zap.String("interaction_id", last.ID),
			zap.Error(err))
	}
}
