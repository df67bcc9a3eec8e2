// api/schemas/interaction.go
package schemas

import "time"

// Interaction is the recorded unit of one query's query/plan/reflection
// lifecycle. It is created when a query passes the safety gate and mutated in
// place (through the history API) as the pipeline progresses: Plan holds the
// plan currently under review; once reflection completes, the record is
// collapsed into its composite shape with InitialPlan, ReflectionHistory and
// FinalPlan populated.
type Interaction struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Query     string    `json:"query"`

	// Plan is the plan under review at the time this record was appended.
	Plan *Plan `json:"plan"`

	// Composite shape, populated by the collapse after reflection finishes.
	InitialPlan       *Plan               `json:"initial_plan,omitempty"`
	ReflectionHistory []ReflectionVerdict `json:"reflection_history,omitempty"`
	FinalPlan         *Plan               `json:"final_plan,omitempty"`
}
