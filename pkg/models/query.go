// Package models defines the value types exchanged between pipeline agents:
// queries, plans, retrieved sources, reasoning, verdicts, outputs, and the
// audit/memory records persisted around them.
package models

// UserQuery is one legal question as received at the API boundary.
// Immutable once created.
type UserQuery struct {
	Question    string `json:"question"`
	CaseContext string `json:"case_context,omitempty"`
}

// PlanStep identifies one pipeline step in a Plan.
type PlanStep string

const (
	PlanStepRetrieve   PlanStep = "retrieve"
	PlanStepReason     PlanStep = "reason"
	PlanStepValidate   PlanStep = "validate"
	PlanStepSynthesize PlanStep = "synthesize"
)

// PlanSteps is the fixed execution order the deterministic planner emits.
func PlanSteps() []PlanStep {
	return []PlanStep{PlanStepRetrieve, PlanStepReason, PlanStepValidate, PlanStepSynthesize}
}

// Plan is the planner's routing decision for one query.
type Plan struct {
	Steps          []PlanStep `json:"steps"`
	ProcessedQuery string     `json:"processed_query"`
	Confidence     float64    `json:"confidence"`
}
