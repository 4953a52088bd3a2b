package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lankalegal/neethi/pkg/models"
)

func TestPlanFixedSteps(t *testing.T) {
	planner := NewPlanner()

	queries := []models.UserQuery{
		{Question: "What is the definition of culpable homicide?"},
		{Question: ""},
		{Question: "x", CaseContext: "pending appeal"},
	}
	for _, q := range queries {
		plan := planner.Plan(q, "")
		assert.Equal(t, models.PlanSteps(), plan.Steps)
	}
}

func TestPlanNormalizesWhitespace(t *testing.T) {
	planner := NewPlanner()

	plan := planner.Plan(models.UserQuery{Question: "  What   is\n\tculpable homicide?  "}, "")
	assert.Equal(t, "What is culpable homicide?", plan.ProcessedQuery)
}

func TestPlanThreadsContextAndMemory(t *testing.T) {
	planner := NewPlanner()

	query := models.UserQuery{
		Question:    "What are its penalties?",
		CaseContext: "Charged under  Section 300",
	}
	plan := planner.Plan(query, "user: What is Section 299?\nassistant: Culpable homicide.")

	require.Equal(t,
		"What are its penalties?\nCharged under Section 300\nuser: What is Section 299?\nassistant: Culpable homicide.",
		plan.ProcessedQuery)
}

func TestPlanSkipsEmptyParts(t *testing.T) {
	planner := NewPlanner()

	plan := planner.Plan(models.UserQuery{Question: "What is Section 299?", CaseContext: "   "}, "  ")
	assert.Equal(t, "What is Section 299?", plan.ProcessedQuery)
}

func TestPlanConfidence(t *testing.T) {
	tests := []struct {
		name     string
		question string
		want     float64
	}{
		{name: "blank question", question: "   ", want: 0.0},
		{name: "fragment", question: "Section 299?", want: 0.5},
		{name: "substantive question", question: "What is the definition of culpable homicide?", want: 0.9},
		{name: "exactly below threshold", question: "aaaaaaaaaaaaaaaaaaa", want: 0.5},
		{name: "exactly at threshold", question: "aaaaaaaaaaaaaaaaaaaa", want: 0.9},
	}

	planner := NewPlanner()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := planner.Plan(models.UserQuery{Question: tt.question}, "")
			assert.Equal(t, tt.want, plan.Confidence)
		})
	}
}

func TestPlanDeterministic(t *testing.T) {
	planner := NewPlanner()
	query := models.UserQuery{Question: "Is self-defence a complete defence to murder?"}

	first := planner.Plan(query, "prior turn")
	second := planner.Plan(query, "prior turn")
	assert.Equal(t, first, second)
}
