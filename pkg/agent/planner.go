package agent

import (
	"strings"

	"github.com/lankalegal/neethi/pkg/models"
)

// substantiveQueryLen is the question length at or above which the planner
// considers the query well formed.
const substantiveQueryLen = 20

// Planner routes a query through the fixed pipeline sequence. It never calls
// an LLM: identical inputs always produce identical plans.
type Planner struct{}

// NewPlanner creates the deterministic planner.
func NewPlanner() *Planner {
	return &Planner{}
}

// Plan normalizes the question into the processed query and scores the
// query's quality. memoryContext carries prior case turns; when present it
// is threaded into the processed query so that follow-up questions retrieve
// against the conversation, not just the bare question.
func (p *Planner) Plan(query models.UserQuery, memoryContext string) models.Plan {
	question := normalizeQuery(query.Question)

	parts := []string{question}
	if cc := normalizeQuery(query.CaseContext); cc != "" {
		parts = append(parts, cc)
	}
	if mc := strings.TrimSpace(memoryContext); mc != "" {
		parts = append(parts, mc)
	}

	return models.Plan{
		Steps:          models.PlanSteps(),
		ProcessedQuery: strings.Join(nonEmpty(parts), "\n"),
		Confidence:     planConfidence(question),
	}
}

// planConfidence grades the raw question: blank, fragment, or substantive.
func planConfidence(question string) float64 {
	switch {
	case question == "":
		return 0.0
	case len(question) < substantiveQueryLen:
		return 0.5
	default:
		return 0.9
	}
}

// normalizeQuery collapses all interior whitespace to single spaces.
func normalizeQuery(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func nonEmpty(parts []string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
