package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lankalegal/neethi/pkg/config"
	"github.com/lankalegal/neethi/pkg/llm"
	"github.com/lankalegal/neethi/pkg/models"
)

func cleanReasoning() models.Reasoning {
	return models.Reasoning{
		Analysis:      "Causing death with the intention of causing death is culpable homicide under the cited provision.",
		Limitations:   "The retrieved sources do not cover sentencing practice.",
		CitationsUsed: []string{"Penal Code of Sri Lanka - Section 299"},
		Confidence:    0.8,
	}
}

func newRuleValidator(t *testing.T) *Validator {
	t.Helper()
	return NewValidator(nil, startDispatcher(t), testAgentConfig())
}

func TestValidateCleanPass(t *testing.T) {
	v := newRuleValidator(t)

	verdict := v.Validate(context.Background(), successfulRetrieval(), cleanReasoning())

	assert.Equal(t, models.VerdictPass, verdict.Status)
	assert.Equal(t, passConfidence, verdict.Confidence)
	assert.Empty(t, verdict.Issues)
	assert.True(t, verdict.AllCitationsVerified)
	assert.True(t, verdict.NoHallucinationDetected)
}

func TestValidateMissingSources(t *testing.T) {
	v := newRuleValidator(t)

	reasoning := models.Reasoning{
		Analysis:    "",
		Limitations: "No statutory sources were retrieved for this question, so no grounded analysis is possible.",
		Confidence:  0.1,
	}
	verdict := v.Validate(context.Background(), emptyRetrieval(), reasoning)

	assert.Equal(t, models.VerdictFail, verdict.Status)
	assert.Equal(t, 0.0, verdict.Confidence)
	assert.True(t, verdict.NoHallucinationDetected)
	assert.True(t, verdict.AllCitationsVerified)

	criticals := verdict.IssuesOfKind(models.IssueMissingSources)
	require.Len(t, criticals, 1)
	assert.Equal(t, models.SeverityCritical, criticals[0].Severity)
}

func TestValidateHallucinatedCitation(t *testing.T) {
	v := newRuleValidator(t)

	reasoning := cleanReasoning()
	reasoning.CitationsUsed = []string{"Penal Code - Section 500"}
	verdict := v.Validate(context.Background(), successfulRetrieval(), reasoning)

	assert.Equal(t, models.VerdictFail, verdict.Status)
	assert.Equal(t, 0.0, verdict.Confidence)
	assert.False(t, verdict.AllCitationsVerified)
	assert.False(t, verdict.NoHallucinationDetected)

	hallucinations := verdict.IssuesOfKind(models.IssueHallucination)
	require.Len(t, hallucinations, 1)
	assert.Equal(t, models.SeverityCritical, hallucinations[0].Severity)
	assert.Equal(t, "Penal Code - Section 500", hallucinations[0].Location)
	assert.Contains(t, hallucinations[0].Description, "Section 500")
}

func TestValidateCitationMatching(t *testing.T) {
	tests := []struct {
		name     string
		citation string
		verified bool
	}{
		{name: "exact key", citation: "Penal Code of Sri Lanka - Section 299", verified: true},
		{name: "different case", citation: "penal code of sri lanka - SECTION 299", verified: true},
		{name: "citation inside key", citation: "Section 299", verified: true},
		{name: "key inside citation", citation: "The Penal Code of Sri Lanka - Section 299 (as amended)", verified: true},
		{name: "bare section number", citation: "299", verified: true},
		{name: "wrong section", citation: "Penal Code of Sri Lanka - Section 301", verified: false},
		{name: "abbreviated law name", citation: "Penal Code - Section 299", verified: false},
		{name: "empty citation", citation: "", verified: false},
	}

	v := newRuleValidator(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reasoning := cleanReasoning()
			reasoning.CitationsUsed = []string{tt.citation}
			verdict := v.Validate(context.Background(), successfulRetrieval(), reasoning)

			assert.Equal(t, tt.verified, verdict.AllCitationsVerified)
			assert.Equal(t, tt.verified, verdict.NoHallucinationDetected)
		})
	}
}

func TestValidateMissingCitation(t *testing.T) {
	v := newRuleValidator(t)

	reasoning := cleanReasoning()
	reasoning.CitationsUsed = nil
	verdict := v.Validate(context.Background(), successfulRetrieval(), reasoning)

	assert.Equal(t, models.VerdictWarn, verdict.Status)
	assert.Equal(t, warnConfidence, verdict.Confidence)
	require.Len(t, verdict.IssuesOfKind(models.IssueMissingCitation), 1)
	assert.True(t, verdict.AllCitationsVerified, "no citations means nothing failed verification")
}

func TestValidateAnalysisLengthBoundary(t *testing.T) {
	v := newRuleValidator(t)

	run := func(analysisLen int) models.ValidationVerdict {
		reasoning := cleanReasoning()
		reasoning.Analysis = strings.Repeat("a", analysisLen)
		return v.Validate(context.Background(), successfulRetrieval(), reasoning)
	}

	short := run(49)
	assert.Equal(t, models.VerdictWarn, short.Status)
	require.Len(t, short.IssuesOfKind(models.IssueInsufficientAnalysis), 1)

	enough := run(50)
	assert.Equal(t, models.VerdictPass, enough.Status)
	assert.Empty(t, enough.IssuesOfKind(models.IssueInsufficientAnalysis))
}

func TestValidateLimitationsLengthBoundary(t *testing.T) {
	v := newRuleValidator(t)

	run := func(limitationsLen int) models.ValidationVerdict {
		reasoning := cleanReasoning()
		reasoning.Limitations = strings.Repeat("b", limitationsLen)
		return v.Validate(context.Background(), successfulRetrieval(), reasoning)
	}

	trivial := run(19)
	infos := trivial.IssuesOfKind(models.IssueMissingLimitations)
	require.Len(t, infos, 1)
	assert.Equal(t, models.SeverityInfo, infos[0].Severity)
	// Info issues alone never change the verdict.
	assert.Equal(t, models.VerdictPass, trivial.Status)
	assert.Equal(t, passConfidence, trivial.Confidence)

	stated := run(20)
	assert.Empty(t, stated.IssuesOfKind(models.IssueMissingLimitations))
}

func TestValidateRuleOnlySkipsLLM(t *testing.T) {
	client := &fakeClient{out: &llm.GenerateOutput{Text: `{"issues": []}`}}
	v := NewValidator(client, startDispatcher(t), testAgentConfig())

	v.Validate(context.Background(), successfulRetrieval(), cleanReasoning())
	assert.Zero(t, client.calls)
}

func llmValidatorConfig() *config.Config {
	cfg := testAgentConfig()
	cfg.ValidationMode = config.ValidationRulePlusLLM
	return cfg
}

func TestValidateLLMPhaseMergesIssues(t *testing.T) {
	client := &fakeClient{out: &llm.GenerateOutput{
		Text: `{"issues": [{"severity": "warning", "kind": "inconsistency", "description": "The analysis overstates the source.", "location": "paragraph 2"}]}`,
	}}
	v := NewValidator(client, startDispatcher(t), llmValidatorConfig())

	verdict := v.Validate(context.Background(), successfulRetrieval(), cleanReasoning())

	require.Equal(t, 1, client.calls)
	assert.Equal(t, models.VerdictWarn, verdict.Status)
	merged := verdict.IssuesOfKind(models.IssueInconsistency)
	require.Len(t, merged, 1)
	assert.Equal(t, "paragraph 2", merged[0].Location)

	in := client.lastIn
	assert.Equal(t, "validator-model", in.Model)
	assert.Zero(t, in.Temperature)
	assert.True(t, in.JSONOnly)
}

func TestValidateLLMPhaseCriticalForcesFail(t *testing.T) {
	client := &fakeClient{out: &llm.GenerateOutput{
		Text: `{"issues": [{"severity": "critical", "kind": "hallucination", "description": "Claims a repeal the sources do not mention."}]}`,
	}}
	v := NewValidator(client, startDispatcher(t), llmValidatorConfig())

	verdict := v.Validate(context.Background(), successfulRetrieval(), cleanReasoning())

	assert.Equal(t, models.VerdictFail, verdict.Status)
	assert.False(t, verdict.NoHallucinationDetected)
	// Rule-phase verification is untouched by the LLM's finding.
	assert.True(t, verdict.AllCitationsVerified)
}

func TestValidateLLMPhaseFailureNeverCritical(t *testing.T) {
	tests := []struct {
		name   string
		client *fakeClient
	}{
		{name: "transport error", client: &fakeClient{err: errors.New("connection reset")}},
		{name: "unparseable output", client: &fakeClient{out: &llm.GenerateOutput{Text: "no json here"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator(tt.client, startDispatcher(t), llmValidatorConfig())

			verdict := v.Validate(context.Background(), successfulRetrieval(), cleanReasoning())

			assert.Equal(t, models.VerdictWarn, verdict.Status)
			errs := verdict.IssuesOfKind(models.IssueValidatorError)
			require.Len(t, errs, 1)
			assert.Equal(t, models.SeverityWarning, errs[0].Severity)
		})
	}
}

func TestValidateLLMPhaseStoppedQueue(t *testing.T) {
	client := &fakeClient{out: &llm.GenerateOutput{Text: `{"issues": []}`}}
	v := NewValidator(client, stoppedDispatcher(t), llmValidatorConfig())

	verdict := v.Validate(context.Background(), successfulRetrieval(), cleanReasoning())

	assert.Zero(t, client.calls)
	require.Len(t, verdict.IssuesOfKind(models.IssueValidatorError), 1)
}

func TestValidateLLMPhaseSkipsEmptyAnalysis(t *testing.T) {
	client := &fakeClient{out: &llm.GenerateOutput{Text: `{"issues": []}`}}
	v := NewValidator(client, startDispatcher(t), llmValidatorConfig())

	reasoning := cleanReasoning()
	reasoning.Analysis = ""
	v.Validate(context.Background(), successfulRetrieval(), reasoning)

	assert.Zero(t, client.calls)
}

func TestParseValidationIssuesSanitizes(t *testing.T) {
	text := `{"issues": [
		{"severity": "fatal", "kind": "made_up_kind", "description": "odd but real finding"},
		{"severity": "critical", "kind": "hallucination", "description": ""},
		{"severity": "info", "kind": "missing_limitations", "description": "thin limitations"}
	]}`

	issues, err := parseValidationIssues(text)
	require.NoError(t, err)
	require.Len(t, issues, 2, "entries without a description are dropped")

	assert.Equal(t, models.SeverityWarning, issues[0].Severity)
	assert.Equal(t, models.IssueInconsistency, issues[0].Kind)
	assert.Equal(t, models.SeverityInfo, issues[1].Severity)
}

func TestValidateDeterministicRulePhase(t *testing.T) {
	v := newRuleValidator(t)

	reasoning := cleanReasoning()
	reasoning.CitationsUsed = []string{"Penal Code of Sri Lanka - Section 299", "Section 700"}

	first := v.Validate(context.Background(), successfulRetrieval(), reasoning)
	second := v.Validate(context.Background(), successfulRetrieval(), reasoning)
	assert.Equal(t, first, second)
}
