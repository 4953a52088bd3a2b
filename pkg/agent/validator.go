package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lankalegal/neethi/pkg/agent/prompt"
	"github.com/lankalegal/neethi/pkg/config"
	"github.com/lankalegal/neethi/pkg/llm"
	"github.com/lankalegal/neethi/pkg/models"
	"github.com/lankalegal/neethi/pkg/queue"
)

const (
	passConfidence = 0.9
	warnConfidence = 0.5

	// minLimitationsLen is the limitations length below which the
	// statement is considered trivial.
	minLimitationsLen = 20
)

// Validator is the gatekeeper between reasoning and synthesis. Phase A runs
// deterministic rule checks on every call; Phase B adds an LLM audit when
// the validation mode asks for it. A Phase B failure of any kind becomes a
// validator_error warning, never a critical issue, so the rule phase alone
// decides court-admissible deployments.
type Validator struct {
	client     llm.Client
	dispatcher *queue.Dispatcher
	mode       config.ValidationMode
	model      string
	seed       int64
	logger     *slog.Logger
}

// NewValidator creates the validation gatekeeper. client may be nil when the
// mode is rule_only.
func NewValidator(client llm.Client, dispatcher *queue.Dispatcher, cfg *config.Config) *Validator {
	return &Validator{
		client:     client,
		dispatcher: dispatcher,
		mode:       cfg.ValidationMode,
		model:      cfg.LLMModelValidator,
		seed:       cfg.LLMSeed,
		logger:     slog.Default(),
	}
}

// Validate checks the reasoning against the retrieval it claims to rest on.
// Identical inputs produce identical verdicts under rule_only mode.
func (v *Validator) Validate(ctx context.Context, retrieval models.RetrievalResult, reasoning models.Reasoning) models.ValidationVerdict {
	issues, allVerified := ruleChecks(retrieval, reasoning)

	// Phase B audits the analysis text; with nothing to audit it would
	// only burn a model call.
	if v.mode == config.ValidationRulePlusLLM && v.client != nil && reasoning.Analysis != "" {
		issues = append(issues, v.llmChecks(ctx, retrieval, reasoning)...)
	}

	return buildVerdict(issues, allVerified)
}

// ruleChecks is Phase A. The rules run in a fixed order and never consult a
// model. The second return reports whether every citation matched a source.
func ruleChecks(retrieval models.RetrievalResult, reasoning models.Reasoning) ([]models.ValidationIssue, bool) {
	issues := []models.ValidationIssue{}
	allVerified := true

	if retrieval.Empty() {
		issues = append(issues, models.ValidationIssue{
			Severity:    models.SeverityCritical,
			Kind:        models.IssueMissingSources,
			Description: "Retrieval returned no sources; there is nothing to ground the analysis.",
		})
	}

	if !retrieval.Empty() && len(reasoning.CitationsUsed) == 0 {
		issues = append(issues, models.ValidationIssue{
			Severity:    models.SeverityWarning,
			Kind:        models.IssueMissingCitation,
			Description: "Sources were retrieved but the analysis cites none of them.",
		})
	}

	keys := retrieval.CitationKeys()
	for _, citation := range reasoning.CitationsUsed {
		if !citationVerified(citation, keys) {
			allVerified = false
			issues = append(issues, models.ValidationIssue{
				Severity:    models.SeverityCritical,
				Kind:        models.IssueHallucination,
				Description: fmt.Sprintf("Citation %q does not match any retrieved source.", citation),
				Location:    citation,
			})
		}
	}

	if !reasoning.Substantive() {
		issues = append(issues, models.ValidationIssue{
			Severity:    models.SeverityWarning,
			Kind:        models.IssueInsufficientAnalysis,
			Description: fmt.Sprintf("Analysis is %d characters, below the substantive minimum of %d.", len(reasoning.Analysis), models.MinSubstantiveAnalysisLen),
		})
	}

	if len(reasoning.Limitations) < minLimitationsLen {
		issues = append(issues, models.ValidationIssue{
			Severity:    models.SeverityInfo,
			Kind:        models.IssueMissingLimitations,
			Description: "Limitations statement is absent or trivial.",
		})
	}

	return issues, allVerified
}

// citationVerified reports whether the citation matches any source key.
func citationVerified(citation string, keys []string) bool {
	for _, key := range keys {
		if citationMatches(citation, key) {
			return true
		}
	}
	return false
}

// citationMatches implements the bidirectional case-insensitive substring
// rule shared by verification and citation-marker mapping. An empty
// citation never matches.
func citationMatches(citation, key string) bool {
	c := strings.ToLower(strings.TrimSpace(citation))
	if c == "" {
		return false
	}
	k := strings.ToLower(key)
	return strings.Contains(k, c) || strings.Contains(c, k)
}

// llmChecks is Phase B. Every failure path returns a single validator_error
// warning in place of the model's findings.
func (v *Validator) llmChecks(ctx context.Context, retrieval models.RetrievalResult, reasoning models.Reasoning) []models.ValidationIssue {
	system, user := prompt.ValidationMessages(retrieval.Sources, reasoning)
	out, err := generate(ctx, v.dispatcher, v.client, &llm.GenerateInput{
		Model:    v.model,
		System:   system,
		Messages: []llm.Message{{Role: models.RoleUser, Content: user}},
		// Temperature stays 0 regardless of the reasoning setting.
		Temperature: 0,
		Seed:        v.seed,
		JSONOnly:    true,
	})
	if err != nil {
		v.logger.Warn("LLM validation call failed", "error", err)
		return []models.ValidationIssue{validatorErrorIssue("The validator model could not be reached.")}
	}

	issues, err := parseValidationIssues(out.Text)
	if err != nil {
		v.logger.Warn("LLM validation output unparseable", "error", err)
		return []models.ValidationIssue{validatorErrorIssue("The validator model returned unparseable output.")}
	}
	return issues
}

func validatorErrorIssue(description string) models.ValidationIssue {
	return models.ValidationIssue{
		Severity:    models.SeverityWarning,
		Kind:        models.IssueValidatorError,
		Description: description,
	}
}

// validationPayload mirrors the JSON shape requested from the validator
// model.
type validationPayload struct {
	Issues []struct {
		Severity    string `json:"severity"`
		Kind        string `json:"kind"`
		Description string `json:"description"`
		Location    string `json:"location"`
	} `json:"issues"`
}

// parseValidationIssues decodes Phase B output. Unknown severities fall back
// to warning and unknown kinds to inconsistency; entries without a
// description are dropped.
func parseValidationIssues(text string) ([]models.ValidationIssue, error) {
	candidate, ok := jsonCandidate(text)
	if !ok {
		return nil, fmt.Errorf("no JSON object in validator output")
	}

	var payload validationPayload
	if err := json.Unmarshal([]byte(candidate), &payload); err != nil {
		return nil, fmt.Errorf("decoding validator output: %w", err)
	}

	var issues []models.ValidationIssue
	for _, item := range payload.Issues {
		description := strings.TrimSpace(item.Description)
		if description == "" {
			continue
		}
		severity := models.Severity(strings.ToLower(strings.TrimSpace(item.Severity)))
		if !severity.IsValid() {
			severity = models.SeverityWarning
		}
		kind := models.IssueKind(strings.ToLower(strings.TrimSpace(item.Kind)))
		if !kind.IsValid() {
			kind = models.IssueInconsistency
		}
		issues = append(issues, models.ValidationIssue{
			Severity:    severity,
			Kind:        kind,
			Description: description,
			Location:    strings.TrimSpace(item.Location),
		})
	}
	return issues, nil
}

// buildVerdict applies the verdict rule over the merged issue list.
func buildVerdict(issues []models.ValidationIssue, allVerified bool) models.ValidationVerdict {
	var hasCritical, hasWarning, hallucinated bool
	for _, issue := range issues {
		switch issue.Severity {
		case models.SeverityCritical:
			hasCritical = true
			if issue.Kind == models.IssueHallucination {
				hallucinated = true
			}
		case models.SeverityWarning:
			hasWarning = true
		}
	}

	verdict := models.ValidationVerdict{
		Status:                  models.VerdictPass,
		Issues:                  issues,
		Confidence:              passConfidence,
		AllCitationsVerified:    allVerified,
		NoHallucinationDetected: !hallucinated,
	}
	switch {
	case hasCritical:
		verdict.Status = models.VerdictFail
		verdict.Confidence = 0.0
	case hasWarning:
		verdict.Status = models.VerdictWarn
		verdict.Confidence = warnConfidence
	}
	return verdict
}
