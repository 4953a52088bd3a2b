package agent

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/lankalegal/neethi/pkg/models"
)

// Reasoning output is accepted in two forms: a JSON object (preferred) or
// ANALYSIS:/LIMITATIONS:/CITATIONS USED: headings (fallback). Anything else
// collapses to a minimal low-confidence Reasoning that validation will
// reject downstream.

const (
	// headingConfidence is assigned when the model used the heading form,
	// which carries no confidence channel of its own.
	headingConfidence = 0.5

	// defaultLimitations replaces an omitted limitations statement. Kept
	// short on purpose: the validator still flags it as trivial.
	defaultLimitations = "None stated."
)

// bulletPrefix strips list markers from citation lines ("- x", "* x", "1. x").
var bulletPrefix = regexp.MustCompile(`^([-*•]+|\d+[.)])\s*`)

// reasoningPayload mirrors the JSON shape requested from the reasoning model.
type reasoningPayload struct {
	Analysis      string   `json:"analysis"`
	Limitations   string   `json:"limitations"`
	CitationsUsed []string `json:"citations_used"`
	Confidence    *float64 `json:"confidence"`
}

// ParseReasoning extracts a Reasoning from raw model output. The parser is
// forgiving about code fences and surrounding prose, but it never invents
// content: an unrecognizable response yields an empty analysis.
func ParseReasoning(text string) models.Reasoning {
	if r, ok := parseJSONReasoning(text); ok {
		return finishReasoning(r)
	}
	if r, ok := parseHeadingReasoning(text); ok {
		return finishReasoning(r)
	}
	return unparseableReasoning()
}

// unparseableReasoning is the fixed minimal result for output that matched
// neither form.
func unparseableReasoning() models.Reasoning {
	return models.Reasoning{Analysis: "", Limitations: "unparseable", Confidence: 0.1}
}

// finishReasoning enforces the non-empty limitations invariant and clamps
// confidence into [0, 1].
func finishReasoning(r models.Reasoning) models.Reasoning {
	if strings.TrimSpace(r.Limitations) == "" {
		r.Limitations = defaultLimitations
	}
	r.Confidence = clamp01(r.Confidence)
	return r
}

// parseJSONReasoning accepts the structured form.
func parseJSONReasoning(text string) (models.Reasoning, bool) {
	candidate, ok := jsonCandidate(text)
	if !ok {
		return models.Reasoning{}, false
	}

	var payload reasoningPayload
	if err := json.Unmarshal([]byte(candidate), &payload); err != nil {
		return models.Reasoning{}, false
	}

	analysis := strings.TrimSpace(payload.Analysis)
	limitations := strings.TrimSpace(payload.Limitations)
	if analysis == "" && limitations == "" {
		return models.Reasoning{}, false
	}

	confidence := headingConfidence
	if payload.Confidence != nil {
		confidence = *payload.Confidence
	}

	return models.Reasoning{
		Analysis:      analysis,
		Limitations:   limitations,
		CitationsUsed: cleanCitations(payload.CitationsUsed),
		Confidence:    confidence,
	}, true
}

// parseHeadingReasoning accepts the semi-structured form: a line-by-line
// scan that opens a section on each heading and collects everything below
// it until the next heading.
func parseHeadingReasoning(text string) (models.Reasoning, bool) {
	const (
		analysisHeading    = "ANALYSIS:"
		limitationsHeading = "LIMITATIONS:"
		citationsHeading   = "CITATIONS USED:"
	)

	sections := map[string][]string{}
	var current string

	for _, rawLine := range strings.Split(text, "\n") {
		line := strings.TrimSpace(rawLine)
		switch {
		case hasHeading(line, analysisHeading):
			current = "analysis"
			appendContent(sections, current, headingRest(line, analysisHeading))
		case hasHeading(line, limitationsHeading):
			current = "limitations"
			appendContent(sections, current, headingRest(line, limitationsHeading))
		case hasHeading(line, citationsHeading):
			current = "citations"
			appendContent(sections, current, headingRest(line, citationsHeading))
		default:
			if current != "" {
				sections[current] = append(sections[current], line)
			}
		}
	}

	analysis := strings.TrimSpace(strings.Join(sections["analysis"], "\n"))
	limitations := strings.TrimSpace(strings.Join(sections["limitations"], "\n"))
	if analysis == "" && limitations == "" {
		return models.Reasoning{}, false
	}

	return models.Reasoning{
		Analysis:      analysis,
		Limitations:   limitations,
		CitationsUsed: cleanCitations(sections["citations"]),
		Confidence:    headingConfidence,
	}, true
}

// hasHeading reports whether the line starts with the heading,
// case-insensitively.
func hasHeading(line, heading string) bool {
	return len(line) >= len(heading) && strings.EqualFold(line[:len(heading)], heading)
}

// headingRest returns the content that follows a heading on the same line.
func headingRest(line, heading string) string {
	return strings.TrimSpace(line[len(heading):])
}

func appendContent(sections map[string][]string, section, content string) {
	if content != "" {
		sections[section] = append(sections[section], content)
	}
}

// cleanCitations strips list markers, quotes, and filler lines from citation
// items. Items are kept in the order the model gave them.
func cleanCitations(items []string) []string {
	var out []string
	for _, item := range items {
		item = strings.TrimSpace(item)
		item = bulletPrefix.ReplaceAllString(item, "")
		item = strings.Trim(item, " \t\"',")
		if item == "" || strings.EqualFold(item, "none") || strings.EqualFold(item, "none.") {
			continue
		}
		out = append(out, item)
	}
	return out
}

// jsonCandidate isolates the JSON object in model output. The object may be
// wrapped in a code fence or surrounded by prose; the first '{' to the last
// '}' is taken as the candidate.
func jsonCandidate(text string) (string, bool) {
	candidate := stripCodeFence(text)
	start := strings.Index(candidate, "{")
	end := strings.LastIndex(candidate, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return candidate[start : end+1], true
}

// stripCodeFence removes a surrounding ``` fence, including a language tag
// on the opening line.
func stripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if i := strings.Index(trimmed, "\n"); i >= 0 {
		trimmed = trimmed[i+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
