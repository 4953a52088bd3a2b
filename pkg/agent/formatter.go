package agent

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/lankalegal/neethi/pkg/models"
)

// Disclaimer is appended verbatim to every synthesized response.
const Disclaimer = "This analysis is generated from retrieved statutory sources for informational purposes only and does not constitute legal advice. Consult a licensed attorney-at-law in Sri Lanka before acting on it."

// Stable user-safe refusal reasons. Raw validator internals never surface
// through these.
const (
	ReasonNoSources           = "No statutory sources could be retrieved for this question."
	ReasonUnverifiedCitations = "The analysis cited provisions that could not be verified against the retrieved sources."
	ReasonValidationFailed    = "The analysis did not pass validation and has been withheld."

	// ReasonDeadlineExceeded is the fixed reason for a whole-request
	// deadline overrun.
	ReasonDeadlineExceeded = "deadline_exceeded"
)

// Formatter turns a validated reasoning into the terminal output: a
// synthesized answer on pass or warn, a refusal on fail. Stateless.
type Formatter struct{}

// NewFormatter creates the synthesis and refusal formatter.
func NewFormatter() *Formatter {
	return &Formatter{}
}

// Format builds the terminal output for one pipeline run.
func (f *Formatter) Format(retrieval models.RetrievalResult, reasoning models.Reasoning, verdict models.ValidationVerdict) *models.Output {
	if verdict.Status == models.VerdictFail {
		return models.NewRefusalOutput(buildRefusal(verdict))
	}
	return models.NewSynthesizedOutput(buildSynthesized(retrieval, reasoning, verdict))
}

// FormatDeadline builds the refusal for a whole-request deadline overrun.
// The pipeline emits it without a verdict when time runs out.
func (f *Formatter) FormatDeadline() *models.Output {
	return models.NewRefusalOutput(models.Refusal{
		Reason:      ReasonDeadlineExceeded,
		Issues:      []models.ValidationIssue{},
		Suggestions: []string{"Retry the question; the service could not complete the pipeline in time."},
	})
}

// buildSynthesized assembles the user-facing answer: the analysis with
// inline citation markers, the numbered sources block, the limitations
// paragraph, and the disclaimer.
func buildSynthesized(retrieval models.RetrievalResult, reasoning models.Reasoning, verdict models.ValidationVerdict) models.Synthesized {
	cited := citedSources(retrieval.Sources, reasoning.CitationsUsed)

	sections := []string{annotateAnalysis(reasoning.Analysis, reasoning.CitationsUsed, cited)}
	if len(cited) > 0 {
		sections = append(sections, sourcesBlock(cited))
	}
	if reasoning.Limitations != "" {
		sections = append(sections, "Limitations: "+reasoning.Limitations)
	}
	sections = append(sections, Disclaimer)

	return models.Synthesized{
		Response:       strings.Join(sections, "\n\n"),
		Citations:      cited,
		ConfidenceNote: confidenceNote(verdict),
		Disclaimer:     Disclaimer,
		Metadata: map[string]any{
			"verdict_status":     string(verdict.Status),
			"verdict_confidence": verdict.Confidence,
			"sources_retrieved":  len(retrieval.Sources),
			"citations_verified": len(cited),
		},
	}
}

// citedSources returns the sources actually referenced by the citations, in
// retrieval order. Marker numbers in the response are 1-based positions in
// this slice.
func citedSources(sources []models.LegalSource, citations []string) []models.LegalSource {
	cited := make([]models.LegalSource, 0, len(sources))
	for _, src := range sources {
		key := src.CitationKey()
		for _, citation := range citations {
			if citationMatches(citation, key) {
				cited = append(cited, src)
				break
			}
		}
	}
	return cited
}

// markerInsertion is one pending "[n]" insertion into the analysis text.
type markerInsertion struct {
	pos    int
	marker int
}

// annotateAnalysis appends a marker at the first case-insensitive occurrence
// of each verified citation. Citations that never appear verbatim in the
// analysis still show up in the sources block, just without an inline
// marker. Offsets are located on the original string; lowercasing first
// would shift byte positions for multi-byte characters.
func annotateAnalysis(analysis string, citations []string, cited []models.LegalSource) string {
	if analysis == "" || len(cited) == 0 {
		return analysis
	}

	seen := map[markerInsertion]struct{}{}
	var inserts []markerInsertion
	for _, citation := range citations {
		marker := markerFor(citation, cited)
		needle := strings.TrimSpace(citation)
		if marker == 0 || needle == "" {
			continue
		}
		re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(needle))
		if err != nil {
			continue
		}
		loc := re.FindStringIndex(analysis)
		if loc == nil {
			continue
		}
		ins := markerInsertion{pos: loc[1], marker: marker}
		if _, dup := seen[ins]; dup {
			continue
		}
		seen[ins] = struct{}{}
		inserts = append(inserts, ins)
	}
	if len(inserts) == 0 {
		return analysis
	}

	sort.Slice(inserts, func(i, j int) bool {
		if inserts[i].pos != inserts[j].pos {
			return inserts[i].pos < inserts[j].pos
		}
		return inserts[i].marker < inserts[j].marker
	})

	var sb strings.Builder
	prev := 0
	for _, ins := range inserts {
		sb.WriteString(analysis[prev:ins.pos])
		fmt.Fprintf(&sb, " [%d]", ins.marker)
		prev = ins.pos
	}
	sb.WriteString(analysis[prev:])
	return sb.String()
}

// markerFor returns the 1-based marker of the first cited source matching
// the citation, or 0 when none match.
func markerFor(citation string, cited []models.LegalSource) int {
	for i, src := range cited {
		if citationMatches(citation, src.CitationKey()) {
			return i + 1
		}
	}
	return 0
}

func sourcesBlock(cited []models.LegalSource) string {
	var sb strings.Builder
	sb.WriteString("Sources:")
	for i, src := range cited {
		fmt.Fprintf(&sb, "\n[%d] %s", i+1, src.CitationKey())
	}
	return sb.String()
}

func confidenceNote(verdict models.ValidationVerdict) string {
	if verdict.Status == models.VerdictWarn {
		return fmt.Sprintf("Validation raised warnings; treat this analysis with caution (confidence %.1f).", verdict.Confidence)
	}
	return fmt.Sprintf("All validation checks passed (confidence %.1f).", verdict.Confidence)
}

// buildRefusal derives the user-safe reason from the dominant critical kind
// and carries the full issue list for display.
func buildRefusal(verdict models.ValidationVerdict) models.Refusal {
	return models.Refusal{
		Reason:      refusalReason(dominantCriticalKind(verdict.Issues)),
		Issues:      verdict.Issues,
		Suggestions: suggestionsFor(verdict.Issues),
	}
}

// dominantCriticalKind is the most frequent critical kind; ties go to the
// kind seen first.
func dominantCriticalKind(issues []models.ValidationIssue) models.IssueKind {
	counts := map[models.IssueKind]int{}
	var order []models.IssueKind
	for _, issue := range issues {
		if issue.Severity != models.SeverityCritical {
			continue
		}
		if counts[issue.Kind] == 0 {
			order = append(order, issue.Kind)
		}
		counts[issue.Kind]++
	}

	var best models.IssueKind
	bestCount := 0
	for _, kind := range order {
		if counts[kind] > bestCount {
			best, bestCount = kind, counts[kind]
		}
	}
	return best
}

func refusalReason(kind models.IssueKind) string {
	switch kind {
	case models.IssueMissingSources:
		return ReasonNoSources
	case models.IssueHallucination:
		return ReasonUnverifiedCitations
	default:
		return ReasonValidationFailed
	}
}

// suggestionsFor maps each distinct critical kind to one actionable
// suggestion, in first-occurrence order.
func suggestionsFor(issues []models.ValidationIssue) []string {
	var out []string
	seen := map[models.IssueKind]struct{}{}
	for _, issue := range issues {
		if issue.Severity != models.SeverityCritical {
			continue
		}
		if _, dup := seen[issue.Kind]; dup {
			continue
		}
		seen[issue.Kind] = struct{}{}
		switch issue.Kind {
		case models.IssueMissingSources:
			out = append(out, "Rephrase the question to reference a specific statute, ordinance, or section.")
		case models.IssueHallucination:
			out = append(out, "Ask a narrower question so every cited provision can be checked against the retrieved text.")
		}
	}
	return out
}
