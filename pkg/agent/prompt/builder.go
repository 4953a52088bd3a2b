// Package prompt assembles the system and user messages sent to the
// reasoning and validation models. Stateless; all content comes from
// parameters, so identical inputs always produce identical prompts.
package prompt

import (
	"fmt"
	"strings"

	"github.com/lankalegal/neethi/pkg/models"
)

// reasoningInstructions is the source-only rule. The reasoner is never
// allowed to draw on provider knowledge of the law.
const reasoningInstructions = `You are a legal analysis assistant for Sri Lankan law.

Rules:
1. Base the analysis ONLY on the numbered sources below. Do not use any outside knowledge of the law, even when you believe you know the answer.
2. Cite every provision you rely on exactly as "<law name> - Section <number>".
3. If the sources do not answer the question, say so in the limitations instead of guessing.
4. Always state what the sources do not establish. Never omit the limitations.`

// reasoningFormatInstructions requests the structured form the parser
// prefers. The heading form is the documented fallback for models that
// ignore the JSON request.
const reasoningFormatInstructions = `Respond with a single JSON object and nothing else:
{
  "analysis": "<grounded analysis of the question>",
  "limitations": "<what the supplied sources do not establish>",
  "citations_used": ["<law name> - Section <number>", ...],
  "confidence": <0.0 to 1.0>
}

If you cannot produce JSON, use these headings instead, each on its own line:
ANALYSIS:
LIMITATIONS:
CITATIONS USED:`

// validationInstructions drives the optional LLM check phase. The model
// audits, it never rewrites.
const validationInstructions = `You audit a legal analysis against the sources it claims to rest on. Flag fabricated citations, claims the sources do not support, and contradictions between the analysis and the source text. Do not rewrite the analysis and do not add new analysis.

Respond with a single JSON object and nothing else:
{
  "issues": [
    {"severity": "critical|warning|info", "kind": "hallucination|inconsistency|insufficient_analysis", "description": "<what is wrong>", "location": "<optional quote from the analysis>"}
  ]
}

Return {"issues": []} when the analysis is faithful to the sources.`

// ReasoningMessages builds the system and user messages for one reasoning
// call. issuedQuery is the planner's processed query, which already carries
// any case context and memory turns.
func ReasoningMessages(issuedQuery string, sources []models.LegalSource) (system, user string) {
	var sb strings.Builder
	sb.WriteString(FormatQuestionSection(issuedQuery))
	sb.WriteString("\n")
	sb.WriteString(FormatSourcesSection(sources))
	return reasoningInstructions + "\n\n" + reasoningFormatInstructions, sb.String()
}

// ValidationMessages builds the system and user messages for one LLM
// validation call over an already-produced reasoning.
func ValidationMessages(sources []models.LegalSource, reasoning models.Reasoning) (system, user string) {
	var sb strings.Builder
	sb.WriteString(FormatSourcesSection(sources))
	sb.WriteString("\n## Analysis Under Review\n\n")
	sb.WriteString(reasoning.Analysis)
	sb.WriteString("\n\n## Stated Limitations\n\n")
	if reasoning.Limitations == "" {
		sb.WriteString("None stated.\n")
	} else {
		sb.WriteString(reasoning.Limitations)
		sb.WriteString("\n")
	}
	sb.WriteString("\n## Citations Claimed\n\n")
	if len(reasoning.CitationsUsed) == 0 {
		sb.WriteString("None.\n")
	} else {
		for _, c := range reasoning.CitationsUsed {
			sb.WriteString("- ")
			sb.WriteString(c)
			sb.WriteString("\n")
		}
	}
	return validationInstructions, sb.String()
}

// FormatQuestionSection builds the question section of the reasoning prompt.
func FormatQuestionSection(issuedQuery string) string {
	var sb strings.Builder
	sb.WriteString("## Question\n\n")
	if issuedQuery == "" {
		sb.WriteString("No question provided.\n")
		return sb.String()
	}
	sb.WriteString(issuedQuery)
	sb.WriteString("\n")
	return sb.String()
}

// FormatSourcesSection builds the numbered source blocks. Source text is
// passed through verbatim; the numbering matches the retrieval order.
func FormatSourcesSection(sources []models.LegalSource) string {
	if len(sources) == 0 {
		return "## Retrieved Sources\n\nNo sources were retrieved.\n"
	}

	var sb strings.Builder
	sb.WriteString("## Retrieved Sources\n")
	for i, src := range sources {
		sb.WriteString(fmt.Sprintf("\n### Source [%d]: %s\n", i+1, src.CitationKey()))
		sb.WriteString(src.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}
