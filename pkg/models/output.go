package models

// Synthesized is the user-facing answer built from validated reasoning.
type Synthesized struct {
	Response       string         `json:"response"`
	Citations      []LegalSource  `json:"citations"`
	ConfidenceNote string         `json:"confidence_note"`
	Disclaimer     string         `json:"disclaimer"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// Refusal is the terminal output when the pipeline declines to answer.
// Reason is a stable, user-safe restatement, never raw validator internals.
type Refusal struct {
	Reason      string            `json:"reason"`
	Issues      []ValidationIssue `json:"issues"`
	Suggestions []string          `json:"suggestions,omitempty"`
}

// Output is the pipeline's terminal result: exactly one of Synthesized or
// Refused is non-nil.
type Output struct {
	Synthesized *Synthesized `json:"synthesized,omitempty"`
	Refused     *Refusal     `json:"refusal,omitempty"`
}

// IsRefusal reports whether the pipeline declined to answer.
func (o Output) IsRefusal() bool {
	return o.Refused != nil
}

// NewSynthesizedOutput wraps a synthesized answer as a terminal output.
func NewSynthesizedOutput(s Synthesized) *Output {
	return &Output{Synthesized: &s}
}

// NewRefusalOutput wraps a refusal as a terminal output.
func NewRefusalOutput(r Refusal) *Output {
	return &Output{Refused: &r}
}
