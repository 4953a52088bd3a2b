package models

// Severity grades a validation issue.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// IsValid checks if the severity is valid
func (s Severity) IsValid() bool {
	return s == SeverityCritical || s == SeverityWarning || s == SeverityInfo
}

// IssueKind enumerates the validation failure modes.
type IssueKind string

const (
	// IssueMissingSources: retrieval returned no sources at all.
	IssueMissingSources IssueKind = "missing_sources"
	// IssueMissingCitation: sources exist but the analysis cites none.
	IssueMissingCitation IssueKind = "missing_citation"
	// IssueHallucination: a citation matches no retrieved source.
	IssueHallucination IssueKind = "hallucination"
	// IssueInsufficientAnalysis: analysis below the substantive length bar.
	IssueInsufficientAnalysis IssueKind = "insufficient_analysis"
	// IssueMissingLimitations: limitations statement absent or trivial.
	IssueMissingLimitations IssueKind = "missing_limitations"
	// IssueInconsistency: analysis contradicts the cited sources.
	IssueInconsistency IssueKind = "inconsistency"
	// IssueValidatorError: the validator itself failed; never critical.
	IssueValidatorError IssueKind = "validator_error"
)

// IsValid checks if the issue kind is valid
func (k IssueKind) IsValid() bool {
	switch k {
	case IssueMissingSources,
		IssueMissingCitation,
		IssueHallucination,
		IssueInsufficientAnalysis,
		IssueMissingLimitations,
		IssueInconsistency,
		IssueValidatorError:
		return true
	default:
		return false
	}
}

// ValidationIssue is one finding from the validation gatekeeper.
type ValidationIssue struct {
	Severity    Severity  `json:"severity"`
	Kind        IssueKind `json:"kind"`
	Description string    `json:"description"`
	Location    string    `json:"location,omitempty"`
}

// VerdictStatus is the gatekeeper's overall decision.
type VerdictStatus string

const (
	VerdictPass VerdictStatus = "pass"
	VerdictWarn VerdictStatus = "warn"
	VerdictFail VerdictStatus = "fail"
)

// IsValid checks if the verdict status is valid
func (s VerdictStatus) IsValid() bool {
	return s == VerdictPass || s == VerdictWarn || s == VerdictFail
}

// ValidationVerdict is the gatekeeper's decision over one reasoning.
// Invariant: any critical issue forces Status = fail.
type ValidationVerdict struct {
	Status                  VerdictStatus     `json:"status"`
	Issues                  []ValidationIssue `json:"issues"`
	Confidence              float64           `json:"confidence"`
	AllCitationsVerified    bool              `json:"all_citations_verified"`
	NoHallucinationDetected bool              `json:"no_hallucination_detected"`
}

// HasCritical reports whether any issue is critical.
func (v ValidationVerdict) HasCritical() bool {
	for _, issue := range v.Issues {
		if issue.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// IssuesOfKind returns all issues of the given kind.
func (v ValidationVerdict) IssuesOfKind(kind IssueKind) []ValidationIssue {
	var out []ValidationIssue
	for _, issue := range v.Issues {
		if issue.Kind == kind {
			out = append(out, issue)
		}
	}
	return out
}
