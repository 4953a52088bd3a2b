package models

// MinSubstantiveAnalysisLen is the minimum analysis length (bytes) the
// validator considers substantive.
const MinSubstantiveAnalysisLen = 50

// Reasoning is the grounded analysis produced from retrieved sources only.
// Chain holds the model's private working notes; it is never serialized
// outward and never reaches the user.
type Reasoning struct {
	Analysis      string   `json:"analysis"`
	Limitations   string   `json:"limitations"`
	CitationsUsed []string `json:"citations_used"`
	Confidence    float64  `json:"confidence"`
	Chain         string   `json:"-"`
}

// Substantive reports whether the analysis meets the minimum length bar.
func (r Reasoning) Substantive() bool {
	return len(r.Analysis) >= MinSubstantiveAnalysisLen
}
