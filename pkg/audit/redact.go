package audit

import "regexp"

// redactPattern pairs a compiled PII pattern with its typed placeholder.
type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// Redactor scrubs Sri Lankan PII from snapshot values before they are
// buffered or written to disk. Patterns are applied in declaration order.
type Redactor struct {
	patterns []redactPattern
}

// NewRedactor builds the redactor with the built-in pattern set: old-format
// NICs (nine digits plus V/X), new-format NICs (twelve digits), local and
// +94 phone numbers, and email addresses.
func NewRedactor() *Redactor {
	return &Redactor{
		patterns: []redactPattern{
			{
				name:        "nic_old",
				regex:       regexp.MustCompile(`\b\d{9}[VvXx]\b`),
				replacement: "[REDACTED_NIC]",
			},
			{
				name:        "nic_new",
				regex:       regexp.MustCompile(`\b\d{12}\b`),
				replacement: "[REDACTED_NIC]",
			},
			{
				name:        "phone",
				regex:       regexp.MustCompile(`(?:\+94|\b0)\d{9}\b`),
				replacement: "[REDACTED_PHONE]",
			},
			{
				name:        "email",
				regex:       regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
				replacement: "[REDACTED_EMAIL]",
			},
		},
	}
}

// RedactString replaces every PII match in s with its placeholder.
func (r *Redactor) RedactString(s string) string {
	for _, p := range r.patterns {
		s = p.regex.ReplaceAllString(s, p.replacement)
	}
	return s
}

// RedactSnapshot returns a copy of the snapshot with every string value
// redacted, recursing through nested maps and slices. Non-string leaves
// pass through unchanged.
func (r *Redactor) RedactSnapshot(snapshot map[string]any) map[string]any {
	if snapshot == nil {
		return nil
	}
	out := make(map[string]any, len(snapshot))
	for k, v := range snapshot {
		out[k] = r.redactValue(v)
	}
	return out
}

func (r *Redactor) redactValue(v any) any {
	switch t := v.(type) {
	case string:
		return r.RedactString(t)
	case map[string]any:
		return r.RedactSnapshot(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = r.redactValue(item)
		}
		return out
	case []string:
		out := make([]string, len(t))
		for i, item := range t {
			out[i] = r.RedactString(item)
		}
		return out
	default:
		return v
	}
}
