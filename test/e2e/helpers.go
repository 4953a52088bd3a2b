package e2e

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lankalegal/neethi/pkg/models"
)

// Response envelopes as served over HTTP. Decoded per-field so a contract
// drift in the API layer fails loudly here.

type queryEnvelope struct {
	Status    string          `json:"status"`
	Data      json.RawMessage `json:"data"`
	SessionID string          `json:"session_id"`
	Timestamp time.Time       `json:"timestamp"`
}

type incidentEnvelope struct {
	Response        string `json:"response"`
	UserContextUsed bool   `json:"user_context_used"`
	SessionID       string `json:"session_id"`
}

type auditEnvelope struct {
	SessionID string               `json:"session_id"`
	LogCount  int                  `json:"log_count"`
	Logs      []models.AuditRecord `json:"logs"`
}

type exportEnvelope struct {
	SessionID string `json:"session_id"`
	Format    string `json:"format"`
	File      string `json:"file"`
}

type healthEnvelope struct {
	Status       string    `json:"status"`
	MCPAvailable bool      `json:"mcp_available"`
	Timestamp    time.Time `json:"timestamp"`
}

// PostQuery submits a one-shot question. The envelope is nil unless the
// response is 200.
func (a *TestApp) PostQuery(question, caseContext string) (int, *queryEnvelope) {
	a.t.Helper()

	body := map[string]string{"question": question}
	if caseContext != "" {
		body["case_context"] = caseContext
	}
	status, raw := a.doJSON(http.MethodPost, "/query", body, nil)
	if status != http.StatusOK {
		return status, nil
	}
	var envelope queryEnvelope
	require.NoError(a.t, json.Unmarshal(raw, &envelope))
	return status, &envelope
}

// PostIncident submits a question bound to an incident on behalf of a user.
func (a *TestApp) PostIncident(incidentID, userID, message string) (int, *incidentEnvelope) {
	a.t.Helper()

	status, raw := a.doJSON(http.MethodPost, "/incidents/"+incidentID+"/agent",
		map[string]string{"message": message},
		map[string]string{"X-User-ID": userID})
	if status != http.StatusOK {
		return status, nil
	}
	var envelope incidentEnvelope
	require.NoError(a.t, json.Unmarshal(raw, &envelope))
	return status, &envelope
}

// GetAudit fetches the audit trail for a session.
func (a *TestApp) GetAudit(sessionID string) (int, *auditEnvelope) {
	a.t.Helper()

	status, raw := a.doJSON(http.MethodGet, "/audit/"+sessionID, nil, nil)
	if status != http.StatusOK {
		return status, nil
	}
	var envelope auditEnvelope
	require.NoError(a.t, json.Unmarshal(raw, &envelope))
	return status, &envelope
}

// GetExport asks for an audit export and returns the server-side file path.
func (a *TestApp) GetExport(sessionID, format string) (int, *exportEnvelope) {
	a.t.Helper()

	path := "/export/" + sessionID
	if format != "" {
		path += "?format=" + format
	}
	status, raw := a.doJSON(http.MethodGet, path, nil, nil)
	if status != http.StatusOK {
		return status, nil
	}
	var envelope exportEnvelope
	require.NoError(a.t, json.Unmarshal(raw, &envelope))
	return status, &envelope
}

// GetHealth fetches the health report. Both 200 and 503 decode.
func (a *TestApp) GetHealth() (int, *healthEnvelope) {
	a.t.Helper()

	status, raw := a.doJSON(http.MethodGet, "/health", nil, nil)
	var envelope healthEnvelope
	require.NoError(a.t, json.Unmarshal(raw, &envelope))
	return status, &envelope
}

// doJSON performs one HTTP round trip and returns the status and raw body.
func (a *TestApp) doJSON(method, path string, body any, headers map[string]string) (int, []byte) {
	a.t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, a.BaseURL+path, reader)
	require.NoError(a.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	return resp.StatusCode, raw
}

// decodeSynthesized asserts the envelope carries a success payload and
// decodes it.
func decodeSynthesized(t *testing.T, envelope *queryEnvelope) models.Synthesized {
	t.Helper()
	require.Equal(t, "success", envelope.Status)
	var data models.Synthesized
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	return data
}

// decodeRefusal asserts the envelope carries a refusal payload and decodes it.
func decodeRefusal(t *testing.T, envelope *queryEnvelope) models.Refusal {
	t.Helper()
	require.Equal(t, "refused", envelope.Status)
	var data models.Refusal
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	return data
}

// reasoningJSON builds the structured payload the reasoning model is asked
// to return.
func reasoningJSON(t *testing.T, analysis, limitations string, citations []string, confidence float64) string {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"analysis":       analysis,
		"limitations":    limitations,
		"citations_used": citations,
		"confidence":     confidence,
	})
	require.NoError(t, err)
	return string(raw)
}

// issueKinds projects the kind of each issue, in order.
func issueKinds(issues []models.ValidationIssue) []string {
	kinds := make([]string, len(issues))
	for i, issue := range issues {
		kinds[i] = string(issue.Kind)
	}
	return kinds
}

// agentNames projects the agent name of each audit record, in order.
func agentNames(logs []models.AuditRecord) []string {
	names := make([]string, len(logs))
	for i, record := range logs {
		names[i] = record.AgentName
	}
	return names
}

// Canonical fixture texts shared by the scenarios.

const penalCitation = "Penal Code of Sri Lanka - Section 299"

func groundedAnalysis() string {
	return "Culpable homicide under the Penal Code of Sri Lanka - Section 299 is committed by whoever causes death by an act done with the intention of causing death. Whether the offence aggravates to murder is governed separately."
}

func groundedLimitations() string {
	return "The sources do not address general exceptions, defences, or sentencing ranges for this offence."
}
