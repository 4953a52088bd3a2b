package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lankalegal/neethi/pkg/agent"
	"github.com/lankalegal/neethi/pkg/audit"
	"github.com/lankalegal/neethi/pkg/config"
	"github.com/lankalegal/neethi/pkg/models"
	"github.com/lankalegal/neethi/pkg/pipeline"
)

// fakePipeline returns a scripted result and records what it was called
// with. A non-empty panicMsg panics instead, for the recovery tests.
type fakePipeline struct {
	result   *pipeline.Result
	panicMsg string

	calls       int
	lastQuery   models.UserQuery
	lastSession pipeline.Session
}

func (f *fakePipeline) Execute(_ context.Context, query models.UserQuery, session pipeline.Session) *pipeline.Result {
	f.calls++
	f.lastQuery = query
	f.lastSession = session
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.result != nil {
		return f.result
	}
	return &pipeline.Result{Output: synthesizedOutput()}
}

type fakeGateway struct {
	healthy bool
}

func (g *fakeGateway) QuerySources(context.Context, string, int) models.RetrievalResult {
	return models.RetrievalResult{Status: models.RetrievalStatusEmpty}
}

func (g *fakeGateway) Healthy() bool { return g.healthy }

func (g *fakeGateway) Close() error { return nil }

func synthesizedOutput() *models.Output {
	return models.NewSynthesizedOutput(models.Synthesized{
		Response: "Culpable homicide is defined in Penal Code of Sri Lanka - Section 299.\n\n" + agent.Disclaimer,
		Citations: []models.LegalSource{{
			LawName: "Penal Code of Sri Lanka",
			Section: "299",
			Text:    "Whoever causes death by doing an act with the intention of causing death commits culpable homicide.",
		}},
		ConfidenceNote: "All validation checks passed (confidence 0.9).",
		Disclaimer:     agent.Disclaimer,
	})
}

func refusalOutput() *models.Output {
	return models.NewRefusalOutput(models.Refusal{
		Reason: agent.ReasonNoSources,
		Issues: []models.ValidationIssue{{
			Severity:    models.SeverityCritical,
			Kind:        models.IssueMissingSources,
			Description: "Retrieval returned no sources.",
		}},
		Suggestions: []string{"Rephrase the question to reference a specific statute, ordinance, or section."},
	})
}

func newTestServer(t *testing.T, p Pipeline) *Server {
	t.Helper()
	logger, err := audit.NewLogger(&config.Config{AuditLogDir: t.TempDir()})
	require.NoError(t, err)
	return NewServer(p, logger, &fakeGateway{healthy: true})
}

func doJSON(t *testing.T, s *Server, method, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

// queryEnvelopeBody defers data decoding so each test can unmarshal it into
// the shape the status implies.
type queryEnvelopeBody struct {
	Status    string          `json:"status"`
	Data      json.RawMessage `json:"data"`
	SessionID string          `json:"session_id"`
	Timestamp time.Time       `json:"timestamp"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) queryEnvelopeBody {
	t.Helper()
	var envelope queryEnvelopeBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}
