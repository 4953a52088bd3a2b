package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lankalegal/neethi/pkg/models"
	"github.com/lankalegal/neethi/pkg/pipeline"
)

func TestQueryHandlerSuccess(t *testing.T) {
	fake := &fakePipeline{result: &pipeline.Result{Output: synthesizedOutput()}}
	s := newTestServer(t, fake)

	rec := doJSON(t, s, http.MethodPost, "/query", QueryRequest{
		Question:    "What is the definition of culpable homicide under Sri Lankan law?",
		CaseContext: "Pending criminal matter",
	}, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, StatusSuccess, envelope.Status)
	assert.NotEmpty(t, envelope.SessionID)
	assert.False(t, envelope.Timestamp.IsZero())

	var data models.Synthesized
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	assert.Contains(t, data.Response, "Culpable homicide")
	assert.NotEmpty(t, data.Disclaimer)
	require.Len(t, data.Citations, 1)
	assert.Equal(t, "299", data.Citations[0].Section)

	assert.Equal(t, 1, fake.calls)
	assert.Equal(t, "What is the definition of culpable homicide under Sri Lankan law?", fake.lastQuery.Question)
	assert.Equal(t, "Pending criminal matter", fake.lastQuery.CaseContext)
	assert.Empty(t, fake.lastSession.IncidentID)
	assert.Equal(t, envelope.SessionID, fake.lastSession.ID)
}

func TestQueryHandlerRefusal(t *testing.T) {
	fake := &fakePipeline{result: &pipeline.Result{Output: refusalOutput()}}
	s := newTestServer(t, fake)

	rec := doJSON(t, s, http.MethodPost, "/query", QueryRequest{
		Question: "Legal implications of quantum computing on IP law in Sri Lanka.",
	}, nil)

	// A refusal is a valid outcome, not an error.
	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, StatusRefused, envelope.Status)

	var data models.Refusal
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	assert.NotEmpty(t, data.Reason)
	require.Len(t, data.Issues, 1)
	assert.Equal(t, models.IssueMissingSources, data.Issues[0].Kind)
	assert.NotEmpty(t, data.Suggestions)
}

func TestQueryHandlerQuestionLengthBoundary(t *testing.T) {
	tests := []struct {
		name       string
		question   string
		wantStatus int
		wantCalls  int
	}{
		{"ten bytes rejected", "1234567890", http.StatusBadRequest, 0},
		{"eleven bytes accepted", "12345678901", http.StatusOK, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakePipeline{}
			s := newTestServer(t, fake)

			rec := doJSON(t, s, http.MethodPost, "/query", QueryRequest{Question: tt.question}, nil)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCalls, fake.calls)
			if tt.wantStatus == http.StatusBadRequest {
				body := decodeError(t, rec)
				assert.Contains(t, body.Error, "question")
				assert.False(t, body.Timestamp.IsZero())
			}
		})
	}
}

func TestQueryHandlerMalformedBody(t *testing.T) {
	fake := &fakePipeline{}
	s := newTestServer(t, fake)

	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, fake.calls)
	body := decodeError(t, rec)
	assert.Contains(t, body.Error, "invalid request body")
}

func TestQueryHandlerMissingQuestion(t *testing.T) {
	fake := &fakePipeline{}
	s := newTestServer(t, fake)

	rec := doJSON(t, s, http.MethodPost, "/query", map[string]string{"case_context": "no question"}, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, fake.calls)
}
