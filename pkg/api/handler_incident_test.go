package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lankalegal/neethi/pkg/agent"
	"github.com/lankalegal/neethi/pkg/pipeline"
)

func decodeIncident(t *testing.T, body []byte) IncidentResponse {
	t.Helper()
	var resp IncidentResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp
}

func TestIncidentHandlerBindsCaseScope(t *testing.T) {
	fake := &fakePipeline{result: &pipeline.Result{Output: synthesizedOutput(), UserContextUsed: true}}
	s := newTestServer(t, fake)

	rec := doJSON(t, s, http.MethodPost, "/incidents/incident-7/agent",
		IncidentRequest{Message: "What are the penalties for it?"},
		map[string]string{headerUserID: "user-1"})

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeIncident(t, rec.Body.Bytes())
	assert.Contains(t, resp.Response, "Culpable homicide")
	assert.True(t, resp.UserContextUsed)
	assert.NotEmpty(t, resp.SessionID)

	require.Equal(t, 1, fake.calls)
	assert.Equal(t, "incident-7", fake.lastSession.IncidentID)
	assert.Equal(t, "user-1", fake.lastSession.UserID)
	assert.Equal(t, "What are the penalties for it?", fake.lastQuery.Question)
	assert.Equal(t, resp.SessionID, fake.lastSession.ID)
}

func TestIncidentHandlerRequiresUserHeader(t *testing.T) {
	fake := &fakePipeline{}
	s := newTestServer(t, fake)

	rec := doJSON(t, s, http.MethodPost, "/incidents/incident-7/agent",
		IncidentRequest{Message: "What are the penalties for it?"}, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, fake.calls)
	body := decodeError(t, rec)
	assert.Contains(t, body.Error, "X-User-ID")
}

func TestIncidentHandlerFlattensRefusal(t *testing.T) {
	fake := &fakePipeline{result: &pipeline.Result{Output: refusalOutput()}}
	s := newTestServer(t, fake)

	rec := doJSON(t, s, http.MethodPost, "/incidents/incident-7/agent",
		IncidentRequest{Message: "Tell me about quantum computing law."},
		map[string]string{headerUserID: "user-1"})

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeIncident(t, rec.Body.Bytes())
	assert.Equal(t, agent.ReasonNoSources, resp.Response)
	assert.False(t, resp.UserContextUsed)
}

func TestIncidentHandlerShortMessage(t *testing.T) {
	fake := &fakePipeline{}
	s := newTestServer(t, fake)

	rec := doJSON(t, s, http.MethodPost, "/incidents/incident-7/agent",
		IncidentRequest{Message: "1234567890"},
		map[string]string{headerUserID: "user-1"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, fake.calls)
}

func TestIncidentHandlerMissingMessage(t *testing.T) {
	fake := &fakePipeline{}
	s := newTestServer(t, fake)

	rec := doJSON(t, s, http.MethodPost, "/incidents/incident-7/agent",
		map[string]string{}, map[string]string{headerUserID: "user-1"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, fake.calls)
}
