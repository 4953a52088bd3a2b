package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lankalegal/neethi/pkg/models"
	"github.com/lankalegal/neethi/pkg/pipeline"
)

// headerUserID carries the authenticated user's id, set by the outer
// gateway. The core trusts it; authentication lives outside this service.
const headerUserID = "X-User-ID"

// incidentHandler handles POST /incidents/:id/agent: the same pipeline with
// case memory bound to the incident thread and the user's history.
func (s *Server) incidentHandler(c *gin.Context) {
	incidentID := c.Param("id")
	userID := c.GetHeader(headerUserID)
	if userID == "" {
		writeError(c, http.StatusBadRequest, "X-User-ID header is required", "")
		return
	}

	var req IncidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body: "+err.Error(), "")
		return
	}
	if len(req.Message) <= minQuestionBytes {
		writeError(c, http.StatusBadRequest, "message must be longer than 10 characters", "")
		return
	}

	session := pipeline.NewIncidentSession(incidentID, userID)
	c.Set(ctxKeySessionID, session.ID)

	result := s.pipeline.Execute(c.Request.Context(), models.UserQuery{Question: req.Message}, session)

	c.JSON(http.StatusOK, IncidentResponse{
		Response:        incidentText(result.Output),
		UserContextUsed: result.UserContextUsed,
		SessionID:       session.ID,
	})
}

// incidentText flattens the terminal output for the incident thread: the
// synthesized answer, or the refusal reason when the pipeline withheld one.
func incidentText(output *models.Output) string {
	if output.IsRefusal() {
		return output.Refused.Reason
	}
	return output.Synthesized.Response
}
