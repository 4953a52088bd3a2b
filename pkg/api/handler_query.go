package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lankalegal/neethi/pkg/models"
	"github.com/lankalegal/neethi/pkg/pipeline"
)

// queryHandler handles POST /query: one anonymous question, no case memory.
func (s *Server) queryHandler(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body: "+err.Error(), "")
		return
	}
	if len(req.Question) <= minQuestionBytes {
		writeError(c, http.StatusBadRequest, "question must be longer than 10 characters", "")
		return
	}

	session := pipeline.NewSession()
	c.Set(ctxKeySessionID, session.ID)

	result := s.pipeline.Execute(c.Request.Context(), models.UserQuery{
		Question:    req.Question,
		CaseContext: req.CaseContext,
	}, session)

	c.JSON(http.StatusOK, queryEnvelope(result.Output, session.ID))
}
