package api

// minQuestionBytes is the length at which a question is still rejected: a
// question must be strictly longer than this to enter the pipeline.
const minQuestionBytes = 10

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	Question    string `json:"question" binding:"required"`
	CaseContext string `json:"case_context"`
}

// IncidentRequest is the body of POST /incidents/:id/agent.
type IncidentRequest struct {
	Message string `json:"message" binding:"required"`
}
