// Package pipeline drives the fixed agent sequence for one legal query:
// plan, retrieve, reason, validate, format. The only branch is the
// validation verdict; every step emits exactly one audit record. Agents
// return typed results instead of errors, so the orchestrator makes one
// pass with a full trail no matter what fails underneath.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/lankalegal/neethi/pkg/config"
	"github.com/lankalegal/neethi/pkg/memory"
	"github.com/lankalegal/neethi/pkg/models"
)

// persistTimeout bounds the case-memory write after the formatter step. The
// write runs on its own context: it must commit before the response returns
// even when the request budget is spent.
const persistTimeout = 10 * time.Second

// The orchestrator depends on one small capability per agent; tests
// substitute fakes, main injects the pkg/agent, pkg/retrieval, and
// pkg/audit implementations.

// Planner routes one query into a plan.
type Planner interface {
	Plan(query models.UserQuery, memoryContext string) models.Plan
}

// Retriever fetches verbatim sources for a processed query.
type Retriever interface {
	QuerySources(ctx context.Context, processedQuery string, maxSources int) models.RetrievalResult
}

// Reasoner produces a grounded analysis from retrieved sources.
type Reasoner interface {
	Reason(ctx context.Context, retrieval models.RetrievalResult) models.Reasoning
}

// Validator decides whether the reasoning may reach the user.
type Validator interface {
	Validate(ctx context.Context, retrieval models.RetrievalResult, reasoning models.Reasoning) models.ValidationVerdict
}

// Formatter shapes the terminal output.
type Formatter interface {
	Format(retrieval models.RetrievalResult, reasoning models.Reasoning, verdict models.ValidationVerdict) *models.Output
	FormatDeadline() *models.Output
}

// AuditSink records one agent step. The pipeline never checks an error
// here: the audit logger owns its failure handling.
type AuditSink interface {
	LogStep(sessionID, agentName string, input, output map[string]any, duration time.Duration, metadata map[string]any) models.AuditRecord
}

// Deps carries the injected collaborators for one orchestrator.
type Deps struct {
	Planner   Planner
	Retriever Retriever
	Reasoner  Reasoner
	Validator Validator
	Formatter Formatter
	Audit     AuditSink
	Binder    memory.Binder
}

// Result is one run's terminal output plus the run-scoped facts the HTTP
// layer reports alongside it.
type Result struct {
	Output *models.Output

	// UserContextUsed reports whether the user's history from other
	// incidents entered the processed query.
	UserContextUsed bool
}

// Orchestrator executes the pipeline. Deterministic modulo the retrieval
// and reasoning contents: the same corpus snapshot, seed, and query produce
// the same output and the same audit sequence apart from timestamps.
type Orchestrator struct {
	planner   Planner
	retriever Retriever
	reasoner  Reasoner
	validator Validator
	formatter Formatter
	audit     AuditSink
	binder    memory.Binder

	maxSources      int
	requestDeadline time.Duration
	stepDeadline    time.Duration
	tailLimit       int

	logger *slog.Logger
}

// New creates the orchestrator from its collaborators and the deadline and
// budget settings in cfg.
func New(deps Deps, cfg *config.Config) *Orchestrator {
	return &Orchestrator{
		planner:         deps.Planner,
		retriever:       deps.Retriever,
		reasoner:        deps.Reasoner,
		validator:       deps.Validator,
		formatter:       deps.Formatter,
		audit:           deps.Audit,
		binder:          deps.Binder,
		maxSources:      cfg.RetrievalMaxSources,
		requestDeadline: cfg.RequestDeadline,
		stepDeadline:    cfg.StepDeadline,
		tailLimit:       cfg.MemoryTailLimit,
		logger:          slog.Default(),
	}
}

// Execute runs one query through the pipeline. It never returns an error:
// agent failures surface as validation issues and ultimately as a Refusal,
// and a blown request deadline becomes the fixed deadline refusal. The
// whole-request budget is checked between steps, never mid-step, so every
// started step completes and its audit record is whole.
func (o *Orchestrator) Execute(ctx context.Context, query models.UserQuery, session Session) *Result {
	reqCtx, cancel := context.WithTimeout(ctx, o.requestDeadline)
	defer cancel()

	mem := o.loadMemory(reqCtx, session)

	plan := o.runPlanner(session, query, mem)
	if reqCtx.Err() != nil {
		return o.deadlineResult(session, mem)
	}

	retrieval := o.runRetriever(reqCtx, session, plan)
	if reqCtx.Err() != nil {
		return o.deadlineResult(session, mem)
	}

	reasoning := o.runReasoner(reqCtx, session, retrieval)
	if reqCtx.Err() != nil {
		return o.deadlineResult(session, mem)
	}

	verdict := o.runValidator(reqCtx, session, retrieval, reasoning)
	if reqCtx.Err() != nil {
		return o.deadlineResult(session, mem)
	}

	output := o.runFormatter(session, retrieval, reasoning, verdict)

	if session.IncidentID != "" && !output.IsRefusal() {
		o.persistTurn(session, query.Question, output.Synthesized.Response)
	}

	return &Result{Output: output, UserContextUsed: mem.userContextUsed()}
}

// loadMemory reads the case history for incident-bound sessions. A load
// failure degrades to an empty context: the question still gets answered,
// just without the conversation behind it.
func (o *Orchestrator) loadMemory(ctx context.Context, session Session) memoryContext {
	if session.IncidentID == "" || o.binder == nil {
		return memoryContext{}
	}

	incident, global, err := o.binder.LoadContext(ctx, session.IncidentID, session.UserID)
	if err != nil {
		o.logger.Warn("Case memory load failed, continuing without context",
			"session_id", session.ID,
			"incident_id", session.IncidentID,
			"error", err)
		return memoryContext{}
	}

	incident = models.TailMessages(incident, o.tailLimit)
	global = models.TailMessages(global, o.tailLimit)
	return memoryContext{
		prompt:        formatMemoryPrompt(incident, global),
		incidentTurns: len(incident),
		globalTurns:   len(global),
	}
}

func (o *Orchestrator) runPlanner(session Session, query models.UserQuery, mem memoryContext) models.Plan {
	start := time.Now()
	plan := o.planner.Plan(query, mem.prompt)

	o.audit.LogStep(session.ID, models.AgentPlanner,
		map[string]any{
			"question":              query.Question,
			"case_context":          query.CaseContext,
			"memory_incident_turns": mem.incidentTurns,
			"memory_global_turns":   mem.globalTurns,
		},
		map[string]any{
			"steps":           stepNames(plan.Steps),
			"processed_query": plan.ProcessedQuery,
			"confidence":      plan.Confidence,
		},
		time.Since(start), nil)
	return plan
}

func (o *Orchestrator) runRetriever(ctx context.Context, session Session, plan models.Plan) models.RetrievalResult {
	stepCtx, cancel := o.stepContext(ctx)
	defer cancel()

	start := time.Now()
	retrieval := o.retriever.QuerySources(stepCtx, plan.ProcessedQuery, o.maxSources)

	var metadata map[string]any
	if retrieval.Warning != "" {
		metadata = map[string]any{"warning": retrieval.Warning}
	}
	o.audit.LogStep(session.ID, models.AgentRetriever,
		map[string]any{
			"issued_query": plan.ProcessedQuery,
			"max_sources":  o.maxSources,
		},
		retrievalSnapshot(retrieval),
		time.Since(start), metadata)
	return retrieval
}

func (o *Orchestrator) runReasoner(ctx context.Context, session Session, retrieval models.RetrievalResult) models.Reasoning {
	stepCtx, cancel := o.stepContext(ctx)
	defer cancel()

	start := time.Now()
	reasoning := o.reasoner.Reason(stepCtx, retrieval)

	o.audit.LogStep(session.ID, models.AgentReasoner,
		map[string]any{
			"issued_query": retrieval.IssuedQuery,
			"source_count": len(retrieval.Sources),
		},
		// The private chain stays out: audit records are served over the
		// audit endpoint, and chain-of-thought never leaves the process.
		map[string]any{
			"analysis":       reasoning.Analysis,
			"limitations":    reasoning.Limitations,
			"citations_used": reasoning.CitationsUsed,
			"confidence":     reasoning.Confidence,
		},
		time.Since(start), nil)
	return reasoning
}

func (o *Orchestrator) runValidator(ctx context.Context, session Session, retrieval models.RetrievalResult, reasoning models.Reasoning) models.ValidationVerdict {
	stepCtx, cancel := o.stepContext(ctx)
	defer cancel()

	start := time.Now()
	verdict := o.validator.Validate(stepCtx, retrieval, reasoning)

	o.audit.LogStep(session.ID, models.AgentValidator,
		map[string]any{
			"source_count":    len(retrieval.Sources),
			"citations_used":  reasoning.CitationsUsed,
			"analysis_length": len(reasoning.Analysis),
		},
		map[string]any{
			"status":                    string(verdict.Status),
			"confidence":                verdict.Confidence,
			"all_citations_verified":    verdict.AllCitationsVerified,
			"no_hallucination_detected": verdict.NoHallucinationDetected,
			"issues":                    issuesSnapshot(verdict.Issues),
		},
		time.Since(start), nil)
	return verdict
}

func (o *Orchestrator) runFormatter(session Session, retrieval models.RetrievalResult, reasoning models.Reasoning, verdict models.ValidationVerdict) *models.Output {
	start := time.Now()
	output := o.formatter.Format(retrieval, reasoning, verdict)

	o.audit.LogStep(session.ID, models.AgentFormatter,
		map[string]any{"verdict_status": string(verdict.Status)},
		outputSnapshot(output),
		time.Since(start), nil)
	return output
}

// deadlineResult closes an over-budget run: the fixed deadline refusal,
// audited as the formatter step so the trail records how the run ended.
func (o *Orchestrator) deadlineResult(session Session, mem memoryContext) *Result {
	start := time.Now()
	output := o.formatter.FormatDeadline()

	o.audit.LogStep(session.ID, models.AgentFormatter,
		map[string]any{"deadline_exceeded": true},
		outputSnapshot(output),
		time.Since(start), nil)

	o.logger.Warn("Request deadline exceeded", "session_id", session.ID)
	return &Result{Output: output, UserContextUsed: mem.userContextUsed()}
}

// persistTurn writes the exchange into case memory before the response
// returns. The write gets its own deadline; a failure loses the turn but
// never the response, so it is logged and swallowed.
func (o *Orchestrator) persistTurn(session Session, question, response string) {
	if o.binder == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := o.binder.PersistTurn(ctx, session.IncidentID, session.UserID, question, response); err != nil {
		o.logger.Warn("Case memory persist failed, turn lost",
			"session_id", session.ID,
			"incident_id", session.IncidentID,
			"error", err)
	}
}

// stepContext derives the per-step deadline from the request context. The
// step sees whichever budget runs out first.
func (o *Orchestrator) stepContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, o.stepDeadline)
}

// Snapshot builders keep every free-text field a plain string (or a string
// slice) so the optional PII redactor sees it.

func stepNames(steps []models.PlanStep) []string {
	names := make([]string, len(steps))
	for i, s := range steps {
		names[i] = string(s)
	}
	return names
}

func retrievalSnapshot(retrieval models.RetrievalResult) map[string]any {
	sources := make([]any, len(retrieval.Sources))
	for i, src := range retrieval.Sources {
		sources[i] = map[string]any{
			"law_name": src.LawName,
			"section":  src.Section,
			"chunk_id": src.Metadata.ChunkID,
			"score":    src.Metadata.Score,
			// Verbatim text makes the trail self-contained across
			// corpus swaps.
			"text": src.Text,
		}
	}
	return map[string]any{
		"status":       string(retrieval.Status),
		"source_count": len(retrieval.Sources),
		"sources":      sources,
	}
}

func issuesSnapshot(issues []models.ValidationIssue) []any {
	out := make([]any, len(issues))
	for i, issue := range issues {
		entry := map[string]any{
			"severity":    string(issue.Severity),
			"kind":        string(issue.Kind),
			"description": issue.Description,
		}
		if issue.Location != "" {
			entry["location"] = issue.Location
		}
		out[i] = entry
	}
	return out
}

func outputSnapshot(output *models.Output) map[string]any {
	if output.IsRefusal() {
		return map[string]any{
			"refused":     true,
			"reason":      output.Refused.Reason,
			"issue_count": len(output.Refused.Issues),
			"suggestions": output.Refused.Suggestions,
		}
	}
	return map[string]any{
		"refused":        false,
		"response":       output.Synthesized.Response,
		"citation_count": len(output.Synthesized.Citations),
	}
}
