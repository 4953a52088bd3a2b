package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net"
	"strings"
	"sync"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lankalegal/neethi/pkg/models"
	"github.com/lankalegal/neethi/pkg/version"
)

const (
	// corpusToolName is the tool the corpus MCP server exposes for
	// source queries.
	corpusToolName = "query_legal_sources"

	// mcpInitTimeout bounds transport setup plus the protocol handshake.
	mcpInitTimeout = 15 * time.Second

	// mcpCallTimeout is the per-call deadline for the corpus tool.
	mcpCallTimeout = 20 * time.Second

	// Jittered backoff bounds between the first attempt and the retry.
	retryBackoffMin = 250 * time.Millisecond
	retryBackoffMax = 750 * time.Millisecond
)

// MCPGateway queries an external corpus server over the Model Context
// Protocol (streamable HTTP). One session is kept and lazily recreated when
// the transport drops; a failed call gets at most one retry after a
// jittered backoff.
type MCPGateway struct {
	endpoint string
	window   *healthWindow
	logger   *slog.Logger

	mu      sync.Mutex
	session *mcpsdk.ClientSession
}

// NewMCPGateway creates the gateway and attempts the first connection.
// A failed first connection is logged, not fatal: the session is recreated
// lazily on the next query.
func NewMCPGateway(ctx context.Context, endpoint string) (*MCPGateway, error) {
	if endpoint == "" {
		return nil, errors.New("mcp retrieval backend requires MCP_CORPUS_ENDPOINT")
	}
	g := &MCPGateway{
		endpoint: endpoint,
		window:   &healthWindow{},
		logger:   slog.Default(),
	}
	if _, err := g.connect(ctx); err != nil {
		g.logger.Warn("Corpus MCP server not reachable at startup", "endpoint", endpoint, "error", err)
	}
	return g, nil
}

// QuerySources implements Gateway.
func (g *MCPGateway) QuerySources(ctx context.Context, processedQuery string, maxSources int) models.RetrievalResult {
	if maxSources == 0 {
		return emptyResult(processedQuery, "retrieval disabled: source budget is 0")
	}
	k := clampSources(maxSources)

	sources, err := g.queryOnce(ctx, processedQuery, k)
	if err != nil && shouldRetry(err) {
		g.logger.Info("Corpus query failed, retrying with fresh session", "error", err)

		backoff := retryBackoffMin + time.Duration(rand.Int64N(int64(retryBackoffMax-retryBackoffMin)))
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			g.window.record(true)
			return emptyResult(processedQuery, "corpus query cancelled: "+ctx.Err().Error())
		}

		g.dropSession()
		sources, err = g.queryOnce(ctx, processedQuery, k)
	}
	if err != nil {
		g.window.record(true)
		g.logger.Warn("Corpus query failed", "error", err)
		return emptyResult(processedQuery, "corpus server unavailable: "+err.Error())
	}

	g.window.record(false)
	sortSources(sources)
	if len(sources) > k {
		sources = sources[:k]
	}
	return successResult(processedQuery, sources)
}

// Healthy implements Gateway. A gateway that has never connected is
// unhealthy until the first successful session.
func (g *MCPGateway) Healthy() bool {
	g.mu.Lock()
	connected := g.session != nil
	g.mu.Unlock()
	return connected && !g.window.failing()
}

// Close implements Gateway.
func (g *MCPGateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.session == nil {
		return nil
	}
	err := g.session.Close()
	g.session = nil
	return err
}

// connect returns the live session, dialing one when absent.
func (g *MCPGateway) connect(ctx context.Context) (*mcpsdk.ClientSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.session != nil {
		return g.session, nil
	}

	initCtx, cancel := context.WithTimeout(ctx, mcpInitTimeout)
	defer cancel()

	client := mcpsdk.NewClient(&mcpsdk.Implementation{
		Name:    version.AppName,
		Version: version.GitCommit,
	}, nil)

	session, err := client.Connect(initCtx, &mcpsdk.StreamableClientTransport{Endpoint: g.endpoint}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to corpus server: %w", err)
	}

	g.session = session
	g.logger.Info("Corpus MCP server connected", "endpoint", g.endpoint)
	return session, nil
}

func (g *MCPGateway) dropSession() {
	g.mu.Lock()
	if g.session != nil {
		_ = g.session.Close()
		g.session = nil
	}
	g.mu.Unlock()
}

func (g *MCPGateway) queryOnce(ctx context.Context, query string, k int) ([]models.LegalSource, error) {
	session, err := g.connect(ctx)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, mcpCallTimeout)
	defer cancel()

	result, err := session.CallTool(callCtx, &mcpsdk.CallToolParams{
		Name: corpusToolName,
		Arguments: map[string]any{
			"query":       query,
			"max_sources": k,
		},
	})
	if err != nil {
		return nil, err
	}
	if result.IsError {
		return nil, fmt.Errorf("corpus tool error: %s", extractTextContent(result))
	}
	return parseSources(extractTextContent(result))
}

// shouldRetry reports whether a failed call is worth one retry on a fresh
// session. Context errors and protocol errors are not; dropped transports
// are.
func shouldRetry(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return !netErr.Timeout()
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, indicator := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"connection closed",
		"no such host",
	} {
		if strings.Contains(msg, indicator) {
			return true
		}
	}
	return false
}

// extractTextContent concatenates the TextContent items of a tool result.
// Non-text content is skipped.
func extractTextContent(result *mcpsdk.CallToolResult) string {
	var parts []string
	for _, c := range result.Content {
		if tc, ok := c.(*mcpsdk.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// parseSources decodes the corpus tool's JSON payload.
func parseSources(payload string) ([]models.LegalSource, error) {
	var envelope struct {
		Sources []models.LegalSource `json:"sources"`
	}
	if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse corpus response: %w", err)
	}
	return envelope.Sources, nil
}
