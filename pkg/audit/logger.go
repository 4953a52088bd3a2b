// Package audit writes the append-only forensic trail of every agent step:
// a per-session in-memory buffer plus a per-session JSONL file, with
// read-only JSON and Markdown exporters over the recorded steps.
package audit

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/lankalegal/neethi/pkg/config"
	"github.com/lankalegal/neethi/pkg/models"
)

// ErrNoSession indicates no audit records exist for the session.
var ErrNoSession = errors.New("no audit records for session")

// ErrBadSessionID indicates a session id that cannot name an audit file.
var ErrBadSessionID = errors.New("invalid session id")

// Session ids come from uuid generation; anything else is refused before it
// can reach the filesystem.
var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

// Logger records agent steps. Records are write-once: nothing in this
// package mutates or deletes a session file after the append.
type Logger struct {
	dir      string
	redactor *Redactor

	mu      sync.RWMutex
	buffers map[string][]models.AuditRecord

	logger *slog.Logger
}

// NewLogger creates the audit logger and its log directory.
func NewLogger(cfg *config.Config) (*Logger, error) {
	if err := os.MkdirAll(cfg.AuditLogDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating audit log dir: %w", err)
	}

	l := &Logger{
		dir:     cfg.AuditLogDir,
		buffers: make(map[string][]models.AuditRecord),
		logger:  slog.Default(),
	}
	if cfg.RedactAuditPII {
		l.redactor = NewRedactor()
	}
	return l, nil
}

// Dir returns the audit log directory.
func (l *Logger) Dir() string {
	return l.dir
}

// LogStep records one agent execution. The record is buffered in memory and
// appended to the session's JSONL file; a file write failure logs a warning
// but never fails the step.
func (l *Logger) LogStep(sessionID, agentName string, input, output map[string]any, duration time.Duration, metadata map[string]any) models.AuditRecord {
	if l.redactor != nil {
		input = l.redactor.RedactSnapshot(input)
		output = l.redactor.RedactSnapshot(output)
	}

	record := models.AuditRecord{
		Timestamp:      time.Now().UTC(),
		SessionID:      sessionID,
		AgentName:      agentName,
		InputSnapshot:  input,
		OutputSnapshot: output,
		DurationMs:     duration.Milliseconds(),
		Metadata:       metadata,
	}

	l.mu.Lock()
	l.buffers[sessionID] = append(l.buffers[sessionID], record)
	l.mu.Unlock()

	if err := l.appendToFile(record); err != nil {
		l.logger.Warn("Audit file append failed",
			"session_id", sessionID,
			"agent", agentName,
			"error", err)
	}
	return record
}

// Records returns the session's records in step order: the live buffer when
// the session is resident, otherwise a re-parse of its JSONL file. A partial
// trailing line from an interrupted write is skipped.
func (l *Logger) Records(sessionID string) ([]models.AuditRecord, error) {
	if !sessionIDPattern.MatchString(sessionID) {
		return nil, fmt.Errorf("%w: %q", ErrBadSessionID, sessionID)
	}

	l.mu.RLock()
	buffered, ok := l.buffers[sessionID]
	if ok {
		out := make([]models.AuditRecord, len(buffered))
		copy(out, buffered)
		l.mu.RUnlock()
		return out, nil
	}
	l.mu.RUnlock()

	return l.readSessionFile(sessionID)
}

func (l *Logger) appendToFile(record models.AuditRecord) error {
	if !sessionIDPattern.MatchString(record.SessionID) {
		return fmt.Errorf("%w: %q", ErrBadSessionID, record.SessionID)
	}

	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshaling audit record: %w", err)
	}

	f, err := os.OpenFile(l.sessionPath(record.SessionID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening session file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("appending audit record: %w", err)
	}
	return nil
}

func (l *Logger) readSessionFile(sessionID string) ([]models.AuditRecord, error) {
	f, err := os.Open(l.sessionPath(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoSession, sessionID)
		}
		return nil, fmt.Errorf("opening session file: %w", err)
	}
	defer f.Close()

	var (
		records []models.AuditRecord
		lineNo  int
		bad     []int
	)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var record models.AuditRecord
		if err := json.Unmarshal(line, &record); err != nil {
			bad = append(bad, lineNo)
			continue
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading session file: %w", err)
	}

	// A bad final line is an interrupted append; anything earlier is real
	// corruption and worth a warning.
	for _, n := range bad {
		if n != lineNo {
			l.logger.Warn("Skipping corrupt audit line", "session_id", sessionID, "line", n)
		}
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSession, sessionID)
	}
	return records, nil
}

func (l *Logger) sessionPath(sessionID string) string {
	return filepath.Join(l.dir, "session_"+sessionID+".jsonl")
}
