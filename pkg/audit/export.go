package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ExportJSON writes the session's records as a pretty-printed JSON array to
// export_<session_id>.json in the audit directory and returns the file path.
// The export is a read-only view; the session's JSONL file is not touched.
func (l *Logger) ExportJSON(sessionID string) (string, error) {
	records, err := l.Records(sessionID)
	if err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling export: %w", err)
	}

	path := filepath.Join(l.dir, "export_"+sessionID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing export: %w", err)
	}
	return path, nil
}

// ExportMarkdown writes a human-readable report of the session's records to
// report_<session_id>.md in the audit directory and returns the file path.
func (l *Logger) ExportMarkdown(sessionID string) (string, error) {
	records, err := l.Records(sessionID)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Audit Report: Session %s\n\n", sessionID)
	fmt.Fprintf(&sb, "- Generated: %s\n", time.Now().UTC().Format(time.RFC3339))
	fmt.Fprintf(&sb, "- Steps: %d\n", len(records))

	var totalMs int64
	for _, r := range records {
		totalMs += r.DurationMs
	}
	fmt.Fprintf(&sb, "- Total duration: %d ms\n", totalMs)

	for i, r := range records {
		fmt.Fprintf(&sb, "\n## Step %d: %s\n\n", i+1, r.AgentName)
		fmt.Fprintf(&sb, "- Timestamp: %s\n", r.Timestamp.Format(time.RFC3339Nano))
		fmt.Fprintf(&sb, "- Duration: %d ms\n", r.DurationMs)

		writeSnapshotSection(&sb, "Input", r.InputSnapshot)
		writeSnapshotSection(&sb, "Output", r.OutputSnapshot)
		if len(r.Metadata) > 0 {
			writeSnapshotSection(&sb, "Metadata", r.Metadata)
		}
	}

	path := filepath.Join(l.dir, "report_"+sessionID+".md")
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	return path, nil
}

func writeSnapshotSection(sb *strings.Builder, title string, snapshot map[string]any) {
	fmt.Fprintf(sb, "\n### %s\n\n", title)
	sb.WriteString("```json\n")
	sb.WriteString(prettyJSON(snapshot))
	sb.WriteString("\n```\n")
}

func prettyJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("(unserializable: %v)", err)
	}
	return string(data)
}
