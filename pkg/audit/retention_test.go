package audit

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lankalegal/neethi/pkg/config"
)

func writeAgedFile(t *testing.T, dir, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	stamp := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, stamp, stamp))
	return path
}

func retentionConfig(t *testing.T, days int) *config.Config {
	t.Helper()
	return &config.Config{AuditLogDir: t.TempDir(), ExportRetentionDays: days}
}

func TestSweepRemovesExpiredExports(t *testing.T) {
	cfg := retentionConfig(t, 7)
	dir := cfg.AuditLogDir

	oldExport := writeAgedFile(t, dir, "export_old.json", 8*24*time.Hour)
	oldReport := writeAgedFile(t, dir, "report_old.md", 8*24*time.Hour)
	freshExport := writeAgedFile(t, dir, "export_fresh.json", time.Hour)
	oldSession := writeAgedFile(t, dir, "session_old.jsonl", 30*24*time.Hour)

	removed := NewSweeper(cfg).Sweep()
	assert.Equal(t, 2, removed)

	assert.NoFileExists(t, oldExport)
	assert.NoFileExists(t, oldReport)
	assert.FileExists(t, freshExport)
	assert.FileExists(t, oldSession)
}

func TestSweepNeverTouchesSessionFiles(t *testing.T) {
	cfg := retentionConfig(t, 1)
	paths := []string{
		writeAgedFile(t, cfg.AuditLogDir, "session_a.jsonl", 365*24*time.Hour),
		writeAgedFile(t, cfg.AuditLogDir, "session_b.jsonl", 365*24*time.Hour),
	}

	removed := NewSweeper(cfg).Sweep()
	assert.Equal(t, 0, removed)
	for _, path := range paths {
		assert.FileExists(t, path)
	}
}

func TestSweepSkipsUnrelatedNames(t *testing.T) {
	cfg := retentionConfig(t, 1)
	paths := []string{
		writeAgedFile(t, cfg.AuditLogDir, "export_notes.txt", 30*24*time.Hour),
		writeAgedFile(t, cfg.AuditLogDir, "README.md", 30*24*time.Hour),
		writeAgedFile(t, cfg.AuditLogDir, "report.json", 30*24*time.Hour),
	}

	removed := NewSweeper(cfg).Sweep()
	assert.Equal(t, 0, removed)
	for _, path := range paths {
		assert.FileExists(t, path)
	}
}

func TestSweepDisabledByZeroRetention(t *testing.T) {
	cfg := retentionConfig(t, 0)
	path := writeAgedFile(t, cfg.AuditLogDir, "export_ancient.json", 365*24*time.Hour)

	removed := NewSweeper(cfg).Sweep()
	assert.Equal(t, 0, removed)
	assert.FileExists(t, path)
}

func TestSweeperStartRunsImmediatePass(t *testing.T) {
	cfg := retentionConfig(t, 7)
	path := writeAgedFile(t, cfg.AuditLogDir, "export_old.json", 8*24*time.Hour)

	sweeper := NewSweeper(cfg)
	sweeper.Start(context.Background())
	defer sweeper.Stop()

	require.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return os.IsNotExist(err)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSweeperStartStopLifecycle(t *testing.T) {
	cfg := retentionConfig(t, 7)
	sweeper := NewSweeper(cfg)

	sweeper.Start(context.Background())
	sweeper.Start(context.Background())
	sweeper.Stop()
	sweeper.Stop()
}

func TestSweeperDisabledNeverStarts(t *testing.T) {
	cfg := retentionConfig(t, 0)
	sweeper := NewSweeper(cfg)

	sweeper.Start(context.Background())
	sweeper.Stop()
}
