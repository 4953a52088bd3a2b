package audit

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lankalegal/neethi/pkg/config"
)

const sweepInterval = time.Hour

// Sweeper deletes derived export and report files once they age past the
// retention window. Session JSONL files are never deleted.
type Sweeper struct {
	dir      string
	maxAge   time.Duration
	interval time.Duration
	logger   *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewSweeper creates a sweeper over the audit directory with the retention
// window from config.
func NewSweeper(cfg *config.Config) *Sweeper {
	return &Sweeper{
		dir:      cfg.AuditLogDir,
		maxAge:   time.Duration(cfg.ExportRetentionDays) * 24 * time.Hour,
		interval: sweepInterval,
		logger:   slog.Default(),
	}
}

// Start launches the background sweep loop: one immediate pass, then one per
// interval. A zero retention window disables sweeping. Calling Start on a
// running sweeper is a no-op.
func (s *Sweeper) Start(ctx context.Context) {
	if s.maxAge <= 0 {
		s.logger.Info("Export retention disabled")
		return
	}
	if s.cancel != nil {
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	s.logger.Info("Export retention sweeper started",
		"dir", s.dir,
		"max_age", s.maxAge,
		"interval", s.interval)

	go s.run(ctx)
}

// Stop halts the sweep loop and waits for it to exit.
func (s *Sweeper) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.logger.Info("Export retention sweeper stopped")
}

func (s *Sweeper) run(ctx context.Context) {
	defer close(s.done)

	s.Sweep()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Sweep removes expired export and report files and returns how many were
// deleted. With retention disabled it removes nothing.
func (s *Sweeper) Sweep() int {
	if s.maxAge <= 0 {
		return 0
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Warn("Retention sweep could not read audit dir", "dir", s.dir, "error", err)
		return 0
	}

	cutoff := time.Now().Add(-s.maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !isDerivedExport(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil {
			s.logger.Warn("Retention sweep could not remove file", "file", entry.Name(), "error", err)
			continue
		}
		removed++
	}

	if removed > 0 {
		s.logger.Info("Retention sweep removed expired exports", "count", removed)
	}
	return removed
}

// isDerivedExport reports whether the name is a regenerable export artifact.
func isDerivedExport(name string) bool {
	return (strings.HasPrefix(name, "export_") && strings.HasSuffix(name, ".json")) ||
		(strings.HasPrefix(name, "report_") && strings.HasSuffix(name, ".md"))
}
