package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aescanero/quizcast/pkg/domain"
	"github.com/aescanero/quizcast/pkg/ports"
)

// Snapshot is the on-disk backup document
type Snapshot struct {
	TakenAt   time.Time                `json:"taken_at"`
	Sessions  []*domain.Session        `json:"sessions"`
	Analytics *domain.AnalyticsSummary `json:"analytics"`
}

// Writer dumps sessions and analytics counters to timestamped JSON
// files. Snapshots are written atomically (temp file + rename) and old
// ones are pruned beyond a retained count.
type Writer struct {
	dir       string
	keep      int
	sessions  ports.SessionStore
	analytics ports.AnalyticsStore
	logger    *zap.Logger
}

// NewWriter creates a backup writer rooted at dir
func NewWriter(dir string, keep int, sessions ports.SessionStore, analytics ports.AnalyticsStore, logger *zap.Logger) *Writer {
	return &Writer{
		dir:       dir,
		keep:      keep,
		sessions:  sessions,
		analytics: analytics,
		logger:    logger,
	}
}

// Run takes one snapshot and prunes old ones. Returns the path of the
// written file.
func (w *Writer) Run(ctx context.Context) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup dir: %w", err)
	}

	sessions, err := w.sessions.List(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list sessions: %w", err)
	}

	summary, err := w.analytics.Summary(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read analytics: %w", err)
	}

	snapshot := Snapshot{
		TakenAt:   time.Now(),
		Sessions:  sessions,
		Analytics: summary,
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	name := fmt.Sprintf("backup-%s.json", snapshot.TakenAt.UTC().Format("20060102T150405Z"))
	path := filepath.Join(w.dir, name)
	tmp := path + ".tmp"

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("failed to finalize snapshot: %w", err)
	}

	w.logger.Info("backup written",
		zap.String("path", path),
		zap.Int("sessions", len(sessions)))

	if err := w.prune(); err != nil {
		w.logger.Warn("failed to prune old backups", zap.Error(err))
	}

	return path, nil
}

// prune removes the oldest snapshots beyond the retained count
func (w *Writer) prune() error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return err
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, "backup-") && strings.HasSuffix(name, ".json") {
			names = append(names, name)
		}
	}

	if w.keep <= 0 || len(names) <= w.keep {
		return nil
	}

	// Timestamped names sort chronologically
	sort.Strings(names)
	for _, name := range names[:len(names)-w.keep] {
		if err := os.Remove(filepath.Join(w.dir, name)); err != nil {
			return err
		}
	}

	return nil
}
