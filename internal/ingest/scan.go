package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"cadernos-ingest/constants"
	"cadernos-ingest/internal/common"
)

// DirStats aggregates one directory walk.
type DirStats struct {
	Scanned uint32
	Matched uint32
	Ignored uint32
	Failed  uint32
}

// Scanner finds roll PDFs under a root directory.
type Scanner struct {
	logger *slog.Logger
}

func NewScanner(logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{logger: logger}
}

// ScanDirectory walks root and returns the PDF paths to process, in walk
// order. Hidden entries are skipped, as are files whose names carry an
// ignore keyword. Unreadable entries are counted and the walk continues;
// only an unreadable root aborts the scan.
func (s *Scanner) ScanDirectory(ctx context.Context, root string, recursive bool) ([]string, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, common.WrapError(common.ErrInvalidInput, "root path is required")
	}

	var paths []string
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			s.logger.Warn("scan.entry.failed", "path", path, "error", walkErr)
			stats.Failed++
			return nil
		}
		if path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if !recursive && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		if constants.HasIgnoredKeyword(d.Name()) {
			stats.Ignored++
			s.logger.Debug("scan.entry.ignored", "path", path)
			return nil
		}
		stats.Matched++
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return paths, stats, fmt.Errorf("walk %s: %w", root, err)
	}

	s.logger.Info("scan.ok",
		"root", root,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"ignored", stats.Ignored,
		"failed", stats.Failed)
	return paths, stats, nil
}
