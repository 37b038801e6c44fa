package ingest

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"cadernos-ingest/constants"
	"cadernos-ingest/internal/common"
)

type WatchConfig struct {
	Root      string
	Recursive bool
	// Debounce coalesces the event bursts a PDF copy produces. Zero emits
	// immediately.
	Debounce time.Duration
}

// StartWatcher watches the ingest directory and emits the path of every roll
// PDF that is created, written or renamed into it. Hidden entries and files
// with ignore keywords are filtered the same way the batch scan filters
// them. The channels close when ctx is done.
func StartWatcher(ctx context.Context, cfg WatchConfig, logger *slog.Logger) (<-chan string, <-chan error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Root == "" {
		return nil, nil, common.WrapError(common.ErrInvalidInput, "watch root is required")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("watch.start.failed", "error", err)
		return nil, nil, err
	}

	if err := addWatchRoot(w, cfg); err != nil {
		logger.Error("watch.start.failed", "root", cfg.Root, "error", err)
		_ = w.Close()
		return nil, nil, err
	}

	evCh := make(chan string, 256)
	errCh := make(chan error, 1)

	go func() {
		defer close(evCh)
		defer close(errCh)
		defer func() { _ = w.Close() }()

		var timer *time.Timer
		var timerC <-chan time.Time
		pending := map[string]struct{}{}

		sendPending := func() {
			for p := range pending {
				select {
				case evCh <- p:
				default:
				}
				delete(pending, p)
			}
		}

		for {
			select {
			case <-ctx.Done():
				return

			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if cfg.Recursive && e.Op.Has(fsnotify.Create) {
					watchNewDir(w, e.Name, logger)
				}
				if !watchable(e.Name) || e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
					continue
				}
				pending[e.Name] = struct{}{}
				if cfg.Debounce <= 0 {
					sendPending()
					continue
				}
				if timer == nil {
					timer = time.NewTimer(cfg.Debounce)
					timerC = timer.C
				} else {
					timer.Stop()
					timer.Reset(cfg.Debounce)
				}

			case <-timerC:
				sendPending()

			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("watch.error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return evCh, errCh, nil
}

// addWatchRoot registers the root, and in recursive mode every non-hidden
// directory below it.
func addWatchRoot(w *fsnotify.Watcher, cfg WatchConfig) error {
	if !cfg.Recursive {
		return w.Add(cfg.Root)
	}
	return filepath.WalkDir(cfg.Root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.IsDir() {
			return nil
		}
		if path != cfg.Root && IsHidden(path) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

// watchNewDir starts watching a directory created under the root.
func watchNewDir(w *fsnotify.Watcher, path string, logger *slog.Logger) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() || IsHidden(path) {
		return
	}
	if err := w.Add(path); err != nil {
		logger.Warn("watch.adddir.failed", "path", path, "error", err)
	}
}

// watchable applies the batch-scan filters to one event path.
func watchable(path string) bool {
	if !AllowedExt(filepath.Ext(path)) {
		return false
	}
	if IsHidden(path) {
		return false
	}
	return !constants.HasIgnoredKeyword(filepath.Base(path))
}
