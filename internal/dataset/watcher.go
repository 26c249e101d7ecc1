package dataset

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/lineagemap/internal/models"
	"github.com/starford/lineagemap/internal/storage"
)

// DefaultDebounce is how long the watcher waits for a burst of writes to settle.
const DefaultDebounce = 300 * time.Millisecond

// ChangeFunc is called for every dataset whose content changed on disk.
type ChangeFunc func(ctx context.Context, ref models.DatasetRef)

// Watch observes the datasets directory and calls onChange for each file
// that was created or whose checksum changed. Files present when Watch
// starts are taken as the baseline and are not reported.
//
// Events are coalesced: every event resets a debounce timer, and when it
// fires the directory is listed and compared against the last snapshot.
func Watch(ctx context.Context, files storage.Provider, root string, logger *slog.Logger, debounce time.Duration, onChange ChangeFunc) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	snapshot := map[string]string{}
	if refs, err := files.List(""); err == nil {
		for _, ref := range refs {
			snapshot[ref.ID] = ref.Checksum
		}
	} else {
		logger.Warn("watcher: initial list failed", slog.String("error", err.Error()))
	}

	logger.Info("watcher: started", slog.String("root", root), slog.Int("datasets", len(snapshot)))

	var timer *time.Timer
	var timerCh <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			timerCh = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			snapshot = reconcile(ctx, files, snapshot, logger, onChange)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					schedule()
					continue
				}
			}
			if storage.FormatOf(ev.Name) == "" || strings.HasPrefix(filepath.Base(ev.Name), ".") {
				continue
			}
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// reconcile lists the datasets, reports new or changed ones and returns the
// new snapshot. Removed files simply drop out of the snapshot.
func reconcile(ctx context.Context, files storage.Provider, prev map[string]string, logger *slog.Logger, onChange ChangeFunc) map[string]string {
	refs, err := files.List("")
	if err != nil {
		logger.Warn("watcher: list failed", slog.String("error", err.Error()))
		return prev
	}
	next := make(map[string]string, len(refs))
	for _, ref := range refs {
		next[ref.ID] = ref.Checksum
		if prev[ref.ID] == ref.Checksum {
			continue
		}
		logger.Debug("watcher: dataset changed", slog.String("path", ref.ID), slog.String("name", ref.Name))
		if onChange != nil {
			onChange(ctx, ref)
		}
	}
	for id := range prev {
		if _, ok := next[id]; !ok {
			logger.Debug("watcher: dataset removed", slog.String("path", id))
		}
	}
	return next
}

// addDirsRecursive adds root and all its non-hidden subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
