// Package watcher turns filesystem events on the library root into
// debounced resync requests. It is an optional accelerator: the engine
// stays correct with periodic resync alone, since filesystem events are
// not available everywhere (network mounts in particular).
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/sowilo/internal/storage"
)

// debounce coalesces event bursts (one save can fire several events)
// into a single resync.
const debounce = 250 * time.Millisecond

// Resyncer is the controller operation the watcher drives.
type Resyncer interface {
	Resync() error
}

// Watch starts an fsnotify watcher on root and schedules a resync after
// each burst of relevant events, until ctx is cancelled. New directories
// created at runtime are added to the watch list.
func Watch(ctx context.Context, root string, ctrl Resyncer, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

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
			if err := ctrl.Resync(); err != nil {
				logger.Warn("watcher: resync failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			// Watch directories that appear at runtime.
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

			// Temp files from our own atomic writes settle into a
			// Rename onto the real name; skip the intermediate events.
			base := filepath.Base(ev.Name)
			if !storage.IsImageCandidate(base) && ev.Op&(fsnotify.Remove|fsnotify.Rename) == 0 {
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

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
