// Package watch re-exports a document file every time it changes on disk.
package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/tally/internal/docfile"
	"github.com/starford/tally/internal/export"
	"github.com/starford/tally/internal/preview"
)

// Debounce is how long the watcher waits after the last change before it
// reloads the file. Editors often write a file in several steps.
const Debounce = 200 * time.Millisecond

// Callback is called after every export attempt that was not a no-op.
type Callback func(res *export.Result, err error)

// Watch loads the document file at path, exports it, and repeats whenever the
// file changes until ctx is cancelled. A file that fails to parse unmounts the
// preview, so nothing is exported until it parses again.
func Watch(ctx context.Context, path string, pipeline *export.Pipeline, logger *slog.Logger, cb Callback) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// Watch the directory: editors that save via rename replace the file's inode.
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	logger.Info("watch: started", slog.String("path", abs))

	surface := preview.NewSurface()
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("watch: stopped")
			return nil

		case <-timer.C:
			reload(abs, surface, logger)
			res, err := pipeline.Export(ctx, surface)
			switch {
			case err != nil:
				logger.Warn("watch: export failed", slog.String("path", abs), slog.String("error", err.Error()))
			case res == nil:
				logger.Debug("watch: nothing mounted", slog.String("path", abs))
				continue
			}
			if cb != nil {
				cb(res, err)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				surface.Unmount()
				logger.Debug("watch: file gone", slog.String("path", abs))
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				timer.Reset(Debounce)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watch: error", slog.String("error", watchErr.Error()))
		}
	}
}

func reload(path string, surface *preview.Surface, logger *slog.Logger) {
	d, err := docfile.Load(path)
	if err != nil {
		surface.Unmount()
		logger.Warn("watch: load failed", slog.String("path", path), slog.String("error", err.Error()))
		return
	}
	surface.Show(preview.Render(d))
	logger.Debug("watch: loaded", slog.String("path", path), slog.Int("items", d.Len()))
}
