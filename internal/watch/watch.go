// Package watch recompiles a story file whenever it changes on disk.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ReloadFunc receives the new file contents.
type ReloadFunc func(source string)

// Watcher watches one file. The parent directory is watched so editors
// that save by renaming a temp file over the original are still seen.
type Watcher struct {
	path     string
	debounce time.Duration
	reload   ReloadFunc
	logger   *zap.Logger
	watcher  *fsnotify.Watcher
}

// New starts watching path. Call Run to deliver reloads.
func New(path string, debounce time.Duration, reload ReloadFunc, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", path, err)
	}
	return &Watcher{
		path:     abs,
		debounce: debounce,
		reload:   reload,
		logger:   logger,
		watcher:  fw,
	}, nil
}

// Run blocks until ctx is done, reloading after each burst of changes.
func (w *Watcher) Run(ctx context.Context) {
	defer w.watcher.Close()

	var timer *time.Timer
	fire := make(chan struct{}, 1)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.logger.Debug("story file changed",
				zap.String("file", event.Name),
				zap.String("operation", event.Op.String()))

			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case <-fire:
			w.reloadFile()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) reloadFile() {
	b, err := os.ReadFile(w.path)
	if err != nil {
		// The file may be mid-rename; the next event retries.
		w.logger.Warn("failed to read story file", zap.String("file", w.path), zap.Error(err))
		return
	}
	w.logger.Info("reloading story", zap.String("file", w.path))
	w.reload(string(b))
}
