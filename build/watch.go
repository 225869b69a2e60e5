package build

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"importmap/project"
)

const defaultDebounce = 100 * time.Millisecond

// Watcher rebuilds sources when they change on disk.
type Watcher struct {
	Builder *Builder
	Filter  project.Filter
	// Debounce is how long a path must be quiet before it is rebuilt.
	Debounce time.Duration
	// Rebuilt, when set, receives every file report produced after the
	// initial build.
	Rebuilt chan<- FileReport
}

// Watch runs an initial build and then rebuilds changed sources until ctx is
// done. It returns nil on cancellation.
func (w *Watcher) Watch(ctx context.Context) error {
	b := w.Builder
	if b.OutDir != "" {
		w.Filter.SkipPaths = append(w.Filter.SkipPaths, b.OutDir)
	}
	files, err := project.ListSources(b.Root, w.Filter)
	if err != nil {
		return err
	}
	if _, err := b.Run(ctx, files); err != nil {
		return err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := w.addTree(fw, b.Root); err != nil {
		return err
	}
	b.logger().Info("watching for changes", zap.String("root", b.Root))

	debounce := w.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	pending := make(map[string]time.Time)
	ticker := time.NewTicker(debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(fw, event, pending)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			b.logger().Warn("watcher error", zap.Error(err))

		case now := <-ticker.C:
			for path, at := range pending {
				if now.Sub(at) < debounce {
					continue
				}
				delete(pending, path)
				w.rebuild(ctx, path)
			}
		}
	}
}

func (w *Watcher) handleEvent(fw *fsnotify.Watcher, event fsnotify.Event, pending map[string]time.Time) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	if w.Filter.InSkipPath(event.Name) {
		return
	}
	info, err := os.Stat(event.Name)
	if err != nil {
		return
	}
	if info.IsDir() {
		if event.Has(fsnotify.Create) {
			if err := w.addTree(fw, event.Name); err != nil {
				w.Builder.logger().Warn("cannot watch directory", zap.String("dir", event.Name), zap.Error(err))
			}
		}
		return
	}
	pending[event.Name] = time.Now()
}

func (w *Watcher) rebuild(ctx context.Context, path string) {
	b := w.Builder
	sf, err := project.Resolve(b.Root, path)
	if err != nil || !w.Filter.Match(sf.Path) {
		return
	}
	_, fr, err := b.process(sf)
	if err != nil {
		b.logger().Error("rebuild failed", zap.String("path", sf.Path), zap.Error(err))
		return
	}
	b.logger().Info("rebuilt", zap.String("path", sf.Path), zap.Bool("changed", fr.Changed))
	if w.Rebuilt != nil {
		select {
		case w.Rebuilt <- fr:
		case <-ctx.Done():
		}
	}
}

// addTree watches dir and every directory below it that the filter does not
// skip.
func (w *Watcher) addTree(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if (path != dir && w.Filter.SkipDir(d.Name())) || w.Filter.InSkipPath(path) {
			return fs.SkipDir
		}
		return fw.Add(path)
	})
}
