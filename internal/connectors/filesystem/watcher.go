// Package filesystem watches a local folder for documents to ingest.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/logger"
)

// Ensure Watcher implements the interface.
var _ driven.FileWatcher = (*Watcher)(nil)

// ErrNotDirectory is returned when the watched path is not a directory.
var ErrNotDirectory = errors.New("not a directory")

// Watcher reports matching files under a folder: once for every existing
// file at start, then for every create or write event. Hidden files and
// directories are skipped. Subdirectories are watched too.
type Watcher struct {
	folder   string
	pattern  string
	debounce time.Duration
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithPattern sets the file name glob (default "*.pdf"). Matching is
// case-insensitive.
func WithPattern(pattern string) Option {
	return func(w *Watcher) {
		if pattern != "" {
			w.pattern = pattern
		}
	}
}

// WithDebounce sets how long a path must be quiet before it is reported.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d >= 0 {
			w.debounce = d
		}
	}
}

// New creates a watcher for folder.
func New(folder string, opts ...Option) *Watcher {
	w := &Watcher{
		folder:   folder,
		pattern:  domain.DefaultWatchPattern,
		debounce: domain.DefaultWatchDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Folder returns the watched directory.
func (w *Watcher) Folder() string {
	return w.folder
}

// Pattern returns the file name glob.
func (w *Watcher) Pattern() string {
	return w.pattern
}

// Watch scans the folder, then blocks reporting changes until ctx is
// cancelled. onFile is only ever called from the goroutine running Watch.
func (w *Watcher) Watch(ctx context.Context, onFile func(path string)) error {
	if _, err := filepath.Match(w.pattern, ""); err != nil {
		return fmt.Errorf("%w: watch pattern %q: %v", domain.ErrInvalidInput, w.pattern, err)
	}

	root, err := filepath.Abs(w.folder)
	if err != nil {
		return fmt.Errorf("root path error: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("root path error: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root path error: %s: %w", root, ErrNotDirectory)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	// Subscribe before scanning so files created during the scan are not lost.
	existing, err := w.addTree(fsw, root)
	if err != nil {
		return err
	}
	logger.Debug("watcher: %d existing files in %s", len(existing), root)
	for _, path := range existing {
		if ctx.Err() != nil {
			return nil
		}
		onFile(path)
	}

	fired := make(chan string)
	done := make(chan struct{})
	defer close(done)
	pending := make(map[string]*time.Timer)
	defer func() {
		for _, t := range pending {
			t.Stop()
		}
	}()

	schedule := func(path string) {
		if t, ok := pending[path]; ok {
			t.Reset(w.debounce)
			return
		}
		pending[path] = time.AfterFunc(w.debounce, func() {
			select {
			case fired <- path:
			case <-done:
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case path := <-fired:
			delete(pending, path)
			onFile(path)

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			for _, path := range w.handleEvent(fsw, root, event) {
				schedule(path)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher: %v", err)
		}
	}
}

// handleEvent returns the files an event makes eligible for ingestion.
// A new directory is subscribed to and its matching files returned.
func (w *Watcher) handleEvent(fsw *fsnotify.Watcher, root string, event fsnotify.Event) []string {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return nil
	}
	rel, err := filepath.Rel(root, event.Name)
	if err != nil || isHidden(rel) {
		return nil
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		// Gone before we looked.
		return nil
	}

	if info.IsDir() {
		if !event.Has(fsnotify.Create) {
			return nil
		}
		files, err := w.addTree(fsw, event.Name)
		if err != nil {
			logger.Warn("watcher: %v", err)
		}
		return files
	}

	if !info.Mode().IsRegular() || !w.matches(event.Name) {
		return nil
	}
	return []string{event.Name}
}

// addTree subscribes to dir and its non-hidden subdirectories and returns
// the matching files found, in lexical order.
func (w *Watcher) addTree(fsw *fsnotify.Watcher, dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			logger.Warn("watcher: skipping %s: %v", path, err)
			return nil
		}
		if path != dir && isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if err := fsw.Add(path); err != nil {
				return fmt.Errorf("watch %s: %w", path, err)
			}
			return nil
		}
		if d.Type().IsRegular() && w.matches(path) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func (w *Watcher) matches(path string) bool {
	ok, _ := filepath.Match(strings.ToLower(w.pattern), strings.ToLower(filepath.Base(path)))
	return ok
}

// isHidden reports whether any element of path starts with a dot.
// "." and ".." are not hidden.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if len(part) > 1 && part[0] == '.' && part != ".." {
			return true
		}
	}
	return false
}
