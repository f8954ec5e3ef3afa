package driven

import "context"

// FileWatcher reports files that appear or change in a folder.
type FileWatcher interface {
	// Watch scans the folder once, then observes it until ctx is cancelled.
	// onFile is called from a single goroutine for every matching file,
	// after debouncing.
	Watch(ctx context.Context, onFile func(path string)) error

	// Folder returns the observed directory.
	Folder() string
}
