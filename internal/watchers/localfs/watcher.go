// Package localfs watches a directory tree on the local filesystem.
//
// File identity is the MD5 of the absolute path, so a file keeps its ID
// across runs as long as it does not move. Hidden files and directories
// are skipped. Filesystem events, when the platform supports them, are
// surfaced as advisory wake-up hints; change detection itself always
// relies on a full listing.
package localfs

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/quarrylabs/ragsync/internal/core/domain"
	"github.com/quarrylabs/ragsync/internal/core/ports/driven"
	"github.com/quarrylabs/ragsync/internal/logger"
)

// Ensure Watcher implements the interfaces.
var (
	_ driven.SourceWatcher = (*Watcher)(nil)
	_ driven.ChangeHinter  = (*Watcher)(nil)
)

// mimeByExtension maps file extensions to MIME types for the formats the
// extraction registry handles. Anything unknown is treated as plain text.
var mimeByExtension = map[string]string{
	".txt":  "text/plain",
	".md":   "text/markdown",
	".csv":  "text/csv",
	".pdf":  "application/pdf",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// Watcher enumerates files under a root directory.
type Watcher struct {
	pipelineID string
	rootPath   string

	mu     sync.Mutex
	closed bool
}

// New creates a filesystem watcher rooted at rootPath.
func New(pipelineID, rootPath string) *Watcher {
	return &Watcher{
		pipelineID: pipelineID,
		rootPath:   rootPath,
	}
}

// Type returns the pipeline type.
func (w *Watcher) Type() domain.PipelineType {
	return domain.PipelineLocalFiles
}

// PipelineID returns the pipeline identifier.
func (w *Watcher) PipelineID() string {
	return w.pipelineID
}

// Capabilities returns what this watcher supports.
func (w *Watcher) Capabilities() driven.WatcherCapabilities {
	return driven.WatcherCapabilities{
		SupportsWatch: true,
	}
}

// Validate checks that the root path exists and is a directory.
func (w *Watcher) Validate(_ context.Context) error {
	info, err := os.Stat(w.rootPath)
	if err != nil {
		return fmt.Errorf("%w: root path %s: %v", domain.ErrWatcherValidation, w.rootPath, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: root path %s is not a directory", domain.ErrWatcherValidation, w.rootPath)
	}
	return nil
}

// List walks the tree and returns every visible regular file. A walk
// failure aborts the whole listing so that callers never diff against a
// truncated view of the source.
func (w *Watcher) List(ctx context.Context) ([]domain.SourceFile, error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil, domain.ErrWatcherClosed
	}
	w.mu.Unlock()

	if _, err := os.Stat(w.rootPath); err != nil {
		return nil, fmt.Errorf("%w: root path %s does not exist", domain.ErrSourceUnavailable, w.rootPath)
	}

	var files []domain.SourceFile
	err := filepath.WalkDir(w.rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if isHidden(d.Name()) && path != w.rootPath {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			// File vanished between readdir and stat.
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}

		absPath, err := filepath.Abs(path)
		if err != nil {
			return err
		}

		files = append(files, domain.SourceFile{
			FileID:     FileID(absPath),
			Name:       d.Name(),
			MIMEType:   mimeForPath(path),
			ModifiedAt: info.ModTime().UTC(),
			Size:       info.Size(),
			URL:        "file://" + absPath,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", w.rootPath, err)
	}

	return files, nil
}

// Fetch reads the file's current content from disk.
func (w *Watcher) Fetch(ctx context.Context, file domain.SourceFile) (*domain.FileContent, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	path := strings.TrimPrefix(file.URL, "file://")
	if path == "" {
		return nil, fmt.Errorf("%w: file %s has no path", domain.ErrInvalidInput, file.FileID)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file %s: %w", path, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return &domain.FileContent{
		Data:     data,
		MIMEType: file.MIMEType,
	}, nil
}

// WatchHints starts a filesystem event listener and returns a channel
// that signals when something under the root changed. Hints are
// advisory: events are coalesced and carry no payload, the next full
// listing decides what actually changed. The listener stops when ctx is
// cancelled.
func (w *Watcher) WatchHints(ctx context.Context) (<-chan struct{}, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil, domain.ErrWatcherClosed
	}

	if _, err := os.Stat(w.rootPath); err != nil {
		return nil, fmt.Errorf("root path error: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fs watcher: %w", err)
	}

	if err := addRecursive(fsw, w.rootPath); err != nil {
		fsw.Close()
		return nil, err
	}

	hints := make(chan struct{}, 1)
	go func() {
		defer close(hints)
		defer fsw.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-fsw.Events:
				if !ok {
					return
				}
				// New directories must join the watch to keep
				// coverage of the whole tree.
				if event.Op.Has(fsnotify.Create) {
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
						if !isHidden(filepath.Base(event.Name)) {
							_ = addRecursive(fsw, event.Name)
						}
					}
				}
				if isHidden(filepath.Base(event.Name)) {
					continue
				}
				select {
				case hints <- struct{}{}:
				default:
				}
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				logger.Debug("fs watch error on %s: %v", w.rootPath, err)
			}
		}
	}()

	return hints, nil
}

// Close marks the watcher closed. Event listeners started by WatchHints
// stop via their context.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

// FileID derives a stable identifier from an absolute path.
func FileID(absPath string) string {
	sum := md5.Sum([]byte(absPath))
	return hex.EncodeToString(sum[:])
}

// mimeForPath maps a file path to a MIME type by extension.
func mimeForPath(path string) string {
	if mime, ok := mimeByExtension[strings.ToLower(filepath.Ext(path))]; ok {
		return mime
	}
	return "text/plain"
}

// isHidden reports whether a file or directory name is dot-prefixed.
func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// addRecursive adds a directory and all visible subdirectories to the
// fsnotify watch list.
func addRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Directories can vanish mid-walk; skip rather than fail.
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if isHidden(d.Name()) && path != root {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}
