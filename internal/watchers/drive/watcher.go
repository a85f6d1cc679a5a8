// Package drive watches a Google Drive folder through the Drive v3 API.
//
// Listing is a full enumeration of the watched folder on every call:
// the watcher walks the folder tree page by page and returns everything
// that is not trashed. Google Workspace documents are fetched via the
// export endpoint (Docs and Slides as plain text, Sheets as CSV); other
// files are downloaded as-is.
package drive

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"google.golang.org/api/drive/v3"

	"github.com/quarrylabs/ragsync/internal/core/domain"
	"github.com/quarrylabs/ragsync/internal/core/ports/driven"
	"github.com/quarrylabs/ragsync/internal/logger"
)

// Google Workspace MIME types.
const (
	MimeTypeGoogleDoc    = "application/vnd.google-apps.document"
	MimeTypeGoogleSheet  = "application/vnd.google-apps.spreadsheet"
	MimeTypeGoogleSlides = "application/vnd.google-apps.presentation"
	MimeTypeFolder       = "application/vnd.google-apps.folder"
)

// Export formats for Google Workspace files.
const (
	ExportMimeText = "text/plain"
	ExportMimeCSV  = "text/csv"
)

// exportMimeTypes maps Workspace MIME types to the format they are
// exported in. Files with other MIME types are downloaded unchanged.
var exportMimeTypes = map[string]string{
	MimeTypeGoogleDoc:    ExportMimeText,
	MimeTypeGoogleSheet:  ExportMimeCSV,
	MimeTypeGoogleSlides: ExportMimeText,
}

// listFields selects the file attributes a listing needs.
const listFields = "nextPageToken, files(id, name, mimeType, modifiedTime, size, webViewLink)"

// Ensure Watcher implements the interface.
var _ driven.SourceWatcher = (*Watcher)(nil)

// Watcher enumerates and fetches files from a Drive folder.
type Watcher struct {
	cfg     Config
	svc     *drive.Service
	limiter *RateLimiter

	mu     sync.Mutex
	closed bool
}

// New creates a Drive watcher over an existing service handle. Use
// Connect to build the service from credentials.
func New(cfg Config, svc *drive.Service) *Watcher {
	return &Watcher{
		cfg:     cfg,
		svc:     svc,
		limiter: NewRateLimiter(),
	}
}

// Type returns the pipeline type.
func (w *Watcher) Type() domain.PipelineType {
	return domain.PipelineGoogleDrive
}

// PipelineID returns the pipeline identifier.
func (w *Watcher) PipelineID() string {
	return w.cfg.PipelineID
}

// Capabilities returns what this watcher supports. Drive has no push
// channel here; cycles are driven purely by the polling interval.
func (w *Watcher) Capabilities() driven.WatcherCapabilities {
	return driven.WatcherCapabilities{
		SupportsWatch: false,
	}
}

// Validate confirms the watched folder exists and is a folder.
func (w *Watcher) Validate(ctx context.Context) error {
	if err := w.limiter.Wait(ctx); err != nil {
		return err
	}

	file, err := w.svc.Files.Get(w.cfg.FolderID).
		Fields("id, mimeType").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("%w: folder %s: %v", domain.ErrWatcherValidation, w.cfg.FolderID, wrapError(err))
	}
	if file.MimeType != MimeTypeFolder {
		return fmt.Errorf("%w: %s is not a folder", domain.ErrWatcherValidation, w.cfg.FolderID)
	}
	return nil
}

// List walks the watched folder tree and returns every non-trashed
// file. Any API failure aborts the whole listing; a partial result
// would make absent files look deleted.
func (w *Watcher) List(ctx context.Context) ([]domain.SourceFile, error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil, domain.ErrWatcherClosed
	}
	w.mu.Unlock()

	var files []domain.SourceFile

	pending := []string{w.cfg.FolderID}
	seen := map[string]bool{w.cfg.FolderID: true}

	for len(pending) > 0 {
		folderID := pending[0]
		pending = pending[1:]

		query := fmt.Sprintf("'%s' in parents and trashed = false", folderID)
		pageToken := ""

		for {
			if err := w.limiter.Wait(ctx); err != nil {
				return nil, err
			}

			call := w.svc.Files.List().
				Q(query).
				Fields(listFields).
				PageSize(w.cfg.PageSize).
				SupportsAllDrives(true).
				IncludeItemsFromAllDrives(true).
				Context(ctx)
			if pageToken != "" {
				call = call.PageToken(pageToken)
			}

			resp, err := call.Do()
			if err != nil {
				if IsRateLimited(err) {
					w.limiter.RecordRateLimitError(retryAfterSeconds(err))
				}
				return nil, fmt.Errorf("%w: failed to list folder %s: %v",
					domain.ErrSourceUnavailable, folderID, wrapError(err))
			}

			for _, f := range resp.Files {
				if f.MimeType == MimeTypeFolder {
					if w.cfg.Recursive && !seen[f.Id] {
						seen[f.Id] = true
						pending = append(pending, f.Id)
					}
					continue
				}
				files = append(files, toSourceFile(f))
			}

			pageToken = resp.NextPageToken
			if pageToken == "" {
				break
			}
		}
	}

	return files, nil
}

// Fetch downloads or exports the file's content. Workspace documents
// come back in their export format, everything else keeps its MIME
// type.
func (w *Watcher) Fetch(ctx context.Context, file domain.SourceFile) (*domain.FileContent, error) {
	if err := w.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	exportMime, isWorkspaceDoc := exportMimeTypes[file.MIMEType]

	var (
		body io.ReadCloser
		mime string
	)
	if isWorkspaceDoc {
		resp, err := w.svc.Files.Export(file.FileID, exportMime).Context(ctx).Download()
		if err != nil {
			return nil, w.fetchError("export", file.FileID, err)
		}
		body = resp.Body
		mime = exportMime
	} else {
		resp, err := w.svc.Files.Get(file.FileID).
			SupportsAllDrives(true).
			Context(ctx).
			Download()
		if err != nil {
			return nil, w.fetchError("download", file.FileID, err)
		}
		body = resp.Body
		mime = file.MIMEType
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, w.cfg.MaxFetchSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read content of %s: %w", file.FileID, err)
	}
	if int64(len(data)) == w.cfg.MaxFetchSize {
		logger.Warn("content of %s (%s) truncated at %d bytes", file.Name, file.FileID, w.cfg.MaxFetchSize)
	}

	return &domain.FileContent{
		Data:     data,
		MIMEType: mime,
	}, nil
}

// fetchError wraps a download or export failure, recording rate limit
// backoff when the API asked for one.
func (w *Watcher) fetchError(op, fileID string, err error) error {
	if IsRateLimited(err) {
		w.limiter.RecordRateLimitError(retryAfterSeconds(err))
	}
	return fmt.Errorf("failed to %s file %s: %w", op, fileID, wrapError(err))
}

// Close marks the watcher closed.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

// toSourceFile converts a Drive API file to the domain representation.
func toSourceFile(f *drive.File) domain.SourceFile {
	modifiedAt, err := time.Parse(time.RFC3339, f.ModifiedTime)
	if err != nil {
		logger.Warn("file %s has unparseable modified time %q", f.Id, f.ModifiedTime)
		modifiedAt = time.Time{}
	}

	return domain.SourceFile{
		FileID:     f.Id,
		Name:       f.Name,
		MIMEType:   f.MimeType,
		ModifiedAt: modifiedAt.UTC(),
		Size:       f.Size,
		URL:        webURL(f),
	}
}

// webURL returns a browser link for the file, preferring the one the
// API reports.
func webURL(f *drive.File) string {
	if f.WebViewLink != "" {
		return f.WebViewLink
	}
	return "https://drive.google.com/file/d/" + f.Id + "/view"
}
