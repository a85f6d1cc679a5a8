package domain

import "time"

// PipelineType identifies which watcher variant feeds a pipeline.
type PipelineType string

const (
	// PipelineGoogleDrive watches a Google Drive folder.
	PipelineGoogleDrive PipelineType = "google_drive"
	// PipelineLocalFiles watches a local directory tree.
	PipelineLocalFiles PipelineType = "local_files"
)

// IsValid returns true for a recognised pipeline type.
func (t PipelineType) IsValid() bool {
	return t == PipelineGoogleDrive || t == PipelineLocalFiles
}

// SourceFile is a file as reported by a watched source enumeration.
type SourceFile struct {
	// FileID is the stable identifier for the logical file: the
	// source-native ID for cloud files, the MD5 hex of the absolute
	// path for local files. It never changes across cycles and is
	// the join key between source and index.
	FileID string

	// Name is the display name of the file.
	Name string

	// MIMEType is the source-reported MIME type.
	MIMEType string

	// ModifiedAt is the source-reported modification timestamp.
	ModifiedAt time.Time

	// Size is the file size in bytes, when the source reports one.
	Size int64

	// URL is where a human can open the file (web link or local path).
	URL string
}

// FileContent is the fetched body of a source file.
// MIMEType is the effective type after any source-side conversion
// (Google Workspace exports arrive as text/plain or text/csv, not as
// their application/vnd.google-apps.* listing type).
type FileContent struct {
	Data     []byte
	MIMEType string
}

// KnownFile is one entry of the persisted snapshot.
type KnownFile struct {
	ModifiedAt time.Time `json:"modified_at"`
}

// KnownFilesSnapshot maps file_id to what the engine believes exists,
// as of the last successful check. Owned exclusively by the pipeline
// service; persisted after each cycle; loaded on startup before the
// first scan.
type KnownFilesSnapshot map[string]KnownFile

// Clone returns an independent copy of the snapshot.
func (s KnownFilesSnapshot) Clone() KnownFilesSnapshot {
	if s == nil {
		return KnownFilesSnapshot{}
	}
	out := make(KnownFilesSnapshot, len(s))
	for id, f := range s {
		out[id] = f
	}
	return out
}

// FileChanges is the delta between the current enumeration and the
// snapshot: files to process and file IDs that vanished from the source.
type FileChanges struct {
	Added    []SourceFile
	Modified []SourceFile
	Deleted  []string
}

// IsEmpty returns true when the delta contains no work.
func (c FileChanges) IsEmpty() bool {
	return len(c.Added) == 0 && len(c.Modified) == 0 && len(c.Deleted) == 0
}

// SyncState is the persisted record of one pipeline's snapshot,
// keyed by pipeline ID so sibling pipelines do not clobber each other.
type SyncState struct {
	PipelineID    string
	PipelineType  PipelineType
	KnownFiles    KnownFilesSnapshot
	LastCheckTime time.Time
	LastRun       time.Time
}
