package drive

import (
	"fmt"
)

// Config holds Google Drive watcher configuration.
type Config struct {
	// PipelineID identifies the pipeline this watcher feeds.
	PipelineID string
	// FolderID is the Drive folder to watch.
	FolderID string
	// Recursive includes files in subfolders.
	Recursive bool
	// CredentialsFile is the OAuth client credentials JSON path.
	CredentialsFile string
	// TokenFile is the stored OAuth token JSON path.
	TokenFile string
	// ServiceAccountFile is a service account key JSON path. When set it
	// takes precedence over the OAuth credential pair.
	ServiceAccountFile string
	// PageSize is the page size for listing requests.
	PageSize int64
	// MaxFetchSize caps downloaded and exported content, in bytes.
	MaxFetchSize int64
}

// DefaultPageSize is the listing page size when none is configured.
const DefaultPageSize = 100

// DefaultMaxFetchSize caps fetched content at 10MB.
const DefaultMaxFetchSize = 10 * 1024 * 1024

// DefaultConfig returns a config with defaults applied.
func DefaultConfig() Config {
	return Config{
		Recursive:    true,
		PageSize:     DefaultPageSize,
		MaxFetchSize: DefaultMaxFetchSize,
	}
}

// Validate checks that the config is usable.
func (c *Config) Validate() error {
	if c.PipelineID == "" {
		return fmt.Errorf("drive config: pipeline id is required")
	}
	if c.FolderID == "" {
		return fmt.Errorf("drive config: folder id is required")
	}
	if c.ServiceAccountFile == "" && c.CredentialsFile == "" {
		return fmt.Errorf("drive config: either service account file or credentials file is required")
	}
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.MaxFetchSize <= 0 {
		c.MaxFetchSize = DefaultMaxFetchSize
	}
	return nil
}
