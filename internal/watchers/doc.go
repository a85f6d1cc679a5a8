// Package watchers provides implementations of the SourceWatcher interface
// for the document sources the pipelines monitor. Each watcher knows how to
// enumerate and fetch files from a specific source type (Google Drive, local
// filesystem).
//
// Watchers are constructed from pipeline configuration at startup.
package watchers
