// Package pdf extracts text from PDF documents using the poppler
// pdftotext utility.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/quarrylabs/ragsync/internal/core/domain"
	"github.com/quarrylabs/ragsync/internal/core/ports/driven"
)

// ErrPDFToolNotFound indicates pdftotext is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH")

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// CommandRunner executes external commands. Abstracted for testing.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// execRunner runs commands via os/exec.
type execRunner struct{}

func (r *execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Extractor converts PDF content to plain text by shelling out to
// pdftotext. The binary must be installed separately; CheckAvailable
// reports whether it is present.
type Extractor struct {
	runner CommandRunner
}

// New creates a PDF extractor using the real pdftotext binary.
func New() *Extractor {
	return &Extractor{runner: &execRunner{}}
}

// NewWithRunner creates a PDF extractor with a custom command runner.
func NewWithRunner(runner CommandRunner) *Extractor {
	return &Extractor{runner: runner}
}

// CheckAvailable reports whether pdftotext is installed.
func CheckAvailable() error {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}

// InstallInstructions returns platform-specific installation guidance.
func InstallInstructions() string {
	return `pdftotext is required for PDF extraction.

Install it with:
  macOS:         brew install poppler
  Debian/Ubuntu: sudo apt install poppler-utils
  Fedora:        sudo dnf install poppler-utils`
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{"application/pdf"}
}

// Extract converts PDF bytes to plain text. The content is written to a
// temporary file because pdftotext reads from disk; output is captured
// from stdout.
func (e *Extractor) Extract(
	ctx context.Context,
	content *domain.FileContent,
	_ domain.SourceFile,
) (*driven.ExtractResult, error) {
	if content == nil {
		return nil, domain.ErrInvalidInput
	}

	if err := CheckAvailable(); err != nil {
		return nil, err
	}

	tmpFile, err := os.CreateTemp("", "ragsync-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	if _, err := tmpFile.Write(content.Data); err != nil {
		tmpFile.Close()
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return nil, fmt.Errorf("failed to close temp file: %w", err)
	}

	// "-" sends the extracted text to stdout. -layout preserves the
	// reading order of multi-column documents.
	output, err := e.runner.Run(ctx, "pdftotext", "-layout", tmpPath, "-")
	if err != nil {
		return nil, fmt.Errorf("pdftotext failed for %s: %w", filepath.Base(tmpPath), err)
	}

	return &driven.ExtractResult{
		Text: strings.TrimSpace(string(output)),
	}, nil
}
