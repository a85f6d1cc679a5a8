// Package cli implements the ragsync command-line interface.
package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/quarrylabs/ragsync/internal/config"
	"github.com/quarrylabs/ragsync/internal/logger"
)

// version is the build version, overridden at link time for releases.
var version = "dev"

// Process exit codes. Single-run invocations report through them:
// schedulers treat non-zero as "this run needs attention".
const (
	// ExitOK means every cycle completed with no file failures.
	ExitOK = 0

	// ExitFailure means at least one file failed or a cycle aborted.
	ExitFailure = 1

	// ExitConfig means the configuration or startup wiring was unusable.
	ExitConfig = 2
)

// Persistent flags.
var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "ragsync",
	Short: "Synchronise document sources into a RAG vector index",
	Long: `ragsync keeps a vector index in step with watched document sources
(local directories and Google Drive folders). Each sync cycle fetches
new and changed files, extracts their text, chunks and embeds it, and
replaces the stored chunks; deleted files are removed from the index.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if verbose {
			logger.SetVerbose(true)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultFile,
		"path to the TOML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"enable debug logging")
}

// exitError carries a process exit code through cobra's error return.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// configError marks err as a startup/configuration failure (exit 2).
func configError(err error) error {
	return &exitError{code: ExitConfig, err: err}
}

// runFailure marks err as a runtime failure (exit 1).
func runFailure(err error) error {
	return &exitError{code: ExitFailure, err: err}
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			return exit.code
		}
		return ExitFailure
	}
	return ExitOK
}
