package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/quarrylabs/ragsync/internal/core/domain"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one sync cycle and exit",
	Long: `Runs a single sync cycle for every configured pipeline, prints the
cycle statistics and exits. The exit code is 0 when everything
succeeded, 1 when any file failed or a cycle aborted, 2 on a
configuration error.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := buildApp(ctx)
	if err != nil {
		return configError(err)
	}
	defer app.Close()

	return runAllOnce(ctx, cmd, app)
}

// runAllOnce performs one cycle per pipeline, sequentially, and prints
// a statistics line for each. Used by `run` and by `watch` under
// RUN_MODE=single.
func runAllOnce(ctx context.Context, cmd *cobra.Command, a *app) error {
	failed := false
	for _, pipeline := range a.pipelines {
		stats, err := pipeline.RunOnce(ctx)
		printStats(cmd, pipeline.ID(), stats)

		if err != nil {
			failed = true
			cmd.PrintErrf("Pipeline %s: cycle aborted: %v\n", pipeline.ID(), err)
			continue
		}
		if stats.Errors > 0 {
			failed = true
		}
	}

	if failed {
		return runFailure(errors.New("one or more pipelines reported errors"))
	}
	return nil
}

func printStats(cmd *cobra.Command, pipelineID string, stats domain.CycleStats) {
	cmd.Printf("Pipeline %s: files_processed=%d files_deleted=%d errors=%d duration=%s\n",
		pipelineID, stats.FilesProcessed, stats.FilesDeleted, stats.Errors,
		stats.Duration.Round(time.Millisecond))
}
