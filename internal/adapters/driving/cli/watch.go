package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/quarrylabs/ragsync/internal/adapters/driving/httpapi"
	"github.com/quarrylabs/ragsync/internal/config"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run pipelines continuously",
	Long: `Runs every configured pipeline continuously: an initial sync cycle,
then one cycle per check interval, until interrupted. When the status
server is enabled it serves pipeline state over HTTP for the lifetime
of the run.

Setting RUN_MODE=single makes watch behave like run (one cycle, then
exit), so schedulers can drive the same entrypoint.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := buildApp(ctx)
	if err != nil {
		return configError(err)
	}
	defer app.Close()

	if config.RunModeSingle() {
		return runAllOnce(ctx, cmd, app)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	for _, pipeline := range app.pipelines {
		group.Go(func() error {
			return pipeline.Run(groupCtx)
		})
	}

	if app.cfg.Server.Enabled {
		server := httpapi.NewServer(app.pipelines)
		group.Go(func() error {
			return server.Run(groupCtx, app.cfg.Server.Listen)
		})
	}

	cmd.Printf("Watching %d pipeline(s). Press Ctrl+C to stop.\n", len(app.pipelines))

	// Interruption surfaces as context.Canceled from every pipeline;
	// that is the normal way out, not a failure.
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return runFailure(err)
	}

	cmd.Println("Shutdown complete.")
	return nil
}
