package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/quarrylabs/ragsync/internal/config"
	"github.com/quarrylabs/ragsync/internal/core/domain"
)

// statusAddr overrides the status server address from the config.
var statusAddr string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the status of a running ragsync instance",
	Long: `Queries the status server of a running ragsync watch instance and
prints each pipeline's state: current activity, recent completions and
failures, and when the next check is due.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusAddr, "addr", "",
		"status server address (default: the configured listen address)")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	addr := statusAddr
	if addr == "" {
		// Best effort: fall back to the default when the config is not
		// readable, so status works from any directory.
		if cfg, err := config.Load(configPath); err == nil {
			addr = cfg.Server.Listen
		} else {
			addr = config.DefaultListenAddr
		}
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://%s/status", addr))
	if err != nil {
		return fmt.Errorf("no running instance reachable at %s: %w", addr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status server at %s answered %s", addr, resp.Status)
	}

	var statuses []domain.RunState
	if err := json.NewDecoder(resp.Body).Decode(&statuses); err != nil {
		return fmt.Errorf("decoding status response: %w", err)
	}

	if len(statuses) == 0 {
		cmd.Println("No pipelines running.")
		return nil
	}

	for _, state := range statuses {
		printPipelineState(cmd, state)
	}
	return nil
}

func printPipelineState(cmd *cobra.Command, state domain.RunState) {
	header := headerStyle.Render(fmt.Sprintf("[%s]", state.PipelineID))
	cmd.Printf("%s %s\n", header, mutedStyle.Render(fmt.Sprintf("(%s)", state.PipelineType)))
	cmd.Printf("  Status: %s\n", statusStyle(state.Status).Render(string(state.Status)))
	cmd.Printf("  Processed: %d total, %d failed\n", state.TotalProcessed, state.TotalFailed)

	if !state.LastCheckTime.IsZero() {
		cmd.Printf("  Last check: %s\n", state.LastCheckTime.Local().Format(time.RFC1123))
	}
	if state.SecondsUntilNextCheck > 0 {
		cmd.Printf("  Next check in: %.0fs\n", state.SecondsUntilNextCheck)
	}

	for _, activity := range state.FilesProcessing {
		cmd.Printf("  Processing: %s\n", activity.Name)
	}
	if len(state.FilesFailed) > 0 {
		cmd.Printf("  Recent failures:\n")
		for _, activity := range state.FilesFailed {
			cmd.Printf("    %s: %s\n", activity.Name, errorStyle.Render(activity.Error))
		}
	}
	cmd.Println()
}
