package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Nexora-Open-Source/job-feed-sync/config"
	"github.com/Nexora-Open-Source/job-feed-sync/middleware"
	"github.com/Nexora-Open-Source/job-feed-sync/types"
	"github.com/spf13/cobra"
)

// TriggeredByCLI is the audit log trigger name for command line runs
const TriggeredByCLI = "cli"

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a feed sync once and print the summary as JSON",
	Long:  "Run a bulk sync of every active feed (optionally limited to one frequency), or a single feed with --feed.",
	RunE:  runSync,
}

var (
	syncFeedID    string
	syncFrequency string
)

func init() {
	syncCmd.Flags().StringVar(&syncFeedID, "feed", "", "Sync only this feed ID")
	syncCmd.Flags().StringVar(&syncFrequency, "frequency", "", "Limit a bulk sync to hourly, daily or weekly feeds")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	if syncFeedID != "" && syncFrequency != "" {
		return fmt.Errorf("--feed and --frequency cannot be combined")
	}

	frequency, ok := types.ParseScheduledFrequency(syncFrequency)
	if syncFrequency != "" && !ok {
		return fmt.Errorf("--frequency must be hourly, daily or weekly, got %q", syncFrequency)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := middleware.InitLogger(config.NewConfig().LogLevel)
	// Logs go to stderr so stdout carries only the summary.
	logger.SetOutput(os.Stderr)

	appConfig, err := config.NewAppConfig(ctx, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application configuration: %w", err)
	}
	defer appConfig.Services.Close()

	orchestrator, err := appConfig.Services.Container.GetOrchestrator()
	if err != nil {
		return fmt.Errorf("failed to initialize orchestrator: %w", err)
	}

	var summary interface{}
	if syncFeedID != "" {
		single, err := orchestrator.RunSingle(ctx, syncFeedID, TriggeredByCLI)
		if err != nil {
			return fmt.Errorf("sync of feed %s failed: %w", syncFeedID, err)
		}
		summary = single
	} else {
		bulk, err := orchestrator.RunBulk(ctx, frequency, TriggeredByCLI)
		if err != nil {
			return fmt.Errorf("bulk sync failed: %w", err)
		}
		summary = bulk
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(summary)
}
