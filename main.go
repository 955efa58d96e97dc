/*
Package main runs the job feed sync service.

The service pulls employer job feeds (XML, RSS and JSON), normalizes every
posting into the shared job shape and upserts it into the job store, keeping
per-feed sync status and an audit trail of each run.

Run the server:

	$ go run . serve

Run a sync once from the command line:

	$ go run . sync --frequency daily
	$ go run . sync --feed <feed-id>

Endpoints:
  - GET  /cron/sync-feeds?frequency=<hourly|daily|weekly>: Scheduled bulk sync (Bearer CRON_SECRET).
  - POST /admin/feeds/{feedId}/sync: Sync one feed now, or queue it with ?async=true (admin JWT).
  - GET  /admin/feeds: List feed configurations with their sync status (admin JWT).
  - GET  /job-status?job_id=<id>: Status of a queued sync (admin JWT).
  - GET  /health, /health/live, /health/ready, /metrics, /swagger/
*/
package main

import (
	"fmt"
	"os"

	"github.com/Nexora-Open-Source/job-feed-sync/config"
	"github.com/Nexora-Open-Source/job-feed-sync/middleware"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "job-feed-sync",
	Short: "Employer job feed synchronization service",
	Long:  "job-feed-sync fetches employer job feeds, normalizes their postings and upserts them into the job store on a schedule or on demand.",
	// With no subcommand the binary serves, as the container image expects.
	RunE:          runServe,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// @title Job Feed Sync API
// @version 1.0
// @description Triggers and inspects employer job feed synchronization.
// @BasePath /
// @securityDefinitions.apikey CronSecret
// @in header
// @name Authorization
// @description "Bearer " followed by CRON_SECRET
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description "Bearer " followed by an HS256 JWT with role=admin
func main() {
	config.LoadDotEnv(middleware.Logger)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
