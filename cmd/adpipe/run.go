package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mediaops/adpipe/internal/engine"
	"github.com/mediaops/adpipe/internal/metrics"
)

var (
	runJobMin  int
	runJobMax  int
	runRoot    string
	runSkipAds bool
	runDryRun  bool
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one pipeline session",
		Long: `Execute one end-to-end pipeline session:

  1. Index the ad account's videos, campaigns, ad-sets, and ads
  2. Scan the source store for new deliverable video files
  3. Download and upload them through a bounded worker pool
  4. Duplicate each template campaign per uploaded file
  5. Poll uploaded videos until they finish processing

The session and every handled file are recorded in the local store;
inspect them with "adpipe status" or the reporting API.`,
		Example: `  adpipe run
  adpipe run --job-min 600 --job-max 650
  adpipe run --root /Creatives`,
		RunE: runRun,
	}

	cmd.Flags().IntVar(&runJobMin, "job-min", 0, "lowest job number to scan (inclusive)")
	cmd.Flags().IntVar(&runJobMax, "job-max", 0, "job number upper bound (exclusive, 0 scans everything)")
	cmd.Flags().StringVar(&runRoot, "root", "", "override the source root folder")
	cmd.Flags().BoolVar(&runSkipAds, "skip-ads", false, "upload videos without duplicating template campaigns")
	cmd.Flags().BoolVar(&runDryRun, "dry-run", false, "index and scan only, report what would be uploaded")

	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	if runRoot != "" {
		globalCfg.Source.RootFolder = runRoot
	}
	if cmd.Flags().Changed("job-min") {
		globalCfg.Source.JobMin = runJobMin
	}
	if cmd.Flags().Changed("job-max") {
		globalCfg.Source.JobMax = runJobMax
	}

	if err := globalCfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	src, err := newSource()
	if err != nil {
		return err
	}
	pl, err := newPlatform()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := engine.NewRunner(globalCfg, globalStore, src, pl, metrics.New(), logger)
	runner.SkipAds = runSkipAds
	runner.DryRun = runDryRun
	if err := runner.Run(ctx); err != nil {
		return fmt.Errorf("pipeline session failed: %w", err)
	}
	return nil
}
