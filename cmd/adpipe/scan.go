package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mediaops/adpipe/internal/pattern"
	"github.com/mediaops/adpipe/internal/source"
)

var (
	scanJobMin int
	scanJobMax int
	scanRoot   string
)

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "List deliverable files in the source store without uploading",
		Long: `Scan the source store and print every file matching the deliverable
pattern. Nothing is uploaded and nothing is recorded; use this to preview
what "adpipe run" would pick up.`,
		Example: `  adpipe scan
  adpipe scan --job-min 600 --job-max 650`,
		RunE: scanRun,
	}

	cmd.Flags().IntVar(&scanJobMin, "job-min", 0, "lowest job number to scan (inclusive)")
	cmd.Flags().IntVar(&scanJobMax, "job-max", 0, "job number upper bound (exclusive, 0 scans everything)")
	cmd.Flags().StringVar(&scanRoot, "root", "", "override the source root folder")

	return cmd
}

func scanRun(cmd *cobra.Command, args []string) error {
	if scanRoot != "" {
		globalCfg.Source.RootFolder = scanRoot
	}
	if cmd.Flags().Changed("job-min") {
		globalCfg.Source.JobMin = scanJobMin
	}
	if cmd.Flags().Changed("job-max") {
		globalCfg.Source.JobMax = scanJobMax
	}

	src, err := newSource()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	matcher := pattern.NewMatcher(globalCfg.Pattern.Extensions)
	var total, matched int
	report := func(files []source.File) {
		for _, f := range files {
			total++
			if !matcher.IsDeliverable(f.Name) {
				continue
			}
			matched++
			fmt.Printf("  %s\n", f.Path)
		}
	}

	fmt.Println("Deliverable files:")
	if globalCfg.Source.JobMax > 0 {
		jobs, err := src.ListJobFolders(ctx, globalCfg.Source.RootFolder, globalCfg.Source.JobMin, globalCfg.Source.JobMax)
		if err != nil {
			return err
		}
		for _, job := range jobs {
			files, err := src.ListAll(ctx, job.Path)
			if err != nil {
				return err
			}
			report(files)
		}
	} else {
		files, err := src.ListAll(ctx, globalCfg.Source.RootFolder)
		if err != nil {
			return err
		}
		report(files)
	}

	fmt.Printf("\n%d of %d files match the deliverable pattern\n", matched, total)
	return nil
}
