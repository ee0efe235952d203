package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	statusLimit   int
	statusSession int64
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Display recorded pipeline sessions",
		Long: `Display recent pipeline sessions and their outcomes. Use --session to
list the files handled within one session.`,
		Example: `  adpipe status
  adpipe status --limit 5
  adpipe status --session 12`,
		RunE: statusRun,
	}

	cmd.Flags().IntVar(&statusLimit, "limit", 20, "number of sessions to show")
	cmd.Flags().Int64Var(&statusSession, "session", 0, "show the files of one session")

	return cmd
}

func statusRun(cmd *cobra.Command, args []string) error {
	if statusSession > 0 {
		return printSessionFiles(statusSession)
	}

	sessions, err := globalStore.ListSessions(statusLimit)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(sessions) == 0 {
		fmt.Println("No sessions recorded")
		return nil
	}

	fmt.Println("Sessions")
	fmt.Println("========")
	fmt.Printf("%-6s %-20s %-12s %s\n", "ID", "STARTED", "STATUS", "ERROR")
	for _, s := range sessions {
		fmt.Printf("%-6d %-20s %-12s %s\n",
			s.ID,
			s.CreatedAt.Local().Format(time.DateTime),
			s.Status,
			s.ErrorMessage,
		)
	}
	return nil
}

func printSessionFiles(id int64) error {
	session, err := globalStore.GetSession(id)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}

	files, err := globalStore.ListSessionFiles(id)
	if err != nil {
		return fmt.Errorf("failed to list session files: %w", err)
	}

	fmt.Printf("Session %d (%s)\n", session.ID, session.Status)
	fmt.Println("================")
	if len(files) == 0 {
		fmt.Println("No files recorded")
		return nil
	}

	fmt.Printf("%-20s %-12s %s\n", "VIDEO", "STATUS", "NAME")
	for _, f := range files {
		videoID := f.VideoID
		if videoID == "" {
			videoID = "-"
		}
		fmt.Printf("%-20s %-12s %s\n", videoID, f.Status, f.Name)
	}
	return nil
}
