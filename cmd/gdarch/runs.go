package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var runsLimit int

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show the history of past archival runs",
		Long: `Show past archival runs recorded in the local history database:
which folder was archived, how many files made it in, and whether the
run succeeded.`,
		Example: `  gdarch runs
  gdarch runs --limit 5`,
		RunE: runsRun,
	}

	cmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum number of runs to show")

	return cmd
}

func runsRun(cmd *cobra.Command, args []string) error {
	st := openStore()
	if st == nil {
		return fmt.Errorf("run history database could not be opened")
	}
	defer st.Close()

	runs, err := st.ListArchiveRuns(runsLimit)
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("No archival runs recorded yet.")
		return nil
	}

	fmt.Printf("%-20s %-30s %-8s %8s %8s %8s %10s\n",
		"STARTED", "ARCHIVE", "STATUS", "FILES", "SKIPPED", "FAILED", "SIZE")
	for _, run := range runs {
		fmt.Printf("%-20s %-30s %-8s %8d %8d %8d %10s\n",
			run.StartTime.Local().Format(time.DateTime),
			truncate(run.ArchiveName, 30),
			run.Status,
			run.FilesArchived,
			run.FilesSkipped,
			run.FilesFailed,
			humanize.Bytes(uint64(run.ArchiveSize)),
		)
		if run.ErrorMessage != "" {
			fmt.Printf("  error: %s\n", run.ErrorMessage)
		}
	}

	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
