package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/sdejongh/orgphoto/pkg/journal"
)

// NewHistoryCommand creates the history command
func NewHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [RUN_ID]",
		Short: "Show journaled runs",
		Long: `List the runs recorded in the journal, most recent first.
With a run ID, list every event of that run.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			path, err := filepath.Abs(cfg.JournalPath())
			if err != nil {
				return fmt.Errorf("failed to resolve journal path: %w", err)
			}
			out := cmd.OutOrStdout()

			if _, err := os.Stat(path); os.IsNotExist(err) {
				fmt.Fprintf(out, "No journal at %s\n", path)
				return nil
			}

			jr, err := journal.Open(path)
			if err != nil {
				return err
			}
			defer jr.Close()

			if len(args) == 1 {
				entries, err := jr.Events(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printEntries(out, args[0], entries)
				return nil
			}

			runs, err := jr.Runs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			printRuns(out, runs)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to list (0 = all)")

	return cmd
}

func printRuns(w io.Writer, runs []journal.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded")
		return
	}

	for _, r := range runs {
		status := string(r.Status)
		if status == "" {
			status = "unfinished"
		}
		dry := ""
		if r.DryRun {
			dry = " (dry run)"
		}
		fmt.Fprintf(w, "%s  %s  %-10s %s%s\n", r.ID, r.StartedAt.Local().Format(time.DateTime), status, r.Mode, dry)
		fmt.Fprintf(w, "    %s -> %s (%s)\n", r.Source, r.Dest, r.Transfer)
		fmt.Fprintf(w, "    placed %d, skipped %d, renamed %d, overwritten %d, redirected %d, demoted %d, errored %d\n",
			r.Placed, r.Skipped, r.Renamed, r.Overwritten, r.Redirected, r.Demoted, r.Errored)
	}
}

func printEntries(w io.Writer, runID string, entries []journal.Entry) {
	if len(entries) == 0 {
		fmt.Fprintf(w, "No events recorded for run %s\n", runID)
		return
	}

	for _, e := range entries {
		line := fmt.Sprintf("%s  %-13s %s", e.Timestamp.Local().Format(time.TimeOnly), e.Outcome, e.IncomingPath)
		switch {
		case e.SubjectPath != "":
			line += fmt.Sprintf(" [%s -> %s]", e.SubjectPath, e.FinalPath)
		case e.FinalPath != "":
			line += " -> " + e.FinalPath
		}
		if e.Reason != "" {
			line += " (" + e.Reason + ")"
		}
		if e.Error != "" {
			line += ": " + e.Error
		}
		fmt.Fprintln(w, line)
	}
}
