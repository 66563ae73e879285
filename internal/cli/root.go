package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sdejongh/orgphoto/pkg/models"
)

// ExitError carries the status of a run that did not fully succeed
// The summary has already been printed; main only sets the exit code
type ExitError struct {
	Status models.RunStatus
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("run finished with status %s", e.Status)
}

// Code returns the process exit code for the status
func (e *ExitError) Code() int {
	return e.Status.ExitCode()
}

// NewRootCommand creates the orgphoto command tree
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "orgphoto",
		Short: "Organize photos into dated folders without duplicates",
		Long: `orgphoto ingests files from a source tree and places each one into a
YYYY_MM_DD folder of the destination, dated by its EXIF creation time or its
modification time. Content already present in the destination is never
silently duplicated, and the best named copy of a repeated file keeps the
canonical name.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add global flags
	AddGlobalFlags(rootCmd)

	// Add commands
	rootCmd.AddCommand(NewOrganizeCommand())
	rootCmd.AddCommand(NewPlanCommand())
	rootCmd.AddCommand(NewHistoryCommand())
	rootCmd.AddCommand(NewConfigCommand())
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}
