package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sdejongh/orgphoto/pkg/config"
)

// NewConfigCommand creates the config command
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  `View or create the orgphoto configuration file.`,
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigInitCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Transfer: %s\n", orDefault(string(cfg.Organize.Transfer), "ask"))
			fmt.Fprintf(out, "Duplicate Handling: %s\n", cfg.Organize.DuplicateHandling)
			fmt.Fprintf(out, "Comprehensive Check: %v\n", cfg.Organize.ComprehensiveCheck)
			fmt.Fprintf(out, "Redirect Dir: %s\n", cfg.Organize.RedirectDir)
			fmt.Fprintf(out, "Duplicate Keyword: %s\n", cfg.Organize.DuplicateKeyword)
			fmt.Fprintf(out, "EXIF Only: %s\n", cfg.Organize.ExifOnly)
			fmt.Fprintf(out, "Extensions: %v\n", config.NormalizeExtensions(cfg.Organize.Extensions))
			fmt.Fprintf(out, "Max Workers: %d\n", cfg.Performance.MaxWorkers)
			fmt.Fprintf(out, "Bandwidth Limit: %s\n", orDefault(cfg.Performance.BandwidthLimit, "unlimited"))
			fmt.Fprintf(out, "Output Format: %s\n", cfg.Output.Format)
			fmt.Fprintf(out, "Log Format: %s\n", cfg.Logging.Format)
			fmt.Fprintf(out, "Log Level: %s\n", cfg.Logging.Level)
			fmt.Fprintf(out, "Journal: %v (%s)\n", cfg.Journal.Enabled, cfg.JournalPath())

			return nil
		},
	}
}

func newConfigInitCommand() *cobra.Command {
	var format string
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := globalFlags.ConfigFile
			if path == "" {
				path = config.DefaultConfigPath()
				if format == string(config.FormatTOML) {
					path = filepath.Join(config.ConfigDir(), "config.toml")
				}
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("configuration file already exists: %s (use --force to replace it)", path)
			}

			cfg := config.Default()
			if err := config.SaveToFile(cfg, path); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Configuration file created at: %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "yaml", "file format when no --config path is given: yaml, toml")
	cmd.Flags().BoolVar(&force, "force", false, "replace an existing file")

	return cmd
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
