package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sdejongh/orgphoto/internal/platform"
	"github.com/sdejongh/orgphoto/pkg/config"
	"github.com/sdejongh/orgphoto/pkg/models"
)

// validatePaths checks the source and destination and returns their absolute forms
// A missing destination is created, as the first run into a new library expects
func validatePaths(source, dest string) (string, string, error) {
	for _, p := range []string{source, dest} {
		if err := platform.ValidatePath(p); err != nil {
			return "", "", err
		}
	}

	sourceAbs, err := platform.NormalizePath(source)
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve source path: %w", err)
	}

	destAbs, err := platform.NormalizePath(dest)
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve destination path: %w", err)
	}

	// Validate source exists
	sourceInfo, err := os.Stat(sourceAbs)
	if os.IsNotExist(err) {
		return "", "", fmt.Errorf("source path does not exist: %s", source)
	} else if err != nil {
		return "", "", fmt.Errorf("failed to access source path: %w", err)
	} else if !sourceInfo.IsDir() {
		return "", "", fmt.Errorf("source path is not a directory: %s", source)
	}

	// Validate paths are not identical
	if platform.SamePath(sourceAbs, destAbs) {
		return "", "", fmt.Errorf("source and destination cannot be the same: %s", sourceAbs)
	}

	// Validate paths are not nested
	if platform.IsWithin(sourceAbs, destAbs) {
		return "", "", fmt.Errorf("destination cannot be inside source directory")
	}
	if platform.IsWithin(destAbs, sourceAbs) {
		return "", "", fmt.Errorf("source cannot be inside destination directory")
	}

	// Check destination
	destInfo, err := os.Stat(destAbs)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(destAbs, 0755); err != nil {
			return "", "", fmt.Errorf("failed to create destination directory: %w", err)
		}
	} else if err != nil {
		return "", "", fmt.Errorf("failed to access destination path: %w", err)
	} else if !destInfo.IsDir() {
		return "", "", fmt.Errorf("destination path exists but is not a directory: %s", dest)
	}

	return sourceAbs, destAbs, nil
}

// loadConfig loads configuration from file or returns default
func loadConfig() (*config.Config, error) {
	if globalFlags.ConfigFile != "" {
		return config.LoadFromFile(globalFlags.ConfigFile)
	}
	return config.LoadDefault()
}

// applyFlagsToConfig overrides config values with the flags set on the command line
func applyFlagsToConfig(cmd *cobra.Command, cfg *config.Config, flags *OrganizeFlags) error {
	changed := cmd.Flags().Changed

	// Transfer mode
	switch {
	case flags.Move:
		cfg.Organize.Transfer = models.TransferMove
	case flags.Copy:
		cfg.Organize.Transfer = models.TransferCopy
	}

	// Duplicate handling
	if changed("duplicate-handling") {
		mode, err := models.ParseDuplicateMode(flags.DuplicateHandling)
		if err != nil {
			return err
		}
		cfg.Organize.DuplicateHandling = mode
	}

	if flags.NoComprehensiveCheck {
		cfg.Organize.ComprehensiveCheck = false
	}
	if changed("redirect-dir") {
		cfg.Organize.RedirectDir = flags.RedirectDir
	}
	if changed("duplicate-keyword") {
		cfg.Organize.DuplicateKeyword = flags.DuplicateKeyword
	}
	if changed("extra-keyword") {
		cfg.Organize.ExtraKeywords = flags.ExtraKeywords
	}
	if changed("exif-only") {
		cfg.Organize.ExifOnly = models.ExifPolicy(strings.ToLower(flags.ExifOnly))
	}
	if changed("extensions") {
		cfg.Organize.Extensions = flags.Extensions
	}

	// Parallel workers (default: 5)
	if flags.Parallel > 0 {
		cfg.Performance.MaxWorkers = flags.Parallel
	} else if cfg.Performance.MaxWorkers == 0 {
		cfg.Performance.MaxWorkers = 5
	}

	if changed("bandwidth") {
		cfg.Performance.BandwidthLimit = flags.Bandwidth
	}

	// Exclude patterns
	if len(flags.Exclude) > 0 {
		cfg.Exclude = flags.Exclude
	}

	// Output format
	if flags.Output != "" {
		cfg.Output.Format = flags.Output
	}
	if flags.NoProgress {
		cfg.Output.Progress = false
	}

	// Disable progress in quiet mode
	if globalFlags.Quiet {
		cfg.Output.Progress = false
		cfg.Output.Quiet = true
	}

	// Logging
	if flags.LogFile != "" {
		cfg.Logging.File = flags.LogFile
		cfg.Logging.Enabled = true
	}
	if flags.LogFormat != "" {
		cfg.Logging.Format = flags.LogFormat
	}
	if flags.LogLevel != "" {
		cfg.Logging.Level = flags.LogLevel
	}
	if globalFlags.Verbose && !changed("log-level") {
		cfg.Logging.Level = "debug"
	}

	if flags.Journal {
		cfg.Journal.Enabled = true
	}

	return cfg.Validate()
}

// createRunOperation creates a run operation from configuration
func createRunOperation(cfg *config.Config, source, dest string, dryRun bool) (*models.RunOperation, error) {
	bandwidth, err := config.ParseBandwidth(cfg.Performance.BandwidthLimit)
	if err != nil {
		return nil, err
	}

	operation := &models.RunOperation{
		ID:                 uuid.New().String(),
		SourcePath:         source,
		DestPath:           dest,
		Transfer:           cfg.Organize.Transfer,
		DuplicateMode:      cfg.Organize.DuplicateHandling,
		ComprehensiveCheck: cfg.Organize.ComprehensiveCheck,
		RedirectDir:        cfg.Organize.RedirectDir,
		DuplicateKeyword:   cfg.Organize.DuplicateKeyword,
		ExtraKeywords:      cfg.Organize.ExtraKeywords,
		ExifPolicy:         cfg.Organize.ExifOnly,
		Extensions:         config.NormalizeExtensions(cfg.Organize.Extensions),
		ExcludePatterns:    cfg.Exclude,
		DryRun:             dryRun,
		MaxWorkers:         cfg.Performance.MaxWorkers,
		BufferSize:         cfg.Performance.BufferSize,
		BandwidthLimit:     bandwidth,
		CreatedAt:          time.Now(),
	}

	if err := operation.Validate(); err != nil {
		return nil, err
	}

	return operation, nil
}
