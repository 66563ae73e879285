package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sdejongh/orgphoto/pkg/config"
	"github.com/sdejongh/orgphoto/pkg/journal"
	"github.com/sdejongh/orgphoto/pkg/logging"
	"github.com/sdejongh/orgphoto/pkg/metadata"
	"github.com/sdejongh/orgphoto/pkg/models"
	"github.com/sdejongh/orgphoto/pkg/organize"
	"github.com/sdejongh/orgphoto/pkg/output"
	"github.com/sdejongh/orgphoto/pkg/storage"
)

const (
	// defaultLogName is created in the destination when no log file is configured
	defaultLogName = "events.log"

	logMaxSize    = 10 * 1024 * 1024 // 10 MB
	logMaxBackups = 5
)

// OrganizeFlags holds organize and plan command flags
type OrganizeFlags struct {
	Move                 bool
	Copy                 bool
	Extensions           []string
	ExifOnly             string
	DryRun               bool
	DuplicateHandling    string
	NoComprehensiveCheck bool
	RedirectDir          string
	DuplicateKeyword     string
	ExtraKeywords        []string
	Exclude              []string
	Parallel             int
	Bandwidth            string
	Output               string
	NoProgress           bool
	PlanReport           string
	PlanFormat           string
	Journal              bool
	// Logging flags
	LogFile   string
	LogFormat string
	LogLevel  string
}

// NewOrganizeCommand creates the organize command
func NewOrganizeCommand() *cobra.Command {
	flags := &OrganizeFlags{}

	cmd := &cobra.Command{
		Use:   "organize SOURCE DEST",
		Short: "Move or copy files into dated folders",
		Long: `Organize files from SOURCE into DEST/YYYY_MM_DD folders.

Duplicate handling modes:
  skip         keep what is already there (default)
  overwrite    replace non-master files; a master is never overwritten
  rename       keep everything, suffixing non-masters with the keyword
  content      skip identical content, rename same-name different content
  interactive  ask for each conflict
  redirect     move non-masters under the redirect directory

If neither --move nor --copy is given, orgphoto offers a dry run simulating a move.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrganize(cmd, flags, args[0], args[1], false)
		},
	}

	addOrganizeFlags(cmd, flags)
	cmd.Flags().BoolVarP(&flags.Move, "move", "m", false, "move files into the destination")
	cmd.Flags().BoolVarP(&flags.Copy, "copy", "c", false, "copy files into the destination")
	cmd.Flags().BoolVarP(&flags.DryRun, "dry-run", "d", false, "show what would be done without touching any file")
	cmd.MarkFlagsMutuallyExclusive("move", "copy")

	return cmd
}

// NewPlanCommand creates the plan command
func NewPlanCommand() *cobra.Command {
	flags := &OrganizeFlags{}

	cmd := &cobra.Command{
		Use:   "plan SOURCE DEST",
		Short: "Show what organize would do (dry-run)",
		Long: `Run the full duplicate resolution against SOURCE and DEST without
performing any file operation, and report every planned action.
This is equivalent to organize --dry-run.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.DryRun = true
			return runOrganize(cmd, flags, args[0], args[1], true)
		},
	}

	addOrganizeFlags(cmd, flags)
	cmd.Flags().BoolVarP(&flags.Copy, "copy", "c", false, "plan a copy instead of a move")
	cmd.Flags().StringVar(&flags.PlanReport, "plan-report", "", "write the plan report to a file")
	cmd.Flags().StringVar(&flags.PlanFormat, "plan-format", "human", "plan report format: human, json")

	return cmd
}

// addOrganizeFlags registers the flags shared by organize and plan
func addOrganizeFlags(cmd *cobra.Command, flags *OrganizeFlags) {
	cmd.Flags().StringSliceVarP(&flags.Extensions, "extensions", "j", nil, "extensions to process, e.g. jpg,png (default: all files)")
	cmd.Flags().StringVarP(&flags.ExifOnly, "exif-only", "x", "", "embedded date policy: yes (only files with EXIF date), no (fall back to file date), fs (only files without EXIF date)")
	cmd.Flags().StringVarP(&flags.DuplicateHandling, "duplicate-handling", "D", "", "duplicate handling: skip, overwrite, rename, content, interactive, redirect")
	cmd.Flags().BoolVarP(&flags.NoComprehensiveCheck, "no-comprehensive-check", "N", false, "compare file names only; skip content hashing of the destination")
	cmd.Flags().StringVarP(&flags.RedirectDir, "redirect-dir", "R", "", "directory for redirected duplicates, relative to DEST or absolute")
	cmd.Flags().StringVarP(&flags.DuplicateKeyword, "duplicate-keyword", "K", "", "keyword marking duplicate names")
	cmd.Flags().StringSliceVar(&flags.ExtraKeywords, "extra-keyword", nil, "additional words marking a name as a copy")
	cmd.Flags().StringSliceVar(&flags.Exclude, "exclude", nil, "glob patterns to exclude from the source")
	cmd.Flags().IntVarP(&flags.Parallel, "parallel", "p", 0, "number of parallel hashing workers (default: 5)")
	cmd.Flags().StringVarP(&flags.Bandwidth, "bandwidth", "b", "", "bandwidth limit for copies per second (e.g., \"10M\", \"1GiB\")")
	cmd.Flags().StringVarP(&flags.Output, "output", "o", "", "output format: human, json")
	cmd.Flags().BoolVar(&flags.NoProgress, "no-progress", false, "disable progress bars")
	cmd.Flags().BoolVar(&flags.Journal, "journal", false, "record the run in the journal database")

	// Logging flags
	cmd.Flags().StringVar(&flags.LogFile, "log-file", "", "log file path (default: DEST/"+defaultLogName+")")
	cmd.Flags().StringVar(&flags.LogFormat, "log-format", "", "log format: text, json")
	cmd.Flags().StringVar(&flags.LogLevel, "log-level", "", "log level: debug, info, warn, error")
}

func runOrganize(cmd *cobra.Command, flags *OrganizeFlags, source, dest string, plan bool) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()
	// One buffered reader serves every question of the run
	in := bufio.NewReader(cmd.InOrStdin())

	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Override config with command-line flags
	if err := applyFlagsToConfig(cmd, cfg, flags); err != nil {
		return err
	}

	dryRun := flags.DryRun
	if cfg.Organize.Transfer == "" {
		if plan {
			cfg.Organize.Transfer = models.TransferMove
		} else {
			ok, err := confirmDryRunMove(ctx, in, errOut, Version)
			if err != nil {
				return err
			}
			if !ok {
				return errors.New("no action selected")
			}
			cfg.Organize.Transfer = models.TransferMove
			dryRun = true
		}
	}

	sourceAbs, destAbs, err := validatePaths(source, dest)
	if err != nil {
		return err
	}

	operation, err := createRunOperation(cfg, sourceAbs, destAbs, dryRun)
	if err != nil {
		return fmt.Errorf("failed to create run operation: %w", err)
	}

	// Create logger
	logPath := cfg.Logging.File
	if logPath == "" && cfg.Logging.Enabled {
		logPath = filepath.Join(destAbs, defaultLogName)
	}
	logger, err := createLogger(cfg, logPath, errOut)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Close()

	// Output goes to stdout unless quiet
	var writer io.Writer = out
	if cfg.Output.Quiet {
		writer = io.Discard
	}
	progress := cfg.Output.Progress && operation.DuplicateMode != models.ModeInteractive
	formatter, err := output.New(cfg.Output.Format, progress)
	if err != nil {
		return err
	}

	if err := formatter.Start(writer, operation); err != nil {
		return err
	}

	sinks := organize.MultiSink{organize.NewLogSink(logger), formatter}
	ignore := logFiles(logPath)

	// Journal is optional; a failure to open it does not block the run
	var jr *journal.Journal
	if cfg.Journal.Enabled {
		journalPath, err := filepath.Abs(cfg.JournalPath())
		if err == nil {
			jr, err = journal.Open(journalPath)
		}
		if err != nil {
			logger.Warn(ctx, "Journal unavailable", logging.Fields{"error": err.Error()})
			formatter.Error(fmt.Errorf("journal disabled: %w", err))
		} else {
			defer jr.Close()
			if err := jr.StartRun(ctx, operation); err != nil {
				return err
			}
			sinks = append(sinks, jr)
			ignore = append(ignore, jr.Path(), jr.Path()+"-wal", jr.Path()+"-shm")
		}
	}

	var prompter *TerminalPrompter
	if operation.DuplicateMode == models.ModeInteractive {
		prompter = NewTerminalPrompter(in, errOut)
	}

	backend := storage.NewLocal()
	defer backend.Close()

	engineOpts := organize.Options{
		Logger:    logger,
		Sink:      sinks,
		Extractor: metadata.NewExifExtractor(backend),
		OnProgress: func(p organize.Progress) {
			formatter.Progress(p)
		},
		IgnorePaths: ignore,
		Version:     Version,
	}
	if prompter != nil {
		engineOpts.Prompter = prompter
	}

	// Create organize engine
	engine, err := organize.NewEngine(backend, operation, engineOpts)
	if err != nil {
		return err
	}

	// Run organize
	report, runErr := engine.Run(ctx)
	if report == nil {
		formatter.Error(runErr)
		return fmt.Errorf("organize failed: %w", runErr)
	}
	if runErr != nil && report.Status == models.StatusFailed {
		formatter.Error(runErr)
	}
	if err := formatter.Complete(report); err != nil {
		return err
	}

	if jr != nil {
		// The run context may be cancelled already; the end of the run is still recorded
		if err := jr.FinishRun(context.WithoutCancel(ctx), report); err != nil {
			logger.Error(ctx, "Failed to finish journal run", err, nil)
		}
	}

	// Write plan report if requested
	// Show report if:
	// - --plan-report is specified (write to file)
	// - --plan-format is explicitly set (write to stdout)
	if plan {
		if flags.PlanReport != "" {
			if err := output.WritePlanReportFile(report, flags.PlanReport, flags.PlanFormat); err != nil {
				return fmt.Errorf("failed to write plan report: %w", err)
			}
		} else if cmd.Flags().Changed("plan-format") {
			if err := output.WritePlanReport(out, report, flags.PlanFormat); err != nil {
				return fmt.Errorf("failed to write plan report: %w", err)
			}
		}
	}

	if report.Status == models.StatusFailed && runErr != nil {
		return fmt.Errorf("organize failed: %w", runErr)
	}
	if report.Status != models.StatusSuccess {
		return &ExitError{Status: report.Status}
	}
	return nil
}

// createLogger creates the file logger, plus a console logger in verbose mode
func createLogger(cfg *config.Config, logPath string, console io.Writer) (logging.Logger, error) {
	var loggers []logging.Logger

	if logPath != "" {
		// Parse log format
		var format logging.Format
		switch cfg.Logging.Format {
		case "json":
			format = logging.FormatJSON
		default:
			format = logging.FormatText
		}

		// Create file logger
		fileLogger, err := logging.NewFileLogger(logging.FileLoggerConfig{
			Path:       logPath,
			Format:     format,
			Level:      logging.ParseLevel(cfg.Logging.Level),
			MaxSize:    logMaxSize,
			MaxBackups: logMaxBackups,
		})
		if err != nil {
			return nil, err
		}
		loggers = append(loggers, fileLogger)
	}

	if globalFlags.Verbose {
		loggers = append(loggers, logging.NewConsoleLogger(console, logging.DebugLevel))
	}

	switch len(loggers) {
	case 0:
		return logging.NewNullLogger(), nil
	case 1:
		return loggers[0], nil
	default:
		return logging.NewMultiLogger(loggers...), nil
	}
}

// logFiles lists the log file and its rotated backups
func logFiles(logPath string) []string {
	if logPath == "" {
		return nil
	}
	abs, err := filepath.Abs(logPath)
	if err != nil {
		abs = logPath
	}
	paths := []string{abs}
	for i := 1; i <= logMaxBackups+1; i++ {
		paths = append(paths, fmt.Sprintf("%s.%d", abs, i))
	}
	return paths
}
