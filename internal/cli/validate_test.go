package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdejongh/orgphoto/pkg/config"
	"github.com/sdejongh/orgphoto/pkg/models"
)

func TestValidatePaths(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src")
	require.NoError(t, os.MkdirAll(src, 0755))

	t.Run("creates missing destination", func(t *testing.T) {
		dst := filepath.Join(root, "library", "photos")
		gotSrc, gotDst, err := validatePaths(src, dst)
		require.NoError(t, err)
		assert.Equal(t, src, gotSrc)
		assert.Equal(t, dst, gotDst)
		assert.DirExists(t, dst)
	})

	t.Run("missing source", func(t *testing.T) {
		_, _, err := validatePaths(filepath.Join(root, "nope"), filepath.Join(root, "out"))
		assert.ErrorContains(t, err, "does not exist")
	})

	t.Run("source is a file", func(t *testing.T) {
		file := filepath.Join(root, "file.jpg")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
		_, _, err := validatePaths(file, filepath.Join(root, "out"))
		assert.ErrorContains(t, err, "not a directory")
	})

	t.Run("destination is a file", func(t *testing.T) {
		file := filepath.Join(root, "dest.jpg")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
		_, _, err := validatePaths(src, file)
		assert.ErrorContains(t, err, "not a directory")
	})

	t.Run("same path", func(t *testing.T) {
		_, _, err := validatePaths(src, src+string(filepath.Separator)+".")
		assert.ErrorContains(t, err, "cannot be the same")
	})

	t.Run("destination inside source", func(t *testing.T) {
		_, _, err := validatePaths(src, filepath.Join(src, "sorted"))
		assert.ErrorContains(t, err, "destination cannot be inside source")
	})

	t.Run("source inside destination", func(t *testing.T) {
		_, _, err := validatePaths(src, root)
		assert.ErrorContains(t, err, "source cannot be inside destination")
	})

	t.Run("sibling with shared prefix", func(t *testing.T) {
		_, _, err := validatePaths(src, src+"-sorted")
		assert.NoError(t, err)
	})
}

// parseOrganizeFlags builds an organize command and parses args into flags
func parseOrganizeFlags(t *testing.T, args ...string) (*cobra.Command, *OrganizeFlags) {
	t.Helper()
	globalFlags = GlobalFlags{}
	flags := &OrganizeFlags{}
	cmd := &cobra.Command{Use: "organize"}
	addOrganizeFlags(cmd, flags)
	cmd.Flags().BoolVarP(&flags.Move, "move", "m", false, "")
	cmd.Flags().BoolVarP(&flags.Copy, "copy", "c", false, "")
	require.NoError(t, cmd.ParseFlags(args))
	return cmd, flags
}

func TestApplyFlagsToConfig(t *testing.T) {
	t.Run("defaults are kept without flags", func(t *testing.T) {
		cmd, flags := parseOrganizeFlags(t)
		cfg := config.Default()
		require.NoError(t, applyFlagsToConfig(cmd, cfg, flags))

		assert.Equal(t, models.TransferMode(""), cfg.Organize.Transfer)
		assert.Equal(t, models.ModeSkip, cfg.Organize.DuplicateHandling)
		assert.Equal(t, 5, cfg.Performance.MaxWorkers)
		assert.True(t, cfg.Organize.ComprehensiveCheck)
	})

	t.Run("flags override config", func(t *testing.T) {
		cmd, flags := parseOrganizeFlags(t,
			"--copy", "-D", "redirect", "-R", "dups", "-K", "copy", "-x", "NO",
			"-j", "jpg,.PNG", "-N", "-p", "3", "-b", "2MiB", "--extra-keyword", "variant",
			"-o", "json", "--no-progress", "--journal", "--log-level", "warn",
		)
		cfg := config.Default()
		require.NoError(t, applyFlagsToConfig(cmd, cfg, flags))

		assert.Equal(t, models.TransferCopy, cfg.Organize.Transfer)
		assert.Equal(t, models.ModeRedirect, cfg.Organize.DuplicateHandling)
		assert.Equal(t, "dups", cfg.Organize.RedirectDir)
		assert.Equal(t, "copy", cfg.Organize.DuplicateKeyword)
		assert.Equal(t, models.ExifFallback, cfg.Organize.ExifOnly)
		assert.Equal(t, []string{"jpg", ".PNG"}, cfg.Organize.Extensions)
		assert.Equal(t, []string{"variant"}, cfg.Organize.ExtraKeywords)
		assert.False(t, cfg.Organize.ComprehensiveCheck)
		assert.Equal(t, 3, cfg.Performance.MaxWorkers)
		assert.Equal(t, "2MiB", cfg.Performance.BandwidthLimit)
		assert.Equal(t, "json", cfg.Output.Format)
		assert.False(t, cfg.Output.Progress)
		assert.True(t, cfg.Journal.Enabled)
		assert.Equal(t, "warn", cfg.Logging.Level)
	})

	t.Run("verbose raises log level", func(t *testing.T) {
		cmd, flags := parseOrganizeFlags(t)
		globalFlags.Verbose = true
		defer func() { globalFlags = GlobalFlags{} }()

		cfg := config.Default()
		require.NoError(t, applyFlagsToConfig(cmd, cfg, flags))
		assert.Equal(t, "debug", cfg.Logging.Level)
	})

	t.Run("quiet disables progress", func(t *testing.T) {
		cmd, flags := parseOrganizeFlags(t)
		globalFlags.Quiet = true
		defer func() { globalFlags = GlobalFlags{} }()

		cfg := config.Default()
		require.NoError(t, applyFlagsToConfig(cmd, cfg, flags))
		assert.True(t, cfg.Output.Quiet)
		assert.False(t, cfg.Output.Progress)
	})

	t.Run("invalid mode", func(t *testing.T) {
		cmd, flags := parseOrganizeFlags(t, "-D", "merge")
		assert.Error(t, applyFlagsToConfig(cmd, config.Default(), flags))
	})

	t.Run("invalid bandwidth", func(t *testing.T) {
		cmd, flags := parseOrganizeFlags(t, "--bandwidth", "fast")
		assert.Error(t, applyFlagsToConfig(cmd, config.Default(), flags))
	})
}

func TestCreateRunOperation(t *testing.T) {
	cfg := config.Default()
	cfg.Organize.Transfer = models.TransferMove
	cfg.Organize.Extensions = []string{"JPG", ".png"}
	cfg.Performance.BandwidthLimit = "1M"

	op, err := createRunOperation(cfg, "/src", "/dest", true)
	require.NoError(t, err)

	assert.NotEmpty(t, op.ID)
	assert.Equal(t, []string{".jpg", ".png"}, op.Extensions)
	assert.Equal(t, int64(1_000_000), op.BandwidthLimit)
	assert.True(t, op.DryRun)
	assert.Equal(t, models.TransferMove, op.Transfer)

	other, err := createRunOperation(cfg, "/src", "/dest", true)
	require.NoError(t, err)
	assert.NotEqual(t, op.ID, other.ID)
}
