package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/sdejongh/orgphoto/pkg/models"
)

// Config represents the application configuration
type Config struct {
	Organize    OrganizeConfig    `yaml:"organize" toml:"organize"`
	Performance PerformanceConfig `yaml:"performance" toml:"performance"`
	Output      OutputConfig      `yaml:"output" toml:"output"`
	Logging     LoggingConfig     `yaml:"logging" toml:"logging"`
	Journal     JournalConfig     `yaml:"journal" toml:"journal"`
	Exclude     []string          `yaml:"exclude" toml:"exclude"`
}

// OrganizeConfig holds organize-related settings
type OrganizeConfig struct {
	// Transfer is "move" or "copy"; empty means the CLI asks for a dry-run move
	Transfer           models.TransferMode  `yaml:"transfer" toml:"transfer"`
	DuplicateHandling  models.DuplicateMode `yaml:"duplicate_handling" toml:"duplicate_handling"`
	ComprehensiveCheck bool                 `yaml:"comprehensive_check" toml:"comprehensive_check"`
	RedirectDir        string               `yaml:"redirect_dir" toml:"redirect_dir"`
	DuplicateKeyword   string               `yaml:"duplicate_keyword" toml:"duplicate_keyword"`
	ExifOnly           models.ExifPolicy    `yaml:"exif_only" toml:"exif_only"`
	Extensions         []string             `yaml:"extensions" toml:"extensions"`
	ExtraKeywords      []string             `yaml:"extra_keywords" toml:"extra_keywords"`
}

// PerformanceConfig holds performance-related settings
type PerformanceConfig struct {
	MaxWorkers int `yaml:"max_workers" toml:"max_workers"`
	BufferSize int `yaml:"buffer_size" toml:"buffer_size"`
	// BandwidthLimit caps copy throughput, e.g. "10MiB" per second; empty = unlimited
	BandwidthLimit string `yaml:"bandwidth_limit,omitempty" toml:"bandwidth_limit,omitempty"`
}

// OutputConfig holds output-related settings
type OutputConfig struct {
	Format   string `yaml:"format" toml:"format"`     // "human" or "json"
	Progress bool   `yaml:"progress" toml:"progress"` // Show progress bars
	Quiet    bool   `yaml:"quiet" toml:"quiet"`       // Suppress non-error output
}

// LoggingConfig holds logging-related settings
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Format  string `yaml:"format" toml:"format"` // "json" or "text"
	Level   string `yaml:"level" toml:"level"`   // "debug", "info", "warn", "error"
	File    string `yaml:"file" toml:"file"`     // Log file path (empty = no file log)
}

// JournalConfig holds the run journal settings
type JournalConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Path    string `yaml:"path" toml:"path"` // empty = XDG state directory
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Organize: OrganizeConfig{
			DuplicateHandling:  models.ModeSkip,
			ComprehensiveCheck: true,
			RedirectDir:        "Duplicates",
			DuplicateKeyword:   "duplicate",
			ExifOnly:           models.ExifRequired,
		},
		Performance: PerformanceConfig{
			MaxWorkers: 5,
			BufferSize: 65536,
		},
		Output: OutputConfig{
			Format:   "human",
			Progress: true,
			Quiet:    false,
		},
		Logging: LoggingConfig{
			Enabled: true,
			Format:  "text",
			Level:   "info",
			File:    "",
		},
		Journal: JournalConfig{
			Enabled: false,
		},
		Exclude: []string{
			"**/.DS_Store",
			"**/Thumbs.db",
			"**/*.tmp",
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if _, err := models.ParseDuplicateMode(string(c.Organize.DuplicateHandling)); err != nil {
		return &models.ValidationError{
			Field:   "organize.duplicate_handling",
			Message: "must be one of skip, overwrite, rename, content, interactive, redirect",
		}
	}

	switch c.Organize.Transfer {
	case "", models.TransferMove, models.TransferCopy:
	default:
		return &models.ValidationError{
			Field:   "organize.transfer",
			Message: "must be 'move' or 'copy'",
		}
	}

	switch c.Organize.ExifOnly {
	case models.ExifRequired, models.ExifFallback, models.ExifFilesystemOnly:
	default:
		return &models.ValidationError{
			Field:   "organize.exif_only",
			Message: "must be 'yes', 'no', or 'fs'",
		}
	}

	if c.Organize.DuplicateKeyword == "" || strings.ContainsAny(c.Organize.DuplicateKeyword, `/\`) {
		return &models.ValidationError{
			Field:   "organize.duplicate_keyword",
			Message: "must be a non-empty word without path separators",
		}
	}

	if c.Organize.RedirectDir == "" {
		return &models.ValidationError{
			Field:   "organize.redirect_dir",
			Message: "must not be empty",
		}
	}

	if c.Performance.MaxWorkers < 1 {
		return &models.ValidationError{
			Field:   "performance.max_workers",
			Message: "must be at least 1",
		}
	}

	if c.Performance.BufferSize < 1024 {
		return &models.ValidationError{
			Field:   "performance.buffer_size",
			Message: "must be at least 1024 bytes",
		}
	}

	if _, err := ParseBandwidth(c.Performance.BandwidthLimit); err != nil {
		return &models.ValidationError{
			Field:   "performance.bandwidth_limit",
			Message: err.Error(),
		}
	}

	validFormats := map[string]bool{"human": true, "json": true}
	if !validFormats[c.Output.Format] {
		return &models.ValidationError{
			Field:   "output.format",
			Message: "must be 'human' or 'json'",
		}
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		return &models.ValidationError{
			Field:   "logging.format",
			Message: "must be 'json' or 'text'",
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return &models.ValidationError{
			Field:   "logging.level",
			Message: "must be 'debug', 'info', 'warn', or 'error'",
		}
	}

	return nil
}

// NormalizeExtensions lower-cases extensions and gives each a leading dot
// Entries may be comma separated ("jpg,PNG" -> [".jpg", ".png"])
func NormalizeExtensions(exts []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, entry := range exts {
		for _, e := range strings.Split(entry, ",") {
			e = strings.ToLower(strings.TrimSpace(e))
			if e == "" {
				continue
			}
			if !strings.HasPrefix(e, ".") {
				e = "." + e
			}
			if !seen[e] {
				seen[e] = true
				out = append(out, e)
			}
		}
	}
	return out
}

// ParseBandwidth converts a size per second such as "10M" or "1.5 GiB" to bytes
// An empty string or "0" means unlimited
func ParseBandwidth(s string) (int64, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "/s")
	if s == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid bandwidth %q: %w", s, err)
	}
	if n > math.MaxInt64 {
		return 0, fmt.Errorf("invalid bandwidth %q: too large", s)
	}
	return int64(n), nil
}
