package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/Ning0612/dirdedup/internal/core/fingerprint"
	"github.com/Ning0612/dirdedup/internal/core/planner"
	"github.com/Ning0612/dirdedup/internal/core/resolve"
	"github.com/Ning0612/dirdedup/internal/domain"
	"github.com/Ning0612/dirdedup/internal/logger"
)

// Config represents the complete configuration for one dirdedup run
type Config struct {
	// Directory is the flat directory to deduplicate
	Directory string `mapstructure:"directory"`

	// CoresRaw is the configured worker count as given; see Cores
	CoresRaw string `mapstructure:"cores"`

	// Cores is the validated worker count, always >= 1 after Normalize
	Cores int `mapstructure:"-"`

	Algorithm string `mapstructure:"algorithm"`
	Keep      string `mapstructure:"keep"`
	DryRun    bool   `mapstructure:"dry_run"`

	// ChunkSize is the fingerprint read buffer in bytes
	ChunkSize int `mapstructure:"chunk_size"`

	// Shards is the fingerprint table shard count
	Shards int `mapstructure:"shards"`

	// Exclude holds file name patterns never considered for deletion
	Exclude []string `mapstructure:"exclude"`

	MinSize int64 `mapstructure:"min_size"`

	Lock LockConfig `mapstructure:"lock"`
	Log  LogConfig  `mapstructure:"log"`

	// Warnings collects values Normalize replaced with defaults
	Warnings []string `mapstructure:"-"`
}

// LockConfig configures the per-directory run lock
type LockConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Dir holds lock files; empty means the user cache directory
	Dir string `mapstructure:"dir"`
}

// LogConfig configures logging
type LogConfig struct {
	Level  string        `mapstructure:"level"`
	Format string        `mapstructure:"format"`
	File   LogFileConfig `mapstructure:"file"`
}

// LogFileConfig configures the optional rotating log file
type LogFileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// Normalize replaces missing or unusable values with defaults.
// A bad worker count is not an error: it falls back to runtime.NumCPU.
func (c *Config) Normalize() {
	c.Cores = runtime.NumCPU()
	if raw := strings.TrimSpace(c.CoresRaw); raw != "" {
		n, err := strconv.Atoi(raw)
		switch {
		case err != nil:
			c.warnf("invalid cores %q, using %d", raw, c.Cores)
		case n <= 0:
			if n < 0 {
				c.warnf("invalid cores %d, using %d", n, c.Cores)
			}
		default:
			c.Cores = n
		}
	}

	if c.Directory == "" {
		c.Directory = "."
	}
	c.Directory = ExpandPath(c.Directory)

	if c.Algorithm == "" {
		c.Algorithm = string(fingerprint.DefaultAlgorithm)
	}
	if c.Keep == "" {
		c.Keep = string(resolve.KeepFirst)
	}
	c.Algorithm = strings.ToLower(c.Algorithm)
	c.Keep = strings.ToLower(c.Keep)

	if c.Lock.Dir != "" {
		c.Lock.Dir = ExpandPath(c.Lock.Dir)
	}
	if c.Log.File.Path != "" {
		c.Log.File.Path = ExpandPath(c.Log.File.Path)
	}
}

func (c *Config) warnf(format string, args ...any) {
	c.Warnings = append(c.Warnings, fmt.Sprintf(format, args...))
}

// Validate checks if the configuration is complete and consistent
func (c *Config) Validate() error {
	if c.Cores < 1 {
		return fmt.Errorf("%w: cores must be at least 1, got %d", domain.ErrConfigInvalid, c.Cores)
	}
	if _, err := fingerprint.ParseAlgorithm(c.Algorithm); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}
	if !resolve.Policy(c.Keep).IsValid() {
		return fmt.Errorf("%w: invalid keep policy: %s (want %s or %s)",
			domain.ErrConfigInvalid, c.Keep, resolve.KeepFirst, resolve.KeepLast)
	}
	if c.ChunkSize < 0 {
		return fmt.Errorf("%w: chunk_size cannot be negative", domain.ErrConfigInvalid)
	}
	if c.Shards < 0 {
		return fmt.Errorf("%w: shards cannot be negative", domain.ErrConfigInvalid)
	}
	if c.MinSize < 0 {
		return fmt.Errorf("%w: min_size cannot be negative", domain.ErrConfigInvalid)
	}
	if err := planner.ValidatePatterns(c.Exclude); err != nil {
		return fmt.Errorf("%w: exclude: %v", domain.ErrConfigInvalid, err)
	}
	return nil
}

// LoggerConfig converts the log section into a logger configuration
func (c *Config) LoggerConfig() logger.Config {
	cfg := logger.Config{
		Level:   logger.ParseLevel(c.Log.Level),
		Format:  logger.ParseFormat(c.Log.Format),
		Outputs: []logger.OutputConfig{{Type: logger.OutputStderr}},
	}
	if c.Log.File.Path != "" {
		cfg.Outputs = append(cfg.Outputs, logger.OutputConfig{Type: logger.OutputFile})
		cfg.File = logger.FileConfig{
			Enabled:    true,
			Path:       c.Log.File.Path,
			MaxSizeMB:  c.Log.File.MaxSizeMB,
			MaxAgeDays: c.Log.File.MaxAgeDays,
			MaxBackups: c.Log.File.MaxBackups,
			Compress:   c.Log.File.Compress,
		}
		// A rotated log file collects many runs; tag lines with the process
		cfg.Attrs = []any{"pid", os.Getpid()}
	}
	return cfg
}

// ExpandPath expands ~ and environment variables in a path
func ExpandPath(path string) string {
	// Expand ~ to home directory
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			if len(path) > 1 && (path[1] == '/' || path[1] == filepath.Separator) {
				path = filepath.Join(home, path[2:])
			} else if len(path) == 1 {
				path = home
			}
		}
	}
	// Expand environment variables
	path = os.ExpandEnv(path)
	return filepath.Clean(path)
}
