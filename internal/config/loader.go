package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Ning0612/dirdedup/internal/core/table"
	"github.com/Ning0612/dirdedup/internal/domain"
)

// EnvPrefix prefixes environment overrides, e.g. DIRDEDUP_CORES
const EnvPrefix = "DIRDEDUP"

// ConfigName is the config file searched for, without extension
const ConfigName = "dirdedup"

// flagKeys maps CLI flag names to config keys
var flagKeys = map[string]string{
	"input-directory": "directory",
	"cores":           "cores",
	"algorithm":       "algorithm",
	"keep":            "keep",
	"dry-run":         "dry_run",
	"chunk-size":      "chunk_size",
	"exclude":         "exclude",
	"min-size":        "min_size",
	"log-level":       "log.level",
	"log-format":      "log.format",
	"log-file":        "log.file.path",
}

// DefaultConfigPaths returns the default paths to search for config files
func DefaultConfigPaths() []string {
	paths := []string{"."}

	// Add user config directory
	if configDir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(configDir, "dirdedup"))
	}

	// Add home directory
	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, ".dirdedup"))
	}

	return paths
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("directory", ".")
	v.SetDefault("cores", "")
	v.SetDefault("algorithm", "blake2b")
	v.SetDefault("keep", "first")
	v.SetDefault("dry_run", false)
	v.SetDefault("chunk_size", 256*1024)
	v.SetDefault("shards", table.DefaultShards)
	v.SetDefault("exclude", []string{})
	v.SetDefault("min_size", 0)
	v.SetDefault("lock.enabled", true)
	v.SetDefault("lock.dir", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file.path", "")
	v.SetDefault("log.file.max_size_mb", 10)
	v.SetDefault("log.file.max_age_days", 30)
	v.SetDefault("log.file.max_backups", 5)
	v.SetDefault("log.file.compress", false)
}

// newViper returns a viper instance with defaults and environment overrides
func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlags binds every known CLI flag present in flags to its config key.
// Flags only override the file and environment when set on the command line.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("binding flag %s: %w", name, err)
		}
	}
	return nil
}

// Load builds the run configuration from defaults, an optional config file,
// DIRDEDUP_* environment variables and flags, in increasing priority.
// If path is empty the default locations are searched and a missing file is
// not an error; an explicit path that does not exist is ErrConfigNotFound.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := newViper()

	if flags != nil {
		if err := BindFlags(v, flags); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
		}
	}

	if path != "" {
		// Use specific file
		v.SetConfigFile(path)
	} else {
		// Search default paths
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
		for _, p := range DefaultConfigPaths() {
			v.AddConfigPath(p)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound):
			if path != "" {
				return nil, domain.ErrConfigNotFound
			}
		case errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("%w: %s", domain.ErrConfigNotFound, path)
		default:
			return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
		}
	}

	return decode(v)
}

// LoadFromString parses configuration from a YAML string, with defaults applied
func LoadFromString(yamlContent string) (*Config, error) {
	v := newViper()
	v.SetConfigType("yaml")

	if err := v.ReadConfig(strings.NewReader(yamlContent)); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}

	cfg.Normalize()

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
