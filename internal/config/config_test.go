package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/spf13/pflag"

	"github.com/Ning0612/dirdedup/internal/domain"
	"github.com/Ning0612/dirdedup/internal/logger"
	"github.com/Ning0612/dirdedup/internal/testutil"
)

func TestLoadFromString_Defaults(t *testing.T) {
	cfg, err := LoadFromString("")
	if err != nil {
		t.Fatalf("LoadFromString failed: %v", err)
	}

	if cfg.Cores != runtime.NumCPU() {
		t.Errorf("Cores = %d, want %d", cfg.Cores, runtime.NumCPU())
	}
	if cfg.Algorithm != "blake2b" {
		t.Errorf("Algorithm = %s, want blake2b", cfg.Algorithm)
	}
	if cfg.Keep != "first" {
		t.Errorf("Keep = %s, want first", cfg.Keep)
	}
	if cfg.Directory != "." {
		t.Errorf("Directory = %s, want .", cfg.Directory)
	}
	if !cfg.Lock.Enabled {
		t.Error("lock should be enabled by default")
	}
	if cfg.DryRun {
		t.Error("dry run should be off by default")
	}
	if len(cfg.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", cfg.Warnings)
	}
}

func TestLoadFromString_Values(t *testing.T) {
	yaml := `
directory: /srv/photos
cores: 8
algorithm: SHA256
keep: last
dry_run: true
shards: 16
exclude:
  - "*.tmp"
min_size: 1
lock:
  enabled: false
log:
  level: debug
  format: json
  file:
    path: /var/log/dirdedup.log
    max_backups: 2
`
	cfg, err := LoadFromString(yaml)
	if err != nil {
		t.Fatalf("LoadFromString failed: %v", err)
	}

	if cfg.Directory != "/srv/photos" || cfg.Cores != 8 || cfg.Algorithm != "sha256" || cfg.Keep != "last" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if !cfg.DryRun || cfg.Shards != 16 || cfg.MinSize != 1 || cfg.Lock.Enabled {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if len(cfg.Exclude) != 1 || cfg.Exclude[0] != "*.tmp" {
		t.Errorf("Exclude = %v", cfg.Exclude)
	}

	lc := cfg.LoggerConfig()
	if lc.Level != logger.LevelDebug || lc.Format != logger.FormatJSON {
		t.Errorf("logger config = %+v", lc)
	}
	if !lc.File.Enabled || lc.File.MaxBackups != 2 || len(lc.Outputs) != 2 {
		t.Errorf("file logging not configured: %+v", lc)
	}
	if len(lc.Attrs) != 2 || lc.Attrs[0] != "pid" || lc.Attrs[1] != os.Getpid() {
		t.Errorf("file logging should tag records with the pid, got %v", lc.Attrs)
	}
}

func TestNormalize_Cores(t *testing.T) {
	tests := []struct {
		raw      string
		want     int
		warnings int
	}{
		{"", runtime.NumCPU(), 0},
		{"0", runtime.NumCPU(), 0},
		{"-2", runtime.NumCPU(), 1},
		{"many", runtime.NumCPU(), 1},
		{"1", 1, 0},
		{" 3 ", 3, 0},
	}

	for _, tt := range tests {
		cfg := &Config{CoresRaw: tt.raw}
		cfg.Normalize()
		if cfg.Cores != tt.want {
			t.Errorf("cores %q: got %d, want %d", tt.raw, cfg.Cores, tt.want)
		}
		if len(cfg.Warnings) != tt.warnings {
			t.Errorf("cores %q: got %d warnings, want %d", tt.raw, len(cfg.Warnings), tt.warnings)
		}
	}
}

func TestValidate_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"algorithm", "algorithm: md5"},
		{"keep", "keep: newest"},
		{"chunk size", "chunk_size: -1"},
		{"shards", "shards: -4"},
		{"min size", "min_size: -1"},
		{"exclude", "exclude: ['[bad']"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromString(tt.yaml)
			if !errors.Is(err, domain.ErrConfigInvalid) {
				t.Errorf("expected ErrConfigInvalid, got %v", err)
			}
		})
	}
}

func TestLoadFromString_Malformed(t *testing.T) {
	_, err := LoadFromString("cores: [1, 2\n")
	if !errors.Is(err, domain.ErrConfigInvalid) {
		t.Errorf("expected ErrConfigInvalid, got %v", err)
	}
}

func TestLoad_ExplicitFile(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	path := testutil.CreateTestFile(t, dir, "dirdedup.yaml", []byte("cores: 2\nkeep: last\n"))

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Cores != 2 || cfg.Keep != "last" {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	_, err := Load(filepath.Join(dir, "missing.yaml"), nil)
	if !errors.Is(err, domain.ErrConfigNotFound) {
		t.Errorf("expected ErrConfigNotFound, got %v", err)
	}
}

func TestLoad_EnvAndFlags(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()
	path := testutil.CreateTestFile(t, dir, "dirdedup.yaml", []byte("cores: 2\nalgorithm: sha256\n"))

	t.Setenv("DIRDEDUP_CORES", "3")
	t.Setenv("DIRDEDUP_LOCK_ENABLED", "false")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("cores", "", "")
	flags.String("algorithm", "", "")
	flags.String("keep", "", "")
	if err := flags.Parse([]string{"--keep", "last"}); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	cfg, err := Load(path, flags)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// env beats file
	if cfg.Cores != 3 {
		t.Errorf("Cores = %d, want 3 from environment", cfg.Cores)
	}
	// file beats defaults
	if cfg.Algorithm != "sha256" {
		t.Errorf("Algorithm = %s, want sha256 from file", cfg.Algorithm)
	}
	// flag beats everything
	if cfg.Keep != "last" {
		t.Errorf("Keep = %s, want last from flag", cfg.Keep)
	}
	if cfg.Lock.Enabled {
		t.Error("lock should be disabled from environment")
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	t.Setenv("DIRDEDUP_TEST_DIR", "/tmp/x")

	tests := []struct {
		in   string
		want string
	}{
		{"~", home},
		{"~/data", filepath.Join(home, "data")},
		{"$DIRDEDUP_TEST_DIR/y", filepath.Clean("/tmp/x/y")},
		{"./a/../b", "b"},
	}

	for _, tt := range tests {
		if got := ExpandPath(tt.in); got != tt.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
