package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Ning0612/dirdedup/internal/config"
	"github.com/Ning0612/dirdedup/internal/core/fingerprint"
	"github.com/Ning0612/dirdedup/internal/core/resolve"
	"github.com/Ning0612/dirdedup/internal/domain"
	"github.com/Ning0612/dirdedup/internal/logger"
	"github.com/Ning0612/dirdedup/internal/progress"
	"github.com/Ning0612/dirdedup/internal/service"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

// progressInterval is how many fingerprinted files pass between progress lines
const progressInterval = 1000

type rootOptions struct {
	configPath string
	verbose    bool
	noLock     bool
}

// execute runs the CLI and returns the process exit code
func execute(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd(stdout)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	return 0
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "dirdedup [directory]",
		Short: "Remove duplicate files from a directory",
		Long: `dirdedup fingerprints every regular file directly inside one directory,
keeps one file of each group with identical content and deletes the rest.

On success it prints one line to stdout: "Entries: N", where N is the number
of duplicate groups found. Logs go to stderr.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				if err := cmd.Flags().Set("input-directory", args[0]); err != nil {
					return err
				}
			}
			return runDedup(cmd.Context(), cmd, opts, stdout)
		},
	}

	flags := cmd.Flags()
	flags.StringP("cores", "c", "", "number of fingerprint workers (default: number of CPUs)")
	flags.StringP("input-directory", "i", ".", "directory to deduplicate (non-recursive)")
	flags.String("algorithm", string(fingerprint.DefaultAlgorithm), "fingerprint algorithm: blake2b, sha256 or highwayhash")
	flags.String("keep", string(resolve.KeepFirst), "which copy survives: first or last path in byte order")
	flags.Bool("dry-run", false, "report duplicates without deleting")
	flags.Int("chunk-size", fingerprint.DefaultOptions().ChunkSize, "read buffer size in bytes")
	flags.StringSlice("exclude", nil, "file name patterns to leave alone (repeatable)")
	flags.Int64("min-size", 0, "ignore files smaller than this many bytes")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-format", "text", "log format: text or json")
	flags.String("log-file", "", "also write logs to this file, rotated")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "same as --log-level debug")
	flags.BoolVar(&opts.noLock, "no-lock", false, "do not take the per-directory run lock")
	flags.StringVar(&opts.configPath, "config", "", "config file (default: dirdedup.yaml in ., the user config dir or ~/.dirdedup)")

	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "dirdedup %s (%s/%s)\n", version, runtime.GOOS, runtime.GOARCH)
		},
	}
}

func runDedup(ctx context.Context, cmd *cobra.Command, opts *rootOptions, stdout io.Writer) error {
	cfg, err := config.Load(opts.configPath, cmd.Flags())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if opts.verbose {
		cfg.Log.Level = "debug"
	}
	if opts.noLock {
		cfg.Lock.Enabled = false
	}

	logCfg := cfg.LoggerConfig()
	logCfg.Outputs[0].Writer = cmd.ErrOrStderr()
	if err := logger.Init(logCfg); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer logger.Shutdown()

	log := logger.Get()
	for _, w := range cfg.Warnings {
		log.Warn(w)
	}

	svc, err := service.NewDedupService(cfg)
	if err != nil {
		return err
	}
	svc.SetProgressReporter(progress.NewCallbackReporter(progress.Every(progressInterval, func(u progress.Update) {
		log.Info("fingerprinting",
			"progress", progress.FormatProgress(int64(u.Processed()), int64(u.FilesTotal), 20),
			"files", u.Processed(),
			"total", u.FilesTotal,
			"failed", u.FilesFailed,
			"speed", progress.FormatSpeed(u.BytesPerSecond))
	})))

	result, err := svc.Run(ctx)
	if err != nil {
		return err
	}

	logSummary(log, result)
	fmt.Fprintf(stdout, "Entries: %d\n", result.Groups)
	return nil
}

func logSummary(log logger.Logger, result *domain.RunResult) {
	for _, fe := range result.ReadErrors {
		log.Warn("not fingerprinted", "path", fe.Path, "error", fe.Err)
	}
	for _, fe := range result.DeleteErrors {
		log.Warn("not deleted", "path", fe.Path, "error", fe.Err)
	}

	verb := "deleted"
	if result.DryRun {
		verb = "would_delete"
	}
	log.Info("summary",
		"scanned", result.Scanned,
		"entries", result.Groups,
		verb, result.Deleted,
		"failed", result.Failed,
		"unreadable", len(result.ReadErrors),
		"remaining_files", result.Remaining(),
		"reclaimed", progress.FormatBytes(result.BytesReclaimed),
		"duration", result.Duration)
}
