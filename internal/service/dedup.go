package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Ning0612/dirdedup/internal/adapter"
	"github.com/Ning0612/dirdedup/internal/adapter/local"
	"github.com/Ning0612/dirdedup/internal/config"
	"github.com/Ning0612/dirdedup/internal/core/deleter"
	"github.com/Ning0612/dirdedup/internal/core/fingerprint"
	"github.com/Ning0612/dirdedup/internal/core/planner"
	"github.com/Ning0612/dirdedup/internal/core/pool"
	"github.com/Ning0612/dirdedup/internal/core/queue"
	"github.com/Ning0612/dirdedup/internal/core/resolve"
	"github.com/Ning0612/dirdedup/internal/core/table"
	"github.com/Ning0612/dirdedup/internal/domain"
	"github.com/Ning0612/dirdedup/internal/lock"
	"github.com/Ning0612/dirdedup/internal/logger"
	"github.com/Ning0612/dirdedup/internal/progress"
)

// DedupService runs the duplicate removal pipeline for one directory
type DedupService struct {
	config   *config.Config
	adapter  adapter.Adapter
	reporter progress.Reporter
	planner  planner.Planner
	resolver resolve.Resolver
	hasher   *fingerprint.Hasher
}

// NewDedupService creates a new dedup service.
// cfg must have been normalized; config.Load does that.
func NewDedupService(cfg *config.Config) (*DedupService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	algo, err := fingerprint.ParseAlgorithm(cfg.Algorithm)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}
	hasher, err := fingerprint.New(fingerprint.Options{Algorithm: algo, ChunkSize: cfg.ChunkSize})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}

	policy, err := resolve.ParsePolicy(cfg.Keep)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}

	return &DedupService{
		config: cfg,
		planner: planner.NewDefaultPlanner(planner.Options{
			Exclude: cfg.Exclude,
			MinSize: cfg.MinSize,
		}),
		resolver: resolve.NewDefaultResolver(policy),
		hasher:   hasher,
	}, nil
}

// SetAdapter replaces the local directory adapter (tests use afero-backed ones)
func (s *DedupService) SetAdapter(a adapter.Adapter) {
	s.adapter = a
}

// SetProgressReporter sets the progress reporter for fingerprinting
func (s *DedupService) SetProgressReporter(reporter progress.Reporter) {
	s.reporter = reporter
}

// getReporter returns the current progress reporter or a null reporter
func (s *DedupService) getReporter() progress.Reporter {
	if s.reporter != nil {
		return s.reporter
	}
	return progress.NullReporter{}
}

// getAdapter returns the injected adapter or opens the configured directory
func (s *DedupService) getAdapter(log logger.Logger) (adapter.Adapter, error) {
	if s.adapter != nil {
		return s.adapter, nil
	}
	a, err := local.New(s.config.Directory, local.WithLogger(log))
	if err != nil {
		return nil, err
	}
	s.adapter = a
	return a, nil
}

// Run lists the directory, fingerprints every file that shares its size with
// another, keeps one file per group of identical content and deletes the rest.
//
// Per-file failures are recorded in the result and never fail the run.
// The error is non-nil for a scan failure (domain.ErrScan), lock contention
// (*lock.LockError) or cancellation; after cancellation nothing is deleted.
func (s *DedupService) Run(ctx context.Context) (*domain.RunResult, error) {
	result := &domain.RunResult{
		RunID:     uuid.NewString(),
		DryRun:    s.config.DryRun,
		StartTime: time.Now(),
	}
	defer func() {
		result.Duration = time.Since(result.StartTime)
	}()

	log := logger.ForRun(result.RunID)

	a, err := s.getAdapter(log)
	if err != nil {
		log.Error("cannot open directory", "directory", s.config.Directory, "error", err)
		return result, err
	}
	result.Directory = a.Root()
	log = log.With(logger.KeyDirectory, result.Directory)

	if s.config.Lock.Enabled {
		release, err := s.acquireLock(result.RunID, result.Directory, log)
		if err != nil {
			return result, err
		}
		defer release()
	}

	log.Info("starting dedup run",
		"cores", s.config.Cores,
		"algorithm", s.hasher.Algorithm(),
		"keep", s.config.Keep,
		"dry_run", s.config.DryRun)

	entries, err := a.List(ctx)
	if err != nil {
		log.Error("failed to list directory", "error", err)
		return result, err
	}

	plan := s.planner.Plan(entries)
	result.Scanned = plan.Scanned
	result.Candidates = plan.Candidates
	log.Info("scanned directory",
		"files", plan.Scanned,
		"candidates", plan.Candidates,
		"unique_sizes", plan.Unique,
		"excluded", plan.Excluded,
		"bytes_to_read", progress.FormatBytes(plan.Bytes))

	reporter := s.getReporter()
	reporter.SetTotal(len(plan.Jobs), plan.Bytes)

	tbl := table.New(s.config.Shards)
	workers := pool.New(s.config.Cores, s.hasher, a)
	workers.Reporter = reporter
	workers.Log = log

	stats, err := workers.Run(ctx, queue.New(plan.Jobs), tbl)
	result.Hashed = stats.Hashed
	result.ReadErrors = stats.ReadErrors
	if err != nil {
		log.Warn("run cancelled before deletion", "hashed", stats.Hashed, "error", err)
		return result, err
	}

	resolution := s.resolver.Resolve(tbl.Freeze())
	result.Groups = len(resolution.Groups)
	result.GroupsDetail = resolution.Groups
	log.Info("resolved duplicates",
		"groups", result.Groups,
		"candidates", len(resolution.Candidates),
		"read_errors", len(stats.ReadErrors))

	for _, g := range resolution.Groups {
		log.Debug("duplicate group",
			"digest", g.Key.Sum.Short(),
			"size", g.Key.Size,
			"survivor", g.Survivor.Path,
			"duplicates", len(g.Duplicates))
	}

	del := deleter.New(s.config.Cores, a, s.config.DryRun)
	del.Log = log
	report, err := del.Execute(ctx, resolution.Groups)
	result.Deleted = report.Deleted
	result.Failed = report.Failed
	result.BytesReclaimed = report.BytesReclaimed
	result.DeleteErrors = report.Errors
	if err != nil {
		log.Warn("run cancelled during deletion", "deleted", report.Deleted, "error", err)
		return result, err
	}

	log.Info("dedup run completed",
		"groups", result.Groups,
		"deleted", result.Deleted,
		"failed", result.Failed,
		"remaining", result.Remaining(),
		"reclaimed", progress.FormatBytes(result.BytesReclaimed),
		"duration", time.Since(result.StartTime).Round(time.Millisecond))

	return result, nil
}

// acquireLock takes the per-directory run lock and returns its release func
func (s *DedupService) acquireLock(runID, directory string, log logger.Logger) (func(), error) {
	dirLock, err := lock.NewDirLock(s.config.Lock.Dir, directory)
	if err != nil {
		return nil, fmt.Errorf("failed to create run lock: %w", err)
	}

	if err := dirLock.Acquire(runID); err != nil {
		var le *lock.LockError
		if errors.As(err, &le) {
			log.Error("directory is locked by another run", "error", err)
		}
		return nil, err
	}
	log.Debug("acquired run lock", "path", dirLock.Path())

	return func() {
		if err := dirLock.Release(); err != nil {
			log.Warn("failed to release run lock", "path", dirLock.Path(), "error", err)
		}
	}, nil
}
