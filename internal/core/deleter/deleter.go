// Package deleter removes the duplicates chosen by resolution.
package deleter

import (
	"context"
	"errors"
	"sort"

	"github.com/sourcegraph/conc/pool"

	"github.com/Ning0612/dirdedup/internal/adapter"
	"github.com/Ning0612/dirdedup/internal/domain"
	"github.com/Ning0612/dirdedup/internal/logger"
)

// Report summarizes one deletion pass
type Report struct {
	// Deleted counts removed duplicates, or would-be removals in dry-run
	Deleted int

	Failed         int
	BytesReclaimed int64

	// Errors holds one DeleteError per failed candidate, sorted by path
	Errors []domain.FileError

	DryRun bool
}

// Deleter removes every duplicate of every group, one goroutine per group
// and at most Workers groups at once
type Deleter struct {
	Workers int
	Remover adapter.Remover
	DryRun  bool
	Log     logger.Logger
}

// New creates a deleter
func New(workers int, remover adapter.Remover, dryRun bool) *Deleter {
	if workers < 1 {
		workers = 1
	}
	return &Deleter{
		Workers: workers,
		Remover: remover,
		DryRun:  dryRun,
		Log:     logger.Get(),
	}
}

// groupOutcome is the result of processing one group
type groupOutcome struct {
	deleted int
	bytes   int64
	errors  []domain.FileError
}

// Execute deletes the duplicates of groups. Survivors are never touched.
// Per-file failures are collected in the report; the returned error is
// non-nil only if ctx was cancelled, in which case untouched files remain.
func (d *Deleter) Execute(ctx context.Context, groups []domain.DuplicateGroup) (Report, error) {
	report := Report{DryRun: d.DryRun}
	if len(groups) == 0 {
		return report, nil
	}
	if d.Log == nil {
		d.Log = logger.Get()
	}

	workers := d.Workers
	if workers < 1 {
		workers = 1
	}

	p := pool.NewWithResults[groupOutcome]().WithMaxGoroutines(workers)
	for _, g := range groups {
		g := g
		p.Go(func() groupOutcome {
			return d.executeGroup(ctx, g)
		})
	}

	for _, out := range p.Wait() {
		report.Deleted += out.deleted
		report.BytesReclaimed += out.bytes
		report.Errors = append(report.Errors, out.errors...)
	}
	report.Failed = len(report.Errors)
	sort.Slice(report.Errors, func(i, j int) bool {
		return report.Errors[i].Path < report.Errors[j].Path
	})

	return report, ctx.Err()
}

func (d *Deleter) executeGroup(ctx context.Context, g domain.DuplicateGroup) groupOutcome {
	var out groupOutcome
	if ctx.Err() != nil {
		return out
	}

	log := d.Log.With("survivor", g.Survivor.Path, "digest", g.Key.Sum.Short())

	exists, err := d.Remover.Exists(ctx, g.Survivor.Path)
	if err == nil && !exists {
		err = domain.ErrSurvivorMissing
	}
	if err != nil {
		// Without a verified survivor no copy of this content may be removed
		log.Warn("keeping duplicates, survivor check failed", "error", err)
		for _, dup := range g.Duplicates {
			out.errors = append(out.errors, *domain.NewDeleteError(dup.Path, survivorError(err)))
		}
		return out
	}

	for _, dup := range g.Duplicates {
		if ctx.Err() != nil {
			return out
		}

		if d.DryRun {
			log.Info("would delete duplicate", "path", dup.Path, "size", dup.Size)
			out.deleted++
			out.bytes += reclaimable(g.Survivor, dup)
			continue
		}

		if err := d.Remover.Remove(ctx, dup.Path); err != nil {
			log.Debug("failed to delete duplicate", "path", dup.Path, "error", err)
			out.errors = append(out.errors, *domain.NewDeleteError(dup.Path, err))
			continue
		}

		log.Debug("deleted duplicate", "path", dup.Path, "size", dup.Size)
		out.deleted++
		out.bytes += reclaimable(g.Survivor, dup)
	}

	return out
}

// reclaimable is the space freed by removing dup. A hardlink alias of the
// survivor shares its data blocks, so unlinking it frees nothing.
func reclaimable(survivor, dup domain.FileEntry) int64 {
	if !dup.ID.IsZero() && dup.ID == survivor.ID {
		return 0
	}
	return dup.Size
}

// survivorError makes sure every survivor check failure matches ErrSurvivorMissing
func survivorError(err error) error {
	if errors.Is(err, domain.ErrSurvivorMissing) {
		return err
	}
	return errors.Join(domain.ErrSurvivorMissing, err)
}
