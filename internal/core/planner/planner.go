// Package planner decides which listed files are worth fingerprinting.
package planner

import (
	"path/filepath"
	"sort"

	"github.com/Ning0612/dirdedup/internal/core/queue"
	"github.com/Ning0612/dirdedup/internal/domain"
)

// Options filters the listing before any file is read
type Options struct {
	// Exclude holds filepath.Match patterns tested against file names
	Exclude []string

	// MinSize skips files smaller than this many bytes. 0 keeps empty files.
	MinSize int64
}

// Plan is the fingerprint work for one run
type Plan struct {
	// Jobs are ordered largest file first so long reads start early
	Jobs []queue.Job

	// Scanned is the number of listed entries
	Scanned int

	// Candidates is the number of names sharing their size with another name
	Candidates int

	// Excluded is the number of entries dropped by pattern or MinSize
	Excluded int

	// Unique is the number of entries whose size no other entry has
	Unique int

	// Bytes is the total number of bytes the jobs will read
	Bytes int64
}

// Planner builds a Plan from a directory listing
type Planner interface {
	Plan(entries []domain.FileEntry) *Plan
}

// DefaultPlanner applies Options and the size pre-filter
type DefaultPlanner struct {
	Options Options
}

// NewDefaultPlanner creates a new planner
func NewDefaultPlanner(opts Options) *DefaultPlanner {
	return &DefaultPlanner{Options: opts}
}

// Plan drops excluded entries and every entry with a unique size: two files
// of different sizes can never be duplicates, so those are never read.
func (p *DefaultPlanner) Plan(entries []domain.FileEntry) *Plan {
	plan := &Plan{Scanned: len(entries)}

	bySize := make(map[int64][]domain.FileEntry)
	for _, e := range entries {
		if e.Size < p.Options.MinSize || shouldIgnore(e.Name, p.Options.Exclude) {
			plan.Excluded++
			continue
		}
		bySize[e.Size] = append(bySize[e.Size], e)
	}

	var candidates []domain.FileEntry
	for _, group := range bySize {
		if len(group) < 2 {
			plan.Unique++
			continue
		}
		candidates = append(candidates, group...)
	}
	plan.Candidates = len(candidates)

	// Alias merging keeps the first name per identity, so order by path first
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Path < candidates[j].Path
	})

	plan.Jobs = queue.FromEntries(candidates)
	sortJobs(plan.Jobs)

	for _, job := range plan.Jobs {
		plan.Bytes += job.Entry().Size
	}

	return plan
}

// sortJobs orders jobs by size descending, then by path for determinism
func sortJobs(jobs []queue.Job) {
	sort.SliceStable(jobs, func(i, j int) bool {
		a, b := jobs[i].Entry(), jobs[j].Entry()
		if a.Size != b.Size {
			return a.Size > b.Size
		}
		return a.Path < b.Path
	})
}

// shouldIgnore checks if a file name matches any exclude pattern
func shouldIgnore(name string, patterns []string) bool {
	for _, pattern := range patterns {
		matched, err := filepath.Match(pattern, name)
		if err == nil && matched {
			return true
		}
	}
	return false
}

// ValidatePatterns reports the first malformed exclude pattern
func ValidatePatterns(patterns []string) error {
	for _, pattern := range patterns {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return err
		}
	}
	return nil
}
