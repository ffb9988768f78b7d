package domain

import (
	"time"
)

// DuplicateGroup is a set of files sharing one Key.
// Survivor is kept; Duplicates are deletion candidates in tie-break order.
type DuplicateGroup struct {
	Key        Key
	Survivor   FileEntry
	Duplicates []FileEntry
}

// Count returns the number of files in the group, survivor included
func (g DuplicateGroup) Count() int {
	return len(g.Duplicates) + 1
}

// ReclaimableBytes returns the bytes freed by deleting every duplicate
func (g DuplicateGroup) ReclaimableBytes() int64 {
	return g.Key.Size * int64(len(g.Duplicates))
}

// RunResult summarizes one dedup run
type RunResult struct {
	// RunID correlates logs and lock info for one run
	RunID string

	// Directory is the absolute target directory
	Directory string

	// Scanned is the number of regular files listed
	Scanned int

	// Candidates is the number of files that shared their size with another file
	Candidates int

	// Hashed is the number of files fingerprinted successfully
	Hashed int

	// Groups is the number of duplicate groups found (the "Entries" count)
	Groups int

	// Deleted is the number of duplicates removed (or that would be, in dry-run)
	Deleted int

	// Failed is the number of deletion failures
	Failed int

	// BytesReclaimed is the total size of deleted duplicates
	BytesReclaimed int64

	// DryRun reports whether deletions were skipped
	DryRun bool

	ReadErrors   []FileError
	DeleteErrors []FileError

	// GroupsDetail lists every group ordered by survivor path
	GroupsDetail []DuplicateGroup

	StartTime time.Time
	Duration  time.Duration
}

// Remaining returns the number of files left in the directory after the run
func (r *RunResult) Remaining() int {
	return r.Scanned - r.Deleted
}

// HasFailures reports whether any per-file error was recorded
func (r *RunResult) HasFailures() bool {
	return len(r.ReadErrors) > 0 || len(r.DeleteErrors) > 0
}
