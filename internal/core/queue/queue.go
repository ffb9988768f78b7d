// Package queue hands out fingerprint jobs to workers, each job exactly once.
package queue

import (
	"github.com/Ning0612/dirdedup/internal/domain"
)

// Job is one file identity to fingerprint. Aliases holds every listed name
// sharing that identity (hardlinks); Aliases[0] is the one that gets read.
type Job struct {
	Aliases []domain.FileEntry
}

// Entry returns the file to read for this job
func (j Job) Entry() domain.FileEntry {
	return j.Aliases[0]
}

// Queue is a pre-filled, closed channel of jobs. Receiving from a closed
// channel never blocks, so workers observe exhaustion instead of waiting.
type Queue struct {
	jobs chan Job
}

// New builds a queue holding every job exactly once
func New(jobs []Job) *Queue {
	ch := make(chan Job, len(jobs))
	for _, j := range jobs {
		ch <- j
	}
	close(ch)
	return &Queue{jobs: ch}
}

// Pop removes and returns the next job. ok is false once the queue is drained.
// Safe for concurrent use.
func (q *Queue) Pop() (job Job, ok bool) {
	job, ok = <-q.jobs
	return job, ok
}

// Len returns the number of jobs not yet popped
func (q *Queue) Len() int {
	return len(q.jobs)
}

// FromEntries builds one job per file identity. Entries with an unknown
// identity are never merged with each other.
func FromEntries(entries []domain.FileEntry) []Job {
	jobs := make([]Job, 0, len(entries))
	byID := make(map[domain.FileID]int)

	for _, e := range entries {
		if !e.ID.IsZero() {
			if idx, ok := byID[e.ID]; ok {
				jobs[idx].Aliases = append(jobs[idx].Aliases, e)
				continue
			}
			byID[e.ID] = len(jobs)
		}
		jobs = append(jobs, Job{Aliases: []domain.FileEntry{e}})
	}

	return jobs
}
