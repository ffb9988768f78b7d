package pool

import (
	"context"
	"errors"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/Ning0612/dirdedup/internal/adapter"
	"github.com/Ning0612/dirdedup/internal/core/fingerprint"
	"github.com/Ning0612/dirdedup/internal/core/queue"
	"github.com/Ning0612/dirdedup/internal/core/table"
	"github.com/Ning0612/dirdedup/internal/domain"
	"github.com/Ning0612/dirdedup/internal/logger"
	"github.com/Ning0612/dirdedup/internal/progress"
)

// DefaultWorkers returns the worker count used when none is configured
func DefaultWorkers() int {
	return runtime.NumCPU()
}

// Stats summarizes one pool run
type Stats struct {
	Workers int

	// Hashed counts file names that received a fingerprint (hardlink aliases included)
	Hashed int

	// Bytes counts bytes actually read
	Bytes int64

	// ReadErrors holds one error per excluded file name, sorted by path
	ReadErrors []domain.FileError

	// Canceled reports that the context ended the run before the queue drained
	Canceled bool
}

// Pool fingerprints queued files with a fixed number of workers
type Pool struct {
	Workers  int
	Hasher   *fingerprint.Hasher
	Opener   adapter.Opener
	Reporter progress.Reporter
	Log      logger.Logger
}

// New creates a pool; workers < 1 means DefaultWorkers
func New(workers int, hasher *fingerprint.Hasher, opener adapter.Opener) *Pool {
	if workers < 1 {
		workers = DefaultWorkers()
	}
	return &Pool{
		Workers:  workers,
		Hasher:   hasher,
		Opener:   opener,
		Reporter: progress.NullReporter{},
		Log:      logger.Get(),
	}
}

// workerResult is owned by exactly one worker until Run joins them
type workerResult struct {
	hashed int
	bytes  int64
	errors []domain.FileError
}

// Run drains q into t and returns once every worker has exited.
// Read failures are recorded and never stop the pool. The returned error is
// non-nil only when ctx was cancelled; Stats still describe the work done.
func (p *Pool) Run(ctx context.Context, q *queue.Queue, t *table.Table) (Stats, error) {
	workers := p.Workers
	if workers < 1 {
		workers = 1
	}
	log := p.Log
	if log == nil {
		log = logger.Get()
	}
	reporter := p.Reporter
	if reporter == nil {
		reporter = progress.NullReporter{}
	}

	results := make([]workerResult, workers)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		w := &worker{
			id:       i,
			hasher:   p.Hasher,
			opener:   p.Opener,
			reporter: reporter,
			log:      log.With("worker", i),
			result:   &results[i],
		}
		g.Go(func() error {
			return w.run(gctx, q, t)
		})
	}

	// Barrier: nothing reads t until every worker has returned
	err := g.Wait()

	stats := Stats{Workers: workers, Canceled: err != nil}
	for _, r := range results {
		stats.Hashed += r.hashed
		stats.Bytes += r.bytes
		stats.ReadErrors = append(stats.ReadErrors, r.errors...)
	}
	sort.Slice(stats.ReadErrors, func(i, j int) bool {
		return stats.ReadErrors[i].Path < stats.ReadErrors[j].Path
	})

	return stats, err
}

type worker struct {
	id       int
	hasher   *fingerprint.Hasher
	opener   adapter.Opener
	reporter progress.Reporter
	log      logger.Logger
	result   *workerResult
}

func (w *worker) run(ctx context.Context, q *queue.Queue, t *table.Table) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		job, ok := q.Pop()
		if !ok {
			return nil
		}
		entry := job.Entry()

		fp, err := w.hasher.SumFile(ctx, w.opener, entry)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.fail(job, err)
			continue
		}

		key := domain.Key{Size: entry.Size, Sum: fp}
		for _, alias := range job.Aliases {
			t.Insert(key, alias)
		}

		w.result.hashed += len(job.Aliases)
		w.result.bytes += entry.Size
		w.reporter.FileDone(entry.Path, entry.Size)
		w.log.Debug("fingerprinted", "path", entry.Path, "size", entry.Size,
			"aliases", len(job.Aliases), "digest", fp.Short())
	}
}

// fail excludes every alias of job from duplicate consideration
func (w *worker) fail(job queue.Job, err error) {
	var fe *domain.FileError
	if !errors.As(err, &fe) {
		fe = domain.NewReadError(job.Entry().Path, err)
	}

	for _, alias := range job.Aliases {
		rec := *fe
		rec.Path = alias.Path
		w.result.errors = append(w.result.errors, rec)
	}

	w.reporter.FileFailed(fe.Path, err)
	// The run summary warns once per excluded file
	w.log.Debug("skipping unreadable file", "path", fe.Path, "error", fe.Err)
}
