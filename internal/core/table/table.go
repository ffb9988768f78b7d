package table

import (
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"github.com/Ning0612/dirdedup/internal/domain"
)

// DefaultShards is the shard count used when none is configured
const DefaultShards = 64

// Bucket is every entry that produced one Key
type Bucket struct {
	Key     domain.Key
	Entries []domain.FileEntry
}

type shard struct {
	mu      sync.Mutex
	buckets map[domain.Key][]domain.FileEntry
}

// Table accumulates Key -> entries from concurrent workers.
// Inserts for the same Key serialize on one shard lock; inserts landing on
// different shards never contend.
type Table struct {
	shards []shard
	mask   uint64
	frozen atomic.Bool
}

// New creates a table with n shards, rounded up to a power of two
func New(n int) *Table {
	if n <= 0 {
		n = DefaultShards
	}
	size := 1
	for size < n {
		size <<= 1
	}

	t := &Table{
		shards: make([]shard, size),
		mask:   uint64(size - 1),
	}
	for i := range t.shards {
		t.shards[i].buckets = make(map[domain.Key][]domain.FileEntry)
	}
	return t
}

// Shards returns the number of shards
func (t *Table) Shards() int {
	return len(t.shards)
}

func (t *Table) shardFor(key domain.Key) *shard {
	return &t.shards[xxhash.Sum64(key.Sum[:])&t.mask]
}

// Insert appends entry to key's bucket. Panics after Freeze.
func (t *Table) Insert(key domain.Key, entry domain.FileEntry) {
	if t.frozen.Load() {
		panic("table: insert after freeze")
	}

	s := t.shardFor(key)
	s.mu.Lock()
	s.buckets[key] = append(s.buckets[key], entry)
	s.mu.Unlock()
}

// Freeze makes the table read-only and returns every bucket.
// Callers must only freeze after all inserting goroutines have joined.
func (t *Table) Freeze() []Bucket {
	t.frozen.Store(true)

	var out []Bucket
	for i := range t.shards {
		s := &t.shards[i]
		s.mu.Lock()
		for key, entries := range s.buckets {
			out = append(out, Bucket{Key: key, Entries: entries})
		}
		s.mu.Unlock()
	}
	return out
}

// Frozen reports whether Freeze has been called
func (t *Table) Frozen() bool {
	return t.frozen.Load()
}

// Len returns the number of distinct keys
func (t *Table) Len() int {
	total := 0
	for i := range t.shards {
		s := &t.shards[i]
		s.mu.Lock()
		total += len(s.buckets)
		s.mu.Unlock()
	}
	return total
}
