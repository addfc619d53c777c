package peerstats

import (
	"sync"
	"sync/atomic"

	"firestige.xyz/peeracct/internal/core"
)

const (
	shardBits  = 6
	shardCount = 1 << shardBits

	// DefaultCapacity is the per-table row limit.
	DefaultCapacity = 65535
)

type shard[K comparable] struct {
	mu   sync.RWMutex
	rows map[K]*Stats
}

// Table is a fixed-capacity concurrent map from peer key to row. Keys are
// spread over 64 shards, each behind its own RWMutex; counter updates on
// a returned row need no lock at all.
type Table[K comparable] struct {
	shards [shardCount]shard[K]
	hash   func(K) uint64
	limit  int64
	count  atomic.Int64
}

// NewTable returns an empty table holding at most capacity rows.
// A capacity <= 0 means DefaultCapacity.
func NewTable[K comparable](capacity int, hash func(K) uint64) *Table[K] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	t := &Table[K]{hash: hash, limit: int64(capacity)}
	for i := range t.shards {
		t.shards[i].rows = make(map[K]*Stats)
	}
	return t
}

func (t *Table[K]) shardFor(k K) *shard[K] {
	// Fibonacci hashing; the top bits pick the shard.
	idx := (t.hash(k) * 0x9E3779B97F4A7C15) >> (64 - shardBits)
	return &t.shards[idx]
}

// Lookup returns the row for k, or nil.
func (t *Table[K]) Lookup(k K) *Stats {
	s := t.shardFor(k)
	s.mu.RLock()
	row := s.rows[k]
	s.mu.RUnlock()
	return row
}

// GetOrInsert returns the row for k, inserting a zero row if absent.
// Concurrent callers for the same key all get the same row. When the table
// is full and k is new it returns core.ErrCapacityExceeded.
func (t *Table[K]) GetOrInsert(k K) (*Stats, error) {
	s := t.shardFor(k)

	s.mu.RLock()
	row := s.rows[k]
	s.mu.RUnlock()
	if row != nil {
		return row, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Lost the race: another caller inserted k between the two locks.
	if row = s.rows[k]; row != nil {
		return row, nil
	}

	if t.count.Add(1) > t.limit {
		t.count.Add(-1)
		return nil, core.ErrCapacityExceeded
	}
	row = &Stats{}
	s.rows[k] = row
	return row, nil
}

// Len returns the number of rows.
func (t *Table[K]) Len() int {
	return int(t.count.Load())
}

// Cap returns the row limit.
func (t *Table[K]) Cap() int {
	return int(t.limit)
}

// Range calls fn for every row until fn returns false. Rows inserted while
// Range runs may or may not be visited. fn runs without any shard lock held.
func (t *Table[K]) Range(fn func(k K, row *Stats) bool) {
	type entry struct {
		k   K
		row *Stats
	}
	var batch []entry

	for i := range t.shards {
		s := &t.shards[i]
		batch = batch[:0]

		s.mu.RLock()
		for k, row := range s.rows {
			batch = append(batch, entry{k, row})
		}
		s.mu.RUnlock()

		for _, e := range batch {
			if !fn(e.k, e.row) {
				return
			}
		}
	}
}

// Delete removes k. Control plane only: an increment racing with Delete
// lands on the detached row and is lost.
func (t *Table[K]) Delete(k K) bool {
	s := t.shardFor(k)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rows[k]; !ok {
		return false
	}
	delete(s.rows, k)
	t.count.Add(-1)
	return true
}

// Clear removes every row and returns how many were removed.
func (t *Table[K]) Clear() int {
	removed := 0
	for i := range t.shards {
		s := &t.shards[i]
		s.mu.Lock()
		n := len(s.rows)
		s.rows = make(map[K]*Stats)
		t.count.Add(int64(-n))
		s.mu.Unlock()
		removed += n
	}
	return removed
}
