package rowcache

import (
	"iter"

	"github.com/RoaringBitmap/roaring/v2"
)

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits           int64 // row reads served by an already-resident block
	Misses         int64 // row reads that had to create the block
	BlocksCreated  int64
	BlocksEvicted  int64 // removals of any kind: LRU, purge, close
	LoadsStarted   int64
	LoadsSucceeded int64
	LoadsFailed    int64
	RowsInserted   int64 // rows materialized by InsertItemsAtIndex
}

// Stats returns a snapshot of the cache counters.
func (c *Cache[T]) Stats() Stats {
	return Stats{
		Hits:           c.hits.Load(),
		Misses:         c.misses.Load(),
		BlocksCreated:  c.blocksCreated.Load(),
		BlocksEvicted:  c.blocksEvicted.Load(),
		LoadsStarted:   c.loadsStarted.Load(),
		LoadsSucceeded: c.loadsSucceeded.Load(),
		LoadsFailed:    c.loadsFailed.Load(),
		RowsInserted:   c.rowsInserted.Load(),
	}
}

// BlockState is an observable snapshot of one resident block.
type BlockState struct {
	Number       int
	StartRow     int
	EndRow       int
	State        LoadState
	Dirty        bool
	LastAccessed uint64
}

// BlockStates returns a snapshot of every resident block, keyed by block
// number. Meant for diagnostics and tests; the snapshot is decoupled from
// further cache activity.
func (c *Cache[T]) BlockStates() map[int]BlockState {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[int]BlockState, len(c.blocks))
	for number, b := range c.blocks {
		out[number] = BlockState{
			Number:       number,
			StartRow:     b.startRow(),
			EndRow:       b.endRow(),
			State:        b.state,
			Dirty:        b.dirty,
			LastAccessed: b.lastAccessed,
		}
	}
	return out
}

// Coverage returns a bitmap of the absolute row indexes currently holding
// data. Useful for prefetch planning and for visualizing how sparse the
// resident window is.
func (c *Cache[T]) Coverage() *roaring.Bitmap {
	c.mu.Lock()
	defer c.mu.Unlock()

	bm := roaring.New()
	for _, b := range c.blocks {
		for _, r := range b.rows {
			if r.HasData() {
				bm.Add(uint32(r.Index()))
			}
		}
	}
	return bm
}

// All returns an iterator over resident rows that hold data, in ascending
// index order. The snapshot is taken up front, so mutating the cache while
// iterating is safe and does not affect the sequence.
func (c *Cache[T]) All() iter.Seq2[int, *Row[T]] {
	type pair struct {
		index int
		row   *Row[T]
	}

	c.mu.Lock()
	var pairs []pair
	for _, number := range c.sortedBlockNumbersLocked() {
		for _, r := range c.blocks[number].rows {
			if r.HasData() {
				pairs = append(pairs, pair{r.Index(), r})
			}
		}
	}
	c.mu.Unlock()

	return func(yield func(int, *Row[T]) bool) {
		for _, p := range pairs {
			if !yield(p.index, p.row) {
				return
			}
		}
	}
}
