package rowcache

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
)

// Cache is a windowed, block-paginated row cache. Rows are addressed by
// absolute index, grouped into fixed-size blocks that load on demand from a
// Datasource, with an optional LRU bound on how many blocks stay resident.
//
// All methods are safe for concurrent use. Returned *Row handles stay valid
// after their block is evicted; they simply stop being what GetRow returns
// for that index.
type Cache[T any] struct {
	src          Datasource[T]
	pageSize     int
	maxBlocks    int
	overflowSize int
	logger       *Logger
	listeners    []Listener[T]

	// ctx is the cache lifetime; Close cancels it to stop in-flight fetches.
	ctx    context.Context
	cancel context.CancelFunc

	loader *loader

	active atomic.Bool

	// closed flips once, under mu; notify paths re-check it lock-free.
	closed atomic.Bool

	mu              sync.Mutex
	blocks          map[int]*block[T]
	accessSeq       uint64
	nextRowID       uint64
	virtualRowCount int
	maxRowFound     bool

	hits           atomic.Int64
	misses         atomic.Int64
	blocksCreated  atomic.Int64
	blocksEvicted  atomic.Int64
	loadsStarted   atomic.Int64
	loadsSucceeded atomic.Int64
	loadsFailed    atomic.Int64
	rowsInserted   atomic.Int64
}

// New creates a Cache backed by src.
func New[T any](src Datasource[T], opts ...Option[T]) (*Cache[T], error) {
	if src == nil {
		return nil, ErrNilDatasource
	}

	o := applyOptions(opts)
	if o.pageSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPageSize, o.pageSize)
	}
	if o.maxBlocks < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMaxBlocks, o.maxBlocks)
	}
	if o.initialRowCount < 0 {
		return nil, fmt.Errorf("%w: initial row count %d", ErrInvalidRowCount, o.initialRowCount)
	}
	if o.overflowSize < 0 {
		return nil, fmt.Errorf("%w: overflow size %d", ErrInvalidRowCount, o.overflowSize)
	}
	if o.maxConcurrentLoads <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidConcurrency, o.maxConcurrentLoads)
	}

	ctx, cancel := context.WithCancel(context.Background())

	c := &Cache[T]{
		src:             src,
		pageSize:        o.pageSize,
		maxBlocks:       o.maxBlocks,
		overflowSize:    o.overflowSize,
		logger:          o.logger,
		listeners:       o.listeners,
		ctx:             ctx,
		cancel:          cancel,
		loader:          newLoader(o.maxConcurrentLoads, o.loadRatePerSec),
		blocks:          make(map[int]*block[T]),
		virtualRowCount: o.initialRowCount,
	}
	c.active.Store(true)

	return c, nil
}

// GetRow returns the row identity at an absolute index, creating the owning
// block if absent and scheduling a load when the block needs one. The block's
// access stamp is refreshed, which is what keeps it out of the LRU victim
// slot. Returns nil for negative indexes and on a closed cache.
//
// The returned row may be blank until its block's fetch lands; register a
// Listener to hear about the change.
func (c *Cache[T]) GetRow(index int) *Row[T] {
	c.mu.Lock()
	if c.closed.Load() {
		c.mu.Unlock()
		return nil
	}
	r := c.rowAtLocked(index, true)
	c.checkLoadLocked()
	c.mu.Unlock()
	return r
}

// rowAtLocked resolves an absolute index to its row. With create=false an
// absent block means nil; the shifting algorithm relies on that to probe for
// source rows without growing the cache.
func (c *Cache[T]) rowAtLocked(index int, create bool) *Row[T] {
	if index < 0 {
		return nil
	}

	number := index / c.pageSize
	b, ok := c.blocks[number]
	if !ok {
		if !create {
			return nil
		}
		c.misses.Add(1)
		b = c.createBlockLocked(number)
	} else if create {
		c.hits.Add(1)
	}

	c.accessSeq++
	b.lastAccessed = c.accessSeq

	return b.rowAt(index)
}

func (c *Cache[T]) newStubRow(index int) *Row[T] {
	c.nextRowID++
	return newRow[T](c.nextRowID, index)
}

func (c *Cache[T]) createBlockLocked(number int) *block[T] {
	b := newBlock(number, c.pageSize, c.newStubRow)
	c.blocks[number] = b
	c.blocksCreated.Add(1)
	c.logger.Debug("block created", "block", number, "start_row", b.startRow())

	if c.maxBlocks > 0 && len(c.blocks) > c.maxBlocks {
		c.evictLRULocked(b)
	}

	return b
}

// evictLRULocked removes the block with the oldest access stamp, never the
// just-created one. Exactly one block goes per call; a block mid-load is
// evicted like any other and its completion settles the accounting later.
func (c *Cache[T]) evictLRULocked(keep *block[T]) {
	var victim *block[T]
	for _, number := range c.sortedBlockNumbersLocked() {
		b := c.blocks[number]
		if b == keep {
			continue
		}
		if victim == nil || b.lastAccessed < victim.lastAccessed {
			victim = b
		}
	}
	if victim != nil {
		c.evictBlockLocked(victim)
	}
}

func (c *Cache[T]) evictBlockLocked(b *block[T]) {
	delete(c.blocks, b.number)
	if b.state == LoadNotStarted {
		// Nothing will ever complete this block; release Warm waiters.
		close(b.settled)
	}
	c.blocksEvicted.Add(1)
	c.logger.LogEvict(b.number, b.state)
}

func (c *Cache[T]) sortedBlockNumbersLocked() []int {
	numbers := make([]int, 0, len(c.blocks))
	for number := range c.blocks {
		numbers = append(numbers, number)
	}
	sort.Ints(numbers)
	return numbers
}

// Refresh marks every resident block dirty and re-checks the load queue.
// Loaded blocks reload, failed blocks retry, and a block mid-fetch keeps its
// dirty mark so it reloads once the current fetch settles.
func (c *Cache[T]) Refresh() {
	c.mu.Lock()
	if c.closed.Load() {
		c.mu.Unlock()
		return
	}
	for _, b := range c.blocks {
		b.dirty = true
	}
	c.checkLoadLocked()
	c.mu.Unlock()
}

// Purge evicts every resident block and notifies listeners. Safe to call
// repeatedly; each call emits one ModelUpdated. Row handles already given
// out stay readable but are no longer served by GetRow.
func (c *Cache[T]) Purge() {
	c.mu.Lock()
	if c.closed.Load() {
		c.mu.Unlock()
		return
	}
	for _, number := range c.sortedBlockNumbersLocked() {
		c.evictBlockLocked(c.blocks[number])
	}
	c.mu.Unlock()

	c.notifyModelUpdated()
}

// SetActive gates ModelUpdated notifications. A hidden or detached view
// sets the cache inactive so background load completions stop triggering
// re-renders; RowsInserted is not gated.
func (c *Cache[T]) SetActive(active bool) {
	c.active.Store(active)
}

// SetRowCount lets the consumer assert a known total row count, for example
// from a COUNT(*) done out of band. With maxFound true the estimate stops
// growing and insertions start extending the count exactly. Negative counts
// are ignored.
func (c *Cache[T]) SetRowCount(count int, maxFound bool) {
	if count < 0 {
		return
	}
	c.mu.Lock()
	if c.closed.Load() {
		c.mu.Unlock()
		return
	}
	c.virtualRowCount = count
	c.maxRowFound = maxFound
	c.mu.Unlock()

	c.notifyModelUpdated()
}

// VirtualRowCount returns the current row-count estimate: the number of rows
// the presentation layer should offer. It grows as full blocks load until
// the dataset end is discovered.
func (c *Cache[T]) VirtualRowCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.virtualRowCount
}

// MaxRowFound reports whether the true end of the dataset has been observed,
// either via a short page from the datasource or SetRowCount.
func (c *Cache[T]) MaxRowFound() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxRowFound
}

// PageSize returns the configured rows-per-block.
func (c *Cache[T]) PageSize() int { return c.pageSize }

func (c *Cache[T]) notifyModelUpdated() {
	if !c.active.Load() {
		return
	}
	for _, l := range c.listeners {
		// Close can land mid-notification, from another goroutine or from
		// a listener itself; stop before the next callback.
		if c.closed.Load() {
			return
		}
		l.ModelUpdated()
	}
}

func (c *Cache[T]) notifyRowsInserted(rows []*Row[T]) {
	for _, l := range c.listeners {
		if c.closed.Load() {
			return
		}
		l.RowsInserted(rows)
	}
}
