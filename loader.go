package rowcache

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// loader bounds how many block fetches run at once and optionally paces
// fetch starts.
type loader struct {
	sem     *semaphore.Weighted
	limiter *rate.Limiter // nil if unpaced
}

func newLoader(maxConcurrent int, ratePerSec float64) *loader {
	l := &loader{
		sem: semaphore.NewWeighted(int64(maxConcurrent)),
	}
	if ratePerSec > 0 {
		burst := int(ratePerSec)
		if burst < 1 {
			burst = 1
		}
		l.limiter = rate.NewLimiter(rate.Limit(ratePerSec), burst)
	}
	return l
}

func (l *loader) tryAcquire() bool { return l.sem.TryAcquire(1) }

func (l *loader) release() { l.sem.Release(1) }

// pace waits until the rate limiter allows another fetch start.
func (l *loader) pace(ctx context.Context) error {
	if l.limiter == nil {
		return nil
	}
	return l.limiter.Wait(ctx)
}

// checkLoadLocked starts fetches for eligible blocks while load slots are
// free. The most recently accessed eligible block goes first, so the block
// the user is looking at beats stale backlog; ties fall to the lowest block
// number. Runs after every row access, insert, refresh and load completion,
// which is what guarantees no eligible block waits forever.
func (c *Cache[T]) checkLoadLocked() {
	if c.closed.Load() {
		return
	}
	for {
		var next *block[T]
		for _, number := range c.sortedBlockNumbersLocked() {
			b := c.blocks[number]
			if !b.loadEligible() {
				continue
			}
			if next == nil || b.lastAccessed > next.lastAccessed {
				next = b
			}
		}
		if next == nil {
			return
		}
		if !c.loader.tryAcquire() {
			return
		}
		c.startLoadLocked(next)
	}
}

func (c *Cache[T]) startLoadLocked(b *block[T]) {
	if b.state == LoadComplete || b.state == LoadFailed {
		// The previous attempt settled and closed the channel; give the
		// reload its own one for waiters to block on.
		b.settled = make(chan struct{})
	}
	b.state = LoadInFlight
	b.dirty = false
	c.loadsStarted.Add(1)

	startRow, endRow := b.startRow(), b.endRow()
	c.logger.Debug("block load started", "block", b.number, "start_row", startRow, "end_row", endRow)

	go c.fetchBlock(b, startRow, endRow)
}

func (c *Cache[T]) fetchBlock(b *block[T], startRow, endRow int) {
	var items []T
	err := c.loader.pace(c.ctx)
	if err == nil {
		items, err = c.src.Fetch(c.ctx, startRow, endRow)
	}
	if err != nil {
		err = &ErrFetch{Block: b.number, StartRow: startRow, EndRow: endRow, cause: err}
	}
	c.loadFinished(b, items, err)
}

// loadFinished settles one fetch. The load slot is always released and the
// settled channel always closed, whether or not the block is still resident;
// eviction mid-flight must never strand accounting or waiters. Cache-level
// integration (row-count discovery, the ModelUpdated notification) happens
// only when the completing block is still the one resident for its number.
func (c *Cache[T]) loadFinished(b *block[T], items []T, err error) {
	c.mu.Lock()
	c.loader.release()

	resident := c.blocks[b.number] == b

	if err != nil {
		b.state = LoadFailed
		c.loadsFailed.Add(1)
	} else {
		b.populate(items)
		b.state = LoadComplete
		c.loadsSucceeded.Add(1)
		if resident {
			c.integrateLoadLocked(b, len(items))
		}
	}
	close(b.settled)
	c.checkLoadLocked()
	c.mu.Unlock()

	c.logger.LogLoad(c.ctx, b.number, len(items), err)
	if resident && err == nil {
		c.notifyModelUpdated()
	}
}

// integrateLoadLocked folds a completed load into cache-level state. A short
// page pins the true dataset end at the last returned row and everything
// past it stays blank; a full page grows the row-count estimate past the
// block so scrolling keeps going until the end is found.
func (c *Cache[T]) integrateLoadLocked(b *block[T], fetched int) {
	if fetched > b.pageSize {
		fetched = b.pageSize
	}
	if fetched < b.pageSize {
		c.virtualRowCount = b.startRow() + fetched
		c.maxRowFound = true
		return
	}
	if !c.maxRowFound {
		if grow := b.endRow() + c.overflowSize; grow > c.virtualRowCount {
			c.virtualRowCount = grow
		}
	}
}

// Warm ensures every block covering rows [startRow, endRow) is resident and
// waits until each has settled (loaded or failed) or ctx ends. A range wider
// than the block capacity warms only what fits; blocks evicted before their
// first load are given up on, not waited for.
func (c *Cache[T]) Warm(ctx context.Context, startRow, endRow int) error {
	if startRow < 0 || endRow < startRow {
		return fmt.Errorf("%w: [%d,%d)", ErrInvalidRange, startRow, endRow)
	}
	if startRow == endRow {
		return nil
	}

	c.mu.Lock()
	if c.closed.Load() {
		c.mu.Unlock()
		return ErrClosed
	}
	first, last := startRow/c.pageSize, (endRow-1)/c.pageSize
	targets := make([]*block[T], 0, last-first+1)
	for number := first; number <= last; number++ {
		b, ok := c.blocks[number]
		if !ok {
			b = c.createBlockLocked(number)
		}
		c.accessSeq++
		b.lastAccessed = c.accessSeq
		targets = append(targets, b)
	}
	c.checkLoadLocked()
	c.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, b := range targets {
		g.Go(func() error {
			return c.waitSettled(gctx, b)
		})
	}
	return g.Wait()
}

// waitSettled blocks until the block's current load attempt finishes. A
// block evicted before any load started will never settle, so it is treated
// as done.
func (c *Cache[T]) waitSettled(ctx context.Context, b *block[T]) error {
	for {
		c.mu.Lock()
		state := b.state
		resident := c.blocks[b.number] == b
		ch := b.settled
		c.mu.Unlock()

		if state == LoadComplete || state == LoadFailed {
			return nil
		}
		if state == LoadNotStarted && !resident {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
	}
}
