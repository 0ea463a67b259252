package rowcache

// Close releases the cache: in-flight fetches are canceled, every resident
// block is dropped, and no further loads start. Subsequent GetRow calls
// return nil, mutating calls are no-ops, and listener callbacks stop; the
// closed flag is re-checked before each delivery, so a notification racing
// Close runs at most one callback that was already past its check. Safe to
// call multiple times. Row handles already handed out stay readable.
func (c *Cache[T]) Close() error {
	c.mu.Lock()
	if c.closed.Load() {
		c.mu.Unlock()
		return nil
	}
	c.closed.Store(true)
	c.cancel()
	for _, number := range c.sortedBlockNumbersLocked() {
		c.evictBlockLocked(c.blocks[number])
	}
	c.mu.Unlock()
	return nil
}
