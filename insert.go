package rowcache

// InsertItemsAtIndex splices items into the cached window at an absolute
// index. Resident rows at and above the splice point shift up by len(items),
// keeping their identities, crossing block boundaries without a reload. The
// new items materialize as fresh rows wherever their target slots fall
// inside resident blocks; targets outside the window are simply left for a
// later load to produce.
//
// When a shifted slot's source row lives in a non-resident block, the slot
// becomes blank and its block is marked dirty, so the next load heals it
// from the datasource. The row-count estimate grows by len(items) only once
// the true dataset end is known; before that the estimate is advisory and
// load completions keep adjusting it anyway.
//
// Returns the newly materialized rows in item order. Listeners get one
// ModelUpdated and one RowsInserted per call.
func (c *Cache[T]) InsertItemsAtIndex(index int, items []T) []*Row[T] {
	if index < 0 || len(items) == 0 {
		return nil
	}

	c.mu.Lock()
	if c.closed.Load() {
		c.mu.Unlock()
		return nil
	}

	byItem := make([]*Row[T], len(items))

	// Highest block first: a block's shift may read source rows from lower
	// blocks, which must still hold their pre-shift contents at that point.
	numbers := c.sortedBlockNumbersLocked()
	for i := len(numbers) - 1; i >= 0; i-- {
		b := c.blocks[numbers[i]]
		if b.endRow() <= index {
			// Entirely below the splice point, as is every remaining block.
			break
		}
		c.shiftRowsLocked(b, index, len(items))
		for j := range items {
			target := index + j
			if b.contains(target) {
				r := c.newItemRowLocked(target, items[j])
				b.setRow(target, r)
				byItem[j] = r
			}
		}
	}

	if c.maxRowFound {
		c.virtualRowCount += len(items)
	}

	inserted := make([]*Row[T], 0, len(items))
	for _, r := range byItem {
		if r != nil {
			inserted = append(inserted, r)
		}
	}
	c.rowsInserted.Add(int64(len(inserted)))
	c.logger.LogInsert(index, len(items), len(inserted))
	c.checkLoadLocked()
	c.mu.Unlock()

	c.notifyModelUpdated()
	c.notifyRowsInserted(inserted)

	return inserted
}

// shiftRowsLocked moves this block's rows whose index is at or above
// index+count up by count, walking slots from last to first so a source is
// always read before its own slot is overwritten. Sources below the block
// boundary are probed without creating blocks; a missing source leaves a
// blank and dirties the block.
//
// Every slot a row vacates is itself either a shift destination or an
// insertion target, so no stale identity survives the pass.
func (c *Cache[T]) shiftRowsLocked(b *block[T], index, count int) {
	for i := b.pageSize - 1; i >= 0; i-- {
		dst := b.startRow() + i
		if dst < index+count {
			break
		}
		src := c.rowAtLocked(dst-count, false)
		if src != nil {
			b.setRow(dst, src)
		} else {
			b.setBlank(dst)
			b.dirty = true
		}
	}
}

func (c *Cache[T]) newItemRowLocked(index int, v T) *Row[T] {
	c.nextRowID++
	r := newRow[T](c.nextRowID, index)
	r.setData(v)
	return r
}
