package rowcache

// LoadState describes where a block is in its load lifecycle.
type LoadState uint8

const (
	// LoadNotStarted means no fetch has ever been issued for the block.
	LoadNotStarted LoadState = iota
	// LoadInFlight means a fetch is currently outstanding.
	LoadInFlight
	// LoadComplete means the last fetch succeeded and the block holds data.
	LoadComplete
	// LoadFailed means the last fetch returned an error. The block keeps
	// whatever it had; a refresh marks it dirty and retries.
	LoadFailed
)

// String implements fmt.Stringer.
func (s LoadState) String() string {
	switch s {
	case LoadNotStarted:
		return "not-started"
	case LoadInFlight:
		return "in-flight"
	case LoadComplete:
		return "complete"
	case LoadFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// block owns one contiguous page of rows: absolute indexes
// [number*pageSize, (number+1)*pageSize). Every slot always holds a *Row;
// slots without data are "blank" and render as placeholders.
//
// All fields are guarded by the owning cache's lock. The settled channel is
// closed each time a load attempt finishes (or, for a block evicted before
// its first load, on eviction) so Warm callers can wait without polling.
type block[T any] struct {
	number   int
	pageSize int

	state LoadState
	dirty bool

	rows []*Row[T]

	// lastAccessed is the cache-wide access stamp of the most recent row
	// read that touched this block. Zero means never read.
	lastAccessed uint64

	settled chan struct{}

	// newStub mints a fresh blank row with a cache-unique ID.
	newStub func(index int) *Row[T]
}

func newBlock[T any](number, pageSize int, newStub func(index int) *Row[T]) *block[T] {
	b := &block[T]{
		number:   number,
		pageSize: pageSize,
		rows:     make([]*Row[T], pageSize),
		settled:  make(chan struct{}),
		newStub:  newStub,
	}
	for i := range pageSize {
		b.rows[i] = newStub(b.startRow() + i)
	}
	return b
}

// startRow returns the first absolute row index owned by the block.
func (b *block[T]) startRow() int { return b.number * b.pageSize }

// endRow returns one past the last absolute row index owned by the block.
func (b *block[T]) endRow() int { return b.startRow() + b.pageSize }

func (b *block[T]) contains(index int) bool {
	return index >= b.startRow() && index < b.endRow()
}

func (b *block[T]) rowAt(index int) *Row[T] {
	return b.rows[index-b.startRow()]
}

// setRow places an existing row identity at an absolute index inside the
// block, overwriting the slot and re-pointing the row's index. Used only by
// the shifting algorithm; bypasses the load pipeline.
func (b *block[T]) setRow(index int, r *Row[T]) {
	b.rows[index-b.startRow()] = r
	r.setIndex(index)
}

// setBlank replaces the slot at an absolute index with a fresh blank stub.
func (b *block[T]) setBlank(index int) {
	b.rows[index-b.startRow()] = b.newStub(index)
}

// populate copies fetched items into the existing row identities in order.
// Slots past the item count lose their data; with a short page that is how
// rows beyond the end of the dataset stay permanently blank.
func (b *block[T]) populate(items []T) {
	n := len(items)
	if n > b.pageSize {
		n = b.pageSize
	}
	for i, r := range b.rows {
		if i < n {
			r.setData(items[i])
		} else {
			r.clearData()
		}
	}
}

// loadEligible reports whether the block wants a fetch: never loaded, or
// marked dirty since the last one. In-flight blocks are never eligible; a
// dirty mark set during flight survives and is picked up on completion.
func (b *block[T]) loadEligible() bool {
	if b.state == LoadInFlight {
		return false
	}
	return b.state == LoadNotStarted || b.dirty
}
