package rowcache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/rowcache/testutil"
)

func newTestCache(t *testing.T, src Datasource[string], opts ...Option[string]) *Cache[string] {
	t.Helper()
	c, err := New[string](src, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// waitForState polls until the resident block reaches the wanted load state.
func waitForState(t *testing.T, c *Cache[string], number int, want LoadState) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		b, ok := c.blocks[number]
		var state LoadState
		if ok {
			state = b.state
		}
		c.mu.Unlock()
		if ok && state == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("block %d never reached state %s", number, want)
}

func waitForStats(t *testing.T, c *Cache[string], cond func(Stats) bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond(c.Stats()) {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("stats never matched: %+v", c.Stats())
}

func rowData(t *testing.T, c *Cache[string], index int) string {
	t.Helper()
	row := c.GetRow(index)
	require.NotNil(t, row, "row %d", index)
	v, ok := row.Data()
	require.True(t, ok, "row %d has no data", index)
	return v
}

// recordingListener captures notifications in arrival order.
type recordingListener struct {
	mu       sync.Mutex
	kinds    []string
	inserted [][]*Row[string]
}

func (l *recordingListener) ModelUpdated() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.kinds = append(l.kinds, "model-updated")
}

func (l *recordingListener) RowsInserted(rows []*Row[string]) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.kinds = append(l.kinds, "rows-inserted")
	l.inserted = append(l.inserted, rows)
}

func (l *recordingListener) events() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.kinds))
	copy(out, l.kinds)
	return out
}

func (l *recordingListener) batches() [][]*Row[string] {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([][]*Row[string], len(l.inserted))
	copy(out, l.inserted)
	return out
}

func (l *recordingListener) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.kinds = nil
	l.inserted = nil
}

func TestNewValidation(t *testing.T) {
	src := testutil.NewManualSource[string]()

	tests := []struct {
		name    string
		src     Datasource[string]
		opts    []Option[string]
		wantErr error
	}{
		{
			name:    "nil datasource",
			src:     nil,
			wantErr: ErrNilDatasource,
		},
		{
			name:    "zero page size",
			src:     src,
			opts:    []Option[string]{WithPageSize[string](0)},
			wantErr: ErrInvalidPageSize,
		},
		{
			name:    "negative page size",
			src:     src,
			opts:    []Option[string]{WithPageSize[string](-3)},
			wantErr: ErrInvalidPageSize,
		},
		{
			name:    "negative max blocks",
			src:     src,
			opts:    []Option[string]{WithMaxBlocks[string](-1)},
			wantErr: ErrInvalidMaxBlocks,
		},
		{
			name:    "negative initial row count",
			src:     src,
			opts:    []Option[string]{WithInitialRowCount[string](-5)},
			wantErr: ErrInvalidRowCount,
		},
		{
			name:    "negative overflow",
			src:     src,
			opts:    []Option[string]{WithOverflowSize[string](-1)},
			wantErr: ErrInvalidRowCount,
		},
		{
			name:    "zero concurrency",
			src:     src,
			opts:    []Option[string]{WithMaxConcurrentLoads[string](0)},
			wantErr: ErrInvalidConcurrency,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New[string](tt.src, tt.opts...)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("defaults", func(t *testing.T) {
		c, err := New[string](src)
		require.NoError(t, err)
		defer c.Close()

		assert.Equal(t, DefaultPageSize, c.PageSize())
		assert.Equal(t, DefaultPageSize, c.VirtualRowCount())
		assert.False(t, c.MaxRowFound())
	})
}

func TestGetRowBlockOwnership(t *testing.T) {
	src := testutil.NewManualSource[string]()
	c := newTestCache(t, src,
		WithPageSize[string](10),
		WithMaxConcurrentLoads[string](4),
	)

	assert.Nil(t, c.GetRow(-1))

	c.GetRow(0)
	c.GetRow(9)
	c.GetRow(10)
	c.GetRow(25)

	states := c.BlockStates()
	require.Len(t, states, 3)
	assert.Equal(t, 0, states[0].StartRow)
	assert.Equal(t, 10, states[0].EndRow)
	assert.Equal(t, 10, states[1].StartRow)
	assert.Equal(t, 20, states[2].StartRow)
	assert.Equal(t, 30, states[2].EndRow)

	// One fetch per block, covering exactly the block's range.
	ranges := map[int]int{}
	for range 3 {
		req := src.Expect(t)
		ranges[req.StartRow] = req.EndRow
	}
	assert.Equal(t, map[int]int{0: 10, 10: 20, 20: 30}, ranges)
	src.ExpectNone(t, 50*time.Millisecond)
}

func TestGetRowStableIdentity(t *testing.T) {
	src := testutil.NewManualSource[string]()
	c := newTestCache(t, src, WithPageSize[string](4))

	row := c.GetRow(2)
	require.NotNil(t, row)
	assert.Equal(t, 2, row.Index())
	assert.False(t, row.HasData())

	// Same identity before and after the block loads.
	assert.Same(t, row, c.GetRow(2))

	src.ExpectRange(t, 0, 4).Succeed(testutil.Labels("row", 0, 4)...)
	waitForState(t, c, 0, LoadComplete)

	assert.Same(t, row, c.GetRow(2))
	v, ok := row.Data()
	require.True(t, ok)
	assert.Equal(t, "row-2", v)
}

func TestShortPageDiscoversEnd(t *testing.T) {
	src := testutil.NewManualSource[string]()
	c := newTestCache(t, src, WithPageSize[string](4))

	c.GetRow(0)
	src.ExpectRange(t, 0, 4).Succeed("row-0", "row-1")
	waitForState(t, c, 0, LoadComplete)

	assert.Equal(t, 2, c.VirtualRowCount())
	assert.True(t, c.MaxRowFound())

	// Slots past the returned items stay blank.
	assert.Equal(t, "row-1", rowData(t, c, 1))
	blank := c.GetRow(2)
	require.NotNil(t, blank)
	assert.False(t, blank.HasData())
}

func TestFullPageGrowsEstimate(t *testing.T) {
	t.Run("default overflow", func(t *testing.T) {
		src := testutil.NewManualSource[string]()
		c := newTestCache(t, src, WithPageSize[string](4))

		assert.Equal(t, 4, c.VirtualRowCount()) // one page up front

		c.GetRow(0)
		src.ExpectRange(t, 0, 4).Succeed(testutil.Labels("row", 0, 4)...)
		waitForState(t, c, 0, LoadComplete)

		assert.Equal(t, 5, c.VirtualRowCount())
		assert.False(t, c.MaxRowFound())

		c.GetRow(4)
		src.ExpectRange(t, 4, 8).Succeed(testutil.Labels("row", 4, 4)...)
		waitForState(t, c, 1, LoadComplete)

		assert.Equal(t, 9, c.VirtualRowCount())
	})

	t.Run("wide overflow", func(t *testing.T) {
		src := testutil.NewManualSource[string]()
		c := newTestCache(t, src,
			WithPageSize[string](4),
			WithOverflowSize[string](10),
		)

		c.GetRow(0)
		src.ExpectRange(t, 0, 4).Succeed(testutil.Labels("row", 0, 4)...)
		waitForState(t, c, 0, LoadComplete)

		assert.Equal(t, 14, c.VirtualRowCount())
	})

	t.Run("estimate never shrinks on full page", func(t *testing.T) {
		src := testutil.NewManualSource[string]()
		c := newTestCache(t, src,
			WithPageSize[string](4),
			WithInitialRowCount[string](100),
		)

		c.GetRow(0)
		src.ExpectRange(t, 0, 4).Succeed(testutil.Labels("row", 0, 4)...)
		waitForState(t, c, 0, LoadComplete)

		assert.Equal(t, 100, c.VirtualRowCount())
	})
}

func TestSetRowCount(t *testing.T) {
	src := testutil.NewManualSource[string]()
	listener := &recordingListener{}
	c := newTestCache(t, src,
		WithPageSize[string](10),
		WithListener[string](listener),
	)

	c.SetRowCount(42, true)
	assert.Equal(t, 42, c.VirtualRowCount())
	assert.True(t, c.MaxRowFound())
	assert.Equal(t, []string{"model-updated"}, listener.events())

	// Negative counts are ignored.
	listener.reset()
	c.SetRowCount(-1, false)
	assert.Equal(t, 42, c.VirtualRowCount())
	assert.True(t, c.MaxRowFound())
	assert.Empty(t, listener.events())
}

func TestCapacityBound(t *testing.T) {
	src := testutil.NewManualSource[string]()
	c := newTestCache(t, src,
		WithPageSize[string](10),
		WithMaxBlocks[string](2),
		WithMaxConcurrentLoads[string](4),
	)

	c.GetRow(0)
	c.GetRow(10)
	require.Len(t, c.BlockStates(), 2)

	// The creation that pushes the cache over capacity evicts exactly one
	// block: the least recently touched other one.
	c.GetRow(20)
	states := c.BlockStates()
	require.Len(t, states, 2)
	assert.NotContains(t, states, 0)
	assert.Contains(t, states, 1)
	assert.Contains(t, states, 2)
	assert.Equal(t, int64(1), c.Stats().BlocksEvicted)
}

func TestLRURecency(t *testing.T) {
	src := testutil.NewManualSource[string]()
	c := newTestCache(t, src,
		WithPageSize[string](10),
		WithMaxBlocks[string](3),
		WithMaxConcurrentLoads[string](8),
	)

	c.GetRow(0)  // block 0
	c.GetRow(10) // block 1
	c.GetRow(20) // block 2
	c.GetRow(5)  // touch block 0 again

	// Block 1 is now the least recently touched; the next creation must
	// evict it, not block 0.
	c.GetRow(30)
	states := c.BlockStates()
	require.Len(t, states, 3)
	assert.Contains(t, states, 0)
	assert.NotContains(t, states, 1)
	assert.Contains(t, states, 2)
	assert.Contains(t, states, 3)
}

func TestPurge(t *testing.T) {
	src := testutil.NewManualSource[string]()
	listener := &recordingListener{}
	c := newTestCache(t, src,
		WithPageSize[string](4),
		WithListener[string](listener),
		WithMaxConcurrentLoads[string](4),
	)

	c.GetRow(0)
	c.GetRow(4)
	for range 2 {
		req := src.Expect(t)
		req.Succeed(testutil.Labels("row", req.StartRow, 4)...)
	}
	waitForState(t, c, 0, LoadComplete)
	waitForState(t, c, 1, LoadComplete)
	listener.reset()

	c.Purge()
	assert.Empty(t, c.BlockStates())
	assert.Equal(t, []string{"model-updated"}, listener.events())

	// Purging an empty cache still notifies, once per call.
	c.Purge()
	assert.Equal(t, []string{"model-updated", "model-updated"}, listener.events())

	// Purged rows reload on demand through fresh blocks.
	row := c.GetRow(0)
	require.NotNil(t, row)
	assert.False(t, row.HasData())
	src.ExpectRange(t, 0, 4)
}

func TestRefreshReloads(t *testing.T) {
	src := testutil.NewManualSource[string]()
	listener := &recordingListener{}
	c := newTestCache(t, src,
		WithPageSize[string](4),
		WithListener[string](listener),
	)

	row := c.GetRow(0)
	src.ExpectRange(t, 0, 4).Succeed(testutil.Labels("old", 0, 4)...)
	waitForState(t, c, 0, LoadComplete)
	assert.Equal(t, "old-0", rowData(t, c, 0))

	c.Refresh()
	src.ExpectRange(t, 0, 4).Succeed(testutil.Labels("new", 0, 4)...)
	waitForStats(t, c, func(s Stats) bool { return s.LoadsSucceeded == 2 })

	// Same identity, new data.
	assert.Same(t, row, c.GetRow(0))
	assert.Equal(t, "new-0", rowData(t, c, 0))
	assert.Equal(t, []string{"model-updated", "model-updated"}, listener.events())
}

func TestRefreshDuringFlight(t *testing.T) {
	src := testutil.NewManualSource[string]()
	c := newTestCache(t, src, WithPageSize[string](4))

	c.GetRow(0)
	req := src.ExpectRange(t, 0, 4)

	// The dirty mark lands while the fetch is outstanding; no second fetch
	// may start until the first settles.
	c.Refresh()
	src.ExpectNone(t, 50*time.Millisecond)

	req.Succeed(testutil.Labels("old", 0, 4)...)

	// Completion sees the dirty mark and reloads.
	src.ExpectRange(t, 0, 4).Succeed(testutil.Labels("new", 0, 4)...)
	waitForStats(t, c, func(s Stats) bool { return s.LoadsSucceeded == 2 })
	assert.Equal(t, "new-2", rowData(t, c, 2))
}

func TestActivityGatesModelUpdated(t *testing.T) {
	src := testutil.NewManualSource[string]()
	listener := &recordingListener{}
	c := newTestCache(t, src,
		WithPageSize[string](4),
		WithListener[string](listener),
	)

	c.SetActive(false)
	c.GetRow(0)
	src.ExpectRange(t, 0, 4).Succeed(testutil.Labels("row", 0, 4)...)
	waitForState(t, c, 0, LoadComplete)
	assert.Empty(t, listener.events())

	// Insertion notifications are not gated: a hidden view still has to
	// learn about rows that shifted under it.
	c.SetRowCount(4, true)
	listener.reset()
	c.InsertItemsAtIndex(0, []string{"x"})
	assert.Equal(t, []string{"rows-inserted"}, listener.events())

	c.SetActive(true)
	listener.reset()
	c.Refresh()
	src.ExpectRange(t, 0, 4).Succeed(testutil.Labels("row", 0, 4)...)
	waitForStats(t, c, func(s Stats) bool { return s.LoadsSucceeded == 2 })
	assert.Equal(t, []string{"model-updated"}, listener.events())
}
