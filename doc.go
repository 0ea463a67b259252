// Package rowcache provides a windowed, block-paginated row cache for Go.
//
// Rowcache sits between a presentation layer that renders rows by absolute
// index (an infinite-scrolling table, a TUI viewport, a report window) and a
// datasource that serves rows page by page. Rows are grouped into fixed-size
// blocks that load on demand, an LRU policy bounds how many blocks stay
// resident, and a shifting algorithm keeps already-materialized rows visible
// at their new indexes when items are inserted mid-dataset.
//
// # Quick Start
//
//	src := source.NewSlice(people)
//	cache, _ := rowcache.New[Person](src,
//	    rowcache.WithPageSize(100),
//	    rowcache.WithMaxBlocks(10),
//	)
//	defer cache.Close()
//
//	row := cache.GetRow(1234) // triggers a block load if needed
//	if p, ok := row.Data(); ok {
//	    render(p)
//	} else {
//	    renderLoading() // blank until the fetch lands
//	}
//
// # Blocks and Loading
//
// Row index i belongs to block i/pageSize. The first GetRow that touches an
// absent block creates it with blank stub rows and schedules a fetch; fetches
// run on background goroutines, bounded by WithMaxConcurrentLoads and
// optionally paced by WithLoadRateLimit. A short page from the datasource
// marks the true end of the dataset; a full page lets the row-count estimate
// grow so scrolling can continue.
//
// # Eviction
//
// With WithMaxBlocks set, every block creation that pushes the cache over
// capacity evicts exactly one other block, the one with the oldest access
// stamp. Evicting a block that is still loading does not cancel its fetch:
// the completion still runs so in-flight accounting stays balanced, the
// result is simply not integrated.
//
// # Insertion
//
// InsertItemsAtIndex splices new items into the cached window, shifting
// resident rows to higher indexes across block boundaries without reloading
// them. Slots whose source row is not resident become blank and the block is
// marked dirty so the next load heals it.
//
// # Notifications
//
// A Listener registered with WithListener receives ModelUpdated after loads,
// inserts, purges and row-count changes, and RowsInserted once per insert
// call. Callbacks run outside the cache's internal lock, so they may call
// back into the cache.
package rowcache
