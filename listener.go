package rowcache

// Listener receives change notifications from a Cache. Callbacks run on the
// goroutine that caused the change (a fetch goroutine for load completions,
// the caller's goroutine for inserts and purges) after the cache's internal
// lock is released, so a listener may call back into the cache.
//
// ModelUpdated fires whenever resident contents or the row-count estimate
// change in a way the presentation layer should re-render for. It is gated
// by the activity flag (see Cache.SetActive). RowsInserted fires once per
// InsertItemsAtIndex call with the newly materialized rows, regardless of
// the activity flag. Neither fires once the cache is closed.
type Listener[T any] interface {
	ModelUpdated()
	RowsInserted(rows []*Row[T])
}

// ListenerFuncs adapts plain functions to the Listener interface.
// Nil fields are simply not called.
type ListenerFuncs[T any] struct {
	OnModelUpdated func()
	OnRowsInserted func(rows []*Row[T])
}

// ModelUpdated implements Listener.
func (l ListenerFuncs[T]) ModelUpdated() {
	if l.OnModelUpdated != nil {
		l.OnModelUpdated()
	}
}

// RowsInserted implements Listener.
func (l ListenerFuncs[T]) RowsInserted(rows []*Row[T]) {
	if l.OnRowsInserted != nil {
		l.OnRowsInserted(rows)
	}
}
