package rowcache

import "sync/atomic"

// Row is the stable identity of one row slot. The presentation layer holds
// on to *Row values across loads, reloads and shifts: the ID never changes,
// while Index and Data reflect the row's current position and payload.
//
// A Row with no data yet (its block has not loaded, or the slot was blanked
// during a shift) reports ok=false from Data and should be rendered as a
// placeholder.
//
// Reads are safe from any goroutine.
type Row[T any] struct {
	id    uint64
	state atomic.Pointer[rowState[T]]
}

type rowState[T any] struct {
	index int
	data  *T
}

func newRow[T any](id uint64, index int) *Row[T] {
	r := &Row[T]{id: id}
	r.state.Store(&rowState[T]{index: index})
	return r
}

// ID returns the identity of this row. IDs are unique within one Cache and
// never reused; two *Row values are the same row iff their IDs are equal.
func (r *Row[T]) ID() uint64 { return r.id }

// Index returns the absolute row index this row currently occupies.
// Insertions shift resident rows, so the index of a held Row can change.
func (r *Row[T]) Index() int { return r.state.Load().index }

// Data returns the row payload and true once the owning block has loaded.
// Before that, and for slots blanked during a shift, it returns the zero
// value and false.
func (r *Row[T]) Data() (T, bool) {
	s := r.state.Load()
	if s.data == nil {
		var zero T
		return zero, false
	}
	return *s.data, true
}

// HasData reports whether the row currently carries a payload.
func (r *Row[T]) HasData() bool { return r.state.Load().data != nil }

// setIndex moves the row to a new absolute index, keeping its payload.
// Called only by the cache's shifting algorithm, under the cache lock.
func (r *Row[T]) setIndex(index int) {
	s := r.state.Load()
	r.state.Store(&rowState[T]{index: index, data: s.data})
}

// setData assigns a payload, keeping the current index. Called by the load
// pipeline under the cache lock.
func (r *Row[T]) setData(v T) {
	s := r.state.Load()
	r.state.Store(&rowState[T]{index: s.index, data: &v})
}

// clearData drops the payload, keeping the current index.
func (r *Row[T]) clearData() {
	s := r.state.Load()
	r.state.Store(&rowState[T]{index: s.index})
}
