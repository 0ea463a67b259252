package source

import (
	"context"
	"slices"
	"sync"

	"github.com/hupe1980/rowcache"
)

// Slice serves rows from an in-memory slice. It is the generator backend of
// choice for demos and tests, and doubles as the mutable "truth" behind a
// cache: Insert mirrors what Cache.InsertItemsAtIndex does on the cached
// side, so dirty blocks reload consistently.
type Slice[T any] struct {
	mu    sync.RWMutex
	items []T
}

var _ rowcache.Datasource[int] = (*Slice[int])(nil)

// NewSlice copies items into a new slice source.
func NewSlice[T any](items ...T) *Slice[T] {
	return &Slice[T]{items: slices.Clone(items)}
}

// Fetch returns the rows in [startRow, endRow), clamped to the data.
func (s *Slice[T]) Fetch(_ context.Context, startRow, endRow int) ([]T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if startRow < 0 {
		startRow = 0
	}
	if startRow >= len(s.items) {
		return nil, nil
	}
	if endRow > len(s.items) {
		endRow = len(s.items)
	}
	return slices.Clone(s.items[startRow:endRow]), nil
}

// Len returns the current number of rows.
func (s *Slice[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Append adds rows at the end.
func (s *Slice[T]) Append(items ...T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, items...)
}

// Insert splices rows in before index, shifting the rest down. Indexes are
// clamped to the slice bounds.
func (s *Slice[T]) Insert(index int, items ...T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 {
		index = 0
	}
	if index > len(s.items) {
		index = len(s.items)
	}
	s.items = slices.Insert(s.items, index, items...)
}
