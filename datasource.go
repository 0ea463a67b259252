package rowcache

import "context"

// Datasource serves rows by half-open absolute index range. The cache calls
// Fetch from background goroutines, one call per block, asking for exactly
// [startRow, endRow).
//
// Returning fewer items than requested tells the cache the dataset ended at
// startRow+len(items); returning the full count leaves the end undiscovered
// so the row-count estimate keeps growing. Fetch must honor ctx: the cache
// cancels it when closed.
type Datasource[T any] interface {
	Fetch(ctx context.Context, startRow, endRow int) ([]T, error)
}

// FetchFunc adapts a plain function to the Datasource interface.
type FetchFunc[T any] func(ctx context.Context, startRow, endRow int) ([]T, error)

var _ Datasource[int] = FetchFunc[int](nil)

// Fetch implements Datasource.
func (f FetchFunc[T]) Fetch(ctx context.Context, startRow, endRow int) ([]T, error) {
	return f(ctx, startRow, endRow)
}
