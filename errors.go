package rowcache

import (
	"errors"
	"fmt"
)

var (
	// ErrNilDatasource is returned when New is given a nil datasource.
	ErrNilDatasource = errors.New("datasource must not be nil")

	// ErrInvalidPageSize is returned when the configured page size is not positive.
	ErrInvalidPageSize = errors.New("page size must be positive")

	// ErrInvalidMaxBlocks is returned when the configured block capacity is negative.
	ErrInvalidMaxBlocks = errors.New("max blocks must not be negative")

	// ErrInvalidRowCount is returned when a row count or overflow size is negative.
	ErrInvalidRowCount = errors.New("row count must not be negative")

	// ErrInvalidConcurrency is returned when the configured load concurrency is not positive.
	ErrInvalidConcurrency = errors.New("max concurrent loads must be positive")

	// ErrInvalidRange is returned when a row range has a negative start or ends before it starts.
	ErrInvalidRange = errors.New("invalid row range")

	// ErrClosed is returned by operations on a closed cache.
	ErrClosed = errors.New("cache is closed")
)

// ErrFetch indicates a datasource fetch for one block failed.
//
// The original underlying error can be accessed via errors.Unwrap.
type ErrFetch struct {
	Block    int
	StartRow int
	EndRow   int
	cause    error
}

func (e *ErrFetch) Error() string {
	return fmt.Sprintf("fetch rows [%d,%d) for block %d: %v", e.StartRow, e.EndRow, e.Block, e.cause)
}

func (e *ErrFetch) Unwrap() error { return e.cause }
