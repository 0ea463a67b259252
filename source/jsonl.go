package source

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"

	"github.com/hupe1980/rowcache"
	"github.com/hupe1980/rowcache/codec"
)

// jsonlMaxLineSize bounds a single row's encoded size.
const jsonlMaxLineSize = 16 * 1024 * 1024

// JSONL serves rows from a newline-delimited JSON file; line n is row n.
// Blank lines are skipped. The file is re-opened per fetch, so an external
// writer replacing it is picked up on the next load.
type JSONL[T any] struct {
	path  string
	codec codec.Codec
}

var _ rowcache.Datasource[int] = (*JSONL[int])(nil)

// JSONLOption configures a JSONL source.
type JSONLOption[T any] func(*JSONL[T])

// WithJSONLCodec overrides the line codec, codec.Default if unset.
func WithJSONLCodec[T any](c codec.Codec) JSONLOption[T] {
	return func(s *JSONL[T]) {
		if c != nil {
			s.codec = c
		}
	}
}

// NewJSONL creates a source reading rows from the file at path.
func NewJSONL[T any](path string, optFns ...JSONLOption[T]) *JSONL[T] {
	s := &JSONL[T]{path: path, codec: codec.Default}
	for _, fn := range optFns {
		if fn != nil {
			fn(s)
		}
	}
	return s
}

// Fetch reads the rows in [startRow, endRow) by scanning the file.
func (s *JSONL[T]) Fetch(ctx context.Context, startRow, endRow int) ([]T, error) {
	if startRow < 0 {
		startRow = 0
	}
	if endRow <= startRow {
		return nil, nil
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", s.path, err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), jsonlMaxLineSize)

	var items []T
	line := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(scanner.Bytes()) == 0 {
			continue
		}
		if line >= endRow {
			break
		}
		if line >= startRow {
			var item T
			if err := s.codec.Unmarshal(scanner.Bytes(), &item); err != nil {
				return nil, fmt.Errorf("failed to decode line %d of %s: %w", line, s.path, err)
			}
			items = append(items, item)
		}
		line++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}
	return items, nil
}

// Watch invokes onChange whenever the file is written or replaced, until ctx
// ends. Pair it with Cache.Refresh to keep a view live:
//
//	err := src.Watch(ctx, cache.Refresh)
func (s *JSONL[T]) Watch(ctx context.Context, onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(s.path); err != nil {
		_ = w.Close()
		return err
	}
	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
					onChange()
				}
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return nil
}
