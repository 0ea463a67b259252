package source

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hupe1980/rowcache"
)

// SQL serves rows from a database/sql query using LIMIT/OFFSET paging.
//
// The query must order rows deterministically and end with two placeholders,
// limit first, offset second:
//
//	SELECT id, name FROM events ORDER BY id LIMIT ? OFFSET ?
//
// scan converts one result row; it is called once per row with the cursor
// already positioned.
type SQL[T any] struct {
	db    *sql.DB
	query string
	scan  func(*sql.Rows) (T, error)
}

var _ rowcache.Datasource[int] = (*SQL[int])(nil)

// NewSQL creates a SQL-backed source.
func NewSQL[T any](db *sql.DB, query string, scan func(*sql.Rows) (T, error)) *SQL[T] {
	return &SQL[T]{db: db, query: query, scan: scan}
}

// Fetch queries the rows in [startRow, endRow).
func (s *SQL[T]) Fetch(ctx context.Context, startRow, endRow int) ([]T, error) {
	if startRow < 0 {
		startRow = 0
	}
	if endRow <= startRow {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, s.query, endRow-startRow, startRow)
	if err != nil {
		return nil, fmt.Errorf("failed to query rows [%d,%d): %w", startRow, endRow, err)
	}
	defer func() { _ = rows.Close() }()

	items := make([]T, 0, endRow-startRow)
	for rows.Next() {
		item, err := s.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row %d: %w", startRow+len(items), err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows [%d,%d): %w", startRow, endRow, err)
	}
	return items, nil
}
