package minio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/rowcache"
	"github.com/hupe1980/rowcache/codec"
	"github.com/hupe1980/rowcache/pageio"
)

// ErrInvalidObjectRows is returned when a source is created with a
// non-positive rows-per-object count.
var ErrInvalidObjectRows = errors.New("object rows must be positive")

// Source reads rows from paged JSONL objects in a MinIO bucket.
type Source[T any] struct {
	client     *minio.Client
	bucket     string
	prefix     string
	objectRows int
	comp       pageio.Compression
	codec      codec.Codec
}

var _ rowcache.Datasource[int] = (*Source[int])(nil)

// Option configures a Source.
type Option[T any] func(*Source[T])

// WithCompression sets the page object compression, none if unset.
func WithCompression[T any](comp pageio.Compression) Option[T] {
	return func(s *Source[T]) { s.comp = comp }
}

// WithCodec overrides the row codec, codec.Default if unset.
func WithCodec[T any](c codec.Codec) Option[T] {
	return func(s *Source[T]) {
		if c != nil {
			s.codec = c
		}
	}
}

// NewSource creates a source over bucket. prefix is prepended to every page
// object key (e.g. "rows/"); objectRows is the row count per full page
// object and must match what the exporter wrote.
func NewSource[T any](client *minio.Client, bucket, prefix string, objectRows int, optFns ...Option[T]) (*Source[T], error) {
	if objectRows <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidObjectRows, objectRows)
	}

	s := &Source[T]{
		client:     client,
		bucket:     bucket,
		prefix:     prefix,
		objectRows: objectRows,
		comp:       pageio.CompressionNone,
		codec:      codec.Default,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(s)
		}
	}
	return s, nil
}

// Fetch reads the rows in [startRow, endRow), downloading the covering page
// objects in parallel. A missing or short page object ends the dataset.
func (s *Source[T]) Fetch(ctx context.Context, startRow, endRow int) ([]T, error) {
	if startRow < 0 {
		startRow = 0
	}
	if endRow <= startRow {
		return nil, nil
	}

	first := startRow / s.objectRows
	last := (endRow - 1) / s.objectRows

	pages := make([][]T, last-first+1)
	g, gctx := errgroup.WithContext(ctx)
	for i := range pages {
		g.Go(func() error {
			rows, err := s.readObject(gctx, first+i)
			if err != nil {
				return err
			}
			pages[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var items []T
	for i, page := range pages {
		pageStart := (first + i) * s.objectRows
		for j, item := range page {
			index := pageStart + j
			if index < startRow {
				continue
			}
			if index >= endRow {
				return items, nil
			}
			items = append(items, item)
		}
		if len(page) < s.objectRows {
			break
		}
	}
	return items, nil
}

// readObject downloads and decodes one page object. A missing object is not
// an error; it reads as an empty page.
func (s *Source[T]) readObject(ctx context.Context, index int) ([]T, error) {
	key := pageio.ObjectKey(s.prefix, index, s.comp)

	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	defer func() { _ = obj.Close() }()

	data, err := io.ReadAll(obj)
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NotFound" {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}

	data, err = pageio.Decompress(data, s.comp)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress %s: %w", key, err)
	}

	var rows []T
	for line := range pageio.Lines(data) {
		var item T
		if err := s.codec.Unmarshal(line, &item); err != nil {
			return nil, fmt.Errorf("failed to decode row %d of %s: %w", len(rows), key, err)
		}
		rows = append(rows, item)
	}
	return rows, nil
}

// WritePage uploads one page object holding rows, for exporters and tests.
// Every page but the last must hold exactly the configured objectRows rows.
func (s *Source[T]) WritePage(ctx context.Context, index int, rows []T) error {
	var buf bytes.Buffer
	for _, item := range rows {
		line, err := s.codec.Marshal(item)
		if err != nil {
			return fmt.Errorf("failed to encode row: %w", err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	data, err := pageio.Compress(buf.Bytes(), s.comp)
	if err != nil {
		return err
	}

	key := pageio.ObjectKey(s.prefix, index, s.comp)
	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to put %s: %w", key, err)
	}
	return nil
}
