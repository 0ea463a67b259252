package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/hupe1980/rowcache"
	"github.com/hupe1980/rowcache/codec"
)

// HTTP serves rows from an offset/limit JSON endpoint. A fetch of
// [startRow, endRow) becomes
//
//	GET <endpoint>?offset=<startRow>&limit=<endRow-startRow>
//
// and the response body must decode to a JSON array of rows.
type HTTP[T any] struct {
	endpoint    string
	client      *http.Client
	codec       codec.Codec
	header      http.Header
	offsetParam string
	limitParam  string
}

var _ rowcache.Datasource[int] = (*HTTP[int])(nil)

// HTTPOption configures an HTTP source.
type HTTPOption[T any] func(*HTTP[T])

// WithHTTPClient overrides http.DefaultClient.
func WithHTTPClient[T any](client *http.Client) HTTPOption[T] {
	return func(s *HTTP[T]) {
		if client != nil {
			s.client = client
		}
	}
}

// WithHTTPHeader adds a header to every request, e.g. an Authorization
// bearer token.
func WithHTTPHeader[T any](key, value string) HTTPOption[T] {
	return func(s *HTTP[T]) {
		s.header.Add(key, value)
	}
}

// WithHTTPParams renames the offset and limit query parameters.
func WithHTTPParams[T any](offsetParam, limitParam string) HTTPOption[T] {
	return func(s *HTTP[T]) {
		if offsetParam != "" {
			s.offsetParam = offsetParam
		}
		if limitParam != "" {
			s.limitParam = limitParam
		}
	}
}

// WithHTTPCodec overrides the response codec, codec.Default if unset.
func WithHTTPCodec[T any](c codec.Codec) HTTPOption[T] {
	return func(s *HTTP[T]) {
		if c != nil {
			s.codec = c
		}
	}
}

// NewHTTP creates a source fetching rows from endpoint.
func NewHTTP[T any](endpoint string, optFns ...HTTPOption[T]) *HTTP[T] {
	s := &HTTP[T]{
		endpoint:    endpoint,
		client:      http.DefaultClient,
		codec:       codec.Default,
		header:      make(http.Header),
		offsetParam: "offset",
		limitParam:  "limit",
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(s)
		}
	}
	return s
}

// Fetch requests the rows in [startRow, endRow).
func (s *HTTP[T]) Fetch(ctx context.Context, startRow, endRow int) ([]T, error) {
	if startRow < 0 {
		startRow = 0
	}
	if endRow <= startRow {
		return nil, nil
	}

	u, err := url.Parse(s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to parse endpoint %s: %w", s.endpoint, err)
	}
	q := u.Query()
	q.Set(s.offsetParam, strconv.Itoa(startRow))
	q.Set(s.limitParam, strconv.Itoa(endRow-startRow))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	for key, values := range s.header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rows [%d,%d): %w", startRow, endRow, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch rows [%d,%d): unexpected status %s", startRow, endRow, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var items []T
	if err := s.codec.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return items, nil
}
