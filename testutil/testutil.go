package testutil

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"
)

// waitTimeout bounds how long Expect and friends block before failing the
// test. Generous so loaded CI machines do not flake.
const waitTimeout = 5 * time.Second

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Uint64 returns a pseudo-random uint64.
func (r *RNG) Uint64() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Uint64()
}

// Perm returns a pseudo-random permutation of [0,n). Useful for visiting
// every row of a dataset in scrambled order.
func (r *RNG) Perm(n int) []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Perm(n)
}

// Labels generates n sequential row payloads: "<prefix>-<start>" through
// "<prefix>-<start+n-1>".
func Labels(prefix string, start, n int) []string {
	out := make([]string, n)
	for i := range n {
		out[i] = fmt.Sprintf("%s-%d", prefix, start+i)
	}
	return out
}

// FetchRequest is one pending fetch captured by a ManualSource. The fetch
// goroutine stays blocked until Succeed or Fail is called.
type FetchRequest[T any] struct {
	StartRow int
	EndRow   int

	resp chan fetchResponse[T]
}

type fetchResponse[T any] struct {
	items []T
	err   error
}

// Succeed completes the fetch with the given items. Fewer items than the
// requested range signals the end of the dataset, exactly like a real
// datasource returning a short page.
func (r *FetchRequest[T]) Succeed(items ...T) {
	r.resp <- fetchResponse[T]{items: items}
}

// Fail completes the fetch with an error.
func (r *FetchRequest[T]) Fail(err error) {
	r.resp <- fetchResponse[T]{err: err}
}

// ManualSource is a datasource whose fetches complete only when the test
// says so. Every Fetch call parks itself as a FetchRequest; the test picks
// requests up with Expect and resolves them with Succeed or Fail, making
// asynchronous load sequences fully deterministic.
type ManualSource[T any] struct {
	requests chan *FetchRequest[T]
}

// NewManualSource creates a ManualSource with room for parked requests.
func NewManualSource[T any]() *ManualSource[T] {
	return &ManualSource[T]{
		requests: make(chan *FetchRequest[T], 64),
	}
}

// Fetch parks the request until the test resolves it or ctx ends.
func (s *ManualSource[T]) Fetch(ctx context.Context, startRow, endRow int) ([]T, error) {
	req := &FetchRequest[T]{
		StartRow: startRow,
		EndRow:   endRow,
		resp:     make(chan fetchResponse[T], 1),
	}

	select {
	case s.requests <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case resp := <-req.resp:
		return resp.items, resp.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Expect returns the next parked fetch request, failing the test if none
// arrives in time.
func (s *ManualSource[T]) Expect(t testing.TB) *FetchRequest[T] {
	t.Helper()
	select {
	case req := <-s.requests:
		return req
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for a fetch request")
		return nil
	}
}

// ExpectRange returns the next parked fetch request and asserts its range.
func (s *ManualSource[T]) ExpectRange(t testing.TB, startRow, endRow int) *FetchRequest[T] {
	t.Helper()
	req := s.Expect(t)
	if req.StartRow != startRow || req.EndRow != endRow {
		t.Fatalf("fetch range: got [%d,%d), want [%d,%d)", req.StartRow, req.EndRow, startRow, endRow)
	}
	return req
}

// ExpectNone asserts that no fetch request arrives within wait.
func (s *ManualSource[T]) ExpectNone(t testing.TB, wait time.Duration) {
	t.Helper()
	select {
	case req := <-s.requests:
		t.Fatalf("unexpected fetch request for rows [%d,%d)", req.StartRow, req.EndRow)
	case <-time.After(wait):
	}
}

// Pending returns how many requests are parked right now.
func (s *ManualSource[T]) Pending() int {
	return len(s.requests)
}
