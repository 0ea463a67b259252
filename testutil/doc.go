// Package testutil provides testing utilities for rowcache.
//
// This package is intended for use in tests and benchmarks only.
// It provides a step-controlled datasource for driving load completions
// deterministically, plus helpers for generating row payloads and access
// patterns.
//
// # Step-Controlled Loads
//
//	src := testutil.NewManualSource[string]()
//	cache, _ := rowcache.New[string](src)
//
//	row := cache.GetRow(0)                  // schedules a fetch
//	req := src.Expect(t)                    // the fetch arrives here
//	req.Succeed("row-0", "row-1")           // now let it complete
//
// # Row Payloads
//
//	rows := testutil.Labels("row", 0, 200)  // row-0 .. row-199
//
// # Random Access Patterns
//
//	rng := testutil.NewRNG(seed)
//	idx := rng.Intn(totalRows)
package testutil
