// Package source ships Datasource implementations for the common row
// backends: in-memory slices, database/sql queries, JSONL files and HTTP
// endpoints.
//
// All sources answer the same contract: return the rows in [startRow,
// endRow), fewer when the dataset ends inside the range, and an error only
// when the backend itself failed. startRow past the end of the data is a
// normal request answered with zero rows.
//
// # Quick Start
//
//	src := source.NewSlice("alpha", "beta", "gamma")
//	cache, err := rowcache.New[string](src)
//
// Object-store backends live in the subpackages source/minio, source/s3 and
// source/dynamo.
package source
