// Package s3 provides a Datasource reading paged row objects from AWS S3.
//
// The object layout matches source/minio: fixed-size page objects named
// "<prefix><page>.jsonl[.lz4|.zst]", one JSON row per line. A missing or
// short page object marks the end of the dataset.
//
// # Usage
//
//	cfg, err := config.LoadDefaultConfig(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	src, err := s3source.NewSource[Row](s3.NewFromConfig(cfg), "my-bucket", "rows/", 1000)
//	cache, err := rowcache.New[Row](src)
//
// Downloads go through feature/s3/manager for concurrent multipart fetches
// of large page objects. The Client interface covers just GetObject, so unit
// tests can stand in a mock.
package s3
