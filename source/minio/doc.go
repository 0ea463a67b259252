// Package minio provides a Datasource reading paged row objects from MinIO
// or any S3-compatible bucket.
//
// Rows are stored as fixed-size page objects named
// "<prefix><page>.jsonl[.lz4|.zst]", one JSON row per line, for example
// "rows/000000.jsonl.zst" holding rows [0, objectRows). A missing or short
// page object marks the end of the dataset.
//
// # Basic Usage
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	src, err := miniosource.NewSource[Row](client, "my-bucket", "rows/", 1000,
//	    miniosource.WithCompression[Row](pageio.CompressionZstd),
//	)
//	cache, err := rowcache.New[Row](src)
//
// Works with any S3-compatible storage (Ceph, Garage, SeaweedFS); for native
// AWS S3 see the sibling source/s3 package.
package minio
