// Package dynamo provides a Datasource reading rows from a DynamoDB table.
//
// Rows live under one partition with a numeric sort key holding the row
// index. A fetch of [startRow, endRow) becomes a Query with
//
//	#p = :p AND #i BETWEEN :a AND :b
//
// paginated through LastEvaluatedKey until the range is exhausted.
//
// Table schema:
//   - Partition key: dataset (string) - one value per dataset
//   - Sort key: idx (number) - the absolute row index, 0-based and dense
//
// # Usage
//
//	cfg, err := config.LoadDefaultConfig(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	src := dynamo.NewSource(dynamodb.NewFromConfig(cfg), "rows-table",
//	    dynamo.KeySchema{PartitionAttr: "dataset", PartitionValue: "events-2024", IndexAttr: "idx"},
//	    dynamo.JSONAttribute[Row]("payload", nil),
//	)
//	cache, err := rowcache.New[Row](src)
package dynamo
