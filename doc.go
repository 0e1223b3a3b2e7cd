// Package bulkwrite holds the errors shared by the bulk-write packages.
//
// Records are described once through schema definitions (package schema),
// turned into parameterized SQL by package statement, grouped into batches
// by package batch and written through a writer.Client. Sequence values for
// new keys are reserved in one round-trip by package sequence.
//
//	client, err := writer.New(drv, writer.WithBatch(batch.Options{Size: 500, Rewrite: true}))
//	if err != nil {
//		return err
//	}
//	n, err := client.Insert(ctx, orders)
package bulkwrite
