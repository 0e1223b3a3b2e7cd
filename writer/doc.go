// Package writer provides the Client, the entry point for bulk writes.
//
//	drv, err := sql.Open("pgx", dsn)
//	if err != nil {
//		return err
//	}
//	client, err := writer.New(drv,
//		writer.WithRegistry(registry),
//		writer.WithBatch(batch.Options{Size: 500, Rewrite: true, RewriteGroupSize: 20}),
//	)
//	if err != nil {
//		return err
//	}
//	if err := client.AssignSequences(ctx, sequence.Entries{Records: orders}); err != nil {
//		return err
//	}
//	n, err := client.Insert(ctx, orders)
//
// Statements run on the executor as planned; errors are returned unmodified
// and never retried. Transactions are opened with Client.Tx.
package writer
