// Package statement builds parameterized insert, update and delete statements
// from resolved entity metadata.
//
// Every method is a pure function of its input. Statements use indexed
// placeholders numbered in encounter order, and QueryData.Positions holds the
// value of placeholder ?i at index i-1:
//
//	b := statement.New(dialect.For(dialect.Postgres), registry)
//	q, err := b.MultiInsert(statement.Records(orders))
//	// INSERT INTO orders (id, total) VALUES (?1, ?2), (?3, ?4)
//
// Batched execution uses anonymous placeholders; ClearPlaceholders derives
// that form from a built statement. The executor rebinds either form to the
// native style of the driver (see dialect/sql.Rebind).
//
// # Insert shapes
//
// BulkInsert selects one of the dialect.InsertShape variants:
//
//	MultiRowInsert         INSERT INTO t (...) VALUES (...), (...)
//	DialectFanOutInsert    INSERT ALL INTO t (...) VALUES (...) ... SELECT * FROM dual
//	SequenceDerivedInsert  INSERT INTO t (id, ...) SELECT <nextval>, mt.* FROM (...) mt
//
// dialect.Capabilities.InsertShape returns the default shape of a dialect.
package statement
