// Package dialect provides database dialect abstraction for the bulk-write engine.
//
// This package defines the executor interfaces and the capability data used
// to pick statement shapes, allowing statements to be synthesized for
// PostgreSQL, MySQL/MariaDB, SQLite and Oracle.
//
// # Dialect Constants
//
// Each dialect is identified by a constant string:
//
//	dialect.Postgres = "postgres"
//	dialect.MySQL    = "mysql"
//	dialect.SQLite   = "sqlite3"
//	dialect.Oracle   = "oracle"
//
// # Capabilities
//
// Dialect-specific behavior is data, not branching on product names:
//
//	caps := dialect.For(dialect.Postgres)
//	caps.NextVal("order_seq")   // nextval('order_seq')
//	caps.InsertShape()          // dialect.MultiRowInsert
//
//	// Oracle before 23c has no multi-row VALUES and falls back to INSERT ALL.
//	caps = dialect.OracleVersion(19)
//	caps.InsertShape()          // dialect.DialectFanOutInsert
//
// # Driver Interface
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// Statements are only ever handed to an ExecQuerier; opening, committing and
// rolling back transactions is left to the caller.
//
// # Sub-packages
//
//   - dialect/sql: database/sql backed driver, placeholder rebinding,
//     statistics and debug wrappers
package dialect
