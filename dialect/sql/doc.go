// Package sql adapts database/sql to the dialect.Driver interface used by the
// sequence allocator and the batch executor.
//
// # Placeholders
//
// Statements are built with indexed "?N" or anonymous "?" placeholders.
// Conn rewrites them into the native style of the driver right before
// execution:
//
//	sql.Rebind(dialect.Dollar, "UPDATE t SET a = ?1 WHERE id = ?2")
//	// UPDATE t SET a = $1 WHERE id = $2
//
//	sql.Rebind(dialect.Colon, "INSERT INTO t (a, b) VALUES (?, ?)")
//	// INSERT INTO t (a, b) VALUES (:1, :2)
//
// # Opening a driver
//
//	drv, err := sql.Open("pgx", "postgres://...")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer drv.Close()
//
// # Wrappers
//
//   - StatsDriver: counters, slow statement detection and a slog-based slow log
//   - DebugDriver: logs every statement at debug level
//
// # Errors
//
// Execution errors are never rewritten. Constraint classifies them (unique,
// foreign key, check) for logging and statistics only.
package sql
