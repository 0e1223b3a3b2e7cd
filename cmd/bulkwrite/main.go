// Package main provides the bulkwrite command line tool.
//
// The CLI supports:
//   - gen: generate schema definitions from tagged structs
//   - reserve: reserve sequence values in one round-trip
//   - config show: print the effective configuration
//   - version: print build information
//
// Usage:
//
//	bulkwrite [flags] <command>
//
// Commands that reach the database (reserve) need database.url or
// BULKWRITE_DATABASE_URL.
package main

func main() {
	Execute()
}
