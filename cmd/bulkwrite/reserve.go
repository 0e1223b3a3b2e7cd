package main

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/syssam/bulkwrite/dialect"
	"github.com/syssam/bulkwrite/dialect/sql"
	"github.com/syssam/bulkwrite/internal/cli"
	"github.com/syssam/bulkwrite/sequence"
	"github.com/syssam/bulkwrite/writer"
)

var (
	reserveDB     string
	reserveDryRun bool
)

var reserveCmd = &cobra.Command{
	Use:   "reserve <sequence=count>...",
	Short: "Reserve sequence values",
	Long: `Reserve values from one or more database sequences in a single
round-trip and print them, one sequence per line.`,
	Example: `  # Reserve 3 order ids and 2 line ids
  bulkwrite reserve order_seq=3 line_seq=2

  # Print the reservation query without running it
  bulkwrite reserve --dry-run order_seq=3`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		counts, err := parseCounts(args)
		if err != nil {
			return err
		}
		if reserveDryRun {
			query, _, err := sequence.New(nil, cfg.Capabilities()).Query(counts)
			if err != nil {
				return cli.GeneralError("building reservation", err)
			}
			fmt.Println(query)
			return nil
		}

		dsn := reserveDB
		if dsn == "" {
			if dsn, err = cfg.DSN(); err != nil {
				return cli.ConfigError("resolving database", err)
			}
		}
		drv, err := sql.Open(cfg.Database.Driver, dsn)
		if err != nil {
			return cli.DBConnectError("connecting to database", err)
		}
		defer func() { _ = drv.Close() }()
		if err := drv.DB().PingContext(cmd.Context()); err != nil {
			return cli.DBConnectError("connecting to database", err)
		}

		stats := sql.NewStatsDriver(drv, sql.WithSlowLog(slog.Default()))
		client, err := newWriter(stats)
		if err != nil {
			return cli.ConfigError("configuring writer", err)
		}
		reserved, err := client.Reserve(cmd.Context(), counts)
		if err != nil {
			return cli.GeneralError("reserving sequence values", err)
		}
		slog.Info("reservation complete", "stats", stats.Stats().Snapshot())
		for _, name := range slices.Sorted(maps.Keys(reserved)) {
			printf("%s: %s\n", name, formatValues(reserved[name]))
		}
		return nil
	},
}

func init() {
	f := reserveCmd.Flags()
	f.StringVar(&reserveDB, "db", "", "database URL (default: database.url)")
	f.BoolVar(&reserveDryRun, "dry-run", false, "print the reservation query without running it")
}

// newWriter returns a client over drv configured from the loaded
// dialect and batch settings.
func newWriter(drv dialect.ExecQuerier) (*writer.Client, error) {
	opts := append(cfg.WriterOptions(), writer.WithLogger(slog.Default()))
	return writer.New(drv, opts...)
}

// parseCounts parses name=count arguments. Repeated names are summed.
func parseCounts(args []string) (map[string]int, error) {
	counts := make(map[string]int, len(args))
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, cli.GeneralError(fmt.Sprintf("invalid argument %q", arg), fmt.Errorf("want sequence=count"))
		}
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return nil, cli.GeneralError(fmt.Sprintf("invalid count for %s", name), fmt.Errorf("want a non-negative integer, got %q", value))
		}
		counts[name] += n
	}
	return counts, nil
}

func formatValues(vs []int64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.FormatInt(v, 10)
	}
	return strings.Join(parts, " ")
}
