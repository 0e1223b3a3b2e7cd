package sql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/syssam/bulkwrite/dialect"
)

// DefaultSlowThreshold is the slow statement threshold of a new StatsDriver.
const DefaultSlowThreshold = 100 * time.Millisecond

// Stats accumulates counters of the statements run through a StatsDriver.
// Queries are counted as reservations, execs as writes.
type Stats struct {
	reservations atomic.Int64
	writes       atomic.Int64
	rows         atomic.Int64
	failed       atomic.Int64
	slow         atomic.Int64
	elapsed      atomic.Int64
	violations   [CheckConstraint + 1]atomic.Int64
}

// Snapshot returns the current counter values.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Reservations: s.reservations.Load(),
		Writes:       s.writes.Load(),
		RowsAffected: s.rows.Load(),
		Failed:       s.failed.Load(),
		Slow:         s.slow.Load(),
		Elapsed:      time.Duration(s.elapsed.Load()),
		Unique:       s.violations[UniqueConstraint].Load(),
		ForeignKey:   s.violations[ForeignKeyConstraint].Load(),
		Check:        s.violations[CheckConstraint].Load(),
	}
}

// Reset zeroes all counters.
func (s *Stats) Reset() {
	for _, c := range []*atomic.Int64{&s.reservations, &s.writes, &s.rows, &s.failed, &s.slow, &s.elapsed} {
		c.Store(0)
	}
	for i := range s.violations {
		s.violations[i].Store(0)
	}
}

func (s *Stats) observe(kind statementKind, elapsed time.Duration, rows int64, err error) {
	if kind == reservation {
		s.reservations.Add(1)
	} else {
		s.writes.Add(1)
		s.rows.Add(rows)
	}
	s.elapsed.Add(int64(elapsed))
	if err != nil {
		s.failed.Add(1)
		if k := Constraint(err); k != NotConstraint {
			s.violations[k].Add(1)
		}
	}
}

// Snapshot is a copy of Stats taken at one point in time.
type Snapshot struct {
	Reservations int64
	Writes       int64
	// RowsAffected sums the rows reported by successful writes that asked
	// for a result.
	RowsAffected int64
	Failed       int64
	Slow         int64
	Elapsed      time.Duration
	// Constraint violations among the failed statements, by kind.
	Unique, ForeignKey, Check int64
}

// Statements returns the number of statements observed.
func (s Snapshot) Statements() int64 { return s.Reservations + s.Writes }

// Violations returns the number of failures classified as constraint violations.
func (s Snapshot) Violations() int64 { return s.Unique + s.ForeignKey + s.Check }

// Mean returns the mean statement latency.
func (s Snapshot) Mean() time.Duration {
	if n := s.Statements(); n > 0 {
		return s.Elapsed / time.Duration(n)
	}
	return 0
}

func (s Snapshot) String() string {
	return fmt.Sprintf("reservations=%d writes=%d rows=%d failed=%d violations=%d slow=%d mean=%s",
		s.Reservations, s.Writes, s.RowsAffected, s.Failed, s.Violations(), s.Slow, s.Mean())
}

// LogValue groups the snapshot under one slog attribute.
func (s Snapshot) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("reservations", s.Reservations),
		slog.Int64("writes", s.Writes),
		slog.Int64("rows", s.RowsAffected),
		slog.Int64("failed", s.Failed),
		slog.Int64("violations", s.Violations()),
		slog.Int64("slow", s.Slow),
		slog.Duration("mean", s.Mean()),
	)
}

type statementKind uint8

const (
	reservation statementKind = iota
	write
)

// SlowHook is called after a statement that ran longer than the threshold.
// args is nil when the statement was not called with []any.
type SlowHook func(ctx context.Context, query string, args []any, elapsed time.Duration)

// StatsOption configures a StatsDriver.
type StatsOption func(*StatsDriver)

// WithSlowThreshold sets the slow statement threshold. A zero threshold
// reports every statement.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsDriver) { s.threshold.Store(int64(d)) }
}

// WithSlowHook registers hook for slow statements.
func WithSlowHook(hook SlowHook) StatsOption {
	return func(s *StatsDriver) { s.hook = hook }
}

// WithSlowLog warns about slow statements on logger, or slog.Default when nil.
func WithSlowLog(logger *slog.Logger) StatsOption {
	if logger == nil {
		logger = slog.Default()
	}
	return WithSlowHook(func(ctx context.Context, query string, args []any, elapsed time.Duration) {
		logger.WarnContext(ctx, "slow statement",
			slog.Duration("elapsed", elapsed),
			slog.String("sql", query),
			slog.Int("args", len(args)),
		)
	})
}

// StatsDriver is a dialect.Driver that counts reservations, writes, rows
// affected and constraint violations, and reports slow statements.
//
//	drv := sql.NewStatsDriver(conn, sql.WithSlowLog(nil))
//	client, _ := writer.New(drv)
//	...
//	slog.Info("done", "stats", drv.Stats().Snapshot())
type StatsDriver struct {
	dialect.Driver
	stats     *Stats
	threshold atomic.Int64
	hook      SlowHook
}

// NewStatsDriver wraps drv.
func NewStatsDriver(drv dialect.Driver, opts ...StatsOption) *StatsDriver {
	d := &StatsDriver{Driver: drv, stats: &Stats{}}
	d.threshold.Store(int64(DefaultSlowThreshold))
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Stats returns the live counters of the driver and its transactions.
func (d *StatsDriver) Stats() *Stats { return d.stats }

// SlowThreshold returns the slow statement threshold.
func (d *StatsDriver) SlowThreshold() time.Duration {
	return time.Duration(d.threshold.Load())
}

// SetSlowThreshold changes the slow statement threshold. It is safe to call
// while statements run.
func (d *StatsDriver) SetSlowThreshold(threshold time.Duration) {
	d.threshold.Store(int64(threshold))
}

// Query runs a reservation query on the wrapped driver.
func (d *StatsDriver) Query(ctx context.Context, query string, args, v any) error {
	return d.run(ctx, d.Driver, reservation, query, args, v)
}

// Exec runs a write on the wrapped driver.
func (d *StatsDriver) Exec(ctx context.Context, query string, args, v any) error {
	return d.run(ctx, d.Driver, write, query, args, v)
}

// Tx starts a transaction whose statements count toward the same Stats.
func (d *StatsDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		return nil, err
	}
	return &StatsTx{Tx: tx, driver: d}, nil
}

func (d *StatsDriver) run(ctx context.Context, eq dialect.ExecQuerier, kind statementKind, query string, args, v any) error {
	start := time.Now()
	var err error
	if kind == reservation {
		err = eq.Query(ctx, query, args, v)
	} else {
		err = eq.Exec(ctx, query, args, v)
	}
	elapsed := time.Since(start)
	d.stats.observe(kind, elapsed, affected(v, err), err)
	if elapsed > d.SlowThreshold() {
		d.stats.slow.Add(1)
		if d.hook != nil {
			argv, _ := args.([]any)
			d.hook(ctx, query, argv, elapsed)
		}
	}
	return err
}

// affected returns the rows reported by a successful exec into *sql.Result.
func affected(v any, err error) int64 {
	res, ok := v.(*sql.Result)
	if err != nil || !ok || res == nil || *res == nil {
		return 0
	}
	n, err := (*res).RowsAffected()
	if err != nil {
		return 0
	}
	return n
}

// StatsTx is a transaction of a StatsDriver.
type StatsTx struct {
	dialect.Tx
	driver *StatsDriver
}

// Query runs a reservation query inside the transaction.
func (tx *StatsTx) Query(ctx context.Context, query string, args, v any) error {
	return tx.driver.run(ctx, tx.Tx, reservation, query, args, v)
}

// Exec runs a write inside the transaction.
func (tx *StatsTx) Exec(ctx context.Context, query string, args, v any) error {
	return tx.driver.run(ctx, tx.Tx, write, query, args, v)
}

// DebugDriver wraps a Driver with debug logging of every statement.
type DebugDriver struct {
	dialect.Driver
	logger *slog.Logger
}

// NewDebugDriver wraps a Driver with debug logging.
// A nil logger logs to slog.Default().
func NewDebugDriver(drv dialect.Driver, logger *slog.Logger) *DebugDriver {
	if logger == nil {
		logger = slog.Default()
	}
	return &DebugDriver{Driver: drv, logger: logger}
}

// Query executes a query and logs it.
func (d *DebugDriver) Query(ctx context.Context, query string, args, v any) error {
	d.logger.DebugContext(ctx, "query", "sql", query, "args", args)
	return d.Driver.Query(ctx, query, args, v)
}

// Exec executes a statement and logs it.
func (d *DebugDriver) Exec(ctx context.Context, query string, args, v any) error {
	d.logger.DebugContext(ctx, "exec", "sql", query, "args", args)
	return d.Driver.Exec(ctx, query, args, v)
}

// Tx starts a transaction with debug logging.
func (d *DebugDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	d.logger.DebugContext(ctx, "begin transaction")
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		return nil, err
	}
	return &DebugTx{Tx: tx, logger: d.logger}, nil
}

// DebugTx wraps a transaction with debug logging.
type DebugTx struct {
	dialect.Tx
	logger *slog.Logger
}

// Query executes a query within the transaction and logs it.
func (tx *DebugTx) Query(ctx context.Context, query string, args, v any) error {
	tx.logger.DebugContext(ctx, "tx query", "sql", query, "args", args)
	return tx.Tx.Query(ctx, query, args, v)
}

// Exec executes a statement within the transaction and logs it.
func (tx *DebugTx) Exec(ctx context.Context, query string, args, v any) error {
	tx.logger.DebugContext(ctx, "tx exec", "sql", query, "args", args)
	return tx.Tx.Exec(ctx, query, args, v)
}

// Commit commits the transaction and logs it.
func (tx *DebugTx) Commit() error {
	tx.logger.Debug("commit transaction")
	return tx.Tx.Commit()
}

// Rollback rolls back the transaction and logs it.
func (tx *DebugTx) Rollback() error {
	tx.logger.Debug("rollback transaction")
	return tx.Tx.Rollback()
}

// Ensure interfaces are implemented.
var (
	_ dialect.Driver = (*StatsDriver)(nil)
	_ dialect.Tx     = (*StatsTx)(nil)
	_ dialect.Driver = (*DebugDriver)(nil)
	_ dialect.Tx     = (*DebugTx)(nil)
)
