package batch

import (
	"context"
	"log/slog"

	"github.com/syssam/bulkwrite"
	"github.com/syssam/bulkwrite/dialect"
	"github.com/syssam/bulkwrite/dialect/sql"
)

// Executor runs planned batches on an external executor.
type Executor struct {
	drv         dialect.ExecQuerier
	placeholder dialect.Placeholder
	logger      *slog.Logger
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithDialect sets the placeholder style from the named dialect. It
// defaults to the dialect reported by the executor, if any.
func WithDialect(name string) ExecutorOption {
	return func(e *Executor) {
		e.placeholder = dialect.For(dialect.Normalize(name)).Placeholder
	}
}

// WithLogger sets the logger used for statement logs.
func WithLogger(l *slog.Logger) ExecutorOption {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewExecutor returns an Executor running statements on drv.
func NewExecutor(drv dialect.ExecQuerier, opts ...ExecutorOption) *Executor {
	e := &Executor{drv: drv, logger: slog.Default()}
	if d, ok := drv.(dialect.Dialector); ok {
		e.placeholder = dialect.For(dialect.Normalize(d.Dialect())).Placeholder
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Exec runs every binding set of plans in order and returns the number of
// affected rows, as far as the driver reports it. The first error is
// returned unmodified; nothing is retried.
func (e *Executor) Exec(ctx context.Context, plans []Data) (int64, error) {
	if e == nil || e.drv == nil {
		return 0, bulkwrite.NewStateError("batch: nil executor")
	}
	var affected int64
	for _, p := range plans {
		query := sql.Rebind(e.placeholder, p.Query)
		e.logger.DebugContext(ctx, "batch exec",
			slog.String("query", query),
			slog.Int("executions", len(p.Bindings)),
		)
		for i, args := range p.Bindings {
			var res sql.Result
			if err := e.drv.Exec(ctx, query, args, &res); err != nil {
				attrs := []any{
					slog.String("query", query),
					slog.Int("execution", i),
					slog.String("error", err.Error()),
				}
				if kind := sql.Constraint(err); kind != sql.NotConstraint {
					attrs = append(attrs, slog.String("constraint", kind.String()))
				}
				e.logger.WarnContext(ctx, "batch exec failed", attrs...)
				return affected, err
			}
			if res == nil {
				continue
			}
			if n, err := res.RowsAffected(); err == nil {
				affected += n
			}
		}
	}
	return affected, nil
}
