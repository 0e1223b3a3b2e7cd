package writer

import (
	"context"
	"log/slog"

	"github.com/syssam/bulkwrite"
	"github.com/syssam/bulkwrite/batch"
	"github.com/syssam/bulkwrite/dialect"
	"github.com/syssam/bulkwrite/schema"
	"github.com/syssam/bulkwrite/sequence"
	"github.com/syssam/bulkwrite/statement"
)

// Client writes collections of records through a batch planner and
// executor. All bulk operations are no-ops on empty input.
type Client struct {
	cfg     Config
	drv     dialect.ExecQuerier
	builder *statement.Builder
	planner *batch.Planner
	exec    *batch.Executor
	alloc   *sequence.Allocator
}

// New returns a Client writing to drv. A nil drv is accepted; operations
// with input then fail with a state error.
func New(drv dialect.ExecQuerier, opts ...Option) (*Client, error) {
	cfg := Config{
		Registry: schema.Default,
		Logger:   slog.Default(),
	}
	if d, ok := drv.(dialect.Dialector); ok {
		cfg.Dialect = dialect.For(dialect.Normalize(d.Dialect()))
	}
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	if cfg.Dialect.Name == "" {
		return nil, bulkwrite.NewConfigError("Dialect", nil, "driver reports no dialect; use WithDialect")
	}
	builder := statement.New(cfg.Dialect, cfg.Registry)
	planner, err := batch.NewPlanner(builder, cfg.Batch)
	if err != nil {
		return nil, err
	}
	c := &Client{cfg: cfg, builder: builder, planner: planner}
	c.bind(drv)
	return c, nil
}

func (c *Client) bind(drv dialect.ExecQuerier) {
	c.drv = drv
	if drv == nil {
		c.exec, c.alloc = nil, nil
		return
	}
	c.exec = batch.NewExecutor(drv, batch.WithDialect(c.cfg.Dialect.Name), batch.WithLogger(c.cfg.Logger))
	c.alloc = sequence.New(drv, c.cfg.Dialect, sequence.WithLogger(c.cfg.Logger))
}

// Config returns the client configuration.
func (c *Client) Config() Config { return c.cfg }

// Builder returns the statement builder of the client.
func (c *Client) Builder() *statement.Builder { return c.builder }

// Planner returns the batch planner of the client.
func (c *Client) Planner() *batch.Planner { return c.planner }

// Insert inserts recs and returns the number of affected rows.
func (c *Client) Insert(ctx context.Context, recs []any) (int64, error) {
	if len(recs) == 0 {
		return 0, nil
	}
	plans, err := c.planner.Insert(recs)
	if err != nil {
		return 0, err
	}
	return c.run(ctx, "insert", len(recs), plans)
}

// InsertWithSequence inserts recs with idField taken from the sequence by
// the database. An empty sequence is resolved from the entity metadata.
func (c *Client) InsertWithSequence(ctx context.Context, recs []any, idField, seq string) (int64, error) {
	if len(recs) == 0 {
		return 0, nil
	}
	plans, err := c.planner.InsertWithSequenceID(recs, idField, seq)
	if err != nil {
		return 0, err
	}
	return c.run(ctx, "insert", len(recs), plans)
}

// Update updates every non-key column of recs.
func (c *Client) Update(ctx context.Context, recs []any) (int64, error) {
	if len(recs) == 0 {
		return 0, nil
	}
	plans, err := c.planner.Update(recs)
	if err != nil {
		return 0, err
	}
	return c.run(ctx, "update", len(recs), plans)
}

// UpdateFields updates the given fields of recs.
func (c *Client) UpdateFields(ctx context.Context, recs []any, fields ...string) (int64, error) {
	if len(recs) == 0 {
		return 0, nil
	}
	plans, err := c.planner.UpdateFields(recs, fields)
	if err != nil {
		return 0, err
	}
	return c.run(ctx, "update", len(recs), plans)
}

// Delete deletes the records of type typ identified by keys.
func (c *Client) Delete(ctx context.Context, keys []any, typ any) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	plans, err := c.planner.Delete(keys, typ)
	if err != nil {
		return 0, err
	}
	return c.run(ctx, "delete", len(keys), plans)
}

// AssignSequences reserves keys for every entry in one round-trip and sets
// them on the records.
func (c *Client) AssignSequences(ctx context.Context, entries ...sequence.Entries) error {
	n := 0
	for _, e := range entries {
		n += len(e.Records)
	}
	if n == 0 {
		return nil
	}
	if c.alloc == nil {
		return bulkwrite.NewStateError("writer: nil executor")
	}
	return c.alloc.Assign(ctx, c.cfg.Registry, entries...)
}

// Reserve reserves counts[name] values of every named sequence in one
// round-trip, without binding them to records.
func (c *Client) Reserve(ctx context.Context, counts map[string]int) (map[string][]int64, error) {
	if c.alloc == nil {
		return nil, bulkwrite.NewStateError("writer: nil executor")
	}
	return c.alloc.Reserve(ctx, counts)
}

func (c *Client) run(ctx context.Context, op string, n int, plans []batch.Data) (int64, error) {
	if c.exec == nil {
		return 0, bulkwrite.NewStateError("writer: nil executor")
	}
	c.cfg.Logger.DebugContext(ctx, "bulk write",
		slog.String("op", op),
		slog.Int("records", n),
		slog.Int("templates", len(plans)),
	)
	return c.exec.Exec(ctx, plans)
}

// Tx is a client bound to a transaction.
type Tx struct {
	*Client
	tx dialect.Tx
}

// Tx starts a transaction and returns a client running inside it. The
// driver of the client must implement dialect.Driver.
func (c *Client) Tx(ctx context.Context) (*Tx, error) {
	d, ok := c.drv.(dialect.Driver)
	if !ok {
		return nil, bulkwrite.NewStateError("writer: driver does not support transactions")
	}
	tx, err := d.Tx(ctx)
	if err != nil {
		return nil, err
	}
	cc := *c
	cc.bind(tx)
	return &Tx{Client: &cc, tx: tx}, nil
}

// Commit commits the transaction.
func (tx *Tx) Commit() error { return tx.tx.Commit() }

// Rollback rolls back the transaction.
func (tx *Tx) Rollback() error { return tx.tx.Rollback() }
