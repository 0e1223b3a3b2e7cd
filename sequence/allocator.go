package sequence

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"reflect"
	"slices"
	"strings"

	"github.com/syssam/bulkwrite"
	"github.com/syssam/bulkwrite/dialect"
	"github.com/syssam/bulkwrite/dialect/sql"
	"github.com/syssam/bulkwrite/schema"
)

// AliasPrefix prefixes the result column of each reserved sequence.
const AliasPrefix = "SEQUENCE_"

// Allocator reserves sequence values in a single round-trip.
type Allocator struct {
	drv    dialect.ExecQuerier
	caps   dialect.Capabilities
	logger *slog.Logger
}

// Option configures an Allocator.
type Option func(*Allocator)

// WithLogger sets the logger used for reservation logs.
func WithLogger(l *slog.Logger) Option {
	return func(a *Allocator) {
		if l != nil {
			a.logger = l
		}
	}
}

// New returns an Allocator that runs reservations on drv.
func New(drv dialect.ExecQuerier, caps dialect.Capabilities, opts ...Option) *Allocator {
	a := &Allocator{drv: drv, caps: caps, logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Reserve reserves counts[name] values of every named sequence. Each returned
// list has exactly the requested length, in allocation order. Names with a
// zero count are ignored and an empty request returns without a round-trip.
func (a *Allocator) Reserve(ctx context.Context, counts map[string]int) (map[string][]int64, error) {
	query, names, err := a.Query(counts)
	if err != nil {
		return nil, err
	}
	reserved := make(map[string][]int64, len(names))
	if len(names) == 0 {
		return reserved, nil
	}
	if a.drv == nil {
		return nil, bulkwrite.NewStateError("sequence: nil executor")
	}
	var rows sql.Rows
	if err := a.drv.Query(ctx, query, []any{}, &rows); err != nil {
		return nil, err
	}
	defer rows.Close()
	dest := make([]sql.NullInt64, len(names))
	ptrs := make([]any, len(names))
	for i := range dest {
		ptrs[i] = &dest[i]
	}
	for rows.Next() {
		clear(dest)
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("sequence: scan reservation: %w", err)
		}
		for i, v := range dest {
			if v.Valid {
				reserved[names[i]] = append(reserved[names[i]], v.Int64)
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, name := range names {
		if got := len(reserved[name]); got != counts[name] {
			return nil, bulkwrite.NewAllocationBoundsError(name, counts[name], got)
		}
	}
	a.logger.DebugContext(ctx, "sequence values reserved",
		slog.String("dialect", a.caps.Name),
		slog.Any("counts", counts),
	)
	return reserved, nil
}

// Query returns the reservation query for counts and the sequence names in
// result column order. Names are sorted and validated as identifiers since
// they are interpolated into the query text.
func (a *Allocator) Query(counts map[string]int) (string, []string, error) {
	var (
		names []string
		most  int
	)
	for _, name := range slices.Sorted(maps.Keys(counts)) {
		n := counts[name]
		switch {
		case n < 0:
			return "", nil, bulkwrite.NewArgumentError("reserve", "negative count %d for sequence %q", n, name)
		case n == 0:
			continue
		case !sql.IsValidIdentifier(name):
			return "", nil, bulkwrite.NewArgumentError("reserve", "invalid sequence name %q", name)
		}
		names = append(names, name)
		most = max(most, n)
	}
	if len(names) == 0 {
		return "", nil, nil
	}
	if !a.caps.Sequences {
		return "", nil, bulkwrite.NewUnsupportedError(a.caps.Name, "sequences")
	}
	var index, from string
	switch a.caps.Name {
	case dialect.Oracle:
		index, from = "rownum", fmt.Sprintf("(SELECT level FROM dual CONNECT BY level <= %d)", most)
	case dialect.Postgres:
		index, from = "n", fmt.Sprintf("generate_series(1, %d) AS g(n)", most)
	case dialect.MySQL:
		index, from = "seq", fmt.Sprintf("seq_1_to_%d", most)
	default:
		return "", nil, bulkwrite.NewUnsupportedError(a.caps.Name, "sequence reservation")
	}
	var b strings.Builder
	b.WriteString("SELECT ")
	for i, name := range names {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "(CASE WHEN %s <= %d THEN %s ELSE null END) AS %s%s",
			index, counts[name], a.caps.NextVal(name), AliasPrefix, strings.ReplaceAll(name, ".", "_"))
	}
	b.WriteString(" FROM ")
	b.WriteString(from)
	return b.String(), names, nil
}

// Distribute returns n keys drawn from reserved. Each reserved value serves
// allocationSize consecutive records: record i gets
// reserved[i/allocationSize] + i%allocationSize.
func Distribute(reserved []int64, allocationSize, n int) ([]int64, error) {
	if allocationSize < 1 {
		return nil, bulkwrite.NewArgumentError("distribute", "allocation size %d, expect at least 1", allocationSize)
	}
	if n <= 0 {
		return nil, nil
	}
	if need := Needed(n, allocationSize); len(reserved) < need {
		return nil, bulkwrite.NewAllocationBoundsError("", need, len(reserved))
	}
	keys := make([]int64, n)
	for i := range keys {
		keys[i] = reserved[i/allocationSize] + int64(i%allocationSize)
	}
	return keys, nil
}

// Needed returns the number of reserved values that n records consume.
func Needed(n, allocationSize int) int {
	if n <= 0 || allocationSize < 1 {
		return 0
	}
	return (n + allocationSize - 1) / allocationSize
}

// Entries bundles records with the sequence that generates their keys.
type Entries struct {
	// Records are pointers to records of one entity type.
	Records []any
	// Sequence overrides the sequence resolved from the entity definition.
	Sequence string
	// Field is the field receiving the keys. It defaults to the single key field.
	Field string
	// AllocationSize is the number of records served by one reserved value.
	// Zero means one.
	AllocationSize int
}

type assignment struct {
	col    *schema.Column
	recs   []any
	seq    string
	alloc  int
	offset int
}

// Assign reserves keys for all entries in one round-trip and writes them to
// the records. Entries sharing a sequence draw consecutive slices of one
// reservation.
func (a *Allocator) Assign(ctx context.Context, r *schema.Registry, entries ...Entries) error {
	if r == nil {
		r = schema.Default
	}
	var (
		plan   []assignment
		counts = make(map[string]int)
	)
	for _, en := range entries {
		if len(en.Records) == 0 {
			continue
		}
		as, err := resolve(r, en)
		if err != nil {
			return err
		}
		as.offset = counts[as.seq]
		counts[as.seq] += Needed(len(as.recs), as.alloc)
		plan = append(plan, as)
	}
	reserved, err := a.Reserve(ctx, counts)
	if err != nil {
		return err
	}
	for _, as := range plan {
		vs := reserved[as.seq]
		keys, err := Distribute(vs[as.offset:], as.alloc, len(as.recs))
		if err != nil {
			return err
		}
		for i, rec := range as.recs {
			if err := as.col.SetValue(rec, keys[i]); err != nil {
				return fmt.Errorf("sequence: assign %s: %w", as.col.Field, err)
			}
		}
	}
	return nil
}

func resolve(r *schema.Registry, en Entries) (assignment, error) {
	e, err := r.Resolve(en.Records[0])
	if err != nil {
		return assignment{}, err
	}
	for i, rec := range en.Records {
		if !e.Owns(rec) {
			return assignment{}, bulkwrite.NewArgumentError("assign", "mixed record types %s and %T", e.Name(), rec)
		}
		if rv := reflect.ValueOf(rec); rv.Kind() != reflect.Pointer || rv.IsNil() {
			return assignment{}, bulkwrite.NewArgumentError("assign", "record %d of %s is %T, expect a non-nil pointer", i, e.Name(), rec)
		}
	}
	name := en.Field
	if name == "" {
		if e.Key.Shape != schema.SingleKey {
			return assignment{}, bulkwrite.NewArgumentError("assign", "%s has a %s key, name the field to assign", e.Name(), e.Key.Shape)
		}
		name = e.Key.Columns[0].Field
	}
	col, ok := e.Column(name)
	if !ok {
		return assignment{}, bulkwrite.NewArgumentError("assign", "unknown field %s.%s", e.Name(), name)
	}
	seq := en.Sequence
	if seq == "" {
		seq = e.SequenceName(name)
	}
	if seq == "" {
		return assignment{}, bulkwrite.NewResolutionError(e.Name(), name, "no sequence declared")
	}
	alloc := en.AllocationSize
	if alloc == 0 {
		alloc = 1
	}
	if alloc < 0 {
		return assignment{}, bulkwrite.NewArgumentError("assign", "allocation size %d, expect at least 1", alloc)
	}
	return assignment{col: col, recs: en.Records, seq: seq, alloc: alloc}, nil
}
