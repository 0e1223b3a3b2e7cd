package batch

import (
	"reflect"

	"github.com/syssam/bulkwrite"
	"github.com/syssam/bulkwrite/statement"
)

const (
	// DefaultSize is the number of records per batch when Options.Size is zero.
	DefaultSize = 50
	// DefaultRewriteGroupSize is the number of records per multi-row
	// statement when Options.RewriteGroupSize is zero.
	DefaultRewriteGroupSize = 10
)

// Options configures a Planner.
type Options struct {
	// Size is the maximum number of records in one batch.
	Size int
	// Rewrite groups records of a batch into multi-row statements.
	Rewrite bool
	// RewriteGroupSize is the number of records in one multi-row statement.
	RewriteGroupSize int
}

func (o Options) size() int {
	if o.Size > 0 {
		return o.Size
	}
	return DefaultSize
}

func (o Options) groupSize() int {
	if o.RewriteGroupSize > 0 {
		return o.RewriteGroupSize
	}
	return DefaultRewriteGroupSize
}

// Data is a statement template with one binding set per execution.
type Data struct {
	// Query holds anonymous "?" placeholders.
	Query string
	// Bindings holds the arguments of every execution, in input order.
	Bindings [][]any
}

// Planner splits collections into batches of reusable statement templates.
type Planner struct {
	builder *statement.Builder
	opts    Options
}

// NewPlanner returns a Planner building statements with b.
func NewPlanner(b *statement.Builder, opts Options) (*Planner, error) {
	switch {
	case b == nil:
		return nil, bulkwrite.NewArgumentError("planner", "nil statement builder")
	case opts.Size < 0:
		return nil, bulkwrite.NewArgumentError("planner", "batch size %d", opts.Size)
	case opts.RewriteGroupSize < 0:
		return nil, bulkwrite.NewArgumentError("planner", "rewrite group size %d", opts.RewriteGroupSize)
	}
	return &Planner{builder: b, opts: opts}, nil
}

// Options returns the planner options.
func (p *Planner) Options() Options { return p.opts }

// buildFunc builds the statement of a group of items.
type buildFunc func(group []any) (statement.QueryData, error)

// Insert plans the insert of recs. With rewrite, groups use the default
// insert shape of the dialect.
func (p *Planner) Insert(recs []any) ([]Data, error) {
	b := p.builder
	return p.plan(recs, sameType,
		func(g []any) (statement.QueryData, error) { return b.Insert(g[0]) },
		func(g []any) (statement.QueryData, error) {
			return b.BulkInsert(b.Capabilities().InsertShape(), g, "", "")
		},
	)
}

// InsertWithSequenceID plans the insert of recs with idField taken from the
// sequence. An empty sequence is resolved from the entity metadata.
func (p *Planner) InsertWithSequenceID(recs []any, idField, sequence string) ([]Data, error) {
	b := p.builder
	return p.plan(recs, sameType,
		func(g []any) (statement.QueryData, error) { return b.InsertWithSequenceID(g, idField, sequence) },
		func(g []any) (statement.QueryData, error) {
			return b.BulkInsert(b.Capabilities().InsertShape(), g, idField, sequence)
		},
	)
}

// Update plans a full update of every record. Updates are never rewritten.
func (p *Planner) Update(recs []any) ([]Data, error) {
	return p.plan(recs, sameType,
		func(g []any) (statement.QueryData, error) { return p.builder.Update(g[0]) },
		nil,
	)
}

// UpdateFields plans an update of the given fields of every record.
func (p *Planner) UpdateFields(recs []any, fields []string) ([]Data, error) {
	return p.plan(recs, sameType,
		func(g []any) (statement.QueryData, error) { return p.builder.UpdateFields(g[0], fields) },
		nil,
	)
}

// Delete plans the delete of keys of the entity typ. With rewrite, groups
// of keys are deleted by one statement.
func (p *Planner) Delete(keys []any, typ any) ([]Data, error) {
	b := p.builder
	return p.plan(keys, nil,
		func(g []any) (statement.QueryData, error) { return b.Delete(g[0], typ) },
		func(g []any) (statement.QueryData, error) { return b.DeleteAll(g, typ) },
	)
}

// plan walks items in batches of the configured size. Within a batch, items
// are grouped (one per group without rewrite) and consecutive groups with
// the same template share one Data. A group never spans a type change.
func (p *Planner) plan(items []any, same func(a, b any) bool, single, multi buildFunc) ([]Data, error) {
	var (
		plans []Data
		size  = p.opts.size()
		step  = 1
		build = single
	)
	if p.opts.Rewrite && multi != nil {
		step, build = p.opts.groupSize(), multi
	}
	for start := 0; start < len(items); start += size {
		chunk := items[start:min(start+size, len(items))]
		last := -1
		for i := 0; i < len(chunk); {
			j := i + 1
			for j < len(chunk) && j-i < step && (same == nil || same(chunk[i], chunk[j])) {
				j++
			}
			q, err := build(chunk[i:j])
			if err != nil {
				return nil, err
			}
			tmpl := statement.ClearPlaceholders(q.Query)
			if last >= 0 && plans[last].Query == tmpl {
				plans[last].Bindings = append(plans[last].Bindings, q.Positions)
			} else {
				plans = append(plans, Data{Query: tmpl, Bindings: [][]any{q.Positions}})
				last = len(plans) - 1
			}
			i = j
		}
	}
	return plans, nil
}

func sameType(a, b any) bool {
	return indirect(reflect.TypeOf(a)) == indirect(reflect.TypeOf(b))
}

func indirect(t reflect.Type) reflect.Type {
	if t != nil && t.Kind() == reflect.Pointer {
		return t.Elem()
	}
	return t
}
