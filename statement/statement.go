package statement

import (
	"strings"

	"github.com/syssam/bulkwrite"
	"github.com/syssam/bulkwrite/dialect"
	"github.com/syssam/bulkwrite/dialect/sql"
	"github.com/syssam/bulkwrite/schema"
)

// QueryData is a built statement and its bindings.
type QueryData struct {
	// Query holds "?1".."?N" placeholders (or "?" after ClearPlaceholders).
	Query string
	// Positions holds the value of placeholder ?i at index i-1.
	Positions []any
	// Named holds the values of single-row statements by column name.
	Named map[string]any
}

// Args returns the positional bindings.
func (q QueryData) Args() []any { return q.Positions }

// Builder builds insert, update and delete statements from resolved entity
// metadata. Builders hold no per-statement state and are safe for
// concurrent use.
type Builder struct {
	caps     dialect.Capabilities
	registry *schema.Registry
}

// New returns a Builder for the given dialect capabilities. A nil registry
// uses schema.Default.
func New(caps dialect.Capabilities, r *schema.Registry) *Builder {
	if r == nil {
		r = schema.Default
	}
	return &Builder{caps: caps, registry: r}
}

// Capabilities returns the dialect capabilities of the builder.
func (b *Builder) Capabilities() dialect.Capabilities { return b.caps }

// Registry returns the registry used to resolve records.
func (b *Builder) Registry() *schema.Registry { return b.registry }

// Records converts a typed slice into the []any form taken by the builder.
func Records[T any](recs []T) []any {
	out := make([]any, len(recs))
	for i, r := range recs {
		out[i] = r
	}
	return out
}

// Insert builds a single row insert:
//
//	INSERT INTO t (a, b) VALUES (?1, ?2)
func (b *Builder) Insert(rec any) (QueryData, error) {
	e, table, err := b.table("insert", []any{rec})
	if err != nil {
		return QueryData{}, err
	}
	vs, err := e.Values(rec)
	if err != nil {
		return QueryData{}, err
	}
	var (
		p  params
		sb strings.Builder
	)
	insertInto(&sb, table, e.Columns)
	sb.WriteString(" VALUES (")
	for i, c := range e.Columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.addNamed(c.Name, vs[i]))
	}
	sb.WriteByte(')')
	return p.data(sb.String()), nil
}

// MultiInsert builds one insert with a VALUES tuple per record. All records
// must be of the same type. More than one record needs multi-row VALUES
// support. Placeholders are numbered across rows:
//
//	INSERT INTO t (a, b) VALUES (?1, ?2), (?3, ?4)
func (b *Builder) MultiInsert(recs []any) (QueryData, error) {
	return b.multiInsert("multi-insert", recs, -1, "")
}

// InsertWithSequenceID is like MultiInsert but the column of idField takes
// the next value of the sequence instead of a placeholder. An empty
// sequence is resolved from the entity metadata.
//
//	INSERT INTO t (id, a) VALUES (nextval('t_seq'), ?1), (nextval('t_seq'), ?2)
func (b *Builder) InsertWithSequenceID(recs []any, idField, sequence string) (QueryData, error) {
	e, _, err := b.table("insert", recs)
	if err != nil {
		return QueryData{}, err
	}
	idx, seq, err := b.sequenceColumn(e, idField, sequence)
	if err != nil {
		return QueryData{}, err
	}
	return b.multiInsert("insert", recs, idx, b.caps.NextVal(seq))
}

// multiInsert builds the multi-row insert. When idx is not negative, the
// column at idx is replaced with the expression next in every row.
func (b *Builder) multiInsert(op string, recs []any, idx int, next string) (QueryData, error) {
	e, table, err := b.table(op, recs)
	if err != nil {
		return QueryData{}, err
	}
	if len(recs) > 1 && !b.caps.Supports(dialect.MultiRowInsert) {
		return QueryData{}, bulkwrite.NewUnsupportedError(b.caps.Name, dialect.MultiRowInsert.String()+" insert")
	}
	var (
		p  params
		sb strings.Builder
	)
	insertInto(&sb, table, e.Columns)
	sb.WriteString(" VALUES ")
	for i, rec := range recs {
		vs, err := e.Values(rec)
		if err != nil {
			return QueryData{}, err
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		for j, v := range vs {
			if j > 0 {
				sb.WriteString(", ")
			}
			if j == idx {
				sb.WriteString(next)
				continue
			}
			sb.WriteString(p.add(v))
		}
		sb.WriteByte(')')
	}
	return p.data(sb.String()), nil
}

// SequenceDerivedInsert builds an insert that selects the next sequence
// value for idField alongside a derived table of the records:
//
//	INSERT INTO t (id, a, b) SELECT t_seq.nextval, mt.* FROM (
//	  SELECT (?1) AS a, (?2) AS b FROM DUAL UNION ALL SELECT (?3) AS a, (?4) AS b FROM DUAL) mt
//
// (without the line break). Dialects without DerivedSelectInsert get an
// UnsupportedError.
func (b *Builder) SequenceDerivedInsert(recs []any, idField, sequence string) (QueryData, error) {
	if !b.caps.Supports(dialect.SequenceDerivedInsert) {
		return QueryData{}, bulkwrite.NewUnsupportedError(b.caps.Name, dialect.SequenceDerivedInsert.String()+" insert")
	}
	e, table, err := b.table("sequence-derived insert", recs)
	if err != nil {
		return QueryData{}, err
	}
	idx, seq, err := b.sequenceColumn(e, idField, sequence)
	if err != nil {
		return QueryData{}, err
	}
	names := make([]string, 0, len(e.Columns))
	names = append(names, e.Columns[idx].Name)
	for i, c := range e.Columns {
		if i != idx {
			names = append(names, c.Name)
		}
	}
	var (
		p  params
		sb strings.Builder
	)
	sb.WriteString("INSERT INTO ")
	sb.WriteString(table)
	sb.WriteString(" (")
	joinColumns(&sb, "", names)
	sb.WriteString(") SELECT ")
	sb.WriteString(b.caps.NextVal(seq))
	sb.WriteString(", mt.* FROM (")
	for i, rec := range recs {
		vs, err := e.Values(rec)
		if err != nil {
			return QueryData{}, err
		}
		if i > 0 {
			sb.WriteString(" UNION ALL ")
		}
		sb.WriteString("SELECT ")
		first := true
		for j, c := range e.Columns {
			if j == idx {
				continue
			}
			if !first {
				sb.WriteString(", ")
			}
			first = false
			sb.WriteByte('(')
			sb.WriteString(p.add(vs[j]))
			sb.WriteString(") AS ")
			sb.WriteString(c.Name)
		}
		if b.caps.DualTable != "" {
			sb.WriteString(" FROM ")
			sb.WriteString(b.caps.DualTable)
		}
	}
	sb.WriteString(") mt")
	return p.data(sb.String()), nil
}

// InsertAll builds a fan-out insert over the records of every group. Groups
// may hold records of different types:
//
//	INSERT ALL
//	INTO t1 (a, b) VALUES (?1, ?2)
//	INTO t2 (c) VALUES (?3)
//	SELECT * FROM dual
func (b *Builder) InsertAll(groups ...[]any) (QueryData, error) {
	var (
		p  params
		sb strings.Builder
		n  int
	)
	sb.WriteString("INSERT ALL ")
	for _, g := range groups {
		for _, rec := range g {
			e, err := b.registry.Resolve(rec)
			if err != nil {
				return QueryData{}, err
			}
			table, err := e.QualifiedTable()
			if err != nil {
				return QueryData{}, err
			}
			vs, err := e.Values(rec)
			if err != nil {
				return QueryData{}, err
			}
			sb.WriteString("\nINTO ")
			sb.WriteString(table)
			sb.WriteString(" (")
			joinColumns(&sb, "", columnNames(e.Columns))
			sb.WriteString(") VALUES (")
			for i, v := range vs {
				if i > 0 {
					sb.WriteString(", ")
				}
				sb.WriteString(p.add(v))
			}
			sb.WriteByte(')')
			n++
		}
	}
	if n == 0 {
		return QueryData{}, bulkwrite.NewArgumentError("insert-all", "no records")
	}
	sb.WriteString("\nSELECT * FROM dual")
	return p.data(sb.String()), nil
}

// BulkInsert builds a multi-row insert of the given shape. A non-empty
// idField takes its values from the sequence; with the fan-out shape it
// switches to the sequence-derived shape, since a fan-out insert evaluates
// the next value once for the whole statement.
func (b *Builder) BulkInsert(shape dialect.InsertShape, recs []any, idField, sequence string) (QueryData, error) {
	if !b.caps.Supports(shape) {
		return QueryData{}, bulkwrite.NewUnsupportedError(b.caps.Name, shape.String()+" insert")
	}
	switch shape {
	case dialect.MultiRowInsert:
		if idField != "" {
			return b.InsertWithSequenceID(recs, idField, sequence)
		}
		return b.MultiInsert(recs)
	case dialect.DialectFanOutInsert:
		if idField != "" {
			return b.SequenceDerivedInsert(recs, idField, sequence)
		}
		if _, _, err := b.table("insert-all", recs); err != nil {
			return QueryData{}, err
		}
		return b.InsertAll(recs)
	case dialect.SequenceDerivedInsert:
		if idField == "" {
			return QueryData{}, bulkwrite.NewArgumentError("sequence-derived insert", "no id field")
		}
		return b.SequenceDerivedInsert(recs, idField, sequence)
	default:
		return QueryData{}, bulkwrite.NewArgumentError("insert", "unknown insert shape %v", shape)
	}
}

// Update builds an update of every non-key column of rec:
//
//	UPDATE t SET a = ?1, b = ?2 WHERE k1 = ?3 AND k2 = ?4
func (b *Builder) Update(rec any) (QueryData, error) {
	e, table, err := b.table("update", []any{rec})
	if err != nil {
		return QueryData{}, err
	}
	cols := e.ValueColumns()
	if len(cols) == 0 {
		return QueryData{}, bulkwrite.NewArgumentError("update", "%s has no non-key columns", e.Name())
	}
	return b.update(e, table, rec, cols)
}

// UpdateFields builds an update of the given fields of rec. Key fields in
// fields are not updated; at least one non-key field is required.
func (b *Builder) UpdateFields(rec any, fields []string) (QueryData, error) {
	e, table, err := b.table("update", []any{rec})
	if err != nil {
		return QueryData{}, err
	}
	cols, err := UpdateColumns(e, fields)
	if err != nil {
		return QueryData{}, err
	}
	return b.update(e, table, rec, cols)
}

// UpdateColumns returns the non-key columns of e named by fields, in column
// order.
func UpdateColumns(e *schema.Entity, fields []string) ([]*schema.Column, error) {
	if len(fields) == 0 {
		return nil, bulkwrite.NewArgumentError("update", "no fields to update")
	}
	selected := make(map[string]bool, len(fields))
	for _, f := range fields {
		if _, ok := e.Column(f); !ok {
			return nil, bulkwrite.NewArgumentError("update", "unknown field %s.%s", e.Name(), f)
		}
		selected[f] = true
	}
	var cols []*schema.Column
	for _, c := range e.Columns {
		if selected[c.Field] && !c.PrimaryKey {
			cols = append(cols, c)
		}
	}
	if len(cols) == 0 {
		return nil, bulkwrite.NewArgumentError("update", "fields %v hold only key columns", fields)
	}
	return cols, nil
}

func (b *Builder) update(e *schema.Entity, table string, rec any, cols []*schema.Column) (QueryData, error) {
	vs, err := e.ValuesOf(rec, cols)
	if err != nil {
		return QueryData{}, err
	}
	key, err := e.RecordKey(rec)
	if err != nil {
		return QueryData{}, err
	}
	var (
		p  params
		sb strings.Builder
	)
	sb.WriteString("UPDATE ")
	sb.WriteString(table)
	sb.WriteString(" SET ")
	for i, c := range cols {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(c.Name)
		sb.WriteString(" = ")
		sb.WriteString(p.addNamed(c.Name, vs[i]))
	}
	sb.WriteString(" WHERE ")
	keyPredicate(&sb, &p, "", e.Key.Columns, key, true)
	return p.data(sb.String()), nil
}

// Delete builds a delete by key. typ is a record, a pointer to a record or
// a reflect.Type; key is accepted in the forms of schema.Entity.KeyValues.
//
//	DELETE FROM t WHERE k1 = ?1 AND k2 = ?2
func (b *Builder) Delete(key, typ any) (QueryData, error) {
	e, table, err := b.entityTable(typ)
	if err != nil {
		return QueryData{}, err
	}
	vs, err := e.KeyValues(key)
	if err != nil {
		return QueryData{}, err
	}
	var (
		p  params
		sb strings.Builder
	)
	sb.WriteString("DELETE FROM ")
	sb.WriteString(table)
	sb.WriteString(" WHERE ")
	keyPredicate(&sb, &p, "", e.Key.Columns, vs, true)
	return p.data(sb.String()), nil
}

// DeleteAll builds a delete of several keys:
//
//	DELETE FROM t WHERE (k1 = ?1 AND k2 = ?2) OR (k1 = ?3 AND k2 = ?4)
func (b *Builder) DeleteAll(keys []any, typ any) (QueryData, error) {
	e, table, err := b.entityTable(typ)
	if err != nil {
		return QueryData{}, err
	}
	where, err := whereKeys(e, keys, "")
	if err != nil {
		return QueryData{}, err
	}
	where.Query = "DELETE FROM " + table + " WHERE " + where.Query
	return where, nil
}

// WhereKeys builds a predicate matching any of keys, with the key columns
// prefixed by alias when it is not empty:
//
//	(a.k1 = ?1 AND a.k2 = ?2) OR (a.k1 = ?3 AND a.k2 = ?4)
func (b *Builder) WhereKeys(keys []any, typ any, alias string) (QueryData, error) {
	e, err := b.registry.Resolve(typ)
	if err != nil {
		return QueryData{}, err
	}
	return whereKeys(e, keys, alias)
}

func whereKeys(e *schema.Entity, keys []any, alias string) (QueryData, error) {
	if len(keys) == 0 {
		return QueryData{}, bulkwrite.NewArgumentError("where-keys", "no keys")
	}
	var (
		p  params
		sb strings.Builder
	)
	for i, k := range keys {
		vs, err := e.KeyValues(k)
		if err != nil {
			return QueryData{}, err
		}
		if i > 0 {
			sb.WriteString(" OR ")
		}
		sb.WriteByte('(')
		keyPredicate(&sb, &p, alias, e.Key.Columns, vs, false)
		sb.WriteByte(')')
	}
	return p.data(sb.String()), nil
}

func keyPredicate(sb *strings.Builder, p *params, alias string, cols []*schema.Column, vs []any, named bool) {
	for i, c := range cols {
		if i > 0 {
			sb.WriteString(" AND ")
		}
		if alias != "" {
			sb.WriteString(alias)
			sb.WriteByte('.')
		}
		sb.WriteString(c.Name)
		sb.WriteString(" = ")
		if named {
			sb.WriteString(p.addNamed(c.Name, vs[i]))
		} else {
			sb.WriteString(p.add(vs[i]))
		}
	}
}

// table resolves the entity shared by recs and its table name.
func (b *Builder) table(op string, recs []any) (*schema.Entity, string, error) {
	if len(recs) == 0 {
		return nil, "", bulkwrite.NewArgumentError(op, "no records")
	}
	e, err := b.registry.Resolve(recs[0])
	if err != nil {
		return nil, "", err
	}
	for _, rec := range recs[1:] {
		if !e.Owns(rec) {
			return nil, "", bulkwrite.NewArgumentError(op, "expect %s records, got %T", e.Name(), rec)
		}
	}
	table, err := e.QualifiedTable()
	if err != nil {
		return nil, "", err
	}
	return e, table, nil
}

func (b *Builder) entityTable(typ any) (*schema.Entity, string, error) {
	e, err := b.registry.Resolve(typ)
	if err != nil {
		return nil, "", err
	}
	table, err := e.QualifiedTable()
	if err != nil {
		return nil, "", err
	}
	return e, table, nil
}

// sequenceColumn returns the column index of idField and the sequence that
// feeds it.
func (b *Builder) sequenceColumn(e *schema.Entity, idField, sequence string) (int, string, error) {
	if !b.caps.Sequences {
		return 0, "", bulkwrite.NewUnsupportedError(b.caps.Name, "sequences")
	}
	idx := -1
	for i, c := range e.Columns {
		if c.Field == idField {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0, "", bulkwrite.NewArgumentError("insert", "unknown field %s.%s", e.Name(), idField)
	}
	if sequence == "" {
		sequence = e.SequenceName(idField)
	}
	if sequence == "" {
		return 0, "", bulkwrite.NewResolutionError(e.Name(), idField, "no sequence name")
	}
	if !sql.IsValidIdentifier(sequence) {
		return 0, "", bulkwrite.NewArgumentError("insert", "invalid sequence name %q", sequence)
	}
	return idx, sequence, nil
}

func insertInto(sb *strings.Builder, table string, cols []*schema.Column) {
	sb.WriteString("INSERT INTO ")
	sb.WriteString(table)
	sb.WriteString(" (")
	joinColumns(sb, "", columnNames(cols))
	sb.WriteByte(')')
}

func columnNames(cols []*schema.Column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}
