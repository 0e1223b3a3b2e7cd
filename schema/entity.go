package schema

import (
	"reflect"

	"github.com/syssam/bulkwrite"
	"github.com/syssam/bulkwrite/schema/field"
)

// KeyShape is the shape of a primary key.
type KeyShape uint8

// Primary key shapes.
const (
	SingleKey     KeyShape = iota // one ID field
	EmbeddedIDKey                 // fields of an embedded key struct
	IDClassKey                    // several ID fields mirrored by an external key type
)

// String returns the key shape name.
func (s KeyShape) String() string {
	switch s {
	case EmbeddedIDKey:
		return "embedded-id"
	case IDClassKey:
		return "id-class"
	default:
		return "single"
	}
}

// Column describes a persistent field and its column.
type Column struct {
	Field      string // Go field name.
	Name       string // column name.
	PrimaryKey bool
	Generated  bool
	Sequence   string // field level sequence, if any.

	desc *field.Descriptor
}

// Value reads the column value from rec.
func (c *Column) Value(rec any) (any, error) {
	return c.desc.Value(rec)
}

// SetValue writes v into the column field of rec, a pointer to the record.
func (c *Column) SetValue(rec, v any) error {
	return c.desc.SetValue(rec, v)
}

// Key describes the primary key of an entity.
type Key struct {
	Shape       KeyShape
	Columns     []*Column    // key columns, in column order.
	Holder      reflect.Type // key struct type, nil for SingleKey.
	HolderField string       // name of the embedded key field (EmbeddedIDKey).

	holder []*field.Descriptor // accessors on Holder, aligned with Columns.
}

// Entity is the resolved metadata of a record type.
type Entity struct {
	Type    reflect.Type
	Table   string
	Columns []*Column // persistent columns, ancestors first.
	Key     *Key

	sequences []string // type level sequences, nearest first.
	fields    map[string]*Column
}

// Name returns the record type name.
func (e *Entity) Name() string {
	return e.Type.String()
}

// QualifiedTable returns the table name, or a resolution error if the type
// has no table mapping.
func (e *Entity) QualifiedTable() (string, error) {
	if e.Table == "" {
		return "", bulkwrite.NewResolutionError(e.Name(), "", "no table mapping")
	}
	return e.Table, nil
}

// Column returns the column mapped by the given Go field name.
func (e *Entity) Column(fieldName string) (*Column, bool) {
	c, ok := e.fields[fieldName]
	return c, ok
}

// ValueColumns returns the columns that are not part of the primary key.
func (e *Entity) ValueColumns() []*Column {
	cs := make([]*Column, 0, len(e.Columns)-len(e.Key.Columns))
	for _, c := range e.Columns {
		if !c.PrimaryKey {
			cs = append(cs, c)
		}
	}
	return cs
}

// Owns reports whether rec is a record (or a pointer to a record) of the entity type.
func (e *Entity) Owns(rec any) bool {
	t := reflect.TypeOf(rec)
	return t == e.Type || (t != nil && t.Kind() == reflect.Pointer && t.Elem() == e.Type)
}

// Values returns the values of all columns of rec, in column order.
func (e *Entity) Values(rec any) ([]any, error) {
	return e.ValuesOf(rec, e.Columns)
}

// ValuesOf returns the values of the given columns of rec.
func (e *Entity) ValuesOf(rec any, columns []*Column) ([]any, error) {
	if !e.Owns(rec) {
		return nil, bulkwrite.NewArgumentError("bind", "expect %s record, got %T", e.Name(), rec)
	}
	vs := make([]any, len(columns))
	for i, c := range columns {
		v, err := c.Value(rec)
		if err != nil {
			return nil, err
		}
		vs[i] = v
	}
	return vs, nil
}

// RecordKey returns the primary key values of rec, in key column order.
func (e *Entity) RecordKey(rec any) ([]any, error) {
	return e.ValuesOf(rec, e.Key.Columns)
}

// KeyValues returns the key column values for key. A key is the scalar
// value of a single key, the key struct of an embedded id or id class
// (value or pointer), or a record of the entity itself.
func (e *Entity) KeyValues(key any) ([]any, error) {
	switch {
	case key == nil:
		return nil, bulkwrite.NewArgumentError("key", "nil key for %s", e.Name())
	case e.Owns(key):
		return e.RecordKey(key)
	case e.Key.Shape == SingleKey:
		return []any{key}, nil
	}
	if t := reflect.TypeOf(key); t != e.Key.Holder && !(t.Kind() == reflect.Pointer && t.Elem() == e.Key.Holder) {
		return nil, bulkwrite.NewArgumentError("key", "expect %s key of type %s, got %T", e.Name(), e.Key.Holder, key)
	}
	vs := make([]any, len(e.Key.holder))
	for i, d := range e.Key.holder {
		v, err := d.Value(key)
		if err != nil {
			return nil, err
		}
		vs[i] = v
	}
	return vs, nil
}

// SetKey assigns key to the primary key columns of rec.
func (e *Entity) SetKey(rec, key any) error {
	vs, err := e.KeyValues(key)
	if err != nil {
		return err
	}
	for i, c := range e.Key.Columns {
		if err := c.SetValue(rec, vs[i]); err != nil {
			return err
		}
	}
	return nil
}

// SequenceName returns the sequence that generates values for fieldName:
// the field's own sequence first, then the sequence of the type, then the
// sequences of its ancestors, nearest first. It is empty when none is
// declared.
func (e *Entity) SequenceName(fieldName string) string {
	if c, ok := e.fields[fieldName]; ok && c.Sequence != "" {
		return c.Sequence
	}
	for _, s := range e.sequences {
		if s != "" {
			return s
		}
	}
	return ""
}
