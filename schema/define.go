package schema

import (
	"fmt"
	"log/slog"
	"reflect"

	"github.com/syssam/bulkwrite"
	"github.com/syssam/bulkwrite/schema/field"
)

// Definer is implemented by record definitions created with Define.
type Definer interface {
	// Type returns the record type being defined.
	Type() reflect.Type
	resolve(logger *slog.Logger) (*Entity, error)
}

// Definition declares the table mapping of the record type T.
//
//	var Orders = schema.Define[Order]().
//	    Table("orders").
//	    Sequence("order_seq").
//	    Fields(
//	        field.Of("ID", func(o *Order) *int64 { return &o.ID }).ID(),
//	        field.Of("Total", func(o *Order) *float64 { return &o.Total }),
//	    )
type Definition[T any] struct {
	table    string
	sequence string
	parents  []*Parent
	fields   []field.Field
	keys     []*KeyHolder
}

// Define starts the definition of the record type T.
func Define[T any]() *Definition[T] {
	return &Definition[T]{}
}

// Table sets the table name.
func (d *Definition[T]) Table(name string) *Definition[T] {
	d.table = name
	return d
}

// Sequence sets the type level sequence name.
func (d *Definition[T]) Sequence(name string) *Definition[T] {
	d.sequence = name
	return d
}

// Inherit adds ancestors whose fields precede the fields of T.
// Ancestors are listed farthest first, the nearest one last.
func (d *Definition[T]) Inherit(parents ...*Parent) *Definition[T] {
	d.parents = append(d.parents, parents...)
	return d
}

// Fields adds the fields declared directly on T.
func (d *Definition[T]) Fields(fields ...field.Field) *Definition[T] {
	d.fields = append(d.fields, fields...)
	return d
}

// Key sets the composite key of T, created with EmbeddedID or IDClass.
func (d *Definition[T]) Key(k *KeyHolder) *Definition[T] {
	d.keys = append(d.keys, k)
	return d
}

// Type implements Definer.
func (d *Definition[T]) Type() reflect.Type {
	return reflect.TypeFor[T]()
}

func (d *Definition[T]) resolve(logger *slog.Logger) (*Entity, error) {
	typ := d.Type()
	name := typ.String()
	fail := func(f, format string, args ...any) error {
		return bulkwrite.NewResolutionError(name, f, fmt.Sprintf(format, args...))
	}

	var emb, idc *KeyHolder
	for _, k := range d.keys {
		switch {
		case k == nil:
			return nil, fail("", "nil key holder")
		case k.err != nil:
			return nil, fail(k.name, "%v", k.err)
		case k.shape == EmbeddedIDKey:
			if emb != nil {
				return nil, fail(k.name, "multiple embedded ids")
			}
			if k.owner != typ {
				return nil, fail(k.name, "embedded id declared for %s", k.owner)
			}
			emb = k
		default:
			if idc != nil {
				return nil, fail("", "multiple id classes")
			}
			idc = k
		}
	}

	var (
		descs []*field.Descriptor
		seqs  = []string{d.sequence}
		keyed = make(map[*field.Descriptor]bool)
	)
	parentSeqs := make([][]string, len(d.parents))
	for i, p := range d.parents {
		if p == nil {
			return nil, fail("", "nil parent")
		}
		if p.owner != typ {
			return nil, fail("", "parent %s embedded in %s", p.typ, p.owner)
		}
		fs, s := p.flatten()
		descs = append(descs, fs...)
		parentSeqs[i] = s
	}
	for i := len(parentSeqs) - 1; i >= 0; i-- {
		seqs = append(seqs, parentSeqs[i]...)
	}
	if emb != nil {
		for _, f := range emb.lifted {
			keyed[f] = true
		}
		descs = append(descs, emb.lifted...)
	}
	for _, f := range d.fields {
		if f == nil {
			return nil, fail("", "nil field")
		}
		descs = append(descs, f.Descriptor())
	}

	e := &Entity{
		Type:      typ,
		Table:     d.table,
		sequences: seqs,
		fields:    make(map[string]*Column, len(descs)),
	}
	var (
		pk      []*Column
		columns = make(map[string]string, len(descs))
		loose   int
	)
	for _, fd := range descs {
		switch {
		case fd.Err != nil:
			return nil, fail(fd.Name, "%v", fd.Err)
		case fd.Owner != typ:
			return nil, fail(fd.Name, "field declared on %s", fd.Owner)
		case !fd.Persistent():
			continue
		}
		if _, ok := e.fields[fd.Name]; ok {
			return nil, fail(fd.Name, "duplicate field")
		}
		c := &Column{
			Field:     fd.Name,
			Name:      fd.Column,
			Generated: fd.Generated,
			Sequence:  fd.Sequence,
			desc:      fd,
		}
		if c.Name == "" {
			c.Name = Snake(fd.Name)
		}
		if other, ok := columns[c.Name]; ok {
			return nil, fail(fd.Name, "column %q already mapped by %s", c.Name, other)
		}
		columns[c.Name] = fd.Name
		switch {
		case emb != nil:
			c.PrimaryKey = keyed[fd]
			if fd.ID && !keyed[fd] {
				loose++
			}
		default:
			c.PrimaryKey = fd.ID
		}
		if c.PrimaryKey {
			pk = append(pk, c)
		}
		e.fields[fd.Name] = c
		e.Columns = append(e.Columns, c)
	}

	switch {
	case emb != nil:
		if len(pk) == 0 {
			return nil, fail(emb.name, "embedded id without fields")
		}
		if loose > 0 || idc != nil {
			logger.Debug("embedded id takes precedence over id fields",
				"type", name, "holder", emb.name, "id_fields", loose, "id_class", idc != nil)
		}
		e.Key = &Key{Shape: EmbeddedIDKey, Columns: pk, Holder: emb.typ, HolderField: emb.name, holder: emb.fields}
	case len(pk) == 0:
		return nil, fail("", "no primary key")
	case idc != nil:
		holder, err := idc.match(pk)
		if err != nil {
			return nil, fail("", "id class %s: %v", idc.typ, err)
		}
		e.Key = &Key{Shape: IDClassKey, Columns: pk, Holder: idc.typ, holder: holder}
	case len(pk) == 1:
		e.Key = &Key{Shape: SingleKey, Columns: pk}
	default:
		return nil, fail("", "composite key of %d fields requires an id class or an embedded id", len(pk))
	}
	return e, nil
}

// Parent is an ancestor of a record type. Its fields are flattened into the
// record definition.
type Parent struct {
	typ       reflect.Type
	owner     reflect.Type
	sequence  string
	fields    []field.Field
	ancestors []*Parent
	lift      func(field.Field) *field.Descriptor
}

// Embed declares P, held by T through ref, as an ancestor of T with the
// given fields declared on P.
//
//	schema.Embed(func(e *Employee) *Person { return &e.Person },
//	    field.Of("Name", func(p *Person) *string { return &p.Name }),
//	)
func Embed[T, P any](ref func(*T) *P, fields ...field.Field) *Parent {
	return &Parent{
		typ:    reflect.TypeFor[P](),
		owner:  reflect.TypeFor[T](),
		fields: fields,
		lift: func(f field.Field) *field.Descriptor {
			return field.Lift(f, ref)
		},
	}
}

// Sequence sets the sequence name declared on the ancestor.
func (p *Parent) Sequence(name string) *Parent {
	p.sequence = name
	return p
}

// Inherit adds the ancestors of P, farthest first.
func (p *Parent) Inherit(parents ...*Parent) *Parent {
	p.ancestors = append(p.ancestors, parents...)
	return p
}

// flatten returns the fields lifted to the owner type, ancestors first,
// and the sequence names nearest first.
func (p *Parent) flatten() ([]*field.Descriptor, []string) {
	var (
		fields []*field.Descriptor
		seqs   = []string{p.sequence}
	)
	ancestorSeqs := make([][]string, len(p.ancestors))
	for i, a := range p.ancestors {
		fs, s := a.flatten()
		for _, f := range fs {
			fields = append(fields, p.lift(f))
		}
		ancestorSeqs[i] = s
	}
	for i := len(ancestorSeqs) - 1; i >= 0; i-- {
		seqs = append(seqs, ancestorSeqs[i]...)
	}
	for _, f := range p.fields {
		fields = append(fields, p.lift(f))
	}
	return fields, seqs
}

// KeyHolder describes a composite key held by a separate struct type.
type KeyHolder struct {
	shape  KeyShape
	typ    reflect.Type
	owner  reflect.Type
	name   string
	fields []*field.Descriptor
	lifted []*field.Descriptor
	err    error
}

// EmbeddedID declares the field name of T, of type K, as the embedded
// primary key of T. The given fields, declared on K, become the primary key
// columns of T.
//
//	schema.EmbeddedID("Key", func(l *OrderLine) *LineKey { return &l.Key },
//	    field.Of("OrderID", func(k *LineKey) *int64 { return &k.OrderID }),
//	    field.Of("LineNo", func(k *LineKey) *int { return &k.LineNo }),
//	)
func EmbeddedID[T, K any](name string, ref func(*T) *K, fields ...field.Field) *KeyHolder {
	k := &KeyHolder{
		shape: EmbeddedIDKey,
		typ:   reflect.TypeFor[K](),
		owner: reflect.TypeFor[T](),
		name:  name,
	}
	if ref == nil {
		k.err = fmt.Errorf("nil reference to %s", k.typ)
		return k
	}
	k.fields, k.err = holderFields(k.typ, fields)
	for _, f := range fields {
		k.lifted = append(k.lifted, field.Lift(f, ref))
	}
	return k
}

// IDClass declares K as the external key type of a record whose primary key
// spans several ID fields. The given fields, declared on K, correspond by
// name to the ID fields of the record.
func IDClass[K any](fields ...field.Field) *KeyHolder {
	k := &KeyHolder{
		shape: IDClassKey,
		typ:   reflect.TypeFor[K](),
	}
	k.fields, k.err = holderFields(k.typ, fields)
	return k
}

func holderFields(typ reflect.Type, fields []field.Field) ([]*field.Descriptor, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("key %s has no fields", typ)
	}
	descs := make([]*field.Descriptor, 0, len(fields))
	for _, f := range fields {
		if f == nil {
			return nil, fmt.Errorf("key %s: nil field", typ)
		}
		fd := f.Descriptor()
		if fd.Err != nil {
			return nil, fd.Err
		}
		if fd.Owner != typ {
			return nil, fmt.Errorf("key field %s declared on %s", fd.Name, fd.Owner)
		}
		descs = append(descs, fd)
	}
	return descs, nil
}

// match aligns the id class fields with the primary key columns by name.
func (k *KeyHolder) match(pk []*Column) ([]*field.Descriptor, error) {
	if len(k.fields) != len(pk) {
		return nil, fmt.Errorf("%d fields for %d key columns", len(k.fields), len(pk))
	}
	byName := make(map[string]*field.Descriptor, len(k.fields))
	for _, f := range k.fields {
		byName[f.Name] = f
	}
	aligned := make([]*field.Descriptor, len(pk))
	for i, c := range pk {
		f, ok := byName[c.Field]
		if !ok {
			return nil, fmt.Errorf("no field for key %s", c.Field)
		}
		aligned[i] = f
	}
	return aligned, nil
}
