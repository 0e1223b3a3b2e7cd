package gen

import (
	"fmt"
	"go/types"
	"reflect"
	"strings"

	"github.com/go-openapi/inflect"

	"github.com/syssam/bulkwrite/schema"
)

// DefaultTag is the struct tag key read by the generator.
const DefaultTag = "bulk"

// Entity is a record type declared through struct tags.
type Entity struct {
	Type     *types.Named
	Table    string
	Sequence string
	Parents  []*Parent
	Key      *Key
	Fields   []*Field
}

// Name returns the Go type name.
func (e *Entity) Name() string { return e.Type.Obj().Name() }

// Parent is an embedded struct whose fields are inherited.
type Parent struct {
	Field    string
	Type     *types.Named
	Sequence string
	Parents  []*Parent
	Fields   []*Field
}

// Key is an embedded id (Field set) or an id class (Field empty).
type Key struct {
	Field  string
	Type   *types.Named
	Fields []*Field
}

// Field is a mapped struct field.
type Field struct {
	Name      string
	Type      types.Type
	Column    string
	ID        bool
	Generated bool
	Transient bool
	Sequence  string
	Relation  string
}

// options are the parsed options of one tag.
type options struct {
	skip bool
	kv   map[string]string
	set  map[string]bool
}

func parseTag(tag string) (options, error) {
	o := options{kv: map[string]string{}, set: map[string]bool{}}
	if tag == "-" {
		o.skip = true
		return o, nil
	}
	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, ok := strings.Cut(part, "=")
		switch {
		case ok && v == "":
			return o, fmt.Errorf("option %q has no value", k)
		case ok:
			o.kv[k] = v
		default:
			o.set[k] = true
		}
	}
	for k := range o.kv {
		switch k {
		case "table", "sequence", "idclass", "column", "relation":
		default:
			return o, fmt.Errorf("unknown option %q", k)
		}
	}
	for k := range o.set {
		switch k {
		case "entity", "id", "generated", "transient", "embeddedid":
		default:
			return o, fmt.Errorf("unknown option %q", k)
		}
	}
	return o, nil
}

var relations = map[string]string{
	"one-to-many":  "OneToMany",
	"many-to-one":  "ManyToOne",
	"many-to-many": "ManyToMany",
}

// Inspect returns the entities declared in pkg, in scope order. A struct is
// an entity when its blank field carries the "entity" or "table=" option:
//
//	type Order struct {
//		_  struct{} `bulk:"table=orders,sequence=order_seq"`
//		ID int64    `bulk:"id,generated"`
//	}
//
// Missing table names default to the snake-cased plural of the type name.
func Inspect(pkg *types.Package, tag string) ([]*Entity, error) {
	if tag == "" {
		tag = DefaultTag
	}
	in := &inspector{pkg: pkg, tag: tag}
	var entities []*Entity
	for _, name := range pkg.Scope().Names() {
		tn, ok := pkg.Scope().Lookup(name).(*types.TypeName)
		if !ok || tn.IsAlias() {
			continue
		}
		named, ok := tn.Type().(*types.Named)
		if !ok {
			continue
		}
		st, ok := named.Underlying().(*types.Struct)
		if !ok {
			continue
		}
		marker, err := in.marker(st)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if !marker.set["entity"] && marker.kv["table"] == "" {
			continue
		}
		e, err := in.entity(named, st, marker)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		entities = append(entities, e)
	}
	return entities, nil
}

type inspector struct {
	pkg *types.Package
	tag string
}

// marker returns the options of the blank field of st.
func (in *inspector) marker(st *types.Struct) (options, error) {
	for i := range st.NumFields() {
		if st.Field(i).Name() == "_" {
			return parseTag(reflect.StructTag(st.Tag(i)).Get(in.tag))
		}
	}
	return options{}, nil
}

func (in *inspector) entity(named *types.Named, st *types.Struct, marker options) (*Entity, error) {
	e := &Entity{
		Type:     named,
		Table:    marker.kv["table"],
		Sequence: marker.kv["sequence"],
	}
	if e.Table == "" {
		e.Table = schema.Snake(inflect.Pluralize(named.Obj().Name()))
	}
	if name := marker.kv["idclass"]; name != "" {
		holder, err := in.lookupStruct(name)
		if err != nil {
			return nil, fmt.Errorf("idclass: %w", err)
		}
		fields, err := in.fields(holder.Underlying().(*types.Struct))
		if err != nil {
			return nil, err
		}
		e.Key = &Key{Type: holder, Fields: fields}
	}
	for i := range st.NumFields() {
		f := st.Field(i)
		o, err := parseTag(reflect.StructTag(st.Tag(i)).Get(in.tag))
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name(), err)
		}
		switch {
		case f.Name() == "_" || o.skip:
		case o.set["embeddedid"]:
			if e.Key != nil {
				return nil, fmt.Errorf("field %s: more than one key holder", f.Name())
			}
			holder, ok := asStruct(f.Type())
			if !ok {
				return nil, fmt.Errorf("field %s: embedded id must be a named struct", f.Name())
			}
			fields, err := in.fields(holder.Underlying().(*types.Struct))
			if err != nil {
				return nil, err
			}
			e.Key = &Key{Field: f.Name(), Type: holder, Fields: fields}
		case f.Embedded():
			p, err := in.parent(f)
			if err != nil {
				return nil, err
			}
			e.Parents = append(e.Parents, p)
		default:
			fd, err := in.field(f, o)
			if err != nil {
				return nil, err
			}
			if fd != nil {
				e.Fields = append(e.Fields, fd)
			}
		}
	}
	if e.Key == nil && !hasID(e.Fields, e.Parents) {
		return nil, fmt.Errorf("no key: tag a field with id or embeddedid")
	}
	return e, nil
}

func (in *inspector) parent(f *types.Var) (*Parent, error) {
	named, ok := asStruct(f.Type())
	if !ok {
		return nil, fmt.Errorf("embedded field %s must be a named struct", f.Name())
	}
	st := named.Underlying().(*types.Struct)
	marker, err := in.marker(st)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Name(), err)
	}
	p := &Parent{Field: f.Name(), Type: named, Sequence: marker.kv["sequence"]}
	for i := range st.NumFields() {
		sf := st.Field(i)
		o, err := parseTag(reflect.StructTag(st.Tag(i)).Get(in.tag))
		if err != nil {
			return nil, fmt.Errorf("field %s.%s: %w", f.Name(), sf.Name(), err)
		}
		switch {
		case sf.Name() == "_" || o.skip:
		case o.set["embeddedid"]:
			return nil, fmt.Errorf("field %s.%s: embedded id on an embedded struct", f.Name(), sf.Name())
		case sf.Embedded():
			gp, err := in.parent(sf)
			if err != nil {
				return nil, err
			}
			p.Parents = append(p.Parents, gp)
		default:
			fd, err := in.field(sf, o)
			if err != nil {
				return nil, err
			}
			if fd != nil {
				p.Fields = append(p.Fields, fd)
			}
		}
	}
	return p, nil
}

// fields returns the mapped fields of a key holder.
func (in *inspector) fields(st *types.Struct) ([]*Field, error) {
	var fields []*Field
	for i := range st.NumFields() {
		f := st.Field(i)
		o, err := parseTag(reflect.StructTag(st.Tag(i)).Get(in.tag))
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name(), err)
		}
		if f.Name() == "_" || o.skip || f.Embedded() {
			continue
		}
		fd, err := in.field(f, o)
		if err != nil {
			return nil, err
		}
		if fd != nil {
			fields = append(fields, fd)
		}
	}
	return fields, nil
}

// field returns nil for unexported fields without options.
func (in *inspector) field(f *types.Var, o options) (*Field, error) {
	if !f.Exported() && len(o.kv) == 0 && len(o.set) == 0 {
		return nil, nil
	}
	if f.Pkg() != in.pkg && !f.Exported() {
		return nil, fmt.Errorf("field %s: unexported field of package %s", f.Name(), f.Pkg().Path())
	}
	fd := &Field{
		Name:      f.Name(),
		Type:      f.Type(),
		Column:    o.kv["column"],
		ID:        o.set["id"],
		Generated: o.set["generated"],
		Transient: o.set["transient"],
		Sequence:  o.kv["sequence"],
	}
	if r := o.kv["relation"]; r != "" {
		kind, ok := relations[r]
		if !ok {
			return nil, fmt.Errorf("field %s: unknown relation %q", f.Name(), r)
		}
		fd.Relation = kind
	}
	if o.kv["table"] != "" || o.kv["idclass"] != "" || o.set["entity"] {
		return nil, fmt.Errorf("field %s: type options belong on the blank field", f.Name())
	}
	return fd, nil
}

func (in *inspector) lookupStruct(name string) (*types.Named, error) {
	tn, ok := in.pkg.Scope().Lookup(name).(*types.TypeName)
	if !ok {
		return nil, fmt.Errorf("type %s not found in %s", name, in.pkg.Path())
	}
	named, ok := asStruct(tn.Type())
	if !ok {
		return nil, fmt.Errorf("type %s is not a struct", name)
	}
	return named, nil
}

func asStruct(t types.Type) (*types.Named, bool) {
	named, ok := types.Unalias(t).(*types.Named)
	if !ok {
		return nil, false
	}
	_, ok = named.Underlying().(*types.Struct)
	return named, ok
}

func hasID(fields []*Field, parents []*Parent) bool {
	for _, f := range fields {
		if f.ID {
			return true
		}
	}
	for _, p := range parents {
		if hasID(p.Fields, p.Parents) {
			return true
		}
	}
	return false
}
