package field

import (
	"errors"
	"fmt"
	"math"
	"reflect"

	"github.com/syssam/bulkwrite"
)

// RelationKind marks a field that holds an association instead of a column.
type RelationKind uint8

// Relation kinds. Fields carrying any kind other than NoRelation are
// skipped by the resolver.
const (
	NoRelation RelationKind = iota
	OneToMany
	ManyToOne
	ManyToMany
)

// String returns the relation kind name.
func (k RelationKind) String() string {
	switch k {
	case OneToMany:
		return "one-to-many"
	case ManyToOne:
		return "many-to-one"
	case ManyToMany:
		return "many-to-many"
	default:
		return "none"
	}
}

// Field is the interface implemented by field builders.
type Field interface {
	Descriptor() *Descriptor
}

// Descriptor holds the declaration of a single record field.
type Descriptor struct {
	Name      string       // Go field name.
	Column    string       // explicit column name, empty derives it from Name.
	ID        bool         // primary key field.
	Generated bool         // value generated by the database.
	Sequence  string       // field level sequence name.
	Transient bool         // not persisted.
	Static    bool         // process-wide value, not persisted.
	Relation  RelationKind // association, not persisted.
	Owner     reflect.Type // record type declaring the field.
	Type      reflect.Type // field value type.
	Err       error

	get func(rec any) (any, error)
	set func(rec, v any) error
}

// Descriptor implements the Field interface by returning itself.
func (d *Descriptor) Descriptor() *Descriptor { return d }

// Persistent reports whether the field maps to a column.
func (d *Descriptor) Persistent() bool {
	return !d.Transient && !d.Static && d.Relation == NoRelation
}

// Value reads the field from rec. rec is a record of the owner type,
// either as a value or a pointer.
func (d *Descriptor) Value(rec any) (any, error) {
	if d.get == nil {
		return nil, fmt.Errorf("field %s: no accessor", d.Name)
	}
	return d.get(rec)
}

// SetValue writes v into the field of rec, which must be a pointer to the
// owner type. v is converted to the field type when it is not already
// of that type (e.g. an int64 sequence value into an int32 field).
func (d *Descriptor) SetValue(rec, v any) error {
	if d.set == nil {
		return fmt.Errorf("field %s: no mutator", d.Name)
	}
	return d.set(rec, v)
}

// Builder is the builder for fields of type V declared on records of type T.
type Builder[T, V any] struct {
	desc *Descriptor
}

// Of returns a field builder for the field name of T. ref returns the
// address of the field and serves as both accessor and mutator.
//
//	field.Of("Email", func(u *User) *string { return &u.Email })
func Of[T, V any](name string, ref func(*T) *V) *Builder[T, V] {
	d := &Descriptor{
		Name:  name,
		Owner: reflect.TypeFor[T](),
		Type:  reflect.TypeFor[V](),
	}
	switch {
	case name == "":
		d.Err = errors.New("field: missing field name")
	case ref == nil:
		d.Err = fmt.Errorf("field %s: nil field reference", name)
	default:
		d.get = func(rec any) (any, error) {
			p, err := record[T](rec, name)
			if err != nil {
				return nil, err
			}
			return *ref(p), nil
		}
		d.set = func(rec, v any) error {
			p, ok := rec.(*T)
			if !ok || p == nil {
				return bulkwrite.NewArgumentError("set "+name, "expect *%s, got %T", d.Owner, rec)
			}
			return assign(ref(p), v, name)
		}
	}
	return &Builder[T, V]{desc: d}
}

// Column sets an explicit column name.
func (b *Builder[T, V]) Column(name string) *Builder[T, V] {
	if name == "" {
		b.desc.Err = errors.Join(b.desc.Err, fmt.Errorf("field %s: empty column name", b.desc.Name))
	}
	b.desc.Column = name
	return b
}

// ID marks the field as (part of) the primary key.
func (b *Builder[T, V]) ID() *Builder[T, V] {
	b.desc.ID = true
	return b
}

// Generated marks the field as database generated.
func (b *Builder[T, V]) Generated() *Builder[T, V] {
	b.desc.Generated = true
	return b
}

// Sequence sets the sequence that generates the field values.
// It takes precedence over the sequence of the record type.
func (b *Builder[T, V]) Sequence(name string) *Builder[T, V] {
	b.desc.Sequence = name
	return b
}

// Transient marks the field as not persisted.
func (b *Builder[T, V]) Transient() *Builder[T, V] {
	b.desc.Transient = true
	return b
}

// Static marks the field as process-wide state, not persisted.
func (b *Builder[T, V]) Static() *Builder[T, V] {
	b.desc.Static = true
	return b
}

// Relation marks the field as an association of the given kind.
func (b *Builder[T, V]) Relation(kind RelationKind) *Builder[T, V] {
	b.desc.Relation = kind
	return b
}

// Descriptor implements the Field interface by returning its descriptor.
func (b *Builder[T, V]) Descriptor() *Descriptor {
	return b.desc
}

// Lift exposes a field declared on H as a field of T, where ref returns the
// H value held by T (an embedded ancestor or an embedded key).
func Lift[T, H any](f Field, ref func(*T) *H) *Descriptor {
	d := f.Descriptor()
	l := *d
	l.Owner = reflect.TypeFor[T]()
	if ref == nil {
		l.Err = errors.Join(l.Err, fmt.Errorf("field %s: nil holder reference", d.Name))
		l.get, l.set = nil, nil
		return &l
	}
	if d.Owner != reflect.TypeFor[H]() {
		l.Err = errors.Join(l.Err, fmt.Errorf("field %s: declared on %s, lifted from %s", d.Name, d.Owner, reflect.TypeFor[H]()))
	}
	l.get = func(rec any) (any, error) {
		p, err := record[T](rec, d.Name)
		if err != nil {
			return nil, err
		}
		return d.Value(ref(p))
	}
	l.set = func(rec, v any) error {
		p, ok := rec.(*T)
		if !ok || p == nil {
			return bulkwrite.NewArgumentError("set "+d.Name, "expect *%s, got %T", l.Owner, rec)
		}
		return d.SetValue(ref(p), v)
	}
	return &l
}

// record returns a pointer to the T held by rec. Values are copied.
func record[T any](rec any, name string) (*T, error) {
	switch r := rec.(type) {
	case *T:
		if r != nil {
			return r, nil
		}
	case T:
		return &r, nil
	}
	return nil, bulkwrite.NewArgumentError("get "+name, "expect %s, got %T", reflect.TypeFor[T](), rec)
}

func assign[V any](dst *V, v any, name string) error {
	if tv, ok := v.(V); ok {
		*dst = tv
		return nil
	}
	to := reflect.TypeFor[V]()
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		var zero V
		*dst = zero
		return nil
	}
	target := to
	if !convertible(rv.Type(), to) && to.Kind() == reflect.Pointer {
		target = to.Elem()
	}
	if !convertible(rv.Type(), target) {
		return bulkwrite.NewArgumentError("set "+name, "cannot assign %T to %s", v, to)
	}
	if overflows(rv, target) {
		return bulkwrite.NewArgumentError("set "+name, "value %v overflows %s", v, to)
	}
	out := reflect.ValueOf(dst).Elem()
	if target == to {
		out.Set(rv.Convert(to))
		return nil
	}
	p := reflect.New(target)
	p.Elem().Set(rv.Convert(target))
	out.Set(p)
	return nil
}

// overflows reports whether converting the numeric value rv to type to
// would wrap or lose its integer part.
func overflows(rv reflect.Value, to reflect.Type) bool {
	zero := reflect.New(to).Elem()
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return zero.OverflowInt(rv.Int())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
			return rv.Uint() > math.MaxInt64 || zero.OverflowInt(int64(rv.Uint()))
		case reflect.Float32, reflect.Float64:
			f := rv.Float()
			return f < math.MinInt64 || f >= math.MaxInt64 || zero.OverflowInt(int64(f))
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return rv.Int() < 0 || zero.OverflowUint(uint64(rv.Int()))
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
			return zero.OverflowUint(rv.Uint())
		case reflect.Float32, reflect.Float64:
			f := rv.Float()
			return f < 0 || f >= math.MaxUint64 || zero.OverflowUint(uint64(f))
		}
	case reflect.Float32:
		if rv.Kind() == reflect.Float64 {
			return zero.OverflowFloat(rv.Float())
		}
	}
	return false
}

// convertible rejects numeric to string conversions that ConvertibleTo allows.
func convertible(from, to reflect.Type) bool {
	return from.ConvertibleTo(to) && numeric(from.Kind()) == numeric(to.Kind())
}

func numeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
