package schema

import (
	"log/slog"
	"reflect"
	"sync"

	"github.com/syssam/bulkwrite"
)

// Registry holds the resolved entities of registered record types. Entities
// are resolved once, at registration, and shared read-only afterwards.
// It is safe for concurrent use.
type Registry struct {
	entities sync.Map // reflect.Type -> *Entity
	logger   *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Default is the process-wide registry used by Register and MustRegister.
var Default = NewRegistry()

// Register adds definitions to the Default registry.
func Register(defs ...Definer) error {
	return Default.Register(defs...)
}

// MustRegister is like Register but panics if a definition does not resolve.
func MustRegister(defs ...Definer) {
	Default.MustRegister(defs...)
}

// Register adds definitions to the registry and resolves them eagerly, so
// malformed definitions fail at registration time. Registering a type again
// replaces its definition.
func (r *Registry) Register(defs ...Definer) error {
	var errs []error
	for _, d := range defs {
		if d == nil {
			errs = append(errs, bulkwrite.NewResolutionError("<nil>", "", "nil definition"))
			continue
		}
		e, err := d.resolve(r.logger)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		r.entities.Store(e.Type, e)
		r.logger.Debug("entity registered", "type", e.Name(), "table", e.Table, "columns", len(e.Columns), "key", e.Key.Shape.String())
	}
	return bulkwrite.NewAggregateError(errs...)
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(defs ...Definer) {
	if err := r.Register(defs...); err != nil {
		panic(err)
	}
}

// Resolve returns the entity of v. v is a record, a pointer to a record,
// a slice of records or a reflect.Type.
func (r *Registry) Resolve(v any) (*Entity, error) {
	var t reflect.Type
	switch v := v.(type) {
	case nil:
		return nil, bulkwrite.NewResolutionError("<nil>", "", "cannot resolve nil")
	case reflect.Type:
		t = v
	default:
		t = reflect.TypeOf(v)
	}
	for t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice {
		t = t.Elem()
	}
	return r.ResolveType(t)
}

// ResolveType returns the entity of the record type t.
func (r *Registry) ResolveType(t reflect.Type) (*Entity, error) {
	e, ok := r.entities.Load(t)
	if !ok {
		return nil, bulkwrite.NewResolutionError(t.String(), "", "type not registered")
	}
	return e.(*Entity), nil
}

// For returns the entity of T from the registry.
func For[T any](r *Registry) (*Entity, error) {
	return r.ResolveType(reflect.TypeFor[T]())
}

// Types returns the registered record types.
func (r *Registry) Types() []reflect.Type {
	var ts []reflect.Type
	r.entities.Range(func(k, _ any) bool {
		ts = append(ts, k.(reflect.Type))
		return true
	})
	return ts
}

// IsRegistered reports whether the record type of v is registered.
func (r *Registry) IsRegistered(v any) bool {
	_, err := r.Resolve(v)
	return err == nil
}
