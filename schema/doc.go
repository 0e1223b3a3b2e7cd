// Package schema resolves the table metadata of record types.
//
// Record types are declared once, at registration time, with Define. The
// declaration is explicit: nothing is discovered through struct tags or by
// walking embedded structs at runtime.
//
//	type Employee struct {
//	    Person
//	    Salary float64
//	}
//
//	var Employees = schema.Define[Employee]().
//	    Table("employees").
//	    Sequence("employee_seq").
//	    Inherit(schema.Embed(func(e *Employee) *Person { return &e.Person },
//	        field.Of("ID", func(p *Person) *int64 { return &p.ID }).ID(),
//	        field.Of("Name", func(p *Person) *string { return &p.Name }),
//	    )).
//	    Fields(
//	        field.Of("Salary", func(e *Employee) *float64 { return &e.Salary }),
//	    )
//
//	func init() { schema.MustRegister(Employees) }
//
// # Resolution
//
// Register resolves a definition into an Entity:
//
//   - ancestor fields come first (farthest ancestor first), then the fields
//     of an embedded id, then the fields declared on the type
//   - relation, static and transient fields are skipped
//   - the column name is the explicit one, or Snake of the field name
//   - the sequence of a field is its own sequence, then the sequence of the
//     type, then the sequences of its ancestors, nearest first
//
// # Primary keys
//
// A key has one of three shapes:
//
//	SingleKey      one field marked ID
//	EmbeddedIDKey  the fields of a key struct held by the record (EmbeddedID)
//	IDClassKey     several ID fields mirrored by an external key type (IDClass)
//
// An embedded id takes precedence over ID fields and id classes. Several ID
// fields without an id class, or no key at all, fail with a resolution error.
//
// # Registry
//
// Entities are cached in a Registry keyed by record type and shared
// read-only. Default is the process-wide registry.
package schema
