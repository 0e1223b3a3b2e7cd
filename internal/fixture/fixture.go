// Package fixture declares the record types shared by package tests.
package fixture

import (
	"github.com/google/uuid"

	"github.com/syssam/bulkwrite/schema"
	"github.com/syssam/bulkwrite/schema/field"
)

// Base is the farthest ancestor of Employee.
type Base struct {
	CreatedBy string
	Version   int
}

// Person embeds Base and is embedded by Employee.
type Person struct {
	Base
	ID        int64
	FirstName string
	LastName  string
}

// Employee has a flattened hierarchy, a relation and a transient field.
type Employee struct {
	Person
	Salary  float64
	Manager *Employee
	cache   string
}

// Order has a generated single key and a UUID column.
type Order struct {
	ID         int64
	CustomerID uuid.UUID
	Total      float64
	Lines      []OrderLine
}

// LineKey is the embedded key of OrderLine.
type LineKey struct {
	OrderID int64
	LineNo  int
}

// OrderLine has an embedded composite key.
type OrderLine struct {
	Key      LineKey
	Product  string
	Quantity int
}

// EnrollmentKey is the id class of Enrollment.
type EnrollmentKey struct {
	StudentID int64
	CourseID  int64
}

// Enrollment has a composite key mirrored by an id class.
type Enrollment struct {
	StudentID int64
	CourseID  int64
	Grade     string
}

// Note has no table mapping.
type Note struct {
	ID   int64
	Body string
}

// BaseFields are the fields declared on Base.
var BaseFields = []field.Field{
	field.Of("CreatedBy", func(b *Base) *string { return &b.CreatedBy }),
	field.Of("Version", func(b *Base) *int { return &b.Version }),
}

// Employees maps Employee through Person and Base.
var Employees = schema.Define[Employee]().
	Table("employees").
	Sequence("employee_seq").
	Inherit(personParent()).
	Fields(
		field.Of("Salary", func(e *Employee) *float64 { return &e.Salary }),
		field.Of("Manager", func(e *Employee) **Employee { return &e.Manager }).Relation(field.ManyToOne),
		field.Of("cache", func(e *Employee) *string { return &e.cache }).Transient(),
	)

func personParent() *schema.Parent {
	base := schema.Embed(func(p *Person) *Base { return &p.Base }, BaseFields...)
	return schema.Embed(func(e *Employee) *Person { return &e.Person },
		field.Of("ID", func(p *Person) *int64 { return &p.ID }).ID(),
		field.Of("FirstName", func(p *Person) *string { return &p.FirstName }),
		field.Of("LastName", func(p *Person) *string { return &p.LastName }),
	).Sequence("person_seq").Inherit(base)
}

// Orders maps Order.
var Orders = schema.Define[Order]().
	Table("orders").
	Sequence("order_seq").
	Fields(
		field.Of("ID", func(o *Order) *int64 { return &o.ID }).ID().Generated(),
		field.Of("CustomerID", func(o *Order) *uuid.UUID { return &o.CustomerID }),
		field.Of("Total", func(o *Order) *float64 { return &o.Total }),
		field.Of("Lines", func(o *Order) *[]OrderLine { return &o.Lines }).Relation(field.OneToMany),
	)

// OrderLines maps OrderLine with its embedded LineKey.
var OrderLines = schema.Define[OrderLine]().
	Table("order_lines").
	Key(schema.EmbeddedID("Key", func(l *OrderLine) *LineKey { return &l.Key },
		field.Of("OrderID", func(k *LineKey) *int64 { return &k.OrderID }),
		field.Of("LineNo", func(k *LineKey) *int { return &k.LineNo }),
	)).
	Fields(
		field.Of("Product", func(l *OrderLine) *string { return &l.Product }),
		field.Of("Quantity", func(l *OrderLine) *int { return &l.Quantity }).Column("qty"),
	)

// Enrollments maps Enrollment with the EnrollmentKey id class. The id class
// lists its fields in a different order than the record.
var Enrollments = schema.Define[Enrollment]().
	Table("enrollments").
	Key(schema.IDClass[EnrollmentKey](
		field.Of("CourseID", func(k *EnrollmentKey) *int64 { return &k.CourseID }),
		field.Of("StudentID", func(k *EnrollmentKey) *int64 { return &k.StudentID }),
	)).
	Fields(
		field.Of("StudentID", func(e *Enrollment) *int64 { return &e.StudentID }).ID(),
		field.Of("CourseID", func(e *Enrollment) *int64 { return &e.CourseID }).ID(),
		field.Of("Grade", func(e *Enrollment) *string { return &e.Grade }),
	)

// Notes maps Note without a table.
var Notes = schema.Define[Note]().
	Fields(
		field.Of("ID", func(n *Note) *int64 { return &n.ID }).ID().Sequence("note_seq"),
		field.Of("Body", func(n *Note) *string { return &n.Body }),
	)

// Registry returns a new registry holding every fixture definition.
func Registry() *schema.Registry {
	r := schema.NewRegistry()
	r.MustRegister(Employees, Orders, OrderLines, Enrollments, Notes)
	return r
}
