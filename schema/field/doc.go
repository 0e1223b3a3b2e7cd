// Package field provides typed builders for declaring the persistent fields
// of a record type.
//
// A field is declared once with a function returning its address. The same
// function serves as accessor and mutator, so no field is ever looked up by
// name at runtime:
//
//	field.Of("ID", func(u *User) *int64 { return &u.ID }).ID().Generated()
//	field.Of("Email", func(u *User) *string { return &u.Email }).Column("mail")
//
// # Options
//
//	ID()              // primary key (part of a composite key when repeated)
//	Generated()       // value generated by the database
//	Column("name")    // explicit column name
//	Sequence("seq")   // field level sequence
//	Transient()       // skipped, not persisted
//	Static()          // skipped, process-wide value
//	Relation(kind)    // skipped, association (OneToMany, ManyToOne, ManyToMany)
//
// # Holders
//
// Lift re-declares a field of an embedded struct (an ancestor or an embedded
// key) as a field of the embedding record:
//
//	field.Lift(field.Of("CreatedBy", func(a *Audit) *string { return &a.CreatedBy }),
//	    func(u *User) *Audit { return &u.Audit })
package field
