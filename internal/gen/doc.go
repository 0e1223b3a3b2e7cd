// Package gen generates schema definitions from tagged structs.
//
// A struct becomes an entity when its blank field carries type options:
//
//	type OrderLine struct {
//		_   struct{} `bulk:"entity"`
//		Key LineKey  `bulk:"embeddedid"`
//		Qty int
//	}
//
// Type options are entity, table=, sequence= and idclass=. Field options are
// column=, id, generated, sequence=, transient, embeddedid and relation=
// (one-to-many, many-to-one, many-to-many). A "-" tag skips the field.
// Embedded structs become ancestors; their blank field may name a sequence.
package gen
