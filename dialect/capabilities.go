package dialect

import (
	"fmt"
	"strings"
)

// OracleMultiRowMinVersion is the first Oracle major version that accepts
// multi-row VALUES lists. Older versions fall back to INSERT ALL.
const OracleMultiRowMinVersion = 23

// InsertShape selects the statement shape used for bulk inserts.
type InsertShape int

const (
	// MultiRowInsert emits INSERT ... VALUES (...), (...).
	MultiRowInsert InsertShape = iota
	// DialectFanOutInsert emits INSERT ALL INTO ... SELECT * FROM dual.
	DialectFanOutInsert
	// SequenceDerivedInsert emits INSERT ... SELECT <nextval>, mt.* FROM (...) mt.
	SequenceDerivedInsert
)

// String returns the shape name.
func (s InsertShape) String() string {
	switch s {
	case MultiRowInsert:
		return "multi-row"
	case DialectFanOutInsert:
		return "insert-all"
	case SequenceDerivedInsert:
		return "sequence-derived"
	default:
		return fmt.Sprintf("InsertShape(%d)", int(s))
	}
}

// Placeholder is the native bind-parameter style of a driver.
type Placeholder int

const (
	// Question binds with bare "?".
	Question Placeholder = iota
	// Dollar binds with "$1", "$2", ...
	Dollar
	// Colon binds with ":1", ":2", ...
	Colon
)

// Capabilities is the dialect data consumed by the statement builder, the
// sequence allocator and the batch executor. Values are plain data so callers
// can adjust them (e.g. for a specific server version) instead of relying on
// hardcoded product checks.
type Capabilities struct {
	// Name is the dialect name (one of the constants in this package).
	Name string
	// MultiRowValues reports support for INSERT ... VALUES (...), (...).
	MultiRowValues bool
	// InsertAll reports support for Oracle-style INSERT ALL fan-out.
	InsertAll bool
	// Sequences reports support for named sequences.
	Sequences bool
	// NextValFormat renders the next-value expression; %s is the sequence name.
	NextValFormat string
	// DualTable is the one-row table used in derived selects; empty omits FROM.
	DualTable string
	// DerivedSelectInsert reports that untyped parameters in a derived
	// table take the type of the target column, as the sequence-derived
	// shape needs. Postgres types them as text and rejects the insert.
	DerivedSelectInsert bool
	// Placeholder is the native bind-parameter style.
	Placeholder Placeholder
}

// For returns the default capabilities of the named dialect.
// Unknown names get a conservative profile with multi-row VALUES only.
func For(name string) Capabilities {
	switch name {
	case Oracle:
		return OracleVersion(OracleMultiRowMinVersion - 1)
	case Postgres:
		return Capabilities{
			Name:           Postgres,
			MultiRowValues: true,
			Sequences:      true,
			NextValFormat:  "nextval('%s')",
			Placeholder:    Dollar,
		}
	case MySQL:
		// MariaDB sequences; MySQL proper rejects NEXT VALUE FOR at execution.
		return Capabilities{
			Name:                MySQL,
			MultiRowValues:      true,
			Sequences:           true,
			NextValFormat:       "NEXT VALUE FOR %s",
			DualTable:           "DUAL",
			DerivedSelectInsert: true,
			Placeholder:         Question,
		}
	case SQLite:
		return Capabilities{
			Name:           SQLite,
			MultiRowValues: true,
			Placeholder:    Question,
		}
	default:
		return Capabilities{
			Name:           name,
			MultiRowValues: true,
			Placeholder:    Question,
		}
	}
}

// OracleVersion returns the Oracle capabilities for the given major server version.
func OracleVersion(major int) Capabilities {
	return Capabilities{
		Name:                Oracle,
		MultiRowValues:      major >= OracleMultiRowMinVersion,
		InsertAll:           true,
		Sequences:           true,
		NextValFormat:       "%s.nextval",
		DualTable:           "DUAL",
		DerivedSelectInsert: true,
		Placeholder:         Colon,
	}
}

// NextVal renders the next-value expression for the sequence.
func (c Capabilities) NextVal(sequence string) string {
	return fmt.Sprintf(c.NextValFormat, sequence)
}

// InsertShape returns the preferred bulk insert shape.
func (c Capabilities) InsertShape() InsertShape {
	if !c.MultiRowValues && c.InsertAll {
		return DialectFanOutInsert
	}
	return MultiRowInsert
}

// Supports reports whether the dialect can express the given insert shape.
func (c Capabilities) Supports(s InsertShape) bool {
	switch s {
	case MultiRowInsert:
		return c.MultiRowValues
	case DialectFanOutInsert:
		return c.InsertAll
	case SequenceDerivedInsert:
		return c.Sequences && c.DerivedSelectInsert
	default:
		return false
	}
}

// Normalize maps a driver name (e.g. "pgx", "sqlite") to a dialect name.
func Normalize(driverName string) string {
	switch n := strings.ToLower(driverName); {
	case n == "pgx" || strings.HasPrefix(n, Postgres):
		return Postgres
	case strings.HasPrefix(n, "sqlite"):
		return SQLite
	case strings.HasPrefix(n, MySQL) || n == "mariadb":
		return MySQL
	case n == "godror" || strings.HasPrefix(n, Oracle):
		return Oracle
	default:
		return n
	}
}
