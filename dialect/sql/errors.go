package sql

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// PostgreSQL SQLSTATE codes for constraint violations (Class 23).
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgNotNullViolation    = "23502"
)

// MySQL error numbers for constraint violations.
const (
	mysqlDuplicateEntry         = 1062
	mysqlForeignKeyParent       = 1451 // Cannot delete or update a parent row
	mysqlForeignKeyChild        = 1452 // Cannot add or update a child row
	mysqlCheckConstraintViolate = 3819
)

// ConstraintKind classifies a constraint violation returned by an executor.
type ConstraintKind int

const (
	// NotConstraint means the error is not a known constraint violation.
	NotConstraint ConstraintKind = iota
	// UniqueConstraint is a duplicate key or unique index violation.
	UniqueConstraint
	// ForeignKeyConstraint is a missing parent or dependent child row.
	ForeignKeyConstraint
	// CheckConstraint is a failed CHECK or NOT NULL condition.
	CheckConstraint
)

// String returns the kind name used in log attributes.
func (k ConstraintKind) String() string {
	switch k {
	case UniqueConstraint:
		return "unique"
	case ForeignKeyConstraint:
		return "foreign_key"
	case CheckConstraint:
		return "check"
	default:
		return "none"
	}
}

// IsConstraintError returns true if the error resulted from a database constraint violation.
func IsConstraintError(err error) bool {
	return Constraint(err) != NotConstraint
}

// Constraint classifies err without modifying it. Execution errors are still
// returned to callers as-is; the classification only feeds logging.
func Constraint(err error) ConstraintKind {
	if err == nil {
		return NotConstraint
	}
	if code, ok := sqlState(err); ok {
		switch code {
		case pgUniqueViolation:
			return UniqueConstraint
		case pgForeignKeyViolation:
			return ForeignKeyConstraint
		case pgCheckViolation, pgNotNullViolation:
			return CheckConstraint
		}
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlDuplicateEntry:
			return UniqueConstraint
		case mysqlForeignKeyParent, mysqlForeignKeyChild:
			return ForeignKeyConstraint
		case mysqlCheckConstraintViolate:
			return CheckConstraint
		}
	}
	// Fallback to string matching for drivers without typed errors (SQLite, Oracle).
	msg := err.Error()
	switch {
	case containsAny(msg, "UNIQUE constraint failed", "ORA-00001", "violates unique constraint"):
		return UniqueConstraint
	case containsAny(msg, "FOREIGN KEY constraint failed", "ORA-02291", "ORA-02292", "violates foreign key constraint"):
		return ForeignKeyConstraint
	case containsAny(msg, "CHECK constraint failed", "NOT NULL constraint failed", "ORA-02290", "ORA-01400", "violates check constraint"):
		return CheckConstraint
	}
	return NotConstraint
}

// sqlState extracts a SQLSTATE code from lib/pq or pgx errors.
func sqlState(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, true
	}
	return "", false
}

// containsAny returns true if s contains any of the substrings.
func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
