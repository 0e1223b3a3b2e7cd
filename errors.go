package bulkwrite

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors for the bulk-write core.
var (
	// ErrResolution is returned when entity metadata cannot be resolved
	// (no table mapping, no primary key, unresolvable sequence name).
	ErrResolution = errors.New("bulkwrite: metadata resolution failed")

	// ErrArgument is returned when the caller supplied input that cannot
	// produce a statement (empty collection where a row is required,
	// key-only update subset, mismatched record types).
	ErrArgument = errors.New("bulkwrite: invalid argument")

	// ErrAllocationBounds is returned when a sequence reservation is shorter
	// than the allocation-size distribution requires.
	ErrAllocationBounds = errors.New("bulkwrite: sequence allocation out of bounds")

	// ErrState is returned when an operation runs without a required
	// collaborator, such as a nil executor.
	ErrState = errors.New("bulkwrite: invalid state")

	// ErrUnsupported is returned when the configured dialect cannot express
	// the requested statement shape.
	ErrUnsupported = errors.New("bulkwrite: unsupported by dialect")

	// ErrConfig is returned for invalid client or planner configuration.
	ErrConfig = errors.New("bulkwrite: invalid configuration")
)

// ResolutionError represents a metadata resolution failure for a record type.
type ResolutionError struct {
	Type    string // Record type name
	Field   string // Field name (if applicable)
	Message string
}

// Error returns the error string.
func (e *ResolutionError) Error() string {
	var b strings.Builder
	b.WriteString("bulkwrite: resolve ")
	b.WriteString(e.Type)
	if e.Field != "" {
		b.WriteString(".")
		b.WriteString(e.Field)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// Is reports whether the target error matches ErrResolution.
func (e *ResolutionError) Is(err error) bool {
	return err == ErrResolution
}

// NewResolutionError returns a new ResolutionError.
func NewResolutionError(typ, field, message string) *ResolutionError {
	return &ResolutionError{Type: typ, Field: field, Message: message}
}

// IsResolutionError returns true if the error is a ResolutionError.
func IsResolutionError(err error) bool {
	if err == nil {
		return false
	}
	var e *ResolutionError
	return errors.As(err, &e) || errors.Is(err, ErrResolution)
}

// ArgumentError represents caller input that cannot be turned into a statement.
type ArgumentError struct {
	Op      string // Operation (e.g. "multi-insert", "update")
	Message string
}

// Error returns the error string.
func (e *ArgumentError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("bulkwrite: %s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("bulkwrite: %s", e.Message)
}

// Is reports whether the target error matches ErrArgument.
func (e *ArgumentError) Is(err error) bool {
	return err == ErrArgument
}

// NewArgumentError returns a new ArgumentError.
func NewArgumentError(op, format string, args ...any) *ArgumentError {
	return &ArgumentError{Op: op, Message: fmt.Sprintf(format, args...)}
}

// IsArgumentError returns true if the error is an ArgumentError.
func IsArgumentError(err error) bool {
	if err == nil {
		return false
	}
	var e *ArgumentError
	return errors.As(err, &e) || errors.Is(err, ErrArgument)
}

// AllocationBoundsError is returned when fewer sequence values were reserved
// than the distribution policy needs.
type AllocationBoundsError struct {
	Sequence string
	Needed   int
	Reserved int
}

// Error returns the error string.
func (e *AllocationBoundsError) Error() string {
	if e.Sequence != "" {
		return fmt.Sprintf("bulkwrite: sequence %s: need %d reserved values, have %d", e.Sequence, e.Needed, e.Reserved)
	}
	return fmt.Sprintf("bulkwrite: need %d reserved values, have %d", e.Needed, e.Reserved)
}

// Is reports whether the target error matches ErrAllocationBounds.
func (e *AllocationBoundsError) Is(err error) bool {
	return err == ErrAllocationBounds
}

// NewAllocationBoundsError returns a new AllocationBoundsError.
func NewAllocationBoundsError(sequence string, needed, reserved int) *AllocationBoundsError {
	return &AllocationBoundsError{Sequence: sequence, Needed: needed, Reserved: reserved}
}

// IsAllocationBoundsError returns true if the error is an AllocationBoundsError.
func IsAllocationBoundsError(err error) bool {
	if err == nil {
		return false
	}
	var e *AllocationBoundsError
	return errors.As(err, &e) || errors.Is(err, ErrAllocationBounds)
}

// StateError is returned when an operation is attempted without a required collaborator.
type StateError struct {
	Message string
}

// Error returns the error string.
func (e *StateError) Error() string {
	return fmt.Sprintf("bulkwrite: %s", e.Message)
}

// Is reports whether the target error matches ErrState.
func (e *StateError) Is(err error) bool {
	return err == ErrState
}

// NewStateError returns a new StateError.
func NewStateError(message string) *StateError {
	return &StateError{Message: message}
}

// IsStateError returns true if the error is a StateError.
func IsStateError(err error) bool {
	if err == nil {
		return false
	}
	var e *StateError
	return errors.As(err, &e) || errors.Is(err, ErrState)
}

// UnsupportedError reports a statement shape the dialect cannot express.
type UnsupportedError struct {
	Dialect string
	Feature string
}

// Error returns the error string.
func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("bulkwrite: dialect %q does not support %s", e.Dialect, e.Feature)
}

// Is reports whether the target error matches ErrUnsupported.
func (e *UnsupportedError) Is(err error) bool {
	return err == ErrUnsupported
}

// NewUnsupportedError returns a new UnsupportedError.
func NewUnsupportedError(dialect, feature string) *UnsupportedError {
	return &UnsupportedError{Dialect: dialect, Feature: feature}
}

// IsUnsupported returns true if the error is an UnsupportedError.
func IsUnsupported(err error) bool {
	if err == nil {
		return false
	}
	var e *UnsupportedError
	return errors.As(err, &e) || errors.Is(err, ErrUnsupported)
}

// ConfigError represents an invalid configuration option.
type ConfigError struct {
	Option  string
	Value   any
	Message string
}

// Error returns the error string.
func (e *ConfigError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("bulkwrite: config error for %q (value: %v): %s", e.Option, e.Value, e.Message)
	}
	return fmt.Sprintf("bulkwrite: config error for %q: %s", e.Option, e.Message)
}

// Is reports whether the target error matches ErrConfig.
func (e *ConfigError) Is(err error) bool {
	return err == ErrConfig
}

// NewConfigError returns a new ConfigError.
func NewConfigError(option string, value any, message string) *ConfigError {
	return &ConfigError{Option: option, Value: value, Message: message}
}

// IsConfigError returns true if the error is a ConfigError.
func IsConfigError(err error) bool {
	var e *ConfigError
	return errors.As(err, &e)
}

// AggregateError represents multiple errors collected during an operation.
type AggregateError struct {
	Errors []error
}

// Error returns the error string.
func (e *AggregateError) Error() string {
	if len(e.Errors) == 0 {
		return "bulkwrite: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	sb.WriteString("bulkwrite: multiple errors:")
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "\n  [%d] %v", i+1, err)
	}
	return sb.String()
}

// Unwrap returns the collected errors.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// NewAggregateError returns a new AggregateError if there are errors,
// otherwise returns nil.
func NewAggregateError(errs ...error) error {
	var filtered []error
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &AggregateError{Errors: filtered}
}
