// Package syncerr provides standardized error handling for the schema sync
// engine. All errors carry stable, machine-readable codes, structured
// context, and proper wrapping.
package syncerr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Code represents a stable, machine-readable error code.
// Format: E{category}{number} where category is 1-6 and number is 001-999.
type Code string

// Error codes organized by category.
const (
	// Validation errors (E1xxx) - malformed or conflicting metadata.
	// Always fatal and never retried; no DDL is attempted.
	ErrValidation     Code = "E1001" // Description fails boundary validation
	ErrMissingInverse Code = "E1002" // one-to-many/many-to-many without inversePropertyName
	ErrNamingConflict Code = "E1003" // Generated column name collides with an existing or pending column
	ErrInvalidType    Code = "E1004" // Column or key type is not supported

	// Unsupported operation errors (E2xxx) - dialect limitations that
	// require manual intervention (table recreation).
	ErrUnsupported            Code = "E2001" // Operation not supported by the dialect
	ErrSQLiteAlterColumn      Code = "E2002" // SQLite cannot ALTER COLUMN
	ErrSQLiteReferencingScan  Code = "E2003" // SQLite cannot enumerate FKs referencing a table
	ErrSQLiteAddForeignKey    Code = "E2004" // SQLite cannot ADD CONSTRAINT after table creation
	ErrSQLiteDropForeignKey   Code = "E2005" // SQLite cannot drop a named FK constraint
	ErrUnsupportedDialectName Code = "E2006" // Dialect tag is not mysql/postgres/sqlite

	// Transient lock errors (E3xxx) - deadlock-class failures, safe to retry.
	ErrTransientLock  Code = "E3001" // Deadlock or lock-wait timeout
	ErrRetryExhausted Code = "E3002" // Retries exhausted on a transient error

	// Target missing errors (E4xxx) - stale or corrupt metadata.
	ErrTargetTableMissing  Code = "E4001" // Referenced table does not exist
	ErrTargetColumnMissing Code = "E4002" // Referenced column does not exist

	// SQL errors (E5xxx) - database execution failures.
	ErrSQLExecution   Code = "E5001" // SQL statement failed to execute
	ErrSQLTransaction Code = "E5002" // Transaction begin/commit failed
	ErrSQLConnection  Code = "E5003" // Database connection failed

	// Introspection errors (E6xxx) - system-catalog queries failed.
	ErrIntrospection Code = "E6001" // Catalog query failed
)

// Error is the standard error type for the sync engine.
// It provides structured error information with codes, context, and wrapping.
type Error struct {
	code    Code           // Machine-readable error code
	message string         // Human-readable error message
	context map[string]any // Structured context data
	cause   error          // Wrapped underlying error
}

// Error returns the formatted error string.
// Format:
//
//	[E1003] generated foreign-key column collides with an existing column
//	  column: customerId
//	  table: order
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.code, e.message))

	// Write context in sorted order for deterministic output
	if len(e.context) > 0 {
		keys := make([]string, 0, len(e.context))
		for k := range e.context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			b.WriteString(fmt.Sprintf("\n  %s: %v", k, e.context[k]))
		}
	}

	if e.cause != nil {
		b.WriteString(fmt.Sprintf("\n  cause: %v", e.cause))
	}

	return b.String()
}

// Unwrap returns the underlying cause error for errors.Unwrap compatibility.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether the target error matches this error.
// It matches if target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}

	var targetErr *Error
	if errors.As(target, &targetErr) {
		return e.code == targetErr.code
	}

	return false
}

// GetCode returns the error code.
func (e *Error) GetCode() Code {
	return e.code
}

// GetMessage returns the error message.
func (e *Error) GetMessage() string {
	return e.message
}

// GetContext returns the error context map.
func (e *Error) GetContext() map[string]any {
	return e.context
}

// With adds a key-value pair to the error context.
// Returns the error for method chaining.
func (e *Error) With(key string, value any) *Error {
	if e.context == nil {
		e.context = make(map[string]any)
	}
	e.context[key] = value
	return e
}

// WithTable adds table context to the error.
func (e *Error) WithTable(table string) *Error {
	return e.With("table", table)
}

// WithColumn adds column context to the error.
func (e *Error) WithColumn(name string) *Error {
	return e.With("column", name)
}

// WithRelation adds relation context to the error.
func (e *Error) WithRelation(propertyName string) *Error {
	return e.With("relation", propertyName)
}

// WithSQL adds SQL statement context to the error.
func (e *Error) WithSQL(sql string) *Error {
	return e.With("sql", sql)
}

// New creates a new Error with the given code and message.
func New(code Code, msg string) *Error {
	return &Error{
		code:    code,
		message: msg,
		context: make(map[string]any),
	}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{
		code:    code,
		message: fmt.Sprintf(format, args...),
		context: make(map[string]any),
	}
}

// Wrap creates a new Error that wraps an existing error.
func Wrap(code Code, err error, msg string) *Error {
	if err == nil {
		return New(code, msg)
	}
	return &Error{
		code:    code,
		message: msg,
		context: make(map[string]any),
		cause:   err,
	}
}

// Wrapf creates a new Error that wraps an existing error with a formatted message.
func Wrapf(code Code, err error, format string, args ...any) *Error {
	return Wrap(code, err, fmt.Sprintf(format, args...))
}

// GetErrorCode extracts the error code from an error chain.
// Returns empty string if no code is found.
func GetErrorCode(err error) Code {
	if err == nil {
		return ""
	}

	var se *Error
	if errors.As(err, &se) {
		return se.code
	}

	return ""
}

// Is checks if an error has the specified code.
func Is(err error, code Code) bool {
	return GetErrorCode(err) == code
}

// IsFatal reports whether the error must not be retried.
// Validation, unsupported-operation, and target-missing errors are fatal;
// transient lock errors are not.
func IsFatal(err error) bool {
	code := GetErrorCode(err)
	if code == "" {
		return false
	}
	return !strings.HasPrefix(string(code), "E3")
}

// WrapSQL creates an ErrSQLExecution error with table context.
// Example: WrapSQL(err, "drop foreign key", "order")
func WrapSQL(err error, op string, table string) *Error {
	e := Wrap(ErrSQLExecution, err, "failed to "+op)
	if table != "" {
		e.WithTable(table)
	}
	return e
}
