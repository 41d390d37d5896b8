// Package dialect provides database-specific DDL generation for MySQL,
// PostgreSQL, and SQLite: identifier quoting, the column definition
// compiler, and per-operation syntax fragments. Each dialect is selected
// once per migration and passed down; no call site re-dispatches on the
// dialect tag.
package dialect

import (
	"github.com/enfyra/server-sub005/internal/schema"
	"github.com/enfyra/server-sub005/internal/syncerr"
)

// ForeignKey describes an ADD CONSTRAINT ... FOREIGN KEY operation.
type ForeignKey struct {
	// Name is the constraint name (fk_{table}_{column} by convention).
	Name string
	// Table and Column are the constrained side.
	Table  string
	Column string
	// RefTable and RefColumn are the referenced side.
	RefTable  string
	RefColumn string
	// OnDelete is SET NULL for optional relations, RESTRICT for required.
	OnDelete string
	// OnUpdate is always CASCADE.
	OnUpdate string
}

// Dialect is the strategy interface for database-specific DDL. Implementations
// exist for MySQL, PostgreSQL, and SQLite.
type Dialect interface {
	// Name returns the dialect tag (mysql, postgres, sqlite).
	Name() string

	// QuoteIdent quotes a table or column identifier.
	// MySQL: `name`; PostgreSQL/SQLite: "name".
	QuoteIdent(name string) string

	// ---------------------------------------------------------------------
	// Capability set
	// ---------------------------------------------------------------------

	// SupportsTransactionalDDL reports whether DDL can run inside a
	// transaction with rollback. PostgreSQL: true; MySQL/SQLite: false
	// (MySQL auto-commits DDL; SQLite batches are executed statement by
	// statement so partial failure reports committed statements).
	SupportsTransactionalDDL() bool

	// SupportsAlterColumn reports whether an existing column's definition
	// can be modified in place. SQLite: false (requires table recreation).
	SupportsAlterColumn() bool

	// SupportsAddForeignKey reports whether a foreign key can be added to
	// an existing table via ALTER TABLE. SQLite: false (FKs must be inline
	// in CREATE TABLE / ADD COLUMN).
	SupportsAddForeignKey() bool

	// SupportsReferencingFKScan reports whether the dialect can enumerate
	// all foreign keys referencing a given table. SQLite: false (PRAGMA
	// introspection cannot answer this).
	SupportsReferencingFKScan() bool

	// ---------------------------------------------------------------------
	// Column definition compiler
	// ---------------------------------------------------------------------

	// CompileColumn maps a column description to a dialect-specific DDL
	// fragment: name, physical type, nullability, default, and PRIMARY KEY
	// when the column is primary and not generated. Generated primaries are
	// compiled by GeneratedPrimarySQL instead.
	CompileColumn(table string, col *schema.ColumnDescription) string

	// GeneratedPrimarySQL compiles an auto-generated primary key column
	// (AUTO_INCREMENT / SERIAL / AUTOINCREMENT, or a UUID default).
	GeneratedPrimarySQL(col *schema.ColumnDescription) string

	// CompileKeyColumn compiles a foreign-key column fragment whose physical
	// type matches the referenced primary key's key type exactly.
	CompileKeyColumn(name string, key schema.KeyType, nullable bool) string

	// ---------------------------------------------------------------------
	// DDL syntax fragments
	// ---------------------------------------------------------------------

	// CreateTableSQL builds a CREATE TABLE statement from pre-compiled
	// column fragments, inline foreign keys, and composite uniques.
	CreateTableSQL(table string, columnDefs []string, fks []ForeignKey, uniques [][]string) string

	// DropTableSQL builds DROP TABLE IF EXISTS.
	DropTableSQL(table string) string

	// RenameTableSQL builds the dialect's table rename.
	// MySQL: RENAME TABLE a TO b; PostgreSQL/SQLite: ALTER TABLE a RENAME TO b.
	RenameTableSQL(oldName, newName string) string

	// RenameColumnSQL builds ALTER TABLE ... RENAME COLUMN.
	RenameColumnSQL(table, oldName, newName string) string

	// AddColumnSQL builds ALTER TABLE ... ADD COLUMN around a compiled
	// column fragment.
	AddColumnSQL(table, columnDef string) string

	// DropColumnSQL builds ALTER TABLE ... DROP COLUMN.
	DropColumnSQL(table, column string) string

	// ModifyColumnSQL builds the statements that change an existing
	// column's definition. MySQL emits one MODIFY COLUMN; PostgreSQL emits
	// a sequence (TYPE with optional USING cast, SET/DROP NOT NULL,
	// SET/DROP DEFAULT, enum CHECK swap); SQLite returns a fatal
	// unsupported-operation error.
	ModifyColumnSQL(table string, col *schema.ColumnDescription, oldType schema.ColumnType) ([]string, error)

	// AddForeignKeySQL builds ALTER TABLE ... ADD CONSTRAINT ... FOREIGN KEY.
	AddForeignKeySQL(fk ForeignKey) (string, error)

	// DropForeignKeySQL builds the dialect's FK drop.
	// MySQL: DROP FOREIGN KEY; PostgreSQL: DROP CONSTRAINT; SQLite: error.
	DropForeignKeySQL(table, constraint string) (string, error)

	// AddIndexSQL builds CREATE [UNIQUE] INDEX with conventional naming.
	AddIndexSQL(table string, columns []string, unique bool) string

	// DropIndexSQL builds the dialect's index drop. MySQL scopes the drop
	// to the table; PostgreSQL/SQLite drop by name.
	DropIndexSQL(table, name string) string

	// LockTimeoutSQL returns the per-session statement bounding lock
	// acquisition at five seconds, run before each migration attempt so
	// contention fails fast instead of queueing.
	LockTimeoutSQL() string
}

// Get returns the dialect implementation for the given tag.
func Get(name string) (Dialect, error) {
	switch name {
	case "mysql":
		return MySQL(), nil
	case "postgres", "postgresql":
		return Postgres(), nil
	case "sqlite", "sqlite3":
		return SQLite(), nil
	default:
		return nil, syncerr.New(syncerr.ErrUnsupportedDialectName, "unsupported dialect").
			With("dialect", name)
	}
}

// Names returns the list of supported dialect tags.
func Names() []string {
	return []string{"mysql", "postgres", "sqlite"}
}
