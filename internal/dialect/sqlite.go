package dialect

import (
	"fmt"
	"strings"

	"github.com/enfyra/server-sub005/internal/schema"
	"github.com/enfyra/server-sub005/internal/syncerr"
)

// sqlite implements the Dialect interface for SQLite.
//
// SQLite has no ALTER COLUMN, cannot add or drop constraints on an existing
// table, and its PRAGMA introspection cannot enumerate foreign keys that
// reference a table. Those operations return fatal unsupported-operation
// errors instead of silently emitting wrong DDL.
type sqlite struct{}

// SQLite returns the SQLite dialect implementation.
func SQLite() Dialect {
	return &sqlite{}
}

func (d *sqlite) Name() string {
	return "sqlite"
}

func (d *sqlite) QuoteIdent(name string) string {
	escaped := strings.ReplaceAll(name, `"`, `""`)
	return `"` + escaped + `"`
}

// -----------------------------------------------------------------------------
// Capability set
// -----------------------------------------------------------------------------

func (d *sqlite) SupportsTransactionalDDL() bool  { return false }
func (d *sqlite) SupportsAlterColumn() bool       { return false }
func (d *sqlite) SupportsAddForeignKey() bool     { return false }
func (d *sqlite) SupportsReferencingFKScan() bool { return false }

// -----------------------------------------------------------------------------
// Type mapping
// -----------------------------------------------------------------------------

func (d *sqlite) physicalType(col *schema.ColumnDescription) string {
	switch col.Type {
	case schema.TypeInt, schema.TypeBigInt:
		return "INTEGER"
	case schema.TypeUUID:
		return "VARCHAR(36)"
	case schema.TypeVarchar, schema.TypeText:
		length := col.Options.Length
		if length == 0 {
			length = 255
		}
		return fmt.Sprintf("VARCHAR(%d)", length)
	case schema.TypeLongText:
		return "TEXT"
	case schema.TypeBoolean:
		return "INTEGER"
	case schema.TypeDateTime, schema.TypeTimestamp:
		return "DATETIME"
	case schema.TypeDate:
		return "DATE"
	case schema.TypeDecimal:
		return decimalType(col.Options)
	case schema.TypeJSON:
		return "TEXT"
	case schema.TypeEnum:
		return "TEXT"
	default:
		return strings.ToUpper(string(col.Type))
	}
}

func (d *sqlite) keyTypeSQL(key schema.KeyType) string {
	switch key {
	case schema.KeyUUID:
		return "VARCHAR(36)"
	case schema.KeyVarchar:
		return "TEXT"
	default:
		return "INTEGER"
	}
}

// -----------------------------------------------------------------------------
// Column compilation
// -----------------------------------------------------------------------------

func (d *sqlite) CompileColumn(table string, col *schema.ColumnDescription) string {
	return buildColumnDef(table, col, columnDefConfig{
		quote:     d.QuoteIdent,
		mapper:    d,
		bools:     NumericBooleans,
		enumCheck: d.enumCheck,
	})
}

func (d *sqlite) enumCheck(table string, col *schema.ColumnDescription) string {
	return enumCheckClause(table, col, d.QuoteIdent)
}

func (d *sqlite) GeneratedPrimarySQL(col *schema.ColumnDescription) string {
	if col.Type == schema.TypeUUID {
		return d.QuoteIdent(col.Name) + " VARCHAR(36) PRIMARY KEY"
	}
	return d.QuoteIdent(col.Name) + " INTEGER PRIMARY KEY AUTOINCREMENT"
}

func (d *sqlite) CompileKeyColumn(name string, key schema.KeyType, nullable bool) string {
	return buildKeyColumnDef(name, key, nullable, d.QuoteIdent, d)
}

// -----------------------------------------------------------------------------
// DDL generation
// -----------------------------------------------------------------------------

func (d *sqlite) CreateTableSQL(table string, columnDefs []string, fks []ForeignKey, uniques [][]string) string {
	return buildCreateTable(table, columnDefs, fks, uniques, d.QuoteIdent)
}

func (d *sqlite) DropTableSQL(table string) string {
	return "DROP TABLE IF EXISTS " + d.QuoteIdent(table)
}

func (d *sqlite) RenameTableSQL(oldName, newName string) string {
	return "ALTER TABLE " + d.QuoteIdent(oldName) + " RENAME TO " + d.QuoteIdent(newName)
}

func (d *sqlite) RenameColumnSQL(table, oldName, newName string) string {
	return "ALTER TABLE " + d.QuoteIdent(table) +
		" RENAME COLUMN " + d.QuoteIdent(oldName) + " TO " + d.QuoteIdent(newName)
}

func (d *sqlite) AddColumnSQL(table, columnDef string) string {
	return "ALTER TABLE " + d.QuoteIdent(table) + " ADD COLUMN " + columnDef
}

func (d *sqlite) DropColumnSQL(table, column string) string {
	return "ALTER TABLE " + d.QuoteIdent(table) + " DROP COLUMN " + d.QuoteIdent(column)
}

func (d *sqlite) ModifyColumnSQL(table string, col *schema.ColumnDescription, oldType schema.ColumnType) ([]string, error) {
	return nil, syncerr.New(syncerr.ErrSQLiteAlterColumn,
		"SQLite does not support ALTER COLUMN; the table must be recreated manually").
		WithTable(table).
		WithColumn(col.Name)
}

func (d *sqlite) AddForeignKeySQL(fk ForeignKey) (string, error) {
	return "", syncerr.New(syncerr.ErrSQLiteAddForeignKey,
		"SQLite cannot add a foreign key to an existing table; declare it inline at column creation").
		WithTable(fk.Table).
		WithColumn(fk.Column)
}

func (d *sqlite) DropForeignKeySQL(table, constraint string) (string, error) {
	return "", syncerr.New(syncerr.ErrSQLiteDropForeignKey,
		"SQLite cannot drop a named foreign key constraint; the table must be recreated manually").
		WithTable(table).
		With("constraint", constraint)
}

func (d *sqlite) AddIndexSQL(table string, columns []string, unique bool) string {
	return buildAddIndex(table, columns, unique, d.QuoteIdent)
}

func (d *sqlite) DropIndexSQL(table, name string) string {
	return "DROP INDEX IF EXISTS " + d.QuoteIdent(name)
}

func (d *sqlite) LockTimeoutSQL() string {
	return "PRAGMA busy_timeout = 5000"
}
