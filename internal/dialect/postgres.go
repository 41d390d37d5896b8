package dialect

import (
	"fmt"
	"strings"

	"github.com/enfyra/server-sub005/internal/schema"
)

// postgres implements the Dialect interface for PostgreSQL.
type postgres struct{}

// Postgres returns the PostgreSQL dialect implementation.
func Postgres() Dialect {
	return &postgres{}
}

func (d *postgres) Name() string {
	return "postgres"
}

func (d *postgres) QuoteIdent(name string) string {
	escaped := strings.ReplaceAll(name, `"`, `""`)
	return `"` + escaped + `"`
}

// -----------------------------------------------------------------------------
// Capability set
// -----------------------------------------------------------------------------

func (d *postgres) SupportsTransactionalDDL() bool  { return true }
func (d *postgres) SupportsAlterColumn() bool       { return true }
func (d *postgres) SupportsAddForeignKey() bool     { return true }
func (d *postgres) SupportsReferencingFKScan() bool { return true }

// -----------------------------------------------------------------------------
// Type mapping
// -----------------------------------------------------------------------------

func (d *postgres) physicalType(col *schema.ColumnDescription) string {
	switch col.Type {
	case schema.TypeInt:
		return "INTEGER"
	case schema.TypeBigInt:
		return "BIGINT"
	case schema.TypeUUID:
		return "UUID"
	case schema.TypeVarchar, schema.TypeText:
		length := col.Options.Length
		if length == 0 {
			length = 255
		}
		return fmt.Sprintf("VARCHAR(%d)", length)
	case schema.TypeLongText:
		return "TEXT"
	case schema.TypeBoolean:
		return "BOOLEAN"
	case schema.TypeDateTime:
		return "TIMESTAMP"
	case schema.TypeTimestamp:
		return "TIMESTAMPTZ"
	case schema.TypeDate:
		return "DATE"
	case schema.TypeDecimal:
		return decimalType(col.Options)
	case schema.TypeJSON:
		return "JSONB"
	case schema.TypeEnum:
		// Enums are stored as text and restricted by a CHECK constraint,
		// which avoids separate CREATE TYPE lifecycle management.
		return "VARCHAR(255)"
	default:
		return strings.ToUpper(string(col.Type))
	}
}

func (d *postgres) keyTypeSQL(key schema.KeyType) string {
	switch key {
	case schema.KeyUUID:
		return "UUID"
	case schema.KeyVarchar:
		return "VARCHAR(255)"
	default:
		return "INTEGER"
	}
}

// -----------------------------------------------------------------------------
// Column compilation
// -----------------------------------------------------------------------------

func (d *postgres) CompileColumn(table string, col *schema.ColumnDescription) string {
	return buildColumnDef(table, col, columnDefConfig{
		quote:     d.QuoteIdent,
		mapper:    d,
		bools:     WordBooleans,
		enumCheck: d.enumCheck,
	})
}

func (d *postgres) enumCheck(table string, col *schema.ColumnDescription) string {
	return enumCheckClause(table, col, d.QuoteIdent)
}

func (d *postgres) GeneratedPrimarySQL(col *schema.ColumnDescription) string {
	if col.Type == schema.TypeUUID {
		return d.QuoteIdent(col.Name) + " UUID PRIMARY KEY DEFAULT gen_random_uuid()"
	}
	return d.QuoteIdent(col.Name) + " SERIAL PRIMARY KEY"
}

func (d *postgres) CompileKeyColumn(name string, key schema.KeyType, nullable bool) string {
	return buildKeyColumnDef(name, key, nullable, d.QuoteIdent, d)
}

// -----------------------------------------------------------------------------
// DDL generation
// -----------------------------------------------------------------------------

func (d *postgres) CreateTableSQL(table string, columnDefs []string, fks []ForeignKey, uniques [][]string) string {
	return buildCreateTable(table, columnDefs, fks, uniques, d.QuoteIdent)
}

func (d *postgres) DropTableSQL(table string) string {
	return "DROP TABLE IF EXISTS " + d.QuoteIdent(table)
}

func (d *postgres) RenameTableSQL(oldName, newName string) string {
	return "ALTER TABLE " + d.QuoteIdent(oldName) + " RENAME TO " + d.QuoteIdent(newName)
}

func (d *postgres) RenameColumnSQL(table, oldName, newName string) string {
	return "ALTER TABLE " + d.QuoteIdent(table) +
		" RENAME COLUMN " + d.QuoteIdent(oldName) + " TO " + d.QuoteIdent(newName)
}

func (d *postgres) AddColumnSQL(table, columnDef string) string {
	return "ALTER TABLE " + d.QuoteIdent(table) + " ADD COLUMN " + columnDef
}

func (d *postgres) DropColumnSQL(table, column string) string {
	return "ALTER TABLE " + d.QuoteIdent(table) + " DROP COLUMN " + d.QuoteIdent(column)
}

// ModifyColumnSQL emits the PostgreSQL statement sequence for a column
// definition change: the TYPE change (with a USING cast when narrowing a
// string column to an integer), nullability, default, and the enum CHECK
// constraint swap.
func (d *postgres) ModifyColumnSQL(table string, col *schema.ColumnDescription, oldType schema.ColumnType) ([]string, error) {
	var statements []string
	quotedTable := d.QuoteIdent(table)
	quotedCol := d.QuoteIdent(col.Name)

	// Drop the old enum CHECK before the type change so the cast is not
	// blocked by a stale constraint.
	if oldType == schema.TypeEnum {
		statements = append(statements,
			"ALTER TABLE "+quotedTable+" DROP CONSTRAINT IF EXISTS "+d.QuoteIdent(EnumCheckName(table, col.Name)))
	}

	if col.Type != oldType {
		stmt := "ALTER TABLE " + quotedTable + " ALTER COLUMN " + quotedCol + " TYPE " + d.physicalType(col)
		if isIntegerType(col.Type) && isStringType(oldType) {
			stmt += " USING " + quotedCol + "::INTEGER"
		}
		statements = append(statements, stmt)
	}

	if col.IsNullable {
		statements = append(statements,
			"ALTER TABLE "+quotedTable+" ALTER COLUMN "+quotedCol+" DROP NOT NULL")
	} else {
		statements = append(statements,
			"ALTER TABLE "+quotedTable+" ALTER COLUMN "+quotedCol+" SET NOT NULL")
	}

	if col.DefaultValue != nil {
		statements = append(statements,
			"ALTER TABLE "+quotedTable+" ALTER COLUMN "+quotedCol+" SET DEFAULT "+defaultLiteral(col.DefaultValue, WordBooleans))
	} else {
		statements = append(statements,
			"ALTER TABLE "+quotedTable+" ALTER COLUMN "+quotedCol+" DROP DEFAULT")
	}

	// Re-establish the CHECK constraint for the new enum values.
	if col.Type == schema.TypeEnum {
		statements = append(statements,
			"ALTER TABLE "+quotedTable+" ADD"+enumCheckClause(table, col, d.QuoteIdent))
	}

	return statements, nil
}

func isIntegerType(t schema.ColumnType) bool {
	return t == schema.TypeInt || t == schema.TypeBigInt
}

func isStringType(t schema.ColumnType) bool {
	switch t {
	case schema.TypeVarchar, schema.TypeText, schema.TypeLongText, schema.TypeEnum, schema.TypeUUID:
		return true
	}
	return false
}

func (d *postgres) AddForeignKeySQL(fk ForeignKey) (string, error) {
	return "ALTER TABLE " + d.QuoteIdent(fk.Table) + " ADD " + fkConstraintClause(fk, d.QuoteIdent), nil
}

func (d *postgres) DropForeignKeySQL(table, constraint string) (string, error) {
	return "ALTER TABLE " + d.QuoteIdent(table) + " DROP CONSTRAINT " + d.QuoteIdent(constraint), nil
}

func (d *postgres) AddIndexSQL(table string, columns []string, unique bool) string {
	return buildAddIndex(table, columns, unique, d.QuoteIdent)
}

func (d *postgres) DropIndexSQL(table, name string) string {
	return "DROP INDEX IF EXISTS " + d.QuoteIdent(name)
}

func (d *postgres) LockTimeoutSQL() string {
	return "SET lock_timeout = '5s'"
}
