package dialect

import (
	"fmt"
	"strings"

	"github.com/enfyra/server-sub005/internal/schema"
)

// mysql implements the Dialect interface for MySQL.
type mysql struct{}

// MySQL returns the MySQL dialect implementation.
func MySQL() Dialect {
	return &mysql{}
}

func (d *mysql) Name() string {
	return "mysql"
}

func (d *mysql) QuoteIdent(name string) string {
	escaped := strings.ReplaceAll(name, "`", "``")
	return "`" + escaped + "`"
}

// -----------------------------------------------------------------------------
// Capability set
// -----------------------------------------------------------------------------

func (d *mysql) SupportsTransactionalDDL() bool  { return false }
func (d *mysql) SupportsAlterColumn() bool       { return true }
func (d *mysql) SupportsAddForeignKey() bool     { return true }
func (d *mysql) SupportsReferencingFKScan() bool { return true }

// -----------------------------------------------------------------------------
// Type mapping
// -----------------------------------------------------------------------------

func (d *mysql) physicalType(col *schema.ColumnDescription) string {
	switch col.Type {
	case schema.TypeInt:
		return "INT"
	case schema.TypeBigInt:
		return "BIGINT"
	case schema.TypeUUID:
		return "VARCHAR(36)"
	case schema.TypeVarchar, schema.TypeText:
		length := col.Options.Length
		if length == 0 {
			length = 255
		}
		return fmt.Sprintf("VARCHAR(%d)", length)
	case schema.TypeLongText:
		return "LONGTEXT"
	case schema.TypeBoolean:
		return "TINYINT(1)"
	case schema.TypeDateTime:
		return "DATETIME"
	case schema.TypeTimestamp:
		return "TIMESTAMP"
	case schema.TypeDate:
		return "DATE"
	case schema.TypeDecimal:
		return decimalType(col.Options)
	case schema.TypeJSON:
		return "JSON"
	case schema.TypeEnum:
		return enumType(col.Options.EnumValues)
	default:
		return strings.ToUpper(string(col.Type))
	}
}

// enumType renders a native MySQL ENUM type from the declared values.
func enumType(values []string) string {
	var b strings.Builder
	b.WriteString("ENUM(")
	for i, v := range values {
		if i > 0 {
			b.WriteString(", ")
		}
		escaped := strings.ReplaceAll(v, "'", "''")
		b.WriteString("'")
		b.WriteString(escaped)
		b.WriteString("'")
	}
	b.WriteString(")")
	return b.String()
}

// decimalType renders DECIMAL(precision, scale) with 10,2 defaults.
func decimalType(o schema.ColumnOptions) string {
	precision, scale := o.Precision, o.Scale
	if precision == 0 {
		precision = 10
	}
	if scale == 0 {
		scale = 2
	}
	return fmt.Sprintf("DECIMAL(%d, %d)", precision, scale)
}

func (d *mysql) keyTypeSQL(key schema.KeyType) string {
	switch key {
	case schema.KeyUUID:
		return "VARCHAR(36)"
	case schema.KeyVarchar:
		return "VARCHAR(255)"
	default:
		return "INT"
	}
}

// -----------------------------------------------------------------------------
// Column compilation
// -----------------------------------------------------------------------------

func (d *mysql) CompileColumn(table string, col *schema.ColumnDescription) string {
	return buildColumnDef(table, col, columnDefConfig{
		quote:  d.QuoteIdent,
		mapper: d,
		bools:  NumericBooleans,
	})
}

func (d *mysql) GeneratedPrimarySQL(col *schema.ColumnDescription) string {
	if col.Type == schema.TypeUUID {
		// UUID values are generated by the application layer.
		return d.QuoteIdent(col.Name) + " VARCHAR(36) PRIMARY KEY"
	}
	return d.QuoteIdent(col.Name) + " INT AUTO_INCREMENT PRIMARY KEY"
}

func (d *mysql) CompileKeyColumn(name string, key schema.KeyType, nullable bool) string {
	return buildKeyColumnDef(name, key, nullable, d.QuoteIdent, d)
}

// -----------------------------------------------------------------------------
// DDL generation
// -----------------------------------------------------------------------------

func (d *mysql) CreateTableSQL(table string, columnDefs []string, fks []ForeignKey, uniques [][]string) string {
	return buildCreateTable(table, columnDefs, fks, uniques, d.QuoteIdent)
}

func (d *mysql) DropTableSQL(table string) string {
	return "DROP TABLE IF EXISTS " + d.QuoteIdent(table)
}

func (d *mysql) RenameTableSQL(oldName, newName string) string {
	return "RENAME TABLE " + d.QuoteIdent(oldName) + " TO " + d.QuoteIdent(newName)
}

func (d *mysql) RenameColumnSQL(table, oldName, newName string) string {
	return "ALTER TABLE " + d.QuoteIdent(table) +
		" RENAME COLUMN " + d.QuoteIdent(oldName) + " TO " + d.QuoteIdent(newName)
}

func (d *mysql) AddColumnSQL(table, columnDef string) string {
	return "ALTER TABLE " + d.QuoteIdent(table) + " ADD COLUMN " + columnDef
}

func (d *mysql) DropColumnSQL(table, column string) string {
	return "ALTER TABLE " + d.QuoteIdent(table) + " DROP COLUMN " + d.QuoteIdent(column)
}

func (d *mysql) ModifyColumnSQL(table string, col *schema.ColumnDescription, oldType schema.ColumnType) ([]string, error) {
	// MySQL restates the full definition in a single MODIFY COLUMN.
	stmt := "ALTER TABLE " + d.QuoteIdent(table) + " MODIFY COLUMN " + d.CompileColumn(table, col)
	return []string{stmt}, nil
}

func (d *mysql) AddForeignKeySQL(fk ForeignKey) (string, error) {
	return "ALTER TABLE " + d.QuoteIdent(fk.Table) + " ADD " + fkConstraintClause(fk, d.QuoteIdent), nil
}

func (d *mysql) DropForeignKeySQL(table, constraint string) (string, error) {
	return "ALTER TABLE " + d.QuoteIdent(table) + " DROP FOREIGN KEY " + d.QuoteIdent(constraint), nil
}

func (d *mysql) AddIndexSQL(table string, columns []string, unique bool) string {
	return buildAddIndex(table, columns, unique, d.QuoteIdent)
}

func (d *mysql) DropIndexSQL(table, name string) string {
	return "DROP INDEX " + d.QuoteIdent(name) + " ON " + d.QuoteIdent(table)
}

func (d *mysql) LockTimeoutSQL() string {
	return "SET SESSION innodb_lock_wait_timeout = 5"
}
