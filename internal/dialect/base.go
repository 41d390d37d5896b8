// Shared helper functions used by all dialect implementations.
package dialect

import (
	"fmt"
	"strings"

	"github.com/enfyra/server-sub005/internal/schema"
)

// QuoteIdentFunc is a function that quotes an identifier.
type QuoteIdentFunc func(name string) string

// writeQuotedList writes comma-separated quoted identifiers to the builder.
func writeQuotedList(b *strings.Builder, items []string, quote QuoteIdentFunc) {
	for i, item := range items {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quote(item))
	}
}

// typeMapper maps a logical column type to the dialect's physical type.
// Each dialect implements this; everything else about column compilation is
// shared.
type typeMapper interface {
	physicalType(col *schema.ColumnDescription) string
	keyTypeSQL(key schema.KeyType) string
}

// BooleanLiterals holds the true/false default literals for a dialect.
type BooleanLiterals struct {
	True  string
	False string
}

// NumericBooleans uses 1/0 (MySQL, SQLite).
var NumericBooleans = BooleanLiterals{True: "1", False: "0"}

// WordBooleans uses TRUE/FALSE (PostgreSQL).
var WordBooleans = BooleanLiterals{True: "TRUE", False: "FALSE"}

// defaultLiteral renders a default value with type-correct quoting:
// strings are quoted and escaped, booleans use the dialect's literals,
// everything else is rendered raw.
func defaultLiteral(value any, bools BooleanLiterals) string {
	switch v := value.(type) {
	case schema.Expr:
		return string(v)
	case string:
		escaped := strings.ReplaceAll(v, "'", "''")
		return "'" + escaped + "'"
	case bool:
		if v {
			return bools.True
		}
		return bools.False
	case nil:
		return "NULL"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// columnDefConfig holds the per-dialect pieces of column compilation.
type columnDefConfig struct {
	quote     QuoteIdentFunc
	mapper    typeMapper
	bools     BooleanLiterals
	enumCheck func(table string, col *schema.ColumnDescription) string
}

// buildColumnDef compiles a column description into a DDL fragment.
// PRIMARY KEY is appended only for non-generated primaries; generated
// primaries get auto-increment syntax from GeneratedPrimarySQL instead.
func buildColumnDef(table string, col *schema.ColumnDescription, cfg columnDefConfig) string {
	var b strings.Builder

	b.WriteString(cfg.quote(col.Name))
	b.WriteString(" ")
	b.WriteString(cfg.mapper.physicalType(col))

	if col.IsPrimary && !col.IsGenerated {
		b.WriteString(" PRIMARY KEY")
	}
	if !col.IsNullable && !col.IsPrimary {
		b.WriteString(" NOT NULL")
	}
	if col.IsUnique && !col.IsPrimary {
		b.WriteString(" UNIQUE")
	}
	if col.DefaultValue != nil {
		b.WriteString(" DEFAULT ")
		b.WriteString(defaultLiteral(col.DefaultValue, cfg.bools))
	}
	if cfg.enumCheck != nil {
		if check := cfg.enumCheck(table, col); check != "" {
			b.WriteString(check)
		}
	}

	return b.String()
}

// buildKeyColumnDef compiles a foreign-key column fragment typed to match the
// referenced primary key.
func buildKeyColumnDef(name string, key schema.KeyType, nullable bool, quote QuoteIdentFunc, mapper typeMapper) string {
	var b strings.Builder
	b.WriteString(quote(name))
	b.WriteString(" ")
	b.WriteString(mapper.keyTypeSQL(key))
	if !nullable {
		b.WriteString(" NOT NULL")
	}
	return b.String()
}

// enumCheckClause generates an inline CHECK constraint restricting an enum
// column to its declared values. Used by PostgreSQL and SQLite, which store
// enums as text.
func enumCheckClause(table string, col *schema.ColumnDescription, quote QuoteIdentFunc) string {
	if col.Type != schema.TypeEnum || len(col.Options.EnumValues) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(" CONSTRAINT ")
	b.WriteString(quote(EnumCheckName(table, col.Name)))
	b.WriteString(" CHECK (")
	b.WriteString(quote(col.Name))
	b.WriteString(" IN (")
	for i, v := range col.Options.EnumValues {
		if i > 0 {
			b.WriteString(", ")
		}
		escaped := strings.ReplaceAll(v, "'", "''")
		b.WriteString("'")
		b.WriteString(escaped)
		b.WriteString("'")
	}
	b.WriteString("))")
	return b.String()
}

// fkConstraintClause generates a named FOREIGN KEY constraint clause for use
// inside CREATE TABLE or ALTER TABLE ... ADD.
func fkConstraintClause(fk ForeignKey, quote QuoteIdentFunc) string {
	var b strings.Builder

	if fk.Name != "" {
		b.WriteString("CONSTRAINT ")
		b.WriteString(quote(fk.Name))
		b.WriteString(" ")
	}

	b.WriteString("FOREIGN KEY (")
	b.WriteString(quote(fk.Column))
	b.WriteString(") REFERENCES ")
	b.WriteString(quote(fk.RefTable))
	b.WriteString(" (")
	b.WriteString(quote(fk.RefColumn))
	b.WriteString(")")

	if fk.OnDelete != "" {
		b.WriteString(" ON DELETE ")
		b.WriteString(fk.OnDelete)
	}
	if fk.OnUpdate != "" {
		b.WriteString(" ON UPDATE ")
		b.WriteString(fk.OnUpdate)
	}

	return b.String()
}

// buildCreateTable generates CREATE TABLE IF NOT EXISTS from pre-compiled
// column fragments, inline FK constraints, and composite unique groups.
// Inline constraints work identically across all three dialects, which is
// why FKs go here rather than in post-create ALTERs on SQLite.
func buildCreateTable(table string, columnDefs []string, fks []ForeignKey, uniques [][]string, quote QuoteIdentFunc) string {
	var b strings.Builder

	b.WriteString("CREATE TABLE IF NOT EXISTS ")
	b.WriteString(quote(table))
	b.WriteString(" (\n")

	for i, def := range columnDefs {
		if i > 0 {
			b.WriteString(",\n")
		}
		b.WriteString("  ")
		b.WriteString(def)
	}

	for _, fk := range fks {
		b.WriteString(",\n  ")
		b.WriteString(fkConstraintClause(fk, quote))
	}

	for _, group := range uniques {
		if len(group) == 0 {
			continue
		}
		b.WriteString(",\n  CONSTRAINT ")
		b.WriteString(quote(UniqueName(table, group...)))
		b.WriteString(" UNIQUE (")
		writeQuotedList(&b, group, quote)
		b.WriteString(")")
	}

	b.WriteString("\n)")
	return b.String()
}

// buildAddIndex generates CREATE [UNIQUE] INDEX with conventional naming.
func buildAddIndex(table string, columns []string, unique bool, quote QuoteIdentFunc) string {
	var b strings.Builder

	b.WriteString("CREATE ")
	if unique {
		b.WriteString("UNIQUE ")
	}
	b.WriteString("INDEX ")
	if unique {
		b.WriteString(quote(UniqueName(table, columns...)))
	} else {
		b.WriteString(quote(IndexName(table, columns...)))
	}
	b.WriteString(" ON ")
	b.WriteString(quote(table))
	b.WriteString(" (")
	writeQuotedList(&b, columns, quote)
	b.WriteString(")")

	return b.String()
}

// FKName returns the conventional foreign-key constraint name.
func FKName(table, column string) string {
	return "fk_" + table + "_" + column
}

// IndexName returns the conventional index name: idx_table_col1_col2.
func IndexName(table string, cols ...string) string {
	return "idx_" + table + "_" + strings.Join(cols, "_")
}

// UniqueName returns the conventional unique constraint/index name.
func UniqueName(table string, cols ...string) string {
	return "uniq_" + table + "_" + strings.Join(cols, "_")
}

// EnumCheckName returns the conventional enum CHECK constraint name.
func EnumCheckName(table, column string) string {
	return "chk_" + table + "_" + column + "_enum"
}
