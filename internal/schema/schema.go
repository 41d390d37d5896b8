// Package schema defines the declarative table metadata model that drives
// schema synchronization: table, column, and relation descriptions, the
// tagged type enumerations, and the derived physical names (foreign-key
// columns, junction tables) that relations expand into.
package schema

import (
	"strings"
)

// ColumnType is the logical column type. It is mapped to a physical SQL type
// per dialect by the column compiler.
type ColumnType string

const (
	TypeInt       ColumnType = "int"
	TypeBigInt    ColumnType = "bigint"
	TypeUUID      ColumnType = "uuid"
	TypeVarchar   ColumnType = "varchar"
	TypeText      ColumnType = "text"
	TypeLongText  ColumnType = "longtext"
	TypeBoolean   ColumnType = "boolean"
	TypeDateTime  ColumnType = "datetime"
	TypeTimestamp ColumnType = "timestamp"
	TypeDate      ColumnType = "date"
	TypeDecimal   ColumnType = "decimal"
	TypeJSON      ColumnType = "json"
	TypeEnum      ColumnType = "enum"
)

// columnTypes is the closed set of valid logical types.
var columnTypes = map[ColumnType]bool{
	TypeInt: true, TypeBigInt: true, TypeUUID: true, TypeVarchar: true,
	TypeText: true, TypeLongText: true, TypeBoolean: true, TypeDateTime: true,
	TypeTimestamp: true, TypeDate: true, TypeDecimal: true, TypeJSON: true,
	TypeEnum: true,
}

// Valid reports whether t is a known logical column type.
func (t ColumnType) Valid() bool {
	return columnTypes[t]
}

// IsDateLike reports whether columns of this type get an automatic index.
func (t ColumnType) IsDateLike() bool {
	return t == TypeDate || t == TypeDateTime || t == TypeTimestamp
}

// RelationType is the kind of relation between two tables.
type RelationType string

const (
	ManyToOne  RelationType = "many-to-one"
	OneToOne   RelationType = "one-to-one"
	OneToMany  RelationType = "one-to-many"
	ManyToMany RelationType = "many-to-many"
)

// Valid reports whether t is a known relation type.
func (t RelationType) Valid() bool {
	switch t {
	case ManyToOne, OneToOne, OneToMany, ManyToMany:
		return true
	}
	return false
}

// OwnsLocalColumn reports whether the relation stores its FK column on the
// source table (many-to-one, one-to-one) rather than on the target table or
// in a junction table.
func (t RelationType) OwnsLocalColumn() bool {
	return t == ManyToOne || t == OneToOne
}

// RequiresInverse reports whether inversePropertyName is mandatory.
func (t RelationType) RequiresInverse() bool {
	return t == OneToMany || t == ManyToMany
}

// KeyType is the physical shape of a primary key, resolved by introspection.
// Foreign-key columns must match the referenced key's physical type exactly.
type KeyType string

const (
	KeyInteger KeyType = "integer"
	KeyUUID    KeyType = "uuid"
	KeyVarchar KeyType = "varchar"
)

// KeyTypeFor maps a primary-key column's logical type to its key type.
func KeyTypeFor(t ColumnType) KeyType {
	switch t {
	case TypeInt, TypeBigInt:
		return KeyInteger
	case TypeUUID:
		return KeyUUID
	default:
		return KeyVarchar
	}
}

// Expr marks a default value as a raw SQL expression (e.g. CURRENT_TIMESTAMP)
// that must be emitted unquoted.
type Expr string

// ColumnOptions carries type-dependent settings.
type ColumnOptions struct {
	Length     int      `yaml:"length,omitempty"`
	Precision  int      `yaml:"precision,omitempty"`
	Scale      int      `yaml:"scale,omitempty"`
	EnumValues []string `yaml:"enumValues,omitempty"`
}

// IsZero reports whether no option is set.
func (o ColumnOptions) IsZero() bool {
	return o.Length == 0 && o.Precision == 0 && o.Scale == 0 && len(o.EnumValues) == 0
}

// Equal compares two option sets structurally.
func (o ColumnOptions) Equal(other ColumnOptions) bool {
	if o.Length != other.Length || o.Precision != other.Precision || o.Scale != other.Scale {
		return false
	}
	if len(o.EnumValues) != len(other.EnumValues) {
		return false
	}
	for i, v := range o.EnumValues {
		if other.EnumValues[i] != v {
			return false
		}
	}
	return true
}

// ColumnDescription describes a single column. The ID is the stable identity
// across edits; a column with no ID has no prior physical identity and is
// treated as brand-new by the diff engine.
type ColumnDescription struct {
	ID           string        `yaml:"id,omitempty"`
	Name         string        `yaml:"name"`
	Type         ColumnType    `yaml:"type"`
	IsPrimary    bool          `yaml:"isPrimary,omitempty"`
	IsGenerated  bool          `yaml:"isGenerated,omitempty"`
	IsNullable   bool          `yaml:"isNullable,omitempty"`
	DefaultValue any           `yaml:"defaultValue,omitempty"`
	Options      ColumnOptions `yaml:"options,omitempty"`
	IsUnique     bool          `yaml:"isUnique,omitempty"`
}

// RelationDescription describes a relation to another table. Identity across
// edits is the relation ID, not the property name; this is what lets a
// rename be distinguished from a delete+create.
type RelationDescription struct {
	ID                  string       `yaml:"id,omitempty"`
	PropertyName        string       `yaml:"propertyName"`
	Type                RelationType `yaml:"type"`
	TargetTableName     string       `yaml:"targetTableName"`
	InversePropertyName string       `yaml:"inversePropertyName,omitempty"`
	IsNullable          bool         `yaml:"isNullable,omitempty"`
}

// ForeignKeyColumn returns the derived FK column name and the table it lives
// on. For many-to-one and one-to-one the column is {propertyName}Id on the
// source table; for one-to-many it is {inversePropertyName}Id on the target.
// Many-to-many relations have no single FK column.
func (r RelationDescription) ForeignKeyColumn(sourceTable string) (table, column string) {
	switch r.Type {
	case ManyToOne, OneToOne:
		return sourceTable, r.PropertyName + "Id"
	case OneToMany:
		return r.TargetTableName, r.InversePropertyName + "Id"
	default:
		return "", ""
	}
}

// JunctionTableName returns the derived junction table name for a
// many-to-many relation: {source}_{plural(property)}_{target}.
func (r RelationDescription) JunctionTableName(sourceTable string) string {
	return sourceTable + "_" + Pluralize(r.PropertyName) + "_" + r.TargetTableName
}

// JunctionSourceColumn returns the source-side FK column of the junction.
func (r RelationDescription) JunctionSourceColumn(sourceTable string) string {
	return sourceTable + "Id"
}

// JunctionTargetColumn returns the target-side FK column of the junction.
// Self-referencing relations get a distinct name for the target side.
func (r RelationDescription) JunctionTargetColumn(sourceTable string) string {
	if r.TargetTableName == sourceTable {
		return "related" + Capitalize(r.TargetTableName) + "Id"
	}
	return r.TargetTableName + "Id"
}

// TableDescription describes a table: ordered columns, relations, and
// declared unique/index column groups. Identity is the table name.
type TableDescription struct {
	Name      string                `yaml:"name"`
	Columns   []ColumnDescription   `yaml:"columns"`
	Relations []RelationDescription `yaml:"relations,omitempty"`
	Uniques   [][]string            `yaml:"uniques,omitempty"`
	Indexes   [][]string            `yaml:"indexes,omitempty"`
}

// Column returns the column with the given name, or nil.
func (t *TableDescription) Column(name string) *ColumnDescription {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// PrimaryKey returns the primary-key column, or nil if none is declared.
func (t *TableDescription) PrimaryKey() *ColumnDescription {
	for i := range t.Columns {
		if t.Columns[i].IsPrimary {
			return &t.Columns[i]
		}
	}
	return nil
}

// DeclaredKeyType returns the key type of the declared primary key,
// defaulting to integer when no primary key is declared.
func (t *TableDescription) DeclaredKeyType() KeyType {
	pk := t.PrimaryKey()
	if pk == nil {
		return KeyInteger
	}
	return KeyTypeFor(pk.Type)
}

// systemColumns are always present on every managed table and protected from
// deletion even when absent from a new description.
var systemColumns = map[string]bool{
	"id":        true,
	"createdAt": true,
	"updatedAt": true,
}

// IsSystemColumn reports whether name is a protected system column.
func IsSystemColumn(name string) bool {
	return systemColumns[name]
}

// systemTables cannot be the target of user-defined relations.
var systemTables = map[string]bool{
	"table_definition":    true,
	"column_definition":   true,
	"relation_definition": true,
}

// IsSystemTable reports whether name is an internal metadata table.
func IsSystemTable(name string) bool {
	return systemTables[name]
}

// Pluralize appends "s" unless the name already ends in one.
// Junction naming only needs a stable convention, not real inflection.
func Pluralize(name string) string {
	if strings.HasSuffix(name, "s") {
		return name
	}
	return name + "s"
}

// Capitalize upper-cases the first byte (ASCII identifiers only).
func Capitalize(name string) string {
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
