// Package diff computes the structural delta between two table descriptions.
// The computation is pure: given the same two descriptions and a
// deterministic environment it always produces the same SchemaDiff, and it
// never executes DDL or logs; diagnostics accumulate on the result.
package diff

import (
	"context"

	"github.com/enfyra/server-sub005/internal/schema"
)

// Environment supplies the live-schema answers the diff needs: physical
// primary-key types, existing column sets, and table existence. The
// orchestrator backs it with database introspection; tests and dry-run
// planning back it with metadata only.
type Environment interface {
	// ResolveKeyType returns the physical key type of table's primary key.
	ResolveKeyType(ctx context.Context, table string) (schema.KeyType, error)

	// ListColumns returns the physical column names of table.
	// An unknown table yields an empty list, not an error.
	ListColumns(ctx context.Context, table string) ([]string, error)

	// TableExists reports whether table physically exists.
	TableExists(ctx context.Context, table string) (bool, error)
}

// Rename is an old-name/new-name pair.
type Rename struct {
	From string
	To   string
}

// ForeignKeyRef carries everything needed to constrain a generated FK column.
type ForeignKeyRef struct {
	// TargetTable and TargetColumn are the referenced side (column is
	// always the primary key).
	TargetTable  string
	TargetColumn string
	// KeyType is the referenced primary key's physical type; the FK column
	// must match it exactly.
	KeyType schema.KeyType
	// IsNullable mirrors the relation's nullability.
	IsNullable bool
	// Unique is set for one-to-one relations.
	Unique bool
	// OnDelete is SET NULL for nullable relations, RESTRICT otherwise.
	OnDelete string
}

// ColumnCreate is a pending column addition. Ref is non-nil when the column
// is a relation-derived foreign key.
type ColumnCreate struct {
	Column schema.ColumnDescription
	Ref    *ForeignKeyRef
}

// ColumnUpdate is a pending in-place definition change.
type ColumnUpdate struct {
	Column  schema.ColumnDescription
	OldType schema.ColumnType
}

// ColumnDelete is a pending column removal. IsForeignKey marks relation
// FK columns whose constraint must be dropped first.
type ColumnDelete struct {
	Name         string
	IsForeignKey bool
}

// ColumnDelta groups all pending column operations.
type ColumnDelta struct {
	Create []ColumnCreate
	Update []ColumnUpdate
	Delete []ColumnDelete
	Rename []Rename
}

// GroupDelta is a full-replacement change of column-name groups.
type GroupDelta struct {
	Create [][]string
	Delete [][]string
}

// ConstraintDelta groups unique and index changes.
type ConstraintDelta struct {
	Uniques GroupDelta
	Indexes GroupDelta
}

// CrossTableKind tags a cross-table operation.
type CrossTableKind string

const (
	CrossCreate CrossTableKind = "create"
	CrossDrop   CrossTableKind = "drop"
	CrossRename CrossTableKind = "rename"
)

// CrossTableOp is a column operation issued against a different table than
// the one being migrated (one-to-many FK placement on the target table).
type CrossTableOp struct {
	Table  string
	Kind   CrossTableKind
	Create *ColumnCreate // CrossCreate
	Drop   *ColumnDelete // CrossDrop
	Rename *Rename       // CrossRename
}

// JunctionSpec describes a many-to-many junction table to create.
type JunctionSpec struct {
	Name         string
	SourceTable  string
	TargetTable  string
	SourceColumn string
	TargetColumn string
	SourceKey    schema.KeyType
	TargetKey    schema.KeyType
}

// JunctionDelta groups junction-table lifecycle changes.
type JunctionDelta struct {
	Create []JunctionSpec
	Drop   []string
	Rename []Rename
}

// FKRecreate is a drop-then-add of an existing FK constraint, used when only
// the ON DELETE policy changes.
type FKRecreate struct {
	Table  string
	Column string
	Ref    ForeignKeyRef
}

// FKDelta groups foreign-key constraint recreation.
type FKDelta struct {
	Recreate []FKRecreate
}

// RelationDelta is informational: which relations were created, deleted, or
// changed, by property name.
type RelationDelta struct {
	Created []string
	Deleted []string
	Updated []string
}

// Diagnostic is an accumulated, non-fatal observation made while diffing.
type Diagnostic struct {
	Level   string // "info" or "warn"
	Table   string
	Message string
}

// SchemaDiff is the computed delta between two table descriptions.
type SchemaDiff struct {
	TableName   string
	TableRename *Rename
	Columns     ColumnDelta
	Relations   RelationDelta
	Constraints ConstraintDelta
	CrossTable  []CrossTableOp
	Junctions   JunctionDelta
	ForeignKeys FKDelta
	Diagnostics []Diagnostic
}

// IsEmpty reports whether the diff contains no operations at all.
func (d *SchemaDiff) IsEmpty() bool {
	return d.TableRename == nil &&
		len(d.Columns.Create) == 0 &&
		len(d.Columns.Update) == 0 &&
		len(d.Columns.Delete) == 0 &&
		len(d.Columns.Rename) == 0 &&
		len(d.Constraints.Uniques.Create) == 0 &&
		len(d.Constraints.Uniques.Delete) == 0 &&
		len(d.Constraints.Indexes.Create) == 0 &&
		len(d.Constraints.Indexes.Delete) == 0 &&
		len(d.CrossTable) == 0 &&
		len(d.Junctions.Create) == 0 &&
		len(d.Junctions.Drop) == 0 &&
		len(d.Junctions.Rename) == 0 &&
		len(d.ForeignKeys.Recreate) == 0
}

func (d *SchemaDiff) warnf(table, msg string) {
	d.Diagnostics = append(d.Diagnostics, Diagnostic{Level: "warn", Table: table, Message: msg})
}

func (d *SchemaDiff) infof(table, msg string) {
	d.Diagnostics = append(d.Diagnostics, Diagnostic{Level: "info", Table: table, Message: msg})
}

// MetadataEnvironment is an Environment backed purely by table descriptions.
// It is used for dry-run planning and tests, where no live database is
// available; key types come from the declared primary keys.
type MetadataEnvironment struct {
	Tables map[string]*schema.TableDescription
}

// ResolveKeyType returns the declared key type, defaulting to integer for
// unknown tables.
func (m *MetadataEnvironment) ResolveKeyType(_ context.Context, table string) (schema.KeyType, error) {
	if t, ok := m.Tables[table]; ok {
		return t.DeclaredKeyType(), nil
	}
	return schema.KeyInteger, nil
}

// ListColumns returns the declared column names plus the derived FK columns
// of local relations.
func (m *MetadataEnvironment) ListColumns(_ context.Context, table string) ([]string, error) {
	t, ok := m.Tables[table]
	if !ok {
		return nil, nil
	}
	names := make([]string, 0, len(t.Columns))
	for i := range t.Columns {
		names = append(names, t.Columns[i].Name)
	}
	for i := range t.Relations {
		rel := t.Relations[i]
		if owner, col := rel.ForeignKeyColumn(t.Name); owner == t.Name && col != "" {
			names = append(names, col)
		}
	}
	return names, nil
}

// TableExists reports whether the description set contains table.
func (m *MetadataEnvironment) TableExists(_ context.Context, table string) (bool, error) {
	_, ok := m.Tables[table]
	return ok, nil
}
