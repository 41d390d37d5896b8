package diff

import (
	"context"
	"errors"

	"github.com/enfyra/server-sub005/internal/schema"
	"github.com/enfyra/server-sub005/internal/syncerr"
)

// diffRelations compares relations by stable ID and expands each change into
// the physical operations it implies. Relations exist only as derived FK
// columns or junction tables, so every relation change becomes a column,
// cross-table, junction, or constraint operation.
func diffRelations(ctx context.Context, d *SchemaDiff, old, new *schema.TableDescription, env Environment) error {
	oldByID := make(map[string]*schema.RelationDescription)
	for i := range old.Relations {
		if old.Relations[i].ID != "" {
			oldByID[old.Relations[i].ID] = &old.Relations[i]
		}
	}
	newByID := make(map[string]*schema.RelationDescription)
	for i := range new.Relations {
		if new.Relations[i].ID != "" {
			newByID[new.Relations[i].ID] = &new.Relations[i]
		}
	}

	// Created relations, keyed off the new derived names.
	for i := range new.Relations {
		rel := &new.Relations[i]
		if rel.ID != "" {
			if _, exists := oldByID[rel.ID]; exists {
				continue
			}
		}
		if err := emitRelationCreate(ctx, d, new.Name, rel, env); err != nil {
			return err
		}
		d.Relations.Created = append(d.Relations.Created, rel.PropertyName)
	}

	// Deleted relations, keyed off the old derived names.
	for i := range old.Relations {
		rel := &old.Relations[i]
		if rel.ID == "" {
			continue
		}
		if _, exists := newByID[rel.ID]; exists {
			continue
		}
		emitRelationDelete(d, new.Name, rel)
		d.Relations.Deleted = append(d.Relations.Deleted, rel.PropertyName)
	}

	// Relations present on both sides: target change, type change, rename,
	// nullability flip.
	for i := range new.Relations {
		newRel := &new.Relations[i]
		if newRel.ID == "" {
			continue
		}
		oldRel, exists := oldByID[newRel.ID]
		if !exists {
			continue
		}
		if err := diffRelationPair(ctx, d, new.Name, oldRel, newRel, env); err != nil {
			return err
		}
	}

	return nil
}

// diffRelationPair handles a relation that survives the edit.
func diffRelationPair(ctx context.Context, d *SchemaDiff, table string, oldRel, newRel *schema.RelationDescription, env Environment) error {
	// A target change means the FK points somewhere else entirely; there is no
	// data-preserving transformation, so it decomposes into delete+create.
	if oldRel.TargetTableName != newRel.TargetTableName {
		emitRelationDelete(d, table, oldRel)
		if err := emitRelationCreate(ctx, d, table, newRel, env); err != nil {
			return err
		}
		d.Relations.Updated = append(d.Relations.Updated, newRel.PropertyName)
		return nil
	}

	if oldRel.Type != newRel.Type {
		if err := emitTypeTransition(ctx, d, table, oldRel, newRel, env); err != nil {
			return err
		}
		d.Relations.Updated = append(d.Relations.Updated, newRel.PropertyName)
		return nil
	}

	changed := false

	// Property or inverse-property rename: emits a rename of the derived
	// column or junction table, never a drop+create, to preserve data.
	switch newRel.Type {
	case schema.ManyToOne, schema.OneToOne:
		if oldRel.PropertyName != newRel.PropertyName {
			d.Columns.Rename = append(d.Columns.Rename, Rename{
				From: oldRel.PropertyName + "Id",
				To:   newRel.PropertyName + "Id",
			})
			changed = true
		}
	case schema.OneToMany:
		if oldRel.InversePropertyName != newRel.InversePropertyName {
			d.CrossTable = append(d.CrossTable, CrossTableOp{
				Table: newRel.TargetTableName,
				Kind:  CrossRename,
				Rename: &Rename{
					From: oldRel.InversePropertyName + "Id",
					To:   newRel.InversePropertyName + "Id",
				},
			})
			changed = true
		}
	case schema.ManyToMany:
		oldJunction := oldRel.JunctionTableName(table)
		newJunction := newRel.JunctionTableName(table)
		if oldJunction != newJunction {
			d.Junctions.Rename = append(d.Junctions.Rename, Rename{From: oldJunction, To: newJunction})
			changed = true
		}
	}

	// A nullability flip changes the ON DELETE policy, which can only be
	// applied by dropping and re-adding the FK constraint. The constraint
	// lives wherever the FK column lives: locally for many-to-one and
	// one-to-one, on the target table for one-to-many.
	if oldRel.IsNullable != newRel.IsNullable {
		switch {
		case newRel.Type.OwnsLocalColumn():
			ref, err := resolveRef(ctx, env, table, newRel.TargetTableName, newRel.IsNullable, newRel.Type == schema.OneToOne)
			if err != nil {
				return withRelation(err, newRel.PropertyName)
			}
			d.ForeignKeys.Recreate = append(d.ForeignKeys.Recreate, FKRecreate{
				Table:  table,
				Column: newRel.PropertyName + "Id",
				Ref:    *ref,
			})
			changed = true
		case newRel.Type == schema.OneToMany:
			ref, err := resolveRef(ctx, env, table, table, newRel.IsNullable, false)
			if err != nil {
				return withRelation(err, newRel.PropertyName)
			}
			d.ForeignKeys.Recreate = append(d.ForeignKeys.Recreate, FKRecreate{
				Table:  newRel.TargetTableName,
				Column: newRel.InversePropertyName + "Id",
				Ref:    *ref,
			})
			changed = true
		}
	}

	if changed {
		d.Relations.Updated = append(d.Relations.Updated, newRel.PropertyName)
	}
	return nil
}

// emitTypeTransition applies the relation type-transition matrix. Old derived
// names drive the drops, new derived names drive the creates.
func emitTypeTransition(ctx context.Context, d *SchemaDiff, table string, oldRel, newRel *schema.RelationDescription, env Environment) error {
	oldLocal := oldRel.Type.OwnsLocalColumn()
	newLocal := newRel.Type.OwnsLocalColumn()

	switch {
	case oldLocal && newLocal:
		// many-to-one <-> one-to-one share the FK column; only the UNIQUE
		// constraint on it changes.
		fkColumn := newRel.PropertyName + "Id"
		if oldRel.PropertyName != newRel.PropertyName {
			d.Columns.Rename = append(d.Columns.Rename, Rename{
				From: oldRel.PropertyName + "Id",
				To:   fkColumn,
			})
		}
		if newRel.Type == schema.OneToOne {
			d.Constraints.Uniques.Create = append(d.Constraints.Uniques.Create, []string{fkColumn})
		} else {
			d.Constraints.Uniques.Delete = append(d.Constraints.Uniques.Delete, []string{fkColumn})
		}
		return nil

	case oldLocal && newRel.Type == schema.ManyToMany:
		d.Columns.Delete = append(d.Columns.Delete, ColumnDelete{
			Name:         oldRel.PropertyName + "Id",
			IsForeignKey: true,
		})
		return emitJunctionCreate(ctx, d, table, newRel, env)

	case oldRel.Type == schema.ManyToMany && newLocal:
		d.Junctions.Drop = append(d.Junctions.Drop, oldRel.JunctionTableName(table))
		// Existing rows have no value for the new FK column yet, so it is
		// forced nullable regardless of the declared nullability.
		forced := *newRel
		forced.IsNullable = true
		return emitLocalColumnCreate(ctx, d, table, &forced, env)

	case oldRel.Type == schema.OneToMany && newRel.Type == schema.ManyToMany:
		d.CrossTable = append(d.CrossTable, CrossTableOp{
			Table: oldRel.TargetTableName,
			Kind:  CrossDrop,
			Drop:  &ColumnDelete{Name: oldRel.InversePropertyName + "Id", IsForeignKey: true},
		})
		return emitJunctionCreate(ctx, d, table, newRel, env)

	case oldRel.Type == schema.ManyToMany && newRel.Type == schema.OneToMany:
		d.Junctions.Drop = append(d.Junctions.Drop, oldRel.JunctionTableName(table))
		return emitTargetColumnCreate(ctx, d, table, newRel, env)

	case oldLocal && newRel.Type == schema.OneToMany:
		d.Columns.Delete = append(d.Columns.Delete, ColumnDelete{
			Name:         oldRel.PropertyName + "Id",
			IsForeignKey: true,
		})
		return emitTargetColumnCreate(ctx, d, table, newRel, env)

	case oldRel.Type == schema.OneToMany && newLocal:
		d.CrossTable = append(d.CrossTable, CrossTableOp{
			Table: oldRel.TargetTableName,
			Kind:  CrossDrop,
			Drop:  &ColumnDelete{Name: oldRel.InversePropertyName + "Id", IsForeignKey: true},
		})
		return emitLocalColumnCreate(ctx, d, table, newRel, env)
	}

	return syncerr.New(syncerr.ErrValidation, "unhandled relation type transition").
		WithTable(table).
		WithRelation(newRel.PropertyName).
		With("oldType", string(oldRel.Type)).
		With("newType", string(newRel.Type))
}

// emitRelationCreate expands a brand-new relation into its physical creates.
func emitRelationCreate(ctx context.Context, d *SchemaDiff, table string, rel *schema.RelationDescription, env Environment) error {
	switch rel.Type {
	case schema.ManyToOne, schema.OneToOne:
		return emitLocalColumnCreate(ctx, d, table, rel, env)
	case schema.OneToMany:
		return emitTargetColumnCreate(ctx, d, table, rel, env)
	case schema.ManyToMany:
		return emitJunctionCreate(ctx, d, table, rel, env)
	}
	return syncerr.New(syncerr.ErrInvalidType, "unknown relation type").
		WithTable(table).
		WithRelation(rel.PropertyName).
		With("type", string(rel.Type))
}

// emitRelationDelete expands a removed relation into its physical drops,
// keyed off the old derived names.
func emitRelationDelete(d *SchemaDiff, table string, rel *schema.RelationDescription) {
	switch rel.Type {
	case schema.ManyToOne, schema.OneToOne:
		d.Columns.Delete = append(d.Columns.Delete, ColumnDelete{
			Name:         rel.PropertyName + "Id",
			IsForeignKey: true,
		})
	case schema.OneToMany:
		d.CrossTable = append(d.CrossTable, CrossTableOp{
			Table: rel.TargetTableName,
			Kind:  CrossDrop,
			Drop:  &ColumnDelete{Name: rel.InversePropertyName + "Id", IsForeignKey: true},
		})
	case schema.ManyToMany:
		d.Junctions.Drop = append(d.Junctions.Drop, rel.JunctionTableName(table))
	}
}

// emitLocalColumnCreate adds the {propertyName}Id FK column on the source
// table, typed to match the target's physical primary key.
func emitLocalColumnCreate(ctx context.Context, d *SchemaDiff, table string, rel *schema.RelationDescription, env Environment) error {
	ref, err := resolveRef(ctx, env, table, rel.TargetTableName, rel.IsNullable, rel.Type == schema.OneToOne)
	if err != nil {
		return withRelation(err, rel.PropertyName)
	}
	d.Columns.Create = append(d.Columns.Create, ColumnCreate{
		Column: schema.ColumnDescription{
			Name:       rel.PropertyName + "Id",
			Type:       columnTypeForKey(ref.KeyType),
			IsNullable: rel.IsNullable,
		},
		Ref: ref,
	})
	return nil
}

// emitTargetColumnCreate adds the {inversePropertyName}Id FK column on the
// target table, referencing this table's primary key (one-to-many placement).
func emitTargetColumnCreate(ctx context.Context, d *SchemaDiff, table string, rel *schema.RelationDescription, env Environment) error {
	ref, err := resolveRef(ctx, env, table, table, rel.IsNullable, false)
	if err != nil {
		return withRelation(err, rel.PropertyName)
	}
	exists, err := env.TableExists(ctx, rel.TargetTableName)
	if err != nil {
		return err
	}
	if !exists {
		return targetMissing(table, rel)
	}
	d.CrossTable = append(d.CrossTable, CrossTableOp{
		Table: rel.TargetTableName,
		Kind:  CrossCreate,
		Create: &ColumnCreate{
			Column: schema.ColumnDescription{
				Name:       rel.InversePropertyName + "Id",
				Type:       columnTypeForKey(ref.KeyType),
				IsNullable: rel.IsNullable,
			},
			Ref: ref,
		},
	})
	return nil
}

// emitJunctionCreate adds the many-to-many junction table, resolving both
// sides' key types.
func emitJunctionCreate(ctx context.Context, d *SchemaDiff, table string, rel *schema.RelationDescription, env Environment) error {
	exists, err := env.TableExists(ctx, rel.TargetTableName)
	if err != nil {
		return err
	}
	if !exists && rel.TargetTableName != table {
		return targetMissing(table, rel)
	}
	sourceKey, err := env.ResolveKeyType(ctx, table)
	if err != nil {
		return err
	}
	targetKey, err := env.ResolveKeyType(ctx, rel.TargetTableName)
	if err != nil {
		return err
	}
	d.Junctions.Create = append(d.Junctions.Create, JunctionSpec{
		Name:         rel.JunctionTableName(table),
		SourceTable:  table,
		TargetTable:  rel.TargetTableName,
		SourceColumn: rel.JunctionSourceColumn(table),
		TargetColumn: rel.JunctionTargetColumn(table),
		SourceKey:    sourceKey,
		TargetKey:    targetKey,
	})
	return nil
}

// resolveRef builds the FK reference for a relation pointing at target,
// verifying the target exists and resolving its physical key type. The table
// currently being diffed counts as existing even before its CREATE TABLE runs.
func resolveRef(ctx context.Context, env Environment, table, target string, nullable, unique bool) (*ForeignKeyRef, error) {
	if target != table {
		exists, err := env.TableExists(ctx, target)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, syncerr.New(syncerr.ErrTargetTableMissing, "relation target table does not exist").
				WithTable(table).
				With("target", target)
		}
	}
	key, err := env.ResolveKeyType(ctx, target)
	if err != nil {
		return nil, err
	}
	onDelete := "RESTRICT"
	if nullable {
		onDelete = "SET NULL"
	}
	return &ForeignKeyRef{
		TargetTable:  target,
		TargetColumn: "id",
		KeyType:      key,
		IsNullable:   nullable,
		Unique:       unique,
		OnDelete:     onDelete,
	}, nil
}

// withRelation tags a coded error with the relation it came from.
func withRelation(err error, property string) error {
	var se *syncerr.Error
	if errors.As(err, &se) {
		se.WithRelation(property)
	}
	return err
}

func targetMissing(table string, rel *schema.RelationDescription) error {
	return syncerr.New(syncerr.ErrTargetTableMissing, "relation target table does not exist").
		WithTable(table).
		WithRelation(rel.PropertyName).
		With("target", rel.TargetTableName)
}

// columnTypeForKey maps a physical key type back to the logical column type
// recorded on the derived FK column.
func columnTypeForKey(key schema.KeyType) schema.ColumnType {
	switch key {
	case schema.KeyUUID:
		return schema.TypeUUID
	case schema.KeyVarchar:
		return schema.TypeVarchar
	default:
		return schema.TypeInt
	}
}
