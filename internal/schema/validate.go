package schema

import (
	"github.com/enfyra/server-sub005/internal/syncerr"
)

// Validate checks a table description at the boundary, before any diffing or
// DDL generation. All failures are validation errors: fatal, never retried.
func Validate(t *TableDescription) error {
	if t == nil {
		return syncerr.New(syncerr.ErrValidation, "table description is nil")
	}
	if t.Name == "" {
		return syncerr.New(syncerr.ErrValidation, "table name is required")
	}

	if err := validateColumns(t); err != nil {
		return err
	}
	return validateRelations(t)
}

func validateColumns(t *TableDescription) error {
	primaries := 0
	seen := make(map[string]bool, len(t.Columns))

	for i := range t.Columns {
		col := &t.Columns[i]
		if col.Name == "" {
			return syncerr.New(syncerr.ErrValidation, "column name is required").
				WithTable(t.Name)
		}
		if seen[col.Name] {
			return syncerr.New(syncerr.ErrNamingConflict, "duplicate column name").
				WithTable(t.Name).
				WithColumn(col.Name)
		}
		seen[col.Name] = true

		if !col.Type.Valid() {
			return syncerr.New(syncerr.ErrInvalidType, "unknown column type").
				WithTable(t.Name).
				WithColumn(col.Name).
				With("type", string(col.Type))
		}
		if col.Type == TypeEnum && len(col.Options.EnumValues) == 0 {
			return syncerr.New(syncerr.ErrValidation, "enum column requires enumValues").
				WithTable(t.Name).
				WithColumn(col.Name)
		}

		if col.IsPrimary {
			primaries++
			if col.Type != TypeInt && col.Type != TypeUUID {
				return syncerr.New(syncerr.ErrInvalidType, "primary key type must be int or uuid").
					WithTable(t.Name).
					WithColumn(col.Name).
					With("type", string(col.Type))
			}
		}
	}

	if primaries != 1 {
		return syncerr.New(syncerr.ErrValidation, "table must declare exactly one primary key column").
			WithTable(t.Name).
			With("primaryKeys", primaries)
	}
	return nil
}

func validateRelations(t *TableDescription) error {
	for i := range t.Relations {
		rel := &t.Relations[i]
		if rel.PropertyName == "" {
			return syncerr.New(syncerr.ErrValidation, "relation propertyName is required").
				WithTable(t.Name)
		}
		if !rel.Type.Valid() {
			return syncerr.New(syncerr.ErrInvalidType, "unknown relation type").
				WithTable(t.Name).
				WithRelation(rel.PropertyName).
				With("type", string(rel.Type))
		}
		if rel.TargetTableName == "" {
			return syncerr.New(syncerr.ErrValidation, "relation targetTableName is required").
				WithTable(t.Name).
				WithRelation(rel.PropertyName)
		}
		if rel.Type.RequiresInverse() && rel.InversePropertyName == "" {
			return syncerr.New(syncerr.ErrMissingInverse, "relation requires inversePropertyName").
				WithTable(t.Name).
				WithRelation(rel.PropertyName).
				With("type", string(rel.Type))
		}
		if IsSystemTable(rel.TargetTableName) {
			return syncerr.New(syncerr.ErrValidation, "system tables cannot be relation targets").
				WithTable(t.Name).
				WithRelation(rel.PropertyName).
				With("target", rel.TargetTableName)
		}
	}
	return nil
}
