package diff

import (
	"context"
	"reflect"
	"sort"
	"strings"

	"github.com/enfyra/server-sub005/internal/schema"
	"github.com/enfyra/server-sub005/internal/syncerr"
)

// Diff compares an old and a new table description and returns the
// operations needed to transform the physical schema.
//
// Algorithm:
//  1. Table rename (name change).
//  2. Column diff, keyed by stable column ID (rename vs delete+create).
//  3. Unique/index constraint diff (structural set comparison,
//     full replacement on any difference).
//  4. Relation diff, keyed by stable relation ID, including the relation
//     type-transition matrix.
//  5. Naming-collision validation of every generated FK column.
func Diff(ctx context.Context, old, new *schema.TableDescription, env Environment) (*SchemaDiff, error) {
	if old == nil {
		old = &schema.TableDescription{}
	}
	if new == nil {
		new = &schema.TableDescription{}
	}
	if env == nil {
		env = &MetadataEnvironment{}
	}

	d := &SchemaDiff{TableName: new.Name}

	if old.Name != "" && new.Name != "" && old.Name != new.Name {
		d.TableRename = &Rename{From: old.Name, To: new.Name}
	}

	diffColumns(d, old, new)
	diffConstraints(d, old, new)

	if err := diffRelations(ctx, d, old, new, env); err != nil {
		return nil, err
	}

	if err := validateColumnNames(ctx, d, new, env); err != nil {
		return nil, err
	}

	return d, nil
}

// diffColumns compares columns by stable ID. A column without an ID has no
// prior physical identity and is treated as brand-new.
func diffColumns(d *SchemaDiff, old, new *schema.TableDescription) {
	oldByID := make(map[string]*schema.ColumnDescription)
	for i := range old.Columns {
		if old.Columns[i].ID != "" {
			oldByID[old.Columns[i].ID] = &old.Columns[i]
		}
	}
	newByID := make(map[string]*schema.ColumnDescription)
	for i := range new.Columns {
		if new.Columns[i].ID != "" {
			newByID[new.Columns[i].ID] = &new.Columns[i]
		}
	}

	// Creates: new columns with no old identity.
	for i := range new.Columns {
		col := &new.Columns[i]
		if col.ID == "" {
			d.Columns.Create = append(d.Columns.Create, ColumnCreate{Column: *col})
			continue
		}
		if _, exists := oldByID[col.ID]; !exists {
			d.Columns.Create = append(d.Columns.Create, ColumnCreate{Column: *col})
		}
	}

	// Deletes: old columns absent from the new description. System columns
	// are always protected, even when omitted.
	for i := range old.Columns {
		col := &old.Columns[i]
		if col.ID == "" {
			continue
		}
		if _, exists := newByID[col.ID]; exists {
			continue
		}
		if schema.IsSystemColumn(col.Name) {
			d.infof(new.Name, "system column "+col.Name+" is protected and was not dropped")
			continue
		}
		d.Columns.Delete = append(d.Columns.Delete, ColumnDelete{Name: col.Name})
	}

	// Renames and updates: columns present on both sides.
	for i := range new.Columns {
		newCol := &new.Columns[i]
		if newCol.ID == "" {
			continue
		}
		oldCol, exists := oldByID[newCol.ID]
		if !exists {
			continue
		}

		if oldCol.Name != newCol.Name {
			// Same identity, different name: a rename preserves data, so it
			// never decomposes into delete+create.
			d.Columns.Rename = append(d.Columns.Rename, Rename{From: oldCol.Name, To: newCol.Name})
			continue
		}

		if columnChanged(oldCol, newCol) {
			d.Columns.Update = append(d.Columns.Update, ColumnUpdate{
				Column:  *newCol,
				OldType: oldCol.Type,
			})
		}
	}
}

// columnChanged reports whether a column's definition differs in type,
// nullability, generation, default, or options.
func columnChanged(old, new *schema.ColumnDescription) bool {
	if old.Type != new.Type ||
		old.IsNullable != new.IsNullable ||
		old.IsGenerated != new.IsGenerated ||
		!old.Options.Equal(new.Options) {
		return true
	}
	return !reflect.DeepEqual(old.DefaultValue, new.DefaultValue)
}

// diffConstraints compares the declared unique and index groups. The
// comparison is order-independent at both levels; any difference is emitted
// as a full replacement, never an incremental patch.
func diffConstraints(d *SchemaDiff, old, new *schema.TableDescription) {
	if !groupsEqual(old.Uniques, new.Uniques) {
		d.Constraints.Uniques.Delete = old.Uniques
		d.Constraints.Uniques.Create = new.Uniques
	}
	if !groupsEqual(old.Indexes, new.Indexes) {
		d.Constraints.Indexes.Delete = old.Indexes
		d.Constraints.Indexes.Create = new.Indexes
	}
}

// groupsEqual compares two sets of column-name groups structurally,
// ignoring order of groups and of columns within a group.
func groupsEqual(a, b [][]string) bool {
	if len(a) != len(b) {
		return false
	}
	return strings.Join(canonicalGroups(a), ";") == strings.Join(canonicalGroups(b), ";")
}

func canonicalGroups(groups [][]string) []string {
	keys := make([]string, 0, len(groups))
	for _, g := range groups {
		cols := append([]string(nil), g...)
		sort.Strings(cols)
		keys = append(keys, strings.Join(cols, ","))
	}
	sort.Strings(keys)
	return keys
}

// validateColumnNames checks every generated column name, whether produced
// by a create or a rename, against the union of existing physical columns and
// the other pending operations in this diff. A collision is a fatal
// naming-conflict error, never a silent overwrite.
func validateColumnNames(ctx context.Context, d *SchemaDiff, new *schema.TableDescription, env Environment) error {
	// Pending creates per table, including cross-table and junction columns.
	pending := make(map[string]map[string]int)
	add := func(table, column string) {
		if pending[table] == nil {
			pending[table] = make(map[string]int)
		}
		pending[table][column]++
	}

	for i := range d.Columns.Create {
		add(new.Name, d.Columns.Create[i].Column.Name)
	}
	for i := range d.Columns.Rename {
		add(new.Name, d.Columns.Rename[i].To)
	}
	for i := range d.CrossTable {
		op := &d.CrossTable[i]
		switch op.Kind {
		case CrossCreate:
			if op.Create != nil {
				add(op.Table, op.Create.Column.Name)
			}
		case CrossRename:
			if op.Rename != nil {
				add(op.Table, op.Rename.To)
			}
		}
	}

	// Names freed by pending deletes and renames no longer collide.
	freed := make(map[string]map[string]bool)
	free := func(table, column string) {
		if freed[table] == nil {
			freed[table] = make(map[string]bool)
		}
		freed[table][column] = true
	}
	for i := range d.Columns.Delete {
		free(new.Name, d.Columns.Delete[i].Name)
	}
	for i := range d.Columns.Rename {
		free(new.Name, d.Columns.Rename[i].From)
	}
	for i := range d.CrossTable {
		op := &d.CrossTable[i]
		switch op.Kind {
		case CrossDrop:
			if op.Drop != nil {
				free(op.Table, op.Drop.Name)
			}
		case CrossRename:
			if op.Rename != nil {
				free(op.Table, op.Rename.From)
			}
		}
	}

	for table, columns := range pending {
		existing, err := env.ListColumns(ctx, table)
		if err != nil {
			return err
		}
		existingSet := make(map[string]bool, len(existing))
		for _, c := range existing {
			existingSet[c] = true
		}

		for column, count := range columns {
			if count > 1 {
				return syncerr.New(syncerr.ErrNamingConflict, "two pending operations generate the same column name").
					WithTable(table).
					WithColumn(column)
			}
			if existingSet[column] && !(freed[table] != nil && freed[table][column]) {
				return syncerr.New(syncerr.ErrNamingConflict, "generated column collides with an existing column").
					WithTable(table).
					WithColumn(column)
			}
		}
	}

	return nil
}
