// Package sqlgen turns a computed SchemaDiff into an ordered list of DDL
// statements. Ordering is load-bearing: renames run before everything else so
// later statements address current names, and deletes run before creates so a
// column dropped and re-added in one diff never trips a duplicate-name error.
package sqlgen

import (
	"context"

	"github.com/enfyra/server-sub005/internal/dialect"
	"github.com/enfyra/server-sub005/internal/diff"
	"github.com/enfyra/server-sub005/internal/syncerr"
)

// Statement is a forward DDL statement paired with its reverse, generated
// together at the point where the intent is known. Reverse is empty for
// irreversible operations (drops, column modifications), where the original
// definition is not retained.
type Statement struct {
	SQL     string
	Reverse string
}

// ConstraintLookup resolves the actual name of an existing FK constraint.
// A live implementation queries the system catalog and returns "" when the
// column carries no constraint; a nil lookup falls back to the conventional
// fk_{table}_{column} name.
type ConstraintLookup interface {
	ForeignKeyName(ctx context.Context, table, column string) (string, error)
}

// Generator produces dialect-specific DDL from a SchemaDiff.
type Generator struct {
	Dialect dialect.Dialect
	Lookup  ConstraintLookup
}

// New returns a Generator for the given dialect. lookup may be nil.
func New(d dialect.Dialect, lookup ConstraintLookup) *Generator {
	return &Generator{Dialect: d, Lookup: lookup}
}

// Generate renders the diff as an ordered statement list:
//
//  1. table rename
//  2. column renames
//  3. column deletes (referencing FK dropped first)
//  4. column creates (FK constraint, one-to-one UNIQUE, date auto-index)
//  5. column updates (skipping columns already renamed or updated)
//  6. unique/index constraint changes
//  7. cross-table operations
//  8. junction-table renames
//  9. junction-table creates
//  10. junction-table drops
//  11. FK constraint recreation
func (g *Generator) Generate(ctx context.Context, d *diff.SchemaDiff) ([]Statement, error) {
	var stmts []Statement
	table := d.TableName

	// 1. Table rename.
	if d.TableRename != nil {
		stmts = append(stmts, Statement{
			SQL:     g.Dialect.RenameTableSQL(d.TableRename.From, d.TableRename.To),
			Reverse: g.Dialect.RenameTableSQL(d.TableRename.To, d.TableRename.From),
		})
	}

	// 2. Column renames.
	for _, r := range d.Columns.Rename {
		stmts = append(stmts, Statement{
			SQL:     g.Dialect.RenameColumnSQL(table, r.From, r.To),
			Reverse: g.Dialect.RenameColumnSQL(table, r.To, r.From),
		})
	}

	// 3. Column deletes.
	for _, del := range d.Columns.Delete {
		dropped, err := g.dropColumn(ctx, table, del)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, dropped...)
	}

	// 4. Column creates.
	for i := range d.Columns.Create {
		created, err := g.createColumn(table, &d.Columns.Create[i])
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, created...)
	}

	// 5. Column updates. Columns already renamed or updated in this pass are
	// skipped so one column never receives two conflicting ALTERs.
	touched := make(map[string]bool)
	for _, r := range d.Columns.Rename {
		touched[r.From] = true
		touched[r.To] = true
	}
	for i := range d.Columns.Update {
		up := &d.Columns.Update[i]
		if touched[up.Column.Name] {
			continue
		}
		touched[up.Column.Name] = true

		modify, err := g.Dialect.ModifyColumnSQL(table, &up.Column, up.OldType)
		if err != nil {
			return nil, err
		}
		for _, sql := range modify {
			stmts = append(stmts, Statement{SQL: sql})
		}
	}

	// 6. Constraint changes: full replacement, deletes first.
	for _, group := range d.Constraints.Uniques.Delete {
		stmts = append(stmts, Statement{
			SQL: g.Dialect.DropIndexSQL(table, dialect.UniqueName(table, group...)),
		})
	}
	for _, group := range d.Constraints.Uniques.Create {
		stmts = append(stmts, Statement{
			SQL:     g.Dialect.AddIndexSQL(table, group, true),
			Reverse: g.Dialect.DropIndexSQL(table, dialect.UniqueName(table, group...)),
		})
	}
	for _, group := range d.Constraints.Indexes.Delete {
		stmts = append(stmts, Statement{
			SQL: g.Dialect.DropIndexSQL(table, dialect.IndexName(table, group...)),
		})
	}
	for _, group := range d.Constraints.Indexes.Create {
		stmts = append(stmts, Statement{
			SQL:     g.Dialect.AddIndexSQL(table, group, false),
			Reverse: g.Dialect.DropIndexSQL(table, dialect.IndexName(table, group...)),
		})
	}

	// 7. Cross-table operations.
	for i := range d.CrossTable {
		op := &d.CrossTable[i]
		switch op.Kind {
		case diff.CrossRename:
			stmts = append(stmts, Statement{
				SQL:     g.Dialect.RenameColumnSQL(op.Table, op.Rename.From, op.Rename.To),
				Reverse: g.Dialect.RenameColumnSQL(op.Table, op.Rename.To, op.Rename.From),
			})
		case diff.CrossDrop:
			dropped, err := g.dropColumn(ctx, op.Table, *op.Drop)
			if err != nil {
				return nil, err
			}
			stmts = append(stmts, dropped...)
		case diff.CrossCreate:
			created, err := g.createColumn(op.Table, op.Create)
			if err != nil {
				return nil, err
			}
			stmts = append(stmts, created...)
		}
	}

	// 8. Junction renames.
	for _, r := range d.Junctions.Rename {
		stmts = append(stmts, Statement{
			SQL:     g.Dialect.RenameTableSQL(r.From, r.To),
			Reverse: g.Dialect.RenameTableSQL(r.To, r.From),
		})
	}

	// 9. Junction creates.
	for i := range d.Junctions.Create {
		spec := &d.Junctions.Create[i]
		stmts = append(stmts, Statement{
			SQL:     g.JunctionTableSQL(spec),
			Reverse: g.Dialect.DropTableSQL(spec.Name),
		})
	}

	// 10. Junction drops.
	for _, name := range d.Junctions.Drop {
		stmts = append(stmts, Statement{SQL: g.Dialect.DropTableSQL(name)})
	}

	// 11. FK recreation (drop-then-add, for ON DELETE policy changes).
	for i := range d.ForeignKeys.Recreate {
		rec := &d.ForeignKeys.Recreate[i]
		recreated, err := g.recreateForeignKey(ctx, rec)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, recreated...)
	}

	return stmts, nil
}

// -----------------------------------------------------------------------------
// Column operations
// -----------------------------------------------------------------------------

// dropColumn emits the column drop, preceded by dropping its FK constraint
// when the column is a foreign key. SQLite declares FKs inline, so dropping
// the column removes the constraint with it.
func (g *Generator) dropColumn(ctx context.Context, table string, del diff.ColumnDelete) ([]Statement, error) {
	var stmts []Statement

	if del.IsForeignKey && g.Dialect.SupportsAddForeignKey() {
		name, err := g.constraintName(ctx, table, del.Name)
		if err != nil {
			return nil, err
		}
		if name != "" {
			drop, err := g.Dialect.DropForeignKeySQL(table, name)
			if err != nil {
				return nil, err
			}
			stmts = append(stmts, Statement{SQL: drop})
		}
	}

	stmts = append(stmts, Statement{SQL: g.Dialect.DropColumnSQL(table, del.Name)})
	return stmts, nil
}

// createColumn emits the column add plus any FK constraint, one-to-one
// UNIQUE index, and automatic index on date/time columns.
func (g *Generator) createColumn(table string, create *diff.ColumnCreate) ([]Statement, error) {
	var stmts []Statement
	col := &create.Column

	if create.Ref == nil {
		stmts = append(stmts, Statement{
			SQL:     g.Dialect.AddColumnSQL(table, g.Dialect.CompileColumn(table, col)),
			Reverse: g.Dialect.DropColumnSQL(table, col.Name),
		})
		if col.Type.IsDateLike() {
			stmts = append(stmts, Statement{
				SQL:     g.Dialect.AddIndexSQL(table, []string{col.Name}, false),
				Reverse: g.Dialect.DropIndexSQL(table, dialect.IndexName(table, col.Name)),
			})
		}
		return stmts, nil
	}

	// FK column: typed to match the referenced key.
	ref := create.Ref
	def := g.Dialect.CompileKeyColumn(col.Name, ref.KeyType, ref.IsNullable)
	fk := dialect.ForeignKey{
		Name:      dialect.FKName(table, col.Name),
		Table:     table,
		Column:    col.Name,
		RefTable:  ref.TargetTable,
		RefColumn: ref.TargetColumn,
		OnDelete:  ref.OnDelete,
		OnUpdate:  "CASCADE",
	}

	if g.Dialect.SupportsAddForeignKey() {
		stmts = append(stmts, Statement{
			SQL:     g.Dialect.AddColumnSQL(table, def),
			Reverse: g.Dialect.DropColumnSQL(table, col.Name),
		})
		add, err := g.Dialect.AddForeignKeySQL(fk)
		if err != nil {
			return nil, err
		}
		drop, err := g.Dialect.DropForeignKeySQL(table, fk.Name)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, Statement{SQL: add, Reverse: drop})
	} else {
		// Inline REFERENCES is the only form SQLite accepts on ADD COLUMN.
		inline := def + " REFERENCES " + g.Dialect.QuoteIdent(ref.TargetTable) +
			" (" + g.Dialect.QuoteIdent(ref.TargetColumn) + ") ON DELETE " + ref.OnDelete
		stmts = append(stmts, Statement{
			SQL:     g.Dialect.AddColumnSQL(table, inline),
			Reverse: g.Dialect.DropColumnSQL(table, col.Name),
		})
	}

	if ref.Unique {
		stmts = append(stmts, Statement{
			SQL:     g.Dialect.AddIndexSQL(table, []string{col.Name}, true),
			Reverse: g.Dialect.DropIndexSQL(table, dialect.UniqueName(table, col.Name)),
		})
	}

	return stmts, nil
}

// -----------------------------------------------------------------------------
// Junction tables
// -----------------------------------------------------------------------------

// JunctionTableSQL builds the CREATE TABLE for a many-to-many junction: two
// NOT NULL key columns, both FKs declared inline with ON DELETE CASCADE, and
// a composite UNIQUE over the pair.
func (g *Generator) JunctionTableSQL(spec *diff.JunctionSpec) string {
	columnDefs := []string{
		g.Dialect.CompileKeyColumn(spec.SourceColumn, spec.SourceKey, false),
		g.Dialect.CompileKeyColumn(spec.TargetColumn, spec.TargetKey, false),
	}
	fks := []dialect.ForeignKey{
		{
			Name:      dialect.FKName(spec.Name, spec.SourceColumn),
			Table:     spec.Name,
			Column:    spec.SourceColumn,
			RefTable:  spec.SourceTable,
			RefColumn: "id",
			OnDelete:  "CASCADE",
		},
		{
			Name:      dialect.FKName(spec.Name, spec.TargetColumn),
			Table:     spec.Name,
			Column:    spec.TargetColumn,
			RefTable:  spec.TargetTable,
			RefColumn: "id",
			OnDelete:  "CASCADE",
		},
	}
	uniques := [][]string{{spec.SourceColumn, spec.TargetColumn}}
	return g.Dialect.CreateTableSQL(spec.Name, columnDefs, fks, uniques)
}

// -----------------------------------------------------------------------------
// Foreign keys
// -----------------------------------------------------------------------------

// recreateForeignKey emits the drop-then-add pair for an ON DELETE change.
func (g *Generator) recreateForeignKey(ctx context.Context, rec *diff.FKRecreate) ([]Statement, error) {
	if !g.Dialect.SupportsAddForeignKey() {
		return nil, syncerr.New(syncerr.ErrSQLiteAddForeignKey,
			"cannot recreate a foreign key on this dialect; the table must be recreated manually").
			WithTable(rec.Table).
			WithColumn(rec.Column)
	}

	name, err := g.constraintName(ctx, rec.Table, rec.Column)
	if err != nil {
		return nil, err
	}

	var stmts []Statement
	if name != "" {
		drop, err := g.Dialect.DropForeignKeySQL(rec.Table, name)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, Statement{SQL: drop})
	}

	add, err := g.Dialect.AddForeignKeySQL(dialect.ForeignKey{
		Name:      dialect.FKName(rec.Table, rec.Column),
		Table:     rec.Table,
		Column:    rec.Column,
		RefTable:  rec.Ref.TargetTable,
		RefColumn: rec.Ref.TargetColumn,
		OnDelete:  rec.Ref.OnDelete,
		OnUpdate:  "CASCADE",
	})
	if err != nil {
		return nil, err
	}
	reverse, err := g.Dialect.DropForeignKeySQL(rec.Table, dialect.FKName(rec.Table, rec.Column))
	if err != nil {
		return nil, err
	}
	stmts = append(stmts, Statement{SQL: add, Reverse: reverse})
	return stmts, nil
}

// constraintName resolves the actual FK name via the lookup. Without a
// lookup it assumes the conventional name. When a live lookup reports no
// constraint it returns empty: there is nothing to drop, which is not an
// error, and callers skip the drop.
func (g *Generator) constraintName(ctx context.Context, table, column string) (string, error) {
	if g.Lookup == nil {
		return dialect.FKName(table, column), nil
	}
	return g.Lookup.ForeignKeyName(ctx, table, column)
}
