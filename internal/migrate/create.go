package migrate

import (
	"context"

	"github.com/enfyra/server-sub005/internal/dialect"
	"github.com/enfyra/server-sub005/internal/diff"
	"github.com/enfyra/server-sub005/internal/schema"
	"github.com/enfyra/server-sub005/internal/syncerr"
)

// CreateTable builds a table from its description: base columns, local FK
// columns, system timestamp columns, then FK constraints, declared unique
// and index groups, one-to-many target columns, and many-to-many junction
// tables.
//
// FK constraints are added after the CREATE TABLE, not inline, because in a
// circular schema the referenced table may be the one being built. Each FK
// addition is retried on deadlock-class errors. Relations that cannot be
// migrated are collected on the result instead of failing the whole build.
// Calling CreateTable for an existing table is a warned no-op.
func (o *Orchestrator) CreateTable(ctx context.Context, desc *schema.TableDescription) (*ApplyResult, error) {
	if err := schema.Validate(desc); err != nil {
		return nil, err
	}

	exists, err := o.insp.TableExists(ctx, desc.Name)
	if err != nil {
		return nil, err
	}
	if exists {
		o.logger.Warn("table already exists, skipping create", "table", desc.Name)
		return &ApplyResult{}, nil
	}

	result := &ApplyResult{}
	env := o.env()

	// Resolve each referenced primary-key type once per unique target.
	// Relations whose target cannot be resolved are skipped and recorded.
	keyTypes := make(map[string]schema.KeyType)
	var localFKs []localForeignKey
	for i := range desc.Relations {
		rel := desc.Relations[i]
		if !rel.Type.OwnsLocalColumn() {
			continue
		}
		key, relErr := o.resolveTargetKey(ctx, env, desc.Name, rel, keyTypes)
		if relErr != nil {
			result.RelationErrors = append(result.RelationErrors, *relErr)
			continue
		}
		localFKs = append(localFKs, localForeignKey{rel: rel, key: key})
	}

	createSQL := o.buildCreateTable(desc, localFKs)
	o.setLockTimeout(ctx)
	if err := o.exec(ctx, createSQL); err != nil {
		return result, err
	}
	result.Batch = createSQL
	result.Committed = append(result.Committed, createSQL)
	o.logger.Info("table created", "table", desc.Name)

	o.addLocalForeignKeys(ctx, desc, localFKs, result)
	o.createIndexes(ctx, desc, localFKs, result)
	o.createTargetColumns(ctx, desc, result)
	o.createJunctionTables(ctx, desc, env, result)

	return result, nil
}

// localForeignKey pairs a many-to-one/one-to-one relation with its resolved
// key type.
type localForeignKey struct {
	rel schema.RelationDescription
	key schema.KeyType
}

func (f localForeignKey) column() string {
	return f.rel.PropertyName + "Id"
}

func (f localForeignKey) onDelete() string {
	if f.rel.IsNullable {
		return "SET NULL"
	}
	return "RESTRICT"
}

// resolveTargetKey resolves the physical key type of a relation's target,
// returning a RelationError instead of failing when the target is missing.
// The table being built counts as its own valid target.
func (o *Orchestrator) resolveTargetKey(ctx context.Context, env diff.Environment, table string, rel schema.RelationDescription, cache map[string]schema.KeyType) (schema.KeyType, *RelationError) {
	target := rel.TargetTableName
	if key, ok := cache[target]; ok {
		return key, nil
	}

	if target != table {
		exists, err := env.TableExists(ctx, target)
		if err != nil {
			return "", &RelationError{Table: table, Relation: rel.PropertyName, Err: err}
		}
		if !exists {
			err := syncerr.New(syncerr.ErrTargetTableMissing, "relation target table does not exist").
				WithTable(table).
				WithRelation(rel.PropertyName).
				With("target", target)
			return "", &RelationError{Table: table, Relation: rel.PropertyName, Err: err}
		}
	}

	key, err := env.ResolveKeyType(ctx, target)
	if err != nil {
		return "", &RelationError{Table: table, Relation: rel.PropertyName, Err: err}
	}
	cache[target] = key
	return key, nil
}

// buildCreateTable renders the base CREATE TABLE: generated primary key,
// user columns, system timestamp columns, and local FK columns. On SQLite
// the FK constraints go inline because they cannot be added afterwards.
// Declared unique groups are NOT inlined; createIndexes builds them as
// unique indexes so a later constraint diff can drop them by the same name.
func (o *Orchestrator) buildCreateTable(desc *schema.TableDescription, localFKs []localForeignKey) string {
	var columnDefs []string

	for i := range desc.Columns {
		col := &desc.Columns[i]
		if col.IsPrimary && col.IsGenerated {
			columnDefs = append(columnDefs, o.dialect.GeneratedPrimarySQL(col))
			continue
		}
		columnDefs = append(columnDefs, o.dialect.CompileColumn(desc.Name, col))
	}

	for _, name := range []string{"createdAt", "updatedAt"} {
		if desc.Column(name) != nil {
			continue
		}
		col := schema.ColumnDescription{
			Name:         name,
			Type:         schema.TypeTimestamp,
			DefaultValue: schema.Expr("CURRENT_TIMESTAMP"),
		}
		columnDefs = append(columnDefs, o.dialect.CompileColumn(desc.Name, &col))
	}

	var inlineFKs []dialect.ForeignKey
	for _, fk := range localFKs {
		def := o.dialect.CompileKeyColumn(fk.column(), fk.key, fk.rel.IsNullable)
		columnDefs = append(columnDefs, def)
		if !o.dialect.SupportsAddForeignKey() {
			inlineFKs = append(inlineFKs, dialect.ForeignKey{
				Name:      dialect.FKName(desc.Name, fk.column()),
				Table:     desc.Name,
				Column:    fk.column(),
				RefTable:  fk.rel.TargetTableName,
				RefColumn: "id",
				OnDelete:  fk.onDelete(),
			})
		}
	}

	return o.dialect.CreateTableSQL(desc.Name, columnDefs, inlineFKs, nil)
}

// addLocalForeignKeys adds the FK constraints for local relation columns,
// retrying deadlock-class failures. On SQLite the constraints are already
// inline and this is a no-op.
func (o *Orchestrator) addLocalForeignKeys(ctx context.Context, desc *schema.TableDescription, localFKs []localForeignKey, result *ApplyResult) {
	if !o.dialect.SupportsAddForeignKey() {
		return
	}

	for _, fk := range localFKs {
		stmt, err := o.dialect.AddForeignKeySQL(dialect.ForeignKey{
			Name:      dialect.FKName(desc.Name, fk.column()),
			Table:     desc.Name,
			Column:    fk.column(),
			RefTable:  fk.rel.TargetTableName,
			RefColumn: "id",
			OnDelete:  fk.onDelete(),
			OnUpdate:  "CASCADE",
		})
		if err != nil {
			result.RelationErrors = append(result.RelationErrors, RelationError{
				Table: desc.Name, Relation: fk.rel.PropertyName, Err: err,
			})
			continue
		}

		err = withRetry(ctx, o.logger, "add foreign key on "+desc.Name+"."+fk.column(), func(ctx context.Context) error {
			o.setLockTimeout(ctx)
			return o.exec(ctx, stmt)
		})
		if err != nil {
			result.RelationErrors = append(result.RelationErrors, RelationError{
				Table: desc.Name, Relation: fk.rel.PropertyName, Err: err,
			})
			continue
		}
		result.Committed = append(result.Committed, stmt)
	}
}

// createIndexes adds declared unique and index groups, UNIQUE indexes for
// one-to-one FK columns, and automatic indexes on date/time-typed columns.
// Declared uniques become unique indexes rather than table constraints so
// their create and drop forms agree across dialects.
func (o *Orchestrator) createIndexes(ctx context.Context, desc *schema.TableDescription, localFKs []localForeignKey, result *ApplyResult) {
	var stmts []string

	for _, group := range desc.Uniques {
		if len(group) == 0 {
			continue
		}
		stmts = append(stmts, o.dialect.AddIndexSQL(desc.Name, group, true))
	}
	for _, group := range desc.Indexes {
		if len(group) == 0 {
			continue
		}
		stmts = append(stmts, o.dialect.AddIndexSQL(desc.Name, group, false))
	}
	for _, fk := range localFKs {
		if fk.rel.Type == schema.OneToOne {
			stmts = append(stmts, o.dialect.AddIndexSQL(desc.Name, []string{fk.column()}, true))
		}
	}
	for i := range desc.Columns {
		col := &desc.Columns[i]
		if col.Type.IsDateLike() && !col.IsPrimary {
			stmts = append(stmts, o.dialect.AddIndexSQL(desc.Name, []string{col.Name}, false))
		}
	}

	for _, stmt := range stmts {
		if err := o.exec(ctx, stmt); err != nil {
			o.logger.Warn("index creation failed", "table", desc.Name, "error", err)
			continue
		}
		result.Committed = append(result.Committed, stmt)
	}
}

// createTargetColumns places one-to-many FK columns on the target tables,
// with the same retry policy as local FK constraints.
func (o *Orchestrator) createTargetColumns(ctx context.Context, desc *schema.TableDescription, result *ApplyResult) {
	gen := o.generator()

	for i := range desc.Relations {
		rel := desc.Relations[i]
		if rel.Type != schema.OneToMany {
			continue
		}

		exists, err := o.insp.TableExists(ctx, rel.TargetTableName)
		if err == nil && !exists {
			err = syncerr.New(syncerr.ErrTargetTableMissing, "relation target table does not exist").
				WithTable(desc.Name).
				WithRelation(rel.PropertyName).
				With("target", rel.TargetTableName)
		}
		if err != nil {
			result.RelationErrors = append(result.RelationErrors, RelationError{
				Table: desc.Name, Relation: rel.PropertyName, Err: err,
			})
			continue
		}

		sourceKey, err := o.env().ResolveKeyType(ctx, desc.Name)
		if err != nil {
			result.RelationErrors = append(result.RelationErrors, RelationError{
				Table: desc.Name, Relation: rel.PropertyName, Err: err,
			})
			continue
		}

		d := &diff.SchemaDiff{
			TableName: desc.Name,
			CrossTable: []diff.CrossTableOp{{
				Table: rel.TargetTableName,
				Kind:  diff.CrossCreate,
				Create: &diff.ColumnCreate{
					Column: schema.ColumnDescription{
						Name:       rel.InversePropertyName + "Id",
						IsNullable: rel.IsNullable,
					},
					Ref: &diff.ForeignKeyRef{
						TargetTable:  desc.Name,
						TargetColumn: "id",
						KeyType:      sourceKey,
						IsNullable:   rel.IsNullable,
						OnDelete:     onDeleteFor(rel.IsNullable),
					},
				},
			}},
		}
		stmts, err := gen.Generate(ctx, d)
		if err != nil {
			result.RelationErrors = append(result.RelationErrors, RelationError{
				Table: desc.Name, Relation: rel.PropertyName, Err: err,
			})
			continue
		}

		for _, stmt := range stmts {
			forward := stmt.SQL
			err := withRetry(ctx, o.logger, "create target column for "+desc.Name+"."+rel.PropertyName, func(ctx context.Context) error {
				o.setLockTimeout(ctx)
				return o.exec(ctx, forward)
			})
			if err != nil {
				result.RelationErrors = append(result.RelationErrors, RelationError{
					Table: desc.Name, Relation: rel.PropertyName, Err: err,
				})
				break
			}
			result.Committed = append(result.Committed, forward)
		}
	}
}

// createJunctionTables builds many-to-many junction tables, skipping any that
// already exist.
func (o *Orchestrator) createJunctionTables(ctx context.Context, desc *schema.TableDescription, env diff.Environment, result *ApplyResult) {
	gen := o.generator()

	for i := range desc.Relations {
		rel := desc.Relations[i]
		if rel.Type != schema.ManyToMany {
			continue
		}

		junction := rel.JunctionTableName(desc.Name)
		exists, err := o.insp.TableExists(ctx, junction)
		if err != nil {
			result.RelationErrors = append(result.RelationErrors, RelationError{
				Table: desc.Name, Relation: rel.PropertyName, Err: err,
			})
			continue
		}
		if exists {
			o.logger.Debug("junction table already exists", "table", junction)
			continue
		}

		sourceKey, err := env.ResolveKeyType(ctx, desc.Name)
		if err == nil {
			var targetKey schema.KeyType
			targetKey, err = env.ResolveKeyType(ctx, rel.TargetTableName)
			if err == nil {
				spec := &diff.JunctionSpec{
					Name:         junction,
					SourceTable:  desc.Name,
					TargetTable:  rel.TargetTableName,
					SourceColumn: rel.JunctionSourceColumn(desc.Name),
					TargetColumn: rel.JunctionTargetColumn(desc.Name),
					SourceKey:    sourceKey,
					TargetKey:    targetKey,
				}
				stmt := gen.JunctionTableSQL(spec)
				err = withRetry(ctx, o.logger, "create junction table "+junction, func(ctx context.Context) error {
					o.setLockTimeout(ctx)
					return o.exec(ctx, stmt)
				})
				if err == nil {
					result.Committed = append(result.Committed, stmt)
				}
			}
		}
		if err != nil {
			result.RelationErrors = append(result.RelationErrors, RelationError{
				Table: desc.Name, Relation: rel.PropertyName, Err: err,
			})
		}
	}
}

func onDeleteFor(nullable bool) string {
	if nullable {
		return "SET NULL"
	}
	return "RESTRICT"
}
