// Package migrate sequences schema synchronization: it diffs table
// descriptions, generates and executes DDL, manages junction-table and
// foreign-key lifecycle, and absorbs transient lock contention with a bounded
// retry loop.
package migrate

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/enfyra/server-sub005/internal/dialect"
	"github.com/enfyra/server-sub005/internal/diff"
	"github.com/enfyra/server-sub005/internal/drift"
	"github.com/enfyra/server-sub005/internal/executor"
	"github.com/enfyra/server-sub005/internal/introspect"
	"github.com/enfyra/server-sub005/internal/schema"
	"github.com/enfyra/server-sub005/internal/sqlgen"
	"github.com/enfyra/server-sub005/internal/syncerr"
)

// RelationError records a relation that could not be migrated, without
// failing the rest of the operation.
type RelationError struct {
	Table    string
	Relation string
	Err      error
}

// ApplyResult is the outcome of a table operation.
type ApplyResult struct {
	// Batch is the executed DDL as one semicolon-joined string.
	Batch string
	// Committed lists statements that took effect.
	Committed []string
	// ReverseHints lists manual-rollback statements on non-atomic dialects.
	ReverseHints []string
	// RelationErrors lists relations skipped due to naming conflicts,
	// missing targets, or dialect limitations.
	RelationErrors []RelationError
}

// Orchestrator is the public entry point for table migrations. db is the
// executor's connection surface so tests can substitute a recording fake.
type Orchestrator struct {
	db       executor.Conn
	dialect  dialect.Dialect
	insp     introspect.Introspector
	metadata map[string]*schema.TableDescription
	logger   *slog.Logger
}

// New builds an Orchestrator for the named dialect. metadata is the cached
// description snapshot used as fallback when live introspection has no
// answer; it may be nil. logger may be nil.
func New(db *sql.DB, dialectName string, metadata map[string]*schema.TableDescription, logger *slog.Logger) (*Orchestrator, error) {
	d, err := dialect.Get(dialectName)
	if err != nil {
		return nil, err
	}
	insp, err := introspect.New(dialectName, db)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if metadata == nil {
		metadata = map[string]*schema.TableDescription{}
	}
	return &Orchestrator{
		db:       db,
		dialect:  d,
		insp:     insp,
		metadata: metadata,
		logger:   logger,
	}, nil
}

func (o *Orchestrator) env() diff.Environment {
	return &liveEnvironment{insp: o.insp, metadata: o.metadata, logger: o.logger}
}

func (o *Orchestrator) generator() *sqlgen.Generator {
	return sqlgen.New(o.dialect, o.insp)
}

// exec runs one statement on the main connection.
func (o *Orchestrator) exec(ctx context.Context, stmt string) error {
	o.logger.Debug("executing ddl", "sql", stmt)
	if _, err := o.db.ExecContext(ctx, stmt); err != nil {
		return syncerr.Wrap(syncerr.ErrSQLExecution, err, "executing ddl statement").WithSQL(stmt)
	}
	return nil
}

// setLockTimeout bounds lock acquisition for the session so contended DDL
// fails fast and enters the retry loop instead of queueing.
func (o *Orchestrator) setLockTimeout(ctx context.Context) {
	stmt := o.dialect.LockTimeoutSQL()
	if stmt == "" {
		return
	}
	if _, err := o.db.ExecContext(ctx, stmt); err != nil {
		o.logger.Warn("could not set lock timeout", "error", err)
	}
}

// UpdateTable reconciles the physical table with the new description. A
// table that does not physically exist is created instead. After applying
// the batch it runs a non-fatal drift check against the live column set.
func (o *Orchestrator) UpdateTable(ctx context.Context, old, new *schema.TableDescription) (*ApplyResult, error) {
	if err := schema.Validate(new); err != nil {
		return nil, err
	}

	physicalName := new.Name
	if old != nil && old.Name != "" {
		physicalName = old.Name
	}
	exists, err := o.insp.TableExists(ctx, physicalName)
	if err != nil {
		return nil, err
	}
	if !exists {
		o.logger.Info("table does not exist, creating instead of updating", "table", new.Name)
		return o.CreateTable(ctx, new)
	}

	d, err := diff.Diff(ctx, old, new, o.env())
	if err != nil {
		return nil, err
	}
	for _, diag := range d.Diagnostics {
		o.logger.Info(diag.Message, "table", diag.Table, "level", diag.Level)
	}
	if d.IsEmpty() {
		o.logger.Info("no schema changes", "table", new.Name)
		return &ApplyResult{}, nil
	}

	stmts, err := o.generator().Generate(ctx, d)
	if err != nil {
		return nil, err
	}

	o.setLockTimeout(ctx)
	res, err := executor.New(o.db, o.dialect, o.logger).Execute(ctx, stmts)
	result := &ApplyResult{}
	if res != nil {
		result.Batch = res.Batch
		result.Committed = res.Committed
		result.ReverseHints = res.ReverseHints
	}
	if err != nil {
		return result, err
	}
	o.logger.Info("table updated", "table", new.Name, "statements", len(stmts))

	o.checkDrift(ctx, new)
	return result, nil
}

// checkDrift compares the description's expected column set against the
// live one. Mismatches are logged, never raised.
func (o *Orchestrator) checkDrift(ctx context.Context, desc *schema.TableDescription) {
	actual, err := o.insp.ListColumns(ctx, desc.Name)
	if err != nil {
		o.logger.Warn("drift check skipped", "table", desc.Name, "error", err)
		return
	}
	report, err := drift.Check(expectedColumns(desc), actual)
	if err != nil {
		o.logger.Warn("drift check skipped", "table", desc.Name, "error", err)
		return
	}
	if !report.Match {
		o.logger.Warn("schema drift detected after update",
			"table", desc.Name,
			"missing", report.Missing,
			"unexpected", report.Unexpected,
			"expectedRoot", report.ExpectedRoot,
			"actualRoot", report.ActualRoot)
	}
}

// expectedColumns is the full physical column set a description implies:
// declared columns, system columns, and local relation FK columns.
func expectedColumns(desc *schema.TableDescription) []string {
	seen := make(map[string]bool)
	var names []string
	add := func(name string) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		names = append(names, name)
	}

	for i := range desc.Columns {
		add(desc.Columns[i].Name)
	}
	add("id")
	add("createdAt")
	add("updatedAt")
	for i := range desc.Relations {
		rel := desc.Relations[i]
		if owner, col := rel.ForeignKeyColumn(desc.Name); owner == desc.Name {
			add(col)
		}
	}
	return names
}

// DropTable removes a table: many-to-many junction tables first, then every
// FK referencing the table, then the table itself. relations is the table's
// last known relation set, used to find its junction tables.
func (o *Orchestrator) DropTable(ctx context.Context, name string, relations []schema.RelationDescription) error {
	exists, err := o.insp.TableExists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		o.logger.Warn("table does not exist, nothing to drop", "table", name)
		return nil
	}

	o.setLockTimeout(ctx)

	for i := range relations {
		rel := relations[i]
		if rel.Type != schema.ManyToMany {
			continue
		}
		junction := rel.JunctionTableName(name)
		if err := o.exec(ctx, o.dialect.DropTableSQL(junction)); err != nil {
			return err
		}
	}

	if err := o.dropReferencingForeignKeys(ctx, name); err != nil {
		return err
	}

	return o.exec(ctx, o.dialect.DropTableSQL(name))
}

// DropTableTx drops a table inside a caller-supplied transaction. Existence
// checks use raw introspection queries through the transaction, and
// referencing-FK cleanup is skipped: the caller's transaction already handled
// it, and repeating it here would fight the transaction's isolation.
func (o *Orchestrator) DropTableTx(ctx context.Context, tx *sql.Tx, name string, relations []schema.RelationDescription) error {
	insp, err := introspect.New(o.dialect.Name(), tx)
	if err != nil {
		return err
	}
	exists, err := insp.TableExists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		o.logger.Warn("table does not exist, nothing to drop", "table", name)
		return nil
	}

	for i := range relations {
		rel := relations[i]
		if rel.Type != schema.ManyToMany {
			continue
		}
		junction := rel.JunctionTableName(name)
		if _, err := tx.ExecContext(ctx, o.dialect.DropTableSQL(junction)); err != nil {
			return syncerr.Wrap(syncerr.ErrSQLExecution, err, "dropping junction table").
				WithTable(junction)
		}
	}

	if _, err := tx.ExecContext(ctx, o.dialect.DropTableSQL(name)); err != nil {
		return syncerr.Wrap(syncerr.ErrSQLExecution, err, "dropping table").
			WithTable(name)
	}
	return nil
}

// dropReferencingForeignKeys removes every FK in the database that points at
// table, so the subsequent DROP TABLE cannot fail with a referenced-by error.
// SQLite cannot enumerate referencing FKs, but its inline constraints do not
// block table drops either, so the scan is skipped there.
func (o *Orchestrator) dropReferencingForeignKeys(ctx context.Context, table string) error {
	if !o.dialect.SupportsReferencingFKScan() {
		o.logger.Debug("referencing FK scan unsupported, skipping", "table", table)
		return nil
	}

	fks, err := o.insp.ListReferencingForeignKeys(ctx, table)
	if err != nil {
		return err
	}
	for _, fk := range fks {
		stmt, err := o.dialect.DropForeignKeySQL(fk.Table, fk.Constraint)
		if err != nil {
			return err
		}
		err = withRetry(ctx, o.logger, "drop foreign key "+fk.Constraint, func(ctx context.Context) error {
			return o.exec(ctx, stmt)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// DropColumnDirectly removes a single column outside the diff pipeline.
// It no-ops when the column is already absent and drops the column's FK
// constraint first when one exists.
func (o *Orchestrator) DropColumnDirectly(ctx context.Context, table, column string) error {
	columns, err := o.insp.ListColumns(ctx, table)
	if err != nil {
		return err
	}
	present := false
	for _, c := range columns {
		if c == column {
			present = true
			break
		}
	}
	if !present {
		o.logger.Info("column already absent, nothing to drop", "table", table, "column", column)
		return nil
	}

	o.setLockTimeout(ctx)

	if o.dialect.SupportsAddForeignKey() {
		name, err := o.insp.ForeignKeyName(ctx, table, column)
		if err != nil {
			return err
		}
		if name != "" {
			stmt, err := o.dialect.DropForeignKeySQL(table, name)
			if err != nil {
				return err
			}
			if err := o.exec(ctx, stmt); err != nil {
				return err
			}
		}
	}

	return o.exec(ctx, o.dialect.DropColumnSQL(table, column))
}
