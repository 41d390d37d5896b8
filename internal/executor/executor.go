// Package executor runs generated DDL batches with dialect-appropriate
// transactional behavior. Postgres gets one transaction for the whole batch;
// MySQL and SQLite lack transactional DDL, so statements run one at a time
// and the result records exactly which ones committed, plus the reverse
// statements an operator could apply by hand.
package executor

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"

	"github.com/enfyra/server-sub005/internal/dialect"
	"github.com/enfyra/server-sub005/internal/sqlgen"
	"github.com/enfyra/server-sub005/internal/syncerr"
)

// Conn is the execution surface the executor needs. Both *sql.DB and *sql.Tx
// satisfy it, so a caller-supplied transaction can be used directly.
type Conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// TxBeginner is implemented by *sql.DB and enables the single-transaction
// path on dialects with transactional DDL.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Result reports what a batch execution did.
type Result struct {
	// Batch is the full forward batch as one semicolon-joined string,
	// kept for audit logging.
	Batch string

	// Committed lists the statements that took effect, in execution order.
	Committed []string

	// ReverseHints lists manual-rollback statements for the committed,
	// reversible operations, most recent first. Only populated on
	// non-atomic dialects.
	ReverseHints []string

	// Atomic is true when the batch ran inside a single transaction.
	Atomic bool
}

// Executor dispatches statement batches over a connection.
type Executor struct {
	conn    Conn
	dialect dialect.Dialect
	logger  *slog.Logger
}

// New returns an Executor. logger may be nil.
func New(conn Conn, d dialect.Dialect, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{conn: conn, dialect: d, logger: logger}
}

// Execute runs the batch. On failure the returned Result is still valid and
// describes the partial state.
func (e *Executor) Execute(ctx context.Context, stmts []sqlgen.Statement) (*Result, error) {
	res := &Result{Batch: JoinBatch(stmts)}
	if len(stmts) == 0 {
		return res, nil
	}

	if e.dialect.SupportsTransactionalDDL() {
		return e.executeAtomic(ctx, res, stmts)
	}
	return e.executeStatementWise(ctx, res, stmts)
}

// executeAtomic wraps the whole batch in one transaction; a failure anywhere
// rolls back everything. When the connection is already a transaction the
// statements run inside it and the caller owns the commit.
func (e *Executor) executeAtomic(ctx context.Context, res *Result, stmts []sqlgen.Statement) (*Result, error) {
	res.Atomic = true

	beginner, ok := e.conn.(TxBeginner)
	if !ok {
		for _, s := range stmts {
			e.logger.Debug("executing ddl", "sql", s.SQL)
			if _, err := e.conn.ExecContext(ctx, s.SQL); err != nil {
				return res, syncerr.Wrap(syncerr.ErrSQLExecution, err, "executing ddl statement").WithSQL(s.SQL)
			}
			res.Committed = append(res.Committed, s.SQL)
		}
		return res, nil
	}

	tx, err := beginner.BeginTx(ctx, nil)
	if err != nil {
		return res, syncerr.Wrap(syncerr.ErrSQLTransaction, err, "beginning migration transaction")
	}

	for _, s := range stmts {
		e.logger.Debug("executing ddl", "sql", s.SQL)
		if _, err := tx.ExecContext(ctx, s.SQL); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				e.logger.Error("rollback failed", "error", rbErr)
			}
			return res, syncerr.Wrap(syncerr.ErrSQLExecution, err, "executing ddl statement").WithSQL(s.SQL)
		}
	}

	if err := tx.Commit(); err != nil {
		return res, syncerr.Wrap(syncerr.ErrSQLTransaction, err, "committing migration transaction")
	}
	for _, s := range stmts {
		res.Committed = append(res.Committed, s.SQL)
	}
	return res, nil
}

// executeStatementWise runs statements one at a time, tracking commits and
// reverse hints. It never attempts automatic rollback: reversing a drop or a
// MODIFY would need the original definition, which was not retained.
func (e *Executor) executeStatementWise(ctx context.Context, res *Result, stmts []sqlgen.Statement) (*Result, error) {
	for _, s := range stmts {
		e.logger.Debug("executing ddl", "sql", s.SQL)
		if _, err := e.conn.ExecContext(ctx, s.SQL); err != nil {
			return res, syncerr.Wrap(syncerr.ErrSQLExecution, err, "executing ddl statement").WithSQL(s.SQL)
		}
		res.Committed = append(res.Committed, s.SQL)
		if s.Reverse != "" {
			// Most recent first, so an operator applies hints top-down.
			res.ReverseHints = append([]string{s.Reverse}, res.ReverseHints...)
		}
	}
	return res, nil
}

// JoinBatch renders statements as one semicolon-delimited string for audit
// logging.
func JoinBatch(stmts []sqlgen.Statement) string {
	if len(stmts) == 0 {
		return ""
	}
	var b strings.Builder
	for i, s := range stmts {
		if i > 0 {
			b.WriteString(";\n")
		}
		b.WriteString(s.SQL)
	}
	return b.String()
}
