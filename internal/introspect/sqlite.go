package introspect

import (
	"context"
	"database/sql"
	"strings"

	"github.com/enfyra/server-sub005/internal/schema"
	"github.com/enfyra/server-sub005/internal/syncerr"
)

// sqliteIntrospector reads sqlite_master and table PRAGMAs. PRAGMA-based
// introspection cannot enumerate FKs referencing a table, so that query is a
// hard error here.
type sqliteIntrospector struct {
	q Querier
}

func (s *sqliteIntrospector) TableExists(ctx context.Context, table string) (bool, error) {
	const query = `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`

	var count int
	if err := s.q.QueryRowContext(ctx, query, table).Scan(&count); err != nil {
		return false, syncerr.Wrap(syncerr.ErrIntrospection, err, "checking table existence").
			WithTable(table)
	}
	return count > 0, nil
}

// quotePragmaIdent quotes a table name for interpolation into a PRAGMA, which
// does not accept bound parameters.
func quotePragmaIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (s *sqliteIntrospector) ListColumns(ctx context.Context, table string) ([]string, error) {
	rows, err := s.q.QueryContext(ctx, "PRAGMA table_info("+quotePragmaIdent(table)+")")
	if err != nil {
		return nil, syncerr.Wrap(syncerr.ErrIntrospection, err, "listing columns").
			WithTable(table)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var (
			cid     int
			name    string
			colType string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return nil, syncerr.Wrap(syncerr.ErrIntrospection, err, "scanning table_info row").
				WithTable(table)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, syncerr.Wrap(syncerr.ErrIntrospection, err, "reading table_info rows").
			WithTable(table)
	}
	return names, nil
}

func (s *sqliteIntrospector) PrimaryKeyType(ctx context.Context, table string) (schema.KeyType, bool, error) {
	rows, err := s.q.QueryContext(ctx, "PRAGMA table_info("+quotePragmaIdent(table)+")")
	if err != nil {
		return "", false, syncerr.Wrap(syncerr.ErrIntrospection, err, "resolving primary key type").
			WithTable(table)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid     int
			name    string
			colType string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return "", false, syncerr.Wrap(syncerr.ErrIntrospection, err, "scanning table_info row").
				WithTable(table)
		}
		if name != "id" {
			continue
		}
		return sqliteKeyType(colType), true, nil
	}
	if err := rows.Err(); err != nil {
		return "", false, syncerr.Wrap(syncerr.ErrIntrospection, err, "reading table_info rows").
			WithTable(table)
	}
	return "", false, nil
}

// sqliteKeyType maps a declared SQLite column type to the key shape.
// Declarations carry their length inline (e.g. VARCHAR(36)).
func sqliteKeyType(declared string) schema.KeyType {
	upper := strings.ToUpper(declared)
	if strings.Contains(upper, "INT") {
		return schema.KeyInteger
	}
	if strings.Contains(upper, "(36)") {
		return schema.KeyUUID
	}
	return schema.KeyVarchar
}

// ForeignKeyName always answers empty: SQLite FK constraints declared inline
// have no usable name, and there is nothing to drop by name anyway.
func (s *sqliteIntrospector) ForeignKeyName(ctx context.Context, table, column string) (string, error) {
	return "", nil
}

func (s *sqliteIntrospector) ListReferencingForeignKeys(ctx context.Context, table string) ([]ForeignKey, error) {
	return nil, syncerr.New(syncerr.ErrSQLiteReferencingScan,
		"SQLite cannot enumerate foreign keys referencing a table").
		WithTable(table)
}
