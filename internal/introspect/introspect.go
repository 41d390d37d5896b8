// Package introspect answers questions about the physical schema by querying
// the database's system catalogs. The physical schema is authoritative
// whenever it disagrees with cached metadata: a prior migration may have
// succeeded in the database without the cache catching up yet.
package introspect

import (
	"context"
	"database/sql"
	"strings"

	"github.com/enfyra/server-sub005/internal/schema"
	"github.com/enfyra/server-sub005/internal/syncerr"
)

// Querier is the subset of database/sql needed for catalog queries. Both
// *sql.DB and *sql.Tx satisfy it; the latter matters because existence checks
// must run inside a caller's transaction when one is supplied.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ForeignKey identifies an existing FK constraint in the database.
type ForeignKey struct {
	Table      string
	Column     string
	Constraint string
}

// Introspector reads the physical schema for one dialect.
type Introspector interface {
	// TableExists reports whether table exists in the current schema.
	TableExists(ctx context.Context, table string) (bool, error)

	// ListColumns returns the physical column names of table, in ordinal
	// order. An unknown table yields an empty list.
	ListColumns(ctx context.Context, table string) ([]string, error)

	// PrimaryKeyType resolves the physical type of table's id column.
	// found is false when the table or its id column does not exist.
	PrimaryKeyType(ctx context.Context, table string) (key schema.KeyType, found bool, err error)

	// ForeignKeyName returns the actual constraint name of the FK on
	// table.column, or "" when none exists.
	ForeignKeyName(ctx context.Context, table, column string) (string, error)

	// ListReferencingForeignKeys enumerates every FK in the database that
	// references table. Required before dropping a table. Unsupported on
	// SQLite, which returns a fatal error rather than a wrong empty answer.
	ListReferencingForeignKeys(ctx context.Context, table string) ([]ForeignKey, error)
}

// New returns the Introspector for the named dialect.
func New(dialectName string, q Querier) (Introspector, error) {
	switch dialectName {
	case "mysql":
		return &mysqlIntrospector{q: q}, nil
	case "postgres":
		return &postgresIntrospector{q: q}, nil
	case "sqlite":
		return &sqliteIntrospector{q: q}, nil
	}
	return nil, syncerr.New(syncerr.ErrUnsupportedDialectName, "no introspector for dialect").
		With("dialect", dialectName)
}

// keyTypeFromPhysical maps a catalog-reported data type to the key type
// shape. 36-character strings are assumed to hold UUIDs, matching how
// non-Postgres dialects store them.
func keyTypeFromPhysical(dataType string, charLength int) schema.KeyType {
	switch strings.ToLower(dataType) {
	case "int", "integer", "bigint", "smallint", "mediumint", "serial":
		return schema.KeyInteger
	case "uuid":
		return schema.KeyUUID
	}
	if charLength == 36 {
		return schema.KeyUUID
	}
	return schema.KeyVarchar
}

// scanStrings collects a single-column string result set.
func scanStrings(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, syncerr.Wrap(syncerr.ErrIntrospection, err, "scanning catalog row")
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, syncerr.Wrap(syncerr.ErrIntrospection, err, "reading catalog rows")
	}
	return out, nil
}
