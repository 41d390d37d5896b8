package introspect

import (
	"context"
	"database/sql"
	"errors"

	"github.com/enfyra/server-sub005/internal/schema"
	"github.com/enfyra/server-sub005/internal/syncerr"
)

// mysqlIntrospector reads information_schema scoped to the current database.
type mysqlIntrospector struct {
	q Querier
}

func (m *mysqlIntrospector) TableExists(ctx context.Context, table string) (bool, error) {
	const query = `SELECT COUNT(*) FROM information_schema.tables
		WHERE table_schema = DATABASE() AND table_name = ?`

	var count int
	if err := m.q.QueryRowContext(ctx, query, table).Scan(&count); err != nil {
		return false, syncerr.Wrap(syncerr.ErrIntrospection, err, "checking table existence").
			WithTable(table)
	}
	return count > 0, nil
}

func (m *mysqlIntrospector) ListColumns(ctx context.Context, table string) ([]string, error) {
	const query = `SELECT column_name FROM information_schema.columns
		WHERE table_schema = DATABASE() AND table_name = ?
		ORDER BY ordinal_position`

	rows, err := m.q.QueryContext(ctx, query, table)
	if err != nil {
		return nil, syncerr.Wrap(syncerr.ErrIntrospection, err, "listing columns").
			WithTable(table)
	}
	return scanStrings(rows)
}

func (m *mysqlIntrospector) PrimaryKeyType(ctx context.Context, table string) (schema.KeyType, bool, error) {
	const query = `SELECT data_type, COALESCE(character_maximum_length, 0)
		FROM information_schema.columns
		WHERE table_schema = DATABASE() AND table_name = ? AND column_name = 'id'`

	var dataType string
	var charLength int
	err := m.q.QueryRowContext(ctx, query, table).Scan(&dataType, &charLength)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, syncerr.Wrap(syncerr.ErrIntrospection, err, "resolving primary key type").
			WithTable(table)
	}
	return keyTypeFromPhysical(dataType, charLength), true, nil
}

func (m *mysqlIntrospector) ForeignKeyName(ctx context.Context, table, column string) (string, error) {
	const query = `SELECT constraint_name FROM information_schema.key_column_usage
		WHERE table_schema = DATABASE() AND table_name = ? AND column_name = ?
		AND referenced_table_name IS NOT NULL
		LIMIT 1`

	var name string
	err := m.q.QueryRowContext(ctx, query, table, column).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", syncerr.Wrap(syncerr.ErrIntrospection, err, "looking up foreign key name").
			WithTable(table).
			WithColumn(column)
	}
	return name, nil
}

func (m *mysqlIntrospector) ListReferencingForeignKeys(ctx context.Context, table string) ([]ForeignKey, error) {
	const query = `SELECT table_name, column_name, constraint_name
		FROM information_schema.key_column_usage
		WHERE table_schema = DATABASE() AND referenced_table_name = ?`

	rows, err := m.q.QueryContext(ctx, query, table)
	if err != nil {
		return nil, syncerr.Wrap(syncerr.ErrIntrospection, err, "listing referencing foreign keys").
			WithTable(table)
	}
	defer rows.Close()

	var fks []ForeignKey
	for rows.Next() {
		var fk ForeignKey
		if err := rows.Scan(&fk.Table, &fk.Column, &fk.Constraint); err != nil {
			return nil, syncerr.Wrap(syncerr.ErrIntrospection, err, "scanning foreign key row")
		}
		fks = append(fks, fk)
	}
	if err := rows.Err(); err != nil {
		return nil, syncerr.Wrap(syncerr.ErrIntrospection, err, "reading foreign key rows")
	}
	return fks, nil
}
