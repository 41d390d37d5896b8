package introspect

import (
	"context"
	"database/sql"
	"errors"

	"github.com/enfyra/server-sub005/internal/schema"
	"github.com/enfyra/server-sub005/internal/syncerr"
)

// postgresIntrospector reads information_schema scoped to the current schema.
type postgresIntrospector struct {
	q Querier
}

func (p *postgresIntrospector) TableExists(ctx context.Context, table string) (bool, error) {
	const query = `SELECT EXISTS (
		SELECT 1 FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_name = $1)`

	var exists bool
	if err := p.q.QueryRowContext(ctx, query, table).Scan(&exists); err != nil {
		return false, syncerr.Wrap(syncerr.ErrIntrospection, err, "checking table existence").
			WithTable(table)
	}
	return exists, nil
}

func (p *postgresIntrospector) ListColumns(ctx context.Context, table string) ([]string, error) {
	const query = `SELECT column_name FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
		ORDER BY ordinal_position`

	rows, err := p.q.QueryContext(ctx, query, table)
	if err != nil {
		return nil, syncerr.Wrap(syncerr.ErrIntrospection, err, "listing columns").
			WithTable(table)
	}
	return scanStrings(rows)
}

func (p *postgresIntrospector) PrimaryKeyType(ctx context.Context, table string) (schema.KeyType, bool, error) {
	const query = `SELECT data_type, COALESCE(character_maximum_length, 0)
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1 AND column_name = 'id'`

	var dataType string
	var charLength int
	err := p.q.QueryRowContext(ctx, query, table).Scan(&dataType, &charLength)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, syncerr.Wrap(syncerr.ErrIntrospection, err, "resolving primary key type").
			WithTable(table)
	}
	return keyTypeFromPhysical(dataType, charLength), true, nil
}

func (p *postgresIntrospector) ForeignKeyName(ctx context.Context, table, column string) (string, error) {
	const query = `SELECT tc.constraint_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON kcu.constraint_name = tc.constraint_name
		 AND kcu.table_schema = tc.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
		  AND tc.table_schema = current_schema()
		  AND tc.table_name = $1 AND kcu.column_name = $2
		LIMIT 1`

	var name string
	err := p.q.QueryRowContext(ctx, query, table, column).Scan(&name)
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

func (p *postgresIntrospector) ListReferencingForeignKeys(ctx context.Context, table string) ([]ForeignKey, error) {
	const query = `SELECT tc.table_name, kcu.column_name, tc.constraint_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON kcu.constraint_name = tc.constraint_name
		 AND kcu.table_schema = tc.table_schema
		JOIN information_schema.constraint_column_usage ccu
		  ON ccu.constraint_name = tc.constraint_name
		 AND ccu.table_schema = tc.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
		  AND tc.table_schema = current_schema()
		  AND ccu.table_name = $1`

	rows, err := p.q.QueryContext(ctx, query, table)
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
