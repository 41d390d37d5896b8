package migrate

import (
	"context"
	"log/slog"

	"github.com/enfyra/server-sub005/internal/introspect"
	"github.com/enfyra/server-sub005/internal/schema"
)

// liveEnvironment answers the diff engine's schema questions from the live
// database, falling back to cached metadata. The physical schema wins when
// the two disagree: a prior migration may have landed in the database before
// the cache caught up.
type liveEnvironment struct {
	insp     introspect.Introspector
	metadata map[string]*schema.TableDescription
	logger   *slog.Logger
}

// ResolveKeyType prefers the introspected id column type, then the declared
// primary key, then defaults to integer with a warning.
func (e *liveEnvironment) ResolveKeyType(ctx context.Context, table string) (schema.KeyType, error) {
	key, found, err := e.insp.PrimaryKeyType(ctx, table)
	if err != nil {
		return "", err
	}
	if found {
		return key, nil
	}

	if desc, ok := e.metadata[table]; ok {
		return desc.DeclaredKeyType(), nil
	}

	e.logger.Warn("primary key type unresolvable, defaulting to integer", "table", table)
	return schema.KeyInteger, nil
}

// ListColumns reads the physical column set, merging in cached metadata for
// tables that do not exist yet (a table being created in the same run).
func (e *liveEnvironment) ListColumns(ctx context.Context, table string) ([]string, error) {
	columns, err := e.insp.ListColumns(ctx, table)
	if err != nil {
		return nil, err
	}
	if len(columns) > 0 {
		return columns, nil
	}

	desc, ok := e.metadata[table]
	if !ok {
		return nil, nil
	}
	names := make([]string, 0, len(desc.Columns))
	for i := range desc.Columns {
		names = append(names, desc.Columns[i].Name)
	}
	return names, nil
}

// TableExists consults the database first, then cached metadata, so a table
// queued for creation in the same sync counts as present.
func (e *liveEnvironment) TableExists(ctx context.Context, table string) (bool, error) {
	exists, err := e.insp.TableExists(ctx, table)
	if err != nil {
		return false, err
	}
	if exists {
		return true, nil
	}
	_, ok := e.metadata[table]
	return ok, nil
}
