package main

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/enfyra/server-sub005/internal/schema"
)

// snapshotFile is the on-disk record of the last applied description set.
// Diffs run against it, so renames and deletes are detected by stable id
// instead of guessed from the live schema.
type snapshotFile struct {
	Tables []*schema.TableDescription `yaml:"tables"`
}

// loadSnapshot reads the snapshot, returning an empty map when none exists
// yet (first sync).
func loadSnapshot(path string) (map[string]*schema.TableDescription, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]*schema.TableDescription{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", path, err)
	}

	var f snapshotFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot %s: %w", path, err)
	}

	tables := make(map[string]*schema.TableDescription, len(f.Tables))
	for _, t := range f.Tables {
		tables[t.Name] = t
	}
	return tables, nil
}

// saveSnapshot writes the applied description set in stable table order.
func saveSnapshot(path string, tables map[string]*schema.TableDescription) error {
	names := sortedTableNames(tables)
	f := snapshotFile{Tables: make([]*schema.TableDescription, 0, len(names))}
	for _, name := range names {
		f.Tables = append(f.Tables, tables[name])
	}

	data, err := yaml.Marshal(&f)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot %s: %w", path, err)
	}
	return nil
}

func sortedTableNames(tables map[string]*schema.TableDescription) []string {
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
