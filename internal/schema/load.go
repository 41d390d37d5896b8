package schema

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/enfyra/server-sub005/internal/syncerr"
)

// Load reads and validates a single table description from a YAML file.
func Load(path string) (*TableDescription, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, syncerr.Wrap(syncerr.ErrValidation, err, "failed to read description file").
			With("path", path)
	}

	var t TableDescription
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, syncerr.Wrap(syncerr.ErrValidation, err, "failed to parse description file").
			With("path", path)
	}

	if err := Validate(&t); err != nil {
		return nil, err
	}
	return &t, nil
}

// LoadDir reads every .yaml/.yml file in dir and returns the descriptions
// keyed by table name, in stable (sorted) file order.
func LoadDir(dir string) (map[string]*TableDescription, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, syncerr.Wrap(syncerr.ErrValidation, err, "failed to read description directory").
			With("dir", dir)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	tables := make(map[string]*TableDescription, len(names))
	for _, name := range names {
		t, err := Load(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		if _, dup := tables[t.Name]; dup {
			return nil, syncerr.New(syncerr.ErrValidation, "duplicate table description").
				WithTable(t.Name).
				With("file", name)
		}
		tables[t.Name] = t
	}
	return tables, nil
}
