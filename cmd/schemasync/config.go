package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the schemasync.yaml configuration file.
type Config struct {
	DatabaseURL  string `yaml:"database_url"`
	TablesDir    string `yaml:"tables_dir"`
	SnapshotFile string `yaml:"snapshot_file"`
	Dialect      string `yaml:"dialect"`
}

// loadConfig merges the config file, environment, and CLI flags.
// Precedence: CLI flags > env vars > config file > defaults.
func loadConfig() (*Config, error) {
	cfg := &Config{
		TablesDir:    "./tables",
		SnapshotFile: "./schemasync.snapshot.yaml",
	}

	if data, err := os.ReadFile(configFile); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configFile, err)
		}
		cfg.DatabaseURL = os.Expand(cfg.DatabaseURL, os.Getenv)
	}

	if envURL := os.Getenv("DATABASE_URL"); envURL != "" && cfg.DatabaseURL == "" {
		cfg.DatabaseURL = envURL
	}
	if envDir := os.Getenv("SCHEMASYNC_TABLES_DIR"); envDir != "" {
		cfg.TablesDir = envDir
	}

	if databaseURL != "" {
		cfg.DatabaseURL = databaseURL
	}
	if tablesDir != "" {
		cfg.TablesDir = tablesDir
	}
	if dialectFlag != "" {
		cfg.Dialect = dialectFlag
	}
	if cfg.Dialect == "" {
		cfg.Dialect = detectDialect(cfg.DatabaseURL)
	}

	return cfg, nil
}

// detectDialect picks a dialect from the connection URL.
//
// Detection rules:
//   - postgres:// or postgresql:// -> postgres
//   - mysql:// -> mysql
//   - sqlite:// or file: or path ending with .db/.sqlite/.sqlite3 -> sqlite
func detectDialect(dbURL string) string {
	u := strings.ToLower(dbURL)

	switch {
	case strings.HasPrefix(u, "postgres://"),
		strings.HasPrefix(u, "postgresql://"):
		return "postgres"

	case strings.HasPrefix(u, "mysql://"):
		return "mysql"

	case strings.HasPrefix(u, "sqlite://"),
		strings.HasPrefix(u, "sqlite3://"),
		strings.HasPrefix(u, "file:"):
		return "sqlite"

	case strings.HasSuffix(u, ".db"),
		strings.HasSuffix(u, ".sqlite"),
		strings.HasSuffix(u, ".sqlite3"):
		return "sqlite"
	}

	return "postgres"
}

// openDatabase opens a database/sql handle for the dialect.
func openDatabase(dbURL, dialectName string) (*sql.DB, error) {
	switch dialectName {
	case "postgres":
		return sql.Open("postgres", dbURL)

	case "mysql":
		dsn, err := mysqlDSN(dbURL)
		if err != nil {
			return nil, err
		}
		return sql.Open("mysql", dsn)

	case "sqlite":
		return sql.Open("sqlite", sqlitePath(dbURL))

	default:
		return nil, fmt.Errorf("unsupported dialect: %s", dialectName)
	}
}

// mysqlDSN converts a mysql:// URL into the DSN format the driver expects:
// user:pass@tcp(host:port)/dbname?params.
func mysqlDSN(dbURL string) (string, error) {
	if !strings.HasPrefix(dbURL, "mysql://") {
		// Assume it is already a driver DSN.
		return dbURL, nil
	}
	u, err := url.Parse(dbURL)
	if err != nil {
		return "", fmt.Errorf("invalid mysql URL: %w", err)
	}

	var b strings.Builder
	if u.User != nil {
		b.WriteString(u.User.Username())
		if pass, ok := u.User.Password(); ok {
			b.WriteString(":")
			b.WriteString(pass)
		}
		b.WriteString("@")
	}
	host := u.Host
	if host == "" {
		host = "127.0.0.1:3306"
	}
	fmt.Fprintf(&b, "tcp(%s)/%s", host, strings.TrimPrefix(u.Path, "/"))
	if u.RawQuery != "" {
		b.WriteString("?")
		b.WriteString(u.RawQuery)
	}
	return b.String(), nil
}

// sqlitePath strips URL schemes, leaving a file path the driver accepts.
func sqlitePath(dbURL string) string {
	dbURL = strings.TrimPrefix(dbURL, "sqlite://")
	dbURL = strings.TrimPrefix(dbURL, "sqlite3://")
	dbURL = strings.TrimPrefix(dbURL, "file:")
	return dbURL
}

// redactURL masks the password portion of a connection URL for logging.
func redactURL(dbURL string) string {
	start := strings.Index(dbURL, "://")
	if start == -1 {
		return dbURL
	}
	start += 3

	end := strings.Index(dbURL[start:], "@")
	if end == -1 {
		return dbURL
	}
	end += start

	credentials := dbURL[start:end]
	if colonIdx := strings.Index(credentials, ":"); colonIdx != -1 {
		user := credentials[:colonIdx]
		return dbURL[:start] + user + ":***@" + dbURL[end+1:]
	}
	return dbURL
}

// newLogger builds the process logger. Debug level with --verbose, warn
// otherwise so command output stays readable.
func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
