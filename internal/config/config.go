// Package config loads typedsql.ini.
//
//	[db]
//	url = postgres://app@localhost:5432/app
//	dialect = postgres        ; inferred from url when empty
//
//	[schema]
//	path = schema.yaml        ; relative to the config file
//
//	[log]
//	format = pretty           ; json, pretty or text
//	level = debug
//
//	[crud.person]
//	limit = 100               ; default page size for list
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/shipq/typedsql/dburl"
	"github.com/shipq/typedsql/inifile"
	"github.com/shipq/typedsql/logging"
	"github.com/shipq/typedsql/query/compile"
)

// ConfigFilename is the name of the config file.
const ConfigFilename = "typedsql.ini"

// DefaultListLimit is the page size used when no [crud.<table>] limit is set.
const DefaultListLimit = 50

// Config holds the settings from typedsql.ini.
type Config struct {
	// ConfigDir is the directory holding typedsql.ini, or the directory
	// passed to Load when there is no file.
	ConfigDir string

	DB     DBConfig
	Schema SchemaConfig
	Log    LogConfig
	// Tables holds per-table overrides from [crud.<table>] sections.
	Tables map[string]TableConfig
}

// DBConfig holds the [db] section.
type DBConfig struct {
	URL     string
	Dialect string
}

// SchemaConfig holds the [schema] section.
type SchemaConfig struct {
	Path string
}

// LogConfig holds the [log] section.
type LogConfig struct {
	Format string
	Level  slog.Level
}

// TableConfig holds one [crud.<table>] section.
type TableConfig struct {
	ListLimit int
}

func defaults(dir string) *Config {
	return &Config{
		ConfigDir: dir,
		Schema:    SchemaConfig{Path: filepath.Join(dir, "schema.yaml")},
		Log:       LogConfig{Format: "pretty", Level: slog.LevelInfo},
		Tables:    make(map[string]TableConfig),
	}
}

// Load reads typedsql.ini from dir (or the working directory if empty).
// A missing file yields the defaults. DATABASE_URL, when set, replaces
// db.url. Values may reference the environment as ${VAR}.
func Load(dir string) (*Config, error) {
	if dir == "" {
		var err error
		dir, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
	}

	cfg := defaults(dir)
	iniPath := filepath.Join(dir, ConfigFilename)
	f, err := inifile.ParseFile(iniPath, inifile.WithEnv())
	switch {
	case errors.Is(err, os.ErrNotExist):
		f = &inifile.File{}
	case err != nil:
		return nil, fmt.Errorf("failed to parse %s: %w", ConfigFilename, err)
	}

	if err := parseDBSection(f, &cfg.DB); err != nil {
		return nil, err
	}
	if v := f.Get("schema", "path"); v != "" {
		if !filepath.IsAbs(v) {
			v = filepath.Join(dir, v)
		}
		cfg.Schema.Path = v
	}
	if err := parseLogSection(f, &cfg.Log); err != nil {
		return nil, err
	}
	if err := parseCRUDSections(f, cfg.Tables); err != nil {
		return nil, err
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DB.URL = v
	}
	return cfg, nil
}

func parseDBSection(f *inifile.File, cfg *DBConfig) error {
	cfg.URL = f.Get("db", "url")
	if v := f.Get("db", "dialect"); v != "" {
		d, err := compile.ByName(v)
		if err != nil {
			return fmt.Errorf("%s: db.dialect: %w\n"+
				"  Supported dialects: postgres, mysql, sqlite, generic",
				ConfigFilename, err)
		}
		cfg.Dialect = d.Name()
	}
	return nil
}

func parseLogSection(f *inifile.File, cfg *LogConfig) error {
	if v := f.Get("log", "format"); v != "" {
		v = strings.ToLower(v)
		switch v {
		case "json", "pretty", "text":
			cfg.Format = v
		default:
			return fmt.Errorf("%s: invalid log.format %q (expected json, pretty or text)", ConfigFilename, v)
		}
	}
	if v := f.Get("log", "level"); v != "" {
		level, err := logging.ParseLevel(v)
		if err != nil {
			return fmt.Errorf("%s: log.level: %w", ConfigFilename, err)
		}
		cfg.Level = level
	}
	return nil
}

func parseCRUDSections(f *inifile.File, tables map[string]TableConfig) error {
	for _, section := range f.SectionsWithPrefix("crud.") {
		name := strings.TrimPrefix(section.Name, "crud.")
		limit, err := section.Int("limit", DefaultListLimit)
		if err != nil {
			return fmt.Errorf("%s: [%s] %w", ConfigFilename, section.Name, err)
		}
		if limit <= 0 {
			return fmt.Errorf("%s: [%s] limit must be positive, got %d", ConfigFilename, section.Name, limit)
		}
		tables[name] = TableConfig{ListLimit: limit}
	}
	return nil
}

// SQLDialect returns db.dialect when set, otherwise the dialect of db.url,
// otherwise the generic dialect.
func (c *Config) SQLDialect() (compile.Dialect, error) {
	if c.DB.Dialect != "" {
		return compile.ByName(c.DB.Dialect)
	}
	if c.DB.URL == "" {
		return compile.Generic, nil
	}
	name, err := dburl.InferDialectFromDBUrl(c.DB.URL)
	if err != nil {
		return nil, err
	}
	return compile.ByName(name)
}

// ListLimit returns the list page size for table.
func (c *Config) ListLimit(table string) int {
	if t, ok := c.Tables[strings.ToLower(table)]; ok {
		return t.ListLimit
	}
	return DefaultListLimit
}

// Logger builds the logger described by the [log] section.
func (c *Config) Logger(w io.Writer) (*slog.Logger, error) {
	return logging.New(c.Log.Format, c.Log.Level, w)
}

// Exists reports whether typedsql.ini exists in dir.
func Exists(dir string) (bool, error) {
	if dir == "" {
		var err error
		dir, err = os.Getwd()
		if err != nil {
			return false, err
		}
	}
	_, err := os.Stat(filepath.Join(dir, ConfigFilename))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}
