// Package db reads DOB complaint exports through DuckDB.
package db

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

var (
	instance *sql.DB
	once     sync.Once
	initErr  error
)

// Config holds database configuration. An empty DBName opens an
// in-memory database.
type Config struct {
	DataDir string
	DBName  string
}

// Path returns the database file, "" for in-memory.
func (c Config) Path() string {
	if c.DBName == "" {
		return ""
	}
	return filepath.Join(c.DataDir, "duckdb", c.DBName+".duckdb")
}

// Get returns the process-wide DuckDB handle, opening it on first use.
func Get(cfg Config) (*sql.DB, error) {
	once.Do(func() {
		instance, initErr = Open(cfg)
	})
	return instance, initErr
}

// Open opens a new DuckDB handle.
func Open(cfg Config) (*sql.DB, error) {
	path := cfg.Path()
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, eris.Wrap(err, "db: create duckdb directory")
		}
	}
	conn, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, eris.Wrapf(err, "db: open %q", path)
	}
	if _, err := conn.Exec("INSTALL parquet; LOAD parquet;"); err != nil {
		zap.L().Debug("parquet extension not loaded", zap.Error(err))
	}
	return conn, nil
}

// Close closes the process-wide handle.
func Close() error {
	if instance != nil {
		return instance.Close()
	}
	return nil
}
