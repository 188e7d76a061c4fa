package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DBPath returns the path to the single shared database
func DBPath() string {
	return filepath.Join("data", "fieldmap.db")
}

// Open opens the database at dbPath, creating its directory if needed
func Open(dbPath string) (*sql.DB, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

// EnsureSchema ensures that the grid and legend tables exist.
func EnsureSchema(dbPath string) error {
	db, err := Open(dbPath)
	if err != nil {
		return fmt.Errorf("opening database to ensure schema: %w", err)
	}
	defer db.Close()

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS grids (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			kind TEXT NOT NULL,
			units TEXT,
			ncols INTEGER NOT NULL,
			nrows INTEGER NOT NULL,
			xllcorner REAL NOT NULL,
			yllcorner REAL NOT NULL,
			cellsize REAL NOT NULL,
			value_min REAL,
			value_max REAL,
			u_values TEXT NOT NULL,
			v_values TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_grids_name ON grids(name);
	`)
	if err != nil {
		return fmt.Errorf("creating grids table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS legend_state (
			legend_key TEXT PRIMARY KEY,
			unit_index INTEGER NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating legend_state table: %w", err)
	}

	return nil
}
