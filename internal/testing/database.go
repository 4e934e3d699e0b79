// Package testing provides shared test fixtures: an in-memory sqlite
// database, input folders and a fake d:swarm engine.
package testing

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// CreateTestDB creates an in-memory SQLite test database.
// Automatically registers cleanup via t.Cleanup().
func CreateTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	// Each pooled connection would get its own empty :memory: database
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("Failed to enable foreign keys: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// WriteInputFiles creates a folder below t.TempDir() holding one small XML
// file per name and returns the folder path.
func WriteInputFiles(t *testing.T, names ...string) string {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "in")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create input folder: %v", err)
	}
	for _, name := range names {
		content := "<record><title>" + name + "</title></record>\n"
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write input file %s: %v", name, err)
		}
	}
	return dir
}
