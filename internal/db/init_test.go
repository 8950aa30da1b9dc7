package db_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/atinyakov/gophtodo/internal/db"
)

func TestInitPostgres_ErrorPaths(t *testing.T) {
	cases := []struct {
		name       string
		dsn        string
		wantSubstr string
	}{
		{"invalid DSN", "some=random", "ping postgres"},
		{"empty DSN", "", "ping postgres"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := db.InitPostgres(tc.dsn)
			if err == nil {
				t.Fatalf("InitPostgres(%q) did not return error", tc.dsn)
			}
			if !strings.Contains(err.Error(), tc.wantSubstr) {
				t.Errorf("InitPostgres(%q) error = %q; want substring %q", tc.dsn, err.Error(), tc.wantSubstr)
			}
		})
	}
}

func TestInitSQLite_CreatesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "storage.db")
	conn, err := db.InitSQLite(path)
	if err != nil {
		t.Fatalf("InitSQLite failed: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Exec(`INSERT INTO storage_entries (namespace, key, value, updated_at) VALUES ('ns', 'k', 'v', 1)`); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	var v string
	if err := conn.QueryRow(`SELECT value FROM storage_entries WHERE namespace = 'ns' AND key = 'k'`).Scan(&v); err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if v != "v" {
		t.Errorf("got %q, want %q", v, "v")
	}

	// Re-opening keeps the existing table.
	conn.Close()
	again, err := db.InitSQLite(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer again.Close()
	var n int
	if err := again.QueryRow(`SELECT COUNT(*) FROM storage_entries`).Scan(&n); err != nil || n != 1 {
		t.Errorf("expected 1 row after reopen, got %d (%v)", n, err)
	}
}
