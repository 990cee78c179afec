// Package helpers provides shared test fixtures.
package helpers

import (
	"testing"

	"github.com/Darlinghurst56/taskmaster/store"
)

// NewTestSQLiteStore creates an in-memory SQLite store that is closed when
// the test ends.
func NewTestSQLiteStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}

// NewTestJSONStore creates a JSON-file store under a temp directory.
func NewTestJSONStore(t *testing.T) *store.JSONStore {
	t.Helper()

	s, err := store.NewJSONStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create json store: %v", err)
	}
	return s
}
