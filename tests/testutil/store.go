package testutil

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/nhle/gtd-backend/internal/migrate"
	"github.com/nhle/gtd-backend/internal/store"
)

// TempDBPath returns a database path inside a per-test temporary directory,
// so backups/ and exports/ siblings land in the same sandbox.
func TempDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "data.db")
}

// QuietLogger returns a logger that discards all output.
func QuietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// NewTestManager creates a migration manager over a temp-dir database using
// the given catalog.
func NewTestManager(t *testing.T, catalog *migrate.Catalog) (*migrate.Manager, string) {
	t.Helper()

	dbPath := TempDBPath(t)
	manager := migrate.NewManager(dbPath, catalog, migrate.WithLogger(QuietLogger()))
	return manager, dbPath
}

// OpenTestStore opens a store over dbPath and closes it when the test
// completes. The schema must already be migrated.
func OpenTestStore(t *testing.T, dbPath string) *store.SQLiteStore {
	t.Helper()

	s, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("opening test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}
