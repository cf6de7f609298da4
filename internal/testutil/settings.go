package testutil

import (
	"path/filepath"
	"testing"

	"github.com/connorheyz/google-drive-uploader-bot/internal/settings"
)

// NewTestStore creates a SQLite settings store in a temp directory with
// migrations applied. The store is closed when the test completes.
func NewTestStore(t *testing.T) settings.Store {
	t.Helper()

	store, err := settings.NewSQLiteStore(filepath.Join(t.TempDir(), "settings.db"))
	if err != nil {
		t.Fatalf("failed to open settings store: %v", err)
	}

	t.Cleanup(func() {
		store.Close()
	})

	return store
}
