package settings

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
)

// storeImpls returns a fresh instance of every Store implementation; both
// must behave identically.
func storeImpls(t *testing.T) map[string]Store {
	t.Helper()

	sqlite, err := NewSQLiteStore(filepath.Join(t.TempDir(), "settings.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })

	memory := NewMemoryStore()
	t.Cleanup(func() { memory.Close() })

	return map[string]Store{"sqlite": sqlite, "memory": memory}
}

func TestStoreGetSet(t *testing.T) {
	for name, store := range storeImpls(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			got, err := store.Get(ctx, KeyRootFolderID)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if got != "" {
				t.Errorf("Get() on unset key = %q, want empty", got)
			}

			if err := store.Set(ctx, KeyRootFolderID, "folder-abc"); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			if err := store.Set(ctx, KeyRootFolderID, "folder-xyz"); err != nil {
				t.Fatalf("Set() overwrite error = %v", err)
			}

			got, err = store.Get(ctx, KeyRootFolderID)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if got != "folder-xyz" {
				t.Errorf("Get() = %q, want last written value", got)
			}
		})
	}
}

func TestStoreSourceChannels(t *testing.T) {
	for name, store := range storeImpls(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			for _, id := range []string{"chan-b", "chan-a", "chan-b"} {
				if err := store.AddSourceChannel(ctx, id); err != nil {
					t.Fatalf("AddSourceChannel(%s) error = %v", id, err)
				}
			}

			got, err := store.SourceChannels(ctx)
			if err != nil {
				t.Fatalf("SourceChannels() error = %v", err)
			}
			want := []string{"chan-a", "chan-b"}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("SourceChannels() = %v, want sorted deduplicated %v", got, want)
			}

			if err := store.RemoveSourceChannel(ctx, "chan-a"); err != nil {
				t.Fatalf("RemoveSourceChannel() error = %v", err)
			}
			got, err = store.SourceChannels(ctx)
			if err != nil {
				t.Fatalf("SourceChannels() error = %v", err)
			}
			if !reflect.DeepEqual(got, []string{"chan-b"}) {
				t.Errorf("SourceChannels() after remove = %v, want [chan-b]", got)
			}

			// Removing an absent channel is a no-op.
			if err := store.RemoveSourceChannel(ctx, "chan-zzz"); err != nil {
				t.Errorf("RemoveSourceChannel() on absent channel error = %v", err)
			}
		})
	}
}

func TestStoreReviewRoutes(t *testing.T) {
	for name, store := range storeImpls(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			got, err := store.ReviewChannelFor(ctx, "chan-1")
			if err != nil {
				t.Fatalf("ReviewChannelFor() error = %v", err)
			}
			if got != "" {
				t.Errorf("ReviewChannelFor() on unmapped source = %q, want empty", got)
			}

			if err := store.SetReviewChannel(ctx, "chan-1", "review-1"); err != nil {
				t.Fatalf("SetReviewChannel() error = %v", err)
			}
			if err := store.SetReviewChannel(ctx, "chan-1", "review-2"); err != nil {
				t.Fatalf("SetReviewChannel() remap error = %v", err)
			}
			if err := store.SetReviewChannel(ctx, "chan-2", "review-2"); err != nil {
				t.Fatalf("SetReviewChannel() error = %v", err)
			}

			got, err = store.ReviewChannelFor(ctx, "chan-1")
			if err != nil {
				t.Fatalf("ReviewChannelFor() error = %v", err)
			}
			if got != "review-2" {
				t.Errorf("ReviewChannelFor() = %q, want remapped value", got)
			}

			routes, err := store.Routes(ctx)
			if err != nil {
				t.Fatalf("Routes() error = %v", err)
			}
			want := map[string]string{"chan-1": "review-2", "chan-2": "review-2"}
			if !reflect.DeepEqual(routes, want) {
				t.Errorf("Routes() = %v, want %v", routes, want)
			}
		})
	}
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	if err := store.Set(ctx, KeyTriggerEmoji, "📁"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := store.AddSourceChannel(ctx, "chan-1"); err != nil {
		t.Fatalf("AddSourceChannel() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore() reopen error = %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(ctx, KeyTriggerEmoji)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "📁" {
		t.Errorf("Get() after reopen = %q, want persisted value", got)
	}
	channels, err := reopened.SourceChannels(ctx)
	if err != nil {
		t.Fatalf("SourceChannels() error = %v", err)
	}
	if len(channels) != 1 || channels[0] != "chan-1" {
		t.Errorf("SourceChannels() after reopen = %v, want [chan-1]", channels)
	}
}

func TestRoutesAdapter(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	defer store.Close()

	if err := store.Set(ctx, KeyPrivilegedRole, "Officer"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := store.SetReviewChannel(ctx, "chan-1", "review-1"); err != nil {
		t.Fatalf("SetReviewChannel() error = %v", err)
	}

	routes := Routes{Store: store}
	role, err := routes.PrivilegedRole(ctx)
	if err != nil {
		t.Fatalf("PrivilegedRole() error = %v", err)
	}
	if role != "Officer" {
		t.Errorf("PrivilegedRole() = %q, want %q", role, "Officer")
	}
	review, err := routes.ReviewChannelFor(ctx, "chan-1")
	if err != nil {
		t.Fatalf("ReviewChannelFor() error = %v", err)
	}
	if review != "review-1" {
		t.Errorf("ReviewChannelFor() = %q, want %q", review, "review-1")
	}
}
