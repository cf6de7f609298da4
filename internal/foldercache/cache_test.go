package foldercache

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/connorheyz/google-drive-uploader-bot/internal/storage"
	"github.com/connorheyz/google-drive-uploader-bot/internal/testutil"
	"github.com/connorheyz/google-drive-uploader-bot/internal/uploader"
)

func fixedRoot(id string) RootFunc {
	return func(context.Context) (string, error) { return id, nil }
}

// seededBackend builds root/{Guides/{Raids,Dungeons},Media}.
func seededBackend(t *testing.T) (*storage.MemoryBackend, map[string]string) {
	t.Helper()
	backend := storage.NewMemoryBackend()
	guides := backend.AddFolder("", "Guides")
	ids := map[string]string{
		"Guides":          guides,
		"Guides/Raids":    backend.AddFolder(guides, "Raids"),
		"Guides/Dungeons": backend.AddFolder(guides, "Dungeons"),
		"Media":           backend.AddFolder("", "Media"),
	}
	return backend, ids
}

func TestRebuildAndResolve(t *testing.T) {
	backend, ids := seededBackend(t)
	cache := New(backend, fixedRoot(backend.RootID()), testutil.FixedClock(), nil)

	if err := cache.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}

	tests := []struct {
		path []string
		want string
	}{
		{nil, backend.RootID()},
		{[]string{"Guides"}, ids["Guides"]},
		{[]string{"Guides", "Raids"}, ids["Guides/Raids"]},
		{[]string{"Media"}, ids["Media"]},
	}
	for _, tt := range tests {
		got, ok := cache.ResolvePath(tt.path)
		if !ok {
			t.Errorf("ResolvePath(%v) missed", tt.path)
			continue
		}
		if got != tt.want {
			t.Errorf("ResolvePath(%v) = %q, want %q", tt.path, got, tt.want)
		}
	}

	if _, ok := cache.ResolvePath([]string{"Guides", "Nope"}); ok {
		t.Error("ResolvePath should miss on an unknown segment")
	}

	folders, builtAt, ok := cache.Stats()
	if !ok || folders != 4 {
		t.Errorf("Stats() = (%d, %v, %v), want 4 folders", folders, builtAt, ok)
	}
}

func TestResolveIsStableAcrossRebuilds(t *testing.T) {
	backend, ids := seededBackend(t)
	cache := New(backend, fixedRoot(backend.RootID()), testutil.FixedClock(), nil)

	for i := 0; i < 3; i++ {
		if err := cache.Rebuild(context.Background()); err != nil {
			t.Fatalf("Rebuild() #%d error = %v", i, err)
		}
		got, ok := cache.ResolvePath([]string{"Guides", "Raids"})
		if !ok || got != ids["Guides/Raids"] {
			t.Errorf("ResolvePath after rebuild #%d = (%q, %v), want %q", i, got, ok, ids["Guides/Raids"])
		}
	}
}

func TestListChildren(t *testing.T) {
	t.Run("sorted case-insensitively", func(t *testing.T) {
		backend := storage.NewMemoryBackend()
		for _, name := range []string{"zeta", "Alpha", "media", "Beta"} {
			backend.AddFolder("", name)
		}
		cache := New(backend, fixedRoot(backend.RootID()), testutil.FixedClock(), nil)
		if err := cache.Rebuild(context.Background()); err != nil {
			t.Fatalf("Rebuild() error = %v", err)
		}

		got := cache.ListChildren(nil)
		want := []string{"Alpha", "Beta", "media", "zeta"}
		if len(got) != len(want) {
			t.Fatalf("ListChildren() = %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("ListChildren() = %v, want %v", got, want)
			}
		}
	})

	t.Run("truncated to the picker limit", func(t *testing.T) {
		backend := storage.NewMemoryBackend()
		for i := 0; i < PickerLimit+10; i++ {
			backend.AddFolder("", fmt.Sprintf("folder-%02d", i))
		}
		cache := New(backend, fixedRoot(backend.RootID()), testutil.FixedClock(), nil)
		if err := cache.Rebuild(context.Background()); err != nil {
			t.Fatalf("Rebuild() error = %v", err)
		}

		if got := len(cache.ListChildren(nil)); got != PickerLimit {
			t.Errorf("ListChildren() returned %d names, want %d", got, PickerLimit)
		}
	})

	t.Run("empty before first rebuild", func(t *testing.T) {
		backend := storage.NewMemoryBackend()
		cache := New(backend, fixedRoot(backend.RootID()), testutil.FixedClock(), nil)
		if got := cache.ListChildren(nil); len(got) != 0 {
			t.Errorf("ListChildren() before rebuild = %v, want empty", got)
		}
	})
}

func TestRebuildFailureKeepsSnapshot(t *testing.T) {
	backend, ids := seededBackend(t)

	rootID := backend.RootID()
	var rootErr error
	rootFn := func(context.Context) (string, error) { return rootID, rootErr }

	cache := New(backend, rootFn, testutil.FixedClock(), nil)
	if err := cache.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}

	rootErr = errors.New("settings store unavailable")
	if err := cache.Rebuild(context.Background()); !errors.Is(err, uploader.ErrConfigurationMissing) {
		t.Fatalf("Rebuild() error = %v, want ErrConfigurationMissing", err)
	}

	// The failed rebuild must not disturb the serving snapshot.
	if got, ok := cache.ResolvePath([]string{"Guides"}); !ok || got != ids["Guides"] {
		t.Errorf("ResolvePath after failed rebuild = (%q, %v), want previous snapshot", got, ok)
	}
}

func TestRebuildWithoutRootConfigured(t *testing.T) {
	backend := storage.NewMemoryBackend()
	cache := New(backend, fixedRoot(""), testutil.FixedClock(), nil)
	if err := cache.Rebuild(context.Background()); !errors.Is(err, uploader.ErrConfigurationMissing) {
		t.Errorf("Rebuild() error = %v, want ErrConfigurationMissing", err)
	}
}

func TestEnsurePath(t *testing.T) {
	t.Run("creates missing segments once", func(t *testing.T) {
		backend, _ := seededBackend(t)
		cache := New(backend, fixedRoot(backend.RootID()), testutil.FixedClock(), nil)

		first, err := cache.EnsurePath(context.Background(), []string{"Guides", "Archive", "2026"})
		if err != nil {
			t.Fatalf("EnsurePath() error = %v", err)
		}
		second, err := cache.EnsurePath(context.Background(), []string{"Guides", "Archive", "2026"})
		if err != nil {
			t.Fatalf("EnsurePath() second call error = %v", err)
		}
		if first != second {
			t.Errorf("EnsurePath() not idempotent: %q then %q", first, second)
		}
	})

	t.Run("resolves folders the snapshot has not seen", func(t *testing.T) {
		backend, ids := seededBackend(t)
		cache := New(backend, fixedRoot(backend.RootID()), testutil.FixedClock(), nil)
		if err := cache.Rebuild(context.Background()); err != nil {
			t.Fatalf("Rebuild() error = %v", err)
		}

		// A folder appears remotely after the snapshot was taken.
		lateID := backend.AddFolder(ids["Media"], "Screenshots")

		if _, ok := cache.ResolvePath([]string{"Media", "Screenshots"}); ok {
			t.Fatal("stale snapshot should miss the late folder")
		}
		got, err := cache.EnsurePath(context.Background(), []string{"Media", "Screenshots"})
		if err != nil {
			t.Fatalf("EnsurePath() error = %v", err)
		}
		if got != lateID {
			t.Errorf("EnsurePath() = %q, want existing folder %q, not a duplicate", got, lateID)
		}
	})
}

func TestBuildSnapshot_cycleSafety(t *testing.T) {
	// a and b declare each other as parents; neither chain reaches the
	// root. The build must terminate and keep both reachable at top level.
	flat := []flatNode{
		{id: "a", name: "Alpha", parentID: "b"},
		{id: "b", name: "Beta", parentID: "a"},
		{id: "c", name: "Gamma", parentID: "root"},
	}

	done := make(chan *snapshot, 1)
	go func() { done <- buildSnapshot("root", flat, time.Now()) }()

	var snap *snapshot
	select {
	case snap = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("buildSnapshot did not terminate on a parent cycle")
	}

	if snap.count != 3 {
		t.Errorf("count = %d, want all 3 nodes placed", snap.count)
	}
	for _, name := range []string{"Alpha", "Beta", "Gamma"} {
		if _, ok := snap.root.Children[name]; !ok {
			t.Errorf("node %q not attached at top level", name)
		}
	}
}

func TestBuildSnapshot_orphanFallsBackToTopLevel(t *testing.T) {
	flat := []flatNode{
		{id: "x", name: "Orphan", parentID: "missing-parent"},
	}
	snap := buildSnapshot("root", flat, time.Now())

	node, ok := snap.byPath["Orphan"]
	if !ok {
		t.Fatal("orphan not reachable by its top-level path")
	}
	if node.ID != "x" {
		t.Errorf("byPath[Orphan].ID = %q, want %q", node.ID, "x")
	}
}
