// Package foldercache maintains an in-memory mirror of the remote folder
// hierarchy under a configured root. The backend only answers
// parent-pointer queries against opaque ids; the cache amortizes the
// O(depth) resolution cost and feeds the bounded folder picker without one
// remote call per interaction.
package foldercache

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/connorheyz/google-drive-uploader-bot/internal/storage"
	"github.com/connorheyz/google-drive-uploader-bot/internal/uploader"
)

// PickerLimit bounds ListChildren results: the interactive folder picker
// can show at most this many options.
const PickerLimit = 25

// Backend is the query surface the cache needs from the storage backend.
type Backend interface {
	ListChildren(ctx context.Context, parentID string) ([]storage.NodeRef, error)
	GetNodeInfo(ctx context.Context, id string) (*storage.NodeInfo, error)
	CreateFolder(ctx context.Context, parentID, name string) (string, error)
}

// RootFunc supplies the configured root folder id at rebuild time. The
// root is a runtime setting, so it is read fresh on every rebuild.
type RootFunc func(ctx context.Context) (string, error)

// Node is one mirrored folder.
type Node struct {
	ID       string
	Name     string
	ParentID string
	Path     string
	Children map[string]*Node // keyed by name
}

// snapshot is an immutable point-in-time view of the tree. Readers always
// see a complete snapshot: rebuilds assemble a new one and swap a single
// pointer, never mutate in place.
type snapshot struct {
	rootID  string
	root    *Node
	byPath  map[string]*Node
	count   int
	builtAt time.Time
}

// Cache mirrors the remote folder tree and resolves paths to backend ids.
type Cache struct {
	backend Backend
	rootID  RootFunc
	clock   uploader.Clock
	logger  uploader.Logger
	snap    atomic.Pointer[snapshot]
}

// New creates a cache with no snapshot. Callers should Rebuild before
// serving lookups; until then every lookup misses.
func New(backend Backend, rootID RootFunc, clock uploader.Clock, logger uploader.Logger) *Cache {
	if logger == nil {
		logger = uploader.NewNopLogger()
	}
	if clock == nil {
		clock = uploader.RealClock{}
	}
	return &Cache{backend: backend, rootID: rootID, clock: clock, logger: logger}
}

type flatNode struct {
	id       string
	name     string
	parentID string
}

// Rebuild fully re-derives the tree from the backend. On any failure the
// previous snapshot stays in effect and the error is returned.
func (c *Cache) Rebuild(ctx context.Context) error {
	rootID, err := c.rootID(ctx)
	if err != nil {
		return fmt.Errorf("%w: reading root folder id: %v", uploader.ErrConfigurationMissing, err)
	}
	if rootID == "" {
		return fmt.Errorf("%w: no root folder configured", uploader.ErrConfigurationMissing)
	}

	info, err := c.backend.GetNodeInfo(ctx, rootID)
	if err != nil {
		return fmt.Errorf("reading root folder %s: %w", rootID, err)
	}
	if !info.IsFolder {
		return fmt.Errorf("configured root %s is not a folder", rootID)
	}

	flat, err := c.traverse(ctx, rootID)
	if err != nil {
		return err
	}

	snap := buildSnapshot(rootID, flat, c.clock.Now())
	c.snap.Store(snap)
	c.logger.Info("folder cache rebuilt", "root", rootID, "folders", snap.count)
	return nil
}

// traverse breadth-first walks the tree one parent at a time. Visited
// parents are deduplicated so externally introduced cycles cannot keep the
// walk alive.
func (c *Cache) traverse(ctx context.Context, rootID string) ([]flatNode, error) {
	var flat []flatNode
	visited := map[string]bool{rootID: true}
	queue := []string{rootID}

	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]

		children, err := c.backend.ListChildren(ctx, parent)
		if err != nil {
			return nil, fmt.Errorf("listing children of %s: %w", parent, err)
		}
		for _, child := range children {
			flat = append(flat, flatNode{id: child.ID, name: child.Name, parentID: parent})
			if !visited[child.ID] {
				visited[child.ID] = true
				queue = append(queue, child.ID)
			}
		}
	}
	return flat, nil
}

// buildSnapshot runs the path-computation and tree-assembly passes over
// the flat node list.
func buildSnapshot(rootID string, flat []flatNode, now time.Time) *snapshot {
	byID := make(map[string]*flatNode, len(flat))
	for i := range flat {
		byID[flat[i].id] = &flat[i]
	}

	root := &Node{ID: rootID, Children: make(map[string]*Node)}
	snap := &snapshot{
		rootID:  rootID,
		root:    root,
		byPath:  map[string]*Node{"": root},
		builtAt: now,
	}

	nodes := make([]*Node, 0, len(flat))
	for i := range flat {
		f := &flat[i]
		nodes = append(nodes, &Node{
			ID:       f.id,
			Name:     f.name,
			ParentID: f.parentID,
			Path:     computePath(f, rootID, byID),
			Children: make(map[string]*Node),
		})
	}

	// Shallow nodes first so every legitimate parent is in byPath before
	// its children attach.
	sort.SliceStable(nodes, func(i, j int) bool {
		return strings.Count(nodes[i].Path, "/") < strings.Count(nodes[j].Path, "/")
	})

	for _, n := range nodes {
		parentPath := ""
		if i := strings.LastIndex(n.Path, "/"); i >= 0 {
			parentPath = n.Path[:i]
		}
		parent, ok := snap.byPath[parentPath]
		if !ok {
			// Declared parent fell outside the scoped set; treat the node
			// as top level rather than dropping its subtree silently.
			parent = root
			n.Path = n.Name
		}
		parent.Children[n.Name] = n
		snap.byPath[n.Path] = n
		snap.count++
	}
	return snap
}

// computePath walks the parent chain from the node up to the root,
// accumulating names. A cycle or a missing parent short-circuits to a
// top-level path instead of recursing forever.
func computePath(f *flatNode, rootID string, byID map[string]*flatNode) string {
	segments := []string{f.name}
	seen := map[string]bool{f.id: true}
	cur := f.parentID

	for cur != rootID {
		if seen[cur] {
			return f.name // cycle
		}
		seen[cur] = true
		parent, ok := byID[cur]
		if !ok {
			return f.name // orphan
		}
		segments = append(segments, parent.name)
		cur = parent.parentID
	}

	// Reverse into root-to-node order.
	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}
	return strings.Join(segments, "/")
}

func (c *Cache) lookup(path []string) (*Node, bool) {
	snap := c.snap.Load()
	if snap == nil {
		return nil, false
	}
	node := snap.root
	for _, seg := range path {
		child, ok := node.Children[seg]
		if !ok {
			return nil, false
		}
		node = child
	}
	return node, true
}

// ListChildren returns the immediate child folder names under the path,
// sorted case-insensitively and truncated to PickerLimit. An unresolvable
// path (or an absent snapshot) yields an empty list.
func (c *Cache) ListChildren(path []string) []string {
	node, ok := c.lookup(path)
	if !ok {
		return nil
	}
	names := make([]string, 0, len(node.Children))
	for name := range node.Children {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return strings.ToLower(names[i]) < strings.ToLower(names[j])
	})
	if len(names) > PickerLimit {
		names = names[:PickerLimit]
	}
	return names
}

// ResolvePath resolves a path against the current snapshot. ok is false
// when any segment is missing; the snapshot may simply be stale, so
// callers fall back to EnsurePath.
func (c *Cache) ResolvePath(path []string) (string, bool) {
	node, ok := c.lookup(path)
	if !ok {
		return "", false
	}
	return node.ID, true
}

// EnsurePath resolves a path directly against the backend, walking parent
// by parent and creating any missing segment. Resolving an unchanged path
// twice returns the same id and creates nothing the second time.
func (c *Cache) EnsurePath(ctx context.Context, path []string) (string, error) {
	rootID, err := c.rootID(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: reading root folder id: %v", uploader.ErrConfigurationMissing, err)
	}
	if rootID == "" {
		return "", fmt.Errorf("%w: no root folder configured", uploader.ErrConfigurationMissing)
	}

	cur := rootID
	for _, seg := range path {
		children, err := c.backend.ListChildren(ctx, cur)
		if err != nil {
			return "", fmt.Errorf("listing children of %s: %w", cur, err)
		}
		next := ""
		for _, child := range children {
			if child.Name == seg {
				next = child.ID
				break
			}
		}
		if next == "" {
			next, err = c.backend.CreateFolder(ctx, cur, seg)
			if err != nil {
				return "", fmt.Errorf("creating folder %q: %w", seg, err)
			}
		}
		cur = next
	}
	return cur, nil
}

// Stats reports the current snapshot's size and build time. ok is false
// when no rebuild has succeeded yet.
func (c *Cache) Stats() (folders int, builtAt time.Time, ok bool) {
	snap := c.snap.Load()
	if snap == nil {
		return 0, time.Time{}, false
	}
	return snap.count, snap.builtAt, true
}

// Compile-time check that Cache satisfies the workflow's resolver surface.
var _ uploader.FolderResolver = (*Cache)(nil)
