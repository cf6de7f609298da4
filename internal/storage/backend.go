// Package storage defines the cloud-storage backend surface and its
// implementations. The backend only understands opaque identifiers and
// parent-pointer queries; path addressing is layered on top by the folder
// cache.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by GetNodeInfo for unknown identifiers.
var ErrNotFound = errors.New("node not found")

// NodeRef identifies a child folder under a parent.
type NodeRef struct {
	ID   string
	Name string
}

// NodeInfo describes a single node.
type NodeInfo struct {
	Name     string
	IsFolder bool
}

// UploadResult describes a stored file.
type UploadResult struct {
	ID      string
	ViewURL string
	Size    int64
}

// Backend is a hierarchical storage backend. Implementations page through
// listings internally; callers see a single slice.
type Backend interface {
	// ListChildren returns the child folders of a parent. Files are not
	// included.
	ListChildren(ctx context.Context, parentID string) ([]NodeRef, error)

	// GetNodeInfo returns the node's name and kind, or ErrNotFound.
	GetNodeInfo(ctx context.Context, id string) (*NodeInfo, error)

	// CreateFolder creates a child folder and returns its id.
	CreateFolder(ctx context.Context, parentID, name string) (string, error)

	// Upload stores content as a new file under the folder.
	Upload(ctx context.Context, folderID, name, mimeType string, r io.Reader, size int64, description string) (*UploadResult, error)

	// Download fetches bytes from a source URL, returning the body and
	// the content type reported by the source.
	Download(ctx context.Context, url string) (io.ReadCloser, string, error)
}
