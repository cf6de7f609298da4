package uploader

import (
	"context"
	"io"
)

// UploadResult describes the stored file after a successful transfer.
type UploadResult struct {
	ID      string
	ViewURL string
	Size    int64
}

// BlobStore is the transfer surface of the storage backend: fetch the
// source bytes and push them under a resolved folder. Folder enumeration
// and creation are the folder cache's concern, not the workflow's.
type BlobStore interface {
	// Download fetches the attachment bytes from their source URL.
	// Returns the body and the content type reported by the source.
	Download(ctx context.Context, url string) (io.ReadCloser, string, error)

	// Upload stores the content as a new file under the given folder.
	Upload(ctx context.Context, folderID, name, mimeType string, r io.Reader, size int64, description string) (*UploadResult, error)
}

// FolderResolver is the surface the workflow needs from the folder cache.
type FolderResolver interface {
	// ListChildren returns the immediate child folder names under the
	// path, sorted case-insensitively and truncated to the picker limit.
	ListChildren(path []string) []string

	// ResolvePath resolves a path to a backend folder id against the
	// current snapshot. ok is false when any segment is missing.
	ResolvePath(path []string) (id string, ok bool)

	// EnsurePath resolves a path against the backend directly, creating
	// missing segments. Used as the fallback when the snapshot is stale.
	EnsurePath(ctx context.Context, path []string) (string, error)
}

// RouteSource answers runtime-configured routing and role questions.
// Implemented by the settings store.
type RouteSource interface {
	// ReviewChannelFor returns the review channel mapped to a source
	// channel, or "" when none is configured.
	ReviewChannelFor(ctx context.Context, sourceChannelID string) (string, error)

	// PrivilegedRole returns the configured privileged role name, or ""
	// when none is configured.
	PrivilegedRole(ctx context.Context) (string, error)
}

// PendingEdits bridges the two-step modal interactions. It is a relay for
// the single next step, never a source of truth: entries expire and the
// rendered card remains canonical.
type PendingEdits interface {
	Put(token string, req UploadRequest)
	Take(token string) (UploadRequest, bool)
}
