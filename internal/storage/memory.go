package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
)

// MemoryBackend is an in-memory implementation of the Backend interface.
// It is the test double for the workflow and folder cache, and can also
// serve URLs registered via AddSource so transfers run end to end without
// a network. Safe for concurrent use.
type MemoryBackend struct {
	mu      sync.RWMutex
	rootID  string
	folders map[string]*memFolder // id -> folder
	files   map[string]*memFile   // id -> file
	sources map[string]memSource  // url -> downloadable content
	uploads int
}

type memFolder struct {
	id       string
	name     string
	parentID string
}

type memFile struct {
	id          string
	folderID    string
	name        string
	mimeType    string
	description string
	data        []byte
}

type memSource struct {
	data     []byte
	mimeType string
}

// NewMemoryBackend creates an empty backend with a single root folder.
func NewMemoryBackend() *MemoryBackend {
	rootID := uuid.New().String()
	return &MemoryBackend{
		rootID:  rootID,
		folders: map[string]*memFolder{rootID: {id: rootID, name: ""}},
		files:   make(map[string]*memFile),
		sources: make(map[string]memSource),
	}
}

// RootID returns the id of the backend's root folder.
func (m *MemoryBackend) RootID() string { return m.rootID }

func (m *MemoryBackend) ListChildren(_ context.Context, parentID string) ([]NodeRef, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []NodeRef
	for _, f := range m.folders {
		if f.parentID == parentID {
			out = append(out, NodeRef{ID: f.id, Name: f.name})
		}
	}
	return out, nil
}

func (m *MemoryBackend) GetNodeInfo(_ context.Context, id string) (*NodeInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if f, ok := m.folders[id]; ok {
		return &NodeInfo{Name: f.name, IsFolder: true}, nil
	}
	if f, ok := m.files[id]; ok {
		return &NodeInfo{Name: f.name, IsFolder: false}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

func (m *MemoryBackend) CreateFolder(_ context.Context, parentID, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.folders[parentID]; !ok {
		return "", fmt.Errorf("%w: parent %s", ErrNotFound, parentID)
	}
	for _, f := range m.folders {
		if f.parentID == parentID && f.name == name {
			return f.id, nil
		}
	}
	id := uuid.New().String()
	m.folders[id] = &memFolder{id: id, name: name, parentID: parentID}
	return id, nil
}

func (m *MemoryBackend) Upload(_ context.Context, folderID, name, mimeType string, r io.Reader, size int64, description string) (*UploadResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading upload content: %w", err)
	}
	if size > 0 && int64(len(data)) != size {
		return nil, fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.folders[folderID]; !ok {
		return nil, fmt.Errorf("%w: folder %s", ErrNotFound, folderID)
	}
	id := uuid.New().String()
	m.files[id] = &memFile{
		id:          id,
		folderID:    folderID,
		name:        name,
		mimeType:    mimeType,
		description: description,
		data:        data,
	}
	m.uploads++
	return &UploadResult{ID: id, ViewURL: "memory://" + id, Size: int64(len(data))}, nil
}

func (m *MemoryBackend) Download(_ context.Context, url string) (io.ReadCloser, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	src, ok := m.sources[url]
	if !ok {
		return nil, "", fmt.Errorf("%w: source %s", ErrNotFound, url)
	}
	return io.NopCloser(bytes.NewReader(src.data)), src.mimeType, nil
}

// Test helpers.

// AddFolder creates a folder under the given parent and returns its id.
// parentID may be "" for the root.
func (m *MemoryBackend) AddFolder(parentID, name string) string {
	if parentID == "" {
		parentID = m.rootID
	}
	id, _ := m.CreateFolder(context.Background(), parentID, name)
	return id
}

// AddSource registers downloadable content under a URL.
func (m *MemoryBackend) AddSource(url string, data []byte, mimeType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources[url] = memSource{data: data, mimeType: mimeType}
}

// UploadCount returns the number of uploads performed.
func (m *MemoryBackend) UploadCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.uploads
}

// FilesIn returns the names of files stored in the given folder.
func (m *MemoryBackend) FilesIn(folderID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []string
	for _, f := range m.files {
		if f.folderID == folderID {
			out = append(out, f.name)
		}
	}
	return out
}

// Compile-time check that MemoryBackend implements the Backend interface.
var _ Backend = (*MemoryBackend)(nil)
