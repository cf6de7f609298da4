package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const folderMimeType = "application/vnd.google-apps.folder"

// DriveBackend implements the Backend interface against the Google Drive
// v3 API using a service account.
type DriveBackend struct {
	svc  *drive.Service
	http *http.Client
}

// NewDriveBackend creates a Drive-backed storage backend from a service
// account credentials file.
func NewDriveBackend(ctx context.Context, credentialsPath string) (*DriveBackend, error) {
	svc, err := drive.NewService(ctx,
		option.WithCredentialsFile(credentialsPath),
		option.WithScopes(drive.DriveScope))
	if err != nil {
		return nil, fmt.Errorf("creating drive client: %w", err)
	}
	return &DriveBackend{
		svc:  svc,
		http: &http.Client{Timeout: 5 * time.Minute},
	}, nil
}

func (d *DriveBackend) ListChildren(ctx context.Context, parentID string) ([]NodeRef, error) {
	query := fmt.Sprintf("'%s' in parents and mimeType = '%s' and trashed = false", parentID, folderMimeType)

	var out []NodeRef
	pageToken := ""
	for {
		call := d.svc.Files.List().
			Q(query).
			Fields("nextPageToken, files(id, name)").
			PageSize(1000).
			SupportsAllDrives(true).
			IncludeItemsFromAllDrives(true).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		page, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("listing children of %s: %w", parentID, err)
		}
		for _, f := range page.Files {
			out = append(out, NodeRef{ID: f.Id, Name: f.Name})
		}
		if page.NextPageToken == "" {
			return out, nil
		}
		pageToken = page.NextPageToken
	}
}

func (d *DriveBackend) GetNodeInfo(ctx context.Context, id string) (*NodeInfo, error) {
	f, err := d.svc.Files.Get(id).
		Fields("id, name, mimeType").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("getting node %s: %w", id, err)
	}
	return &NodeInfo{Name: f.Name, IsFolder: f.MimeType == folderMimeType}, nil
}

func (d *DriveBackend) CreateFolder(ctx context.Context, parentID, name string) (string, error) {
	f, err := d.svc.Files.Create(&drive.File{
		Name:     name,
		MimeType: folderMimeType,
		Parents:  []string{parentID},
	}).
		Fields("id").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("creating folder %q under %s: %w", name, parentID, err)
	}
	return f.Id, nil
}

func (d *DriveBackend) Upload(ctx context.Context, folderID, name, mimeType string, r io.Reader, size int64, description string) (*UploadResult, error) {
	meta := &drive.File{
		Name:        name,
		Parents:     []string{folderID},
		Description: description,
	}
	call := d.svc.Files.Create(meta).
		Fields("id, webViewLink, size").
		SupportsAllDrives(true).
		Context(ctx)
	if mimeType != "" {
		call = call.Media(r, googleapi.ContentType(mimeType))
	} else {
		call = call.Media(r)
	}
	f, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("uploading %q to %s: %w", name, folderID, err)
	}
	return &UploadResult{ID: f.Id, ViewURL: f.WebViewLink, Size: f.Size}, nil
}

func (d *DriveBackend) Download(ctx context.Context, url string) (io.ReadCloser, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("building download request: %w", err)
	}
	resp, err := d.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("downloading %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, "", fmt.Errorf("downloading %s: unexpected status %s", url, resp.Status)
	}
	return resp.Body, resp.Header.Get("Content-Type"), nil
}

// Compile-time check that DriveBackend implements the Backend interface.
var _ Backend = (*DriveBackend)(nil)
