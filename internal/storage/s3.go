package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

// S3Backend implements the Backend interface on a flat S3 keyspace by
// modeling the folder hierarchy with marker objects:
//
//	<prefix>folders/<parentID>/<name> -> body holds the folder's id
//	<prefix>nodes/<id>                -> body holds the folder's name
//	<prefix>files/<folderID>/<name>   -> file content
//
// The configured root folder id is an arbitrary label (conventionally
// "root"); it has no marker of its own.
type S3Backend struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
	region   string
	rootID   string
	http     *http.Client
}

// S3Options configures an S3Backend.
type S3Options struct {
	Bucket    string
	Prefix    string
	Region    string
	RootID    string
	AccessKey string
	SecretKey string
}

// NewS3Backend creates an S3-backed storage backend.
func NewS3Backend(ctx context.Context, opts S3Options) (*S3Backend, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 backend requires a bucket")
	}
	if opts.RootID == "" {
		opts.RootID = "root"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(opts.Region)}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg)
	return &S3Backend{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   opts.Bucket,
		prefix:   normalizePrefix(opts.Prefix),
		region:   opts.Region,
		rootID:   opts.RootID,
		http:     &http.Client{Timeout: 5 * time.Minute},
	}, nil
}

func normalizePrefix(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return ""
	}
	return p + "/"
}

func (b *S3Backend) key(parts ...string) string {
	return b.prefix + path.Join(parts...)
}

func (b *S3Backend) ListChildren(ctx context.Context, parentID string) ([]NodeRef, error) {
	prefix := b.key("folders", parentID) + "/"

	var out []NodeRef
	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing folder markers under %s: %w", parentID, err)
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			if name == "" || strings.Contains(name, "/") {
				continue
			}
			id, err := b.readObject(ctx, aws.ToString(obj.Key))
			if err != nil {
				return nil, err
			}
			out = append(out, NodeRef{ID: id, Name: name})
		}
	}
	return out, nil
}

func (b *S3Backend) GetNodeInfo(ctx context.Context, id string) (*NodeInfo, error) {
	if id == b.rootID {
		return &NodeInfo{Name: "", IsFolder: true}, nil
	}
	name, err := b.readObject(ctx, b.key("nodes", id))
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}
	return &NodeInfo{Name: name, IsFolder: true}, nil
}

func (b *S3Backend) CreateFolder(ctx context.Context, parentID, name string) (string, error) {
	markerKey := b.key("folders", parentID, name)

	// Idempotent: reuse an existing marker's id.
	if id, err := b.readObject(ctx, markerKey); err == nil {
		return id, nil
	}

	id := uuid.New().String()
	if err := b.putObject(ctx, markerKey, id); err != nil {
		return "", fmt.Errorf("writing folder marker %q: %w", name, err)
	}
	if err := b.putObject(ctx, b.key("nodes", id), name); err != nil {
		return "", fmt.Errorf("writing node index for %q: %w", name, err)
	}
	return id, nil
}

func (b *S3Backend) Upload(ctx context.Context, folderID, name, mimeType string, r io.Reader, size int64, description string) (*UploadResult, error) {
	key := b.key("files", folderID, name)
	input := &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
		Body:   r,
	}
	if mimeType != "" {
		input.ContentType = aws.String(mimeType)
	}
	if description != "" {
		input.Metadata = map[string]string{"description": description}
	}
	if _, err := b.uploader.Upload(ctx, input); err != nil {
		return nil, fmt.Errorf("uploading %q to %s: %w", name, folderID, err)
	}
	viewURL := fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", b.bucket, b.region, key)
	return &UploadResult{ID: key, ViewURL: viewURL, Size: size}, nil
}

func (b *S3Backend) Download(ctx context.Context, url string) (io.ReadCloser, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("building download request: %w", err)
	}
	resp, err := b.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("downloading %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, "", fmt.Errorf("downloading %s: unexpected status %s", url, resp.Status)
	}
	return resp.Body, resp.Header.Get("Content-Type"), nil
}

func (b *S3Backend) readObject(ctx context.Context, key string) (string, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", err
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return "", fmt.Errorf("reading object %s: %w", key, err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (b *S3Backend) putObject(ctx context.Context, key, body string) error {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
		Body:   strings.NewReader(body),
	})
	return err
}

// Compile-time check that S3Backend implements the Backend interface.
var _ Backend = (*S3Backend)(nil)
