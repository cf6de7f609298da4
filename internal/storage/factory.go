package storage

import (
	"context"
	"fmt"

	"github.com/connorheyz/google-drive-uploader-bot/internal/config"
)

// NewBackendFromConfig creates a Backend implementation based on the
// storage config type. rootID is the configured root folder id, which the
// S3 backend needs as its synthetic root label.
func NewBackendFromConfig(ctx context.Context, cfg config.StorageConfig, rootID string) (Backend, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryBackend(), nil
	case "drive":
		if cfg.DriveCredentialsPath == "" {
			return nil, fmt.Errorf("drive backend requires drive_credentials_path to be set")
		}
		return NewDriveBackend(ctx, cfg.DriveCredentialsPath)
	case "s3":
		return NewS3Backend(ctx, S3Options{
			Bucket:    cfg.S3Bucket,
			Prefix:    cfg.S3Prefix,
			Region:    cfg.S3Region,
			RootID:    rootID,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
