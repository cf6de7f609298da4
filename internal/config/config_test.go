package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		BaseDir: "/home/user/.local/share/driveup",
		LogDir:  "/home/user/.local/share/driveup/log",
		Storage: StorageConfig{
			Type:                 "drive",
			DriveCredentialsPath: "/home/user/.local/share/driveup/drive-credentials.json",
		},
		Store: StoreConfig{Type: "sqlite", DataDir: "/home/user/.local/share/driveup/data"},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.BaseDir != original.BaseDir {
		t.Errorf("BaseDir = %q, want %q", got.BaseDir, original.BaseDir)
	}
	if got.LogDir != original.LogDir {
		t.Errorf("LogDir = %q, want %q", got.LogDir, original.LogDir)
	}
	if got.Storage.Type != "drive" {
		t.Errorf("Storage.Type = %q, want %q", got.Storage.Type, "drive")
	}
	if got.Storage.DriveCredentialsPath != original.Storage.DriveCredentialsPath {
		t.Errorf("Storage.DriveCredentialsPath = %q, want %q", got.Storage.DriveCredentialsPath, original.Storage.DriveCredentialsPath)
	}
	if got.Store.Type != "sqlite" {
		t.Errorf("Store.Type = %q, want %q", got.Store.Type, "sqlite")
	}
	if got.Store.DataDir != original.Store.DataDir {
		t.Errorf("Store.DataDir = %q, want %q", got.Store.DataDir, original.Store.DataDir)
	}
}

func TestManager_ReadS3Config(t *testing.T) {
	input := `
base_dir = "/data/driveup"
log_dir = "/data/driveup/log"

[storage]
type = "s3"
s3_bucket = "guild-files"
s3_prefix = "driveup/"
s3_region = "us-east-1"

[store]
type = "memory"
`
	m := &Manager{}
	got, err := m.Read(bytes.NewBufferString(input))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got.Storage.Type != "s3" {
		t.Errorf("Storage.Type = %q, want %q", got.Storage.Type, "s3")
	}
	if got.Storage.S3Bucket != "guild-files" {
		t.Errorf("Storage.S3Bucket = %q, want %q", got.Storage.S3Bucket, "guild-files")
	}
	if got.Storage.S3Region != "us-east-1" {
		t.Errorf("Storage.S3Region = %q, want %q", got.Storage.S3Region, "us-east-1")
	}
	if got.Store.Type != "memory" {
		t.Errorf("Store.Type = %q, want %q", got.Store.Type, "memory")
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/data/driveup")

	if cfg.BaseDir != "/data/driveup" {
		t.Errorf("BaseDir = %q, want %q", cfg.BaseDir, "/data/driveup")
	}
	if cfg.LogDir != "/data/driveup/log" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/data/driveup/log")
	}
	if cfg.Storage.Type != "drive" {
		t.Errorf("Storage.Type = %q, want %q", cfg.Storage.Type, "drive")
	}
	if cfg.Storage.DriveCredentialsPath != "/data/driveup/drive-credentials.json" {
		t.Errorf("Storage.DriveCredentialsPath = %q, want %q", cfg.Storage.DriveCredentialsPath, "/data/driveup/drive-credentials.json")
	}
	if cfg.Store.Type != "sqlite" {
		t.Errorf("Store.Type = %q, want %q", cfg.Store.Type, "sqlite")
	}
	if cfg.Store.DataDir != "/data/driveup/data" {
		t.Errorf("Store.DataDir = %q, want %q", cfg.Store.DataDir, "/data/driveup/data")
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "driveup.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		if _, err := os.Stat(path); err != nil {
			t.Fatalf("config file not created: %v", err)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "driveup.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}

		err := Init(path, cfg)
		if err == nil {
			t.Fatal("second Init() expected error")
		}
	})
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "driveup.toml")
		cfg := NewConfig(dir)
		cfg.Store = StoreConfig{Type: "memory"}

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.Store.Type != "memory" {
			t.Errorf("Store.Type = %q, want %q", got.Store.Type, "memory")
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		_, err := ReadFromFile("/nonexistent/path/driveup.toml")
		if err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})
}
