package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/connorheyz/google-drive-uploader-bot/internal/settings/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (or creates) a settings database at path and runs
// pending migrations. path can be ":memory:" for tests.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating settings database: %w", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// OpenConnection opens and configures a SQLite database connection with
// appropriate PRAGMAs. path can be a file path or ":memory:".
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign key constraints (SQLite default is OFF for backward compatibility)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading setting %q: %w", key, err)
	}
	return value, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value)
	if err != nil {
		return fmt.Errorf("writing setting %q: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) SourceChannels(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT channel_id FROM source_channels ORDER BY channel_id")
	if err != nil {
		return nil, fmt.Errorf("listing source channels: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning source channel: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) AddSourceChannel(ctx context.Context, channelID string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO source_channels (channel_id) VALUES (?) ON CONFLICT(channel_id) DO NOTHING",
		channelID)
	if err != nil {
		return fmt.Errorf("adding source channel %s: %w", channelID, err)
	}
	return nil
}

func (s *SQLiteStore) RemoveSourceChannel(ctx context.Context, channelID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM source_channels WHERE channel_id = ?", channelID)
	if err != nil {
		return fmt.Errorf("removing source channel %s: %w", channelID, err)
	}
	return nil
}

func (s *SQLiteStore) SetReviewChannel(ctx context.Context, sourceChannelID, reviewChannelID string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO review_routes (source_channel_id, review_channel_id) VALUES (?, ?) "+
			"ON CONFLICT(source_channel_id) DO UPDATE SET review_channel_id = excluded.review_channel_id",
		sourceChannelID, reviewChannelID)
	if err != nil {
		return fmt.Errorf("mapping review channel for %s: %w", sourceChannelID, err)
	}
	return nil
}

func (s *SQLiteStore) ReviewChannelFor(ctx context.Context, sourceChannelID string) (string, error) {
	var reviewID string
	err := s.db.QueryRowContext(ctx,
		"SELECT review_channel_id FROM review_routes WHERE source_channel_id = ?",
		sourceChannelID).Scan(&reviewID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading review route for %s: %w", sourceChannelID, err)
	}
	return reviewID, nil
}

func (s *SQLiteStore) Routes(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT source_channel_id, review_channel_id FROM review_routes")
	if err != nil {
		return nil, fmt.Errorf("listing review routes: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var src, review string
		if err := rows.Scan(&src, &review); err != nil {
			return nil, fmt.Errorf("scanning review route: %w", err)
		}
		out[src] = review
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Compile-time check that SQLiteStore implements the Store interface.
var _ Store = (*SQLiteStore)(nil)
