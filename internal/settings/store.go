// Package settings is the durable key-value store for runtime
// configuration and credentials. It is deliberately small: in-flight
// workflow state never lives here, only operator-tunable values.
package settings

import "context"

// Known keys.
const (
	KeyRootFolderID           = "root_folder_id"
	KeyTriggerEmoji           = "trigger_emoji"
	KeyPrivilegedRole         = "privileged_role"
	KeyRefreshIntervalMinutes = "refresh_interval_minutes"
	KeyBotToken               = "bot_token"
)

// DefaultTriggerEmoji is used until an operator configures one.
const DefaultTriggerEmoji = "📤"

// Store is the settings/credential surface. Get returns "" for unset keys;
// ReviewChannelFor returns "" for unmapped sources.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error

	SourceChannels(ctx context.Context) ([]string, error)
	AddSourceChannel(ctx context.Context, channelID string) error
	RemoveSourceChannel(ctx context.Context, channelID string) error

	SetReviewChannel(ctx context.Context, sourceChannelID, reviewChannelID string) error
	ReviewChannelFor(ctx context.Context, sourceChannelID string) (string, error)
	Routes(ctx context.Context) (map[string]string, error)

	Close() error
}

// Routes adapts a Store to the workflow's routing/role surface.
type Routes struct {
	Store Store
}

func (r Routes) ReviewChannelFor(ctx context.Context, sourceChannelID string) (string, error) {
	return r.Store.ReviewChannelFor(ctx, sourceChannelID)
}

func (r Routes) PrivilegedRole(ctx context.Context) (string, error) {
	return r.Store.Get(ctx, KeyPrivilegedRole)
}
