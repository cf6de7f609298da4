package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/connorheyz/google-drive-uploader-bot/internal/bot"
	"github.com/connorheyz/google-drive-uploader-bot/internal/chat"
	"github.com/connorheyz/google-drive-uploader-bot/internal/config"
	"github.com/connorheyz/google-drive-uploader-bot/internal/foldercache"
	"github.com/connorheyz/google-drive-uploader-bot/internal/pending"
	"github.com/connorheyz/google-drive-uploader-bot/internal/settings"
	"github.com/connorheyz/google-drive-uploader-bot/internal/storage"
	"github.com/connorheyz/google-drive-uploader-bot/internal/uploader"
)

// App is the application layer between the CLI and the upload workflow.
// It constructs all dependencies from config and manages the settings
// store and Discord session lifecycle on Close.
type App struct {
	cfg       *config.Config
	store     settings.Store
	backend   storage.Backend
	cache     *foldercache.Cache
	refresher *foldercache.Refresher
	service   *uploader.Service
	session   *discordgo.Session
	router    *bot.Router
	logFile   *os.File
	logger    uploader.Logger
}

// New creates a fully wired App from the given config. The caller must
// call Close when done.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	store, err := settings.NewStoreFromConfig(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("creating settings store: %w", err)
	}

	token, err := store.Get(ctx, settings.KeyBotToken)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("reading bot token: %w", err)
	}
	if token == "" {
		store.Close()
		return nil, fmt.Errorf("bot token is not configured: run 'driveup setup' first")
	}

	rootID, err := store.Get(ctx, settings.KeyRootFolderID)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("reading root folder id: %w", err)
	}

	backend, err := storage.NewBackendFromConfig(ctx, cfg.Storage, rootID)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating storage backend: %w", err)
	}

	slogLogger, logFile, err := newLogger(cfg.LogDir)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogLogger}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		logFile.Close()
		store.Close()
		return nil, fmt.Errorf("creating discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsDirectMessages

	rootFn := func(ctx context.Context) (string, error) {
		return store.Get(ctx, settings.KeyRootFolderID)
	}
	cache := foldercache.New(backend, rootFn, uploader.RealClock{}, logger)
	refresher := foldercache.NewRefresher(cache, refreshInterval(store), logger)

	routes := settings.Routes{Store: store}
	service := uploader.NewService(
		chat.NewDiscord(session),
		&blobAdapter{backend: backend},
		cache,
		routes,
		pending.New[uploader.UploadRequest](),
		uploader.UUIDGenerator{},
		logger,
	)

	router := bot.New(session, service, store, cache, refresher, logger)

	return &App{
		cfg:       cfg,
		store:     store,
		backend:   backend,
		cache:     cache,
		refresher: refresher,
		service:   service,
		session:   session,
		router:    router,
		logFile:   logFile,
		logger:    logger,
	}, nil
}

// NewOffline wires the settings store, storage backend, and folder cache
// without a Discord session, for CLI maintenance commands. Run must not
// be called on an offline App.
func NewOffline(ctx context.Context, cfg *config.Config) (*App, error) {
	store, err := settings.NewStoreFromConfig(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("creating settings store: %w", err)
	}

	rootID, err := store.Get(ctx, settings.KeyRootFolderID)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("reading root folder id: %w", err)
	}

	backend, err := storage.NewBackendFromConfig(ctx, cfg.Storage, rootID)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating storage backend: %w", err)
	}

	slogLogger, logFile, err := newLogger(cfg.LogDir)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogLogger}

	rootFn := func(ctx context.Context) (string, error) {
		return store.Get(ctx, settings.KeyRootFolderID)
	}
	cache := foldercache.New(backend, rootFn, uploader.RealClock{}, logger)

	return &App{
		cfg:     cfg,
		store:   store,
		backend: backend,
		cache:   cache,
		logFile: logFile,
		logger:  logger,
	}, nil
}

// refreshInterval reads the operator-tuned rebuild interval on every
// cycle so changes take effect without a restart.
func refreshInterval(store settings.Store) foldercache.IntervalFunc {
	return func(ctx context.Context) time.Duration {
		value, err := store.Get(ctx, settings.KeyRefreshIntervalMinutes)
		if err != nil {
			return foldercache.DefaultRefreshInterval
		}
		return bot.ParseRefreshInterval(value, foldercache.DefaultRefreshInterval)
	}
}

// Run connects to Discord and serves events until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.router.Register()

	if err := a.session.Open(); err != nil {
		return fmt.Errorf("opening discord session: %w", err)
	}

	if err := a.router.RegisterCommands(""); err != nil {
		a.logger.Warn("registering commands failed", "error", err)
	}

	if err := a.cache.Rebuild(ctx); err != nil {
		// A missing root folder id is expected on first run. Uploads
		// fail until an operator sets one.
		a.logger.Warn("initial folder cache build failed", "error", err)
	}

	a.logger.Info("bot is running")
	a.refresher.Run(ctx)

	if err := a.session.Close(); err != nil {
		return fmt.Errorf("closing discord session: %w", err)
	}
	return nil
}

// Rebuild rebuilds the folder cache once, for the refresh CLI command.
func (a *App) Rebuild(ctx context.Context) error {
	return a.cache.Rebuild(ctx)
}

// Store exposes the settings store for CLI commands.
func (a *App) Store() settings.Store { return a.store }

// CacheStats reports folder cache state for the show-config command.
func (a *App) CacheStats() (folders int, builtAt time.Time, ok bool) {
	return a.cache.Stats()
}

// Close releases the settings store and the log file.
func (a *App) Close() error {
	var firstErr error
	if err := a.store.Close(); err != nil {
		firstErr = fmt.Errorf("closing settings store: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}

// blobAdapter exposes a storage.Backend as the workflow's blob surface.
type blobAdapter struct {
	backend storage.Backend
}

var _ uploader.BlobStore = (*blobAdapter)(nil)

func (b *blobAdapter) Download(ctx context.Context, url string) (io.ReadCloser, string, error) {
	return b.backend.Download(ctx, url)
}

func (b *blobAdapter) Upload(ctx context.Context, folderID, name, mimeType string, r io.Reader, size int64, description string) (*uploader.UploadResult, error) {
	res, err := b.backend.Upload(ctx, folderID, name, mimeType, r, size, description)
	if err != nil {
		return nil, err
	}
	return &uploader.UploadResult{ID: res.ID, ViewURL: res.ViewURL, Size: res.Size}, nil
}
