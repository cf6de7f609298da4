package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/connorheyz/google-drive-uploader-bot/internal/app"
	"github.com/connorheyz/google-drive-uploader-bot/internal/config"
	"github.com/connorheyz/google-drive-uploader-bot/internal/settings"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// readConfig reads the config file from its default (or overridden) location.
func readConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return cfg, nil
}

// openStore opens just the settings store, for commands that do not need
// the storage backend or a Discord session.
func openStore() (settings.Store, error) {
	cfg, err := readConfig()
	if err != nil {
		return nil, err
	}
	return settings.NewStoreFromConfig(cfg.Store)
}

var rootCmd = &cobra.Command{
	Use:   "driveup",
	Short: "Discord bot that uploads approved attachments to shared cloud storage",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the bot",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := app.New(ctx, cfg)
		if err != nil {
			return fmt.Errorf("initializing app: %w", err)
		}
		defer a.Close()

		return a.Run(ctx)
	},
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Get application defaults
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		// Create config with defaults
		cfg := config.NewConfig(defaults["base_dir"])

		// Initialize config file
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		fmt.Println("Next: run 'driveup setup' to store the bot token.")
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:  %s\n", cfg.LogDir)
		fmt.Printf("Storage:  %s\n", cfg.Storage.Type)
		fmt.Printf("Store:    %s\n", cfg.Store.Type)
		return nil
	},
}

// setup command
var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Store the Discord bot token",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		fmt.Print("Bot token: ")
		raw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("reading token: %w", err)
		}

		token := strings.TrimSpace(string(raw))
		if token == "" {
			return fmt.Errorf("token must not be empty")
		}

		if err := store.Set(cmd.Context(), settings.KeyBotToken, token); err != nil {
			return fmt.Errorf("storing token: %w", err)
		}

		fmt.Println("Token stored.")
		return nil
	},
}

// refresh command
var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Rebuild the folder cache once",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}

		a, err := app.NewOffline(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("initializing app: %w", err)
		}
		defer a.Close()

		if err := a.Rebuild(cmd.Context()); err != nil {
			return fmt.Errorf("rebuilding folder cache: %w", err)
		}

		folders, builtAt, _ := a.CacheStats()
		fmt.Printf("Folder cache rebuilt: %d folder(s) at %s\n", folders, builtAt.UTC().Format(time.RFC3339))
		return nil
	},
}

// show-config command
var showConfigCmd = &cobra.Command{
	Use:   "show-config",
	Short: "Show runtime settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()

		trigger, err := store.Get(ctx, settings.KeyTriggerEmoji)
		if err != nil {
			return err
		}
		if trigger == "" {
			trigger = settings.DefaultTriggerEmoji
		}

		root, err := store.Get(ctx, settings.KeyRootFolderID)
		if err != nil {
			return err
		}
		if root == "" {
			root = "(not set)"
		}

		role, err := store.Get(ctx, settings.KeyPrivilegedRole)
		if err != nil {
			return err
		}
		if role == "" {
			role = "(not set)"
		}

		token, err := store.Get(ctx, settings.KeyBotToken)
		if err != nil {
			return err
		}
		tokenState := "(not set)"
		if token != "" {
			tokenState = "(set)"
		}

		channels, err := store.SourceChannels(ctx)
		if err != nil {
			return err
		}

		routes, err := store.Routes(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("Trigger emoji:   %s\n", trigger)
		fmt.Printf("Root folder:     %s\n", root)
		fmt.Printf("Privileged role: %s\n", role)
		fmt.Printf("Bot token:       %s\n", tokenState)

		if len(channels) == 0 {
			fmt.Println("Source channels: (none)")
		} else {
			fmt.Printf("Source channels: %s\n", strings.Join(channels, ", "))
		}
		for src, review := range routes {
			fmt.Printf("Review route:    %s -> %s\n", src, review)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(showConfigCmd)
}
