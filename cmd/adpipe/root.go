package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mediaops/adpipe/internal/config"
	"github.com/mediaops/adpipe/internal/platform"
	"github.com/mediaops/adpipe/internal/source"
	"github.com/mediaops/adpipe/internal/store"
)

const version = "0.1.0"

var (
	// Global flags
	cfgPath   string
	logLevel  string
	logFormat string
	globalCfg *config.Config
	logger    *slog.Logger

	// Global components
	globalStore *store.Store
)

// newSource creates the file store client. It authenticates immediately, so
// only commands that talk to the source call it.
func newSource() (*source.Dropbox, error) {
	if globalCfg.Source.AccessToken == "" {
		return nil, fmt.Errorf("source access token is required (set DROPBOX_ACCESS_TOKEN)")
	}
	return source.New(globalCfg.Source.AccessToken, logger)
}

// newPlatform creates the ads platform client.
func newPlatform() (*platform.Client, error) {
	if globalCfg.Platform.AccessToken == "" {
		return nil, fmt.Errorf("platform access token is required (set FB_ACCESS_TOKEN)")
	}
	return platform.NewClient(platform.ClientOptions{
		AppID:       globalCfg.Platform.AppID,
		AppSecret:   globalCfg.Platform.AppSecret,
		AccessToken: globalCfg.Platform.AccessToken,
		AccountID:   globalCfg.Platform.AccountID,
		APIVersion:  globalCfg.Platform.APIVersion,
		PageSize:    globalCfg.Platform.PageSize,
	}, logger), nil
}

// openStore opens the record store at the configured path
func openStore() error {
	st, err := store.New(globalCfg.Server.DBPath, logger)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	globalStore = st
	return nil
}

// closeStore closes the global store connection
func closeStore() {
	if globalStore != nil {
		if err := globalStore.Close(); err != nil {
			logger.Error("failed to close store", "error", err)
		}
	}
}

// shouldSkipConfig checks if a command should skip config loading
func shouldSkipConfig(cmdName string) bool {
	skipConfigCmds := map[string]bool{
		"help":    true,
		"version": true,
	}
	return skipConfigCmds[cmdName]
}

// shouldSkipStore checks if a command should skip opening the record store
func shouldSkipStore(cmdName string) bool {
	skipStoreCmds := map[string]bool{
		"help":     true,
		"version":  true,
		"init":     true,
		"show":     true,
		"validate": true,
		"scan":     true,
	}
	return skipStoreCmds[cmdName]
}

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "adpipe",
		Short: "Pipeline that turns cloud-stored video creatives into platform ads",
		Long: `adpipe scans a cloud file store for finished video creatives, uploads them
to the ads platform's video library, duplicates a template campaign per job,
and rewires the duplicated ad's creative to the new video. Session and file
outcomes are recorded locally and served over a JSON reporting API.`,
		Example: `  adpipe run
  adpipe run --job-min 600 --job-max 650
  adpipe scan
  adpipe serve --listen 127.0.0.1:9000
  adpipe status --limit 10`,
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogging()

			if shouldSkipConfig(cmd.Name()) {
				return nil
			}

			// Tokens may live in a .env file next to the binary.
			if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
				logger.Warn("failed to load .env file", "error", err)
			}

			if cfgPath == "" {
				var err error
				cfgPath, err = config.FindConfigFile()
				if err != nil {
					logger.Warn("config file not found, using defaults", "error", err)
				}
			}

			if cfgPath != "" {
				var err error
				globalCfg, err = config.Load(cfgPath)
				if err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
			} else {
				globalCfg = config.DefaultConfig()
			}

			if !shouldSkipStore(cmd.Name()) {
				if err := openStore(); err != nil {
					return err
				}
			}

			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			closeStore()
		},
	}

	cmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (auto-discovered if not specified)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text or json)")

	cmd.AddCommand(
		newRunCmd(),
		newScanCmd(),
		newServeCmd(),
		newStatusCmd(),
		newConfigCmd(),
	)

	return cmd
}

// setupLogging initializes the slog logger based on flags
func setupLogging() {
	var level slog.Level
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	if strings.ToLower(logFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	logger = slog.New(handler)
	slog.SetDefault(logger)
}
