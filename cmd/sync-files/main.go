package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/precommit-tools/sync-files/internal/config"
	"github.com/precommit-tools/sync-files/internal/git"
	"github.com/precommit-tools/sync-files/internal/sync"
	"github.com/spf13/cobra"
)

var (
	// Set by goreleaser
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Global flags
	cfgFile   string
	logFormat string
	writeMode bool
	debugMode bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "sync-files",
	Short: "Keep shared files in sync with an upstream source repository",
	Long: `sync-files compares a declared set of files in the current repository against
their counterparts in an upstream source repository and reports or fixes any
drift. It is designed to run as a pre-commit hook.

Without flags it runs in check mode: mismatches are listed and the hook fails.
With --write, mismatched files are overwritten from the source repository.

A missing .sync-files.toml is a no-op, so the hook can be installed
repository-wide before every repository carries a configuration.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runSync,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("sync-files %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .sync-files.toml in the current directory or an ancestor)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")

	rootCmd.Flags().BoolVar(&writeMode, "write", false, "overwrite mismatched destination files from source")
	rootCmd.Flags().BoolVar(&debugMode, "debug", false, "enable debug logging")

	rootCmd.AddCommand(versionCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	logger := setupLogger()
	logger.Info("starting sync-files", "version", version)

	cfg, err := loadConfig(ctx, logger)
	if err != nil {
		// Missing config is a no-op: the hook succeeds without doing anything
		if errors.Is(err, config.ErrNotFound) {
			logger.Debug("no config file found, nothing to do")
			return nil
		}
		logger.Error("configuration error", "error", err)
		return err
	}

	repoRoot, err := os.Getwd()
	if err != nil {
		logger.Error("failed to determine repository root", "error", err)
		return err
	}

	engine := sync.NewEngine(cfg, git.NewShellClient(), logger, repoRoot, writeMode)

	syncErrs, warnings, err := engine.Run(ctx)
	if err != nil {
		logger.Error("sync failed", "error", err)
		return err
	}

	for _, warning := range warnings {
		logger.Warn(warning)
	}

	if len(syncErrs) > 0 {
		logger.Error("file synchronization check failed:")
		for _, syncErr := range syncErrs {
			logger.Error("  - " + syncErr)
		}
		if !writeMode {
			logger.Error("Run with --write to automatically sync files.")
		}
		return fmt.Errorf("%d file(s) out of sync", len(syncErrs))
	}

	if len(warnings) > 0 {
		logger.Info("files synchronized successfully", "count", len(warnings))
	}

	return nil
}

func setupLogger() *slog.Logger {
	level := slog.LevelInfo
	if debugMode {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if logFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}

// loadConfig loads the configuration and applies the self-pinning override:
// when the binary runs as an installed copy of itself inside a tagged
// checkout, the fetch ref is pinned to that release so the synced files
// cannot drift from the pinned hook version.
func loadConfig(ctx context.Context, logger *slog.Logger) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	logger.Debug("configuration loaded",
		"repo", cfg.Source.Repo,
		"ref", cfg.Source.Ref,
		"files", len(cfg.Files),
		"mode", cfg.Options.Mode)

	if exe, err := os.Executable(); err == nil {
		if hookVersion, ok := git.SelfVersion(ctx, filepath.Dir(exe)); ok {
			logger.Debug("pinning ref to installed hook version", "version", hookVersion)
			cfg.Source.Ref = hookVersion
		}
	}

	return cfg, nil
}

func setupSignalHandler() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
	}()

	return ctx, cancel
}
