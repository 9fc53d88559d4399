// Package main is the entry point for the inkpost blog API server.
//
// MAIN PACKAGE IN GO:
// The main package should be kept minimal. Its job is to:
// 1. Read configuration (flags, config file, .env, environment)
// 2. Create dependencies (logger, store)
// 3. Start the application
//
// All actual logic lives in imported packages (internal/server, internal/service, ...).
//
// WHY COBRA?
// Cobra gives us flag parsing, --help and subcommands for free:
//
//	inkpost                      run the server
//	inkpost --config prod.yaml   run with a config file
//	inkpost version              print the build version
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sakif/inkpost/internal/config"
	"github.com/sakif/inkpost/internal/server"
)

// version is overridden at build time:
//
//	go build -ldflags "-X main.version=v1.2.0" ./cmd/server
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		envFile    string
	)

	root := &cobra.Command{
		Use:           "inkpost",
		Short:         "Blog REST API with JWT authentication",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), configPath, envFile)
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (default ./inkpost.yaml if present)")
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "inkpost", version)
		},
	})

	return root
}

func run(ctx context.Context, configPath, envFile string) error {
	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		// No logger yet: its level and format come from the config.
		fmt.Fprintln(os.Stderr, "inkpost:", err)
		return err
	}

	logger := cfg.Logging.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	openCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	store, err := server.OpenStore(openCtx, cfg.Store)
	if err != nil {
		logger.Error("failed to open store",
			slog.String("driver", cfg.Store.Driver),
			slog.String("error", err.Error()),
		)
		return err
	}

	srv, err := server.New(cfg, store, logger)
	if err != nil {
		_ = store.Close()
		logger.Error("failed to create server", slog.String("error", err.Error()))
		return err
	}

	// Start blocks until SIGINT/SIGTERM, then drains and closes the store.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		return err
	}
	return nil
}
