// Package main is the entry point for the bidscribe CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/custodia-labs/bidscribe/internal/adapters/driven/ai"
	"github.com/custodia-labs/bidscribe/internal/adapters/driven/config/file"
	"github.com/custodia-labs/bidscribe/internal/adapters/driving/cli"
	"github.com/custodia-labs/bidscribe/internal/core/services"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	base, err := file.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("opening config: %w", err)
	}
	store, err := file.NewEnvOverlay(base, envFiles()...)
	if err != nil {
		return fmt.Errorf("reading .env: %w", err)
	}

	settings := services.NewSettingsService(store, ai.NewConfigValidator())

	app := newApp(settings)
	defer app.Close()

	cli.SetVersion(version)
	cli.SetServices(&cli.Services{Settings: settings})
	cli.SetBootstrap(app.Bootstrap)

	return cli.Execute(ctx)
}

// envFiles lists the .env files read on start, most specific first.
func envFiles() []string {
	files := []string{".env"}
	if home, err := os.UserHomeDir(); err == nil {
		files = append(files, filepath.Join(home, ".bidscribe", ".env"))
	}
	return files
}
