package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/trendload/internal/cli"
	"github.com/JonMunkholm/trendload/internal/config"
	"github.com/JonMunkholm/trendload/internal/logging"
)

func main() {
	// Default logging until the command loads its configuration.
	logging.Setup(config.DefaultLogLevel, config.DefaultLogFormat)

	// Load .env file if it exists. Variables already set in the
	// environment win over the file.
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	// SIGINT/SIGTERM cancel the run; the source being appended rolls back.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := cli.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()

	os.Exit(code)
}
