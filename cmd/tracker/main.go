// Command tracker is a terminal client for the festival tracker API. It reads
// commands and GPS fixes from stdin, one per line.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"festival-tracker-backend/internal/console"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	_ = godotenv.Load()
	setupLogger(os.Getenv("TRACKER_LOG_LEVEL"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := console.New(console.ConfigFromEnv(), os.Stdout)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open session store")
	}
	defer app.Close()

	if err := app.Run(ctx, os.Stdin); err != nil {
		log.Error().Err(err).Msg("Tracker client stopped")
	}
}

// setupLogger configures zerolog logger. Warnings and above by default so
// log lines do not drown the command output.
func setupLogger(level string) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	parsed, err := zerolog.ParseLevel(level)
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.WarnLevel
	}
	zerolog.SetGlobalLevel(parsed)
}
