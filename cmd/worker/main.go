// cmd/worker/main.go runs the periodic sweeps: log compression, invite reminders,
// idle nudges and the ready-invite start sweep.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/minigames/internal/app"
	"github.com/jason-s-yu/minigames/internal/config"
	"github.com/jason-s-yu/minigames/internal/worker"
	_ "github.com/joho/godotenv/autoload"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := cfg.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to start services")
	}
	defer a.Close()

	worker.NewScheduler(logger, a.Jobs()...).Run(ctx)
}
