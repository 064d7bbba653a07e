// cmd/gamectl/main.go
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jason-s-yu/minigames/internal/app"
	"github.com/jason-s-yu/minigames/internal/cli"
	"github.com/jason-s-yu/minigames/internal/config"
	"github.com/jason-s-yu/minigames/internal/database/migrations"
	_ "github.com/joho/godotenv/autoload"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger := cfg.NewLogger()

	opts := &cli.RootOptions{
		Open: func(ctx context.Context) (*app.App, error) {
			return app.Open(ctx, cfg, logger)
		},
		Migrate: func(ctx context.Context) error {
			return migrations.Migrate(cfg.Postgres.URL(), logger)
		},
	}
	if err := cli.NewRootCommand(opts).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
