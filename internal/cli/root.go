// Package cli implements gamectl, the operator command line for the minigame engine.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/jason-s-yu/minigames/internal/app"
	"github.com/spf13/cobra"
)

// Opener builds the services a command runs against. The caller closes the App.
type Opener func(ctx context.Context) (*app.App, error)

// RootOptions holds global flags and the hooks commands use to reach the backend.
type RootOptions struct {
	Format string // "json" | "text"

	Open    Opener
	Migrate func(ctx context.Context) error
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for gamectl.
func NewRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gamectl",
		Short: "Operate the minigame engine",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewGamesCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewNotificationsCommand(opts))
	for _, c := range NewSweepCommands(opts) {
		cmd.AddCommand(c)
	}
	return cmd
}

func (o *RootOptions) open(ctx context.Context) (*app.App, error) {
	if o.Open == nil {
		return nil, fmt.Errorf("no backend configured")
	}
	return o.Open(ctx)
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
