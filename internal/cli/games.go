package cli

import (
	"fmt"
	"strings"

	"github.com/jason-s-yu/minigames/internal/game"
	"github.com/spf13/cobra"
)

type gameListing struct {
	ID    string   `json:"id"`
	Moves []string `json:"moves"`
}

// NewGamesCommand lists the registered games.
func NewGamesCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "games",
		Short: "List registered games and their moves",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var games []gameListing
			for _, id := range game.IDs() {
				def, err := game.Lookup(id)
				if err != nil {
					return err
				}
				games = append(games, gameListing{ID: id, Moves: def.MoveNames()})
			}
			if opts.Format == "json" {
				return writeJSON(cmd, games)
			}
			for _, g := range games {
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %s\n", g.ID, strings.Join(g.Moves, ", "))
			}
			return nil
		},
	}
}

// NewMigrateCommand applies pending schema migrations.
func NewMigrateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Migrate == nil {
				return fmt.Errorf("no database configured")
			}
			if err := opts.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
