package cli

import (
	"fmt"

	"github.com/jason-s-yu/minigames/internal/worker"
	"github.com/spf13/cobra"
)

// NewSweepCommands returns one command per periodic job, each running it once.
func NewSweepCommands(opts *RootOptions) []*cobra.Command {
	jobs := []struct {
		name, short string
	}{
		{worker.JobCompress, "Fold long move logs into their base snapshots"},
		{worker.JobRemind, "Remind recipients of stale pending invites"},
		{worker.JobNudge, "Nudge players whose opponent is waiting on them"},
		{worker.JobStartReady, "Start invites both players accepted"},
	}

	cmds := make([]*cobra.Command, 0, len(jobs))
	for _, j := range jobs {
		cmds = append(cmds, &cobra.Command{
			Use:   j.name,
			Short: j.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := opts.open(cmd.Context())
				if err != nil {
					return err
				}
				defer a.Close()

				s := worker.NewScheduler(a.Logger, a.Jobs()...)
				if err := s.RunOnce(cmd.Context(), j.name); err != nil {
					return fmt.Errorf("%s: %w", j.name, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s done\n", j.name)
				return nil
			},
		})
	}
	return cmds
}
