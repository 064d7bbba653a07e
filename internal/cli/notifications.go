package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// NewNotificationsCommand drains queued notifications, for inspecting what the push
// service would receive.
func NewNotificationsCommand(opts *RootOptions) *cobra.Command {
	var (
		count   int
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "Pop notifications from the push queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			if a.Queue == nil {
				return fmt.Errorf("redis is disabled")
			}

			for i := 0; i < count; i++ {
				n, err := a.Queue.Pop(cmd.Context(), timeout)
				if err != nil {
					return err
				}
				if n == nil {
					break
				}
				if opts.Format == "json" {
					if err := writeJSON(cmd, n); err != nil {
						return err
					}
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s %v\n", n.UserID, n.Title, n.Body, n.Metadata)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", 10, "maximum number of notifications to pop")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Second, "how long to wait for each notification")
	return cmd
}
