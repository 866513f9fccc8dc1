package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ovaphlow/pitchfork/service-meeting/internal/meeting"
)

// SweepResult is the json output of sweep.
type SweepResult struct {
	Removed int `json:"removed"`
}

// NewSweepCommand creates the sweep command.
func NewSweepCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete events dated before today",
		Long: `Delete every event whose date is before today.

Nothing is written when no event has expired. A write attempted inside the
cooldown window fails; run the command again.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withService(cmd.Context(), func(svc *meeting.Service) error {
				n, err := svc.CollectExpired(cmd.Context())
				if err != nil {
					return err
				}
				if rootOpts.Format == "json" {
					return writeJSON(cmd.OutOrStdout(), SweepResult{Removed: n})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired event(s)\n", n)
				return nil
			})
		},
	}
}
